// Copyright 2024 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package block holds the positional columnar containers of the compute
// engine. A Block maps each position to a run of values in a flat array,
// with optional nulls and multi-valued positions. A Vector is the dense
// shape of a Block: one non-null value per position.
//
// Built blocks and vectors are immutable and safe for concurrent reads.
// Builders are single-owner and single-use. Blocks backed by accounted
// memory must be released exactly once by their current owner.
package block

import (
	"github.com/matrixorigin/moblock/pkg/container/types"
)

// MvOrdering describes the values inside each multi-valued position.
type MvOrdering uint8

const (
	// UNORDERED makes no claim about the values of a position.
	UNORDERED MvOrdering = iota
	// DEDUPLICATED_AND_SORTED_ASCENDING claims every position's values are
	// strictly ascending. The claim is not checked, see VerifyMvOrdering.
	DEDUPLICATED_AND_SORTED_ASCENDING
)

func (o MvOrdering) String() string {
	switch o {
	case UNORDERED:
		return "UNORDERED"
	case DEDUPLICATED_AND_SORTED_ASCENDING:
		return "DEDUPLICATED_AND_SORTED_ASCENDING"
	}
	return "UNKNOWN"
}

// Block is a column of positions, each holding zero or more values.
//
// A null position's value range is unspecified: IsNull must be checked
// before reading the values of a position.
type Block interface {
	// ElementType returns the type of the values.
	ElementType() types.T
	// PositionCount returns the number of positions.
	PositionCount() int
	// IsNull reports whether position p is null.
	IsNull(p int) bool
	// MayHaveNulls is false only if no position is null.
	MayHaveNulls() bool
	// AreAllValuesNull reports whether every position is null.
	AreAllValuesNull() bool
	// GetFirstValueIndex returns the flat index of the first value of p.
	GetFirstValueIndex(p int) int
	// GetValueCount returns the number of values of p, 0 for null positions.
	GetValueCount(p int) int
	// GetTotalValueCount returns the size of the flat value range.
	GetTotalValueCount() int
	// MayHaveMultivaluedFields is false only if no position has more than
	// one value.
	MayHaveMultivaluedFields() bool
	MvOrdering() MvOrdering
	// AsVector returns the dense view of the block, or nil when the block
	// has nulls or multi-valued positions. The view shares memory with the
	// block: release one of them, not both.
	AsVector() Vector
	// Filter returns a new block made of the given positions, in order.
	Filter(positions ...int) (Block, error)
	// Expand returns a new block with one position per value. Null
	// positions stay null.
	Expand() (Block, error)
	// RamBytesUsed returns an estimate of the memory held by the block.
	RamBytesUsed() int64
	// Release hands accounted memory back to the factory.
	Release()
	IsReleased() bool
	BlockFactory() *BlockFactory
	String() string
}

// Vector is a dense column: one non-null value per position. Typed vectors
// read values by position, without a bounds check.
type Vector interface {
	ElementType() types.T
	PositionCount() int
	// IsConstant reports whether every position holds the same value.
	IsConstant() bool
	// AsBlock returns the block view of the vector. It shares memory with
	// the vector: release one of them, not both.
	AsBlock() Block
	// Filter returns a new vector made of the given positions, in order.
	Filter(positions ...int) (Vector, error)
	RamBytesUsed() int64
	Release()
	IsReleased() bool
	BlockFactory() *BlockFactory
	String() string
}

// Builder is the type independent part of every block builder.
type Builder interface {
	// AppendNull adds a null position.
	AppendNull() error
	// BeginPositionEntry opens a multi-valued position. Values appended
	// until EndPositionEntry belong to it.
	BeginPositionEntry() error
	EndPositionEntry() error
	// CopyFrom appends positions [begin, end) of b, which must hold the
	// builder's element type or be all null.
	CopyFrom(b Block, begin, end int) error
	// SetMvOrdering records the ordering claim of the built block.
	SetMvOrdering(o MvOrdering) error
	// BuildBlock finishes the builder. It can be called once.
	BuildBlock() (Block, error)
	// EstimatedBytes returns the bytes reserved by the builder.
	EstimatedBytes() int64
	// Close releases the reservation of an unbuilt builder. It is a no-op
	// after a build.
	Close()
}

var (
	_ BooleanBlock  = new(booleanBlock)
	_ IntBlock      = new(intBlock)
	_ LongBlock     = new(longBlock)
	_ DoubleBlock   = new(doubleBlock)
	_ BytesRefBlock = new(bytesRefBlock)

	_ BooleanVector  = new(booleanVector)
	_ IntVector      = new(intVector)
	_ LongVector     = new(longVector)
	_ DoubleVector   = new(doubleVector)
	_ BytesRefVector = new(bytesRefVector)

	_ Builder = new(BooleanBlockBuilder)
	_ Builder = new(IntBlockBuilder)
	_ Builder = new(LongBlockBuilder)
	_ Builder = new(DoubleBlockBuilder)
	_ Builder = new(BytesRefBlockBuilder)
)
