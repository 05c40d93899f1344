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

package block

import (
	"context"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/matrixorigin/moblock/pkg/common/moerr"
	"github.com/matrixorigin/moblock/pkg/container/bigarray"
	"github.com/matrixorigin/moblock/pkg/container/nulls"
	"github.com/matrixorigin/moblock/pkg/container/types"
)

// IntBlock is a block of int32 values.
type IntBlock interface {
	Block
	// GetInt returns the value at flat value index i.
	GetInt(i int) int32
}

// IntVector is a vector of int32 values.
type IntVector interface {
	Vector
	// GetInt returns the value of position p.
	GetInt(p int) int32
}

type intBlock struct {
	*valueBlock[int32]
}

func (b *intBlock) GetInt(i int) int32 {
	return b.values.Get(i)
}

type intVector struct {
	*valueVector[int32]
}

func (v *intVector) GetInt(p int) int32 {
	return v.values.Get(p)
}

var intOps = &typeOps[int32]{
	typ:         types.T_int32,
	name:        "Int",
	newAppender: newNumAppender[int32],
	wrapBlock: func(b *valueBlock[int32]) Block {
		return &intBlock{b}
	},
	wrapVector: func(v *valueVector[int32]) Vector {
		return &intVector{v}
	},
	reader: func(b Block) func(int) int32 {
		if tb, ok := b.(IntBlock); ok {
			return tb.GetInt
		}
		return nil
	},
	less:  func(a, b int32) bool { return a < b },
	equal: func(a, b int32) bool { return a == b },
	hash: func(d *xxhash.Digest, v int32) {
		_, _ = d.Write(types.EncodeFixed(v))
	},
	format: func(v int32) string {
		return strconv.FormatInt(int64(v), 10)
	},
}

// NewIntArrayBlock wraps values in a block without copying. A nil
// firstValueIndexes makes a single valued block.
func (f *BlockFactory) NewIntArrayBlock(values []int32, positionCount int, firstValueIndexes []int32, nsp *nulls.Nulls, ordering MvOrdering) (IntBlock, error) {
	blk, err := newValueBlock[int32](f, intOps, arrayStorage[int32](values), positionCount, firstValueIndexes, nsp, ordering)
	if err != nil {
		return nil, err
	}
	return &intBlock{blk}, nil
}

// NewIntBigArrayBlock wraps accounted values in a block, which takes them
// over on success.
func (f *BlockFactory) NewIntBigArrayBlock(values *bigarray.IntArray, positionCount int, firstValueIndexes []int32, nsp *nulls.Nulls, ordering MvOrdering) (IntBlock, error) {
	if values == nil {
		return nil, moerr.NewInvalidArg(context.TODO(), "values", nil)
	}
	blk, err := newValueBlock[int32](f, intOps, &bigFixedStorage[int32]{factory: f, arr: values}, positionCount, firstValueIndexes, nsp, ordering)
	if err != nil {
		return nil, err
	}
	return &intBlock{blk}, nil
}

// NewIntArrayVector wraps values in a vector without copying.
func (f *BlockFactory) NewIntArrayVector(values []int32, positionCount int) (IntVector, error) {
	vec, err := newValueVector[int32](f, intOps, arrayStorage[int32](values), positionCount)
	if err != nil {
		return nil, err
	}
	return &intVector{vec}, nil
}

// NewIntBigArrayVector wraps accounted values in a vector, which takes
// them over on success.
func (f *BlockFactory) NewIntBigArrayVector(values *bigarray.IntArray, positionCount int) (IntVector, error) {
	if values == nil {
		return nil, moerr.NewInvalidArg(context.TODO(), "values", nil)
	}
	vec, err := newValueVector[int32](f, intOps, &bigFixedStorage[int32]{factory: f, arr: values}, positionCount)
	if err != nil {
		return nil, err
	}
	return &intVector{vec}, nil
}

// NewConstantIntVector returns a vector holding v at every position.
func (f *BlockFactory) NewConstantIntVector(v int32, positionCount int) IntVector {
	return &intVector{&valueVector[int32]{
		ops:           intOps,
		factory:       f,
		positionCount: positionCount,
		values:        &constStorage[int32]{v: v, n: positionCount},
	}}
}

// NewConstantIntBlock returns a single valued block holding v at every
// position.
func (f *BlockFactory) NewConstantIntBlock(v int32, positionCount int) IntBlock {
	return f.NewConstantIntVector(v, positionCount).AsBlock().(IntBlock)
}

// IntBlockBuilder builds IntBlocks.
type IntBlockBuilder struct {
	*blockBuilder[int32]
}

// NewIntBlockBuilder returns a builder sized for about estimatedSize values.
func (f *BlockFactory) NewIntBlockBuilder(estimatedSize int) *IntBlockBuilder {
	return &IntBlockBuilder{newBlockBuilder(f, intOps, estimatedSize)}
}

// AppendInt appends a value. Outside of a position entry the value is a
// position of its own.
func (b *IntBlockBuilder) AppendInt(v int32) error {
	return b.appendValue(v)
}

func (b *IntBlockBuilder) Build() (IntBlock, error) {
	blk, err := b.BuildBlock()
	if err != nil {
		return nil, err
	}
	return blk.(IntBlock), nil
}

// IntVectorBuilder builds IntVectors.
type IntVectorBuilder struct {
	*vectorBuilder[int32]
}

func (f *BlockFactory) NewIntVectorBuilder(estimatedSize int) *IntVectorBuilder {
	return &IntVectorBuilder{newVectorBuilder(f, intOps, estimatedSize, false)}
}

// NewIntVectorFixedBuilder returns a builder taking exactly size values.
func (f *BlockFactory) NewIntVectorFixedBuilder(size int) *IntVectorBuilder {
	return &IntVectorBuilder{newVectorBuilder(f, intOps, size, true)}
}

func (b *IntVectorBuilder) AppendInt(v int32) error {
	return b.appendValue(v)
}

func (b *IntVectorBuilder) Build() (IntVector, error) {
	vec, err := b.build()
	if err != nil {
		return nil, err
	}
	return vec.(IntVector), nil
}
