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

// LongBlock is a block of int64 values.
type LongBlock interface {
	Block
	// GetLong returns the value at flat value index i.
	GetLong(i int) int64
}

// LongVector is a vector of int64 values.
type LongVector interface {
	Vector
	// GetLong returns the value of position p.
	GetLong(p int) int64
}

type longBlock struct {
	*valueBlock[int64]
}

func (b *longBlock) GetLong(i int) int64 {
	return b.values.Get(i)
}

type longVector struct {
	*valueVector[int64]
}

func (v *longVector) GetLong(p int) int64 {
	return v.values.Get(p)
}

var longOps = &typeOps[int64]{
	typ:         types.T_int64,
	name:        "Long",
	newAppender: newNumAppender[int64],
	wrapBlock: func(b *valueBlock[int64]) Block {
		return &longBlock{b}
	},
	wrapVector: func(v *valueVector[int64]) Vector {
		return &longVector{v}
	},
	reader: func(b Block) func(int) int64 {
		if tb, ok := b.(LongBlock); ok {
			return tb.GetLong
		}
		return nil
	},
	less:  func(a, b int64) bool { return a < b },
	equal: func(a, b int64) bool { return a == b },
	hash: func(d *xxhash.Digest, v int64) {
		_, _ = d.Write(types.EncodeFixed(v))
	},
	format: func(v int64) string {
		return strconv.FormatInt(v, 10)
	},
}

// NewLongArrayBlock wraps values in a block without copying. A nil
// firstValueIndexes makes a single valued block.
func (f *BlockFactory) NewLongArrayBlock(values []int64, positionCount int, firstValueIndexes []int32, nsp *nulls.Nulls, ordering MvOrdering) (LongBlock, error) {
	blk, err := newValueBlock[int64](f, longOps, arrayStorage[int64](values), positionCount, firstValueIndexes, nsp, ordering)
	if err != nil {
		return nil, err
	}
	return &longBlock{blk}, nil
}

// NewLongBigArrayBlock wraps accounted values in a block, which takes them
// over on success.
func (f *BlockFactory) NewLongBigArrayBlock(values *bigarray.LongArray, positionCount int, firstValueIndexes []int32, nsp *nulls.Nulls, ordering MvOrdering) (LongBlock, error) {
	if values == nil {
		return nil, moerr.NewInvalidArg(context.TODO(), "values", nil)
	}
	blk, err := newValueBlock[int64](f, longOps, &bigFixedStorage[int64]{factory: f, arr: values}, positionCount, firstValueIndexes, nsp, ordering)
	if err != nil {
		return nil, err
	}
	return &longBlock{blk}, nil
}

// NewLongArrayVector wraps values in a vector without copying.
func (f *BlockFactory) NewLongArrayVector(values []int64, positionCount int) (LongVector, error) {
	vec, err := newValueVector[int64](f, longOps, arrayStorage[int64](values), positionCount)
	if err != nil {
		return nil, err
	}
	return &longVector{vec}, nil
}

// NewLongBigArrayVector wraps accounted values in a vector, which takes
// them over on success.
func (f *BlockFactory) NewLongBigArrayVector(values *bigarray.LongArray, positionCount int) (LongVector, error) {
	if values == nil {
		return nil, moerr.NewInvalidArg(context.TODO(), "values", nil)
	}
	vec, err := newValueVector[int64](f, longOps, &bigFixedStorage[int64]{factory: f, arr: values}, positionCount)
	if err != nil {
		return nil, err
	}
	return &longVector{vec}, nil
}

// NewConstantLongVector returns a vector holding v at every position.
func (f *BlockFactory) NewConstantLongVector(v int64, positionCount int) LongVector {
	return &longVector{&valueVector[int64]{
		ops:           longOps,
		factory:       f,
		positionCount: positionCount,
		values:        &constStorage[int64]{v: v, n: positionCount},
	}}
}

// NewConstantLongBlock returns a single valued block holding v at every
// position.
func (f *BlockFactory) NewConstantLongBlock(v int64, positionCount int) LongBlock {
	return f.NewConstantLongVector(v, positionCount).AsBlock().(LongBlock)
}

// LongBlockBuilder builds LongBlocks.
type LongBlockBuilder struct {
	*blockBuilder[int64]
}

// NewLongBlockBuilder returns a builder sized for about estimatedSize values.
func (f *BlockFactory) NewLongBlockBuilder(estimatedSize int) *LongBlockBuilder {
	return &LongBlockBuilder{newBlockBuilder(f, longOps, estimatedSize)}
}

// AppendLong appends a value. Outside of a position entry the value is a
// position of its own.
func (b *LongBlockBuilder) AppendLong(v int64) error {
	return b.appendValue(v)
}

func (b *LongBlockBuilder) Build() (LongBlock, error) {
	blk, err := b.BuildBlock()
	if err != nil {
		return nil, err
	}
	return blk.(LongBlock), nil
}

// LongVectorBuilder builds LongVectors.
type LongVectorBuilder struct {
	*vectorBuilder[int64]
}

func (f *BlockFactory) NewLongVectorBuilder(estimatedSize int) *LongVectorBuilder {
	return &LongVectorBuilder{newVectorBuilder(f, longOps, estimatedSize, false)}
}

// NewLongVectorFixedBuilder returns a builder taking exactly size values.
func (f *BlockFactory) NewLongVectorFixedBuilder(size int) *LongVectorBuilder {
	return &LongVectorBuilder{newVectorBuilder(f, longOps, size, true)}
}

func (b *LongVectorBuilder) AppendLong(v int64) error {
	return b.appendValue(v)
}

func (b *LongVectorBuilder) Build() (LongVector, error) {
	vec, err := b.build()
	if err != nil {
		return nil, err
	}
	return vec.(LongVector), nil
}
