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

	"github.com/matrixorigin/moblock/pkg/common/bitmap"
	"github.com/matrixorigin/moblock/pkg/common/moerr"
	"github.com/matrixorigin/moblock/pkg/container/bigarray"
	"github.com/matrixorigin/moblock/pkg/container/nulls"
	"github.com/matrixorigin/moblock/pkg/container/types"
)

// BooleanBlock is a block of bool values, stored bit-packed.
type BooleanBlock interface {
	Block
	// GetBoolean returns the value at flat value index i.
	GetBoolean(i int) bool
}

// BooleanVector is a vector of bool values.
type BooleanVector interface {
	Vector
	// GetBoolean returns the value of position p.
	GetBoolean(p int) bool
}

type booleanBlock struct {
	*valueBlock[bool]
}

func (b *booleanBlock) GetBoolean(i int) bool {
	return b.values.Get(i)
}

type booleanVector struct {
	*valueVector[bool]
}

func (v *booleanVector) GetBoolean(p int) bool {
	return v.values.Get(p)
}

var booleanOps = &typeOps[bool]{
	typ:         types.T_bool,
	name:        "Boolean",
	newAppender: newBoolAppender,
	wrapBlock: func(b *valueBlock[bool]) Block {
		return &booleanBlock{b}
	},
	wrapVector: func(v *valueVector[bool]) Vector {
		return &booleanVector{v}
	},
	reader: func(b Block) func(int) bool {
		if tb, ok := b.(BooleanBlock); ok {
			return tb.GetBoolean
		}
		return nil
	},
	less:  func(a, b bool) bool { return !a && b },
	equal: func(a, b bool) bool { return a == b },
	hash: func(d *xxhash.Digest, v bool) {
		if v {
			_, _ = d.Write([]byte{1})
		} else {
			_, _ = d.Write([]byte{0})
		}
	},
	format: strconv.FormatBool,
}

func packBools(values []bool) *bitStorage {
	bm := bitmap.New(int64(len(values)))
	for i, v := range values {
		if v {
			bm.Add(uint64(i))
		}
	}
	return &bitStorage{bm: bm}
}

// NewBooleanArrayBlock packs values into a block. A nil firstValueIndexes
// makes a single valued block.
func (f *BlockFactory) NewBooleanArrayBlock(values []bool, positionCount int, firstValueIndexes []int32, nsp *nulls.Nulls, ordering MvOrdering) (BooleanBlock, error) {
	blk, err := newValueBlock[bool](f, booleanOps, packBools(values), positionCount, firstValueIndexes, nsp, ordering)
	if err != nil {
		return nil, err
	}
	return &booleanBlock{blk}, nil
}

// NewBooleanBigArrayBlock wraps accounted values in a block, which takes
// them over on success.
func (f *BlockFactory) NewBooleanBigArrayBlock(values *bigarray.BitArray, positionCount int, firstValueIndexes []int32, nsp *nulls.Nulls, ordering MvOrdering) (BooleanBlock, error) {
	if values == nil {
		return nil, moerr.NewInvalidArg(context.TODO(), "values", nil)
	}
	blk, err := newValueBlock[bool](f, booleanOps, &bigBitStorage{factory: f, arr: values}, positionCount, firstValueIndexes, nsp, ordering)
	if err != nil {
		return nil, err
	}
	return &booleanBlock{blk}, nil
}

func (f *BlockFactory) NewBooleanArrayVector(values []bool, positionCount int) (BooleanVector, error) {
	vec, err := newValueVector[bool](f, booleanOps, packBools(values), positionCount)
	if err != nil {
		return nil, err
	}
	return &booleanVector{vec}, nil
}

func (f *BlockFactory) NewBooleanBigArrayVector(values *bigarray.BitArray, positionCount int) (BooleanVector, error) {
	if values == nil {
		return nil, moerr.NewInvalidArg(context.TODO(), "values", nil)
	}
	vec, err := newValueVector[bool](f, booleanOps, &bigBitStorage{factory: f, arr: values}, positionCount)
	if err != nil {
		return nil, err
	}
	return &booleanVector{vec}, nil
}

func (f *BlockFactory) NewConstantBooleanVector(v bool, positionCount int) BooleanVector {
	return &booleanVector{&valueVector[bool]{
		ops:           booleanOps,
		factory:       f,
		positionCount: positionCount,
		values:        &constStorage[bool]{v: v, n: positionCount},
	}}
}

func (f *BlockFactory) NewConstantBooleanBlock(v bool, positionCount int) BooleanBlock {
	return f.NewConstantBooleanVector(v, positionCount).AsBlock().(BooleanBlock)
}

// BooleanBlockBuilder builds BooleanBlocks.
type BooleanBlockBuilder struct {
	*blockBuilder[bool]
}

func (f *BlockFactory) NewBooleanBlockBuilder(estimatedSize int) *BooleanBlockBuilder {
	return &BooleanBlockBuilder{newBlockBuilder(f, booleanOps, estimatedSize)}
}

func (b *BooleanBlockBuilder) AppendBoolean(v bool) error {
	return b.appendValue(v)
}

func (b *BooleanBlockBuilder) Build() (BooleanBlock, error) {
	blk, err := b.BuildBlock()
	if err != nil {
		return nil, err
	}
	return blk.(BooleanBlock), nil
}

// BooleanVectorBuilder builds BooleanVectors.
type BooleanVectorBuilder struct {
	*vectorBuilder[bool]
}

func (f *BlockFactory) NewBooleanVectorBuilder(estimatedSize int) *BooleanVectorBuilder {
	return &BooleanVectorBuilder{newVectorBuilder(f, booleanOps, estimatedSize, false)}
}

func (f *BlockFactory) NewBooleanVectorFixedBuilder(size int) *BooleanVectorBuilder {
	return &BooleanVectorBuilder{newVectorBuilder(f, booleanOps, size, true)}
}

func (b *BooleanVectorBuilder) AppendBoolean(v bool) error {
	return b.appendValue(v)
}

func (b *BooleanVectorBuilder) Build() (BooleanVector, error) {
	vec, err := b.build()
	if err != nil {
		return nil, err
	}
	return vec.(BooleanVector), nil
}
