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
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/matrixorigin/moblock/pkg/common/moerr"
	"github.com/matrixorigin/moblock/pkg/container/bigarray"
	"github.com/matrixorigin/moblock/pkg/container/nulls"
	"github.com/matrixorigin/moblock/pkg/container/types"
)

// DoubleBlock is a block of float64 values.
type DoubleBlock interface {
	Block
	// GetDouble returns the value at flat value index i.
	GetDouble(i int) float64
}

// DoubleVector is a vector of float64 values.
type DoubleVector interface {
	Vector
	// GetDouble returns the value of position p.
	GetDouble(p int) float64
}

type doubleBlock struct {
	*valueBlock[float64]
}

func (b *doubleBlock) GetDouble(i int) float64 {
	return b.values.Get(i)
}

type doubleVector struct {
	*valueVector[float64]
}

func (v *doubleVector) GetDouble(p int) float64 {
	return v.values.Get(p)
}

var doubleOps = &typeOps[float64]{
	typ:         types.T_float64,
	name:        "Double",
	newAppender: newNumAppender[float64],
	wrapBlock: func(b *valueBlock[float64]) Block {
		return &doubleBlock{b}
	},
	wrapVector: func(v *valueVector[float64]) Vector {
		return &doubleVector{v}
	},
	reader: func(b Block) func(int) float64 {
		if tb, ok := b.(DoubleBlock); ok {
			return tb.GetDouble
		}
		return nil
	},
	less:  func(a, b float64) bool { return a < b },
	equal: func(a, b float64) bool { return doubleBits(a) == doubleBits(b) },
	hash: func(d *xxhash.Digest, v float64) {
		_, _ = d.Write(types.EncodeFixed(doubleBits(v)))
	},
	format: func(v float64) string {
		return strconv.FormatFloat(v, 'g', -1, 64)
	},
}

// NewDoubleArrayBlock wraps values in a block without copying. A nil
// firstValueIndexes makes a single valued block.
func (f *BlockFactory) NewDoubleArrayBlock(values []float64, positionCount int, firstValueIndexes []int32, nsp *nulls.Nulls, ordering MvOrdering) (DoubleBlock, error) {
	blk, err := newValueBlock[float64](f, doubleOps, arrayStorage[float64](values), positionCount, firstValueIndexes, nsp, ordering)
	if err != nil {
		return nil, err
	}
	return &doubleBlock{blk}, nil
}

// NewDoubleBigArrayBlock wraps accounted values in a block, which takes them
// over on success.
func (f *BlockFactory) NewDoubleBigArrayBlock(values *bigarray.DoubleArray, positionCount int, firstValueIndexes []int32, nsp *nulls.Nulls, ordering MvOrdering) (DoubleBlock, error) {
	if values == nil {
		return nil, moerr.NewInvalidArg(context.TODO(), "values", nil)
	}
	blk, err := newValueBlock[float64](f, doubleOps, &bigFixedStorage[float64]{factory: f, arr: values}, positionCount, firstValueIndexes, nsp, ordering)
	if err != nil {
		return nil, err
	}
	return &doubleBlock{blk}, nil
}

// NewDoubleArrayVector wraps values in a vector without copying.
func (f *BlockFactory) NewDoubleArrayVector(values []float64, positionCount int) (DoubleVector, error) {
	vec, err := newValueVector[float64](f, doubleOps, arrayStorage[float64](values), positionCount)
	if err != nil {
		return nil, err
	}
	return &doubleVector{vec}, nil
}

// NewDoubleBigArrayVector wraps accounted values in a vector, which takes
// them over on success.
func (f *BlockFactory) NewDoubleBigArrayVector(values *bigarray.DoubleArray, positionCount int) (DoubleVector, error) {
	if values == nil {
		return nil, moerr.NewInvalidArg(context.TODO(), "values", nil)
	}
	vec, err := newValueVector[float64](f, doubleOps, &bigFixedStorage[float64]{factory: f, arr: values}, positionCount)
	if err != nil {
		return nil, err
	}
	return &doubleVector{vec}, nil
}

// NewConstantDoubleVector returns a vector holding v at every position.
func (f *BlockFactory) NewConstantDoubleVector(v float64, positionCount int) DoubleVector {
	return &doubleVector{&valueVector[float64]{
		ops:           doubleOps,
		factory:       f,
		positionCount: positionCount,
		values:        &constStorage[float64]{v: v, n: positionCount},
	}}
}

// NewConstantDoubleBlock returns a single valued block holding v at every
// position.
func (f *BlockFactory) NewConstantDoubleBlock(v float64, positionCount int) DoubleBlock {
	return f.NewConstantDoubleVector(v, positionCount).AsBlock().(DoubleBlock)
}

// DoubleBlockBuilder builds DoubleBlocks.
type DoubleBlockBuilder struct {
	*blockBuilder[float64]
}

// NewDoubleBlockBuilder returns a builder sized for about estimatedSize values.
func (f *BlockFactory) NewDoubleBlockBuilder(estimatedSize int) *DoubleBlockBuilder {
	return &DoubleBlockBuilder{newBlockBuilder(f, doubleOps, estimatedSize)}
}

// AppendDouble appends a value. Outside of a position entry the value is a
// position of its own.
func (b *DoubleBlockBuilder) AppendDouble(v float64) error {
	return b.appendValue(v)
}

func (b *DoubleBlockBuilder) Build() (DoubleBlock, error) {
	blk, err := b.BuildBlock()
	if err != nil {
		return nil, err
	}
	return blk.(DoubleBlock), nil
}

// DoubleVectorBuilder builds DoubleVectors.
type DoubleVectorBuilder struct {
	*vectorBuilder[float64]
}

func (f *BlockFactory) NewDoubleVectorBuilder(estimatedSize int) *DoubleVectorBuilder {
	return &DoubleVectorBuilder{newVectorBuilder(f, doubleOps, estimatedSize, false)}
}

// NewDoubleVectorFixedBuilder returns a builder taking exactly size values.
func (f *BlockFactory) NewDoubleVectorFixedBuilder(size int) *DoubleVectorBuilder {
	return &DoubleVectorBuilder{newVectorBuilder(f, doubleOps, size, true)}
}

func (b *DoubleVectorBuilder) AppendDouble(v float64) error {
	return b.appendValue(v)
}

func (b *DoubleVectorBuilder) Build() (DoubleVector, error) {
	vec, err := b.build()
	if err != nil {
		return nil, err
	}
	return vec.(DoubleVector), nil
}

const canonicalNaN = 0x7ff8000000000000

// doubleBits makes -0 and 0 equal and every NaN equal to every other.
func doubleBits(v float64) uint64 {
	switch {
	case v == 0:
		return 0
	case math.IsNaN(v):
		return canonicalNaN
	}
	return math.Float64bits(v)
}
