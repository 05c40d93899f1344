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
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/matrixorigin/moblock/pkg/common/moerr"
	"github.com/matrixorigin/moblock/pkg/container/bigarray"
	"github.com/matrixorigin/moblock/pkg/container/nulls"
	"github.com/matrixorigin/moblock/pkg/container/types"
)

// BytesRefBlock is a block of variable length byte strings.
type BytesRefBlock interface {
	Block
	// GetBytesRef points scratch at the value of flat value index i and
	// returns it. The bytes are shared with the block, not copied.
	GetBytesRef(i int, scratch *types.BytesRef) *types.BytesRef
}

// BytesRefVector is a vector of variable length byte strings.
type BytesRefVector interface {
	Vector
	// GetBytesRef points scratch at the value of position p and returns it.
	GetBytesRef(p int, scratch *types.BytesRef) *types.BytesRef
}

func fillBytesRef(v []byte, scratch *types.BytesRef) *types.BytesRef {
	scratch.Bytes = v
	scratch.Offset = 0
	scratch.Length = len(v)
	return scratch
}

type bytesRefBlock struct {
	*valueBlock[[]byte]
}

func (b *bytesRefBlock) GetBytesRef(i int, scratch *types.BytesRef) *types.BytesRef {
	return fillBytesRef(b.values.Get(i), scratch)
}

type bytesRefVector struct {
	*valueVector[[]byte]
}

func (v *bytesRefVector) GetBytesRef(p int, scratch *types.BytesRef) *types.BytesRef {
	return fillBytesRef(v.values.Get(p), scratch)
}

var bytesRefOps = &typeOps[[]byte]{
	typ:         types.T_bytes,
	name:        "BytesRef",
	newAppender: newBytesAppender,
	wrapBlock: func(b *valueBlock[[]byte]) Block {
		return &bytesRefBlock{b}
	},
	wrapVector: func(v *valueVector[[]byte]) Vector {
		return &bytesRefVector{v}
	},
	reader: func(b Block) func(int) []byte {
		tb, ok := b.(BytesRefBlock)
		if !ok {
			return nil
		}
		var scratch types.BytesRef
		return func(i int) []byte {
			return tb.GetBytesRef(i, &scratch).Value()
		}
	},
	less:  func(a, b []byte) bool { return bytes.Compare(a, b) < 0 },
	equal: bytes.Equal,
	hash: func(d *xxhash.Digest, v []byte) {
		n := int32(len(v))
		_, _ = d.Write(types.EncodeFixed(n))
		_, _ = d.Write(v)
	},
	format: func(v []byte) string {
		return strconv.Quote(string(v))
	},
}

func checkOffsets(data []byte, offsets []int32) error {
	if len(offsets) == 0 || offsets[0] != 0 {
		return moerr.NewInvalidArg(context.TODO(), "offsets", "must start with 0")
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return moerr.NewInvalidArg(context.TODO(), "offsets", fmt.Sprintf("decreasing at %d", i))
		}
	}
	if int(offsets[len(offsets)-1]) > len(data) {
		return moerr.NewInvalidArg(context.TODO(), "offsets",
			fmt.Sprintf("end %d beyond %d bytes", offsets[len(offsets)-1], len(data)))
	}
	return nil
}

// NewBytesRefArrayBlock wraps values in a block without copying: value i
// is data[offsets[i]:offsets[i+1]]. A nil firstValueIndexes makes a single
// valued block.
func (f *BlockFactory) NewBytesRefArrayBlock(data []byte, offsets []int32, positionCount int, firstValueIndexes []int32, nsp *nulls.Nulls, ordering MvOrdering) (BytesRefBlock, error) {
	if err := checkOffsets(data, offsets); err != nil {
		return nil, err
	}
	blk, err := newValueBlock[[]byte](f, bytesRefOps, &bytesArrayStorage{data: data, offsets: offsets}, positionCount, firstValueIndexes, nsp, ordering)
	if err != nil {
		return nil, err
	}
	return &bytesRefBlock{blk}, nil
}

// NewBytesRefBigArrayBlock wraps accounted values in a block, which takes
// them over on success.
func (f *BlockFactory) NewBytesRefBigArrayBlock(values *bigarray.BytesRefArray, positionCount int, firstValueIndexes []int32, nsp *nulls.Nulls, ordering MvOrdering) (BytesRefBlock, error) {
	if values == nil {
		return nil, moerr.NewInvalidArg(context.TODO(), "values", nil)
	}
	blk, err := newValueBlock[[]byte](f, bytesRefOps, &bigBytesStorage{factory: f, arr: values}, positionCount, firstValueIndexes, nsp, ordering)
	if err != nil {
		return nil, err
	}
	return &bytesRefBlock{blk}, nil
}

func (f *BlockFactory) NewBytesRefArrayVector(data []byte, offsets []int32, positionCount int) (BytesRefVector, error) {
	if err := checkOffsets(data, offsets); err != nil {
		return nil, err
	}
	vec, err := newValueVector[[]byte](f, bytesRefOps, &bytesArrayStorage{data: data, offsets: offsets}, positionCount)
	if err != nil {
		return nil, err
	}
	return &bytesRefVector{vec}, nil
}

func (f *BlockFactory) NewBytesRefBigArrayVector(values *bigarray.BytesRefArray, positionCount int) (BytesRefVector, error) {
	if values == nil {
		return nil, moerr.NewInvalidArg(context.TODO(), "values", nil)
	}
	vec, err := newValueVector[[]byte](f, bytesRefOps, &bigBytesStorage{factory: f, arr: values}, positionCount)
	if err != nil {
		return nil, err
	}
	return &bytesRefVector{vec}, nil
}

// NewConstantBytesRefVector returns a vector holding v at every position.
// v is not copied.
func (f *BlockFactory) NewConstantBytesRefVector(v []byte, positionCount int) BytesRefVector {
	return &bytesRefVector{&valueVector[[]byte]{
		ops:           bytesRefOps,
		factory:       f,
		positionCount: positionCount,
		values:        &constStorage[[]byte]{v: v, n: positionCount},
	}}
}

func (f *BlockFactory) NewConstantBytesRefBlock(v []byte, positionCount int) BytesRefBlock {
	return f.NewConstantBytesRefVector(v, positionCount).AsBlock().(BytesRefBlock)
}

// BytesRefBlockBuilder builds BytesRefBlocks. Appended values are copied.
type BytesRefBlockBuilder struct {
	*blockBuilder[[]byte]
}

func (f *BlockFactory) NewBytesRefBlockBuilder(estimatedSize int) *BytesRefBlockBuilder {
	return &BytesRefBlockBuilder{newBlockBuilder(f, bytesRefOps, estimatedSize)}
}

func (b *BytesRefBlockBuilder) AppendBytesRef(v *types.BytesRef) error {
	return b.appendValue(v.Value())
}

func (b *BytesRefBlockBuilder) AppendBytes(v []byte) error {
	return b.appendValue(v)
}

func (b *BytesRefBlockBuilder) Build() (BytesRefBlock, error) {
	blk, err := b.BuildBlock()
	if err != nil {
		return nil, err
	}
	return blk.(BytesRefBlock), nil
}

// BytesRefVectorBuilder builds BytesRefVectors.
type BytesRefVectorBuilder struct {
	*vectorBuilder[[]byte]
}

func (f *BlockFactory) NewBytesRefVectorBuilder(estimatedSize int) *BytesRefVectorBuilder {
	return &BytesRefVectorBuilder{newVectorBuilder(f, bytesRefOps, estimatedSize, false)}
}

func (f *BlockFactory) NewBytesRefVectorFixedBuilder(size int) *BytesRefVectorBuilder {
	return &BytesRefVectorBuilder{newVectorBuilder(f, bytesRefOps, size, true)}
}

func (b *BytesRefVectorBuilder) AppendBytesRef(v *types.BytesRef) error {
	return b.appendValue(v.Value())
}

func (b *BytesRefVectorBuilder) AppendBytes(v []byte) error {
	return b.appendValue(v)
}

func (b *BytesRefVectorBuilder) Build() (BytesRefVector, error) {
	vec, err := b.build()
	if err != nil {
		return nil, err
	}
	return vec.(BytesRefVector), nil
}
