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

package bigarray

import (
	"github.com/matrixorigin/moblock/pkg/common/bitmap"
	"github.com/matrixorigin/moblock/pkg/container/types"
)

// BitArray is a bit-packed big array of booleans.
type BitArray struct {
	arena    *Arena
	buf      []byte
	bits     *bitmap.Bitmap
	released bool
}

var _ Array = new(BitArray)

func NewBitArray(arena *Arena, size int64) (*BitArray, error) {
	buf, err := arena.alloc(int(bitmap.WordsFor(size)) * 8)
	if err != nil {
		return nil, err
	}
	return &BitArray{
		arena: arena,
		buf:   buf,
		bits:  bitmap.NewFromWords(types.DecodeSlice[uint64](buf), size),
	}, nil
}

func (a *BitArray) Get(i int64) bool {
	return a.bits.Contains(uint64(i))
}

func (a *BitArray) Set(i int64, v bool) {
	a.bits.Set(uint64(i), v)
}

func (a *BitArray) Len() int64 {
	return a.bits.Len()
}

// Resize changes the length to size. New bits are unset.
func (a *BitArray) Resize(size int64) error {
	old := a.bits.Len()
	words := bitmap.WordsFor(size)
	if words*8 > int64(len(a.buf)) {
		buf, err := a.arena.realloc(a.buf, int(bitmap.WordsFor(Oversize(size)))*8)
		if err != nil {
			return err
		}
		a.buf = buf
	}
	a.bits = bitmap.NewFromWords(types.DecodeSlice[uint64](a.buf), size)
	for i := size; i < old; i++ {
		a.bits.Remove(uint64(i))
	}
	return nil
}

// Bitmap exposes the packed bits without copying.
func (a *BitArray) Bitmap() *bitmap.Bitmap {
	return a.bits
}

func (a *BitArray) RamBytesUsed() int64 {
	return int64(cap(a.buf))
}

func (a *BitArray) Release() {
	if a.released {
		a.arena.doubleRelease("bit array")
		return
	}
	a.released = true
	a.arena.free(a.buf)
	a.buf, a.bits = nil, nil
}
