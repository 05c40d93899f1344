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
	"unsafe"

	"github.com/matrixorigin/moblock/pkg/container/types"
)

// FixedArray is a big array of a fixed size numeric type.
type FixedArray[T types.Number] struct {
	arena    *Arena
	buf      []byte
	data     []T
	size     int64
	released bool
}

type IntArray = FixedArray[int32]
type LongArray = FixedArray[int64]
type DoubleArray = FixedArray[float64]

var _ Array = new(FixedArray[int64])

func sizeOf[T any]() int {
	var v T
	return int(unsafe.Sizeof(v))
}

// NewFixedArray allocates size zeroed elements.
func NewFixedArray[T types.Number](arena *Arena, size int64) (*FixedArray[T], error) {
	buf, err := arena.alloc(int(size) * sizeOf[T]())
	if err != nil {
		return nil, err
	}
	return &FixedArray[T]{
		arena: arena,
		buf:   buf,
		data:  types.DecodeSlice[T](buf),
		size:  size,
	}, nil
}

func NewIntArray(arena *Arena, size int64) (*IntArray, error) {
	return NewFixedArray[int32](arena, size)
}

func NewLongArray(arena *Arena, size int64) (*LongArray, error) {
	return NewFixedArray[int64](arena, size)
}

func NewDoubleArray(arena *Arena, size int64) (*DoubleArray, error) {
	return NewFixedArray[float64](arena, size)
}

func (a *FixedArray[T]) Get(i int64) T {
	return a.data[i]
}

func (a *FixedArray[T]) Set(i int64, v T) {
	a.data[i] = v
}

func (a *FixedArray[T]) Len() int64 {
	return a.size
}

// Resize changes the length to size, growing the allocation when needed.
// New elements are zero.
func (a *FixedArray[T]) Resize(size int64) error {
	if size <= int64(len(a.data)) {
		if size > a.size {
			clear(a.data[a.size:size])
		}
		a.size = size
		return nil
	}
	buf, err := a.arena.realloc(a.buf, int(Oversize(size))*sizeOf[T]())
	if err != nil {
		return err
	}
	a.buf = buf
	a.data = types.DecodeSlice[T](buf)
	clear(a.data[a.size:])
	a.size = size
	return nil
}

// Slice returns the first Len elements without copying.
func (a *FixedArray[T]) Slice() []T {
	return a.data[:a.size]
}

func (a *FixedArray[T]) RamBytesUsed() int64 {
	return int64(cap(a.buf))
}

func (a *FixedArray[T]) Release() {
	if a.released {
		a.arena.doubleRelease("fixed array")
		return
	}
	a.released = true
	a.arena.free(a.buf)
	a.buf, a.data = nil, nil
}
