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
	"unsafe"

	"github.com/matrixorigin/moblock/pkg/common/bitmap"
	"github.com/matrixorigin/moblock/pkg/container/bigarray"
	"github.com/matrixorigin/moblock/pkg/container/types"
)

// ColumnStorage is the flat value array behind a block or a vector. Plain
// storage is owned Go memory; accounted storage comes from a BlockFactory
// and must be released exactly once. Both read the same way.
type ColumnStorage[T any] interface {
	Get(i int) T
	Len() int
	RamBytesUsed() int64
	// Accounted reports whether the memory is reserved against a breaker.
	Accounted() bool
	Release()
}

var (
	_ ColumnStorage[int64]  = arrayStorage[int64](nil)
	_ ColumnStorage[bool]   = new(bitStorage)
	_ ColumnStorage[[]byte] = new(bytesArrayStorage)
	_ ColumnStorage[int64]  = new(constStorage[int64])
	_ ColumnStorage[int64]  = new(bigFixedStorage[int64])
	_ ColumnStorage[bool]   = new(bigBitStorage)
	_ ColumnStorage[[]byte] = new(bigBytesStorage)
)

func sizeOf[T any]() int64 {
	var v T
	return int64(unsafe.Sizeof(v))
}

type arrayStorage[T types.Number] []T

func (s arrayStorage[T]) Get(i int) T         { return s[i] }
func (s arrayStorage[T]) Len() int            { return len(s) }
func (s arrayStorage[T]) RamBytesUsed() int64 { return int64(cap(s)) * sizeOf[T]() }
func (s arrayStorage[T]) Accounted() bool     { return false }
func (s arrayStorage[T]) Release()            {}

type bitStorage struct {
	bm *bitmap.Bitmap
}

func (s *bitStorage) Get(i int) bool      { return s.bm.Contains(uint64(i)) }
func (s *bitStorage) Len() int            { return int(s.bm.Len()) }
func (s *bitStorage) RamBytesUsed() int64 { return int64(s.bm.Size()) }
func (s *bitStorage) Accounted() bool     { return false }
func (s *bitStorage) Release()            {}

// bytesArrayStorage keeps every value back to back in data, value i being
// data[offsets[i]:offsets[i+1]].
type bytesArrayStorage struct {
	data    []byte
	offsets []int32
}

func (s *bytesArrayStorage) Get(i int) []byte {
	return s.data[s.offsets[i]:s.offsets[i+1]]
}

func (s *bytesArrayStorage) Len() int {
	return len(s.offsets) - 1
}

func (s *bytesArrayStorage) RamBytesUsed() int64 {
	return int64(cap(s.data)) + int64(cap(s.offsets))*4
}

func (s *bytesArrayStorage) Accounted() bool { return false }
func (s *bytesArrayStorage) Release()        {}

// constStorage repeats one value n times.
type constStorage[T any] struct {
	v T
	n int
}

func (s *constStorage[T]) Get(int) T { return s.v }
func (s *constStorage[T]) Len() int  { return s.n }

func (s *constStorage[T]) RamBytesUsed() int64 {
	if bs, ok := any(s.v).([]byte); ok {
		return int64(cap(bs)) + 16
	}
	return sizeOf[T]() + 8
}

func (s *constStorage[T]) Accounted() bool { return false }
func (s *constStorage[T]) Release()        {}

type bigFixedStorage[T types.Number] struct {
	factory *BlockFactory
	arr     *bigarray.FixedArray[T]
}

func (s *bigFixedStorage[T]) Get(i int) T         { return s.arr.Get(int64(i)) }
func (s *bigFixedStorage[T]) Len() int            { return int(s.arr.Len()) }
func (s *bigFixedStorage[T]) RamBytesUsed() int64 { return s.arr.RamBytesUsed() }
func (s *bigFixedStorage[T]) Accounted() bool     { return true }
func (s *bigFixedStorage[T]) Release()            { s.factory.Release(s.arr) }

type bigBitStorage struct {
	factory *BlockFactory
	arr     *bigarray.BitArray
}

func (s *bigBitStorage) Get(i int) bool      { return s.arr.Get(int64(i)) }
func (s *bigBitStorage) Len() int            { return int(s.arr.Len()) }
func (s *bigBitStorage) RamBytesUsed() int64 { return s.arr.RamBytesUsed() }
func (s *bigBitStorage) Accounted() bool     { return true }
func (s *bigBitStorage) Release()            { s.factory.Release(s.arr) }

type bigBytesStorage struct {
	factory *BlockFactory
	arr     *bigarray.BytesRefArray
}

func (s *bigBytesStorage) Get(i int) []byte    { return s.arr.Bytes(int64(i)) }
func (s *bigBytesStorage) Len() int            { return int(s.arr.Len()) }
func (s *bigBytesStorage) RamBytesUsed() int64 { return s.arr.RamBytesUsed() }
func (s *bigBytesStorage) Accounted() bool     { return true }
func (s *bigBytesStorage) Release()            { s.factory.Release(s.arr) }
