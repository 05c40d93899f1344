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
	"github.com/matrixorigin/moblock/pkg/container/types"
)

// BytesRefArray is an append-only big array of byte strings: one buffer
// holding every value back to back plus the start offset of each value.
type BytesRefArray struct {
	arena    *Arena
	bytes    []byte
	used     int64
	offsets  *LongArray
	released bool
}

var _ Array = new(BytesRefArray)

// NewBytesRefArray creates an empty array with room for capacity values
// of about avgSize bytes.
func NewBytesRefArray(arena *Arena, capacity, avgSize int64) (*BytesRefArray, error) {
	offsets, err := NewLongArray(arena, capacity+1)
	if err != nil {
		return nil, err
	}
	bytes, err := arena.alloc(int(capacity * avgSize))
	if err != nil {
		offsets.Release()
		return nil, err
	}
	// offsets[0] == 0 and the length tracks the value count + 1
	if err = offsets.Resize(1); err != nil {
		offsets.Release()
		arena.free(bytes)
		return nil, err
	}
	return &BytesRefArray{
		arena:   arena,
		bytes:   bytes,
		offsets: offsets,
	}, nil
}

// Append adds v as the last value.
func (a *BytesRefArray) Append(v []byte) error {
	need := a.used + int64(len(v))
	if need > int64(len(a.bytes)) {
		bs, err := a.arena.realloc(a.bytes, int(Oversize(need)))
		if err != nil {
			return err
		}
		a.bytes = bs
	}
	copy(a.bytes[a.used:], v)
	a.used = need
	n := a.offsets.Len()
	if err := a.offsets.Resize(n + 1); err != nil {
		a.used -= int64(len(v))
		return err
	}
	a.offsets.Set(n, need)
	return nil
}

// Get fills scratch with the i-th value and returns it.
func (a *BytesRefArray) Get(i int64, scratch *types.BytesRef) *types.BytesRef {
	start := a.offsets.Get(i)
	scratch.Bytes = a.bytes
	scratch.Offset = int(start)
	scratch.Length = int(a.offsets.Get(i+1) - start)
	return scratch
}

// Bytes returns the i-th value without copying.
func (a *BytesRefArray) Bytes(i int64) []byte {
	return a.bytes[a.offsets.Get(i):a.offsets.Get(i+1)]
}

func (a *BytesRefArray) Len() int64 {
	return a.offsets.Len() - 1
}

// ByteLen returns the total length of the values.
func (a *BytesRefArray) ByteLen() int64 {
	return a.used
}

func (a *BytesRefArray) RamBytesUsed() int64 {
	if a.released {
		return 0
	}
	return int64(cap(a.bytes)) + a.offsets.RamBytesUsed()
}

func (a *BytesRefArray) Release() {
	if a.released {
		a.arena.doubleRelease("bytes ref array")
		return
	}
	a.released = true
	a.arena.free(a.bytes)
	a.offsets.Release()
	a.bytes = nil
}
