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

package types

import "bytes"

// BytesRef points at a range of a byte buffer. Readers pass one in as
// scratch and get it back filled in, so that the hot path allocates
// nothing.
type BytesRef struct {
	Bytes  []byte
	Offset int
	Length int
}

func NewBytesRef(v []byte) *BytesRef {
	return &BytesRef{Bytes: v, Length: len(v)}
}

// Value returns the referenced bytes without copying.
func (r *BytesRef) Value() []byte {
	return r.Bytes[r.Offset : r.Offset+r.Length]
}

func (r *BytesRef) String() string {
	return string(r.Value())
}

func (r *BytesRef) Compare(o *BytesRef) int {
	return bytes.Compare(r.Value(), o.Value())
}

func (r *BytesRef) Equal(o *BytesRef) bool {
	return bytes.Equal(r.Value(), o.Value())
}

// Clone returns a BytesRef owning a copy of the referenced bytes.
func (r *BytesRef) Clone() *BytesRef {
	return NewBytesRef(append([]byte(nil), r.Value()...))
}
