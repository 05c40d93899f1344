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

// Package bitmap is a fixed length, bit-packed set of positions. It backs
// plain boolean storage where a roaring bitmap would waste space on dense
// data.
package bitmap

import (
	"fmt"
)

// Bitmap holds len bits packed in words. The trailing bits of the last word
// past len are always zero.
type Bitmap struct {
	len  int64
	data []uint64
}

// WordsFor returns how many words hold n bits.
func WordsFor(n int64) int64 {
	return (n + 63) / 64
}

func New(n int64) *Bitmap {
	return &Bitmap{
		len:  n,
		data: make([]uint64, WordsFor(n)),
	}
}

// NewFromWords wraps words without copying. words must hold at least n bits.
func NewFromWords(words []uint64, n int64) *Bitmap {
	if int64(len(words)) < WordsFor(n) {
		panic(fmt.Sprintf("bitmap: %d words cannot hold %d bits", len(words), n))
	}
	return &Bitmap{len: n, data: words}
}

func (n *Bitmap) Len() int64 {
	return n.len
}

// Size is the number of bytes of the packed words.
func (n *Bitmap) Size() int {
	return int(WordsFor(n.len)) * 8
}

// Words exposes the packed words.
func (n *Bitmap) Words() []uint64 {
	return n.data[:WordsFor(n.len)]
}

func (n *Bitmap) Add(row uint64) {
	n.data[row>>6] |= 1 << (row & 63)
}

func (n *Bitmap) Remove(row uint64) {
	n.data[row>>6] &^= 1 << (row & 63)
}

func (n *Bitmap) Set(row uint64, v bool) {
	if v {
		n.Add(row)
	} else {
		n.Remove(row)
	}
}

func (n *Bitmap) Contains(row uint64) bool {
	if row >= uint64(n.len) {
		return false
	}
	return n.data[row>>6]&(1<<(row&63)) != 0
}
