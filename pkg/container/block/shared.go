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
	"sync/atomic"

	"github.com/matrixorigin/moblock/pkg/common/moerr"
)

// SharedBlock hands one block to several owners. The block is released
// when the last owner calls DecRef.
type SharedBlock struct {
	blk  Block
	refs atomic.Int32
}

// Share wraps b with one reference held by the caller.
func Share(b Block) *SharedBlock {
	s := &SharedBlock{blk: b}
	s.refs.Store(1)
	return s
}

// IncRef adds an owner. It panics once the block has been released.
func (s *SharedBlock) IncRef() {
	for {
		n := s.refs.Load()
		if n <= 0 {
			panic(moerr.NewInvalidStateNoCtx("IncRef on a released block"))
		}
		if s.refs.CompareAndSwap(n, n+1) {
			return
		}
	}
}

// DecRef drops an owner and reports whether it was the last one, in which
// case the block is released.
func (s *SharedBlock) DecRef() bool {
	n := s.refs.Add(-1)
	switch {
	case n == 0:
		s.blk.Release()
		return true
	case n < 0:
		panic(moerr.NewInvalidStateNoCtx("DecRef on a released block"))
	}
	return false
}

// RefCount returns the number of owners.
func (s *SharedBlock) RefCount() int32 {
	return s.refs.Load()
}

// Block returns the shared block. It must not be released directly.
func (s *SharedBlock) Block() Block {
	return s.blk
}
