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

package malloc

const (
	B = 1 << (10 * iota)
	KB
	MB
	GB
)

// Hints tune a single allocation or deallocation.
type Hints uint64

const (
	// NoClear skips zeroing of the returned memory.
	NoClear Hints = 1 << iota

	NoHints Hints = 0
)

// Allocator returns memory of exactly size bytes together with the
// Deallocator that must be called once the memory is no longer used.
type Allocator interface {
	Allocate(size uint64, hints Hints) ([]byte, Deallocator, error)
}

type Deallocator interface {
	Deallocate(hints Hints)
}

// DeallocatorFunc adapts a function to the Deallocator interface.
type DeallocatorFunc func(Hints)

func (f DeallocatorFunc) Deallocate(hints Hints) {
	f(hints)
}

type chainDeallocator []Deallocator

// ChainDeallocator returns a Deallocator calling every non-nil ds in order.
func ChainDeallocator(ds ...Deallocator) Deallocator {
	var ret chainDeallocator
	for _, d := range ds {
		if d == nil {
			continue
		}
		if c, ok := d.(chainDeallocator); ok {
			ret = append(ret, c...)
			continue
		}
		ret = append(ret, d)
	}
	if len(ret) == 1 {
		return ret[0]
	}
	return ret
}

func (c chainDeallocator) Deallocate(hints Hints) {
	for _, d := range c {
		d.Deallocate(hints)
	}
}

var noopDeallocator = DeallocatorFunc(func(Hints) {})

// GoAllocator allocates from the Go heap. Deallocation is left to the GC.
type GoAllocator struct{}

var _ Allocator = GoAllocator{}

func NewGoAllocator() GoAllocator {
	return GoAllocator{}
}

func (GoAllocator) Allocate(size uint64, _ Hints) ([]byte, Deallocator, error) {
	if size == 0 {
		return nil, noopDeallocator, nil
	}
	return make([]byte, size), noopDeallocator, nil
}

// GetDefaultAllocator returns the allocator used when none is configured.
func GetDefaultAllocator() Allocator {
	return defaultAllocator
}

var defaultAllocator Allocator = NewGoAllocator()
