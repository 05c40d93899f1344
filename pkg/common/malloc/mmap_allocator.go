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

//go:build linux || darwin

package malloc

import (
	"context"
	"os"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/matrixorigin/moblock/pkg/common/moerr"
	"github.com/matrixorigin/moblock/pkg/logutil"
)

// MmapAllocator maps anonymous memory for requests of at least threshold
// bytes and serves smaller requests from the fallback allocator. Mapped
// memory lives outside the Go heap and is returned to the system on
// Deallocate.
type MmapAllocator struct {
	threshold uint64
	pageSize  uint64
	fallback  Allocator
}

var _ Allocator = new(MmapAllocator)

func NewMmapAllocator(threshold uint64, fallback Allocator) *MmapAllocator {
	if fallback == nil {
		fallback = NewGoAllocator()
	}
	return &MmapAllocator{
		threshold: threshold,
		pageSize:  uint64(os.Getpagesize()),
		fallback:  fallback,
	}
}

func (m *MmapAllocator) Allocate(size uint64, hints Hints) ([]byte, Deallocator, error) {
	if size == 0 || size < m.threshold {
		return m.fallback.Allocate(size, hints)
	}
	length := (size + m.pageSize - 1) / m.pageSize * m.pageSize
	mapped, err := unix.Mmap(
		-1, 0,
		int(length),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS,
	)
	if err != nil {
		logutil.Error("mmap failed",
			zap.Uint64("size", size),
			zap.Error(err))
		return nil, nil, moerr.NewInternalError(context.TODO(), "mmap %d bytes: %v", length, err)
	}
	// fresh anonymous mappings are zero filled, NoClear is implied
	base := unsafe.Pointer(unsafe.SliceData(mapped))
	return mapped[:size:size], DeallocatorFunc(func(Hints) {
		if err := unix.Munmap(unsafe.Slice((*byte)(base), length)); err != nil {
			panic(err)
		}
	}), nil
}
