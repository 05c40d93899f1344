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
	"context"

	"go.uber.org/zap"

	"github.com/matrixorigin/moblock/pkg/common/breaker"
	"github.com/matrixorigin/moblock/pkg/common/malloc"
	"github.com/matrixorigin/moblock/pkg/common/moerr"
	"github.com/matrixorigin/moblock/pkg/common/mpool"
	"github.com/matrixorigin/moblock/pkg/container/bigarray"
	"github.com/matrixorigin/moblock/pkg/container/types"
	"github.com/matrixorigin/moblock/pkg/logutil"
	v2 "github.com/matrixorigin/moblock/pkg/util/metric/v2"
)

const (
	// DefaultMaxPrimitiveArrayBytes is the value buffer size from which
	// builders move their values to accounted big arrays.
	DefaultMaxPrimitiveArrayBytes = 512 * malloc.KB

	builderLabel = "block_builder"
	arenaLabel   = "block_big_array"

	// bytes of the block headers, counted in RamBytesUsed
	blockOverhead  = 96
	vectorOverhead = 48
)

// BlockFactory creates builders, blocks and vectors and mediates every
// accounted allocation. It is safe for concurrent use.
type BlockFactory struct {
	mp                     *mpool.MPool
	breaker                breaker.Breaker
	arena                  *bigarray.Arena
	maxPrimitiveArrayBytes int64
	checkDoubleRelease     bool
}

type FactoryOption func(*BlockFactory)

// WithMaxPrimitiveArrayBytes sets the size from which built values go to
// big arrays. A size <= 0 keeps every built block in plain arrays.
func WithMaxPrimitiveArrayBytes(n int64) FactoryOption {
	return func(f *BlockFactory) {
		f.maxPrimitiveArrayBytes = n
	}
}

// WithDoubleReleaseCheck turns a second release of a block or of accounted
// storage into a panic. It is on by default.
func WithDoubleReleaseCheck(check bool) FactoryOption {
	return func(f *BlockFactory) {
		f.checkDoubleRelease = check
	}
}

// NewBlockFactory returns a factory drawing accounted memory from mp and
// reserving it against b. A nil b never refuses.
func NewBlockFactory(mp *mpool.MPool, b breaker.Breaker, opts ...FactoryOption) *BlockFactory {
	if b == nil {
		b = breaker.NoopBreaker
	}
	f := &BlockFactory{
		mp:                     mp,
		breaker:                b,
		maxPrimitiveArrayBytes: DefaultMaxPrimitiveArrayBytes,
		checkDoubleRelease:     true,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.arena = bigarray.NewArena(mp, b)
	f.arena.Label = arenaLabel
	f.arena.CheckDoubleRelease = f.checkDoubleRelease
	f.arena.Gauge = v2.MemBlockFactoryAllocatedGauge
	return f
}

// NewTestBlockFactory returns a factory over a fresh unlimited pool.
func NewTestBlockFactory(opts ...FactoryOption) *BlockFactory {
	return NewBlockFactory(mpool.MustNewZero(), breaker.NoopBreaker, opts...)
}

func (f *BlockFactory) Pool() *mpool.MPool {
	return f.mp
}

func (f *BlockFactory) Breaker() breaker.Breaker {
	return f.breaker
}

func (f *BlockFactory) MaxPrimitiveArrayBytes() int64 {
	return f.maxPrimitiveArrayBytes
}

func (f *BlockFactory) CheckDoubleRelease() bool {
	return f.checkDoubleRelease
}

// Allocate returns zeroed accounted storage for size values of type t. For
// T_bytes the storage is an empty array with room for size values. It fails
// with ErrResourceExhausted when the breaker refuses the memory.
func (f *BlockFactory) Allocate(t types.T, size int) (bigarray.Array, error) {
	if size < 0 {
		return nil, moerr.NewInvalidArg(context.TODO(), "size", size)
	}
	var (
		arr bigarray.Array
		err error
	)
	switch t {
	case types.T_bool:
		arr, err = bigarray.NewBitArray(f.arena, int64(size))
	case types.T_int32:
		arr, err = bigarray.NewIntArray(f.arena, int64(size))
	case types.T_int64:
		arr, err = bigarray.NewLongArray(f.arena, int64(size))
	case types.T_float64:
		arr, err = bigarray.NewDoubleArray(f.arena, int64(size))
	case types.T_bytes:
		arr, err = bigarray.NewBytesRefArray(f.arena, int64(size), avgBytesPerValue)
	default:
		return nil, moerr.NewInvalidArg(context.TODO(), "element type", t.String())
	}
	if err != nil {
		logutil.Debug("block factory allocation failed",
			zap.String("type", t.String()),
			zap.Int("size", size),
			zap.Error(err))
		return nil, err
	}
	return arr, nil
}

// Release hands accounted storage back. It must be called exactly once per
// storage.
func (f *BlockFactory) Release(arr bigarray.Array) {
	arr.Release()
}

func (f *BlockFactory) allocateInts(size int) (*bigarray.IntArray, error) {
	arr, err := f.Allocate(types.T_int32, size)
	if err != nil {
		return nil, err
	}
	return arr.(*bigarray.IntArray), nil
}

func (f *BlockFactory) allocateLongs(size int) (*bigarray.LongArray, error) {
	arr, err := f.Allocate(types.T_int64, size)
	if err != nil {
		return nil, err
	}
	return arr.(*bigarray.LongArray), nil
}

func (f *BlockFactory) allocateDoubles(size int) (*bigarray.DoubleArray, error) {
	arr, err := f.Allocate(types.T_float64, size)
	if err != nil {
		return nil, err
	}
	return arr.(*bigarray.DoubleArray), nil
}

func (f *BlockFactory) allocateBits(size int) (*bigarray.BitArray, error) {
	arr, err := f.Allocate(types.T_bool, size)
	if err != nil {
		return nil, err
	}
	return arr.(*bigarray.BitArray), nil
}

// allocateBytes allocates room for size values of avgSize bytes on average.
func (f *BlockFactory) allocateBytes(size, avgSize int) (*bigarray.BytesRefArray, error) {
	return bigarray.NewBytesRefArray(f.arena, int64(size), int64(avgSize))
}

// reserve accounts bytes held by a builder.
func (f *BlockFactory) reserve(bytes int64) error {
	if bytes <= 0 {
		return nil
	}
	if err := f.breaker.Acquire(builderLabel, bytes); err != nil {
		return err
	}
	v2.MemBuilderReservedGauge.Add(float64(bytes))
	return nil
}

func (f *BlockFactory) unreserve(bytes int64) {
	if bytes <= 0 {
		return
	}
	f.breaker.Release(bytes)
	v2.MemBuilderReservedGauge.Sub(float64(bytes))
}

func (f *BlockFactory) doubleRelease(what string) {
	if f.checkDoubleRelease {
		panic(moerr.NewInternalError(context.TODO(), "%s released twice", what))
	}
	logutil.Error("block released twice", zap.String("block", what))
}
