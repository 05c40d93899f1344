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

// Package bigarray implements arrays whose memory comes from an mpool and
// is reserved against a breaker. Every array must be released exactly once
// by its owner.
package bigarray

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/matrixorigin/moblock/pkg/common/breaker"
	"github.com/matrixorigin/moblock/pkg/common/moerr"
	"github.com/matrixorigin/moblock/pkg/common/mpool"
	"github.com/matrixorigin/moblock/pkg/logutil"
)

// Array is the part shared by every big array.
type Array interface {
	// Len returns the number of elements.
	Len() int64
	// RamBytesUsed returns the accounted bytes held by the array.
	RamBytesUsed() int64
	// Release hands the memory back. Releasing twice is a bug.
	Release()
}

// Arena is the accounted memory source of big arrays.
type Arena struct {
	Pool    *mpool.MPool
	Breaker breaker.Breaker
	// Label names the reservations in breaker errors and metrics.
	Label string
	// CheckDoubleRelease turns a second Release into a panic. Otherwise it
	// is logged and ignored.
	CheckDoubleRelease bool
	// Gauge, when set, follows the bytes held by the arrays of the arena.
	Gauge prometheus.Gauge
}

// NewArena returns an arena drawing from mp, reserving against b.
func NewArena(mp *mpool.MPool, b breaker.Breaker) *Arena {
	if b == nil {
		b = breaker.NoopBreaker
	}
	return &Arena{
		Pool:               mp,
		Breaker:            b,
		Label:              "bigarray",
		CheckDoubleRelease: true,
	}
}

func (a *Arena) alloc(sz int) ([]byte, error) {
	if sz == 0 {
		return nil, nil
	}
	if err := a.Breaker.Acquire(a.Label, int64(sz)); err != nil {
		return nil, err
	}
	bs, err := a.Pool.Alloc(sz)
	if err != nil {
		a.Breaker.Release(int64(sz))
		return nil, err
	}
	a.observe(int64(cap(bs)))
	return bs, nil
}

// realloc grows bs to sz bytes. The breaker sees both buffers while the
// content is copied.
func (a *Arena) realloc(bs []byte, sz int) ([]byte, error) {
	if sz <= cap(bs) {
		return bs[:sz], nil
	}
	if err := a.Breaker.Acquire(a.Label, int64(sz)); err != nil {
		return nil, err
	}
	old := int64(cap(bs))
	ret, err := a.Pool.Realloc(bs, sz)
	if err != nil {
		a.Breaker.Release(int64(sz))
		return nil, err
	}
	a.Breaker.Release(old)
	a.observe(int64(cap(ret)) - old)
	return ret, nil
}

func (a *Arena) free(bs []byte) {
	if cap(bs) == 0 {
		return
	}
	a.Pool.Free(bs)
	a.Breaker.Release(int64(cap(bs)))
	a.observe(-int64(cap(bs)))
}

func (a *Arena) observe(delta int64) {
	if a.Gauge != nil && delta != 0 {
		a.Gauge.Add(float64(delta))
	}
}

func (a *Arena) doubleRelease(what string) {
	if a.CheckDoubleRelease {
		panic(moerr.NewInternalError(context.TODO(), "%s released twice", what))
	}
	logutil.Error("big array released twice", zap.String("array", what))
}

// Oversize returns the capacity to grow to so that minSize elements fit,
// leaving headroom for amortized appends.
func Oversize(minSize int64) int64 {
	if minSize < 8 {
		return 8
	}
	return minSize + minSize>>1
}
