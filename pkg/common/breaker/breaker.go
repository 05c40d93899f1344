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

// Package breaker defines the memory budget consulted before every accounted
// allocation. The budget policy itself is opaque to the block layer: it only
// sees a pass/fail answer from Acquire.
package breaker

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/matrixorigin/moblock/pkg/common/moerr"
	"github.com/matrixorigin/moblock/pkg/logutil"
	v2 "github.com/matrixorigin/moblock/pkg/util/metric/v2"
)

//go:generate mockgen -source=breaker.go -destination=mock_breaker.go -package=breaker

// Breaker tracks accounted bytes against a budget.
type Breaker interface {
	// Acquire reserves bytes on behalf of label. It never blocks: when the
	// budget cannot cover the request it returns an ErrResourceExhausted
	// error and reserves nothing.
	Acquire(label string, bytes int64) error
	// Release hands back bytes previously reserved with Acquire.
	Release(bytes int64)
	// Used returns the bytes currently reserved.
	Used() int64
	// Limit returns the budget in bytes, 0 meaning unlimited.
	Limit() int64
}

// LimitBreaker is a fail-fast Breaker with a fixed byte limit.
type LimitBreaker struct {
	name  string
	limit int64
	sem   *semaphore.Weighted // nil if unlimited
	used  atomic.Int64
}

var _ Breaker = (*LimitBreaker)(nil)

// NewLimitBreaker creates a breaker refusing reservations beyond limit bytes.
// A limit <= 0 only tracks usage.
func NewLimitBreaker(name string, limit int64) *LimitBreaker {
	b := &LimitBreaker{name: name}
	if limit > 0 {
		b.limit = limit
		b.sem = semaphore.NewWeighted(limit)
	}
	return b
}

func (b *LimitBreaker) Acquire(label string, bytes int64) error {
	if bytes <= 0 {
		return nil
	}
	if b.sem != nil && !b.sem.TryAcquire(bytes) {
		used := b.used.Load()
		v2.MemBreakerTrippedCounter.WithLabelValues(label).Inc()
		logutil.Debug("memory breaker tripped",
			zap.String("breaker", b.name),
			zap.String("label", label),
			zap.Int64("want", bytes),
			zap.Int64("used", used),
			zap.Int64("limit", b.limit))
		return moerr.NewResourceExhausted(context.TODO(), label, bytes, used, b.limit)
	}
	b.used.Add(bytes)
	return nil
}

func (b *LimitBreaker) Release(bytes int64) {
	if bytes <= 0 {
		return
	}
	if b.sem != nil {
		b.sem.Release(bytes)
	}
	b.used.Add(-bytes)
}

func (b *LimitBreaker) Used() int64 {
	return b.used.Load()
}

func (b *LimitBreaker) Limit() int64 {
	return b.limit
}

func (b *LimitBreaker) Name() string {
	return b.name
}

type noopBreaker struct{}

// NoopBreaker never refuses and tracks nothing.
var NoopBreaker Breaker = noopBreaker{}

func (noopBreaker) Acquire(string, int64) error { return nil }
func (noopBreaker) Release(int64)               {}
func (noopBreaker) Used() int64                 { return 0 }
func (noopBreaker) Limit() int64                { return 0 }
