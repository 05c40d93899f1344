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

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	v2 "github.com/matrixorigin/moblock/pkg/util/metric/v2"
)

// MetricsAllocator reports the traffic of its upstream allocator to
// prometheus. Nil collectors are skipped.
type MetricsAllocator[U Allocator] struct {
	upstream U

	allocateBytesCounter   prometheus.Counter
	inuseBytesGauge        prometheus.Gauge
	allocateObjectsCounter prometheus.Counter
	inuseObjectsGauge      prometheus.Gauge

	inuseBytes   atomic.Int64
	inuseObjects atomic.Int64
}

func NewMetricsAllocator[U Allocator](
	upstream U,
	allocateBytesCounter prometheus.Counter,
	inuseBytesGauge prometheus.Gauge,
	allocateObjectsCounter prometheus.Counter,
	inuseObjectsGauge prometheus.Gauge,
) *MetricsAllocator[U] {
	return &MetricsAllocator[U]{
		upstream:               upstream,
		allocateBytesCounter:   allocateBytesCounter,
		inuseBytesGauge:        inuseBytesGauge,
		allocateObjectsCounter: allocateObjectsCounter,
		inuseObjectsGauge:      inuseObjectsGauge,
	}
}

// NewDefaultMetricsAllocator decorates upstream with the global malloc
// collectors.
func NewDefaultMetricsAllocator[U Allocator](upstream U) *MetricsAllocator[U] {
	return NewMetricsAllocator(
		upstream,
		v2.MallocCounterAllocateBytes,
		v2.MallocGaugeInuseBytes,
		v2.MallocCounterAllocateObjects,
		v2.MallocGaugeInuseObjects,
	)
}

var _ Allocator = new(MetricsAllocator[Allocator])

func (m *MetricsAllocator[U]) Allocate(size uint64, hints Hints) ([]byte, Deallocator, error) {
	bs, dec, err := m.upstream.Allocate(size, hints)
	if err != nil {
		return nil, nil, err
	}
	m.inuseBytes.Add(int64(size))
	m.inuseObjects.Add(1)
	if m.allocateBytesCounter != nil {
		m.allocateBytesCounter.Add(float64(size))
	}
	if m.allocateObjectsCounter != nil {
		m.allocateObjectsCounter.Inc()
	}
	if m.inuseBytesGauge != nil {
		m.inuseBytesGauge.Add(float64(size))
	}
	if m.inuseObjectsGauge != nil {
		m.inuseObjectsGauge.Inc()
	}

	return bs, ChainDeallocator(
		dec,
		DeallocatorFunc(func(Hints) {
			m.inuseBytes.Add(-int64(size))
			m.inuseObjects.Add(-1)
			if m.inuseBytesGauge != nil {
				m.inuseBytesGauge.Sub(float64(size))
			}
			if m.inuseObjectsGauge != nil {
				m.inuseObjectsGauge.Dec()
			}
		}),
	), nil
}

func (m *MetricsAllocator[U]) InuseBytes() int64 {
	return m.inuseBytes.Load()
}

func (m *MetricsAllocator[U]) InuseObjects() int64 {
	return m.inuseObjects.Load()
}
