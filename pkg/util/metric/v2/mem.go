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

package v2

import "github.com/prometheus/client_golang/prometheus"

var (
	memMPoolAllocatedSizeGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "mo",
			Subsystem: "mem",
			Name:      "mpool_allocated_size",
			Help:      "Size of mpool have allocated.",
		}, []string{"type"})

	MemBlockFactoryAllocatedGauge = memMPoolAllocatedSizeGauge.WithLabelValues("block_factory")
	MemBuilderReservedGauge       = memMPoolAllocatedSizeGauge.WithLabelValues("block_builder")
)

var (
	memMallocCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mo",
			Subsystem: "mem",
			Name:      "malloc_counter",
			Help:      "malloc counter",
		},
		[]string{"type"},
	)

	MallocCounterAllocateBytes   = memMallocCounter.WithLabelValues("allocate")
	MallocCounterAllocateObjects = memMallocCounter.WithLabelValues("allocate-objects")

	memMallocGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "mo",
			Subsystem: "mem",
			Name:      "malloc_gauge",
			Help:      "malloc gauge",
		},
		[]string{"type"},
	)

	MallocGaugeInuseBytes   = memMallocGauge.WithLabelValues("inuse")
	MallocGaugeInuseObjects = memMallocGauge.WithLabelValues("inuse-objects")
)

var (
	MemBreakerTrippedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mo",
			Subsystem: "mem",
			Name:      "breaker_tripped_total",
			Help:      "Total number of accounted allocations refused by the memory breaker.",
		}, []string{"label"})
)

// Collectors returns every collector of this file, for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		memMPoolAllocatedSizeGauge,
		memMallocCounter,
		memMallocGauge,
		MemBreakerTrippedCounter,
	}
}

// MustRegister registers the memory collectors on r.
func MustRegister(r prometheus.Registerer) {
	r.MustRegister(Collectors()...)
}
