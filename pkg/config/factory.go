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

package config

import (
	"go.uber.org/zap"

	"github.com/matrixorigin/moblock/pkg/common/breaker"
	"github.com/matrixorigin/moblock/pkg/common/malloc"
	"github.com/matrixorigin/moblock/pkg/common/mpool"
	"github.com/matrixorigin/moblock/pkg/container/block"
	"github.com/matrixorigin/moblock/pkg/logutil"
)

// newAllocator is a variable so that tests can observe the allocator
// handed to the pool.
var newAllocator = func(m MemoryConfig) malloc.Allocator {
	var a malloc.Allocator = malloc.NewGoAllocator()
	if m.Allocator == AllocatorMmap {
		a = malloc.NewMmapAllocator(m.MmapThreshold, a)
	}
	if m.EnableMetrics {
		a = malloc.NewDefaultMetricsAllocator(a)
	}
	return a
}

// Setup validates cfg, installs its logger and builds the block factory
// it describes.
func Setup(cfg *Config) (*block.BlockFactory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logutil.SetupMOLogger(&cfg.Log)
	return NewBlockFactory(cfg.Memory)
}

// NewBlockFactory builds the memory stack of m.
func NewBlockFactory(m MemoryConfig) (*block.BlockFactory, error) {
	mp, err := mpool.NewMPool(m.PoolTag, 0, 0, mpool.WithAllocator(newAllocator(m)))
	if err != nil {
		return nil, err
	}
	var opts []block.FactoryOption
	if m.MaxPrimitiveArrayBytes != nil {
		opts = append(opts, block.WithMaxPrimitiveArrayBytes(*m.MaxPrimitiveArrayBytes))
	}
	if m.CheckDoubleRelease != nil {
		opts = append(opts, block.WithDoubleReleaseCheck(*m.CheckDoubleRelease))
	}
	b := breaker.NewLimitBreaker(m.PoolTag, m.Limit)
	logutil.Info("block factory created",
		zap.String("pool", m.PoolTag),
		zap.Int64("limit", m.Limit),
		zap.String("allocator", m.Allocator),
		zap.Bool("metrics", m.EnableMetrics))
	return block.NewBlockFactory(mp, b, opts...), nil
}
