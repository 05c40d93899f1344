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

package main

import (
	"math/rand"
	"strings"
	"sync/atomic"
	"time"

	"github.com/matrixorigin/moblock/pkg/common/moerr"
	"github.com/matrixorigin/moblock/pkg/container/block"
	"github.com/matrixorigin/moblock/pkg/testutil"
)

type benchOptions struct {
	gen        testutil.GenOptions
	iterations int
	workers    int
}

type benchResult struct {
	blocks   int64
	values   int64
	bigCount int64
	sum      int64
	elapsed  time.Duration
}

// runBench builds the generated column into a long block once per
// iteration, checks its non-null sum and releases it.
func runBench(f *block.BlockFactory, opts benchOptions) (*benchResult, error) {
	col, err := testutil.NewColumn(opts.gen, func(r *rand.Rand) int64 {
		return r.Int63n(1 << 20)
	}, nil, false)
	if err != nil {
		return nil, err
	}
	var want int64
	for p := 0; p < col.PositionCount(); p++ {
		for _, v := range col.Expected(p) {
			want += v
		}
	}

	res := &benchResult{sum: want}
	var values, bigCount atomic.Int64
	start := time.Now()
	err = testutil.ConcurrentRead(opts.workers, opts.iterations, func(int) error {
		blk, err := buildColumn(f, col)
		if err != nil {
			return err
		}
		defer blk.Release()
		if isBig(blk) {
			bigCount.Add(1)
		}
		got := sumLongs(blk)
		if got != want {
			return moerr.NewInternalErrorNoCtx("sum %d, want %d", got, want)
		}
		values.Add(int64(blk.GetTotalValueCount()))
		return nil
	})
	res.elapsed = time.Since(start)
	if err != nil {
		return nil, err
	}
	res.blocks = int64(opts.iterations)
	res.values = values.Load()
	res.bigCount = bigCount.Load()
	return res, nil
}

func buildColumn(f *block.BlockFactory, col *testutil.Column[int64]) (block.Block, error) {
	b := f.NewLongBlockBuilder(col.ValueCount())
	defer b.Close()
	for p := 0; p < col.PositionCount(); p++ {
		var err error
		switch vals := col.Expected(p); len(vals) {
		case 0:
			err = b.AppendNull()
		case 1:
			err = b.AppendLong(vals[0])
		default:
			if err = b.BeginPositionEntry(); err != nil {
				return nil, err
			}
			for _, v := range vals {
				if err = b.AppendLong(v); err != nil {
					return nil, err
				}
			}
			err = b.EndPositionEntry()
		}
		if err != nil {
			return nil, err
		}
	}
	return b.BuildBlock()
}

func sumLongs(blk block.Block) int64 {
	longs, ok := blk.(block.LongBlock)
	if !ok {
		return 0
	}
	var sum int64
	for p := 0; p < blk.PositionCount(); p++ {
		if blk.IsNull(p) {
			continue
		}
		first := blk.GetFirstValueIndex(p)
		for i := first; i < first+blk.GetValueCount(p); i++ {
			sum += longs.GetLong(i)
		}
	}
	return sum
}

func isBig(blk block.Block) bool {
	return strings.HasPrefix(blk.String(), "LongBigArrayBlock")
}
