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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/moblock/pkg/common/breaker"
	"github.com/matrixorigin/moblock/pkg/common/moerr"
	"github.com/matrixorigin/moblock/pkg/common/mpool"
	"github.com/matrixorigin/moblock/pkg/container/block"
	"github.com/matrixorigin/moblock/pkg/testutil"
)

func TestRunBench(t *testing.T) {
	mp := mpool.MustNew("bench-test")
	f := block.NewBlockFactory(mp, breaker.NewLimitBreaker("bench-test", 0), block.WithMaxPrimitiveArrayBytes(1024))
	res, err := runBench(f, benchOptions{
		gen: testutil.GenOptions{
			TotalPositions:  1000,
			NullProbability: 0.1,
			MvProbability:   0.3,
			MaxRun:          10,
			Seed:            3,
		},
		iterations: 20,
		workers:    4,
	})
	require.NoError(t, err)
	require.Equal(t, int64(20), res.blocks)
	require.Equal(t, int64(20), res.bigCount)
	require.Greater(t, res.values, int64(20*900))
	require.Equal(t, int64(0), mp.CurrNB())
	require.Equal(t, int64(0), f.Breaker().Used())
}

func TestRunBenchExhausted(t *testing.T) {
	f := block.NewBlockFactory(mpool.MustNewZero(), breaker.NewLimitBreaker("bench-test", 1024))
	_, err := runBench(f, benchOptions{
		gen:        testutil.GenOptions{TotalPositions: 1000},
		iterations: 2,
		workers:    2,
	})
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrResourceExhausted), "got %v", err)
}
