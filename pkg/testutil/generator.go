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

package testutil

import (
	"math/rand"
	"sort"

	"github.com/matrixorigin/moblock/pkg/common/moerr"
	"github.com/matrixorigin/moblock/pkg/container/nulls"
)

// GenOptions drives the generation of a block layout.
type GenOptions struct {
	TotalPositions int
	// NullProbability is the chance of a position being null.
	NullProbability float64
	// MvProbability is the chance of a position starting a multi-valued
	// run of up to MaxRun values.
	MvProbability float64
	MaxRun        int
	Seed          int64
}

// Layout is a generated position layout. Every position, null ones
// included, owns at least one value, so FirstValueIndexes is strictly
// increasing. The values behind a null position are garbage.
type Layout struct {
	FirstValueIndexes []int32
	Nulls             *nulls.Nulls
}

func (l *Layout) PositionCount() int {
	return len(l.FirstValueIndexes) - 1
}

func (l *Layout) ValueCount() int {
	return int(l.FirstValueIndexes[len(l.FirstValueIndexes)-1])
}

// Run returns the value range [first, end) of position p.
func (l *Layout) Run(p int) (first, end int) {
	return int(l.FirstValueIndexes[p]), int(l.FirstValueIndexes[p+1])
}

// NewLayout generates a layout, rejecting inconsistent options.
func NewLayout(opts GenOptions, r *rand.Rand) (*Layout, error) {
	switch {
	case opts.TotalPositions < 0:
		return nil, moerr.NewInvalidArgNoCtx("TotalPositions", opts.TotalPositions)
	case opts.NullProbability < 0 || opts.NullProbability > 1:
		return nil, moerr.NewInvalidArgNoCtx("NullProbability", opts.NullProbability)
	case opts.MvProbability < 0 || opts.MvProbability > 1:
		return nil, moerr.NewInvalidArgNoCtx("MvProbability", opts.MvProbability)
	case opts.MvProbability > 0 && opts.MaxRun < 1:
		return nil, moerr.NewInvalidArgNoCtx("MaxRun", opts.MaxRun)
	}
	l := &Layout{
		FirstValueIndexes: make([]int32, 1, opts.TotalPositions+1),
	}
	next := int32(0)
	for p := 0; p < opts.TotalPositions; p++ {
		if r.Float64() < opts.NullProbability {
			if l.Nulls == nil {
				l.Nulls = nulls.New()
			}
			l.Nulls.Set(uint64(p))
		}
		run := int32(1)
		if r.Float64() < opts.MvProbability {
			run = int32(1 + r.Intn(opts.MaxRun))
		}
		next += run
		l.FirstValueIndexes = append(l.FirstValueIndexes, next)
	}
	return l, nil
}

// Column is a generated layout with its values.
type Column[T any] struct {
	*Layout
	Values []T
	// Sorted is set only when every non-null run is verified strictly
	// ascending.
	Sorted bool
}

// Expected returns the values of position p, nil when p is null.
func (c *Column[T]) Expected(p int) []T {
	if c.Nulls.Contains(uint64(p)) {
		return nil
	}
	first, end := c.Run(p)
	return c.Values[first:end]
}

// NewColumn generates a layout and fills it with gen. With sortRuns every
// run is sorted with less, Sorted then tells whether the runs came out
// free of duplicates.
func NewColumn[T any](opts GenOptions, gen func(r *rand.Rand) T, less func(a, b T) bool, sortRuns bool) (*Column[T], error) {
	r := rand.New(rand.NewSource(opts.Seed))
	l, err := NewLayout(opts, r)
	if err != nil {
		return nil, err
	}
	c := &Column[T]{
		Layout: l,
		Values: make([]T, l.ValueCount()),
	}
	for i := range c.Values {
		c.Values[i] = gen(r)
	}
	if sortRuns {
		for p := 0; p < l.PositionCount(); p++ {
			first, end := l.Run(p)
			run := c.Values[first:end]
			sort.Slice(run, func(i, j int) bool { return less(run[i], run[j]) })
		}
		c.Sorted = VerifySortedRuns(l, c.Values, less)
	}
	return c, nil
}

// VerifySortedRuns reports whether every non-null run of values is
// strictly ascending.
func VerifySortedRuns[T any](l *Layout, values []T, less func(a, b T) bool) bool {
	for p := 0; p < l.PositionCount(); p++ {
		if l.Nulls.Contains(uint64(p)) {
			continue
		}
		first, end := l.Run(p)
		for i := first + 1; i < end; i++ {
			if !less(values[i-1], values[i]) {
				return false
			}
		}
	}
	return true
}
