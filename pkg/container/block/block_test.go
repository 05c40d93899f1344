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
	"bytes"
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/moblock/pkg/common/moerr"
	"github.com/matrixorigin/moblock/pkg/container/nulls"
	"github.com/matrixorigin/moblock/pkg/container/types"
	"github.com/matrixorigin/moblock/pkg/testutil"
)

// typedCase runs the type independent properties over one value type.
type typedCase[T any] struct {
	name string
	ops  *typeOps[T]
	gen  func(r *rand.Rand) T
	// fromArray and fromBig wrap the flat values of a layout
	fromArray func(f *BlockFactory, vals []T, n int, fvi []int32, nsp *nulls.Nulls, o MvOrdering) (Block, error)
	fromBig   func(f *BlockFactory, vals []T, n int, fvi []int32, nsp *nulls.Nulls, o MvOrdering) (Block, error)
	builder   func(f *BlockFactory, n int) (Builder, func(T) error)
	vector    func(f *BlockFactory, vals []T) (Vector, error)
}

type typeSuite interface {
	caseName() string
	testRoundTrip(t *testing.T)
	testVectorBlock(t *testing.T)
	testNullPrecedence(t *testing.T)
	testOrderingClaim(t *testing.T)
	testBackends(t *testing.T)
	testSingleUse(t *testing.T)
	testFilterExpand(t *testing.T)
}

var suites = []typeSuite{booleanCase, intCase, longCase, doubleCase, bytesRefCase}

func forEachType(t *testing.T, fn func(t *testing.T, s typeSuite)) {
	for _, s := range suites {
		t.Run(s.caseName(), func(t *testing.T) {
			fn(t, s)
		})
	}
}

var booleanCase = &typedCase[bool]{
	name: "boolean",
	ops:  booleanOps,
	gen:  func(r *rand.Rand) bool { return r.Intn(2) == 0 },
	fromArray: func(f *BlockFactory, vals []bool, n int, fvi []int32, nsp *nulls.Nulls, o MvOrdering) (Block, error) {
		blk, err := f.NewBooleanArrayBlock(vals, n, fvi, nsp, o)
		return blk, err
	},
	fromBig: func(f *BlockFactory, vals []bool, n int, fvi []int32, nsp *nulls.Nulls, o MvOrdering) (Block, error) {
		arr, err := f.allocateBits(len(vals))
		if err != nil {
			return nil, err
		}
		for i, v := range vals {
			arr.Set(int64(i), v)
		}
		blk, err := f.NewBooleanBigArrayBlock(arr, n, fvi, nsp, o)
		if err != nil {
			f.Release(arr)
			return nil, err
		}
		return blk, nil
	},
	builder: func(f *BlockFactory, n int) (Builder, func(bool) error) {
		b := f.NewBooleanBlockBuilder(n)
		return b, b.AppendBoolean
	},
	vector: func(f *BlockFactory, vals []bool) (Vector, error) {
		vec, err := f.NewBooleanArrayVector(vals, len(vals))
		return vec, err
	},
}

var intCase = &typedCase[int32]{
	name: "int",
	ops:  intOps,
	gen:  func(r *rand.Rand) int32 { return r.Int31n(1000) - 500 },
	fromArray: func(f *BlockFactory, vals []int32, n int, fvi []int32, nsp *nulls.Nulls, o MvOrdering) (Block, error) {
		blk, err := f.NewIntArrayBlock(vals, n, fvi, nsp, o)
		return blk, err
	},
	fromBig: func(f *BlockFactory, vals []int32, n int, fvi []int32, nsp *nulls.Nulls, o MvOrdering) (Block, error) {
		arr, err := f.allocateInts(len(vals))
		if err != nil {
			return nil, err
		}
		copy(arr.Slice(), vals)
		blk, err := f.NewIntBigArrayBlock(arr, n, fvi, nsp, o)
		if err != nil {
			f.Release(arr)
			return nil, err
		}
		return blk, nil
	},
	builder: func(f *BlockFactory, n int) (Builder, func(int32) error) {
		b := f.NewIntBlockBuilder(n)
		return b, b.AppendInt
	},
	vector: func(f *BlockFactory, vals []int32) (Vector, error) {
		vec, err := f.NewIntArrayVector(vals, len(vals))
		return vec, err
	},
}

var longCase = &typedCase[int64]{
	name: "long",
	ops:  longOps,
	gen:  func(r *rand.Rand) int64 { return r.Int63() - r.Int63() },
	fromArray: func(f *BlockFactory, vals []int64, n int, fvi []int32, nsp *nulls.Nulls, o MvOrdering) (Block, error) {
		blk, err := f.NewLongArrayBlock(vals, n, fvi, nsp, o)
		return blk, err
	},
	fromBig: func(f *BlockFactory, vals []int64, n int, fvi []int32, nsp *nulls.Nulls, o MvOrdering) (Block, error) {
		arr, err := f.allocateLongs(len(vals))
		if err != nil {
			return nil, err
		}
		copy(arr.Slice(), vals)
		blk, err := f.NewLongBigArrayBlock(arr, n, fvi, nsp, o)
		if err != nil {
			f.Release(arr)
			return nil, err
		}
		return blk, nil
	},
	builder: func(f *BlockFactory, n int) (Builder, func(int64) error) {
		b := f.NewLongBlockBuilder(n)
		return b, b.AppendLong
	},
	vector: func(f *BlockFactory, vals []int64) (Vector, error) {
		vec, err := f.NewLongArrayVector(vals, len(vals))
		return vec, err
	},
}

var doubleCase = &typedCase[float64]{
	name: "double",
	ops:  doubleOps,
	gen:  func(r *rand.Rand) float64 { return r.NormFloat64() },
	fromArray: func(f *BlockFactory, vals []float64, n int, fvi []int32, nsp *nulls.Nulls, o MvOrdering) (Block, error) {
		blk, err := f.NewDoubleArrayBlock(vals, n, fvi, nsp, o)
		return blk, err
	},
	fromBig: func(f *BlockFactory, vals []float64, n int, fvi []int32, nsp *nulls.Nulls, o MvOrdering) (Block, error) {
		arr, err := f.allocateDoubles(len(vals))
		if err != nil {
			return nil, err
		}
		copy(arr.Slice(), vals)
		blk, err := f.NewDoubleBigArrayBlock(arr, n, fvi, nsp, o)
		if err != nil {
			f.Release(arr)
			return nil, err
		}
		return blk, nil
	},
	builder: func(f *BlockFactory, n int) (Builder, func(float64) error) {
		b := f.NewDoubleBlockBuilder(n)
		return b, b.AppendDouble
	},
	vector: func(f *BlockFactory, vals []float64) (Vector, error) {
		vec, err := f.NewDoubleArrayVector(vals, len(vals))
		return vec, err
	},
}

var bytesRefCase = &typedCase[[]byte]{
	name: "bytesRef",
	ops:  bytesRefOps,
	gen: func(r *rand.Rand) []byte {
		v := make([]byte, r.Intn(9))
		r.Read(v)
		return v
	},
	fromArray: func(f *BlockFactory, vals [][]byte, n int, fvi []int32, nsp *nulls.Nulls, o MvOrdering) (Block, error) {
		data, offsets := testutil.Flatten(vals)
		blk, err := f.NewBytesRefArrayBlock(data, offsets, n, fvi, nsp, o)
		return blk, err
	},
	fromBig: func(f *BlockFactory, vals [][]byte, n int, fvi []int32, nsp *nulls.Nulls, o MvOrdering) (Block, error) {
		arr, err := f.allocateBytes(len(vals), 8)
		if err != nil {
			return nil, err
		}
		for _, v := range vals {
			if err = arr.Append(v); err != nil {
				f.Release(arr)
				return nil, err
			}
		}
		blk, err := f.NewBytesRefBigArrayBlock(arr, n, fvi, nsp, o)
		if err != nil {
			f.Release(arr)
			return nil, err
		}
		return blk, nil
	},
	builder: func(f *BlockFactory, n int) (Builder, func([]byte) error) {
		b := f.NewBytesRefBlockBuilder(n)
		return b, b.AppendBytes
	},
	vector: func(f *BlockFactory, vals [][]byte) (Vector, error) {
		data, offsets := testutil.Flatten(vals)
		vec, err := f.NewBytesRefArrayVector(data, offsets, len(vals))
		return vec, err
	},
}

func (c *typedCase[T]) caseName() string {
	return c.name
}

var defaultGenOptions = testutil.GenOptions{
	TotalPositions:  500,
	NullProbability: 0.1,
	MvProbability:   0.3,
	MaxRun:          6,
	Seed:            42,
}

func (c *typedCase[T]) column(t *testing.T, opts testutil.GenOptions, sortRuns bool) *testutil.Column[T] {
	col, err := testutil.NewColumn(opts, c.gen, c.ops.less, sortRuns)
	require.NoError(t, err)
	return col
}

func (c *typedCase[T]) arrayBlock(t *testing.T, f *BlockFactory, col *testutil.Column[T], o MvOrdering) Block {
	blk, err := c.fromArray(f, col.Values, col.PositionCount(), col.FirstValueIndexes, col.Nulls, o)
	require.NoError(t, err)
	return blk
}

// build appends the non-null runs of col to a builder.
func (c *typedCase[T]) build(t *testing.T, f *BlockFactory, col *testutil.Column[T], o MvOrdering) Block {
	b, appendValue := c.builder(f, col.PositionCount())
	defer b.Close()
	for p := 0; p < col.PositionCount(); p++ {
		exp := col.Expected(p)
		switch len(exp) {
		case 0:
			require.NoError(t, b.AppendNull())
		case 1:
			require.NoError(t, appendValue(exp[0]))
		default:
			require.NoError(t, b.BeginPositionEntry())
			for _, v := range exp {
				require.NoError(t, appendValue(v))
			}
			require.NoError(t, b.EndPositionEntry())
		}
	}
	require.NoError(t, b.SetMvOrdering(o))
	blk, err := b.BuildBlock()
	require.NoError(t, err)
	return blk
}

// check asserts that every position of blk reads as col.
func (c *typedCase[T]) check(t *testing.T, blk Block, col *testutil.Column[T]) {
	require.Equal(t, col.PositionCount(), blk.PositionCount())
	get := c.ops.reader(blk)
	require.NotNil(t, get)
	for p := 0; p < col.PositionCount(); p++ {
		exp := col.Expected(p)
		require.Equal(t, exp == nil, blk.IsNull(p), "position %d", p)
		if exp == nil {
			require.Equal(t, 0, blk.GetValueCount(p))
			continue
		}
		require.Equal(t, len(exp), blk.GetValueCount(p), "position %d", p)
		first := blk.GetFirstValueIndex(p)
		for i, v := range exp {
			require.True(t, c.ops.equal(v, get(first+i)), "position %d value %d", p, i)
		}
	}
}

func (c *typedCase[T]) testRoundTrip(t *testing.T) {
	f := NewTestBlockFactory()
	col := c.column(t, defaultGenOptions, false)

	arr := c.arrayBlock(t, f, col, UNORDERED)
	c.check(t, arr, col)
	require.Equal(t, col.Nulls.Any(), arr.MayHaveNulls())
	require.Equal(t, col.ValueCount(), arr.GetTotalValueCount())

	built := c.build(t, f, col, UNORDERED)
	c.check(t, built, col)
	require.True(t, Equal(arr, built))
	require.True(t, Equal(built, arr))
	require.Equal(t, Hash(arr), Hash(built))

	arr.Release()
	built.Release()
	require.True(t, built.IsReleased())
	require.Equal(t, int64(0), f.Pool().CurrNB())
}

func (c *typedCase[T]) testVectorBlock(t *testing.T) {
	f := NewTestBlockFactory()
	r := rand.New(rand.NewSource(1))
	vals := make([]T, 100)
	for i := range vals {
		vals[i] = c.gen(r)
	}
	vec, err := c.vector(f, vals)
	require.NoError(t, err)
	require.False(t, vec.IsConstant())

	blk := vec.AsBlock()
	require.False(t, blk.MayHaveNulls())
	require.False(t, blk.MayHaveMultivaluedFields())
	again := blk.AsVector()
	require.NotNil(t, again)
	require.Equal(t, vec.PositionCount(), again.PositionCount())
	require.Equal(t, vec.ElementType(), again.ElementType())
	require.True(t, Equal(blk, again.AsBlock()))
	get := c.ops.reader(again.AsBlock())
	for p, v := range vals {
		require.True(t, c.ops.equal(v, get(p)))
	}
	vec.Release()

	// a block with nulls or multi-valued positions has no vector view
	col := c.column(t, defaultGenOptions, false)
	built := c.build(t, f, col, UNORDERED)
	require.Nil(t, built.AsVector())
	built.Release()
}

func (c *typedCase[T]) testNullPrecedence(t *testing.T) {
	f := NewTestBlockFactory()
	opts := defaultGenOptions
	opts.NullProbability = 0.4
	col := c.column(t, opts, false)
	require.True(t, col.Nulls.Any())

	r := rand.New(rand.NewSource(99))
	garbage := append([]T(nil), col.Values...)
	for p := 0; p < col.PositionCount(); p++ {
		if !col.Nulls.Contains(uint64(p)) {
			continue
		}
		first, end := col.Run(p)
		for i := first; i < end; i++ {
			garbage[i] = c.gen(r)
		}
	}
	a := c.arrayBlock(t, f, col, UNORDERED)
	b, err := c.fromArray(f, garbage, col.PositionCount(), col.FirstValueIndexes, col.Nulls, UNORDERED)
	require.NoError(t, err)
	require.True(t, Equal(a, b))
	require.Equal(t, Hash(a), Hash(b))
}

func (c *typedCase[T]) testOrderingClaim(t *testing.T) {
	f := NewTestBlockFactory()
	col := c.column(t, defaultGenOptions, true)
	ordering := UNORDERED
	if col.Sorted {
		ordering = DEDUPLICATED_AND_SORTED_ASCENDING
	}
	blk := c.arrayBlock(t, f, col, ordering)
	require.True(t, VerifyMvOrdering(blk))

	// a block wrongly claiming the ordering is caught
	claimed := c.arrayBlock(t, f, col, DEDUPLICATED_AND_SORTED_ASCENDING)
	require.Equal(t, col.Sorted, VerifyMvOrdering(claimed))

	// the builder keeps the claim
	built := c.build(t, f, col, ordering)
	require.Equal(t, ordering, built.MvOrdering())
	built.Release()
}

func (c *typedCase[T]) testBackends(t *testing.T) {
	plain := NewTestBlockFactory()
	big := NewTestBlockFactory(WithMaxPrimitiveArrayBytes(1))
	col := c.column(t, defaultGenOptions, false)

	a := c.build(t, plain, col, UNORDERED)
	b := c.build(t, big, col, UNORDERED)
	require.True(t, strings.Contains(a.String(), "ArrayBlock["))
	require.False(t, strings.Contains(a.String(), "BigArrayBlock"))
	require.True(t, strings.Contains(b.String(), "BigArrayBlock"), b.String())
	require.Greater(t, big.Pool().CurrNB(), int64(0))

	d, err := c.fromBig(big, col.Values, col.PositionCount(), col.FirstValueIndexes, col.Nulls, UNORDERED)
	require.NoError(t, err)

	for _, blk := range []Block{b, d} {
		c.check(t, blk, col)
		for p := 0; p < col.PositionCount(); p++ {
			require.Equal(t, a.IsNull(p), blk.IsNull(p))
			require.Equal(t, a.GetValueCount(p), blk.GetValueCount(p))
		}
		require.True(t, Equal(a, blk))
		require.Equal(t, Hash(a), Hash(blk))
	}

	a.Release()
	b.Release()
	d.Release()
	require.Equal(t, int64(0), big.Pool().CurrNB())
	require.Equal(t, int64(0), plain.Pool().CurrNB())
}

func (c *typedCase[T]) testSingleUse(t *testing.T) {
	f := NewTestBlockFactory()
	r := rand.New(rand.NewSource(5))
	b, appendValue := c.builder(f, 4)
	require.NoError(t, appendValue(c.gen(r)))
	blk, err := b.BuildBlock()
	require.NoError(t, err)
	require.Equal(t, 1, blk.PositionCount())

	isInvalidState := func(err error) {
		require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidState), "got %v", err)
	}
	isInvalidState(appendValue(c.gen(r)))
	isInvalidState(b.AppendNull())
	isInvalidState(b.BeginPositionEntry())
	isInvalidState(b.EndPositionEntry())
	isInvalidState(b.CopyFrom(blk, 0, 1))
	isInvalidState(b.SetMvOrdering(UNORDERED))
	_, err = b.BuildBlock()
	isInvalidState(err)
	b.Close()
	blk.Release()
}

func (c *typedCase[T]) testFilterExpand(t *testing.T) {
	f := NewTestBlockFactory()
	col := c.column(t, defaultGenOptions, false)
	blk := c.build(t, f, col, UNORDERED)
	defer blk.Release()

	sels := []int{7, 3, 3, 0, blk.PositionCount() - 1}
	filtered, err := blk.Filter(sels...)
	require.NoError(t, err)
	defer filtered.Release()
	require.Equal(t, len(sels), filtered.PositionCount())
	get, fget := c.ops.reader(blk), c.ops.reader(filtered)
	for i, p := range sels {
		require.Equal(t, blk.IsNull(p), filtered.IsNull(i))
		require.Equal(t, blk.GetValueCount(p), filtered.GetValueCount(i))
		for k := 0; k < blk.GetValueCount(p); k++ {
			require.True(t, c.ops.equal(get(blk.GetFirstValueIndex(p)+k), fget(filtered.GetFirstValueIndex(i)+k)))
		}
	}

	expanded, err := blk.Expand()
	require.NoError(t, err)
	defer expanded.Release()
	require.False(t, expanded.MayHaveMultivaluedFields())
	positions := 0
	for p := 0; p < blk.PositionCount(); p++ {
		positions += max(blk.GetValueCount(p), 1)
	}
	require.Equal(t, positions, expanded.PositionCount())

	eget := c.ops.reader(expanded)
	e := 0
	for p := 0; p < blk.PositionCount(); p++ {
		if blk.IsNull(p) {
			require.True(t, expanded.IsNull(e))
			e++
			continue
		}
		for k := 0; k < blk.GetValueCount(p); k++ {
			require.False(t, expanded.IsNull(e))
			require.True(t, c.ops.equal(get(blk.GetFirstValueIndex(p)+k), eget(expanded.GetFirstValueIndex(e))))
			e++
		}
	}
}

func TestRoundTrip(t *testing.T) {
	forEachType(t, func(t *testing.T, s typeSuite) { s.testRoundTrip(t) })
}

func TestVectorBlockEquivalence(t *testing.T) {
	forEachType(t, func(t *testing.T, s typeSuite) { s.testVectorBlock(t) })
}

func TestNullPrecedence(t *testing.T) {
	forEachType(t, func(t *testing.T, s typeSuite) { s.testNullPrecedence(t) })
}

func TestOrderingClaim(t *testing.T) {
	forEachType(t, func(t *testing.T, s typeSuite) { s.testOrderingClaim(t) })
}

func TestBackendEquivalence(t *testing.T) {
	forEachType(t, func(t *testing.T, s typeSuite) { s.testBackends(t) })
}

func TestBuilderSingleUse(t *testing.T) {
	forEachType(t, func(t *testing.T, s typeSuite) { s.testSingleUse(t) })
}

func TestFilterExpand(t *testing.T) {
	forEachType(t, func(t *testing.T, s typeSuite) { s.testFilterExpand(t) })
}

func TestOrderIndependentSum(t *testing.T) {
	f := NewTestBlockFactory()
	col, err := testutil.NewColumn(testutil.GenOptions{
		TotalPositions:  8096,
		NullProbability: 0.1,
		MvProbability:   0.3,
		MaxRun:          100,
		Seed:            8096,
	}, func(r *rand.Rand) int64 { return r.Int63() - r.Int63() }, nil, false)
	require.NoError(t, err)
	blk, err := f.NewLongArrayBlock(col.Values, col.PositionCount(), col.FirstValueIndexes, col.Nulls, UNORDERED)
	require.NoError(t, err)

	sum := func(order []int) int64 {
		var s int64
		for _, p := range order {
			if blk.IsNull(p) {
				continue
			}
			first := blk.GetFirstValueIndex(p)
			for i := first; i < first+blk.GetValueCount(p); i++ {
				s += blk.GetLong(i)
			}
		}
		return s
	}
	order := make([]int, blk.PositionCount())
	for i := range order {
		order[i] = i
	}
	sequential := sum(order)
	rand.New(rand.NewSource(1)).Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	require.Equal(t, sequential, sum(order))

	var expected int64
	for p := 0; p < col.PositionCount(); p++ {
		for _, v := range col.Expected(p) {
			expected += v
		}
	}
	require.Equal(t, expected, sequential)
}

func TestOrderingClaimWithheld(t *testing.T) {
	next := int64(0)
	col, err := testutil.NewColumn(testutil.GenOptions{
		TotalPositions: 200,
		MvProbability:  0.5,
		MaxRun:         10,
		Seed:           11,
	}, func(*rand.Rand) int64 {
		next++
		return next
	}, func(a, b int64) bool { return a < b }, true)
	require.NoError(t, err)
	require.True(t, col.Sorted)

	f := NewTestBlockFactory()
	blk, err := f.NewLongArrayBlock(col.Values, col.PositionCount(), col.FirstValueIndexes, col.Nulls, DEDUPLICATED_AND_SORTED_ASCENDING)
	require.NoError(t, err)
	require.True(t, VerifyMvOrdering(blk))

	// reverse one run
	for p := 0; p < col.PositionCount(); p++ {
		first, end := col.Run(p)
		if end-first > 1 {
			run := col.Values[first:end]
			sort.Slice(run, func(i, j int) bool { return run[i] > run[j] })
			break
		}
	}
	require.False(t, testutil.VerifySortedRuns(col.Layout, col.Values, func(a, b int64) bool { return a < b }))
	require.False(t, VerifyMvOrdering(blk))
}

func TestBytesRefScratch(t *testing.T) {
	f := NewTestBlockFactory()
	b := f.NewBytesRefBlockBuilder(2)
	require.NoError(t, b.AppendBytes([]byte("hello")))
	require.NoError(t, b.AppendBytesRef(&types.BytesRef{Bytes: []byte("xxworldxx"), Offset: 2, Length: 5}))
	blk, err := b.Build()
	require.NoError(t, err)

	var scratch types.BytesRef
	ref := blk.GetBytesRef(1, &scratch)
	require.Same(t, &scratch, ref)
	require.Equal(t, "world", ref.String())
	require.True(t, bytes.Equal([]byte("hello"), blk.GetBytesRef(0, &scratch).Value()))
}
