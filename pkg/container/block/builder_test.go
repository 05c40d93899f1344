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
	"math"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/lni/goutils/leaktest"
	"github.com/prashantv/gostub"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/moblock/pkg/common/breaker"
	"github.com/matrixorigin/moblock/pkg/common/moerr"
	"github.com/matrixorigin/moblock/pkg/common/mpool"
	"github.com/matrixorigin/moblock/pkg/container/bigarray"
	"github.com/matrixorigin/moblock/pkg/container/nulls"
	"github.com/matrixorigin/moblock/pkg/container/types"
	"github.com/matrixorigin/moblock/pkg/testutil"
	v2 "github.com/matrixorigin/moblock/pkg/util/metric/v2"
)

func isCode(err error, code uint16) bool {
	return moerr.IsMoErrCode(err, code)
}

func TestBuilderProtocol(t *testing.T) {
	Convey("Given an int block builder", t, func() {
		f := NewTestBlockFactory()
		b := f.NewIntBlockBuilder(8)
		defer b.Close()

		Convey("single values build a dense block", func() {
			So(b.AppendInt(1), ShouldBeNil)
			So(b.AppendInt(2), ShouldBeNil)
			So(b.AppendInt(3), ShouldBeNil)
			blk, err := b.Build()
			So(err, ShouldBeNil)
			So(blk.PositionCount(), ShouldEqual, 3)
			So(blk.MayHaveNulls(), ShouldBeFalse)
			So(blk.MayHaveMultivaluedFields(), ShouldBeFalse)
			So(blk.AsVector(), ShouldNotBeNil)
			So(blk.GetInt(2), ShouldEqual, int32(3))
			So(blk.String(), ShouldEqual, "IntArrayBlock[positions=3, mvOrdering=UNORDERED, values=[1, 2, 3]]")
		})

		Convey("an entry without values is a null position", func() {
			So(b.BeginPositionEntry(), ShouldBeNil)
			So(b.EndPositionEntry(), ShouldBeNil)
			So(b.AppendInt(5), ShouldBeNil)
			blk, err := b.Build()
			So(err, ShouldBeNil)
			So(blk.IsNull(0), ShouldBeTrue)
			So(blk.GetValueCount(0), ShouldEqual, 0)
			So(blk.IsNull(1), ShouldBeFalse)
			So(blk.GetInt(blk.GetFirstValueIndex(1)), ShouldEqual, int32(5))
			So(blk.AsVector(), ShouldBeNil)
		})

		Convey("multi-valued positions keep their values in order", func() {
			So(b.BeginPositionEntry(), ShouldBeNil)
			So(b.AppendInt(1), ShouldBeNil)
			So(b.AppendInt(2), ShouldBeNil)
			So(b.EndPositionEntry(), ShouldBeNil)
			So(b.AppendNull(), ShouldBeNil)
			So(b.AppendInt(3), ShouldBeNil)
			blk, err := b.Build()
			So(err, ShouldBeNil)
			So(blk.PositionCount(), ShouldEqual, 3)
			So(blk.MayHaveMultivaluedFields(), ShouldBeTrue)
			So(blk.GetValueCount(0), ShouldEqual, 2)
			So(blk.GetInt(1), ShouldEqual, int32(2))
			So(blk.IsNull(1), ShouldBeTrue)
			So(blk.GetTotalValueCount(), ShouldEqual, 3)
			So(blk.GetInt(blk.GetFirstValueIndex(2)), ShouldEqual, int32(3))
		})

		Convey("only nulls build the constant null block", func() {
			So(b.AppendNull(), ShouldBeNil)
			So(b.AppendNull(), ShouldBeNil)
			blk, err := b.Build()
			So(err, ShouldBeNil)
			So(blk.ElementType(), ShouldEqual, types.T_null)
			So(blk.AreAllValuesNull(), ShouldBeTrue)
			So(blk.PositionCount(), ShouldEqual, 2)
		})

		Convey("nothing builds an empty block", func() {
			blk, err := b.Build()
			So(err, ShouldBeNil)
			So(blk.PositionCount(), ShouldEqual, 0)
			So(blk.ElementType(), ShouldEqual, types.T_int32)
		})

		Convey("misplaced brackets are rejected", func() {
			So(isCode(b.EndPositionEntry(), moerr.ErrInvalidState), ShouldBeTrue)
			So(b.BeginPositionEntry(), ShouldBeNil)
			So(isCode(b.BeginPositionEntry(), moerr.ErrInvalidState), ShouldBeTrue)
			So(isCode(b.AppendNull(), moerr.ErrInvalidState), ShouldBeTrue)
			_, err := b.Build()
			So(isCode(err, moerr.ErrInvalidState), ShouldBeTrue)
			So(b.EndPositionEntry(), ShouldBeNil)
			blk, err := b.Build()
			So(err, ShouldBeNil)
			So(blk.PositionCount(), ShouldEqual, 1)
		})

		Convey("a bad ordering is rejected", func() {
			So(isCode(b.SetMvOrdering(MvOrdering(9)), moerr.ErrInvalidArg), ShouldBeTrue)
		})
	})
}

func TestConstructionValidation(t *testing.T) {
	f := NewTestBlockFactory()
	vals := []int64{1, 2, 3, 4}
	cases := []struct {
		name     string
		n        int
		fvi      []int32
		nsp      *nulls.Nulls
		ordering MvOrdering
	}{
		{"negative positions", -1, nil, nil, UNORDERED},
		{"too few values", 5, nil, nil, UNORDERED},
		{"short first value indexes", 3, []int32{0, 1, 2}, nil, UNORDERED},
		{"first value index not 0", 2, []int32{1, 2, 3}, nil, UNORDERED},
		{"decreasing first value indexes", 3, []int32{0, 2, 1, 3}, nil, UNORDERED},
		{"value range beyond values", 2, []int32{0, 2, 5}, nil, UNORDERED},
		{"null beyond positions", 2, nil, nulls.Build(2), UNORDERED},
		{"unknown ordering", 2, nil, nil, MvOrdering(3)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := f.NewLongArrayBlock(vals, c.n, c.fvi, c.nsp, c.ordering)
			require.True(t, isCode(err, moerr.ErrInvalidArg), "got %v", err)
		})
	}

	_, err := f.NewLongBigArrayBlock(nil, 0, nil, nil, UNORDERED)
	require.True(t, isCode(err, moerr.ErrInvalidArg))
	_, err = f.NewLongArrayVector(vals, 5)
	require.True(t, isCode(err, moerr.ErrInvalidArg))
	_, err = f.NewBytesRefArrayBlock([]byte("ab"), nil, 0, nil, nil, UNORDERED)
	require.True(t, isCode(err, moerr.ErrInvalidArg))
	_, err = f.NewBytesRefArrayBlock([]byte("ab"), []int32{0, 2, 1}, 2, nil, nil, UNORDERED)
	require.True(t, isCode(err, moerr.ErrInvalidArg))
	_, err = f.NewBytesRefArrayBlock([]byte("ab"), []int32{0, 3}, 1, nil, nil, UNORDERED)
	require.True(t, isCode(err, moerr.ErrInvalidArg))

	// the value range may end before the last value
	blk, err := f.NewLongArrayBlock(vals, 2, []int32{0, 1, 3}, nil, UNORDERED)
	require.NoError(t, err)
	require.Equal(t, 3, blk.GetTotalValueCount())
}

func TestPositionBounds(t *testing.T) {
	f := NewTestBlockFactory()
	blk, err := f.NewLongArrayBlock([]int64{1, 2}, 2, nil, nil, UNORDERED)
	require.NoError(t, err)
	require.Panics(t, func() { blk.IsNull(-1) })
	require.Panics(t, func() { blk.GetValueCount(2) })
	require.Panics(t, func() { blk.GetFirstValueIndex(2) })
	_, err = blk.Filter(0, 7)
	require.True(t, isCode(err, moerr.ErrOutOfRange), "got %v", err)
	_, err = blk.Filter(-1)
	require.True(t, isCode(err, moerr.ErrOutOfRange), "got %v", err)

	null := f.NewConstantNullBlock(2)
	require.Panics(t, func() { null.IsNull(2) })
	_, err = null.Filter(2)
	require.True(t, isCode(err, moerr.ErrOutOfRange), "got %v", err)
	require.Panics(t, func() { null.(LongBlock).GetLong(0) })
}

func TestResourceExhaustedMock(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mb := breaker.NewMockBreaker(ctrl)
	mb.EXPECT().Acquire(builderLabel, gomock.Any()).
		Return(moerr.NewResourceExhaustedNoCtx(builderLabel, 64, 0, 0))
	f := NewBlockFactory(mpool.MustNewZero(), mb)

	b := f.NewLongBlockBuilder(8)
	err := b.AppendLong(1)
	require.True(t, isCode(err, moerr.ErrResourceExhausted), "got %v", err)
	require.Equal(t, int64(0), b.EstimatedBytes())
	b.Close()
}

func TestResourceExhaustedLimit(t *testing.T) {
	lb := breaker.NewLimitBreaker("block-test", 4096)
	mp := mpool.MustNewZero()
	f := NewBlockFactory(mp, lb)

	b := f.NewLongBlockBuilder(0)
	var err error
	for i := 0; i < 10000 && err == nil; i++ {
		err = b.AppendLong(int64(i))
	}
	require.True(t, isCode(err, moerr.ErrResourceExhausted), "got %v", err)
	require.Greater(t, lb.Used(), int64(0))
	require.Equal(t, lb.Used(), b.EstimatedBytes())
	b.Close()
	require.Equal(t, int64(0), lb.Used())

	_, err = f.Allocate(types.T_int64, 1000)
	require.True(t, isCode(err, moerr.ErrResourceExhausted))
	require.Equal(t, int64(0), lb.Used())
	require.Equal(t, int64(0), mp.CurrNB())
}

func TestBigArrayAccounting(t *testing.T) {
	lb := breaker.NewLimitBreaker("block-test", 1<<20)
	mp := mpool.MustNewZero()
	f := NewBlockFactory(mp, lb, WithMaxPrimitiveArrayBytes(64))

	b := f.NewLongBlockBuilder(100)
	for i := 0; i < 100; i++ {
		require.NoError(t, b.AppendLong(int64(i)))
	}
	blk, err := b.Build()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(blk.String(), "LongBigArrayBlock"))
	require.Equal(t, int64(800), lb.Used())
	require.Equal(t, int64(800), mp.CurrNB())
	require.GreaterOrEqual(t, blk.RamBytesUsed(), int64(800))

	vec := blk.AsVector()
	require.NotNil(t, vec)
	require.Equal(t, int64(99), vec.(LongVector).GetLong(99))

	blk.Release()
	require.Equal(t, int64(0), lb.Used())
	require.Equal(t, int64(0), mp.CurrNB())

	// small values stay in plain arrays
	b = f.NewLongBlockBuilder(4)
	require.NoError(t, b.AppendLong(1))
	blk, err = b.Build()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(blk.String(), "LongArrayBlock"))
	require.Equal(t, int64(0), lb.Used())
}

func TestBuilderReservedGauge(t *testing.T) {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_builder_reserved"})
	stubs := gostub.Stub(&v2.MemBuilderReservedGauge, gauge)
	defer stubs.Reset()

	f := NewTestBlockFactory()
	b := f.NewDoubleBlockBuilder(16)
	require.NoError(t, b.AppendDouble(1.5))
	require.Greater(t, b.EstimatedBytes(), int64(0))
	require.Equal(t, float64(b.EstimatedBytes()), promtestutil.ToFloat64(gauge))
	_, err := b.Build()
	require.NoError(t, err)
	require.Equal(t, float64(0), promtestutil.ToFloat64(gauge))
	require.Equal(t, int64(0), b.EstimatedBytes())
}

func TestFactoryGaugeBalance(t *testing.T) {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_factory_allocated"})
	stubs := gostub.Stub(&v2.MemBlockFactoryAllocatedGauge, gauge)
	defer stubs.Reset()

	f := NewTestBlockFactory()
	arr, err := f.Allocate(types.T_bytes, 1)
	require.NoError(t, err)
	require.Greater(t, promtestutil.ToFloat64(gauge), float64(0))
	bytesArr := arr.(*bigarray.BytesRefArray)
	require.NoError(t, bytesArr.Append(make([]byte, 4096)))
	require.NoError(t, bytesArr.Append([]byte("tail")))
	require.Equal(t, float64(f.Pool().CurrNB()), promtestutil.ToFloat64(gauge))
	f.Release(arr)
	require.Equal(t, float64(0), promtestutil.ToFloat64(gauge))

	// the same through a built block that grew past the threshold
	f = NewTestBlockFactory(WithMaxPrimitiveArrayBytes(64))
	b := f.NewBytesRefBlockBuilder(2)
	for i := 0; i < 10; i++ {
		require.NoError(t, b.AppendBytes(make([]byte, 100*i)))
	}
	blk, err := b.Build()
	require.NoError(t, err)
	require.Equal(t, float64(f.Pool().CurrNB()), promtestutil.ToFloat64(gauge))
	blk.Release()
	require.Equal(t, float64(0), promtestutil.ToFloat64(gauge))
}

func TestEmptyPositionIsNull(t *testing.T) {
	f := NewTestBlockFactory()
	orig, err := f.NewLongArrayBlock([]int64{7}, 2, []int32{0, 0, 1}, nil, UNORDERED)
	require.NoError(t, err)
	require.True(t, orig.IsNull(0))
	require.Equal(t, 0, orig.GetValueCount(0))
	require.False(t, orig.IsNull(1))
	require.True(t, orig.MayHaveNulls())
	require.Nil(t, orig.AsVector())

	filtered, err := orig.Filter(0, 1)
	require.NoError(t, err)
	require.True(t, filtered.IsNull(0))
	require.True(t, Equal(orig, filtered))
	require.Equal(t, Hash(orig), Hash(filtered))

	expanded, err := orig.Expand()
	require.NoError(t, err)
	require.Equal(t, 2, expanded.PositionCount())
	require.True(t, expanded.IsNull(0))
	require.True(t, Equal(orig, expanded))

	// caller nulls are not modified
	nsp := nulls.Build(1)
	blk, err := f.NewLongArrayBlock([]int64{7}, 3, []int32{0, 1, 1, 1}, nsp, UNORDERED)
	require.NoError(t, err)
	require.Equal(t, 1, nsp.Count())
	require.True(t, blk.IsNull(2))
	require.False(t, blk.AreAllValuesNull())

	allEmpty, err := f.NewLongArrayBlock(nil, 2, []int32{0, 0, 0}, nil, UNORDERED)
	require.NoError(t, err)
	require.True(t, allEmpty.AreAllValuesNull())
	require.True(t, Equal(allEmpty, f.NewConstantNullBlock(2)))
}

func TestVectorFilterBounds(t *testing.T) {
	f := NewTestBlockFactory()
	constant := f.NewConstantLongVector(5, 3)
	_, err := constant.Filter(100)
	require.True(t, isCode(err, moerr.ErrOutOfRange), "got %v", err)
	_, err = constant.Filter(-1)
	require.True(t, isCode(err, moerr.ErrOutOfRange), "got %v", err)

	vec, err := f.NewLongArrayVector([]int64{1, 2, 3}, 3)
	require.NoError(t, err)
	_, err = vec.Filter(0, 3)
	require.True(t, isCode(err, moerr.ErrOutOfRange), "got %v", err)

	picked, err := vec.Filter(2, 0)
	require.NoError(t, err)
	require.Equal(t, int64(3), picked.(LongVector).GetLong(0))
	require.Equal(t, int64(1), picked.(LongVector).GetLong(1))
}

func TestValueIndexOverflow(t *testing.T) {
	stubs := gostub.Stub(&maxValueIndex, int64(3))
	defer stubs.Reset()

	f := NewTestBlockFactory()
	lb := f.NewLongBlockBuilder(4)
	defer lb.Close()
	for i := 0; i < 3; i++ {
		require.NoError(t, lb.AppendLong(int64(i)))
	}
	err := lb.AppendLong(3)
	require.True(t, isCode(err, moerr.ErrInvalidState), "got %v", err)
	require.NoError(t, lb.AppendNull())

	bb := f.NewBytesRefBlockBuilder(4)
	defer bb.Close()
	require.NoError(t, bb.AppendBytes([]byte("ab")))
	err = bb.AppendBytes([]byte("cd"))
	require.True(t, isCode(err, moerr.ErrInvalidState), "got %v", err)
	require.NoError(t, bb.AppendBytes([]byte("c")))
	blk, err := bb.Build()
	require.NoError(t, err)
	require.Equal(t, 2, blk.PositionCount())
	blk.Release()

	vb := f.NewBooleanVectorBuilder(4)
	defer vb.Close()
	for i := 0; i < 3; i++ {
		require.NoError(t, vb.AppendBoolean(true))
	}
	err = vb.AppendBoolean(false)
	require.True(t, isCode(err, moerr.ErrInvalidState), "got %v", err)
}

func TestDoubleRelease(t *testing.T) {
	f := NewTestBlockFactory(WithMaxPrimitiveArrayBytes(1))
	b := f.NewIntBlockBuilder(2)
	require.NoError(t, b.AppendInt(1))
	blk, err := b.Build()
	require.NoError(t, err)
	blk.Release()
	require.Panics(t, func() { blk.Release() })
	require.Equal(t, int64(0), f.Pool().CurrNB())

	null := f.NewConstantNullBlock(1)
	null.Release()
	require.Panics(t, func() { null.Release() })

	lenient := NewTestBlockFactory(WithDoubleReleaseCheck(false))
	vec := lenient.NewConstantIntVector(1, 3)
	vec.Release()
	require.NotPanics(t, func() { vec.Release() })
	require.True(t, vec.IsReleased())
}

func TestConstantValues(t *testing.T) {
	f := NewTestBlockFactory()
	vec := f.NewConstantLongVector(7, 5)
	require.True(t, vec.IsConstant())
	require.Equal(t, int64(7), vec.GetLong(4))
	require.Equal(t, "ConstantLongVector[positions=5, values=[7]]", vec.String())

	blk := f.NewConstantLongBlock(7, 5)
	require.Equal(t, 5, blk.PositionCount())
	require.Equal(t, int64(7), blk.GetLong(blk.GetFirstValueIndex(3)))
	require.True(t, blk.AsVector().IsConstant())

	filtered, err := vec.Filter(0, 1)
	require.NoError(t, err)
	require.False(t, filtered.IsConstant())
	require.Equal(t, 2, filtered.PositionCount())

	bs := f.NewConstantBytesRefBlock([]byte("abc"), 3)
	var scratch types.BytesRef
	require.Equal(t, "abc", bs.GetBytesRef(2, &scratch).String())
	require.True(t, f.NewConstantBooleanVector(true, 2).GetBoolean(1))
	require.Equal(t, 2.5, f.NewConstantDoubleBlock(2.5, 1).GetDouble(0))
	require.Equal(t, int32(-1), f.NewConstantIntBlock(-1, 1).GetInt(0))
}

func TestConstantNullBlock(t *testing.T) {
	f := NewTestBlockFactory()
	blk := f.NewConstantNullBlock(4)
	require.True(t, blk.MayHaveNulls())
	require.True(t, blk.IsNull(3))
	require.Equal(t, 0, blk.GetValueCount(3))
	require.Equal(t, 0, blk.GetTotalValueCount())
	require.Nil(t, blk.AsVector())
	require.Equal(t, "ConstantNullBlock[positions=4]", blk.String())

	filtered, err := blk.Filter(0, 1)
	require.NoError(t, err)
	require.Equal(t, 2, filtered.PositionCount())
	expanded, err := blk.Expand()
	require.NoError(t, err)
	require.Equal(t, 4, expanded.PositionCount())

	// it passes for a block of any type
	for _, typed := range []any{blk.(BooleanBlock), blk.(IntBlock), blk.(LongBlock), blk.(DoubleBlock), blk.(BytesRefBlock)} {
		require.NotNil(t, typed)
	}
	require.Panics(t, func() { blk.(DoubleBlock).GetDouble(0) })
}

func TestCopyFrom(t *testing.T) {
	f := NewTestBlockFactory()
	src := f.NewLongBlockBuilder(8)
	require.NoError(t, src.AppendLong(1))
	require.NoError(t, src.AppendNull())
	require.NoError(t, src.BeginPositionEntry())
	require.NoError(t, src.AppendLong(2))
	require.NoError(t, src.AppendLong(3))
	require.NoError(t, src.EndPositionEntry())
	require.NoError(t, src.AppendLong(4))
	from, err := src.Build()
	require.NoError(t, err)

	dst := f.NewLongBlockBuilder(4)
	require.NoError(t, dst.CopyFrom(from, 1, 4))
	require.NoError(t, dst.CopyFrom(f.NewConstantNullBlock(1), 0, 1))
	got, err := dst.Build()
	require.NoError(t, err)

	want, err := f.NewLongArrayBlock([]int64{0, 2, 3, 4, 0}, 4, []int32{0, 1, 3, 4, 5}, nulls.Build(0, 3), UNORDERED)
	require.NoError(t, err)
	require.True(t, Equal(want, got), "%s vs %s", want, got)

	dst = f.NewLongBlockBuilder(4)
	defer dst.Close()
	require.True(t, isCode(dst.CopyFrom(from, 2, 9), moerr.ErrInvalidArg))
	require.True(t, isCode(dst.CopyFrom(f.NewConstantIntBlock(1, 1), 0, 1), moerr.ErrInvalidArg))
}

func TestEqualAndHash(t *testing.T) {
	f := NewTestBlockFactory()
	a, err := f.NewDoubleArrayBlock([]float64{0, math.NaN()}, 2, nil, nil, UNORDERED)
	require.NoError(t, err)
	b, err := f.NewDoubleArrayBlock([]float64{math.Copysign(0, -1), math.NaN()}, 2, nil, nil, UNORDERED)
	require.NoError(t, err)
	require.True(t, Equal(a, b))
	require.Equal(t, Hash(a), Hash(b))

	c, err := f.NewDoubleArrayBlock([]float64{0, 1}, 2, nil, nil, UNORDERED)
	require.NoError(t, err)
	require.False(t, Equal(a, c))
	require.NotEqual(t, Hash(a), Hash(c))

	// blocks of only nulls are equal whatever their type
	nullInts, err := f.NewIntArrayBlock([]int32{9, 9}, 2, nil, nulls.Build(0, 1), UNORDERED)
	require.NoError(t, err)
	require.True(t, Equal(nullInts, f.NewConstantNullBlock(2)))
	require.Equal(t, Hash(nullInts), Hash(f.NewConstantNullBlock(2)))
	require.False(t, Equal(nullInts, f.NewConstantNullBlock(3)))

	ints := f.NewConstantIntBlock(1, 2)
	longs := f.NewConstantLongBlock(1, 2)
	require.False(t, Equal(ints, longs))
	require.True(t, Equal(nil, nil))
	require.False(t, Equal(ints, nil))
}

func TestShare(t *testing.T) {
	f := NewTestBlockFactory(WithMaxPrimitiveArrayBytes(1))
	b := f.NewBytesRefBlockBuilder(1)
	require.NoError(t, b.AppendBytes([]byte("shared")))
	blk, err := b.Build()
	require.NoError(t, err)

	s := Share(blk)
	s.IncRef()
	require.Equal(t, int32(2), s.RefCount())
	require.False(t, s.DecRef())
	require.False(t, blk.IsReleased())
	require.True(t, s.DecRef())
	require.True(t, s.Block().IsReleased())
	require.Equal(t, int64(0), f.Pool().CurrNB())
	require.Panics(t, func() { s.IncRef() })
}

func TestVectorFixedBuilder(t *testing.T) {
	f := NewTestBlockFactory()
	b := f.NewIntVectorFixedBuilder(2)
	require.NoError(t, b.AppendInt(1))
	_, err := b.Build()
	require.True(t, isCode(err, moerr.ErrInvalidState))
	require.NoError(t, b.AppendInt(2))
	require.True(t, isCode(b.AppendInt(3), moerr.ErrInvalidState))
	vec, err := b.Build()
	require.NoError(t, err)
	require.Equal(t, int32(2), vec.GetInt(1))
	_, err = b.Build()
	require.True(t, isCode(err, moerr.ErrInvalidState))

	bb := f.NewBytesRefVectorBuilder(0)
	require.NoError(t, bb.AppendBytes([]byte("x")))
	require.NoError(t, bb.AppendBytes(nil))
	bvec, err := bb.Build()
	require.NoError(t, err)
	var scratch types.BytesRef
	require.Equal(t, 0, bvec.GetBytesRef(1, &scratch).Length)
	require.Equal(t, "x", bvec.GetBytesRef(0, &scratch).String())
}

func TestConcurrentReads(t *testing.T) {
	defer leaktest.AfterTest(t)()
	f := NewTestBlockFactory(WithMaxPrimitiveArrayBytes(1))
	b := f.NewLongBlockBuilder(1000)
	for i := 0; i < 1000; i++ {
		require.NoError(t, b.AppendLong(int64(i)))
	}
	blk, err := b.Build()
	require.NoError(t, err)
	defer blk.Release()

	err = testutil.ConcurrentRead(8, 1000, func(i int) error {
		if v := blk.GetLong(blk.GetFirstValueIndex(i)); v != int64(i) {
			return moerr.NewInternalErrorNoCtx("position %d reads %d", i, v)
		}
		return nil
	})
	require.NoError(t, err)
}
