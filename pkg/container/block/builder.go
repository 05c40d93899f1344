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
	"context"
	"math"

	"github.com/matrixorigin/moblock/pkg/common/bitmap"
	"github.com/matrixorigin/moblock/pkg/common/moerr"
	"github.com/matrixorigin/moblock/pkg/container/bigarray"
	"github.com/matrixorigin/moblock/pkg/container/nulls"
	"github.com/matrixorigin/moblock/pkg/container/types"
)

// grownCap returns the capacity to hold need elements, given the current
// capacity and the size estimated by the builder's creator.
func grownCap(curCap, need, hint int) int {
	if need <= curCap {
		return curCap
	}
	return max(int(bigarray.Oversize(int64(need))), hint)
}

// maxValueIndex bounds the value count and, for bytes, the data length, so
// that value indexes and offsets fit in int32.
var maxValueIndex int64 = math.MaxInt32

func errValueOverflow(what string, n int64) error {
	return moerr.NewInvalidState(context.TODO(), "%s would reach %d, beyond %d", what, n, maxValueIndex)
}

// valueAppender accumulates the values of a builder. check and bytesAfter
// must be called before append so that the growth can be refused first.
type valueAppender[T any] interface {
	// check fails when appending v would overflow the value indexes.
	check(v T) error
	// bytesAfter returns the bytes held once v is appended.
	bytesAfter(v T) int64
	append(v T)
	len() int
	// ramBytes returns the bytes held now.
	ramBytes() int64
	// valueBytes returns the bytes the values need once built.
	valueBytes() int64
	plain() ColumnStorage[T]
	big(f *BlockFactory) (ColumnStorage[T], error)
}

type numAppender[T types.Number] struct {
	vals []T
	hint int
}

func newNumAppender[T types.Number](hint int) valueAppender[T] {
	return &numAppender[T]{hint: hint}
}

func (a *numAppender[T]) check(T) error {
	if n := int64(len(a.vals)) + 1; n > maxValueIndex {
		return errValueOverflow("value count", n)
	}
	return nil
}

func (a *numAppender[T]) bytesAfter(T) int64 {
	return int64(grownCap(cap(a.vals), len(a.vals)+1, a.hint)) * sizeOf[T]()
}

func (a *numAppender[T]) append(v T) {
	if len(a.vals) == cap(a.vals) {
		vals := make([]T, len(a.vals), grownCap(cap(a.vals), len(a.vals)+1, a.hint))
		copy(vals, a.vals)
		a.vals = vals
	}
	a.vals = append(a.vals, v)
}

func (a *numAppender[T]) len() int           { return len(a.vals) }
func (a *numAppender[T]) ramBytes() int64    { return int64(cap(a.vals)) * sizeOf[T]() }
func (a *numAppender[T]) valueBytes() int64  { return int64(len(a.vals)) * sizeOf[T]() }
func (a *numAppender[T]) plain() ColumnStorage[T] { return arrayStorage[T](a.vals) }

func (a *numAppender[T]) big(f *BlockFactory) (ColumnStorage[T], error) {
	arr, err := f.Allocate(types.TypeOf[T](), len(a.vals))
	if err != nil {
		return nil, err
	}
	fixed := arr.(*bigarray.FixedArray[T])
	copy(fixed.Slice(), a.vals)
	return &bigFixedStorage[T]{factory: f, arr: fixed}, nil
}

// boolAppender packs the values in words as they come.
type boolAppender struct {
	words []uint64
	n     int
	hint  int
}

func newBoolAppender(hint int) valueAppender[bool] {
	return &boolAppender{hint: int(bitmap.WordsFor(int64(hint)))}
}

func (a *boolAppender) check(bool) error {
	if n := int64(a.n) + 1; n > maxValueIndex {
		return errValueOverflow("value count", n)
	}
	return nil
}

func (a *boolAppender) bytesAfter(bool) int64 {
	need := int(bitmap.WordsFor(int64(a.n + 1)))
	return int64(grownCap(len(a.words), need, a.hint)) * 8
}

func (a *boolAppender) append(v bool) {
	need := int(bitmap.WordsFor(int64(a.n + 1)))
	if need > len(a.words) {
		words := make([]uint64, grownCap(len(a.words), need, a.hint))
		copy(words, a.words)
		a.words = words
	}
	if v {
		a.words[a.n>>6] |= 1 << (a.n & 63)
	}
	a.n++
}

func (a *boolAppender) len() int          { return a.n }
func (a *boolAppender) ramBytes() int64   { return int64(len(a.words)) * 8 }
func (a *boolAppender) valueBytes() int64 { return bitmap.WordsFor(int64(a.n)) * 8 }

func (a *boolAppender) plain() ColumnStorage[bool] {
	return &bitStorage{bm: bitmap.NewFromWords(a.words, int64(a.n))}
}

func (a *boolAppender) big(f *BlockFactory) (ColumnStorage[bool], error) {
	arr, err := f.allocateBits(a.n)
	if err != nil {
		return nil, err
	}
	copy(arr.Bitmap().Words(), a.words)
	return &bigBitStorage{factory: f, arr: arr}, nil
}

// bytesAppender keeps the values back to back with their offsets.
type bytesAppender struct {
	data    []byte
	offsets []int32
	hint    int
}

const avgBytesPerValue = 16

func newBytesAppender(hint int) valueAppender[[]byte] {
	return &bytesAppender{hint: hint}
}

// offsetsNeed counts the leading 0 of the offsets.
func (a *bytesAppender) offsetsNeed() int {
	return max(len(a.offsets), 1) + 1
}

func (a *bytesAppender) check(v []byte) error {
	if n := int64(a.len()) + 1; n > maxValueIndex {
		return errValueOverflow("value count", n)
	}
	if n := int64(len(a.data)) + int64(len(v)); n > maxValueIndex {
		return errValueOverflow("bytes length", n)
	}
	return nil
}

func (a *bytesAppender) bytesAfter(v []byte) int64 {
	data := grownCap(cap(a.data), len(a.data)+len(v), a.hint*avgBytesPerValue)
	offsets := grownCap(cap(a.offsets), a.offsetsNeed(), a.hint+1)
	return int64(data) + int64(offsets)*4
}

func (a *bytesAppender) append(v []byte) {
	if need := len(a.data) + len(v); need > cap(a.data) {
		data := make([]byte, len(a.data), grownCap(cap(a.data), need, a.hint*avgBytesPerValue))
		copy(data, a.data)
		a.data = data
	}
	if need := a.offsetsNeed(); need > cap(a.offsets) {
		offsets := make([]int32, len(a.offsets), grownCap(cap(a.offsets), need, a.hint+1))
		copy(offsets, a.offsets)
		a.offsets = offsets
	}
	if len(a.offsets) == 0 {
		a.offsets = append(a.offsets, 0)
	}
	a.data = append(a.data, v...)
	a.offsets = append(a.offsets, int32(len(a.data)))
}

func (a *bytesAppender) len() int {
	return max(len(a.offsets)-1, 0)
}

func (a *bytesAppender) ramBytes() int64 {
	return int64(cap(a.data)) + int64(cap(a.offsets))*4
}

func (a *bytesAppender) valueBytes() int64 {
	return int64(len(a.data)) + int64(len(a.offsets))*4
}

func (a *bytesAppender) plain() ColumnStorage[[]byte] {
	offsets := a.offsets
	if len(offsets) == 0 {
		offsets = []int32{0}
	}
	return &bytesArrayStorage{data: a.data, offsets: offsets}
}

func (a *bytesAppender) big(f *BlockFactory) (ColumnStorage[[]byte], error) {
	arr, err := f.allocateBytes(a.len(), len(a.data)/max(a.len(), 1)+1)
	if err != nil {
		return nil, err
	}
	for i := 0; i < a.len(); i++ {
		if err = arr.Append(a.data[a.offsets[i]:a.offsets[i+1]]); err != nil {
			f.Release(arr)
			return nil, err
		}
	}
	return &bigBytesStorage{factory: f, arr: arr}, nil
}

type builderState uint8

const (
	stateIdle builderState = iota
	stateInEntry
	stateBuilt
)

func errBuilt() error {
	return moerr.NewInvalidState(context.TODO(), "builder already built or closed")
}

// positionSource is the read side of a block needed to copy positions.
type positionSource interface {
	IsNull(p int) bool
	GetFirstValueIndex(p int) int
	GetValueCount(p int) int
}

// blockBuilder is the generic block builder. Its buffers are reserved
// against the factory's breaker as they grow, the reservation is handed
// back when the builder is built or closed.
type blockBuilder[T any] struct {
	factory *BlockFactory
	ops     *typeOps[T]
	state   builderState
	values  valueAppender[T]
	hint    int
	// firstValueIndexes, starting with the leading 0 once a position exists
	firstValueIndexes []int32
	nsp               *nulls.Nulls
	positionCount     int
	entryStart        int
	mvOrdering        MvOrdering
	reserved          int64
}

func newBlockBuilder[T any](f *BlockFactory, ops *typeOps[T], estimatedSize int) *blockBuilder[T] {
	estimatedSize = max(estimatedSize, 0)
	return &blockBuilder[T]{
		factory: f,
		ops:     ops,
		values:  ops.newAppender(estimatedSize),
		hint:    estimatedSize,
	}
}

// fviBytesAfter returns the bytes of the first value indexes once n
// positions are added.
func (b *blockBuilder[T]) fviBytesAfter(n int) int64 {
	need := b.positionCount + 1 + n
	return int64(grownCap(cap(b.firstValueIndexes), need, b.hint+1)) * 4
}

// ensure grows the reservation to bytes.
func (b *blockBuilder[T]) ensure(bytes int64) error {
	if bytes <= b.reserved {
		return nil
	}
	if err := b.factory.reserve(bytes - b.reserved); err != nil {
		return err
	}
	b.reserved = bytes
	return nil
}

func (b *blockBuilder[T]) closePosition() {
	need := b.positionCount + 2
	if need > cap(b.firstValueIndexes) {
		fvi := make([]int32, len(b.firstValueIndexes), grownCap(cap(b.firstValueIndexes), need, b.hint+1))
		copy(fvi, b.firstValueIndexes)
		b.firstValueIndexes = fvi
	}
	if len(b.firstValueIndexes) == 0 {
		b.firstValueIndexes = append(b.firstValueIndexes, 0)
	}
	b.firstValueIndexes = append(b.firstValueIndexes, int32(b.values.len()))
	b.positionCount++
}

func (b *blockBuilder[T]) appendValue(v T) error {
	if b.state == stateBuilt {
		return errBuilt()
	}
	if err := b.values.check(v); err != nil {
		return err
	}
	if b.state == stateInEntry {
		if err := b.ensure(b.values.bytesAfter(v) + b.fviBytesAfter(0)); err != nil {
			return err
		}
		b.values.append(v)
		return nil
	}
	if err := b.ensure(b.values.bytesAfter(v) + b.fviBytesAfter(1)); err != nil {
		return err
	}
	b.values.append(v)
	b.closePosition()
	return nil
}

func (b *blockBuilder[T]) AppendNull() error {
	switch b.state {
	case stateBuilt:
		return errBuilt()
	case stateInEntry:
		return moerr.NewInvalidState(context.TODO(), "appendNull inside an open position entry")
	}
	if err := b.ensure(b.values.ramBytes() + b.fviBytesAfter(1)); err != nil {
		return err
	}
	b.markNull()
	b.closePosition()
	return nil
}

func (b *blockBuilder[T]) markNull() {
	if b.nsp == nil {
		b.nsp = nulls.New()
	}
	b.nsp.Set(uint64(b.positionCount))
}

func (b *blockBuilder[T]) BeginPositionEntry() error {
	switch b.state {
	case stateBuilt:
		return errBuilt()
	case stateInEntry:
		return moerr.NewInvalidState(context.TODO(), "position entry already open")
	}
	b.state = stateInEntry
	b.entryStart = b.values.len()
	return nil
}

// EndPositionEntry closes the open position. An entry without values is a
// null position.
func (b *blockBuilder[T]) EndPositionEntry() error {
	switch b.state {
	case stateBuilt:
		return errBuilt()
	case stateIdle:
		return moerr.NewInvalidState(context.TODO(), "no position entry open")
	}
	if err := b.ensure(b.values.ramBytes() + b.fviBytesAfter(1)); err != nil {
		return err
	}
	if b.values.len() == b.entryStart {
		b.markNull()
	}
	b.closePosition()
	b.state = stateIdle
	return nil
}

func (b *blockBuilder[T]) SetMvOrdering(o MvOrdering) error {
	if b.state == stateBuilt {
		return errBuilt()
	}
	if o > DEDUPLICATED_AND_SORTED_ASCENDING {
		return moerr.NewInvalidArg(context.TODO(), "mvOrdering", o)
	}
	b.mvOrdering = o
	return nil
}

func (b *blockBuilder[T]) copyPosition(src positionSource, get func(int) T, p int) error {
	if src.IsNull(p) {
		return b.AppendNull()
	}
	first, n := src.GetFirstValueIndex(p), src.GetValueCount(p)
	if n == 1 {
		return b.appendValue(get(first))
	}
	if err := b.BeginPositionEntry(); err != nil {
		return err
	}
	for i := first; i < first+n; i++ {
		if err := b.appendValue(get(i)); err != nil {
			return err
		}
	}
	return b.EndPositionEntry()
}

func (b *blockBuilder[T]) CopyFrom(src Block, begin, end int) error {
	switch b.state {
	case stateBuilt:
		return errBuilt()
	case stateInEntry:
		return moerr.NewInvalidState(context.TODO(), "copy inside an open position entry")
	}
	if begin < 0 || end > src.PositionCount() || begin > end {
		return moerr.NewInvalidArg(context.TODO(), "copy range", [2]int{begin, end})
	}
	if src.ElementType() != b.ops.typ && !src.AreAllValuesNull() {
		return moerr.NewInvalidArg(context.TODO(), "block type", src.ElementType().String())
	}
	get := b.ops.reader(src)
	for p := begin; p < end; p++ {
		if err := b.copyPosition(src, get, p); err != nil {
			return err
		}
	}
	return nil
}

func (b *blockBuilder[T]) EstimatedBytes() int64 {
	return b.reserved
}

func (b *blockBuilder[T]) Close() {
	if b.state == stateBuilt {
		return
	}
	b.finish()
}

func (b *blockBuilder[T]) finish() {
	b.state = stateBuilt
	b.factory.unreserve(b.reserved)
	b.reserved = 0
}

// storage moves the values to plain or accounted storage.
func buildStorage[T any](f *BlockFactory, values valueAppender[T]) (ColumnStorage[T], error) {
	if f.maxPrimitiveArrayBytes > 0 && values.valueBytes() >= f.maxPrimitiveArrayBytes {
		return values.big(f)
	}
	return values.plain(), nil
}

func (b *blockBuilder[T]) BuildBlock() (Block, error) {
	switch b.state {
	case stateBuilt:
		return nil, errBuilt()
	case stateInEntry:
		return nil, moerr.NewInvalidState(context.TODO(), "build with an open position entry")
	}
	defer b.finish()

	if b.positionCount > 0 && b.nsp.Count() == b.positionCount {
		return b.factory.NewConstantNullBlock(b.positionCount), nil
	}
	fvi := b.firstValueIndexes
	if b.nsp == nil && b.values.len() == b.positionCount {
		fvi = nil
	}
	values, err := buildStorage(b.factory, b.values)
	if err != nil {
		return nil, err
	}
	blk, err := newValueBlock(b.factory, b.ops, values, b.positionCount, fvi, b.nsp, b.mvOrdering)
	if err != nil {
		values.Release()
		return nil, err
	}
	return b.ops.wrapBlock(blk), nil
}

// vectorBuilder builds a vector, one value per position. A fixed builder
// must receive exactly size values.
type vectorBuilder[T any] struct {
	factory  *BlockFactory
	ops      *typeOps[T]
	values   valueAppender[T]
	size     int
	fixed    bool
	built    bool
	reserved int64
}

func newVectorBuilder[T any](f *BlockFactory, ops *typeOps[T], size int, fixed bool) *vectorBuilder[T] {
	size = max(size, 0)
	return &vectorBuilder[T]{
		factory: f,
		ops:     ops,
		values:  ops.newAppender(size),
		size:    size,
		fixed:   fixed,
	}
}

func (b *vectorBuilder[T]) appendValue(v T) error {
	if b.built {
		return errBuilt()
	}
	if b.fixed && b.values.len() == b.size {
		return moerr.NewInvalidState(context.TODO(), "fixed vector builder of %d values is full", b.size)
	}
	if err := b.values.check(v); err != nil {
		return err
	}
	if bytes := b.values.bytesAfter(v); bytes > b.reserved {
		if err := b.factory.reserve(bytes - b.reserved); err != nil {
			return err
		}
		b.reserved = bytes
	}
	b.values.append(v)
	return nil
}

func (b *vectorBuilder[T]) EstimatedBytes() int64 {
	return b.reserved
}

func (b *vectorBuilder[T]) Close() {
	if b.built {
		return
	}
	b.finish()
}

func (b *vectorBuilder[T]) finish() {
	b.built = true
	b.factory.unreserve(b.reserved)
	b.reserved = 0
}

func (b *vectorBuilder[T]) build() (Vector, error) {
	if b.built {
		return nil, errBuilt()
	}
	if b.fixed && b.values.len() != b.size {
		return nil, moerr.NewInvalidState(context.TODO(), "fixed vector builder got %d of %d values", b.values.len(), b.size)
	}
	defer b.finish()
	values, err := buildStorage(b.factory, b.values)
	if err != nil {
		return nil, err
	}
	vec, err := newValueVector(b.factory, b.ops, values, b.values.len())
	if err != nil {
		values.Release()
		return nil, err
	}
	return b.ops.wrapVector(vec), nil
}
