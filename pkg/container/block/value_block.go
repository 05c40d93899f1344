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
	"fmt"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/matrixorigin/moblock/pkg/container/nulls"
	"github.com/matrixorigin/moblock/pkg/container/types"
)

// typeOps carries what the generic block code needs to know about one
// value type.
type typeOps[T any] struct {
	typ types.T
	// name prefixes the block and vector names, e.g. "Int"
	name        string
	newAppender func(hint int) valueAppender[T]
	wrapBlock   func(*valueBlock[T]) Block
	wrapVector  func(*valueVector[T]) Vector
	// reader returns a value reader over any block of this type, including
	// the constant null block.
	reader func(b Block) func(i int) T
	less   func(a, b T) bool
	equal  func(a, b T) bool
	hash   func(d *xxhash.Digest, v T)
	format func(v T) string
}

// valueBlock is the generic block: a positions layout over a storage.
type valueBlock[T any] struct {
	positions
	ops      *typeOps[T]
	factory  *BlockFactory
	values   ColumnStorage[T]
	released atomic.Bool
}

func newValueBlock[T any](
	f *BlockFactory,
	ops *typeOps[T],
	values ColumnStorage[T],
	positionCount int,
	firstValueIndexes []int32,
	nsp *nulls.Nulls,
	ordering MvOrdering,
) (*valueBlock[T], error) {
	ps, err := newPositions(positionCount, firstValueIndexes, nsp, ordering, values.Len())
	if err != nil {
		return nil, err
	}
	return &valueBlock[T]{
		positions: ps,
		ops:       ops,
		factory:   f,
		values:    values,
	}, nil
}

func (b *valueBlock[T]) get(i int) T {
	return b.values.Get(i)
}

func (b *valueBlock[T]) ElementType() types.T {
	return b.ops.typ
}

func (b *valueBlock[T]) AsVector() Vector {
	if !b.dense {
		return nil
	}
	return b.ops.wrapVector(&valueVector[T]{
		ops:           b.ops,
		factory:       b.factory,
		positionCount: b.positionCount,
		values:        b.values,
	})
}

func (b *valueBlock[T]) Filter(positions ...int) (Block, error) {
	if err := checkSelection(positions, b.positionCount); err != nil {
		return nil, err
	}
	builder := newBlockBuilder(b.factory, b.ops, len(positions))
	defer builder.Close()
	for _, p := range positions {
		if err := builder.copyPosition(b, b.get, p); err != nil {
			return nil, err
		}
	}
	if err := builder.SetMvOrdering(b.mvOrdering); err != nil {
		return nil, err
	}
	return builder.BuildBlock()
}

func (b *valueBlock[T]) Expand() (Block, error) {
	builder := newBlockBuilder(b.factory, b.ops, b.GetTotalValueCount())
	defer builder.Close()
	for p := 0; p < b.positionCount; p++ {
		if b.nsp.Contains(uint64(p)) {
			if err := builder.AppendNull(); err != nil {
				return nil, err
			}
			continue
		}
		first := b.GetFirstValueIndex(p)
		for i := first; i < first+b.GetValueCount(p); i++ {
			if err := builder.appendValue(b.get(i)); err != nil {
				return nil, err
			}
		}
	}
	return builder.BuildBlock()
}

func (b *valueBlock[T]) RamBytesUsed() int64 {
	return blockOverhead + b.positions.ramBytesUsed() + b.values.RamBytesUsed()
}

func (b *valueBlock[T]) Release() {
	if !b.released.CompareAndSwap(false, true) {
		b.factory.doubleRelease(b.name())
		return
	}
	b.values.Release()
}

func (b *valueBlock[T]) IsReleased() bool {
	return b.released.Load()
}

func (b *valueBlock[T]) BlockFactory() *BlockFactory {
	return b.factory
}

func (b *valueBlock[T]) name() string {
	if b.values.Accounted() {
		return b.ops.name + "BigArrayBlock"
	}
	return b.ops.name + "ArrayBlock"
}

const maxShownValues = 16

func (b *valueBlock[T]) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s[positions=%d, mvOrdering=%s", b.name(), b.positionCount, b.mvOrdering)
	if b.nsp != nil {
		fmt.Fprintf(&buf, ", nulls=%s", nulls.String(b.nsp))
	}
	if b.firstValueIndexes != nil {
		fmt.Fprintf(&buf, ", firstValueIndexes=%v", b.firstValueIndexes[:min(len(b.firstValueIndexes), maxShownValues)])
	}
	buf.WriteString(", values=[")
	n := b.GetTotalValueCount()
	for i := 0; i < min(n, maxShownValues); i++ {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(b.ops.format(b.get(i)))
	}
	if n > maxShownValues {
		buf.WriteString(", ...")
	}
	buf.WriteString("]]")
	return buf.String()
}

// valueVector is the generic vector: one value per position.
type valueVector[T any] struct {
	ops           *typeOps[T]
	factory       *BlockFactory
	positionCount int
	values        ColumnStorage[T]
	released      atomic.Bool
}

func newValueVector[T any](f *BlockFactory, ops *typeOps[T], values ColumnStorage[T], positionCount int) (*valueVector[T], error) {
	if _, err := newPositions(positionCount, nil, nil, UNORDERED, values.Len()); err != nil {
		return nil, err
	}
	return &valueVector[T]{
		ops:           ops,
		factory:       f,
		positionCount: positionCount,
		values:        values,
	}, nil
}

func (v *valueVector[T]) get(p int) T {
	return v.values.Get(p)
}

func (v *valueVector[T]) ElementType() types.T {
	return v.ops.typ
}

func (v *valueVector[T]) PositionCount() int {
	return v.positionCount
}

func (v *valueVector[T]) IsConstant() bool {
	_, ok := v.values.(*constStorage[T])
	return ok
}

func (v *valueVector[T]) AsBlock() Block {
	return v.ops.wrapBlock(&valueBlock[T]{
		positions: singleValuedPositions(v.positionCount),
		ops:       v.ops,
		factory:   v.factory,
		values:    v.values,
	})
}

func (v *valueVector[T]) Filter(positions ...int) (Vector, error) {
	if err := checkSelection(positions, v.positionCount); err != nil {
		return nil, err
	}
	builder := newVectorBuilder(v.factory, v.ops, len(positions), true)
	defer builder.Close()
	for _, p := range positions {
		if err := builder.appendValue(v.get(p)); err != nil {
			return nil, err
		}
	}
	return builder.build()
}

func (v *valueVector[T]) RamBytesUsed() int64 {
	return vectorOverhead + v.values.RamBytesUsed()
}

func (v *valueVector[T]) Release() {
	if !v.released.CompareAndSwap(false, true) {
		v.factory.doubleRelease(v.name())
		return
	}
	v.values.Release()
}

func (v *valueVector[T]) IsReleased() bool {
	return v.released.Load()
}

func (v *valueVector[T]) BlockFactory() *BlockFactory {
	return v.factory
}

func (v *valueVector[T]) name() string {
	switch {
	case v.IsConstant():
		return "Constant" + v.ops.name + "Vector"
	case v.values.Accounted():
		return v.ops.name + "BigArrayVector"
	}
	return v.ops.name + "ArrayVector"
}

func (v *valueVector[T]) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s[positions=%d, values=[", v.name(), v.positionCount)
	n := v.positionCount
	if v.IsConstant() {
		n = min(n, 1)
	}
	for i := 0; i < min(n, maxShownValues); i++ {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(v.ops.format(v.get(i)))
	}
	if n > maxShownValues {
		buf.WriteString(", ...")
	}
	buf.WriteString("]]")
	return buf.String()
}
