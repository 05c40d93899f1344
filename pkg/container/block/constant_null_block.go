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
	"fmt"
	"sync/atomic"

	"github.com/matrixorigin/moblock/pkg/common/moerr"
	"github.com/matrixorigin/moblock/pkg/container/types"
)

// ConstantNullBlock is a block whose every position is null. It has no
// value storage and stands in for a block of any element type.
type ConstantNullBlock struct {
	factory       *BlockFactory
	positionCount int
	released      atomic.Bool
}

var (
	_ BooleanBlock  = new(ConstantNullBlock)
	_ IntBlock      = new(ConstantNullBlock)
	_ LongBlock     = new(ConstantNullBlock)
	_ DoubleBlock   = new(ConstantNullBlock)
	_ BytesRefBlock = new(ConstantNullBlock)
)

// NewConstantNullBlock returns a block of positionCount null positions.
func (f *BlockFactory) NewConstantNullBlock(positionCount int) Block {
	return &ConstantNullBlock{factory: f, positionCount: max(positionCount, 0)}
}

func (b *ConstantNullBlock) checkPosition(p int) {
	if p < 0 || p >= b.positionCount {
		panic(moerr.NewOutOfRangeNoCtx("position", "%d is not in [0, %d)", p, b.positionCount))
	}
}

func (b *ConstantNullBlock) ElementType() types.T {
	return types.T_null
}

func (b *ConstantNullBlock) PositionCount() int {
	return b.positionCount
}

func (b *ConstantNullBlock) IsNull(p int) bool {
	b.checkPosition(p)
	return true
}

func (b *ConstantNullBlock) MayHaveNulls() bool {
	return b.positionCount > 0
}

func (b *ConstantNullBlock) AreAllValuesNull() bool {
	return true
}

func (b *ConstantNullBlock) GetFirstValueIndex(p int) int {
	b.checkPosition(p)
	return 0
}

func (b *ConstantNullBlock) GetValueCount(p int) int {
	b.checkPosition(p)
	return 0
}

func (b *ConstantNullBlock) GetTotalValueCount() int {
	return 0
}

func (b *ConstantNullBlock) MayHaveMultivaluedFields() bool {
	return false
}

func (b *ConstantNullBlock) MvOrdering() MvOrdering {
	return UNORDERED
}

func (b *ConstantNullBlock) AsVector() Vector {
	return nil
}

func (b *ConstantNullBlock) Filter(positions ...int) (Block, error) {
	if err := checkSelection(positions, b.positionCount); err != nil {
		return nil, err
	}
	return b.factory.NewConstantNullBlock(len(positions)), nil
}

func (b *ConstantNullBlock) Expand() (Block, error) {
	return b.factory.NewConstantNullBlock(b.positionCount), nil
}

func (b *ConstantNullBlock) RamBytesUsed() int64 {
	return blockOverhead
}

func (b *ConstantNullBlock) Release() {
	if !b.released.CompareAndSwap(false, true) {
		b.factory.doubleRelease("ConstantNullBlock")
	}
}

func (b *ConstantNullBlock) IsReleased() bool {
	return b.released.Load()
}

func (b *ConstantNullBlock) BlockFactory() *BlockFactory {
	return b.factory
}

func (b *ConstantNullBlock) String() string {
	return fmt.Sprintf("ConstantNullBlock[positions=%d]", b.positionCount)
}

func (b *ConstantNullBlock) noValue() {
	panic(moerr.NewInvalidStateNoCtx("ConstantNullBlock holds no values"))
}

func (b *ConstantNullBlock) GetBoolean(int) bool {
	b.noValue()
	return false
}

func (b *ConstantNullBlock) GetInt(int) int32 {
	b.noValue()
	return 0
}

func (b *ConstantNullBlock) GetLong(int) int64 {
	b.noValue()
	return 0
}

func (b *ConstantNullBlock) GetDouble(int) float64 {
	b.noValue()
	return 0
}

func (b *ConstantNullBlock) GetBytesRef(int, *types.BytesRef) *types.BytesRef {
	b.noValue()
	return nil
}
