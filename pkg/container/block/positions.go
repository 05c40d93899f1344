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
	"fmt"

	"github.com/matrixorigin/moblock/pkg/common/moerr"
	"github.com/matrixorigin/moblock/pkg/container/nulls"
)

// positions is the type independent core of a block: the position to
// value range mapping, the nulls and the ordering claim.
type positions struct {
	positionCount int
	// firstValueIndexes has positionCount+1 entries, nil when the value
	// index of every position is the position itself.
	firstValueIndexes []int32
	// nil when no position is null
	nsp        *nulls.Nulls
	mvOrdering MvOrdering

	multivalued bool
	dense       bool
	allNull     bool
}

// newPositions validates the layout of a block holding valueCount values.
// A non-null position without values is marked null, the same way a builder
// treats an empty entry. nsp is cloned before being marked.
func newPositions(positionCount int, firstValueIndexes []int32, nsp *nulls.Nulls, ordering MvOrdering, valueCount int) (positions, error) {
	ctx := context.TODO()
	if positionCount < 0 {
		return positions{}, moerr.NewInvalidArg(ctx, "positionCount", positionCount)
	}
	if ordering > DEDUPLICATED_AND_SORTED_ASCENDING {
		return positions{}, moerr.NewInvalidArg(ctx, "mvOrdering", ordering)
	}
	if !nsp.Any() {
		nsp = nil
	} else if last, _ := nsp.Max(); last >= uint64(positionCount) {
		return positions{}, moerr.NewInvalidArg(ctx, "nulls", fmt.Sprintf("null position %d beyond %d positions", last, positionCount))
	}

	ps := positions{
		positionCount:     positionCount,
		firstValueIndexes: firstValueIndexes,
		mvOrdering:        ordering,
		dense:             true,
	}
	if firstValueIndexes == nil {
		if valueCount < positionCount {
			return positions{}, moerr.NewInvalidArg(ctx, "values", fmt.Sprintf("%d values for %d positions", valueCount, positionCount))
		}
		ps.setNulls(nsp)
		return ps, nil
	}

	if len(firstValueIndexes) != positionCount+1 {
		return positions{}, moerr.NewInvalidArg(ctx, "firstValueIndexes",
			fmt.Sprintf("length %d for %d positions", len(firstValueIndexes), positionCount))
	}
	if firstValueIndexes[0] != 0 {
		return positions{}, moerr.NewInvalidArg(ctx, "firstValueIndexes", fmt.Sprintf("starts at %d", firstValueIndexes[0]))
	}
	var empty []uint64
	for p := 0; p < positionCount; p++ {
		n := firstValueIndexes[p+1] - firstValueIndexes[p]
		if n < 0 {
			return positions{}, moerr.NewInvalidArg(ctx, "firstValueIndexes", fmt.Sprintf("decreasing at position %d", p))
		}
		if firstValueIndexes[p] != int32(p) {
			ps.dense = false
		}
		isNull := nsp.Contains(uint64(p))
		if n == 0 && !isNull {
			empty = append(empty, uint64(p))
		}
		if n > 1 && !isNull {
			ps.multivalued = true
		}
	}
	if int(firstValueIndexes[positionCount]) > valueCount {
		return positions{}, moerr.NewInvalidArg(ctx, "values",
			fmt.Sprintf("%d values for a value range of %d", valueCount, firstValueIndexes[positionCount]))
	}
	if firstValueIndexes[positionCount] != int32(positionCount) {
		ps.dense = false
	}
	if len(empty) > 0 {
		if nsp == nil {
			nsp = nulls.Build(empty...)
		} else {
			nsp = nsp.Clone()
			nulls.Add(nsp, empty...)
		}
	}
	ps.setNulls(nsp)
	return ps, nil
}

func (ps *positions) setNulls(nsp *nulls.Nulls) {
	ps.nsp = nsp
	if nsp != nil {
		ps.dense = false
	}
	ps.allNull = ps.positionCount > 0 && nsp.Count() == ps.positionCount
}

// singleValuedPositions is the layout of a vector.
func singleValuedPositions(positionCount int) positions {
	return positions{
		positionCount: positionCount,
		dense:         true,
	}
}

func (ps *positions) checkPosition(p int) {
	if p < 0 || p >= ps.positionCount {
		panic(moerr.NewOutOfRangeNoCtx("position", "%d is not in [0, %d)", p, ps.positionCount))
	}
}

// checkSelection returns an OutOfRange error for the first selected
// position outside [0, positionCount).
func checkSelection(sels []int, positionCount int) error {
	for _, p := range sels {
		if p < 0 || p >= positionCount {
			return moerr.NewOutOfRange(context.TODO(), "position", "%d is not in [0, %d)", p, positionCount)
		}
	}
	return nil
}

func (ps *positions) PositionCount() int {
	return ps.positionCount
}

func (ps *positions) IsNull(p int) bool {
	ps.checkPosition(p)
	return ps.nsp.Contains(uint64(p))
}

func (ps *positions) MayHaveNulls() bool {
	return ps.nsp != nil
}

func (ps *positions) AreAllValuesNull() bool {
	return ps.allNull
}

func (ps *positions) GetFirstValueIndex(p int) int {
	ps.checkPosition(p)
	if ps.firstValueIndexes == nil {
		return p
	}
	return int(ps.firstValueIndexes[p])
}

func (ps *positions) GetValueCount(p int) int {
	ps.checkPosition(p)
	if ps.nsp.Contains(uint64(p)) {
		return 0
	}
	if ps.firstValueIndexes == nil {
		return 1
	}
	return int(ps.firstValueIndexes[p+1] - ps.firstValueIndexes[p])
}

func (ps *positions) GetTotalValueCount() int {
	if ps.firstValueIndexes == nil {
		return ps.positionCount
	}
	return int(ps.firstValueIndexes[ps.positionCount])
}

func (ps *positions) MayHaveMultivaluedFields() bool {
	return ps.multivalued
}

func (ps *positions) MvOrdering() MvOrdering {
	return ps.mvOrdering
}

// Nulls exposes the null positions, nil when there is none.
func (ps *positions) Nulls() *nulls.Nulls {
	return ps.nsp
}

func (ps *positions) ramBytesUsed() int64 {
	return int64(len(ps.firstValueIndexes))*4 + int64(ps.nsp.Size())
}
