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
	"github.com/matrixorigin/moblock/pkg/container/types"
)

// VerifyMvOrdering reports whether the ordering claim of b holds. A block
// claiming DEDUPLICATED_AND_SORTED_ASCENDING must have strictly ascending
// values in every non-null position. UNORDERED always holds.
func VerifyMvOrdering(b Block) bool {
	if b.MvOrdering() == UNORDERED || b.AreAllValuesNull() {
		return true
	}
	switch b.ElementType() {
	case types.T_bool:
		return sortedAscending(booleanOps, b)
	case types.T_int32:
		return sortedAscending(intOps, b)
	case types.T_int64:
		return sortedAscending(longOps, b)
	case types.T_float64:
		return sortedAscending(doubleOps, b)
	case types.T_bytes:
		return sortedAscending(bytesRefOps, b)
	}
	return false
}

func sortedAscending[T any](ops *typeOps[T], b Block) bool {
	get := ops.reader(b)
	for p := 0; p < b.PositionCount(); p++ {
		if b.IsNull(p) {
			continue
		}
		first := b.GetFirstValueIndex(p)
		for i := first + 1; i < first+b.GetValueCount(p); i++ {
			if !ops.less(get(i-1), get(i)) {
				return false
			}
		}
	}
	return true
}
