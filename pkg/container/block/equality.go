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
	"github.com/cespare/xxhash/v2"

	"github.com/matrixorigin/moblock/pkg/container/types"
)

// nullMarker stands for a null position in a block hash.
const nullMarker int32 = -1

// Equal reports whether a and b hold the same positions: same nulls, same
// value counts and equal values, whatever their backends. Blocks with only
// null positions are equal to each other regardless of their element type.
// Doubles compare by value with -0 equal to 0 and NaN equal to NaN.
func Equal(a, b Block) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.PositionCount() != b.PositionCount() {
		return false
	}
	if a.PositionCount() == 0 || (a.AreAllValuesNull() && b.AreAllValuesNull()) {
		return true
	}
	if a.ElementType() != b.ElementType() {
		return false
	}
	switch a.ElementType() {
	case types.T_bool:
		return valuesEqual(booleanOps, a, b)
	case types.T_int32:
		return valuesEqual(intOps, a, b)
	case types.T_int64:
		return valuesEqual(longOps, a, b)
	case types.T_float64:
		return valuesEqual(doubleOps, a, b)
	case types.T_bytes:
		return valuesEqual(bytesRefOps, a, b)
	}
	return false
}

func valuesEqual[T any](ops *typeOps[T], a, b Block) bool {
	ra, rb := ops.reader(a), ops.reader(b)
	if ra == nil || rb == nil {
		return false
	}
	for p := 0; p < a.PositionCount(); p++ {
		if a.IsNull(p) != b.IsNull(p) {
			return false
		}
		if a.IsNull(p) {
			continue
		}
		n := a.GetValueCount(p)
		if n != b.GetValueCount(p) {
			return false
		}
		fa, fb := a.GetFirstValueIndex(p), b.GetFirstValueIndex(p)
		for i := 0; i < n; i++ {
			if !ops.equal(ra(fa+i), rb(fb+i)) {
				return false
			}
		}
	}
	return true
}

// Hash returns a digest of the positions of b, consistent with Equal.
func Hash(b Block) uint64 {
	d := xxhash.New()
	_, _ = d.Write(types.EncodeFixed(int32(b.PositionCount())))
	if b.AreAllValuesNull() {
		for p := 0; p < b.PositionCount(); p++ {
			_, _ = d.Write(types.EncodeFixed(nullMarker))
		}
		return d.Sum64()
	}
	switch b.ElementType() {
	case types.T_bool:
		hashValues(d, booleanOps, b)
	case types.T_int32:
		hashValues(d, intOps, b)
	case types.T_int64:
		hashValues(d, longOps, b)
	case types.T_float64:
		hashValues(d, doubleOps, b)
	case types.T_bytes:
		hashValues(d, bytesRefOps, b)
	}
	return d.Sum64()
}

func hashValues[T any](d *xxhash.Digest, ops *typeOps[T], b Block) {
	get := ops.reader(b)
	for p := 0; p < b.PositionCount(); p++ {
		if b.IsNull(p) {
			_, _ = d.Write(types.EncodeFixed(nullMarker))
			continue
		}
		n := b.GetValueCount(p)
		_, _ = d.Write(types.EncodeFixed(int32(n)))
		first := b.GetFirstValueIndex(p)
		for i := first; i < first+n; i++ {
			ops.hash(d, get(i))
		}
	}
}
