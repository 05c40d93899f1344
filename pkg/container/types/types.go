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

package types

import (
	"golang.org/x/exp/constraints"
)

// T is the element type of a block.
type T uint8

const (
	T_any T = iota
	T_bool
	T_int32
	T_int64
	T_float64
	T_bytes
	// T_null is the element type of blocks with only null positions.
	T_null
)

func (t T) String() string {
	switch t {
	case T_bool:
		return "BOOL"
	case T_int32:
		return "INT"
	case T_int64:
		return "BIGINT"
	case T_float64:
		return "DOUBLE"
	case T_bytes:
		return "BYTES"
	case T_null:
		return "NULL"
	}
	return "ANY"
}

// FixedLength returns the in-memory size of one value, -1 for variable
// length types and 0 for types without value storage.
func (t T) FixedLength() int {
	switch t {
	case T_bool:
		return 1
	case T_int32:
		return 4
	case T_int64, T_float64:
		return 8
	case T_bytes:
		return -1
	}
	return 0
}

func (t T) IsFixedLen() bool {
	return t.FixedLength() > 0
}

// Number is a numeric value type stored in a flat array.
type Number interface {
	constraints.Integer | constraints.Float
}

// FixedSizeT is any value type stored in a flat array.
type FixedSizeT interface {
	bool | Number
}

// TypeOf returns the element type of a Go value type.
func TypeOf[V FixedSizeT]() T {
	var v V
	switch any(v).(type) {
	case bool:
		return T_bool
	case int32:
		return T_int32
	case int64:
		return T_int64
	case float64:
		return T_float64
	}
	return T_any
}
