// Copyright 2021 Matrix Origin
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
	"strconv"
)

// The value helpers return n values, 0..n-1 in order or random ones.

func NewBoolValues(n int, random bool) []bool {
	vs := make([]bool, n)
	for i := range vs {
		if random {
			vs[i] = rand.Intn(2) == 0
		} else {
			vs[i] = i%2 == 0
		}
	}
	return vs
}

func NewInt32Values(n int, random bool) []int32 {
	vs := make([]int32, n)
	for i := range vs {
		v := int32(i)
		if random {
			v = rand.Int31()
		}
		vs[i] = v
	}
	return vs
}

func NewInt64Values(n int, random bool) []int64 {
	vs := make([]int64, n)
	for i := range vs {
		v := int64(i)
		if random {
			v = rand.Int63()
		}
		vs[i] = v
	}
	return vs
}

func NewFloat64Values(n int, random bool) []float64 {
	vs := make([]float64, n)
	for i := range vs {
		v := float64(i)
		if random {
			v = rand.Float64()
		}
		vs[i] = v
	}
	return vs
}

func NewBytesValues(n int, random bool) [][]byte {
	vs := make([][]byte, n)
	for i := range vs {
		v := i
		if random {
			v = rand.Int()
		}
		vs[i] = []byte(strconv.Itoa(v))
	}
	return vs
}

// Flatten concatenates byte values and returns them with their offsets.
func Flatten(vs [][]byte) ([]byte, []int32) {
	offsets := make([]int32, 0, len(vs)+1)
	offsets = append(offsets, 0)
	var data []byte
	for _, v := range vs {
		data = append(data, v...)
		offsets = append(offsets, int32(len(data)))
	}
	return data, offsets
}
