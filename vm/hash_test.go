// Copyright 2023 Sneller, Inc.
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

package vm

import (
	"fmt"
	"math"
	"testing"
)

func TestHashEqual(t *testing.T) {
	v1 := &Vertex{ID: 1, Label: "person"}
	v1b := &Vertex{ID: 1, Label: "person", Props: map[string]any{"x": 1}}
	v2 := &Vertex{ID: 2, Label: "person"}
	e := &Edge{ID: 9, Src: 1, Dst: 2}

	testCases := []struct {
		a, b  Values
		equal bool
	}{
		{Values{v1, nil}, Values{v1b, nil}, true},
		{Values{v1, nil}, Values{v2, nil}, false},
		{Values{v1, nil}, Values{nil, v1}, false},
		{Values{int32(3)}, Values{int64(3)}, true},
		{Values{int32(3)}, Values{float64(3)}, true},
		{Values{int32(3)}, Values{float64(3.5)}, false},
		{Values{int64(1 << 53)}, Values{float64(1 << 53)}, true},
		{Values{int64(1<<53 + 1)}, Values{float64(1 << 53)}, false},
		{Values{int64(math.MinInt64)}, Values{float64(math.MinInt64)}, true},
		{Values{int64(math.MaxInt64)}, Values{float64(math.MaxInt64)}, false},
		{Values{int64(1)}, Values{math.NaN()}, false},
		{Values{float64(3.5)}, Values{float32(3.5)}, true},
		{Values{"3"}, Values{int32(3)}, false},
		{Values{[]byte("ab")}, Values{[]byte("ab")}, true},
		{Values{[]byte("ab")}, Values{"ab"}, false},
		{Values{true}, Values{true}, true},
		{Values{e}, Values{&Edge{ID: 9}}, true},
		{Values{&Path{Vertices: []*Vertex{v1, v2}, Edges: []*Edge{e}}}, Values{&Path{Vertices: []*Vertex{v1b, v2}, Edges: []*Edge{e}}}, true},
		{Values{&Path{Vertices: []*Vertex{v1}}}, Values{&Path{Vertices: []*Vertex{v2}}}, false},
		{Values{v1}, Values{v1, nil}, false},
	}
	for i := range testCases {
		tc := testCases[i]
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			if got := Equal(tc.a, tc.b); got != tc.equal {
				t.Fatalf("Equal = %v, want %v", got, tc.equal)
			}
			if Equal(tc.b, tc.a) != tc.equal {
				t.Fatal("Equal is not symmetric")
			}
			if tc.equal && Hash(tc.a) != Hash(tc.b) {
				t.Fatal("equal rows hash differently")
			}
		})
	}
}

func TestHashOrder(t *testing.T) {
	a := Values{int32(1), int32(2)}
	b := Values{int32(2), int32(1)}
	if Hash(a) == Hash(b) {
		t.Error("hash should depend on field order")
	}
}

func TestFormat(t *testing.T) {
	testCases := []struct {
		in   any
		want string
	}{
		{nil, "NULL"},
		{"it's", `'it\'s'`},
		{true, "TRUE"},
		{int8(-3), "-3"},
		{float64(0.25), "0.25"},
		{[]byte{0xca, 0xfe}, "x'cafe'"},
		{&Vertex{ID: 4, Label: "person"}, "v[4:person]"},
		{&Edge{ID: 7, Label: "knows", Src: 1, Dst: 4}, "e[7:knows 1->4]"},
	}
	for i := range testCases {
		tc := testCases[i]
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			if got := Format(tc.in); got != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}
