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

package expr

import (
	"errors"
	"fmt"
	"testing"
)

// hint for a graph with vertex variables a and b
// whose age property is an INTEGER and name a STRING
var testHint = HintFn(func(n Node) TypeSet {
	switch n := n.(type) {
	case Ident:
		return Set(TypeVertex)
	case *Dot:
		switch n.Field {
		case "age":
			return Set(TypeInteger, TypeNull)
		case "name":
			return StringTypes
		case "weight":
			return Set(TypeDouble, TypeNull)
		}
	}
	return AnyTypes
})

func TestCheckExpressions(t *testing.T) {
	testcases := []struct {
		expr Node
		kind error
	}{
		{
			// NOT 3
			expr: &Not{Integer(3)},
			kind: &TypeError{},
		},
		{
			expr: And(Bool(true), String("xyz")),
			kind: &TypeError{},
		},
		{
			expr: Add(path("a", "age"), Bool(false)),
			kind: &TypeError{},
		},
		{
			expr: Compare(Equals, path("a", "name"), Integer(3)),
			kind: &TypeError{},
		},
		{
			expr: Compare(Less, path("a"), path("b")),
			kind: &TypeError{},
		},
		{
			expr: Call(Lower, path("a", "age")),
			kind: &TypeError{},
		},
		{
			expr: Call(Length),
			kind: &SyntaxError{},
		},
		{
			expr: Call(Coalesce),
			kind: &SyntaxError{},
		},
		{
			expr: Typed(path("a", "age"), "decimal"),
			kind: &TypeError{},
		},
		{
			expr: &Member{Arg: path("a", "age"), Values: []Constant{String("x")}},
			kind: &TypeError{},
		},
		{
			expr: &Neg{path("a", "name")},
			kind: &TypeError{},
		},
	}
	for i := range testcases {
		tc := &testcases[i]
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			err := CheckHint(tc.expr, testHint)
			if err == nil {
				t.Fatalf("no error for %s", ToString(tc.expr))
			}
			switch tc.kind.(type) {
			case *TypeError:
				var te *TypeError
				if !errors.As(err, &te) {
					t.Errorf("%s: got %T, want *TypeError", ToString(tc.expr), err)
				}
			case *SyntaxError:
				var se *SyntaxError
				if !errors.As(err, &se) {
					t.Errorf("%s: got %T, want *SyntaxError", ToString(tc.expr), err)
				}
			}
		})
	}
}

func TestCheckOK(t *testing.T) {
	ok := []Node{
		Compare(Greater, path("a", "age"), Integer(25)),
		Compare(Greater, path("a", "age"), path("a", "weight")),
		And(Compare(Equals, path("a", "name"), String("marko")), Is(path("b", "age"), IsNotNull)),
		Compare(Equals, path("a", "name"), Null{}),
		Compare(Equals, path("a"), path("b")),
		Typed(path("a", "age"), "LONG"),
		NotTyped(path("a", "name"), "bytes"),
		Compare(Greater, Call(Length, path("a", "name")), Integer(3)),
		Compare(Less, Add(path("a", "age"), Integer(1)), Float(30.5)),
		Or(Typed(path("a", "age"), "INTEGER"), &Not{Typed(path("b", "age"), "SHORT")}),
		&Member{Arg: path("a", "age"), Values: []Constant{Integer(29), Integer(32)}},
	}
	for i := range ok {
		if err := CheckHint(ok[i], testHint); err != nil {
			t.Errorf("%s: unexpected error %s", ToString(ok[i]), err)
		}
	}
}

func TestTypeOf(t *testing.T) {
	testcases := []struct {
		in   Node
		want TypeSet
	}{
		{Integer(3), Set(TypeInteger)},
		{Integer(1 << 40), Set(TypeLong)},
		{Float(1.5), Set(TypeDouble)},
		{Typed(path("a", "age"), "INTEGER"), Set(TypeBoolean)},
		{Is(path("a", "age"), IsNull), Set(TypeBoolean)},
		{Compare(Less, path("a", "age"), Integer(1)), LogicalTypes},
		{Add(path("a", "age"), Float(1)), Set(TypeDouble, TypeNull)},
		{Add(path("a", "age"), Integer(1)), Set(TypeInteger, TypeNull)},
		{Call(Length, path("a", "name")), Set(TypeInteger, TypeNull)},
	}
	for i := range testcases {
		got := TypeOf(testcases[i].in, testHint)
		if got != testcases[i].want {
			t.Errorf("TypeOf(%s) = %s, want %s", ToString(testcases[i].in), got, testcases[i].want)
		}
	}
}

func TestTypeNames(t *testing.T) {
	for _, name := range []string{"byte", "Short", "INTEGER", "long", "float", "double", "string", "boolean", "binary_string", "vertex", "edge", "path"} {
		typ, ok := ParseType(name)
		if !ok {
			t.Errorf("%s not recognized", name)
			continue
		}
		back, ok := ParseType(typ.String())
		if !ok || back != typ {
			t.Errorf("%s does not round-trip", name)
		}
	}
	aliases := map[string]Type{
		"varchar": TypeString,
		"BYTES":   TypeBinaryString,
	}
	for name, want := range aliases {
		if got, _ := ParseType(name); got != want {
			t.Errorf("ParseType(%s) = %s, want %s", name, got, want)
		}
	}
	for _, name := range []string{"int", "decimal", "null", "invalid", ""} {
		if _, ok := ParseType(name); ok {
			t.Errorf("%q should not be a type name", name)
		}
	}
}

func TestTypeSetComparable(t *testing.T) {
	testcases := []struct {
		a, b TypeSet
		want bool
	}{
		{Set(TypeByte), Set(TypeDouble), true},
		{Set(TypeString), StringTypes, true},
		{Set(TypeString), Set(TypeInteger), false},
		{NullTypes, Set(TypeVertex), true},
		{Set(TypeVertex), Set(TypeEdge), false},
		{Set(TypeBoolean, TypeNull), Set(TypeString, TypeNull), false},
	}
	for i := range testcases {
		tc := &testcases[i]
		if got := tc.a.Comparable(tc.b); got != tc.want {
			t.Errorf("%s comparable %s = %v", tc.a, tc.b, got)
		}
	}
	if s := Set(TypeInteger, TypeNull).String(); s != "INTEGER|NULL" {
		t.Errorf("got %s", s)
	}
}
