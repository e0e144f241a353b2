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

package pir

import (
	"fmt"
	"strings"
	"testing"

	"github.com/SnellerInc/gqlmatch/expr"
	"github.com/SnellerInc/gqlmatch/expr/gql"
	"github.com/SnellerInc/gqlmatch/schema"
	"github.com/SnellerInc/gqlmatch/validate"
)

const modern = `
vertices:
  person: {name: STRING, age: INTEGER}
  software: {name: STRING, lang: STRING}
edges:
  knows: {weight: DOUBLE}
  created: {weight: DOUBLE}
`

func build(t *testing.T, text string) Node {
	t.Helper()
	g, err := schema.DecodeGraph([]byte(modern))
	if err != nil {
		t.Fatal(err)
	}
	q, err := gql.Parse([]byte(text))
	if err != nil {
		t.Fatalf("parsing %q: %s", text, err)
	}
	res, err := validate.Query(&validate.Context{Graph: g}, q)
	if err != nil {
		t.Fatalf("validating %q: %s", text, err)
	}
	n, err := Build(res)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func lines(s ...string) string {
	return strings.Join(s, "\n") + "\n"
}

func TestBuild(t *testing.T) {
	testCases := []struct {
		query string
		plan  string
	}{
		{
			query: "MATCH (a:person)->(b) | (a:person)->(c) WHERE SHARED(a.age > 25)",
			plan: lines(
				"SHARED PREDICATE condition=a.age > 25 distinct=true UnionPath(a VERTEX(person), b VERTEX, c VERTEX)",
				"\tleft: PATH (a:person)->(b) Path(a VERTEX(person), b VERTEX)",
				"\tright: PATH (a:person)->(c) Path(a VERTEX(person), c VERTEX)",
			),
		},
		{
			query: "MATCH (a)-[e:knows]->(b) |+| (a)-[e:knows]->(c) |+| (a)<-[e:knows]-(d) WHERE SHARED(e.weight > 0.5)",
			plan: lines(
				"SHARED PREDICATE condition=e.weight > 0.5 distinct=false UnionPath(a VERTEX, e EDGE(knows), b VERTEX, c VERTEX, d VERTEX)",
				"\tleft: PATH (a)-[e:knows]->(b) Path(a VERTEX, e EDGE(knows), b VERTEX)",
				"\tright: PATH (a)-[e:knows]->(c) Path(a VERTEX, e EDGE(knows), c VERTEX)",
				"\tinput 2: PATH (a)<-[e:knows]-(d) Path(a VERTEX, e EDGE(knows), d VERTEX)",
			),
		},
		{
			query: "MATCH (a:person)-[:knows]->(b:person) WHERE b.age IS TYPED INTEGER RETURN DISTINCT a.name AS name, b",
			plan: lines(
				"PROJECT DISTINCT a.name AS name, b",
				"\tFILTER b.age IS TYPED INTEGER",
				"\t\tPATH (a:person)-[:knows]->(b:person) Path(a VERTEX(person), b VERTEX(person))",
			),
		},
		{
			query: "MATCH (a:person) | (a:software)",
			plan: lines(
				"UNION DISTINCT UnionPath(a VERTEX(person))",
				"\tPATH (a:person) Path(a VERTEX(person))",
				"\tPATH (a:software) Path(a VERTEX(software))",
			),
		},
	}
	for i := range testCases {
		tc := testCases[i]
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			n := build(t, tc.query)
			if got := String(n); got != tc.plan {
				t.Errorf("got plan\n%s\nwant\n%s", got, tc.plan)
			}
		})
	}
}

func TestSharedPredicateRule(t *testing.T) {
	for _, distinct := range []bool{true, false} {
		op := "|+|"
		if distinct {
			op = "|"
		}
		text := "MATCH (a:person)->(b) " + op + " (a:person)->(c:software) WHERE SHARED(a.age > 25)"
		n := build(t, text)
		sp, ok := n.(*SharedPredicate)
		if !ok {
			t.Fatalf("built %T", n)
		}
		before := String(sp)
		out, ok := SharedPredicateRule{}.Apply(sp)
		if !ok {
			t.Fatal("rule did not match")
		}
		if String(sp) != before {
			t.Error("the rule modified its input")
		}
		f, ok := out.(*Filter)
		if !ok {
			t.Fatalf("rewrote to %T", out)
		}
		if !expr.Equal(f.Where, sp.Cond) {
			t.Errorf("condition %s, want %s", expr.ToString(f.Where), expr.ToString(sp.Cond))
		}
		u, ok := f.Input().(*Union)
		if !ok {
			t.Fatalf("filter input is %T", f.Input())
		}
		if u.All != !distinct {
			t.Errorf("distinct=%v produced all=%v", distinct, u.All)
		}
		if !u.Schema().Equals(sp.Schema()) || !f.Schema().Equals(sp.Schema()) {
			t.Error("rewrite changed the schema")
		}
		if len(u.Inputs()) != 2 || u.Inputs()[0] != sp.Left() || u.Inputs()[1] != sp.Right() {
			t.Error("rewrite changed the inputs")
		}
		// the output does not match again
		Walk(out, func(n Node) bool {
			if _, ok := (SharedPredicateRule{}).Apply(n); ok {
				t.Errorf("rule matches its own output at %T", n)
			}
			return true
		})
	}
}

func TestOptimize(t *testing.T) {
	testCases := []struct {
		query string
		plan  string
	}{
		{
			query: "MATCH (a:person)->(b) |+| (a:person)->(c) WHERE SHARED(a.age > 25)",
			plan: lines(
				"FILTER a.age > 25",
				"\tUNION ALL UnionPath(a VERTEX(person), b VERTEX, c VERTEX)",
				"\t\tPATH (a:person)->(b) Path(a VERTEX(person), b VERTEX)",
				"\t\tPATH (a:person)->(c) Path(a VERTEX(person), c VERTEX)",
			),
		},
		{
			query: "MATCH (a:person) WHERE TRUE",
			plan: lines(
				"PATH (a:person) Path(a VERTEX(person))",
			),
		},
	}
	for i := range testCases {
		tc := testCases[i]
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			n := build(t, tc.query)
			before := String(n)
			out, err := Optimize(n, DefaultRegistry())
			if err != nil {
				t.Fatal(err)
			}
			if got := String(out); got != tc.plan {
				t.Errorf("got plan\n%s\nwant\n%s", got, tc.plan)
			}
			if String(n) != before {
				t.Error("Optimize modified its input")
			}
			// optimizing again is a no-op
			again, err := Optimize(out, DefaultRegistry())
			if err != nil {
				t.Fatal(err)
			}
			if !Equal(again, out) {
				t.Error("second pass changed the plan")
			}
		})
	}
}

func TestFilterMerge(t *testing.T) {
	path := build(t, "MATCH (a:person)")
	c1 := expr.Compare(expr.Greater, &expr.Dot{Inner: expr.Ident("a"), Field: "age"}, expr.Integer(1))
	c2 := expr.Is(&expr.Dot{Inner: expr.Ident("a"), Field: "name"}, expr.IsNotNull)
	n := NewFilter(NewFilter(NewFilter(path, c1), expr.Bool(true)), c2)
	out, err := Optimize(n, nil)
	if err != nil {
		t.Fatal(err)
	}
	f, ok := out.(*Filter)
	if !ok {
		t.Fatalf("got %T", out)
	}
	if f.Input() != path {
		t.Errorf("filter input is %T", f.Input())
	}
	want := expr.And(c1, c2)
	if !expr.Equal(f.Where, want) {
		t.Errorf("got %s, want %s", expr.ToString(f.Where), expr.ToString(want))
	}
}

type restless struct{}

func (restless) Name() string { return "restless" }

func (restless) Apply(n Node) (Node, bool) {
	p, ok := n.(*Path)
	if !ok {
		return n, false
	}
	return NewPath(p.Pattern, p.Schema()), true
}

func TestOptimizeDiverges(t *testing.T) {
	n := build(t, "MATCH (a:person)")
	_, err := Optimize(n, NewRegistry(restless{}))
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestRegistry(t *testing.T) {
	reg := DefaultRegistry()
	var names []string
	for _, r := range reg.Rules() {
		names = append(names, r.Name())
		got, ok := LookupRule(r.Name())
		if !ok || got.Name() != r.Name() {
			t.Errorf("LookupRule(%q) failed", r.Name())
		}
	}
	if got := strings.Join(names, ","); got != "shared-predicate,filter-true,filter-merge" {
		t.Errorf("default rules are %s", got)
	}
	// registries are independent
	reg.Register(restless{})
	if len(DefaultRegistry().Rules()) != 3 {
		t.Error("Register modified the default registry")
	}
	defer func() {
		if recover() == nil {
			t.Error("expected a panic registering a duplicate rule")
		}
	}()
	reg.Register(restless{})
}

func TestTerminal(t *testing.T) {
	n := build(t, "MATCH (a:person)->(b:person) | (a:person)->(c:software) WHERE SHARED(a.age > 25)")
	if n.Terminal() != VertexElem {
		t.Errorf("terminal is %s", n.Terminal())
	}
	sp := n.(*SharedPredicate)
	cp := sp.Copy([]Node{sp.Right(), sp.Left()}, sp.Schema())
	if cp == sp || cp.Left() != sp.Right() || cp.Right() != sp.Left() {
		t.Error("Copy did not substitute the inputs")
	}
	if cp.Distinct != sp.Distinct || !expr.Equal(cp.Cond, sp.Cond) {
		t.Error("Copy changed the condition or distinctness")
	}
	if Equal(cp, sp) {
		t.Error("swapped inputs should not be equal")
	}
	if !Equal(sp.Copy(sp.Inputs(), sp.Schema()), sp) {
		t.Error("identical copy should be equal")
	}
}

type foreign struct{ Path }

func TestClosedFamily(t *testing.T) {
	n := &foreign{}
	for name, fn := range map[string]func(){
		"Walk":       func() { Walk(n, func(Node) bool { return true }) },
		"Transform":  func() { Transform(n, func(n Node) Node { return n }) },
		"WithInputs": func() { WithInputs(n, nil) },
		"Describe":   func() { String(n) },
	} {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected a panic")
				}
			}()
			fn()
		})
	}
}
