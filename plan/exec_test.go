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

package plan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/SnellerInc/gqlmatch/expr/gql"
	"github.com/SnellerInc/gqlmatch/graph"
	"github.com/SnellerInc/gqlmatch/plan/pir"
	"github.com/SnellerInc/gqlmatch/validate"
	"github.com/SnellerInc/gqlmatch/vm"
	"golang.org/x/exp/slices"
)

func modern(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.Load("../graph/testdata/modern.yaml")
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func lower(t *testing.T, g *graph.Graph, text string, l vm.Lattice) *Tree {
	t.Helper()
	q, err := gql.Parse([]byte(text))
	if err != nil {
		t.Fatalf("parsing %q: %s", text, err)
	}
	res, err := validate.Query(&validate.Context{Graph: g.Schema}, q)
	if err != nil {
		t.Fatalf("validating %q: %s", text, err)
	}
	n, err := pir.Build(res)
	if err != nil {
		t.Fatal(err)
	}
	n, err = pir.Optimize(n, pir.DefaultRegistry())
	if err != nil {
		t.Fatal(err)
	}
	tree, err := New(n, &Options{Hint: res.Hint(), Lattice: l})
	if err != nil {
		t.Fatal(err)
	}
	return tree
}

func run(t *testing.T, g *graph.Graph, text string, l vm.Lattice) *Result {
	t.Helper()
	res, err := Exec(context.Background(), lower(t, g, text, l), g)
	if err != nil {
		t.Fatalf("executing %q: %s", text, err)
	}
	return res
}

func TestExec(t *testing.T) {
	g := modern(t)
	testCases := []struct {
		query   string
		lattice vm.Lattice
		rows    int
	}{
		// persons older than 25 are marko (four
		// out edges, two of them to lop) and josh
		// (two out edges)
		{"MATCH (a:person)->(b) | (a:person)->(c) WHERE SHARED(a.age > 25)", vm.Widening, 10},
		{"MATCH (a:person)->(b) |+| (a:person)->(c) WHERE SHARED(a.age > 25)", vm.Widening, 12},
		{"MATCH (a:person)->(b) |+| (a:person)->(c) WHERE SHARED(a.age > 25) RETURN DISTINCT a.name AS name", vm.Widening, 2},
		{"MATCH (a:person)-[:knows]->(b:person) | (a:person)-[:created]->(c:software) WHERE SHARED(a.name = 'josh' OR a.age < 30)", vm.Widening, 6},
		{"MATCH (a)-[e]->(b) | (b)<-[e]-(a) WHERE SHARED(e.weight >= 1)", vm.Widening, 2},
		{"MATCH (a)-[e]->(b) WHERE e.weight IS TYPED FLOAT", vm.Widening, 0},
		{"MATCH (a)-[e]->(b) WHERE e.weight IS TYPED FLOAT", vm.AnyNumeric, 7},
		{"MATCH (a)-[e]->(b) WHERE e.weight IS NOT TYPED DOUBLE", vm.Widening, 0},
		{"MATCH (a)-[e:likes]->(b) WHERE TYPED(e.since, INTEGER)", vm.Widening, 1},
		{"MATCH (a)-[e]->(b) WHERE NOT_TYPED(e.since, SHORT)", vm.Widening, 6},
		{"MATCH (a:software)-[:created]-(b)", vm.Widening, 4},
		{"MATCH (a)-[:knows]->(b)<-[:knows]-(a)", vm.Widening, 2},
		{"MATCH (a:person) | (a:software)", vm.Widening, 6},
		{"MATCH (a:person) |+| (a:person)", vm.Widening, 8},
		{"MATCH (a) WHERE a.lang IN ('java') RETURN a.name", vm.Widening, 2},
		{"MATCH (a:person) WHERE a.age IS NULL", vm.Widening, 0},
		{"MATCH (a)->(b) RETURN DISTINCT b", vm.Widening, 4},
	}
	for i := range testCases {
		tc := testCases[i]
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			res := run(t, g, tc.query, tc.lattice)
			if len(res.Rows) != tc.rows {
				var buf bytes.Buffer
				res.Write(&buf)
				t.Errorf("%s: got %d rows, want %d\n%s", tc.query, len(res.Rows), tc.rows, buf.String())
			}
		})
	}
}

// rows renders rows as sorted strings
func rows(res *Result) []string {
	var out []string
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i := range row {
			cells[i] = vm.Format(row[i])
		}
		out = append(out, strings.Join(cells, " "))
	}
	sort.Strings(out)
	return out
}

// the union of per-branch filters is
// the same as a filter over the union
func TestSharedEquivalence(t *testing.T) {
	g := modern(t)
	cond := "a.age > 25 AND b.name <> 'lop'"
	shared := run(t, g, "MATCH (a:person)->(b) |+| (a:person)-[:knows]->(b) WHERE SHARED("+cond+")", vm.Widening)
	first := run(t, g, "MATCH (a:person)->(b) WHERE "+cond, vm.Widening)
	second := run(t, g, "MATCH (a:person)-[:knows]->(b) WHERE "+cond, vm.Widening)
	want := append(rows(first), rows(second)...)
	sort.Strings(want)
	got := rows(shared)
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("got\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
	for _, row := range shared.Rows {
		a := row[0].(*vm.Vertex)
		if a.Props["age"].(int32) <= 25 {
			t.Errorf("row %v does not satisfy the condition", row)
		}
	}
}

func TestWrite(t *testing.T) {
	g := modern(t)
	res := run(t, g, "MATCH (a:person)-[:knows]->(b:person) RETURN a.name, b.age", vm.Widening)
	var buf bytes.Buffer
	if err := res.Write(&buf); err != nil {
		t.Fatal(err)
	}
	want := "a.name\tb.age\n'marko'\t25\n'marko'\t32\n"
	if buf.String() != want {
		t.Errorf("got\n%s\nwant\n%s", buf.String(), want)
	}
	if res.Stats.RowsMatched != 2 {
		t.Errorf("matched %d rows", res.Stats.RowsMatched)
	}
}

func TestTreeString(t *testing.T) {
	g := modern(t)
	tree := lower(t, g, "MATCH (a:person)->(b) | (a:person)->(c) WHERE SHARED(a.age > 25)", vm.Widening)
	want := strings.Join([]string{
		"FILTER (a.age > 25)",
		"\tUNION DISTINCT",
		"\t\tSCAN (a:person)->(b)",
		"\t\tSCAN (a:person)->(c)",
	}, "\n") + "\n"
	if got := tree.String(); got != want {
		t.Errorf("got\n%s\nwant\n%s", got, want)
	}
	if got := strings.Join(tree.Columns(), ","); got != "a,b,c" {
		t.Errorf("columns %s", got)
	}
}

func TestUnrewritten(t *testing.T) {
	g := modern(t)
	q, err := gql.Parse([]byte("MATCH (a:person)->(b) | (a:person)->(c) WHERE SHARED(a.age > 25)"))
	if err != nil {
		t.Fatal(err)
	}
	res, err := validate.Query(&validate.Context{Graph: g.Schema}, q)
	if err != nil {
		t.Fatal(err)
	}
	n, err := pir.Build(res)
	if err != nil {
		t.Fatal(err)
	}
	_, err = New(n, nil)
	if !errors.Is(err, ErrNotSupported) {
		t.Fatalf("unexpected error %v", err)
	}
	// without the shared predicate rule
	// the node survives optimization
	n, err = pir.Optimize(n, pir.NewRegistry(pir.FilterMergeRule{}))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(n, nil); !errors.Is(err, ErrNotSupported) {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestCanceled(t *testing.T) {
	g := modern(t)
	tree := lower(t, g, "MATCH (a)->(b)", vm.Widening)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Exec(ctx, tree, g)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestCaseFolding(t *testing.T) {
	g := modern(t)
	testCases := []struct {
		query, same string
		columns     []string
	}{
		{
			query:   "MATCH (a:person)->(b) | (a:person)->(c) WHERE SHARED(a.AGE > 25)",
			same:    "MATCH (a:person)->(b) | (a:person)->(c) WHERE SHARED(a.age > 25)",
			columns: []string{"a", "b", "c"},
		},
		{
			query:   "MATCH (a:PERSON)->(b) WHERE a.AGE IS TYPED INTEGER",
			same:    "MATCH (a:person)->(b) WHERE a.age IS TYPED INTEGER",
			columns: []string{"a", "b"},
		},
		{
			query:   "MATCH (A:person)->(b) | (a:person)->(c) WHERE SHARED(a.age > 25)",
			same:    "MATCH (a:person)->(b) | (a:person)->(c) WHERE SHARED(a.age > 25)",
			columns: []string{"A", "b", "c"},
		},
		{
			query:   "MATCH (a)-[e:KNOWS]->(b) WHERE e.Weight > 0.5 RETURN b.NAME",
			same:    "MATCH (a)-[e:knows]->(b) WHERE e.weight > 0.5 RETURN b.name",
			columns: []string{"b.NAME"},
		},
	}
	for i := range testCases {
		tc := testCases[i]
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			got := run(t, g, tc.query, vm.Widening)
			want := run(t, g, tc.same, vm.Widening)
			if len(got.Rows) == 0 {
				t.Fatalf("%s: no rows", tc.query)
			}
			if !slices.Equal(got.Columns, tc.columns) {
				t.Errorf("columns %v, want %v", got.Columns, tc.columns)
			}
			if g, w := strings.Join(rows(got), "\n"), strings.Join(rows(want), "\n"); g != w {
				t.Errorf("got\n%s\nwant\n%s", g, w)
			}
		})
	}
}
