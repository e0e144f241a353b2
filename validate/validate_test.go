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

package validate

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/SnellerInc/gqlmatch/expr"
	"github.com/SnellerInc/gqlmatch/expr/gql"
	"github.com/SnellerInc/gqlmatch/schema"
)

const modern = `
vertices:
  person: {name: STRING, age: INTEGER}
  software: {name: STRING, lang: STRING}
edges:
  knows: {weight: DOUBLE}
  created: {weight: DOUBLE}
`

func testGraph(t *testing.T) *schema.Graph {
	g, err := schema.DecodeGraph([]byte(modern))
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func parse(t *testing.T, text string) *expr.Query {
	q, err := gql.Parse([]byte(text))
	if err != nil {
		t.Fatalf("parsing %q: %s", text, err)
	}
	return q
}

func TestSharedPredicate(t *testing.T) {
	ctx := &Context{Graph: testGraph(t)}
	text := "MATCH (a:person)->(b) | (a:person)->(c) WHERE SHARED(a.age > 25)"
	q := parse(t, text)
	res, err := Query(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Pattern.IsUnion() {
		t.Error("shared predicate should have a union record")
	}
	want := "UnionPath(a VERTEX(person), b VERTEX, c VERTEX)"
	if got := res.Pattern.String(); got != want {
		t.Errorf("got  %s", got)
		t.Errorf("want %s", want)
	}
	if len(res.Branches) != 2 || res.Branches[0].String() != "Path(a VERTEX(person), b VERTEX)" {
		t.Errorf("unexpected branches %v", res.Branches)
	}
	if len(res.Output) != 3 {
		t.Errorf("unexpected output %v", res.Output)
	}
	if expr.ToString(q) != text {
		t.Errorf("validation modified the query: %s", expr.ToString(q))
	}
	if ctx.Match != nil {
		t.Error("validation modified the caller's context")
	}
}

// a variable missing from any one of three
// branches is an error naming that variable
func TestSharedMissingVariable(t *testing.T) {
	ctx := &Context{Graph: testGraph(t)}
	for missing := 0; missing < 3; missing++ {
		t.Run(fmt.Sprintf("branch-%d", missing), func(t *testing.T) {
			var paths []string
			for i := 0; i < 3; i++ {
				v := "b"
				if i == missing {
					v = "z"
				}
				paths = append(paths, fmt.Sprintf("(a:person)-[e:knows]->(%s:person)", v))
			}
			text := "MATCH " + strings.Join(paths, " | ") + " WHERE SHARED(a.age > b.age)"
			_, err := Query(ctx, parse(t, text))
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("got error %v", err)
			}
			if ve.Name != "b" || !strings.Contains(ve.Msg, "not available in all path patterns") {
				t.Errorf("unexpected error %s", ve)
			}
			if want := strings.Index(text, "a.age"); ve.Pos.Offset != want {
				t.Errorf("error at %d, want %d", ve.Pos.Offset, want)
			}
		})
	}
	// the same query referencing only
	// shared variables is fine
	text := "MATCH (a:person)->(b) | (a:person)->(z) | (a:person)-[e]->(y) WHERE SHARED(a.age > 25 AND a.name <> 'vadas')"
	if _, err := Query(ctx, parse(t, text)); err != nil {
		t.Errorf("unexpected error: %s", err)
	}
}

func TestValidationErrors(t *testing.T) {
	testcases := []struct {
		query string
		name  string
		msg   string
		// want *expr.TypeError inside
		typeErr bool
	}{
		{
			query: "MATCH (a:person)->(b) | (a:software)->(b) WHERE SHARED(a.name = 'x')",
			name:  "a",
			msg:   "incompatible types across path patterns: VERTEX(person) vs VERTEX(software)",
		},
		{
			query: "MATCH (x)-[a]->(b) | (a)->(b) WHERE SHARED(a.id > 1)",
			name:  "a",
			msg:   "EDGE vs VERTEX",
		},
		{
			query: "MATCH (a)->(b) | (a:person)->(c) | (a:software)->(d) WHERE SHARED(a.name = 'x')",
			name:  "a",
			msg:   "VERTEX(person) vs VERTEX(software)",
		},
		{
			query: "MATCH (a:person)->(b) | (a:person)->(c) WHERE SHARED(a.age IS TYPED decimal)",
			name:  "decimal",
			msg:   "unknown type name",
		},
		{
			query: "MATCH (a:person) WHERE NOT_TYPED(a.age, int)",
			name:  "int",
			msg:   "unknown type name",
		},
		{
			query: "MATCH (a:robot)",
			name:  "robot",
			msg:   "unknown vertex label",
		},
		{
			query: "MATCH (a)-[:likes]->(b)",
			name:  "likes",
			msg:   "unknown edge label",
		},
		{
			query: "MATCH (a:person) WHERE a.lang = 'java'",
			name:  "lang",
			msg:   "is not defined for VERTEX(person)",
		},
		{
			query: "MATCH (a) WHERE z.age > 1",
			name:  "z",
			msg:   "unknown variable",
		},
		{
			query: "MATCH (a)->(b) | (a)->(c) WHERE SHARED(q.age > 1)",
			name:  "q",
			msg:   "unknown variable",
		},
		{
			query:   "MATCH (a:person) WHERE a.name > 3",
			msg:     "ill-typed",
			typeErr: true,
		},
		{
			query: "MATCH (a:person) WHERE a.age + 1",
			msg:   "rather than BOOLEAN",
		},
		{
			query: "MATCH (a)->(b) RETURN a, b AS a",
			name:  "a",
			msg:   "duplicate output column",
		},
		{
			query: "MATCH (a)-[a]->(b)",
			name:  "a",
			msg:   "bound to both VERTEX and EDGE",
		},
		{
			query: "MATCH (a:person)->(a:software)",
			name:  "a",
			msg:   "bound to both",
		},
		{
			query: "MATCH (a:person) RETURN LOWER(a.age)",
			typeErr: true,
		},
	}
	ctx := &Context{Graph: testGraph(t)}
	for i := range testcases {
		tc := &testcases[i]
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			_, err := Query(ctx, parse(t, tc.query))
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("%s: got error %v", tc.query, err)
			}
			if tc.name != "" && ve.Name != tc.name {
				t.Errorf("error names %q, want %q (%s)", ve.Name, tc.name, ve)
			}
			if !strings.Contains(ve.Error(), tc.msg) {
				t.Errorf("error %q does not contain %q", ve, tc.msg)
			}
			var te *expr.TypeError
			if errors.As(err, &te) != tc.typeErr {
				t.Errorf("type error: %v", err)
			}
		})
	}
}

func TestTypeNamePosition(t *testing.T) {
	text := "MATCH (a:person)->(b) | (a:person)->(c)\nWHERE SHARED(a.age IS TYPED decimal)"
	_, err := Query(&Context{}, parse(t, text))
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("got error %v", err)
	}
	want := expr.Position{Offset: strings.Index(text, "decimal"), Line: 2, Column: 29}
	if ve.Pos != want {
		t.Errorf("error at %+v, want %+v", ve.Pos, want)
	}
}

func TestOutput(t *testing.T) {
	ctx := &Context{Graph: testGraph(t)}
	q := parse(t, "MATCH (a:person)-[e:knows]->(b:person) RETURN a.name, e.weight AS w, b, LENGTH(a.name), a.age + e.weight, COALESCE(a.name, 1)")
	res, err := Query(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	want := []schema.Field{
		{Name: "a.name", Type: schema.FieldType{Type: expr.TypeString}},
		{Name: "w", Type: schema.FieldType{Type: expr.TypeDouble}},
		{Name: "b", Type: schema.FieldType{Type: expr.TypeVertex, Label: "person"}},
		{Name: "LENGTH(a.name)", Type: schema.FieldType{Type: expr.TypeInteger}},
		{Name: "a.age + e.weight", Type: schema.FieldType{Type: expr.TypeDouble}},
		{Name: "COALESCE(a.name, 1)", Type: schema.FieldType{}},
	}
	if len(res.Output) != len(want) {
		t.Fatalf("got %v", res.Output)
	}
	for i := range want {
		if res.Output[i] != want[i] {
			t.Errorf("column %d: got %v, want %v", i, res.Output[i], want[i])
		}
	}
}

func TestCaseSensitivity(t *testing.T) {
	g := testGraph(t)
	q := parse(t, "MATCH (A:PERSON) WHERE a.AGE > 1")
	res, err := Query(&Context{Graph: g}, q)
	if err != nil {
		t.Fatal(err)
	}
	if f := res.Pattern.At(0); f.Name != "A" || f.Type.Label != "person" {
		t.Errorf("unexpected field %v", f)
	}
	_, err = Query(&Context{Graph: g, CaseSensitive: true}, q)
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Name != "PERSON" {
		t.Errorf("got %v", err)
	}
}

func TestSchemaless(t *testing.T) {
	q := parse(t, "MATCH (a)->(b) | (a)->(c) WHERE SHARED(a.anything > 1 AND a.other IS TYPED LONG)")
	if _, err := Query(nil, q); err != nil {
		t.Fatal(err)
	}
}

type badResolver struct{}

func (badResolver) Resolve(*Context, *expr.PathPattern) (Shape, error) {
	return expr.Position{}, nil
}

type countingResolver struct {
	seen []int
}

func (c *countingResolver) Resolve(ctx *Context, p *expr.PathPattern) (Shape, error) {
	c.seen = append(c.seen, len(ctx.Match.Resolved()))
	return GraphResolver{}.Resolve(ctx, p)
}

func TestResolverContract(t *testing.T) {
	q := parse(t, "MATCH (a)->(b) |+| (a)->(c) |+| (a)->(d) WHERE SHARED(a.x = 1)")
	_, err := Query(&Context{Resolver: badResolver{}}, q)
	var ie *InvariantError
	if !errors.As(err, &ie) {
		t.Fatalf("got %v, want an InvariantError", err)
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		t.Error("invariant error reported as a validation error")
	}

	cr := &countingResolver{}
	if _, err := Query(&Context{Resolver: cr}, q); err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(cr.seen) != "[0 1 2]" {
		t.Errorf("siblings seen while resolving: %v", cr.seen)
	}
}

func TestPathUnion(t *testing.T) {
	q := parse(t, "MATCH (a:person)-[e:knows]->(b) |+| (a:person)-[e:created]->(c) WHERE c.lang = 'java'")
	res, err := Query(&Context{Graph: testGraph(t)}, q)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Pattern.IsUnion() || res.Pattern.Len() != 4 {
		t.Errorf("unexpected record %s", res.Pattern)
	}
	// e keeps its first-seen type
	if f, _ := res.Pattern.Field("e", true); f.Type.Label != "knows" {
		t.Errorf("e: %s", f.Type)
	}
}

func TestSharedFold(t *testing.T) {
	q := parse(t, "MATCH (A:person)->(b) | (a:person)->(c) WHERE SHARED(a.age > 25)")
	testCases := []struct {
		caseSensitive bool
		want          string
	}{
		{false, "UnionPath(A VERTEX(person), b VERTEX, c VERTEX)"},
		{true, ""},
	}
	for i := range testCases {
		tc := testCases[i]
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			res, err := Query(&Context{Graph: testGraph(t), CaseSensitive: tc.caseSensitive}, q)
			if tc.want == "" {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("expected a validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got := res.Pattern.String(); got != tc.want {
				t.Errorf("got  %s", got)
				t.Errorf("want %s", tc.want)
			}
		})
	}
}
