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

// Package validate checks pattern queries
// against the variables bound by their path
// patterns and, optionally, a graph schema.
//
// Validation never modifies the query; the
// validated schemas are returned in a Result.
package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/SnellerInc/gqlmatch/expr"
	"github.com/SnellerInc/gqlmatch/schema"
)

// Result is the outcome of validating a query.
type Result struct {
	Query *expr.Query
	// Pattern is the record of the whole
	// pattern; for alternations and shared
	// predicates it is the union of Branches.
	Pattern *schema.PathRecord
	// Branches holds the record of each path
	// of the pattern, in order.
	Branches []*schema.PathRecord
	// Output are the columns of the query:
	// the RETURN bindings in order, or every
	// pattern variable if there is no RETURN.
	Output []schema.Field
	// CaseSensitive is the name matching
	// mode that the query was validated with.
	CaseSensitive bool
	// Graph is the schema used for validation.
	Graph *schema.Graph
}

// Hint returns a type hint for expressions
// over the variables of the pattern.
func (r *Result) Hint() expr.Hint {
	return &scope{
		graph:         r.Graph,
		caseSensitive: r.CaseSensitive,
		record:        r.Pattern,
		branches:      r.Branches,
	}
}

// Query validates q in the given context.
// Returned errors are *ValidationError for
// invalid queries and *InvariantError for
// collaborator failures.
func Query(ctx *Context, q *expr.Query) (*Result, error) {
	if ctx == nil {
		ctx = &Context{}
	}
	cc := ctx.clause()
	var (
		record   *schema.PathRecord
		branches []*schema.PathRecord
		err      error
	)
	switch p := q.Pattern.(type) {
	case *expr.PathPattern:
		record, err = resolve(cc, p)
		branches = []*schema.PathRecord{record}
	case *expr.PathUnion:
		branches, err = resolveAll(cc, p.Paths)
		if err == nil {
			record = schema.Union(cc.CaseSensitive, branches...)
		}
	case *expr.SharedPredicate:
		record, err = Shared(cc, p)
		branches = cc.Match.Resolved()
	case nil:
		return nil, &InvariantError{Msg: "query without a pattern"}
	default:
		return nil, &InvariantError{Msg: fmt.Sprintf("unexpected pattern %T", p)}
	}
	if err != nil {
		return nil, err
	}
	res := &Result{
		Query:         q,
		Pattern:       record,
		Branches:      branches,
		CaseSensitive: cc.CaseSensitive,
		Graph:         cc.Graph,
	}
	s := res.Hint().(*scope)
	if q.Where != nil {
		if err := s.condition(q.Where, q.WherePos); err != nil {
			return nil, err
		}
	}
	res.Output, err = s.output(q)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func resolve(ctx *Context, p *expr.PathPattern) (*schema.PathRecord, error) {
	shape, err := ctx.resolver().Resolve(ctx, p)
	if err != nil {
		return nil, err
	}
	rec, ok := shape.(*schema.PathRecord)
	if !ok || rec == nil {
		return nil, &InvariantError{
			Msg: fmt.Sprintf("path pattern %s resolved to %T instead of a path record", expr.ToString(p), shape),
		}
	}
	return rec, nil
}

func resolveAll(ctx *Context, paths []*expr.PathPattern) ([]*schema.PathRecord, error) {
	out := make([]*schema.PathRecord, 0, len(paths))
	for _, p := range paths {
		rec, err := resolve(ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Shared validates a shared predicate pattern.
// Each branch is resolved independently and
// added to ctx.Match; then the predicate is
// validated against the union of the branch
// variables, and every variable that the predicate
// qualifies (a in a.age) must be bound by every
// branch with comparable types. The result is
// the union of the branch records.
func Shared(ctx *Context, sp *expr.SharedPredicate) (*schema.PathRecord, error) {
	if len(sp.Paths) < 2 {
		return nil, &InvariantError{Msg: "shared predicate with fewer than two branches"}
	}
	if ctx.Match == nil {
		ctx = ctx.clause()
	}
	for _, p := range sp.Paths {
		rec, err := resolve(ctx, p)
		if err != nil {
			return nil, err
		}
		ctx.Match.AddResolved(rec)
	}
	branches := ctx.Match.Resolved()
	s := &scope{
		graph:         ctx.Graph,
		caseSensitive: ctx.CaseSensitive,
		record:        schema.Union(ctx.CaseSensitive, branches...),
		branches:      branches,
	}
	if err := s.condition(sp.Predicate, sp.PredPos); err != nil {
		return nil, err
	}
	for _, v := range expr.Qualified(sp.Predicate) {
		var common schema.Field
		for i, b := range branches {
			f, ok := b.Field(v, ctx.CaseSensitive)
			if !ok {
				return nil, errorf(sp.PredPos, v,
					"variable %q is not available in all path patterns (missing from branch %d)", v, i+1)
			}
			if i == 0 {
				common = f
				continue
			}
			if !common.Type.Comparable(f.Type) {
				return nil, errorf(sp.PredPos, v,
					"variable %q has incompatible types across path patterns: %s vs %s", v, common.Type, f.Type)
			}
			if common.Type.Label == "" {
				common.Type.Label = f.Type.Label
			}
		}
	}
	return s.record, nil
}

// scope is the set of variables visible to an
// expression; it implements expr.Hint
type scope struct {
	graph         *schema.Graph
	caseSensitive bool
	record        *schema.PathRecord
	branches      []*schema.PathRecord
}

func sameName(a, b string, caseSensitive bool) bool {
	if caseSensitive {
		return a == b
	}
	return strings.EqualFold(a, b)
}

// TypeOf implements expr.Hint
func (s *scope) TypeOf(e expr.Node) expr.TypeSet {
	switch e := e.(type) {
	case expr.Ident:
		f, ok := s.record.Field(string(e), s.caseSensitive)
		if !ok {
			return expr.AnyTypes
		}
		return expr.Set(f.Type.Type)
	case *expr.Dot:
		if _, ok := e.Inner.(expr.Ident); !ok {
			return expr.AnyTypes
		}
		ts := s.property(e.Variable(), e.Field)
		if ts == 0 {
			return expr.AnyTypes
		}
		return ts
	}
	return expr.AnyTypes
}

// property returns the possible types of v.name
// across every branch that binds v
func (s *scope) property(v, name string) expr.TypeSet {
	if s.graph == nil {
		return expr.AnyTypes
	}
	var ts expr.TypeSet
	for _, b := range s.branches {
		f, ok := b.Field(v, s.caseSensitive)
		if !ok || !(f.Type.Type == expr.TypeVertex || f.Type.Type == expr.TypeEdge) {
			continue
		}
		ts |= s.graph.PropertyTypes(f.Type.Type, f.Type.Label, name, s.caseSensitive)
	}
	return ts
}

// check validates the names used in e and
// then type-checks it; pos is the start of e
func (s *scope) check(e expr.Node, pos expr.Position) error {
	var err error
	expr.Walk(expr.WalkFunc(func(n expr.Node) bool {
		if err != nil {
			return false
		}
		switch n := n.(type) {
		case *expr.TypePredicate:
			if n.Type == expr.InvalidType {
				p := n.Pos
				if !p.IsValid() {
					p = pos
				}
				err = errorf(p, n.TypeName, "unknown type name %q", n.TypeName)
				return false
			}
		case expr.Ident:
			err = s.variable(string(n), pos)
		case *expr.Dot:
			err = s.dot(n, pos)
			return false
		}
		return true
	}), e)
	if err != nil {
		return err
	}
	if err := expr.CheckHint(e, s); err != nil {
		ve := errorf(pos, "", "%s", err)
		var te *expr.TypeError
		if errors.As(err, &te) {
			ve.Name = expr.ToString(te.At)
		}
		ve.Err = err
		return ve
	}
	return nil
}

// condition validates e as a boolean condition
func (s *scope) condition(e expr.Node, pos expr.Position) error {
	if err := s.check(e, pos); err != nil {
		return err
	}
	ts := expr.TypeOf(e, s)
	if !ts.Contains(expr.TypeBoolean) && !ts.Only(expr.NullTypes) {
		return errorf(pos, "", "condition %s has type %s rather than BOOLEAN", expr.ToString(e), ts)
	}
	return nil
}

func (s *scope) variable(v string, pos expr.Position) error {
	if _, ok := s.record.Field(v, s.caseSensitive); !ok {
		return errorf(pos, v, "unknown variable %q", v)
	}
	return nil
}

func (s *scope) dot(d *expr.Dot, pos expr.Position) error {
	v, ok := d.Inner.(expr.Ident)
	if !ok {
		return errorf(pos, d.Field, "cannot access field %q of %s", d.Field, expr.ToString(d.Inner))
	}
	f, ok := s.record.Field(string(v), s.caseSensitive)
	if !ok {
		return errorf(pos, string(v), "unknown variable %q", string(v))
	}
	if f.Type.Type != expr.TypeVertex && f.Type.Type != expr.TypeEdge {
		return errorf(pos, string(v), "variable %q of type %s has no properties", string(v), f.Type)
	}
	if s.property(string(v), d.Field) == 0 {
		return errorf(pos, d.Field, "property %q is not defined for %s", d.Field, f.Type)
	}
	return nil
}

// output computes the output columns of q
func (s *scope) output(q *expr.Query) ([]schema.Field, error) {
	if len(q.Return) == 0 {
		return s.record.Fields(), nil
	}
	out := make([]schema.Field, 0, len(q.Return))
	for i := range q.Return {
		b := &q.Return[i]
		if err := s.check(b.Expr, b.Pos); err != nil {
			return nil, err
		}
		name := b.Result()
		for j := range out {
			if sameName(out[j].Name, name, s.caseSensitive) {
				return nil, errorf(b.Pos, name, "duplicate output column %q", name)
			}
		}
		out = append(out, schema.Field{Name: name, Type: s.declared(b.Expr)})
	}
	return out, nil
}

// declared picks the declared type of
// an output expression
func (s *scope) declared(e expr.Node) schema.FieldType {
	if id, ok := e.(expr.Ident); ok {
		f, _ := s.record.Field(string(id), s.caseSensitive)
		return f.Type
	}
	ts := expr.TypeOf(e, s) &^ expr.NullTypes
	var found expr.Type
	for t := expr.TypeByte; t <= expr.TypePath; t++ {
		if !ts.Contains(t) {
			continue
		}
		if found != expr.InvalidType && !(found.Numeric() && t.Numeric()) {
			return schema.FieldType{}
		}
		found = t
	}
	return schema.FieldType{Type: found}
}
