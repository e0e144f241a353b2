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
	"strings"

	"golang.org/x/exp/slices"
)

// Direction is the direction of an edge pattern
// relative to the vertex on its left.
type Direction uint8

const (
	Out  Direction = iota // (a)-[e]->(b)
	In                    // (a)<-[e]-(b)
	Both                  // (a)-[e]-(b)
)

func (d Direction) String() string {
	switch d {
	case Out:
		return "OUT"
	case In:
		return "IN"
	case Both:
		return "BOTH"
	}
	return "UNKNOWN"
}

// VertexPattern is
//
//	'(' [Var] [':' Label] ')'
type VertexPattern struct {
	Var   string
	Label string
	Pos   Position
}

func (v *VertexPattern) text(dst *strings.Builder, redact bool) {
	dst.WriteByte('(')
	if v.Var != "" {
		dst.WriteString(QuoteID(v.Var))
	}
	if v.Label != "" {
		dst.WriteByte(':')
		dst.WriteString(QuoteID(v.Label))
	}
	dst.WriteByte(')')
}

func (v *VertexPattern) equals(o *VertexPattern) bool {
	return v.Var == o.Var && v.Label == o.Label
}

// EdgePattern is an edge between
// two vertex patterns.
type EdgePattern struct {
	Var   string
	Label string
	Dir   Direction
	Pos   Position
}

func (e *EdgePattern) text(dst *strings.Builder, redact bool) {
	if e.Dir == In {
		dst.WriteString("<-")
	} else {
		dst.WriteByte('-')
	}
	if e.Var != "" || e.Label != "" {
		dst.WriteByte('[')
		if e.Var != "" {
			dst.WriteString(QuoteID(e.Var))
		}
		if e.Label != "" {
			dst.WriteByte(':')
			dst.WriteString(QuoteID(e.Label))
		}
		dst.WriteString("]-")
	}
	if e.Dir == Out {
		dst.WriteByte('>')
	}
}

func (e *EdgePattern) equals(o *EdgePattern) bool {
	return e.Var == o.Var && e.Label == o.Label && e.Dir == o.Dir
}

// Pattern is the pattern part of a MATCH
// clause: a single path, an alternation of
// paths, or a shared predicate.
type Pattern interface {
	Printable
	// Branches returns the path patterns
	// making up the pattern, in order.
	Branches() []*PathPattern
	// Position is the start of the pattern.
	Position() Position
	// Equals returns whether two patterns
	// are structurally equivalent.
	Equals(Pattern) bool

	pattern()
}

// PathPattern is an alternating sequence of
// vertices and edges, starting and ending
// with a vertex, so that
//
//	len(Edges) == len(Vertices)-1
//
// Edges[i] connects Vertices[i] and Vertices[i+1]
type PathPattern struct {
	Vertices []*VertexPattern
	Edges    []*EdgePattern
	Pos      Position
}

func (p *PathPattern) text(dst *strings.Builder, redact bool) {
	for i := range p.Vertices {
		if i > 0 && i-1 < len(p.Edges) {
			p.Edges[i-1].text(dst, redact)
		}
		p.Vertices[i].text(dst, redact)
	}
}

func (p *PathPattern) Branches() []*PathPattern { return []*PathPattern{p} }
func (p *PathPattern) Position() Position       { return p.Pos }
func (p *PathPattern) pattern()                 {}

func (p *PathPattern) Equals(x Pattern) bool {
	o, ok := x.(*PathPattern)
	return ok && p.equals(o)
}

func (p *PathPattern) equals(o *PathPattern) bool {
	return slices.EqualFunc(p.Vertices, o.Vertices, (*VertexPattern).equals) &&
		slices.EqualFunc(p.Edges, o.Edges, (*EdgePattern).equals)
}

// Start returns the first vertex of the path.
func (p *PathPattern) Start() *VertexPattern { return p.Vertices[0] }

// End returns the last vertex of the path.
func (p *PathPattern) End() *VertexPattern { return p.Vertices[len(p.Vertices)-1] }

func joinPaths(dst *strings.Builder, paths []*PathPattern, distinct, redact bool) {
	sep := " |+| "
	if distinct {
		sep = " | "
	}
	for i := range paths {
		if i > 0 {
			dst.WriteString(sep)
		}
		paths[i].text(dst, redact)
	}
}

// PathUnion is an alternation of paths
// without a shared predicate:
//
//	p1 | p2     (Distinct)
//	p1 |+| p2   (all rows)
type PathUnion struct {
	Paths    []*PathPattern
	Distinct bool
	Pos      Position
}

func (u *PathUnion) text(dst *strings.Builder, redact bool) {
	joinPaths(dst, u.Paths, u.Distinct, redact)
}

func (u *PathUnion) Branches() []*PathPattern { return u.Paths }
func (u *PathUnion) Position() Position       { return u.Pos }
func (u *PathUnion) pattern()                 {}

func (u *PathUnion) Equals(x Pattern) bool {
	o, ok := x.(*PathUnion)
	return ok && u.Distinct == o.Distinct &&
		slices.EqualFunc(u.Paths, o.Paths, (*PathPattern).equals)
}

// SharedPredicate is an alternation of
// two or more paths with a condition that
// applies to the rows of every branch:
//
//	p1 | p2 WHERE SHARED(cond)
//	p1 |+| p2 WHERE SHARED(cond)
//
// The '|' form removes duplicate rows
// and the '|+|' form keeps them.
type SharedPredicate struct {
	Paths     []*PathPattern
	Predicate Node
	Distinct  bool
	// Pos is the start of the pattern and
	// PredPos is the start of the condition.
	Pos, PredPos Position
}

// Left returns the first branch.
func (s *SharedPredicate) Left() *PathPattern { return s.Paths[0] }

// Right returns the second branch.
func (s *SharedPredicate) Right() *PathPattern { return s.Paths[1] }

// UnionAll returns whether duplicate
// rows are kept.
func (s *SharedPredicate) UnionAll() bool { return !s.Distinct }

func (s *SharedPredicate) text(dst *strings.Builder, redact bool) {
	joinPaths(dst, s.Paths, s.Distinct, redact)
	dst.WriteString(" WHERE SHARED(")
	s.Predicate.text(dst, redact)
	dst.WriteByte(')')
}

func (s *SharedPredicate) Branches() []*PathPattern { return s.Paths }
func (s *SharedPredicate) Position() Position       { return s.Pos }
func (s *SharedPredicate) pattern()                 {}

func (s *SharedPredicate) Equals(x Pattern) bool {
	o, ok := x.(*SharedPredicate)
	return ok && s.Distinct == o.Distinct &&
		slices.EqualFunc(s.Paths, o.Paths, (*PathPattern).equals) &&
		Equal(s.Predicate, o.Predicate)
}

// Binding is one output column
// of a RETURN clause.
type Binding struct {
	Expr Node
	As   string
	Pos  Position
}

func (b *Binding) text(dst *strings.Builder, redact bool) {
	b.Expr.text(dst, redact)
	if b.As != "" {
		dst.WriteString(" AS ")
		dst.WriteString(QuoteID(b.As))
	}
}

// Result returns the output name of the
// binding: the explicit alias if there is
// one, otherwise the text of the expression.
func (b *Binding) Result() string {
	if b.As != "" {
		return b.As
	}
	return ToString(b.Expr)
}

// Query is a complete MATCH statement:
//
//	MATCH Pattern [WHERE Where] [RETURN [DISTINCT] Return...]
type Query struct {
	Pattern  Pattern
	Where    Node
	WherePos Position
	// Distinct applies to the RETURN clause
	Distinct bool
	Return   []Binding
}

func (q *Query) text(dst *strings.Builder, redact bool) {
	dst.WriteString("MATCH ")
	q.Pattern.text(dst, redact)
	if q.Where != nil {
		dst.WriteString(" WHERE ")
		q.Where.text(dst, redact)
	}
	if len(q.Return) > 0 {
		dst.WriteString(" RETURN ")
		if q.Distinct {
			dst.WriteString("DISTINCT ")
		}
		for i := range q.Return {
			if i > 0 {
				dst.WriteString(", ")
			}
			q.Return[i].text(dst, redact)
		}
	}
}

// Equals returns whether two queries
// are equivalent, ignoring positions.
func (q *Query) Equals(o *Query) bool {
	if q.Distinct != o.Distinct || !Equal(q.Where, o.Where) ||
		!q.Pattern.Equals(o.Pattern) || len(q.Return) != len(o.Return) {
		return false
	}
	for i := range q.Return {
		if q.Return[i].As != o.Return[i].As || !q.Return[i].Expr.Equals(o.Return[i].Expr) {
			return false
		}
	}
	return true
}

// Qualified returns the root identifiers of the
// qualified names (a in a.age) referenced by e,
// in order of first appearance and without
// duplicates.
func Qualified(e Node) []string {
	var out []string
	Walk(WalkFunc(func(n Node) bool {
		d, ok := n.(*Dot)
		if !ok {
			return true
		}
		if v := d.Variable(); v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
		return false
	}), e)
	return out
}

// Free returns every pattern variable referenced
// by e, whether bare (a) or qualified (a.age),
// in order of first appearance.
func Free(e Node) []string {
	var out []string
	add := func(s string) {
		if s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	Walk(WalkFunc(func(n Node) bool {
		switch n := n.(type) {
		case Ident:
			add(string(n))
		case *Dot:
			add(n.Variable())
			return false
		}
		return true
	}), e)
	return out
}
