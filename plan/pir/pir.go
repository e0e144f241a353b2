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

// Package pir defines the logical intermediate
// representation of a MATCH query: a tree of
// match nodes that rules rewrite into primitive
// union and filter operators.
package pir

import (
	"fmt"

	"github.com/SnellerInc/gqlmatch/expr"
	"github.com/SnellerInc/gqlmatch/schema"
	"golang.org/x/exp/slices"
)

// Elem is the kind of graph element
// that a node's rows terminate in.
type Elem uint8

const (
	VertexElem Elem = iota
	EdgeElem
	PathElem
)

func (e Elem) String() string {
	switch e {
	case VertexElem:
		return "vertex"
	case EdgeElem:
		return "edge"
	case PathElem:
		return "path"
	}
	return fmt.Sprintf("Elem(%d)", uint8(e))
}

// Node is a logical match node.
//
// The set of Node implementations is closed;
// nodes are immutable once built, and every
// transformation produces new nodes.
type Node interface {
	// Schema is the record of each output row.
	Schema() *schema.PathRecord
	// Terminal is the kind of element
	// that the node's rows end in.
	Terminal() Elem
	// Inputs returns the child nodes in order.
	// The returned slice must not be modified.
	Inputs() []Node

	node()
}

// Path matches one path pattern.
type Path struct {
	Pattern *expr.PathPattern
	record  *schema.PathRecord
}

// NewPath returns a leaf for the path
// pattern p whose variables are rec.
func NewPath(p *expr.PathPattern, rec *schema.PathRecord) *Path {
	return &Path{Pattern: p, record: rec}
}

func (p *Path) Schema() *schema.PathRecord { return p.record }
func (p *Path) Terminal() Elem             { return VertexElem }
func (p *Path) Inputs() []Node             { return nil }
func (p *Path) node()                      {}

// Filter passes the rows of its input
// for which Where evaluates to TRUE.
type Filter struct {
	Where expr.Node
	input Node
}

// NewFilter returns a Filter over in.
func NewFilter(in Node, where expr.Node) *Filter {
	return &Filter{Where: where, input: in}
}

// Input returns the filtered node.
func (f *Filter) Input() Node                { return f.input }
func (f *Filter) Schema() *schema.PathRecord { return f.input.Schema() }
func (f *Filter) Terminal() Elem             { return f.input.Terminal() }
func (f *Filter) Inputs() []Node             { return []Node{f.input} }
func (f *Filter) node()                      {}

// Union concatenates the rows of its inputs.
// Rows are padded with NULL for the fields
// that an input does not bind. Unless All
// is set, duplicate rows are removed.
type Union struct {
	All    bool
	inputs []Node
	record *schema.PathRecord
}

// NewUnion returns a Union of inputs
// whose schema is the union of their schemas.
func NewUnion(inputs []Node, all, caseSensitive bool) *Union {
	recs := make([]*schema.PathRecord, len(inputs))
	for i := range inputs {
		recs[i] = inputs[i].Schema()
	}
	return &Union{All: all, inputs: slices.Clone(inputs), record: schema.Union(caseSensitive, recs...)}
}

func (u *Union) Schema() *schema.PathRecord { return u.record }
func (u *Union) Terminal() Elem             { return u.inputs[0].Terminal() }
func (u *Union) Inputs() []Node             { return u.inputs }
func (u *Union) node()                      {}

// SharedPredicate is a union of two or more
// path patterns with one condition that every
// row of the union must satisfy.
type SharedPredicate struct {
	Cond     expr.Node
	Distinct bool
	inputs   []Node
	record   *schema.PathRecord
}

// NewSharedPredicate returns a shared predicate
// over inputs with the validated schema rec.
func NewSharedPredicate(inputs []Node, cond expr.Node, distinct bool, rec *schema.PathRecord) *SharedPredicate {
	if len(inputs) < 2 {
		panic("pir: shared predicate needs at least two inputs")
	}
	return &SharedPredicate{
		Cond:     cond,
		Distinct: distinct,
		inputs:   slices.Clone(inputs),
		record:   rec,
	}
}

// Left is the first input.
func (s *SharedPredicate) Left() Node { return s.inputs[0] }

// Right is the second input.
func (s *SharedPredicate) Right() Node { return s.inputs[1] }

// Schema is the validated schema of the node.
func (s *SharedPredicate) Schema() *schema.PathRecord { return s.record }

// Terminal is inherited from the left input;
// the other inputs may terminate elsewhere.
func (s *SharedPredicate) Terminal() Elem { return s.inputs[0].Terminal() }
func (s *SharedPredicate) Inputs() []Node { return s.inputs }
func (s *SharedPredicate) node()          {}

// Copy returns a new node with the given
// inputs and schema and the same condition
// and distinctness.
func (s *SharedPredicate) Copy(inputs []Node, rec *schema.PathRecord) *SharedPredicate {
	return NewSharedPredicate(inputs, s.Cond, s.Distinct, rec)
}

// Project computes the RETURN columns.
type Project struct {
	Columns  []expr.Binding
	Distinct bool
	input    Node
	record   *schema.PathRecord
}

// NewProject returns a projection of in
// whose output columns are rec.
func NewProject(in Node, cols []expr.Binding, distinct bool, rec *schema.PathRecord) *Project {
	return &Project{Columns: cols, Distinct: distinct, input: in, record: rec}
}

// Input returns the projected node.
func (p *Project) Input() Node                { return p.input }
func (p *Project) Schema() *schema.PathRecord { return p.record }
func (p *Project) Terminal() Elem             { return PathElem }
func (p *Project) Inputs() []Node             { return []Node{p.input} }
func (p *Project) node()                      {}

// WithInputs returns a copy of n with its
// inputs replaced. The schema of n is kept,
// except for Union, whose schema is recomputed.
func WithInputs(n Node, inputs []Node) Node {
	if len(inputs) != len(n.Inputs()) {
		panic(fmt.Sprintf("pir: %T has %d inputs, not %d", n, len(n.Inputs()), len(inputs)))
	}
	switch n := n.(type) {
	case *Path:
		return &Path{Pattern: n.Pattern, record: n.record}
	case *Filter:
		return &Filter{Where: n.Where, input: inputs[0]}
	case *Union:
		return &Union{All: n.All, inputs: slices.Clone(inputs), record: n.record}
	case *SharedPredicate:
		return n.Copy(inputs, n.record)
	case *Project:
		return &Project{Columns: n.Columns, Distinct: n.Distinct, input: inputs[0], record: n.record}
	}
	panic(fmt.Sprintf("pir: unexpected node %T", n))
}

// Walk calls fn on n and then on its inputs
// (pre-order) as long as fn returns true.
func Walk(n Node, fn func(Node) bool) {
	switch n.(type) {
	case *Path, *Filter, *Union, *SharedPredicate, *Project:
	default:
		panic(fmt.Sprintf("pir: unexpected node %T", n))
	}
	if !fn(n) {
		return
	}
	for _, in := range n.Inputs() {
		Walk(in, fn)
	}
}

// Transform rebuilds n bottom-up: the inputs
// of each node are transformed first, and then
// fn is called on the node with its new inputs.
// Nodes whose inputs did not change are passed
// to fn as they are.
func Transform(n Node, fn func(Node) Node) Node {
	switch n.(type) {
	case *Path, *Filter, *Union, *SharedPredicate, *Project:
	default:
		panic(fmt.Sprintf("pir: unexpected node %T", n))
	}
	in := n.Inputs()
	var out []Node
	for i := range in {
		c := Transform(in[i], fn)
		if c != in[i] && out == nil {
			out = make([]Node, len(in))
			copy(out, in)
		}
		if out != nil {
			out[i] = c
		}
	}
	if out != nil {
		n = WithInputs(n, out)
	}
	return fn(n)
}

// Equal returns whether two trees are
// structurally equal.
func Equal(a, b Node) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	switch a := a.(type) {
	case *Path:
		b, ok := b.(*Path)
		if !ok || !a.Pattern.Equals(b.Pattern) {
			return false
		}
	case *Filter:
		b, ok := b.(*Filter)
		if !ok || !expr.Equal(a.Where, b.Where) {
			return false
		}
	case *Union:
		b, ok := b.(*Union)
		if !ok || a.All != b.All {
			return false
		}
	case *SharedPredicate:
		b, ok := b.(*SharedPredicate)
		if !ok || a.Distinct != b.Distinct || !expr.Equal(a.Cond, b.Cond) {
			return false
		}
	case *Project:
		b, ok := b.(*Project)
		if !ok || a.Distinct != b.Distinct || len(a.Columns) != len(b.Columns) {
			return false
		}
		for i := range a.Columns {
			if a.Columns[i].Result() != b.Columns[i].Result() ||
				!expr.Equal(a.Columns[i].Expr, b.Columns[i].Expr) {
				return false
			}
		}
	default:
		panic(fmt.Sprintf("pir: unexpected node %T", a))
	}
	if !a.Schema().Equals(b.Schema()) {
		return false
	}
	return slices.EqualFunc(a.Inputs(), b.Inputs(), Equal)
}
