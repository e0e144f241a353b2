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

// Package plan lowers optimized logical match
// trees into physical operators and executes
// them against an in-memory graph.
//
// The executor is a reference implementation:
// it evaluates every operator row by row on
// one goroutine.
package plan

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/SnellerInc/gqlmatch/expr"
	"github.com/SnellerInc/gqlmatch/plan/pir"
	"github.com/SnellerInc/gqlmatch/schema"
	"github.com/SnellerInc/gqlmatch/vm"
)

var (
	ErrNotSupported = errors.New("plan: query not supported")
)

// reject produces an ErrNotSupported error message
func reject(msg string) error {
	return fmt.Errorf("%w: %s", ErrNotSupported, msg)
}

// Op is a physical operator.
type Op interface {
	fmt.Stringer
	// Schema is the record of the rows
	// that the operator produces.
	Schema() *schema.PathRecord
	// inputs returns the inputs of the
	// operator, if any
	inputs() []Op
	// exec produces the rows of the
	// operator, passing each to emit
	exec(ep *ExecParams, emit func(vm.Values) error) error
}

// Nonterminal is embedded in every
// Op that has exactly one input Op.
type Nonterminal struct {
	From Op
}

func (n *Nonterminal) inputs() []Op { return []Op{n.From} }

// Options control lowering.
type Options struct {
	// Hint provides the types of variables
	// and properties; see validate.Result.Hint.
	Hint expr.Hint
	// Lattice is the lattice used by
	// type predicates.
	Lattice vm.Lattice
	// CaseSensitive selects case-sensitive
	// matching of variable and label names.
	CaseSensitive bool
}

// Tree is a physical plan.
type Tree struct {
	Root Op
}

// New lowers an optimized logical tree.
// Shared predicates must already have been
// rewritten; see pir.SharedPredicateRule.
func New(n pir.Node, opts *Options) (*Tree, error) {
	if opts == nil {
		opts = &Options{}
	}
	l := &lowering{opts: opts}
	root, err := l.lower(n)
	if err != nil {
		return nil, err
	}
	return &Tree{Root: root}, nil
}

// Columns returns the output column names.
func (t *Tree) Columns() []string { return t.Root.Schema().Names() }

// String describes the tree, one operator
// per line with inputs indented below.
func (t *Tree) String() string {
	var out strings.Builder
	describe(&out, t.Root, 0)
	return out.String()
}

func describe(dst io.Writer, op Op, depth int) {
	fmt.Fprintf(dst, "%s%s\n", strings.Repeat("\t", depth), op)
	for _, in := range op.inputs() {
		describe(dst, in, depth+1)
	}
}

type lowering struct {
	opts *Options
}

func (l *lowering) compile(e expr.Node, rec *schema.PathRecord) (vm.Expr, error) {
	c := &vm.Compiler{
		Resolver:      vm.Record(rec, l.opts.CaseSensitive),
		Hint:          l.opts.Hint,
		Lattice:       l.opts.Lattice,
		CaseSensitive: l.opts.CaseSensitive,
	}
	return c.Compile(e)
}

func (l *lowering) lower(n pir.Node) (Op, error) {
	switch n := n.(type) {
	case *pir.Path:
		return l.lowerPath(n)
	case *pir.Filter:
		from, err := l.lower(n.Input())
		if err != nil {
			return nil, err
		}
		cond, err := l.compile(n.Where, from.Schema())
		if err != nil {
			return nil, err
		}
		return &Filter{Nonterminal: Nonterminal{From: from}, Expr: cond}, nil
	case *pir.Union:
		u := &Union{All: n.All, record: n.Schema()}
		for _, in := range n.Inputs() {
			from, err := l.lower(in)
			if err != nil {
				return nil, err
			}
			u.From = append(u.From, from)
			u.columns = append(u.columns, l.mapping(from.Schema(), n.Schema()))
		}
		return u, nil
	case *pir.Project:
		from, err := l.lower(n.Input())
		if err != nil {
			return nil, err
		}
		p := &Project{Nonterminal: Nonterminal{From: from}, Distinct: n.Distinct, record: n.Schema()}
		for i := range n.Columns {
			e, err := l.compile(n.Columns[i].Expr, from.Schema())
			if err != nil {
				return nil, err
			}
			p.Exprs = append(p.Exprs, e)
		}
		return p, nil
	case *pir.SharedPredicate:
		return nil, reject("shared predicate was not rewritten into a filtered union")
	}
	panic(fmt.Sprintf("plan: unexpected node %T", n))
}

// mapping returns, for each field of to,
// the index of the same field in from or -1
func (l *lowering) mapping(from, to *schema.PathRecord) []int {
	out := make([]int, to.Len())
	for i := range out {
		out[i] = from.Index(to.At(i).Name, l.opts.CaseSensitive)
	}
	return out
}

func (l *lowering) lowerPath(p *pir.Path) (Op, error) {
	pat := p.Pattern
	rec := p.Schema()
	var missing string
	slot := func(name string) int {
		if name == "" {
			return -1
		}
		i := rec.Index(name, l.opts.CaseSensitive)
		if i < 0 && missing == "" {
			missing = name
		}
		return i
	}
	scan := &PathScan{Pattern: pat, record: rec, caseSensitive: l.opts.CaseSensitive}
	for i, v := range pat.Vertices {
		if i > 0 {
			e := pat.Edges[i-1]
			scan.steps = append(scan.steps, step{label: e.Label, dir: e.Dir, slot: slot(e.Var)})
		}
		scan.steps = append(scan.steps, step{label: v.Label, slot: slot(v.Var)})
	}
	if missing != "" {
		return nil, fmt.Errorf("plan: variable %q of %s is not in %s", missing, expr.ToString(pat), rec)
	}
	return scan, nil
}
