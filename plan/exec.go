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
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/SnellerInc/gqlmatch/expr"
	"github.com/SnellerInc/gqlmatch/graph"
	"github.com/SnellerInc/gqlmatch/schema"
	"github.com/SnellerInc/gqlmatch/vm"
	"golang.org/x/exp/slices"
)

// ExecStats are statistics collected
// during query execution.
type ExecStats struct {
	// EdgesTraversed is the number of edges
	// followed while matching path patterns.
	EdgesTraversed int64
	// RowsMatched is the number of rows
	// produced by path patterns.
	RowsMatched int64
	// RowsFiltered is the number of rows
	// rejected by filters.
	RowsFiltered int64
}

// ExecParams are the parameters
// of one query execution.
type ExecParams struct {
	// Context indicates the cancellation
	// scope of the query; it is checked
	// between rows.
	Context context.Context
	// Graph is the graph to match against.
	Graph *graph.Graph
	// Stats are collected during execution.
	Stats ExecStats
}

// Result is the output of a query.
type Result struct {
	Columns []string
	Rows    []vm.Values
	Stats   ExecStats
}

// Exec runs the tree against g.
func Exec(ctx context.Context, t *Tree, g *graph.Graph) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ep := &ExecParams{Context: ctx, Graph: g}
	res := &Result{Columns: t.Columns()}
	err := t.Root.exec(ep, func(row vm.Values) error {
		res.Rows = append(res.Rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Stats = ep.Stats
	return res, nil
}

// Write writes the result as a header line
// and one line per row, tab-separated.
func (r *Result) Write(dst io.Writer) error {
	if _, err := fmt.Fprintln(dst, strings.Join(r.Columns, "\t")); err != nil {
		return err
	}
	cells := make([]string, len(r.Columns))
	for _, row := range r.Rows {
		for i := range cells {
			cells[i] = vm.Format(row.Field(i))
		}
		if _, err := fmt.Fprintln(dst, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}
	return nil
}

type step struct {
	label string
	dir   expr.Direction
	// slot is the row position of the
	// variable, or -1 for anonymous elements
	slot int
}

// PathScan matches a path pattern against
// every vertex of the graph. Vertex and edge
// variables that repeat must bind the same
// element.
type PathScan struct {
	Pattern *expr.PathPattern

	record        *schema.PathRecord
	caseSensitive bool
	// steps alternate vertex, edge, vertex...
	steps []step
}

func (s *PathScan) Schema() *schema.PathRecord { return s.record }
func (s *PathScan) inputs() []Op               { return nil }
func (s *PathScan) String() string             { return "SCAN " + expr.ToString(s.Pattern) }

func (s *PathScan) labelOK(want, got string) bool {
	if want == "" {
		return true
	}
	if s.caseSensitive {
		return want == got
	}
	return strings.EqualFold(want, got)
}

func (s *PathScan) exec(ep *ExecParams, emit func(vm.Values) error) error {
	row := make(vm.Values, s.record.Len())
	for _, v := range ep.Graph.Vertices() {
		if err := ep.Context.Err(); err != nil {
			return err
		}
		if err := s.match(ep, row, 0, v, emit); err != nil {
			return err
		}
	}
	return nil
}

// bind stores elem in the row at slot;
// ok is false if the slot already holds
// another element, and set is true if
// the slot must be cleared on backtracking
func bind(row vm.Values, slot int, elem any) (set, ok bool) {
	if slot < 0 {
		return false, true
	}
	if row[slot] == nil {
		row[slot] = elem
		return true, true
	}
	eq := vm.Equal(vm.Values{row[slot]}, vm.Values{elem})
	return false, eq
}

func unbind(row vm.Values, slot int, set bool) {
	if set {
		row[slot] = nil
	}
}

// match tries to extend the row with vertex v
// at step i, which is a vertex step
func (s *PathScan) match(ep *ExecParams, row vm.Values, i int, v *vm.Vertex, emit func(vm.Values) error) error {
	vs := &s.steps[i]
	if !s.labelOK(vs.label, v.Label) {
		return nil
	}
	set, ok := bind(row, vs.slot, v)
	if !ok {
		return nil
	}
	defer unbind(row, vs.slot, set)
	if i == len(s.steps)-1 {
		if err := ep.Context.Err(); err != nil {
			return err
		}
		ep.Stats.RowsMatched++
		return emit(slices.Clone(row))
	}
	es := &s.steps[i+1]
	follow := func(e *vm.Edge, next int64) error {
		if !s.labelOK(es.label, e.Label) {
			return nil
		}
		set, ok := bind(row, es.slot, e)
		if !ok {
			return nil
		}
		defer unbind(row, es.slot, set)
		ep.Stats.EdgesTraversed++
		w, ok := ep.Graph.Vertex(next)
		if !ok {
			return fmt.Errorf("plan: edge %s leads to a missing vertex", e)
		}
		return s.match(ep, row, i+2, w, emit)
	}
	if es.dir == expr.Out || es.dir == expr.Both {
		for _, e := range ep.Graph.Out(v.ID) {
			if err := follow(e, e.Dst); err != nil {
				return err
			}
		}
	}
	if es.dir == expr.In || es.dir == expr.Both {
		for _, e := range ep.Graph.In(v.ID) {
			// a self-loop was already
			// followed as an out edge
			if es.dir == expr.Both && e.Src == e.Dst {
				continue
			}
			if err := follow(e, e.Src); err != nil {
				return err
			}
		}
	}
	return nil
}

// Filter passes the rows for which
// Expr evaluates to TRUE.
type Filter struct {
	Nonterminal
	Expr vm.Expr
}

func (f *Filter) Schema() *schema.PathRecord { return f.From.Schema() }
func (f *Filter) String() string             { return "FILTER " + f.Expr.String() }

func (f *Filter) exec(ep *ExecParams, emit func(vm.Values) error) error {
	return f.From.exec(ep, func(row vm.Values) error {
		if f.Expr.Eval(row) == true {
			return emit(row)
		}
		ep.Stats.RowsFiltered++
		return nil
	})
}

// dedup is a set of rows keyed by vm.Hash
type dedup map[uint64][]vm.Values

// add returns false if row is already present
func (d dedup) add(row vm.Values) bool {
	h := vm.Hash(row)
	for _, r := range d[h] {
		if vm.Equal(r, row) {
			return false
		}
	}
	d[h] = append(d[h], row)
	return true
}

// Union concatenates its inputs in order,
// padding each row to the union schema with
// NULLs. Unless All is set the first copy of
// each distinct row is kept.
type Union struct {
	From []Op
	All  bool

	record *schema.PathRecord
	// columns[i][j] is the position in
	// From[i] of union field j, or -1
	columns [][]int
}

func (u *Union) Schema() *schema.PathRecord { return u.record }
func (u *Union) inputs() []Op               { return u.From }

func (u *Union) String() string {
	if u.All {
		return "UNION ALL"
	}
	return "UNION DISTINCT"
}

func (u *Union) exec(ep *ExecParams, emit func(vm.Values) error) error {
	var seen dedup
	if !u.All {
		seen = make(dedup)
	}
	for i := range u.From {
		cols := u.columns[i]
		err := u.From[i].exec(ep, func(in vm.Values) error {
			row := make(vm.Values, len(cols))
			for j, k := range cols {
				if k >= 0 {
					row[j] = in[k]
				}
			}
			if seen != nil && !seen.add(row) {
				return nil
			}
			return emit(row)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Project evaluates one expression per
// output column, dropping duplicate rows
// if Distinct is set.
type Project struct {
	Nonterminal
	Exprs    []vm.Expr
	Distinct bool

	record *schema.PathRecord
}

func (p *Project) Schema() *schema.PathRecord { return p.record }

func (p *Project) String() string {
	var out strings.Builder
	out.WriteString("PROJECT ")
	if p.Distinct {
		out.WriteString("DISTINCT ")
	}
	for i := range p.Exprs {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(p.Exprs[i].String())
		out.WriteString(" AS ")
		out.WriteString(expr.QuoteID(p.record.At(i).Name))
	}
	return out.String()
}

func (p *Project) exec(ep *ExecParams, emit func(vm.Values) error) error {
	var seen dedup
	if p.Distinct {
		seen = make(dedup)
	}
	return p.From.exec(ep, func(in vm.Values) error {
		row := make(vm.Values, len(p.Exprs))
		for i := range p.Exprs {
			row[i] = p.Exprs[i].Eval(in)
		}
		if seen != nil && !seen.add(row) {
			return nil
		}
		return emit(row)
	})
}
