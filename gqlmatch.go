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

// Package gqlmatch compiles GQL MATCH queries
// with shared predicates and type predicates
// into optimized logical plans, and runs them
// against in-memory property graphs.
//
// Compilation goes through these stages:
//
//	expr/gql.Parse     text -> *expr.Query
//	validate.Query     scope and type checks
//	pir.Build          logical match tree
//	pir.Optimize       rule rewrites
//
// and Query.Run lowers the optimized tree
// with package plan.
package gqlmatch

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/SnellerInc/gqlmatch/expr"
	"github.com/SnellerInc/gqlmatch/expr/gql"
	"github.com/SnellerInc/gqlmatch/graph"
	"github.com/SnellerInc/gqlmatch/plan"
	"github.com/SnellerInc/gqlmatch/plan/pir"
	"github.com/SnellerInc/gqlmatch/schema"
	"github.com/SnellerInc/gqlmatch/validate"
	"github.com/SnellerInc/gqlmatch/vm"
	"github.com/google/uuid"
)

// Option is an optional argument to Compile.
type Option func(c *compiler)

type compiler struct {
	logger        *log.Logger
	graph         *schema.Graph
	lattice       vm.Lattice
	registry      *pir.Registry
	caseSensitive bool
}

func (c *compiler) logf(f string, args ...any) {
	if c.logger != nil {
		c.logger.Printf(f, args...)
	}
}

// WithLogger is an option that has Compile
// and Query.Run log diagnostic information.
// Query text is always logged redacted.
// If no logger is set, nothing is logged.
func WithLogger(l *log.Logger) Option {
	return func(c *compiler) {
		c.logger = l
	}
}

// WithGraphSchema validates queries against a
// graph schema. Without a schema, labels are not
// checked and properties have unknown types.
func WithGraphSchema(g *schema.Graph) Option {
	return func(c *compiler) {
		c.graph = g
	}
}

// WithLattice selects the lattice
// used to evaluate type predicates.
func WithLattice(l vm.Lattice) Option {
	return func(c *compiler) {
		c.lattice = l
	}
}

// WithRegistry selects the rewrite rules.
// The default is pir.DefaultRegistry().
func WithRegistry(r *pir.Registry) Option {
	return func(c *compiler) {
		c.registry = r
	}
}

// WithCaseSensitive selects case-sensitive
// matching of variable, label and property names.
func WithCaseSensitive(b bool) Option {
	return func(c *compiler) {
		c.caseSensitive = b
	}
}

// Query is a compiled query.
type Query struct {
	// ID identifies the query in logs.
	ID uuid.UUID
	// AST is the parsed query.
	AST *expr.Query
	// Result is the validated query.
	Result *validate.Result
	// Logical is the tree built from Result,
	// and Optimized is the same tree after
	// the rewrite rules have been applied.
	Logical, Optimized pir.Node

	c compiler
}

// Compile parses, validates and optimizes src.
// Errors wrap *gql.SyntaxError,
// *validate.ValidationError or
// *validate.InvariantError.
func Compile(src string, opts ...Option) (*Query, error) {
	q := &Query{ID: uuid.New()}
	for _, o := range opts {
		o(&q.c)
	}
	if q.c.registry == nil {
		q.c.registry = pir.DefaultRegistry()
	}
	var err error
	q.AST, err = gql.Parse([]byte(src))
	if err != nil {
		q.c.logf("query %s: parse error", q.ID)
		return nil, fmt.Errorf("gqlmatch: %w", err)
	}
	q.c.logf("query %s: compiling %s", q.ID, expr.ToRedacted(q.AST))
	ctx := &validate.Context{
		Graph:         q.c.graph,
		CaseSensitive: q.c.caseSensitive,
	}
	q.Result, err = validate.Query(ctx, q.AST)
	if err != nil {
		q.c.logf("query %s: validation failed", q.ID)
		return nil, fmt.Errorf("gqlmatch: %w", err)
	}
	q.Logical, err = pir.Build(q.Result)
	if err != nil {
		return nil, fmt.Errorf("gqlmatch: %w", err)
	}
	q.Optimized, err = pir.Optimize(q.Logical, q.c.registry)
	if err != nil {
		q.c.logf("query %s: %s", q.ID, err)
		return nil, fmt.Errorf("gqlmatch: %w", err)
	}
	return q, nil
}

// String returns the redacted text of the query.
func (q *Query) String() string { return expr.ToRedacted(q.AST) }

// Columns returns the names of the output columns.
func (q *Query) Columns() []string {
	names := make([]string, len(q.Result.Output))
	for i := range q.Result.Output {
		names[i] = q.Result.Output[i].Name
	}
	return names
}

// Explain describes the logical plan
// before and after optimization.
func (q *Query) Explain() string {
	var out strings.Builder
	out.WriteString("logical:\n")
	pir.Describe(&out, q.Logical)
	out.WriteString("optimized:\n")
	pir.Describe(&out, q.Optimized)
	return out.String()
}

// Plan lowers the optimized tree
// into a physical plan.
func (q *Query) Plan() (*plan.Tree, error) {
	return plan.New(q.Optimized, &plan.Options{
		Hint:          q.Result.Hint(),
		Lattice:       q.c.lattice,
		CaseSensitive: q.c.caseSensitive,
	})
}

// Run executes the query against g.
func (q *Query) Run(ctx context.Context, g *graph.Graph) (*plan.Result, error) {
	t, err := q.Plan()
	if err != nil {
		return nil, fmt.Errorf("gqlmatch: %w", err)
	}
	res, err := plan.Exec(ctx, t, g)
	if err != nil {
		q.c.logf("query %s: execution failed: %s", q.ID, err)
		return nil, err
	}
	q.c.logf("query %s: %d rows, %d edges traversed", q.ID, len(res.Rows), res.Stats.EdgesTraversed)
	return res, nil
}
