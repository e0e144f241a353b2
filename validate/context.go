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
	"github.com/SnellerInc/gqlmatch/expr"
	"github.com/SnellerInc/gqlmatch/schema"
	"golang.org/x/exp/slices"
)

// Shape is the validated type of
// a pattern. A PatternResolver is
// expected to produce a *schema.PathRecord
// for every path pattern.
type Shape interface {
	String() string
}

// PatternResolver resolves one path pattern
// to the record of variables that it binds.
type PatternResolver interface {
	Resolve(ctx *Context, p *expr.PathPattern) (Shape, error)
}

// MatchContext accumulates the records of the
// sibling branches of the MATCH clause that is
// being validated. A MatchContext belongs to
// exactly one clause.
type MatchContext struct {
	resolved []*schema.PathRecord
}

// AddResolved records the resolved
// schema of the next branch.
func (m *MatchContext) AddResolved(r *schema.PathRecord) {
	m.resolved = append(m.resolved, r)
}

// Resolved returns the branch records
// resolved so far, in branch order.
func (m *MatchContext) Resolved() []*schema.PathRecord {
	return slices.Clone(m.resolved)
}

// Context is the state of one compilation.
// The zero Context validates without a graph
// schema, case-insensitively, using the
// default resolver.
type Context struct {
	// Graph, if set, is used to check labels
	// and properties and to type properties.
	Graph *schema.Graph
	// CaseSensitive controls the matching of
	// variable, label and property names.
	CaseSensitive bool
	// Resolver resolves path patterns; if
	// it is nil, GraphResolver is used.
	Resolver PatternResolver
	// Match is the clause currently being
	// validated; it is set by Query.
	Match *MatchContext
}

func (c *Context) resolver() PatternResolver {
	if c.Resolver != nil {
		return c.Resolver
	}
	return GraphResolver{}
}

// clause returns a copy of c with a fresh
// MatchContext
func (c *Context) clause() *Context {
	out := *c
	out.Match = &MatchContext{}
	return &out
}
