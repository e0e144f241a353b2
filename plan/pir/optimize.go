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

	"github.com/SnellerInc/gqlmatch/expr"
	"golang.org/x/exp/slices"
)

// Rule is a local rewrite of one node.
type Rule interface {
	// Name is the name of the rule
	// used in configuration.
	Name() string
	// Apply returns the rewritten node and true,
	// or n and false if the rule does not match n.
	// Apply must not modify n.
	Apply(n Node) (Node, bool)
}

// SharedPredicateRule rewrites
//
//	SHARED(inputs, cond, distinct)
//
// into
//
//	FILTER(UNION(inputs, all = !distinct), cond)
//
// so that cond is evaluated once per row
// of the union. Both new nodes keep the schema
// of the shared predicate.
type SharedPredicateRule struct{}

func (SharedPredicateRule) Name() string { return "shared-predicate" }

func (SharedPredicateRule) Apply(n Node) (Node, bool) {
	sp, ok := n.(*SharedPredicate)
	if !ok {
		return n, false
	}
	u := &Union{
		All:    !sp.Distinct,
		inputs: slices.Clone(sp.inputs),
		record: sp.record,
	}
	return &Filter{Where: sp.Cond, input: u}, true
}

// TrueFilterRule removes FILTER(x, TRUE).
type TrueFilterRule struct{}

func (TrueFilterRule) Name() string { return "filter-true" }

func (TrueFilterRule) Apply(n Node) (Node, bool) {
	f, ok := n.(*Filter)
	if !ok || f.Where != expr.Bool(true) {
		return n, false
	}
	return f.input, true
}

// FilterMergeRule merges adjacent filters:
//
//	FILTER(FILTER(x, c1), c2) => FILTER(x, c1 AND c2)
type FilterMergeRule struct{}

func (FilterMergeRule) Name() string { return "filter-merge" }

func (FilterMergeRule) Apply(n Node) (Node, bool) {
	outer, ok := n.(*Filter)
	if !ok {
		return n, false
	}
	inner, ok := outer.input.(*Filter)
	if !ok {
		return n, false
	}
	return &Filter{Where: expr.And(inner.Where, outer.Where), input: inner.input}, true
}

var builtinRules = []Rule{
	SharedPredicateRule{},
	TrueFilterRule{},
	FilterMergeRule{},
}

// LookupRule returns the built-in rule
// with the given name.
func LookupRule(name string) (Rule, bool) {
	for _, r := range builtinRules {
		if r.Name() == name {
			return r, true
		}
	}
	return nil, false
}

// Registry is an ordered set of rules.
type Registry struct {
	rules []Rule
}

// NewRegistry returns a registry of rules.
func NewRegistry(rules ...Rule) *Registry {
	r := &Registry{}
	for i := range rules {
		r.Register(rules[i])
	}
	return r
}

// DefaultRegistry returns a new
// registry of the built-in rules.
func DefaultRegistry() *Registry {
	return NewRegistry(builtinRules...)
}

// Register appends a rule. It panics if a
// rule with the same name is already present.
func (r *Registry) Register(rule Rule) {
	for i := range r.rules {
		if r.rules[i].Name() == rule.Name() {
			panic(fmt.Sprintf("pir: rule %q registered twice", rule.Name()))
		}
	}
	r.rules = append(r.rules, rule)
}

// Rules returns the rules in order.
func (r *Registry) Rules() []Rule { return slices.Clone(r.rules) }

// MaxPasses is the number of passes over
// a tree after which Optimize gives up.
const MaxPasses = 64

// Optimize applies the rules of reg bottom-up
// until none of them matches any node. The
// input tree is not modified. An error is
// returned when the rules do not reach a fixed
// point within MaxPasses passes.
func Optimize(n Node, reg *Registry) (Node, error) {
	if reg == nil {
		reg = DefaultRegistry()
	}
	for pass := 0; pass < MaxPasses; pass++ {
		changed := false
		n = Transform(n, func(n Node) Node {
			for _, r := range reg.rules {
				if out, ok := r.Apply(n); ok {
					n = out
					changed = true
				}
			}
			return n
		})
		if !changed {
			return n, nil
		}
	}
	return nil, fmt.Errorf("pir: rules did not reach a fixed point after %d passes", MaxPasses)
}
