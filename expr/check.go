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
	"fmt"
)

// TypeError is the error type returned
// from Check when an expression is ill-typed.
type TypeError struct {
	At  Node
	Msg string
}

// SyntaxError is the error type
// returned from Check when an
// expression has illegal syntax.
type SyntaxError struct {
	Msg string
}

// Error implements error
func (t *TypeError) Error() string {
	return fmt.Sprintf("%q is ill-typed: %s", ToString(t.At), t.Msg)
}

func (s *SyntaxError) Error() string {
	return s.Msg
}

func errtype(e Node, msg string) *TypeError {
	return &TypeError{At: e, Msg: msg}
}

// Hint is an argument that can be
// supplied to type-checking operations
// to refine the type of nodes that have
// types that would otherwise be unknown
// to the query planner.
//
// In practice the validator supplies a Hint
// that knows the declared types of pattern
// variables and their properties.
type Hint interface {
	TypeOf(e Node) TypeSet
}

// HintFn is a function that implements Hint
type HintFn func(Node) TypeSet

func (h HintFn) TypeOf(e Node) TypeSet {
	return h(e)
}

// NoHint is the empty Hint
func NoHint(Node) TypeSet {
	return AnyTypes
}

type checker interface {
	check(Hint) error
}

type typer interface {
	typeof(Hint) TypeSet
}

// TypeOf returns the set of types that
// e may evaluate to under the hint h.
func TypeOf(e Node, h Hint) TypeSet {
	switch n := e.(type) {
	case Constant:
		return n.Type()
	case Ident, *Dot:
		if h == nil {
			return AnyTypes
		}
		return h.TypeOf(e)
	case typer:
		return n.typeof(h)
	case interface{ Type() TypeSet }:
		return n.Type()
	}
	return AnyTypes
}

type checkwalk struct {
	errors []error
	hint   Hint
}

func (c *checkwalk) Visit(n Node) Visitor {
	if n == nil {
		return nil
	}
	ce, ok := n.(checker)
	if ok {
		err := ce.check(c.hint)
		if err != nil {
			c.errors = append(c.errors, err)
			return nil
		}
	}
	return c
}

// compatible returns whether a value of type ts
// could be used where want is expected; NULL is
// accepted everywhere, but a nullable value must
// also have a non-null type in want
func compatible(ts, want TypeSet) bool {
	if ts.Only(NullTypes) {
		return true
	}
	return (ts &^ NullTypes).AnyOf(want)
}

func combine(err []error) error {
	if len(err) == 1 {
		return err[0]
	}
	return fmt.Errorf("%w and %d other errors", err[0], len(err)-1)
}

// Check walks the AST given by n
// and performs rudimentary sanity-checking
// on all of the values in the tree.
func Check(n Node) error {
	return CheckHint(n, HintFn(NoHint))
}

// CheckHint performs the same sanity-checking
// as Check, except that it uses additional type-hint
// information.
func CheckHint(n Node, h Hint) error {
	c := &checkwalk{hint: h}
	Walk(c, n)
	if c.errors == nil {
		return nil
	}
	return combine(c.errors)
}

func (c *Comparison) check(h Hint) error {
	lt := TypeOf(c.Left, h)
	rt := TypeOf(c.Right, h)
	if !lt.Comparable(rt) {
		return errtypef(c, "cannot compare %s and %s", lt, rt)
	}
	if c.Op.Ordinal() {
		ordered := NumericTypes | Set(TypeString, TypeNull)
		if !lt.AnyOf(ordered) || !rt.AnyOf(ordered) {
			return errtype(c, "ordinal comparison of non-ordered values")
		}
	}
	return nil
}

func (l *Logical) check(h Hint) error {
	if !compatible(TypeOf(l.Left, h), Set(TypeBoolean)) {
		return errtypef(l.Left, "not a logical expression")
	}
	if !compatible(TypeOf(l.Right, h), Set(TypeBoolean)) {
		return errtypef(l.Right, "not a logical expression")
	}
	return nil
}

func (n *Not) check(h Hint) error {
	if !compatible(TypeOf(n.Expr, h), Set(TypeBoolean)) {
		return errtypef(n.Expr, "not a logical expression")
	}
	return nil
}

func (a *Arithmetic) check(h Hint) error {
	for _, arg := range []Node{a.Left, a.Right} {
		if !compatible(TypeOf(arg, h), NumericTypes) {
			return errtypef(arg, "cannot use %s in arithmetic", TypeOf(arg, h))
		}
	}
	return nil
}

// the result is the widest of the
// two operand types, or NULL
func (a *Arithmetic) typeof(h Hint) TypeSet {
	lt := TypeOf(a.Left, h) & NumericTypes
	rt := TypeOf(a.Right, h) & NumericTypes
	return widest(lt|rt) | NullTypes
}

func widest(ts TypeSet) TypeSet {
	for t := TypeDouble; t >= TypeByte; t-- {
		if ts.Contains(t) {
			return Set(t)
		}
	}
	return NumericTypes
}

func (n *Neg) check(h Hint) error {
	if !compatible(TypeOf(n.Expr, h), NumericTypes) {
		return errtypef(n.Expr, "cannot negate %s", TypeOf(n.Expr, h))
	}
	return nil
}

func (n *Neg) typeof(h Hint) TypeSet {
	return TypeOf(n.Expr, h)
}

func (m *Member) check(h Hint) error {
	at := TypeOf(m.Arg, h)
	for i := range m.Values {
		if !at.Comparable(m.Values[i].Type()) {
			return errtypef(m, "cannot compare %s and %s", at, m.Values[i].Type())
		}
	}
	return nil
}
