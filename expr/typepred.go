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
)

// TypeForm records which surface syntax
// produced a TypePredicate.
type TypeForm uint8

const (
	// PostfixForm is
	//   <expr> IS [NOT] TYPED <name>
	PostfixForm TypeForm = iota
	// CallForm is
	//   TYPED(<expr>, <name>) or NOT_TYPED(<expr>, <name>)
	CallForm
)

// TypePredicate tests whether the runtime
// value of Expr conforms to a declared type.
//
// TypeName is the name exactly as written;
// Type is InvalidType when the name is not
// part of the type vocabulary, which is
// reported when the query is validated.
type TypePredicate struct {
	Expr     Node
	TypeName string
	Type     Type
	Negated  bool
	Form     TypeForm
	Pos      Position
}

// Typed constructs
//
//	e IS TYPED name
//
// resolving name against the type vocabulary.
func Typed(e Node, name string) *TypePredicate {
	t, _ := ParseType(name)
	return &TypePredicate{Expr: e, TypeName: name, Type: t}
}

// NotTyped constructs
//
//	e IS NOT TYPED name
func NotTyped(e Node, name string) *TypePredicate {
	tp := Typed(e, name)
	tp.Negated = true
	return tp
}

// Both forms render as the postfix form
// using the canonical type name.
func (t *TypePredicate) text(dst *strings.Builder, redact bool) {
	subtext(dst, t.Expr, precCmp+1, redact)
	if t.Negated {
		dst.WriteString(" IS NOT TYPED ")
	} else {
		dst.WriteString(" IS TYPED ")
	}
	if t.Type != InvalidType {
		dst.WriteString(t.Type.String())
	} else {
		dst.WriteString(QuoteID(t.TypeName))
	}
}

func (t *TypePredicate) walk(v Visitor) {
	Walk(v, t.Expr)
}

func (t *TypePredicate) rewrite(r Rewriter) Node {
	out := *t
	out.Expr = Rewrite(r, t.Expr)
	return &out
}

// Equals ignores Form and Pos.
func (t *TypePredicate) Equals(x Node) bool {
	xt, ok := x.(*TypePredicate)
	if !ok || t.Negated != xt.Negated || t.Type != xt.Type {
		return false
	}
	if t.Type == InvalidType && t.TypeName != xt.TypeName {
		return false
	}
	return t.Expr.Equals(xt.Expr)
}

func (t *TypePredicate) check(h Hint) error {
	if t.Type == InvalidType {
		return errtypef(t, "unknown type name %q", t.TypeName)
	}
	return nil
}

// a type test never yields NULL
func (t *TypePredicate) typeof(h Hint) TypeSet {
	return Set(TypeBoolean)
}
