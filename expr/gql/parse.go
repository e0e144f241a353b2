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

// Package gql implements a parser for
// graph pattern queries of the form
//
//	MATCH (a:person)-[e:knows]->(b) | (a:person)-[e:created]->(b)
//	WHERE SHARED(a.age > 25)
//	RETURN a.name, b
package gql

import (
	"fmt"
	"strconv"

	"github.com/SnellerInc/gqlmatch/expr"
)

// SyntaxError describes a lexing or parsing error.
type SyntaxError struct {
	Position int    // offset in the input string
	Length   int    // length of wrong substring (0 if unknown)
	Message  string // textual description of an error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("at position %d: %s", e.Position, e.Message)
}

type parser struct {
	s   scanner
	tok token
	// lookahead, valid when ahead is set
	next  token
	ahead bool
}

// Parse parses a complete MATCH query.
func Parse(in []byte) (*expr.Query, error) {
	p := &parser{s: scanner{from: in}}
	var q *expr.Query
	err := p.run(func() {
		q = p.query()
		p.expect(tEOF)
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

// ParseExpr parses a standalone expression
// such as a.age > 25 AND b IS TYPED VERTEX.
func ParseExpr(in []byte) (expr.Node, error) {
	p := &parser{s: scanner{from: in}}
	var e expr.Node
	err := p.run(func() {
		e = p.expr()
		p.expect(tEOF)
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// run calls f, turning a *SyntaxError
// raised with failAt into a returned error
func (p *parser) run(f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			se, ok := r.(*SyntaxError)
			if !ok {
				panic(r)
			}
			err = se
		}
	}()
	p.advance()
	f()
	return nil
}

func (p *parser) advance() {
	if p.ahead {
		p.tok, p.ahead = p.next, false
	} else {
		p.tok = p.s.lex()
	}
	if p.tok.kind == tError {
		p.failAt(p.tok, "%s", p.s.err)
	}
}

func (p *parser) peek() token {
	if !p.ahead {
		p.next = p.s.lex()
		p.ahead = true
	}
	return p.next
}

func (p *parser) failAt(t token, f string, args ...interface{}) {
	panic(&SyntaxError{
		Position: t.pos,
		Length:   t.end - t.pos,
		Message:  fmt.Sprintf(f, args...),
	})
}

func (p *parser) unexpected(want string) {
	got := p.tok.kind.String()
	if p.tok.kind == tIdent {
		got = fmt.Sprintf("identifier %q", p.tok.str)
	}
	p.failAt(p.tok, "expected %s but found %s", want, got)
}

func (p *parser) accept(k tokKind) bool {
	if p.tok.kind == k {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expect(k tokKind) token {
	t := p.tok
	if t.kind != k {
		p.unexpected(k.String())
	}
	p.advance()
	return t
}

// adjacent returns whether the current
// token immediately follows t in the input
func (p *parser) adjacent(t token) bool {
	return p.tok.pos == t.end
}

func (p *parser) ident() (string, token) {
	t := p.tok
	if t.kind != tIdent {
		p.unexpected("identifier")
	}
	p.advance()
	return t.str, t
}

func (p *parser) query() *expr.Query {
	p.expect(kwMatch)
	q := &expr.Query{}
	q.Pattern = p.pattern()
	if p.tok.kind == kwWhere {
		q.WherePos = p.s.exprPos(p.tok.pos)
		p.advance()
		q.Where = p.expr()
	}
	if p.accept(kwReturn) {
		q.Distinct = p.accept(kwDistinct)
		for {
			q.Return = append(q.Return, p.binding())
			if !p.accept(tComma) {
				break
			}
		}
	}
	return q
}

func (p *parser) binding() expr.Binding {
	b := expr.Binding{Pos: p.s.exprPos(p.tok.pos)}
	b.Expr = p.expr()
	if p.accept(kwAs) {
		b.As, _ = p.ident()
	}
	return b
}

// pattern parses an alternation of paths,
// including a trailing WHERE SHARED(...)
func (p *parser) pattern() expr.Pattern {
	start := p.tok
	paths := []*expr.PathPattern{p.path()}
	var sep token
	for p.tok.kind == tPipe || p.tok.kind == tPipePlus {
		if sep.kind != tEOF && sep.kind != p.tok.kind {
			p.failAt(p.tok, "cannot mix '|' and '|+|' in one pattern")
		}
		sep = p.tok
		p.advance()
		paths = append(paths, p.path())
	}
	distinct := sep.kind == tPipe
	pos := p.s.exprPos(start.pos)
	if p.tok.kind == kwWhere && p.peek().kind == kwShared {
		if len(paths) < 2 {
			p.failAt(p.next, "SHARED requires at least two path patterns")
		}
		p.advance() // WHERE
		p.advance() // SHARED
		p.expect(tLParen)
		predpos := p.s.exprPos(p.tok.pos)
		cond := p.expr()
		p.expect(tRParen)
		if p.tok.kind == kwWhere {
			p.failAt(p.tok, "a pattern with a shared predicate cannot have another WHERE clause")
		}
		return &expr.SharedPredicate{
			Paths:     paths,
			Predicate: cond,
			Distinct:  distinct,
			Pos:       pos,
			PredPos:   predpos,
		}
	}
	if len(paths) == 1 {
		return paths[0]
	}
	return &expr.PathUnion{Paths: paths, Distinct: distinct, Pos: pos}
}

func (p *parser) path() *expr.PathPattern {
	out := &expr.PathPattern{Pos: p.s.exprPos(p.tok.pos)}
	out.Vertices = append(out.Vertices, p.vertex())
	for p.tok.kind == tMinus || p.tok.kind == tLt {
		out.Edges = append(out.Edges, p.edge())
		out.Vertices = append(out.Vertices, p.vertex())
	}
	return out
}

// element parses the optional
//
//	[var] [':' label]
//
// part of a vertex or edge
func (p *parser) element() (v, label string) {
	if p.tok.kind == tIdent {
		v, _ = p.ident()
	}
	if p.accept(tColon) {
		label, _ = p.ident()
	}
	return v, label
}

func (p *parser) vertex() *expr.VertexPattern {
	t := p.expect(tLParen)
	v := &expr.VertexPattern{Pos: p.s.exprPos(t.pos)}
	v.Var, v.Label = p.element()
	p.expect(tRParen)
	return v
}

// edge parses one of
//
//	-> - <- -[...]-> -[...]- <-[...]-
func (p *parser) edge() *expr.EdgePattern {
	first := p.tok
	e := &expr.EdgePattern{Pos: p.s.exprPos(first.pos), Dir: expr.Both}
	if first.kind == tLt {
		p.advance()
		if p.tok.kind != tMinus || !p.adjacent(first) {
			p.unexpected("'<-'")
		}
		e.Dir = expr.In
	}
	dash := p.expect(tMinus)
	if p.accept(tLBrack) {
		e.Var, e.Label = p.element()
		p.expect(tRBrack)
		dash = p.expect(tMinus)
	}
	if p.tok.kind == tGt && p.adjacent(dash) {
		if e.Dir == expr.In {
			p.failAt(p.tok, "an edge cannot point in both directions")
		}
		p.advance()
		e.Dir = expr.Out
	}
	return e
}

func (p *parser) expr() expr.Node {
	left := p.and()
	for p.accept(kwOr) {
		left = expr.Or(left, p.and())
	}
	return left
}

func (p *parser) and() expr.Node {
	left := p.not()
	for p.accept(kwAnd) {
		left = expr.And(left, p.not())
	}
	return left
}

func (p *parser) not() expr.Node {
	if p.accept(kwNot) {
		return &expr.Not{Expr: p.not()}
	}
	return p.comparison()
}

var cmpops = map[tokKind]expr.CmpOp{
	tEq: expr.Equals,
	tNe: expr.NotEquals,
	tLt: expr.Less,
	tLe: expr.LessEquals,
	tGt: expr.Greater,
	tGe: expr.GreaterEquals,
}

// comparison parses at most one comparison
// or postfix predicate; they do not chain
func (p *parser) comparison() expr.Node {
	left := p.additive()
	if op, ok := cmpops[p.tok.kind]; ok {
		p.advance()
		return expr.Compare(op, left, p.additive())
	}
	switch p.tok.kind {
	case kwIs:
		p.advance()
		negated := p.accept(kwNot)
		switch p.tok.kind {
		case kwNull:
			p.advance()
			if negated {
				return expr.Is(left, expr.IsNotNull)
			}
			return expr.Is(left, expr.IsNull)
		case kwTyped:
			p.advance()
			return p.typeName(left, negated, expr.PostfixForm)
		}
		p.unexpected("NULL or TYPED")
	case kwNot:
		if p.peek().kind == kwIn {
			p.advance()
			p.advance()
			return &expr.Not{Expr: p.member(left)}
		}
	case kwIn:
		p.advance()
		return p.member(left)
	}
	return left
}

func (p *parser) typeName(e expr.Node, negated bool, form expr.TypeForm) *expr.TypePredicate {
	if p.tok.kind != tIdent {
		p.unexpected("type name")
	}
	name, t := p.ident()
	tp := expr.Typed(e, name)
	tp.Negated = negated
	tp.Form = form
	tp.Pos = p.s.exprPos(t.pos)
	return tp
}

func (p *parser) member(arg expr.Node) *expr.Member {
	p.expect(tLParen)
	m := &expr.Member{Arg: arg}
	for {
		m.Values = append(m.Values, p.constant())
		if !p.accept(tComma) {
			break
		}
	}
	p.expect(tRParen)
	return m
}

func (p *parser) constant() expr.Constant {
	neg := p.accept(tMinus)
	t := p.tok
	var c expr.Constant
	switch t.kind {
	case tInteger, tFloat:
		return p.number(neg)
	case tString:
		c = expr.String(t.str)
	case kwTrue:
		c = expr.Bool(true)
	case kwFalse:
		c = expr.Bool(false)
	case kwNull:
		c = expr.Null{}
	default:
		p.unexpected("constant")
	}
	if neg {
		p.failAt(t, "cannot negate %s", t.kind)
	}
	p.advance()
	return c
}

func (p *parser) number(neg bool) expr.Constant {
	t := p.tok
	text := t.str
	if neg {
		text = "-" + text
	}
	p.advance()
	if t.kind == tInteger {
		i, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			p.failAt(t, "integer %s out of range", text)
		}
		return expr.Integer(i)
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		p.failAt(t, "invalid number %s", text)
	}
	return expr.Float(f)
}

func (p *parser) additive() expr.Node {
	left := p.multiplicative()
	for {
		switch p.tok.kind {
		case tPlus:
			p.advance()
			left = expr.Add(left, p.multiplicative())
		case tMinus:
			p.advance()
			left = expr.Sub(left, p.multiplicative())
		default:
			return left
		}
	}
}

func (p *parser) multiplicative() expr.Node {
	left := p.unary()
	for {
		var op expr.ArithOp
		switch p.tok.kind {
		case tStar:
			op = expr.MulOp
		case tSlash:
			op = expr.DivOp
		case tPercent:
			op = expr.ModOp
		default:
			return left
		}
		p.advance()
		left = expr.NewArith(op, left, p.unary())
	}
}

func (p *parser) unary() expr.Node {
	switch p.tok.kind {
	case tMinus:
		p.advance()
		// fold negative literals
		if p.tok.kind == tInteger || p.tok.kind == tFloat {
			return p.number(true)
		}
		return &expr.Neg{Expr: p.unary()}
	case tPlus:
		p.advance()
		return p.unary()
	}
	return p.primary()
}

func (p *parser) primary() expr.Node {
	t := p.tok
	switch t.kind {
	case tInteger, tFloat:
		return p.number(false)
	case tString, kwTrue, kwFalse, kwNull:
		return p.constant()
	case tLParen:
		p.advance()
		e := p.expr()
		p.expect(tRParen)
		return e
	case kwTyped, kwNotTyped:
		p.advance()
		p.expect(tLParen)
		arg := p.expr()
		p.expect(tComma)
		tp := p.typeName(arg, t.kind == kwNotTyped, expr.CallForm)
		p.expect(tRParen)
		return tp
	case tIdent:
		p.advance()
		if p.tok.kind == tLParen {
			return p.call(t)
		}
		var e expr.Node = expr.Ident(t.str)
		for p.accept(tDot) {
			field, _ := p.ident()
			e = &expr.Dot{Inner: e, Field: field}
		}
		return e
	}
	p.unexpected("expression")
	return nil
}

func (p *parser) call(name token) expr.Node {
	op, ok := expr.LookupBuiltin(name.str)
	if !ok {
		p.failAt(name, "unknown function %s", name.str)
	}
	p.expect(tLParen)
	var args []expr.Node
	if p.tok.kind != tRParen {
		for {
			args = append(args, p.expr())
			if !p.accept(tComma) {
				break
			}
		}
	}
	p.expect(tRParen)
	return expr.Call(op, args...)
}
