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
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
)

// Visitor is an interface that must
// be satisfied by the argument to Visit.
//
// A Visitor's Visit method is invoked for each node encountered by Walk. If
// the result visitor w is not nil, Walk visits each of the children of node
// with the visitor w, followed by a call of w.Visit(nil).
//
// (see also: ast.Visitor)
type Visitor interface {
	Visit(Node) Visitor
}

// WalkFunc is a Visitor that calls
// itself for each node; returning false
// stops the walk below the current node.
type WalkFunc func(Node) bool

func (w WalkFunc) Visit(n Node) Visitor {
	if n == nil || !w(n) {
		return nil
	}
	return w
}

// Rewriter accepts a Node and returns
// a new node (or just its argument)
type Rewriter interface {
	// Rewrite is applied to nodes
	// in depth-first order, and each
	// node is re-written to use the
	// returned value.
	Rewrite(Node) Node

	// Walk is called during node traversal
	// and the returned Rewriter is used for
	// all the children of Node.
	// If the returned rewriter is nil,
	// then traversal does not proceed past Node.
	Walk(Node) Rewriter
}

type nonleaf interface {
	// rewrite returns a copy of the node
	// with rewritten children; the receiver
	// is never modified
	rewrite(r Rewriter) Node
}

// Rewrite recursively applies a Rewriter in depth-first order.
// Nodes are never modified in place; every node above
// a rewritten child is copied.
func Rewrite(r Rewriter, n Node) Node {
	if n == nil {
		return nil
	}
	nl, ok := n.(nonleaf)
	if ok {
		rc := r.Walk(n)
		if rc != nil {
			n = nl.rewrite(rc)
		}
	}
	return r.Rewrite(n)
}

// Walk traverses an AST in depth-first order: It starts by calling
// v.Visit(node); node must not be nil. If the visitor w returned by
// v.Visit(node) is not nil, Walk is invoked recursively with visitor w for
// each of the non-nil children of node, followed by a call of w.Visit(nil).
//
// (see also: ast.Walk)
func Walk(v Visitor, n Node) {
	w := v.Visit(n)
	if w != nil {
		n.walk(w)
		w.Visit(nil)
	}
}

type copier struct{}

func (c copier) Rewrite(n Node) Node  { return n }
func (c copier) Walk(Node) Rewriter   { return c }

// Copy returns a deep copy of e.
func Copy(e Node) Node {
	return Rewrite(copier{}, e)
}

// ToString returns the string
// representation of this AST node
// and its children in approximately
// GQL syntax
func ToString(p Printable) string {
	if p == nil {
		return "<nil>"
	}
	var dst strings.Builder
	p.text(&dst, false)
	return dst.String()
}

// ToRedacted returns the string
// representation of this AST node
// and its children in approximately GQL syntax,
// but with all constant expressions replaced
// with random (deterministic) values.
func ToRedacted(p Printable) string {
	if p == nil {
		return "<nil>"
	}
	var dst strings.Builder
	p.text(&dst, true)
	return dst.String()
}

type Printable interface {
	// text should write the textual representation
	// of this node to dst, and should redact itself
	// if it is a constant and redact is true
	text(dst *strings.Builder, redact bool)
}

// Node is an expression AST node
type Node interface {
	Printable
	// Equals returns whether this node
	// is equivalent to another node.
	Equals(Node) bool

	walk(Visitor)
}

// Equal returns whether a and b are equivalent.
// a or b may be nil.
func Equal(a, b Node) bool {
	if a == nil {
		return b == nil
	}
	return b != nil && a.Equals(b)
}

// Constant is a Node that is
// a constant value.
type Constant interface {
	Node
	Type() TypeSet
	constant()
}

var (
	_ Constant = String("")
	_ Constant = Integer(0)
	_ Constant = Float(0)
	_ Constant = Bool(true)
	_ Constant = Null{}
)

// IsConstant returns true if node is a constant value
func IsConstant(e Node) bool {
	_, ok := e.(Constant)
	return ok
}

// binding strength of each node when printed;
// a child is parenthesized when it binds
// more loosely than its position requires
const (
	precOr = iota + 1
	precAnd
	precNot
	precCmp
	precAdd
	precMul
	precUnary
	precAtom
)

func precedence(n Node) int {
	switch n := n.(type) {
	case *Logical:
		if n.Op == OpOr {
			return precOr
		}
		return precAnd
	case *Not:
		return precNot
	case *Comparison, *IsKey, *Member, *TypePredicate:
		return precCmp
	case *Arithmetic:
		if n.Op == AddOp || n.Op == SubOp {
			return precAdd
		}
		return precMul
	case *Neg:
		return precUnary
	}
	return precAtom
}

func subtext(dst *strings.Builder, n Node, min int, redact bool) {
	if precedence(n) < min {
		dst.WriteByte('(')
		n.text(dst, redact)
		dst.WriteByte(')')
		return
	}
	n.text(dst, redact)
}

type Bool bool

func (b Bool) text(dst *strings.Builder, redact bool) {
	if b {
		dst.WriteString("TRUE")
	} else {
		dst.WriteString("FALSE")
	}
}

func (b Bool) Equals(e Node) bool {
	eb, ok := e.(Bool)
	return ok && eb == b
}

func (b Bool) walk(v Visitor) {}
func (b Bool) Type() TypeSet  { return Set(TypeBoolean) }
func (b Bool) constant()      {}

type String string

func (s String) text(dst *strings.Builder, redact bool) {
	if redact {
		s = String(redactString(string(s)))
	}
	dst.WriteString(quoteString(string(s)))
}

func (s String) walk(v Visitor) {}
func (s String) Type() TypeSet  { return Set(TypeString) }
func (s String) constant()      {}

func (s String) Equals(e Node) bool {
	es, ok := e.(String)
	return ok && es == s
}

func quoteString(s string) string {
	var out strings.Builder
	out.WriteByte('\'')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\'', '\\':
			out.WriteByte('\\')
			out.WriteByte(c)
		case '\n':
			out.WriteString(`\n`)
		case '\t':
			out.WriteString(`\t`)
		default:
			out.WriteByte(c)
		}
	}
	out.WriteByte('\'')
	return out.String()
}

type Float float64

func (f Float) text(dst *strings.Builder, redact bool) {
	if redact {
		f = Float(redactFloat(float64(f)))
	}
	str := strconv.FormatFloat(float64(f), 'g', -1, 64)
	dst.WriteString(str)
	if !strings.ContainsAny(str, ".eEIN") {
		dst.WriteString(".0")
	}
}

func (f Float) walk(v Visitor) {}
func (f Float) Type() TypeSet  { return Set(TypeDouble) }
func (f Float) constant()      {}

func (f Float) Equals(e Node) bool {
	switch e := e.(type) {
	case Float:
		return e == f
	case Integer:
		return float64(int64(e)) == float64(f)
	}
	return false
}

// Integer is an integer literal.
// Literals that fit in 32 bits are
// typed as INTEGER, the rest as LONG.
type Integer int64

func (i Integer) text(dst *strings.Builder, redact bool) {
	if redact {
		i = Integer(redactInt(int64(i)))
	}
	dst.WriteString(strconv.FormatInt(int64(i), 10))
}

func (i Integer) walk(v Visitor) {}
func (i Integer) constant()      {}

func (i Integer) Type() TypeSet {
	if int64(int32(i)) == int64(i) {
		return Set(TypeInteger)
	}
	return Set(TypeLong)
}

func (i Integer) Equals(e Node) bool {
	switch e := e.(type) {
	case Integer:
		return e == i
	case Float:
		return float64(int64(i)) == float64(e)
	}
	return false
}

type Null struct{}

func (n Null) text(dst *strings.Builder, redact bool) {
	dst.WriteString("NULL")
}

func (n Null) walk(v Visitor) {}
func (n Null) Type() TypeSet  { return NullTypes }
func (n Null) constant()      {}

func (n Null) Equals(x Node) bool {
	_, ok := x.(Null)
	return ok
}

// Ident is a reference to a pattern variable.
type Ident string

func (i Ident) text(dst *strings.Builder, redact bool) {
	dst.WriteString(QuoteID(string(i)))
}

func (i Ident) walk(v Visitor) {}

func (i Ident) Equals(x Node) bool {
	i2, ok := x.(Ident)
	return ok && i == i2
}

// IsKeyword is the function that the expr library
// uses to determine if a string would match as
// a GQL keyword.
//
// (Please don't set this yourself; it is set by
// expr/gql so that they can share keyword tables.)
var IsKeyword func(s string) bool

// QuoteID produces a textual GQL identifier;
// the returned string will be back-quoted
// if it contains non-identifier characters or it is a
// keyword.
func QuoteID(s string) string {
	quote := s == "" || IsKeyword != nil && IsKeyword(s)
	for i := 0; !quote && i < len(s); i++ {
		c := s[i]
		quote = !(c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' ||
			i > 0 && c >= '0' && c <= '9')
	}
	if quote {
		return "`" + strings.ReplaceAll(s, "`", "``") + "`"
	}
	return s
}

// Dot represents the '.' infix operator, i.e.
//
//	Inner '.' Field
//
// In a pattern query Inner is a vertex
// or edge variable and Field is one of its
// properties.
type Dot struct {
	Inner Node
	Field string
}

func (d *Dot) text(dst *strings.Builder, redact bool) {
	subtext(dst, d.Inner, precAtom, redact)
	dst.WriteByte('.')
	dst.WriteString(QuoteID(d.Field))
}

func (d *Dot) Equals(x Node) bool {
	d2, ok := x.(*Dot)
	return ok && d2.Field == d.Field &&
		d.Inner.Equals(d2.Inner)
}

func (d *Dot) walk(v Visitor) {
	Walk(v, d.Inner)
}

func (d *Dot) rewrite(r Rewriter) Node {
	out := *d
	out.Inner = Rewrite(r, d.Inner)
	return &out
}

// Variable returns the root identifier
// of a qualified field access like a.b,
// or the empty string if d is not rooted
// at an identifier.
func (d *Dot) Variable() string {
	switch in := d.Inner.(type) {
	case Ident:
		return string(in)
	case *Dot:
		return in.Variable()
	}
	return ""
}

// CmpOp is a comparison operation type
type CmpOp int

const (
	Equals CmpOp = iota
	NotEquals

	// note: keep these in order
	// so that we can determine
	// quickly if we are performing
	// an ordinal comparison:

	Less
	LessEquals
	Greater
	GreaterEquals
)

func (c CmpOp) String() string {
	switch c {
	case Equals:
		return "="
	case NotEquals:
		return "<>"
	case Less:
		return "<"
	case LessEquals:
		return "<="
	case Greater:
		return ">"
	case GreaterEquals:
		return ">="
	default:
		return "<unknown cmp op>"
	}
}

func (c CmpOp) Ordinal() bool {
	return c >= Less && c <= GreaterEquals
}

type Comparison struct {
	Op          CmpOp
	Left, Right Node
}

// Compare generates a comparison operation
// of the given type and with the given arguments
func Compare(op CmpOp, left, right Node) *Comparison {
	return &Comparison{Op: op, Left: left, Right: right}
}

func (c *Comparison) Equals(x Node) bool {
	ec, ok := x.(*Comparison)
	return ok && ec.Op == c.Op && c.Left.Equals(ec.Left) && c.Right.Equals(ec.Right)
}

func (c *Comparison) walk(v Visitor) {
	Walk(v, c.Left)
	Walk(v, c.Right)
}

func (c *Comparison) rewrite(r Rewriter) Node {
	out := *c
	out.Left = Rewrite(r, c.Left)
	out.Right = Rewrite(r, c.Right)
	return &out
}

// comparisons do not associate,
// so both sides must bind tighter
func (c *Comparison) text(dst *strings.Builder, redact bool) {
	subtext(dst, c.Left, precCmp+1, redact)
	dst.WriteByte(' ')
	dst.WriteString(c.Op.String())
	dst.WriteByte(' ')
	subtext(dst, c.Right, precCmp+1, redact)
}

func (c *Comparison) Type() TypeSet { return LogicalTypes }

// LogicalOp is a logical operation
type LogicalOp int

const (
	OpAnd LogicalOp = iota // A AND B
	OpOr                   // A OR B
)

func (l LogicalOp) String() string {
	switch l {
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	}
	return "<unknown logical op>"
}

// Logical is a Node that represents
// a logical expression
type Logical struct {
	Op          LogicalOp
	Left, Right Node
}

func And(left, right Node) *Logical {
	return &Logical{Op: OpAnd, Left: left, Right: right}
}

func Or(left, right Node) *Logical {
	return &Logical{Op: OpOr, Left: left, Right: right}
}

func (l *Logical) Equals(x Node) bool {
	xl, ok := x.(*Logical)
	return ok && l.Op == xl.Op && l.Left.Equals(xl.Left) && l.Right.Equals(xl.Right)
}

func (l *Logical) walk(v Visitor) {
	Walk(v, l.Left)
	Walk(v, l.Right)
}

func (l *Logical) rewrite(r Rewriter) Node {
	out := *l
	out.Left = Rewrite(r, l.Left)
	out.Right = Rewrite(r, l.Right)
	return &out
}

func (l *Logical) text(dst *strings.Builder, redact bool) {
	p := precedence(l)
	subtext(dst, l.Left, p, redact)
	dst.WriteByte(' ')
	dst.WriteString(l.Op.String())
	dst.WriteByte(' ')
	subtext(dst, l.Right, p+1, redact)
}

func (l *Logical) Type() TypeSet { return LogicalTypes }

type Not struct {
	Expr Node
}

func (n *Not) text(dst *strings.Builder, redact bool) {
	dst.WriteString("NOT ")
	subtext(dst, n.Expr, precNot, redact)
}

func (n *Not) walk(v Visitor) {
	Walk(v, n.Expr)
}

func (n *Not) rewrite(r Rewriter) Node {
	return &Not{Expr: Rewrite(r, n.Expr)}
}

func (n *Not) Type() TypeSet { return LogicalTypes }

func (n *Not) Equals(x Node) bool {
	xn, ok := x.(*Not)
	return ok && n.Expr.Equals(xn.Expr)
}

// ArithOp is an arithmetic operator
type ArithOp int

const (
	AddOp ArithOp = iota
	SubOp
	MulOp
	DivOp
	ModOp
)

func (a ArithOp) String() string {
	switch a {
	case AddOp:
		return "+"
	case SubOp:
		return "-"
	case MulOp:
		return "*"
	case DivOp:
		return "/"
	case ModOp:
		return "%"
	}
	return "<unknown arith op>"
}

// Arithmetic is a binary arithmetic expression
type Arithmetic struct {
	Op          ArithOp
	Left, Right Node
}

func NewArith(op ArithOp, left, right Node) *Arithmetic {
	return &Arithmetic{Op: op, Left: left, Right: right}
}

func Add(left, right Node) *Arithmetic { return NewArith(AddOp, left, right) }
func Sub(left, right Node) *Arithmetic { return NewArith(SubOp, left, right) }
func Mul(left, right Node) *Arithmetic { return NewArith(MulOp, left, right) }
func Div(left, right Node) *Arithmetic { return NewArith(DivOp, left, right) }

func (a *Arithmetic) text(dst *strings.Builder, redact bool) {
	p := precedence(a)
	subtext(dst, a.Left, p, redact)
	dst.WriteByte(' ')
	dst.WriteString(a.Op.String())
	dst.WriteByte(' ')
	subtext(dst, a.Right, p+1, redact)
}

func (a *Arithmetic) walk(v Visitor) {
	Walk(v, a.Left)
	Walk(v, a.Right)
}

func (a *Arithmetic) rewrite(r Rewriter) Node {
	out := *a
	out.Left = Rewrite(r, a.Left)
	out.Right = Rewrite(r, a.Right)
	return &out
}

func (a *Arithmetic) Equals(x Node) bool {
	xa, ok := x.(*Arithmetic)
	return ok && a.Op == xa.Op && a.Left.Equals(xa.Left) && a.Right.Equals(xa.Right)
}

// Neg is unary negation
type Neg struct {
	Expr Node
}

func (n *Neg) text(dst *strings.Builder, redact bool) {
	dst.WriteByte('-')
	// "--" would start a comment
	switch e := n.Expr.(type) {
	case *Neg:
		dst.WriteByte(' ')
	case Integer:
		if e < 0 || redact {
			dst.WriteByte(' ')
		}
	case Float:
		if e < 0 || redact {
			dst.WriteByte(' ')
		}
	}
	subtext(dst, n.Expr, precUnary, redact)
}

func (n *Neg) walk(v Visitor) { Walk(v, n.Expr) }

func (n *Neg) rewrite(r Rewriter) Node {
	return &Neg{Expr: Rewrite(r, n.Expr)}
}

func (n *Neg) Equals(x Node) bool {
	xn, ok := x.(*Neg)
	return ok && n.Expr.Equals(xn.Expr)
}

type Keyword int

const (
	IsNull Keyword = iota
	IsNotNull
)

func (k Keyword) text(dst *strings.Builder, redact bool) {
	switch k {
	case IsNull:
		dst.WriteString("NULL")
	case IsNotNull:
		dst.WriteString("NOT NULL")
	default:
		dst.WriteString("???")
	}
}

type IsKey struct {
	Expr Node
	Key  Keyword
}

// Is yields
//
//	<e> IS <k>
func Is(e Node, k Keyword) *IsKey {
	return &IsKey{Expr: e, Key: k}
}

func (i *IsKey) text(dst *strings.Builder, redact bool) {
	subtext(dst, i.Expr, precCmp+1, redact)
	dst.WriteString(" IS ")
	i.Key.text(dst, redact)
}

func (i *IsKey) walk(v Visitor) {
	Walk(v, i.Expr)
}

func (i *IsKey) rewrite(r Rewriter) Node {
	return &IsKey{Expr: Rewrite(r, i.Expr), Key: i.Key}
}

// IS, unlike comparison operations,
// *always* returns a TRUE or FALSE value
func (i *IsKey) Type() TypeSet { return Set(TypeBoolean) }

func (i *IsKey) Equals(x Node) bool {
	xi, ok := x.(*IsKey)
	return ok && i.Key == xi.Key && i.Expr.Equals(xi.Expr)
}

// Member is
//
//	Arg IN (Values...)
type Member struct {
	Arg    Node
	Values []Constant
}

func (m *Member) walk(v Visitor) {
	Walk(v, m.Arg)
	for i := range m.Values {
		Walk(v, m.Values[i])
	}
}

// Values are constants and therefore
// have nothing to rewrite
func (m *Member) rewrite(r Rewriter) Node {
	return &Member{Arg: Rewrite(r, m.Arg), Values: slices.Clone(m.Values)}
}

func (m *Member) text(out *strings.Builder, redact bool) {
	subtext(out, m.Arg, precCmp+1, redact)
	out.WriteString(" IN (")
	for i := range m.Values {
		if i != 0 {
			out.WriteString(", ")
		}
		m.Values[i].text(out, redact)
	}
	out.WriteString(")")
}

func (m *Member) Type() TypeSet { return LogicalTypes }

func (m *Member) Equals(e Node) bool {
	me, ok := e.(*Member)
	if !ok || !m.Arg.Equals(me.Arg) {
		return false
	}
	return slices.EqualFunc(m.Values, me.Values, func(a, b Constant) bool {
		return a.Equals(b)
	})
}
