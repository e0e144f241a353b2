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

package vm

import (
	"bytes"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/SnellerInc/gqlmatch/expr"
)

// Expr is a compiled expression.
//
// Eval never fails; NULL inputs and
// ill-typed values produce nil (NULL).
type Expr interface {
	// Eval evaluates the expression against row.
	Eval(row Row) any
	// Type is the declared type of the result,
	// or expr.InvalidType if it is not known
	// statically.
	Type() expr.Type
	// Inputs returns the sub-expressions, in order.
	Inputs() []Expr
	// Copy returns a copy of the expression
	// with its inputs replaced by inputs,
	// which must have the same length as the
	// result of Inputs.
	Copy(inputs []Expr) Expr
	String() string
}

// Field is the value of a pattern variable
// or output column at a fixed row position.
type Field struct {
	Name  string
	Index int
	Typ   expr.Type
}

func (f *Field) Eval(row Row) any { return row.Field(f.Index) }
func (f *Field) Type() expr.Type  { return f.Typ }
func (f *Field) Inputs() []Expr   { return nil }
func (f *Field) String() string   { return expr.QuoteID(f.Name) }

func (f *Field) Copy(inputs []Expr) Expr {
	c := *f
	return &c
}

// Const is a constant value.
type Const struct {
	Value any
	Typ   expr.Type
}

func (c *Const) Eval(Row) any    { return c.Value }
func (c *Const) Type() expr.Type { return c.Typ }
func (c *Const) Inputs() []Expr  { return nil }
func (c *Const) String() string  { return Format(c.Value) }

func (c *Const) Copy(inputs []Expr) Expr {
	cc := *c
	return &cc
}

// Property is a property of a vertex or edge.
// When Fold is set the name matches
// property keys case-insensitively.
type Property struct {
	Input Expr
	Name  string
	Typ   expr.Type
	Fold  bool
}

func (p *Property) Eval(row Row) any {
	var id int64
	var props map[string]any
	switch v := p.Input.Eval(row).(type) {
	case *Vertex:
		id, props = v.ID, v.Props
	case *Edge:
		id, props = v.ID, v.Props
	default:
		return nil
	}
	if p.match("id") {
		return id
	}
	if x, ok := props[p.Name]; ok || !p.Fold {
		return x
	}
	for k, x := range props {
		if strings.EqualFold(k, p.Name) {
			return x
		}
	}
	return nil
}

func (p *Property) match(name string) bool {
	if p.Fold {
		return strings.EqualFold(p.Name, name)
	}
	return p.Name == name
}

func (p *Property) Type() expr.Type { return p.Typ }
func (p *Property) Inputs() []Expr  { return []Expr{p.Input} }
func (p *Property) String() string  { return p.Input.String() + "." + expr.QuoteID(p.Name) }

func (p *Property) Copy(inputs []Expr) Expr {
	c := *p
	c.Input = inputs[0]
	return &c
}

// IsTyped is
//
//	Input IS TYPED Target
//
// It yields FALSE when Input is NULL.
type IsTyped struct {
	Input   Expr
	Target  expr.Type
	Lattice Lattice
}

func (t *IsTyped) Eval(row Row) any {
	v := t.Input.Eval(row)
	if v == nil {
		return false
	}
	return t.Lattice.Compatible(v, t.Target)
}

func (t *IsTyped) Type() expr.Type { return expr.TypeBoolean }
func (t *IsTyped) Inputs() []Expr  { return []Expr{t.Input} }
func (t *IsTyped) String() string  { return t.Input.String() + " IS TYPED " + t.Target.String() }

func (t *IsTyped) Copy(inputs []Expr) Expr {
	c := *t
	c.Input = inputs[0]
	return &c
}

// IsNotTyped is
//
//	Input IS NOT TYPED Target
//
// which is exactly NOT (Input IS TYPED Target);
// it yields TRUE when Input is NULL.
type IsNotTyped struct {
	Input   Expr
	Target  expr.Type
	Lattice Lattice
}

func (t *IsNotTyped) Eval(row Row) any {
	v := t.Input.Eval(row)
	if v == nil {
		return true
	}
	return !t.Lattice.Compatible(v, t.Target)
}

func (t *IsNotTyped) Type() expr.Type { return expr.TypeBoolean }
func (t *IsNotTyped) Inputs() []Expr  { return []Expr{t.Input} }
func (t *IsNotTyped) String() string  { return t.Input.String() + " IS NOT TYPED " + t.Target.String() }

func (t *IsNotTyped) Copy(inputs []Expr) Expr {
	c := *t
	c.Input = inputs[0]
	return &c
}

// Compare is a three-valued comparison.
type Compare struct {
	Op          expr.CmpOp
	Left, Right Expr
}

func (c *Compare) Eval(row Row) any {
	l := c.Left.Eval(row)
	r := c.Right.Eval(row)
	if l == nil || r == nil {
		return nil
	}
	if c.Op == expr.Equals || c.Op == expr.NotEquals {
		eq, ok := equalValues(l, r)
		if !ok {
			return nil
		}
		return eq == (c.Op == expr.Equals)
	}
	ord, ok := order(l, r)
	if !ok {
		return nil
	}
	switch c.Op {
	case expr.Less:
		return ord < 0
	case expr.LessEquals:
		return ord <= 0
	case expr.Greater:
		return ord > 0
	case expr.GreaterEquals:
		return ord >= 0
	}
	return nil
}

func (c *Compare) Type() expr.Type { return expr.TypeBoolean }
func (c *Compare) Inputs() []Expr  { return []Expr{c.Left, c.Right} }
func (c *Compare) String() string {
	return "(" + c.Left.String() + " " + c.Op.String() + " " + c.Right.String() + ")"
}

func (c *Compare) Copy(inputs []Expr) Expr {
	return &Compare{Op: c.Op, Left: inputs[0], Right: inputs[1]}
}

// equalValues compares two non-null values;
// ok is false when they cannot be compared
func equalValues(l, r any) (eq, ok bool) {
	if c, ok, numeric := compareNumbers(l, r); numeric {
		return ok && c == 0, ok
	}
	if lf, ok := toFloat(l); ok {
		rf, ok := toFloat(r)
		return lf == rf, ok
	}
	switch l := l.(type) {
	case string:
		rs, ok := r.(string)
		return l == rs, ok
	case bool:
		rb, ok := r.(bool)
		return l == rb, ok
	case []byte:
		rb, ok := r.([]byte)
		return bytes.Equal(l, rb), ok
	case *Vertex:
		rv, ok := r.(*Vertex)
		return ok && l.ID == rv.ID, ok
	case *Edge:
		re, ok := r.(*Edge)
		return ok && l.ID == re.ID, ok
	case *Path:
		rp, ok := r.(*Path)
		return ok && pathEqual(l, rp), ok
	}
	return false, false
}

func pathEqual(a, b *Path) bool {
	if len(a.Vertices) != len(b.Vertices) || len(a.Edges) != len(b.Edges) {
		return false
	}
	for i := range a.Vertices {
		if a.Vertices[i].ID != b.Vertices[i].ID {
			return false
		}
	}
	for i := range a.Edges {
		if a.Edges[i].ID != b.Edges[i].ID {
			return false
		}
	}
	return true
}

// order compares two ordered values
func order(l, r any) (int, bool) {
	if c, ok, numeric := compareNumbers(l, r); numeric {
		return c, ok
	}
	if lf, ok := toFloat(l); ok {
		rf, ok := toFloat(r)
		return cmp3(lf < rf, lf > rf), ok
	}
	if ls, ok := l.(string); ok {
		rs, ok := r.(string)
		return strings.Compare(ls, rs), ok
	}
	return 0, false
}

// compareNumbers compares l and r exactly when
// at least one is integral and both are numbers;
// numeric is false otherwise. ok is false for NaN.
func compareNumbers(l, r any) (c int, ok, numeric bool) {
	li, lint := toInt(l)
	ri, rint := toInt(r)
	switch {
	case lint && rint:
		return cmp3(li < ri, li > ri), true, true
	case lint:
		if rf, isf := toFloat(r); isf {
			c, ok := cmpIntFloat(li, rf)
			return c, ok, true
		}
	case rint:
		if lf, isf := toFloat(l); isf {
			c, ok := cmpIntFloat(ri, lf)
			return -c, ok, true
		}
	}
	return 0, false, false
}

// cmpIntFloat compares i and f without
// rounding i to a float64
func cmpIntFloat(i int64, f float64) (int, bool) {
	switch {
	case math.IsNaN(f):
		return 0, false
	case f >= 1<<63:
		return -1, true
	case f < -(1 << 63):
		return 1, true
	}
	t := math.Trunc(f)
	if c := cmp3(i < int64(t), i > int64(t)); c != 0 {
		return c, true
	}
	return cmp3(f > t, f < t), true
}

func cmp3(less, greater bool) int {
	if less {
		return -1
	}
	if greater {
		return 1
	}
	return 0
}

// Logical is a three-valued AND or OR.
type Logical struct {
	Op          expr.LogicalOp
	Left, Right Expr
}

func truth(v any) (b, known bool) {
	b, known = v.(bool)
	return b, known
}

func (l *Logical) Eval(row Row) any {
	lv, lk := truth(l.Left.Eval(row))
	// short-circuit on a known result
	if lk && lv == (l.Op == expr.OpOr) {
		return lv
	}
	rv, rk := truth(l.Right.Eval(row))
	if rk && rv == (l.Op == expr.OpOr) {
		return rv
	}
	if lk && rk {
		return rv
	}
	return nil
}

func (l *Logical) Type() expr.Type { return expr.TypeBoolean }
func (l *Logical) Inputs() []Expr  { return []Expr{l.Left, l.Right} }
func (l *Logical) String() string {
	return "(" + l.Left.String() + " " + l.Op.String() + " " + l.Right.String() + ")"
}

func (l *Logical) Copy(inputs []Expr) Expr {
	return &Logical{Op: l.Op, Left: inputs[0], Right: inputs[1]}
}

// Not is three-valued negation.
type Not struct {
	Input Expr
}

func (n *Not) Eval(row Row) any {
	b, ok := truth(n.Input.Eval(row))
	if !ok {
		return nil
	}
	return !b
}

func (n *Not) Type() expr.Type         { return expr.TypeBoolean }
func (n *Not) Inputs() []Expr          { return []Expr{n.Input} }
func (n *Not) String() string          { return "NOT " + n.Input.String() }
func (n *Not) Copy(inputs []Expr) Expr { return &Not{Input: inputs[0]} }

// IsNull is Input IS [NOT] NULL.
type IsNull struct {
	Input   Expr
	Negated bool
}

func (n *IsNull) Eval(row Row) any {
	return (n.Input.Eval(row) == nil) != n.Negated
}

func (n *IsNull) Type() expr.Type { return expr.TypeBoolean }
func (n *IsNull) Inputs() []Expr  { return []Expr{n.Input} }

func (n *IsNull) String() string {
	if n.Negated {
		return n.Input.String() + " IS NOT NULL"
	}
	return n.Input.String() + " IS NULL"
}

func (n *IsNull) Copy(inputs []Expr) Expr {
	return &IsNull{Input: inputs[0], Negated: n.Negated}
}

// In is Input IN (Values...), three-valued.
type In struct {
	Input  Expr
	Values []any
}

func (m *In) Eval(row Row) any {
	v := m.Input.Eval(row)
	if v == nil {
		return nil
	}
	sawNull := false
	for _, c := range m.Values {
		if c == nil {
			sawNull = true
			continue
		}
		if eq, ok := equalValues(v, c); ok && eq {
			return true
		}
	}
	if sawNull {
		return nil
	}
	return false
}

func (m *In) Type() expr.Type         { return expr.TypeBoolean }
func (m *In) Inputs() []Expr          { return []Expr{m.Input} }
func (m *In) Copy(inputs []Expr) Expr { return &In{Input: inputs[0], Values: m.Values} }

func (m *In) String() string {
	var out strings.Builder
	out.WriteString(m.Input.String())
	out.WriteString(" IN (")
	for i, v := range m.Values {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(Format(v))
	}
	out.WriteByte(')')
	return out.String()
}

// Arith is binary arithmetic over numbers.
// The result is converted to Typ; integral
// division by zero yields NULL.
type Arith struct {
	Op          expr.ArithOp
	Left, Right Expr
	Typ         expr.Type
}

func (a *Arith) Eval(row Row) any {
	l := a.Left.Eval(row)
	r := a.Right.Eval(row)
	if l == nil || r == nil {
		return nil
	}
	var out any
	li, lok := toInt(l)
	ri, rok := toInt(r)
	if lok && rok {
		n, ok := arithInt(a.Op, li, ri)
		if !ok {
			return nil
		}
		out = n
	} else {
		lf, lok := toFloat(l)
		rf, rok := toFloat(r)
		if !lok || !rok {
			return nil
		}
		switch a.Op {
		case expr.AddOp:
			out = lf + rf
		case expr.SubOp:
			out = lf - rf
		case expr.MulOp:
			out = lf * rf
		case expr.DivOp:
			out = lf / rf
		case expr.ModOp:
			if rf == 0 {
				return nil
			}
			out = lf - rf*float64(int64(lf/rf))
		}
	}
	if a.Typ.Numeric() {
		// NULL when out of range
		out, _ = Convert(out, a.Typ)
	}
	return out
}

// arithInt computes op on 64-bit integers,
// returning false on overflow or division by zero
func arithInt(op expr.ArithOp, l, r int64) (int64, bool) {
	switch op {
	case expr.AddOp:
		n := l + r
		return n, (r >= 0) == (n >= l)
	case expr.SubOp:
		n := l - r
		return n, (r >= 0) == (n <= l)
	case expr.MulOp:
		if l == 0 || r == 0 {
			return 0, true
		}
		n := l * r
		if n/r != l || (l == -1 && r == math.MinInt64) || (r == -1 && l == math.MinInt64) {
			return 0, false
		}
		return n, true
	case expr.DivOp:
		if r == 0 || (r == -1 && l == math.MinInt64) {
			return 0, false
		}
		return l / r, true
	case expr.ModOp:
		if r == 0 {
			return 0, false
		}
		if r == -1 {
			return 0, true
		}
		return l % r, true
	}
	return 0, false
}

func (a *Arith) Type() expr.Type { return a.Typ }
func (a *Arith) Inputs() []Expr  { return []Expr{a.Left, a.Right} }
func (a *Arith) String() string {
	return "(" + a.Left.String() + " " + a.Op.String() + " " + a.Right.String() + ")"
}

func (a *Arith) Copy(inputs []Expr) Expr {
	return &Arith{Op: a.Op, Left: inputs[0], Right: inputs[1], Typ: a.Typ}
}

// Neg is numeric negation.
type Neg struct {
	Input Expr
}

func (n *Neg) Eval(row Row) any {
	switch v := n.Input.Eval(row).(type) {
	case int8, int16, int32, int64:
		i, _ := toInt(v)
		if i == math.MinInt64 {
			return nil
		}
		out, _ := Convert(-i, Kind(v))
		return out
	case float32:
		return -v
	case float64:
		return -v
	}
	return nil
}

func (n *Neg) Type() expr.Type         { return n.Input.Type() }
func (n *Neg) Inputs() []Expr          { return []Expr{n.Input} }
func (n *Neg) String() string          { return "-" + n.Input.String() }
func (n *Neg) Copy(inputs []Expr) Expr { return &Neg{Input: inputs[0]} }

// Call is a call to a built-in function.
type Call struct {
	Op   expr.BuiltinOp
	Args []Expr
	Typ  expr.Type
}

func (c *Call) Eval(row Row) any {
	if c.Op == expr.Coalesce {
		for _, arg := range c.Args {
			if v := arg.Eval(row); v != nil {
				if c.Typ != expr.InvalidType {
					v, _ = Convert(v, c.Typ)
				}
				return v
			}
		}
		return nil
	}
	if len(c.Args) != 1 {
		return nil
	}
	v := c.Args[0].Eval(row)
	switch c.Op {
	case expr.Length:
		switch v := v.(type) {
		case string:
			return int32(utf8.RuneCountInString(v))
		case []byte:
			return int32(len(v))
		case *Path:
			return int32(len(v.Edges))
		}
	case expr.Lower:
		if s, ok := v.(string); ok {
			return strings.ToLower(s)
		}
	case expr.Upper:
		if s, ok := v.(string); ok {
			return strings.ToUpper(s)
		}
	case expr.Abs:
		switch v := v.(type) {
		case int8, int16, int32, int64:
			if i, _ := toInt(v); i < 0 {
				return (&Neg{Input: &Const{Value: v}}).Eval(nil)
			}
			return v
		case float32:
			if v < 0 {
				return -v
			}
			return v
		case float64:
			if v < 0 {
				return -v
			}
			return v
		}
	}
	return nil
}

func (c *Call) Type() expr.Type { return c.Typ }
func (c *Call) Inputs() []Expr  { return c.Args }

func (c *Call) String() string {
	var out strings.Builder
	out.WriteString(c.Op.String())
	out.WriteByte('(')
	for i, arg := range c.Args {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(arg.String())
	}
	out.WriteByte(')')
	return out.String()
}

func (c *Call) Copy(inputs []Expr) Expr {
	return &Call{Op: c.Op, Args: append([]Expr(nil), inputs...), Typ: c.Typ}
}
