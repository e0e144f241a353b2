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
	"fmt"

	"github.com/SnellerInc/gqlmatch/expr"
	"github.com/SnellerInc/gqlmatch/schema"
)

// Resolver maps pattern variables
// to row positions.
type Resolver interface {
	// Lookup returns the row position and
	// declared type of the variable name.
	Lookup(name string) (int, schema.FieldType, bool)
}

type recordResolver struct {
	rec           *schema.PathRecord
	caseSensitive bool
}

// Record returns a Resolver over the fields of rec,
// so that field i of the record is row position i.
func Record(rec *schema.PathRecord, caseSensitive bool) Resolver {
	return &recordResolver{rec: rec, caseSensitive: caseSensitive}
}

func (r *recordResolver) Lookup(name string) (int, schema.FieldType, bool) {
	i := r.rec.Index(name, r.caseSensitive)
	if i < 0 {
		return -1, schema.FieldType{}, false
	}
	return i, r.rec.At(i).Type, true
}

// Compiler lowers validated expressions
// into runtime expressions.
type Compiler struct {
	Resolver Resolver
	// Hint, if non-nil, supplies the types
	// of properties; otherwise they are
	// unknown until evaluation.
	Hint    expr.Hint
	Lattice Lattice
	// CaseSensitive disables case folding
	// of property names.
	CaseSensitive bool
}

// Compile compiles e with the given resolver and lattice.
func Compile(e expr.Node, r Resolver, l Lattice) (Expr, error) {
	c := &Compiler{Resolver: r, Lattice: l}
	return c.Compile(e)
}

// Compile compiles one expression.
func (c *Compiler) Compile(e expr.Node) (Expr, error) {
	switch n := e.(type) {
	case expr.Integer:
		if int64(int32(n)) == int64(n) {
			return &Const{Value: int32(n), Typ: expr.TypeInteger}, nil
		}
		return &Const{Value: int64(n), Typ: expr.TypeLong}, nil
	case expr.Float:
		return &Const{Value: float64(n), Typ: expr.TypeDouble}, nil
	case expr.String:
		return &Const{Value: string(n), Typ: expr.TypeString}, nil
	case expr.Bool:
		return &Const{Value: bool(n), Typ: expr.TypeBoolean}, nil
	case expr.Null:
		return &Const{Typ: expr.TypeNull}, nil
	case expr.Ident:
		i, ft, ok := c.Resolver.Lookup(string(n))
		if !ok {
			return nil, fmt.Errorf("vm: unbound variable %q", string(n))
		}
		return &Field{Name: string(n), Index: i, Typ: ft.Type}, nil
	case *expr.Dot:
		in, err := c.Compile(n.Inner)
		if err != nil {
			return nil, err
		}
		return &Property{Input: in, Name: n.Field, Typ: c.declared(n), Fold: !c.CaseSensitive}, nil
	case *expr.TypePredicate:
		if n.Type == expr.InvalidType {
			return nil, fmt.Errorf("vm: unknown type name %q", n.TypeName)
		}
		in, err := c.Compile(n.Expr)
		if err != nil {
			return nil, err
		}
		if n.Negated {
			return &IsNotTyped{Input: in, Target: n.Type, Lattice: c.Lattice}, nil
		}
		return &IsTyped{Input: in, Target: n.Type, Lattice: c.Lattice}, nil
	case *expr.Comparison:
		l, r, err := c.compile2(n.Left, n.Right)
		if err != nil {
			return nil, err
		}
		return &Compare{Op: n.Op, Left: l, Right: r}, nil
	case *expr.Logical:
		l, r, err := c.compile2(n.Left, n.Right)
		if err != nil {
			return nil, err
		}
		return &Logical{Op: n.Op, Left: l, Right: r}, nil
	case *expr.Not:
		in, err := c.Compile(n.Expr)
		if err != nil {
			return nil, err
		}
		return &Not{Input: in}, nil
	case *expr.IsKey:
		in, err := c.Compile(n.Expr)
		if err != nil {
			return nil, err
		}
		return &IsNull{Input: in, Negated: n.Key == expr.IsNotNull}, nil
	case *expr.Member:
		in, err := c.Compile(n.Arg)
		if err != nil {
			return nil, err
		}
		m := &In{Input: in}
		for _, v := range n.Values {
			k, err := c.Compile(v)
			if err != nil {
				return nil, err
			}
			m.Values = append(m.Values, k.(*Const).Value)
		}
		return m, nil
	case *expr.Arithmetic:
		l, r, err := c.compile2(n.Left, n.Right)
		if err != nil {
			return nil, err
		}
		return &Arith{Op: n.Op, Left: l, Right: r, Typ: c.declared(n)}, nil
	case *expr.Neg:
		in, err := c.Compile(n.Expr)
		if err != nil {
			return nil, err
		}
		return &Neg{Input: in}, nil
	case *expr.Builtin:
		call := &Call{Op: n.Func, Typ: c.declared(n)}
		for _, arg := range n.Args {
			a, err := c.Compile(arg)
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, a)
		}
		return call, nil
	case nil:
		return nil, fmt.Errorf("vm: cannot compile a nil expression")
	}
	return nil, fmt.Errorf("vm: cannot compile %T", e)
}

func (c *Compiler) compile2(a, b expr.Node) (Expr, Expr, error) {
	l, err := c.Compile(a)
	if err != nil {
		return nil, nil, err
	}
	r, err := c.Compile(b)
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}

// declared picks the single declared type of e
// from its type set, preferring the widest number,
// or expr.InvalidType when it is ambiguous
func (c *Compiler) declared(e expr.Node) expr.Type {
	h := c.Hint
	if h == nil {
		h = expr.HintFn(expr.NoHint)
	}
	ts := expr.TypeOf(e, h) &^ expr.NullTypes
	out := expr.InvalidType
	for t := expr.TypeByte; t <= expr.TypePath; t++ {
		if !ts.Contains(t) {
			continue
		}
		if out != expr.InvalidType && !(out.Numeric() && t.Numeric()) {
			return expr.InvalidType
		}
		out = t
	}
	return out
}
