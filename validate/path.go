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
)

// GraphResolver is the default PatternResolver.
// It binds each named vertex and edge of a path
// and checks labels against ctx.Graph when it
// is present.
type GraphResolver struct{}

// Resolve implements PatternResolver.
func (GraphResolver) Resolve(ctx *Context, p *expr.PathPattern) (Shape, error) {
	if len(p.Vertices) == 0 || len(p.Edges) != len(p.Vertices)-1 {
		return nil, &InvariantError{Msg: "malformed path pattern " + expr.ToString(p)}
	}
	var fields []schema.Field
	bind := func(v string, ft schema.FieldType, pos expr.Position) error {
		if v == "" {
			return nil
		}
		for i := range fields {
			if !sameName(fields[i].Name, v, ctx.CaseSensitive) {
				continue
			}
			prev := fields[i].Type
			if prev.Type != ft.Type {
				return errorf(pos, v, "variable %q is bound to both %s and %s", v, prev.Type, ft.Type)
			}
			if prev.Label != "" && ft.Label != "" && prev.Label != ft.Label {
				return errorf(pos, v, "variable %q is bound to both %s and %s", v, prev, ft)
			}
			if prev.Label == "" {
				fields[i].Type.Label = ft.Label
			}
			return nil
		}
		fields = append(fields, schema.Field{Name: v, Type: ft})
		return nil
	}
	for i, vp := range p.Vertices {
		if i > 0 {
			ep := p.Edges[i-1]
			label, err := ctx.label(expr.TypeEdge, ep.Label, ep.Pos)
			if err != nil {
				return nil, err
			}
			if err := bind(ep.Var, schema.FieldType{Type: expr.TypeEdge, Label: label}, ep.Pos); err != nil {
				return nil, err
			}
		}
		label, err := ctx.label(expr.TypeVertex, vp.Label, vp.Pos)
		if err != nil {
			return nil, err
		}
		if err := bind(vp.Var, schema.FieldType{Type: expr.TypeVertex, Label: label}, vp.Pos); err != nil {
			return nil, err
		}
	}
	return schema.NewPathRecord(fields...), nil
}

// label returns the canonical name of a
// label, checking it against the graph schema
func (c *Context) label(kind expr.Type, name string, pos expr.Position) (string, error) {
	if name == "" || c.Graph == nil {
		return name, nil
	}
	l, ok := c.Graph.Label(kind, name, c.CaseSensitive)
	if !ok {
		return "", errorf(pos, name, "unknown %s label %q", kindName(kind), name)
	}
	return l.Name, nil
}

func kindName(kind expr.Type) string {
	if kind == expr.TypeEdge {
		return "edge"
	}
	return "vertex"
}
