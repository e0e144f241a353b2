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

// Package graph implements in-memory property
// graphs loaded from YAML fixture files.
package graph

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/SnellerInc/gqlmatch/compr"
	"github.com/SnellerInc/gqlmatch/expr"
	"github.com/SnellerInc/gqlmatch/schema"
	"github.com/SnellerInc/gqlmatch/vm"
	"golang.org/x/exp/slices"
	"sigs.k8s.io/yaml"
)

// Graph is an immutable property graph.
type Graph struct {
	// Schema declares the labels
	// and properties of the graph.
	Schema *schema.Graph

	vertices []*vm.Vertex
	edges    []*vm.Edge
	byID     map[int64]*vm.Vertex
	out, in  map[int64][]*vm.Edge
}

// Vertices returns every vertex in ID order.
func (g *Graph) Vertices() []*vm.Vertex { return g.vertices }

// Edges returns every edge in ID order.
func (g *Graph) Edges() []*vm.Edge { return g.edges }

// Vertex looks up a vertex by ID.
func (g *Graph) Vertex(id int64) (*vm.Vertex, bool) {
	v, ok := g.byID[id]
	return v, ok
}

// Out returns the edges whose source is
// the vertex id, in edge ID order.
func (g *Graph) Out(id int64) []*vm.Edge { return g.out[id] }

// In returns the edges whose destination is
// the vertex id, in edge ID order.
func (g *Graph) In(id int64) []*vm.Edge { return g.in[id] }

type elementFile struct {
	ID         int64                      `json:"id"`
	Label      string                     `json:"label"`
	Src        *int64                     `json:"src,omitempty"`
	Dst        *int64                     `json:"dst,omitempty"`
	Properties map[string]json.RawMessage `json:"properties,omitempty"`
}

type graphFile struct {
	Schema   json.RawMessage `json:"schema"`
	Vertices []elementFile   `json:"vertices"`
	Edges    []elementFile   `json:"edges"`
}

// Load reads a graph from a file. Files
// ending in .zst or .s2 are decompressed.
func Load(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r, err := compr.NewReader(compr.ForPath(path), f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer r.Close()
	g, err := Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Decode decodes a YAML (or JSON) graph
// of the form
//
//	schema: {vertices: {...}, edges: {...}}
//	vertices:
//	  - {id: 1, label: person, properties: {age: 29}}
//	edges:
//	  - {id: 2, label: knows, src: 1, dst: 1}
//
// where the schema has the form accepted by
// schema.DecodeGraph. Labels are matched
// to the schema without regard to case.
func Decode(r io.Reader) (*Graph, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var gf graphFile
	if err := yaml.UnmarshalStrict(buf, &gf); err != nil {
		return nil, fmt.Errorf("graph: %w", err)
	}
	if len(gf.Schema) == 0 {
		return nil, fmt.Errorf("graph: missing schema")
	}
	sg, err := schema.DecodeGraph(gf.Schema)
	if err != nil {
		return nil, err
	}
	g := &Graph{
		Schema: sg,
		byID:   make(map[int64]*vm.Vertex, len(gf.Vertices)),
		out:    make(map[int64][]*vm.Edge),
		in:     make(map[int64][]*vm.Edge),
	}
	for i := range gf.Vertices {
		vf := &gf.Vertices[i]
		if vf.Src != nil || vf.Dst != nil {
			return nil, fmt.Errorf("graph: vertex %d has an edge endpoint", vf.ID)
		}
		if _, ok := g.byID[vf.ID]; ok {
			return nil, fmt.Errorf("graph: duplicate vertex id %d", vf.ID)
		}
		label, props, err := g.element(expr.TypeVertex, vf)
		if err != nil {
			return nil, err
		}
		v := &vm.Vertex{ID: vf.ID, Label: label, Props: props}
		g.byID[v.ID] = v
		g.vertices = append(g.vertices, v)
	}
	seen := make(map[int64]bool, len(gf.Edges))
	for i := range gf.Edges {
		ef := &gf.Edges[i]
		if seen[ef.ID] {
			return nil, fmt.Errorf("graph: duplicate edge id %d", ef.ID)
		}
		seen[ef.ID] = true
		if ef.Src == nil || ef.Dst == nil {
			return nil, fmt.Errorf("graph: edge %d needs both src and dst", ef.ID)
		}
		for _, id := range []int64{*ef.Src, *ef.Dst} {
			if _, ok := g.byID[id]; !ok {
				return nil, fmt.Errorf("graph: edge %d refers to unknown vertex %d", ef.ID, id)
			}
		}
		label, props, err := g.element(expr.TypeEdge, ef)
		if err != nil {
			return nil, err
		}
		e := &vm.Edge{ID: ef.ID, Label: label, Src: *ef.Src, Dst: *ef.Dst, Props: props}
		g.edges = append(g.edges, e)
	}
	slices.SortFunc(g.vertices, func(a, b *vm.Vertex) bool { return a.ID < b.ID })
	slices.SortFunc(g.edges, func(a, b *vm.Edge) bool { return a.ID < b.ID })
	for _, e := range g.edges {
		g.out[e.Src] = append(g.out[e.Src], e)
		g.in[e.Dst] = append(g.in[e.Dst], e)
	}
	return g, nil
}

func (g *Graph) element(kind expr.Type, ef *elementFile) (string, map[string]any, error) {
	what := strings.ToLower(kind.String())
	l, ok := g.Schema.Label(kind, ef.Label, false)
	if !ok {
		return "", nil, fmt.Errorf("graph: %s %d: unknown label %q", what, ef.ID, ef.Label)
	}
	props := make(map[string]any, len(ef.Properties))
	for name, raw := range ef.Properties {
		p, ok := l.Property(name, false)
		if !ok || p.Name == schema.IDProperty {
			return "", nil, fmt.Errorf("graph: %s %d: property %q is not declared for %s", what, ef.ID, name, l.Name)
		}
		v, err := decodeValue(raw, p.Type)
		if err != nil {
			return "", nil, fmt.Errorf("graph: %s %d: property %q: %w", what, ef.ID, name, err)
		}
		if v != nil {
			props[p.Name] = v
		}
	}
	return l.Name, props, nil
}

// decodeValue converts a JSON value into
// the runtime representation of t
func decodeValue(raw json.RawMessage, t expr.Type) (any, error) {
	if string(raw) == "null" {
		return nil, nil
	}
	switch {
	case t.Integral():
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("%s is not a number", raw)
		}
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("%s is not an integer", n)
		}
		v, ok := vm.Convert(i, t)
		if !ok {
			return nil, fmt.Errorf("%d is out of range for %s", i, t)
		}
		return v, nil
	case t == expr.TypeFloat || t == expr.TypeDouble:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("%s is not a number", raw)
		}
		if t == expr.TypeFloat {
			if math.Abs(f) > math.MaxFloat32 {
				return nil, fmt.Errorf("%g is out of range for %s", f, t)
			}
			return float32(f), nil
		}
		return f, nil
	case t == expr.TypeString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%s is not a string", raw)
		}
		return s, nil
	case t == expr.TypeBoolean:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("%s is not a boolean", raw)
		}
		return b, nil
	case t == expr.TypeBinaryString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%s is not a base64 string", raw)
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	return nil, fmt.Errorf("cannot store values of type %s", t)
}
