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

package schema

import (
	"fmt"
	"os"
	"strings"

	"github.com/SnellerInc/gqlmatch/expr"
	"golang.org/x/exp/slices"
	"sigs.k8s.io/yaml"
)

// IDProperty is the implicit LONG
// identifier of every vertex and edge.
const IDProperty = "id"

// Property is a declared property of a label.
type Property struct {
	Name string
	Type expr.Type
}

// Label is a vertex or edge label
// along with its declared properties.
type Label struct {
	Name string
	// Kind is expr.TypeVertex or expr.TypeEdge
	Kind       expr.Type
	Properties []Property
}

// Property looks up a declared property,
// including the implicit id property.
func (l *Label) Property(name string, caseSensitive bool) (Property, bool) {
	if eqname(name, IDProperty, caseSensitive) {
		return Property{Name: IDProperty, Type: expr.TypeLong}, true
	}
	for i := range l.Properties {
		if eqname(l.Properties[i].Name, name, caseSensitive) {
			return l.Properties[i], true
		}
	}
	return Property{}, false
}

func eqname(a, b string, caseSensitive bool) bool {
	if caseSensitive {
		return a == b
	}
	return strings.EqualFold(a, b)
}

// Graph is the schema of a property graph:
// the set of vertex and edge labels.
type Graph struct {
	Vertices []Label
	Edges    []Label
}

func (g *Graph) labels(kind expr.Type) []Label {
	switch kind {
	case expr.TypeVertex:
		return g.Vertices
	case expr.TypeEdge:
		return g.Edges
	}
	return nil
}

// Label finds a vertex or edge label by name.
func (g *Graph) Label(kind expr.Type, name string, caseSensitive bool) (*Label, bool) {
	lst := g.labels(kind)
	for i := range lst {
		if eqname(lst[i].Name, name, caseSensitive) {
			return &lst[i], true
		}
	}
	return nil, false
}

// PropertyTypes returns the set of types that the
// property name may have on an element of the given
// kind and label. An empty label means any label of
// that kind. The result is empty if no matching
// label declares the property. Properties are always
// nullable, so a non-empty result includes NULL.
func (g *Graph) PropertyTypes(kind expr.Type, label, name string, caseSensitive bool) expr.TypeSet {
	var ts expr.TypeSet
	lst := g.labels(kind)
	for i := range lst {
		if label != "" && !eqname(lst[i].Name, label, caseSensitive) {
			continue
		}
		if p, ok := lst[i].Property(name, caseSensitive); ok {
			ts |= expr.Set(p.Type)
		}
	}
	if ts != 0 {
		ts |= expr.NullTypes
	}
	return ts
}

// the on-disk form maps label names
// to property names to type names
type graphFile struct {
	Vertices map[string]map[string]string `json:"vertices"`
	Edges    map[string]map[string]string `json:"edges"`
}

// DecodeGraph decodes a YAML (or JSON)
// graph schema of the form
//
//	vertices:
//	  person: {name: STRING, age: INTEGER}
//	edges:
//	  knows: {weight: DOUBLE}
//
// Labels and properties are sorted by name.
func DecodeGraph(data []byte) (*Graph, error) {
	var gf graphFile
	if err := yaml.UnmarshalStrict(data, &gf); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	return gf.build()
}

// ReadGraph reads a graph schema from a file.
func ReadGraph(path string) (*Graph, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	g, err := DecodeGraph(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

func (gf *graphFile) build() (*Graph, error) {
	g := &Graph{}
	var err error
	g.Vertices, err = buildLabels(expr.TypeVertex, gf.Vertices)
	if err != nil {
		return nil, err
	}
	g.Edges, err = buildLabels(expr.TypeEdge, gf.Edges)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func buildLabels(kind expr.Type, src map[string]map[string]string) ([]Label, error) {
	var out []Label
	for name, props := range src {
		l := Label{Name: name, Kind: kind}
		for pname, tname := range props {
			if strings.EqualFold(pname, IDProperty) {
				return nil, fmt.Errorf("schema: %s %s: property %q is reserved", kind, name, pname)
			}
			t, ok := expr.ParseType(tname)
			if !ok || t.Element() {
				return nil, fmt.Errorf("schema: %s %s: invalid type %q for property %q", kind, name, tname, pname)
			}
			l.Properties = append(l.Properties, Property{Name: pname, Type: t})
		}
		slices.SortFunc(l.Properties, func(a, b Property) bool { return a.Name < b.Name })
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b Label) bool { return a.Name < b.Name })
	return out, nil
}
