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

// Package vm implements the runtime
// expressions that are evaluated once
// per matched row, including the value
// type predicates IS TYPED and IS NOT TYPED.
//
// Values are represented with plain Go types:
//
//	BYTE          int8
//	SHORT         int16
//	INTEGER       int32
//	LONG          int64
//	FLOAT         float32
//	DOUBLE        float64
//	STRING        string
//	BOOLEAN       bool
//	BINARY_STRING []byte
//	VERTEX        *Vertex
//	EDGE          *Edge
//	PATH          *Path
//
// and NULL is nil. Compiled expressions are
// immutable and may be evaluated concurrently.
package vm

import (
	"fmt"
	"math"
	"strings"

	"github.com/SnellerInc/gqlmatch/expr"
)

// Vertex is a graph vertex.
type Vertex struct {
	ID    int64
	Label string
	Props map[string]any
}

func (v *Vertex) String() string {
	return fmt.Sprintf("v[%d:%s]", v.ID, v.Label)
}

// Edge is a directed graph edge
// from Src to Dst.
type Edge struct {
	ID       int64
	Label    string
	Src, Dst int64
	Props    map[string]any
}

func (e *Edge) String() string {
	return fmt.Sprintf("e[%d:%s %d->%d]", e.ID, e.Label, e.Src, e.Dst)
}

// Path is an alternating sequence of
// vertices and edges.
type Path struct {
	Vertices []*Vertex
	Edges    []*Edge
}

func (p *Path) String() string {
	var out strings.Builder
	out.WriteString("path[")
	for i, v := range p.Vertices {
		if i > 0 {
			fmt.Fprintf(&out, " %s ", p.Edges[i-1])
		}
		out.WriteString(v.String())
	}
	out.WriteByte(']')
	return out.String()
}

// Row is a positional view of one matched row.
type Row interface {
	Len() int
	// Field returns the value of
	// field i, or nil for NULL.
	Field(i int) any
}

// Values is a Row backed by a slice.
type Values []any

func (v Values) Len() int { return len(v) }

func (v Values) Field(i int) any {
	if i < 0 || i >= len(v) {
		return nil
	}
	return v[i]
}

// Kind returns the declared type whose
// runtime representation v has, expr.TypeNull
// for nil, or expr.InvalidType if v is not a
// runtime value.
func Kind(v any) expr.Type {
	switch v.(type) {
	case nil:
		return expr.TypeNull
	case int8:
		return expr.TypeByte
	case int16:
		return expr.TypeShort
	case int32:
		return expr.TypeInteger
	case int64:
		return expr.TypeLong
	case float32:
		return expr.TypeFloat
	case float64:
		return expr.TypeDouble
	case string:
		return expr.TypeString
	case bool:
		return expr.TypeBoolean
	case []byte:
		return expr.TypeBinaryString
	case *Vertex:
		return expr.TypeVertex
	case *Edge:
		return expr.TypeEdge
	case *Path:
		return expr.TypePath
	}
	return expr.InvalidType
}

// Convert converts v to the representation
// of the declared type t. Numbers are converted
// between representations when the value is in
// range of the target, and everything else must
// already have the right representation.
func Convert(v any, t expr.Type) (any, bool) {
	if v == nil {
		return nil, true
	}
	if Kind(v) == t {
		return v, true
	}
	if !t.Numeric() {
		return nil, false
	}
	if i, ok := toInt(v); ok {
		if !fits(i, t) {
			return nil, false
		}
		switch t {
		case expr.TypeByte:
			return int8(i), true
		case expr.TypeShort:
			return int16(i), true
		case expr.TypeInteger:
			return int32(i), true
		case expr.TypeLong:
			return i, true
		case expr.TypeFloat:
			return float32(i), true
		case expr.TypeDouble:
			return float64(i), true
		}
	}
	if f, ok := toFloat(v); ok {
		switch t {
		case expr.TypeFloat:
			return float32(f), true
		case expr.TypeDouble:
			return f, true
		}
		// floats only convert to integers
		// when they hold an integral value
		if f >= math.MinInt64 && f < math.MaxInt64 && float64(int64(f)) == f {
			return Convert(int64(f), t)
		}
	}
	return nil, false
}

// fits returns whether i is in
// the range of the integral type t
func fits(i int64, t expr.Type) bool {
	switch t {
	case expr.TypeByte:
		return i >= math.MinInt8 && i <= math.MaxInt8
	case expr.TypeShort:
		return i >= math.MinInt16 && i <= math.MaxInt16
	case expr.TypeInteger:
		return i >= math.MinInt32 && i <= math.MaxInt32
	}
	return true
}

// toInt returns the value of an
// integral runtime value
func toInt(v any) (int64, bool) {
	switch v := v.(type) {
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}

// toFloat returns the value of any
// numeric runtime value
func toFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	if i, ok := toInt(v); ok {
		return float64(i), true
	}
	return 0, false
}
