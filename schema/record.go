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

// Package schema describes the shapes of
// pattern matches: the record of variables
// bound by a path pattern, and the declared
// labels and properties of a property graph.
package schema

import (
	"fmt"
	"strings"

	"github.com/SnellerInc/gqlmatch/expr"
	"golang.org/x/exp/slices"
)

// FieldType is the declared type of one
// bound pattern variable. Label is set for
// VERTEX and EDGE fields whose pattern
// element carried a label.
type FieldType struct {
	Type  expr.Type
	Label string
}

func (f FieldType) String() string {
	if f.Label != "" {
		return fmt.Sprintf("%s(%s)", f.Type, f.Label)
	}
	return f.Type.String()
}

// Comparable returns whether values of
// types f and o can be compared with one
// another: numbers with numbers, scalars
// of the same kind, and graph elements of
// the same kind whose labels agree (or
// where either side is unlabeled).
func (f FieldType) Comparable(o FieldType) bool {
	switch {
	case f.Type.Numeric():
		return o.Type.Numeric()
	case f.Type == expr.TypeVertex || f.Type == expr.TypeEdge:
		return f.Type == o.Type &&
			(f.Label == "" || o.Label == "" || f.Label == o.Label)
	}
	return f.Type != expr.InvalidType && f.Type == o.Type
}

// Field is one named entry of a PathRecord.
type Field struct {
	Name string
	Type FieldType
}

func (f Field) String() string {
	return expr.QuoteID(f.Name) + " " + f.Type.String()
}

// PathRecord is the ordered set of variables
// bound by a path pattern, along with their
// declared types. A PathRecord is immutable
// once constructed.
type PathRecord struct {
	fields []Field
	union  bool
}

// NewPathRecord constructs a PathRecord
// from a list of fields. It panics if
// two fields have the same name.
func NewPathRecord(fields ...Field) *PathRecord {
	for i := range fields {
		for j := range fields[:i] {
			if fields[j].Name == fields[i].Name {
				panic("schema.NewPathRecord: duplicate field " + fields[i].Name)
			}
		}
	}
	return &PathRecord{fields: slices.Clone(fields)}
}

// Union returns the record containing every
// field of every input record, in declaration
// order. When two records bind the same name,
// as compared under caseSensitive, the name
// and type from the first record are kept.
func Union(caseSensitive bool, records ...*PathRecord) *PathRecord {
	out := &PathRecord{union: true}
	for _, r := range records {
		for _, f := range r.fields {
			if out.Index(f.Name, caseSensitive) < 0 {
				out.fields = append(out.fields, f)
			}
		}
	}
	return out
}

// Fields returns a copy of the fields of r.
func (r *PathRecord) Fields() []Field { return slices.Clone(r.fields) }

// Len returns the number of fields in r.
func (r *PathRecord) Len() int { return len(r.fields) }

// At returns the i'th field.
func (r *PathRecord) At(i int) Field { return r.fields[i] }

// IsUnion returns whether r was
// produced by Union.
func (r *PathRecord) IsUnion() bool { return r.union }

// Index returns the position of the field
// with the given name, or -1.
func (r *PathRecord) Index(name string, caseSensitive bool) int {
	for i := range r.fields {
		if r.fields[i].Name == name ||
			(!caseSensitive && strings.EqualFold(r.fields[i].Name, name)) {
			return i
		}
	}
	return -1
}

// Field looks up a field by name.
func (r *PathRecord) Field(name string, caseSensitive bool) (Field, bool) {
	i := r.Index(name, caseSensitive)
	if i < 0 {
		return Field{}, false
	}
	return r.fields[i], true
}

// Names returns the field names in order.
func (r *PathRecord) Names() []string {
	out := make([]string, len(r.fields))
	for i := range r.fields {
		out[i] = r.fields[i].Name
	}
	return out
}

// Equals returns whether r and o have the same
// fields in the same order. The union flag is
// not compared.
func (r *PathRecord) Equals(o *PathRecord) bool {
	return slices.Equal(r.fields, o.fields)
}

func (r *PathRecord) String() string {
	var out strings.Builder
	if r.union {
		out.WriteString("UnionPath(")
	} else {
		out.WriteString("Path(")
	}
	for i := range r.fields {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(r.fields[i].String())
	}
	out.WriteByte(')')
	return out.String()
}
