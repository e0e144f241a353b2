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

// Type is a declared (schema-level) type.
type Type uint8

const (
	// InvalidType is the zero Type; it is
	// produced for type names outside the
	// accepted vocabulary.
	InvalidType Type = iota
	TypeByte
	TypeShort
	TypeInteger
	TypeLong
	TypeFloat
	TypeDouble
	TypeString
	TypeBoolean
	TypeBinaryString
	TypeVertex
	TypeEdge
	TypePath
	// TypeNull is the type of the NULL literal.
	// It cannot be named in a query.
	TypeNull

	numTypes
)

var typeNames = [numTypes]string{
	InvalidType:      "INVALID",
	TypeByte:         "BYTE",
	TypeShort:        "SHORT",
	TypeInteger:      "INTEGER",
	TypeLong:         "LONG",
	TypeFloat:        "FLOAT",
	TypeDouble:       "DOUBLE",
	TypeString:       "STRING",
	TypeBoolean:      "BOOLEAN",
	TypeBinaryString: "BINARY_STRING",
	TypeVertex:       "VERTEX",
	TypeEdge:         "EDGE",
	TypePath:         "PATH",
	TypeNull:         "NULL",
}

func (t Type) String() string {
	if t < numTypes {
		return typeNames[t]
	}
	return "INVALID"
}

// ParseType looks up a type name in the
// closed vocabulary of declared types.
// The lookup is case-insensitive.
func ParseType(name string) (Type, bool) {
	switch strings.ToUpper(name) {
	case "BYTE":
		return TypeByte, true
	case "SHORT":
		return TypeShort, true
	case "INTEGER":
		return TypeInteger, true
	case "LONG":
		return TypeLong, true
	case "FLOAT":
		return TypeFloat, true
	case "DOUBLE":
		return TypeDouble, true
	case "STRING", "VARCHAR":
		return TypeString, true
	case "BOOLEAN":
		return TypeBoolean, true
	case "BINARY_STRING", "BYTES":
		return TypeBinaryString, true
	case "VERTEX":
		return TypeVertex, true
	case "EDGE":
		return TypeEdge, true
	case "PATH":
		return TypePath, true
	}
	return InvalidType, false
}

// Integral returns true for BYTE, SHORT, INTEGER and LONG.
func (t Type) Integral() bool {
	return t >= TypeByte && t <= TypeLong
}

// Numeric returns true for the integral
// types plus FLOAT and DOUBLE.
func (t Type) Numeric() bool {
	return t >= TypeByte && t <= TypeDouble
}

// Rank returns the position of a numeric type
// in the widening order
//
//	BYTE < SHORT < INTEGER < LONG < FLOAT < DOUBLE
//
// or 0 if t is not numeric.
func (t Type) Rank() int {
	if !t.Numeric() {
		return 0
	}
	return int(t-TypeByte) + 1
}

// Element returns true for the graph-domain types.
func (t Type) Element() bool {
	return t == TypeVertex || t == TypeEdge || t == TypePath
}

// TypeSet is a set of declared types
// that an expression could evaluate to.
// It lets the AST checker perform some
// rudimentary type-checking before the
// query is planned.
type TypeSet uint16

// Set returns the TypeSet containing types.
func Set(types ...Type) TypeSet {
	var ts TypeSet
	for _, t := range types {
		ts |= 1 << t
	}
	return ts
}

var (
	// AnyTypes contains all types.
	AnyTypes TypeSet = (1<<numTypes - 1) &^ 1
	// NullTypes contains only NULL.
	NullTypes = Set(TypeNull)
	// IntegralTypes are the integer types.
	IntegralTypes = Set(TypeByte, TypeShort, TypeInteger, TypeLong)
	// NumericTypes are the number types.
	NumericTypes = IntegralTypes | Set(TypeFloat, TypeDouble)
	// LogicalTypes is the result of
	// comparisons and logical operators.
	LogicalTypes = Set(TypeBoolean, TypeNull)
	// StringTypes is STRING or NULL.
	StringTypes = Set(TypeString, TypeNull)
)

// Contains returns whether t contains typ.
func (t TypeSet) Contains(typ Type) bool {
	return t&(1<<typ) != 0
}

// AnyOf returns whether t and set intersect.
func (t TypeSet) AnyOf(set TypeSet) bool {
	return t&set != 0
}

// Only returns whether t is a subset of set.
func (t TypeSet) Only(set TypeSet) bool {
	return t&^set == 0
}

// Logical returns whether t may be a boolean.
func (t TypeSet) Logical() bool {
	return t.AnyOf(LogicalTypes)
}

// Comparable returns whether or not
// two values can be compared against
// one another under ordinary typing rules.
// Numbers are comparable with each other;
// NULL is comparable with anything.
func (t TypeSet) Comparable(other TypeSet) bool {
	if t.Only(NullTypes) || other.Only(NullTypes) {
		return true
	}
	if t.AnyOf(NumericTypes) && other.AnyOf(NumericTypes) {
		return true
	}
	return (t&other)&^NullTypes != 0
}

func (t TypeSet) String() string {
	if t == AnyTypes {
		return "ANY"
	}
	var out strings.Builder
	for i := Type(1); i < numTypes; i++ {
		if t.Contains(i) {
			if out.Len() > 0 {
				out.WriteByte('|')
			}
			out.WriteString(i.String())
		}
	}
	return out.String()
}
