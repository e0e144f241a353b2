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
	"strings"

	"github.com/SnellerInc/gqlmatch/expr"
)

// Lattice is the compatibility relation
// used by IS TYPED to decide whether a
// runtime value satisfies a declared type.
//
// Under every lattice a value satisfies its
// own type, and an integral value satisfies
// an integral type at least as wide:
//
//	BYTE <= SHORT <= INTEGER <= LONG
//
// The lattices differ for FLOAT and DOUBLE.
type Lattice uint8

const (
	// Widening extends the integral order to
	//
	//	BYTE <= SHORT <= INTEGER <= LONG <= FLOAT <= DOUBLE
	//
	// so a DOUBLE never satisfies FLOAT.
	Widening Lattice = iota
	// AnyNumeric accepts any numeric
	// value for FLOAT and DOUBLE.
	AnyNumeric
)

func (l Lattice) String() string {
	switch l {
	case Widening:
		return "widening"
	case AnyNumeric:
		return "any-numeric"
	}
	return fmt.Sprintf("Lattice(%d)", uint8(l))
}

// ParseLattice parses the name of a lattice
// as produced by Lattice.String.
func ParseLattice(s string) (Lattice, error) {
	switch strings.ToLower(s) {
	case "", "widening":
		return Widening, nil
	case "any-numeric", "any_numeric", "anynumeric":
		return AnyNumeric, nil
	}
	return 0, fmt.Errorf("vm: unknown lattice %q", s)
}

// Compatible returns whether the runtime value v
// satisfies the declared type target. NULL is not
// compatible with any type.
func (l Lattice) Compatible(v any, target expr.Type) bool {
	k := Kind(v)
	switch {
	case k == expr.InvalidType || k == expr.TypeNull:
		return false
	case k == target:
		return true
	case target.Integral():
		return k.Integral() && k.Rank() <= target.Rank()
	case target == expr.TypeFloat || target == expr.TypeDouble:
		if l == AnyNumeric {
			return k.Numeric()
		}
		return k.Numeric() && k.Rank() <= target.Rank()
	}
	return false
}
