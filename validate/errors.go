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
	"fmt"

	"github.com/SnellerInc/gqlmatch/expr"
)

// ValidationError is returned when a query
// is well-formed but not valid against its
// schema: an unknown type name, variable,
// label, or property; a shared predicate
// variable that is not bound by every branch;
// incomparable types; or an ill-typed expression.
type ValidationError struct {
	// Pos is the position of the offending
	// type name, element, or predicate.
	Pos expr.Position
	// Name is the offending variable,
	// type, label, or property name, if any.
	Name string
	Msg  string
	// Err is the underlying type error, if any.
	Err error
}

func (v *ValidationError) Error() string {
	if !v.Pos.IsValid() {
		return v.Msg
	}
	return fmt.Sprintf("%s: %s", v.Pos, v.Msg)
}

func (v *ValidationError) Unwrap() error { return v.Err }

func errorf(pos expr.Position, name string, f string, args ...interface{}) *ValidationError {
	return &ValidationError{Pos: pos, Name: name, Msg: fmt.Sprintf(f, args...)}
}

// InvariantError is returned when a collaborator
// breaks its contract, for example when a
// PatternResolver produces something other than
// a path record. It indicates a bug rather than
// a bad query and should not be retried.
type InvariantError struct {
	Msg string
}

func (i *InvariantError) Error() string {
	return "validate: invariant violation: " + i.Msg
}
