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

package pir

import (
	"fmt"

	"github.com/SnellerInc/gqlmatch/expr"
	"github.com/SnellerInc/gqlmatch/schema"
	"github.com/SnellerInc/gqlmatch/validate"
)

// Build translates a validated query
// into a logical match tree.
func Build(res *validate.Result) (Node, error) {
	q := res.Query
	paths := q.Pattern.Branches()
	if len(paths) != len(res.Branches) {
		return nil, fmt.Errorf("pir: %d path patterns but %d resolved records", len(paths), len(res.Branches))
	}
	leaves := make([]Node, len(paths))
	for i := range paths {
		leaves[i] = NewPath(paths[i], res.Branches[i])
	}
	var top Node
	switch p := q.Pattern.(type) {
	case *expr.PathPattern:
		top = leaves[0]
	case *expr.PathUnion:
		top = &Union{All: !p.Distinct, inputs: leaves, record: res.Pattern}
	case *expr.SharedPredicate:
		top = NewSharedPredicate(leaves, p.Predicate, p.Distinct, res.Pattern)
	default:
		return nil, fmt.Errorf("pir: unexpected pattern %T", p)
	}
	if q.Where != nil {
		top = NewFilter(top, q.Where)
	}
	if len(q.Return) > 0 {
		top = NewProject(top, q.Return, q.Distinct, schema.NewPathRecord(res.Output...))
	}
	return top, nil
}
