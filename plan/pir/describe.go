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
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/SnellerInc/gqlmatch/expr"
)

// Describe writes a plain-text
// representation of the tree n to dst,
// one node per line.
func Describe(dst io.Writer, n Node) {
	describe(dst, n, 0, "")
}

// String returns the output of Describe.
func String(n Node) string {
	var buf bytes.Buffer
	Describe(&buf, n)
	return buf.String()
}

func describe(dst io.Writer, n Node, depth int, prefix string) {
	io.WriteString(dst, strings.Repeat("\t", depth))
	io.WriteString(dst, prefix)
	switch n := n.(type) {
	case *Path:
		fmt.Fprintf(dst, "PATH %s %s\n", expr.ToString(n.Pattern), n.record)
	case *Filter:
		fmt.Fprintf(dst, "FILTER %s\n", expr.ToString(n.Where))
		describe(dst, n.input, depth+1, "")
	case *Union:
		if n.All {
			io.WriteString(dst, "UNION ALL")
		} else {
			io.WriteString(dst, "UNION DISTINCT")
		}
		fmt.Fprintf(dst, " %s\n", n.record)
		for _, in := range n.inputs {
			describe(dst, in, depth+1, "")
		}
	case *SharedPredicate:
		fmt.Fprintf(dst, "SHARED PREDICATE condition=%s distinct=%t %s\n",
			expr.ToString(n.Cond), n.Distinct, n.record)
		for i, in := range n.inputs {
			var p string
			switch i {
			case 0:
				p = "left: "
			case 1:
				p = "right: "
			default:
				p = fmt.Sprintf("input %d: ", i)
			}
			describe(dst, in, depth+1, p)
		}
	case *Project:
		cols := make([]string, len(n.Columns))
		for i := range n.Columns {
			cols[i] = n.Columns[i].Result()
			if s := expr.ToString(n.Columns[i].Expr); s != cols[i] {
				cols[i] = s + " AS " + expr.QuoteID(cols[i])
			}
		}
		io.WriteString(dst, "PROJECT ")
		if n.Distinct {
			io.WriteString(dst, "DISTINCT ")
		}
		fmt.Fprintf(dst, "%s\n", strings.Join(cols, ", "))
		describe(dst, n.input, depth+1, "")
	default:
		panic(fmt.Sprintf("pir: unexpected node %T", n))
	}
}
