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

package main

import (
	"bytes"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

const shared = "MATCH (a:person)->(b) | (a:person)->(c) WHERE SHARED(a.age > 25)"

func TestExplain(t *testing.T) {
	out, _, err := execute(t, "explain", "--schema", "../../testdata/modern-schema.yaml", shared)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"logical:\nSHARED PREDICATE condition=a.age > 25 distinct=true",
		"optimized:\nFILTER a.age > 25\n\tUNION DISTINCT",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
}

func TestRun(t *testing.T) {
	out, stderr, err := execute(t, "run", "-v", "--graph", "../../graph/testdata/modern.yaml",
		"MATCH (a:person)-[:knows]->(b:person) RETURN a.name, b.name")
	if err != nil {
		t.Fatal(err)
	}
	want := "a.name\tb.name\n'marko'\t'vadas'\n'marko'\t'josh'\n"
	if out != want {
		t.Errorf("got\n%s\nwant\n%s", out, want)
	}
	if !strings.Contains(stderr, "gqlc: ") {
		t.Errorf("verbose mode did not log: %q", stderr)
	}
}

func TestRunLattice(t *testing.T) {
	q := "MATCH (a)-[e:likes]->(b) WHERE e.weight IS TYPED FLOAT RETURN e.since"
	for _, tc := range []struct {
		lattice string
		rows    int
	}{
		{"widening", 0},
		{"any-numeric", 1},
	} {
		out, _, err := execute(t, "run", "--lattice", tc.lattice, "--graph", "../../graph/testdata/modern.yaml", q)
		if err != nil {
			t.Fatal(err)
		}
		if n := strings.Count(out, "\n") - 1; n != tc.rows {
			t.Errorf("%s: %d rows\n%s", tc.lattice, n, out)
		}
	}
}

func TestErrors(t *testing.T) {
	for _, args := range [][]string{
		{"run", shared},
		{"run", "--graph", "missing.yaml", shared},
		{"explain", "MATCH (a"},
		{"explain", "--lattice", "narrowing", shared},
		{"explain"},
	} {
		if _, _, err := execute(t, args...); err == nil {
			t.Errorf("%v: expected an error", args)
		}
	}
}
