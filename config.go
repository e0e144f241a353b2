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

package gqlmatch

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/SnellerInc/gqlmatch/plan/pir"
	"github.com/SnellerInc/gqlmatch/schema"
	"github.com/SnellerInc/gqlmatch/vm"
	"golang.org/x/exp/slices"
	"sigs.k8s.io/yaml"
)

// Config is the file form of the
// compiler options:
//
//	lattice: any-numeric
//	case_sensitive: true
//	rules: [shared-predicate, filter-merge]
//	schema_path: modern-schema.yaml
type Config struct {
	// Lattice is a name accepted by vm.ParseLattice.
	Lattice string `json:"lattice,omitempty"`
	// CaseSensitive is passed to WithCaseSensitive.
	CaseSensitive bool `json:"case_sensitive,omitempty"`
	// Rules, if present, lists the rewrite
	// rules to apply by name, in order.
	Rules []string `json:"rules,omitempty"`
	// SchemaPath is the path of a graph schema;
	// relative paths are relative to the
	// directory of the config file.
	SchemaPath string `json:"schema_path,omitempty"`

	dir string
}

// DecodeConfig decodes a YAML (or JSON) config.
func DecodeConfig(data []byte) (*Config, error) {
	c := new(Config)
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return nil, fmt.Errorf("gqlmatch: config: %w", err)
	}
	return c, nil
}

// LoadConfig reads a config file.
func LoadConfig(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := DecodeConfig(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.dir = filepath.Dir(path)
	return c, nil
}

// Options converts the config into
// options for Compile.
func (c *Config) Options() ([]Option, error) {
	l, err := vm.ParseLattice(c.Lattice)
	if err != nil {
		return nil, err
	}
	opts := []Option{WithLattice(l), WithCaseSensitive(c.CaseSensitive)}
	if c.Rules != nil {
		reg := pir.NewRegistry()
		for _, name := range c.Rules {
			r, ok := pir.LookupRule(name)
			if !ok {
				return nil, fmt.Errorf("gqlmatch: config: unknown rule %q", name)
			}
			if slices.IndexFunc(reg.Rules(), func(r pir.Rule) bool { return r.Name() == name }) >= 0 {
				return nil, fmt.Errorf("gqlmatch: config: rule %q listed twice", name)
			}
			reg.Register(r)
		}
		opts = append(opts, WithRegistry(reg))
	}
	if c.SchemaPath != "" {
		path := c.SchemaPath
		if !filepath.IsAbs(path) && c.dir != "" {
			path = filepath.Join(c.dir, path)
		}
		g, err := schema.ReadGraph(path)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithGraphSchema(g))
	}
	return opts, nil
}
