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
	"context"
	"fmt"
	"log"

	"github.com/SnellerInc/gqlmatch"
	"github.com/SnellerInc/gqlmatch/graph"
	"github.com/SnellerInc/gqlmatch/schema"
	"github.com/SnellerInc/gqlmatch/vm"
	"github.com/spf13/cobra"
)

// rootOptions are the flags shared by every command.
type rootOptions struct {
	verbose bool
	config  string
	lattice string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "gqlc",
		Short: "Compile and run GQL MATCH queries",
		Long: `gqlc compiles GQL MATCH queries with shared predicates
(p1 | p2 WHERE SHARED(cond)) and type predicates (x IS TYPED T)
into logical plans, and runs them against YAML fixture graphs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log compilation to stderr")
	cmd.PersistentFlags().StringVar(&opts.config, "config", "", "compiler config file (YAML)")
	cmd.PersistentFlags().StringVar(&opts.lattice, "lattice", "", "type predicate lattice (widening|any-numeric)")
	cmd.AddCommand(newExplainCommand(opts))
	cmd.AddCommand(newRunCommand(opts))
	return cmd
}

// options builds the compiler options; flags
// take precedence over the config file
func (o *rootOptions) options(cmd *cobra.Command, g *schema.Graph) ([]gqlmatch.Option, error) {
	var opts []gqlmatch.Option
	if o.config != "" {
		c, err := gqlmatch.LoadConfig(o.config)
		if err != nil {
			return nil, err
		}
		opts, err = c.Options()
		if err != nil {
			return nil, err
		}
	}
	if o.lattice != "" {
		l, err := vm.ParseLattice(o.lattice)
		if err != nil {
			return nil, err
		}
		opts = append(opts, gqlmatch.WithLattice(l))
	}
	if g != nil {
		opts = append(opts, gqlmatch.WithGraphSchema(g))
	}
	if o.verbose {
		opts = append(opts, gqlmatch.WithLogger(log.New(cmd.ErrOrStderr(), "gqlc: ", log.LstdFlags)))
	}
	return opts, nil
}

func newExplainCommand(root *rootOptions) *cobra.Command {
	var schemaPath string
	cmd := &cobra.Command{
		Use:   "explain QUERY",
		Short: "Print the logical plan of a query before and after optimization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var g *schema.Graph
			if schemaPath != "" {
				var err error
				g, err = schema.ReadGraph(schemaPath)
				if err != nil {
					return err
				}
			}
			opts, err := root.options(cmd, g)
			if err != nil {
				return err
			}
			q, err := gqlmatch.Compile(args[0], opts...)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), q.Explain())
			return err
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "", "graph schema file (YAML)")
	return cmd
}

func newRunCommand(root *rootOptions) *cobra.Command {
	var graphPath string
	cmd := &cobra.Command{
		Use:   "run QUERY",
		Short: "Run a query against a fixture graph and print the rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if graphPath == "" {
				return fmt.Errorf("--graph is required")
			}
			g, err := graph.Load(graphPath)
			if err != nil {
				return err
			}
			opts, err := root.options(cmd, g.Schema)
			if err != nil {
				return err
			}
			q, err := gqlmatch.Compile(args[0], opts...)
			if err != nil {
				return err
			}
			res, err := q.Run(context.Background(), g)
			if err != nil {
				return err
			}
			return res.Write(cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&graphPath, "graph", "", "graph file (YAML, optionally .zst or .s2)")
	return cmd
}
