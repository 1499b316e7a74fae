// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"

	"daml.com/x/bake/pkg/depstable"
	"github.com/spf13/cobra"
)

func (o *rootOpts) depsCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "deps <module path>",
		Short: "show a module's expanded dependencies",
		Long: `show a module's expanded dependencies

	main and test include the exports of internal dependencies.
	fingerprint lists the external dependencies its resolution is keyed on.
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.session()
			if err != nil {
				return err
			}
			modules, err := s.modules(args)
			if err != nil {
				return err
			}

			summary, err := depstable.New(cmd.Context(), s.repo, s.cache, modules[0])
			if err != nil {
				return err
			}

			switch output {
			case "table":
				cmd.Println(summary.Table())
			case "json":
				data, err := json.MarshalIndent(summary, "", "    ")
				if err != nil {
					return err
				}
				cmd.Println(string(data))
			default:
				return fmt.Errorf("output format not supported: %s", output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: json, table")
	return cmd
}
