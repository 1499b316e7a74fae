// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"

	"daml.com/x/bake/pkg/module"
	"daml.com/x/bake/pkg/utils"
	"daml.com/x/bake/pkg/watch"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func (o *rootOpts) watchCmd() *cobra.Command {
	var debounce = watch.DefaultDebounce

	cmd := &cobra.Command{
		Use:   "watch <module paths...>",
		Short: "rebuild modules whenever the repository changes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.session()
			if err != nil {
				return err
			}
			modules, err := s.modules(args)
			if err != nil {
				return err
			}
			names := lo.Map(modules, func(m *module.Module, _ int) string { return m.Name })

			w, err := watch.New(s.config.RepoRoot, debounce, s.logger)
			if err != nil {
				return err
			}

			rebuild := func(ctx context.Context) error {
				// descriptors may have changed, so modules are loaded again
				s.reload()
				modules := make([]*module.Module, 0, len(names))
				for _, name := range names {
					m, err := s.repo.ModuleByName(name)
					if err != nil {
						utils.Failure(cmd, err)
						return nil
					}
					modules = append(modules, m)
				}
				if err := o.build(cmd, s, modules, false); err != nil {
					utils.Failure(cmd, err)
				}
				utils.Status(cmd, "Watching for changes...")
				return nil
			}

			if err := rebuild(cmd.Context()); err != nil {
				return err
			}
			return w.Run(cmd.Context(), rebuild)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", debounce, "how long changes must settle before rebuilding")
	return cmd
}
