// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"

	"daml.com/x/bake/pkg/dependency"
	"daml.com/x/bake/pkg/module"
	"daml.com/x/bake/pkg/publish"
	"github.com/Masterminds/semver/v3"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

const DefaultPublishOrganization = "bake"

type publishOpts struct {
	version, organization string
	dryRun, noGit         bool
	annotations           map[string]string
}

func (o *rootOpts) publishCmd() *cobra.Command {
	p := &publishOpts{}

	cmd := &cobra.Command{
		Use:   "publish <module path>",
		Short: "build a module and push its jar to the registry",
		Long: "Builds the module, then pushes its jar to <registry>/<organization>/<module>:<version>, " +
			"where other repositories resolve it as external:<organization>/<module>@<version>. " +
			"An existing version is never overwritten.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := semver.StrictNewVersion(p.version)
			if err != nil {
				return fmt.Errorf("--version must be a complete semantic version: %w", err)
			}

			s, err := o.session()
			if err != nil {
				return err
			}
			modules, err := s.modules(args)
			if err != nil {
				return err
			}
			m := modules[0]

			baker := s.baker(o.inv.Stdout, o.skipTests)
			if err := baker.Bake(cmd.Context(), m); err != nil {
				return err
			}
			jar, err := baker.PublishedJar(m)
			if err != nil {
				return err
			}
			deps, err := publishedDependencies(cmd.Context(), s, m)
			if err != nil {
				return err
			}

			config := &publish.Config{
				Organization: p.organization,
				Name:         m.Name,
				Version:      version,
				Jar:          jar,
				Dependencies: deps,
				Annotations:  p.annotations,
				DryRun:       p.dryRun,
			}
			if !p.noGit {
				config.GitDir = s.config.RepoRoot
			}
			return publish.New(config, cmd).Publish(cmd.Context(), s.remote)
		},
	}

	cmd.Flags().StringVar(&p.version, "version", "", "(required) version to publish")
	cmd.Flags().StringVar(&p.organization, "organization", DefaultPublishOrganization, "organization the module is published under")
	cmd.Flags().BoolVar(&p.dryRun, "dry-run", false, "build and pack, but don't push")
	cmd.Flags().BoolVar(&p.noGit, "no-git", false, "don't annotate with the checked out git commit")
	cmd.Flags().StringToStringVarP(&p.annotations, "annotation", "a", nil, "extra manifest annotations")
	_ = cmd.MarkFlagRequired("version")

	return cmd
}

// publishedDependencies are the external libraries consumers need alongside the jar.
// Fat jars already contain theirs.
func publishedDependencies(ctx context.Context, s *session, m *module.Module) ([]dependency.Identifier, error) {
	if m.Kind == module.FatJar {
		return nil, nil
	}
	main, err := s.repo.MainDependencies(ctx, m)
	if err != nil {
		return nil, err
	}
	return lo.Reject(main.External(), func(id dependency.Identifier, _ int) bool {
		return m.IsProvided(id)
	}), nil
}
