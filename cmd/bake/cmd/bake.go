// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"daml.com/x/bake/cmd/bake/cmd/login"
	"daml.com/x/bake/pkg/bakeconfig"
	"daml.com/x/bake/pkg/bakeversion"
	"daml.com/x/bake/pkg/module"
	"daml.com/x/bake/pkg/utils"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

const (
	buildGroupId = "build"
	metaGroupId  = "meta"
	BakeName     = "bake"
)

// Invocation carries the process streams and arguments, so commands can run in tests
type Invocation struct {
	Stdout, Stderr io.Writer
	Stdin          io.Reader
	OsArgs         []string
}

func (inv *Invocation) setOutputStreams(cmd *cobra.Command) {
	cmd.SetOut(inv.Stdout)
	cmd.SetErr(inv.Stderr)
	cmd.SetIn(inv.Stdin)
}

type rootOpts struct {
	inv       *Invocation
	verbose   bool
	skipTests bool
}

func RootCmd(inv *Invocation) (*cobra.Command, error) {
	if len(inv.OsArgs) == 0 {
		return nil, fmt.Errorf("Invocation.OsArgs must contain at least one entry similar to os.Args")
	}

	o := &rootOpts{inv: inv}
	cmd := &cobra.Command{
		Use:   BakeName + " [module paths...]",
		Short: "build Java modules and everything they depend on",
		Long: "Resolves, compiles, packages and tests each module given by path, " +
			"along with the modules it depends on. Outputs go to the repository's out/ directory.",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			s, err := o.session()
			if err != nil {
				return err
			}
			modules, err := s.modules(args)
			if err != nil {
				return err
			}
			return o.build(cmd, s, modules, false)
		},
	}
	defer inv.setOutputStreams(cmd)
	cmd.SetArgs(inv.OsArgs[1:])

	cmd.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "log at debug level")
	cmd.PersistentFlags().BoolVar(&o.skipTests, "skip-tests", false, "don't run tests")

	cmd.AddGroup(&cobra.Group{ID: buildGroupId, Title: "Build Commands"})
	cmd.AddGroup(&cobra.Group{ID: metaGroupId, Title: "Repository Commands"})

	cmd.AddCommand(
		setGroup(o.allCmd(), buildGroupId),
		setGroup(o.watchCmd(), buildGroupId),
		setGroup(o.depsCmd(), buildGroupId),
		setGroup(o.publishCmd(), buildGroupId),
		setGroup(initCmd(), metaGroupId),
		setGroup(initJavaCmd(), metaGroupId),
		setGroup(login.Cmd(bakeconfig.Get), metaGroupId),
	)

	version, err := yaml.Marshal(bakeversion.Get())
	if err != nil {
		return nil, err
	}
	cmd.Version = string(version)
	cmd.SetVersionTemplate("{{.Version}}")

	return cmd, nil
}

func setGroup(cmd *cobra.Command, id string) *cobra.Command {
	cmd.GroupID = id
	return cmd
}

func (o *rootOpts) allCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "build every module of the repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.session()
			if err != nil {
				return err
			}
			modules, err := s.repo.AllModules()
			if err != nil {
				return err
			}
			return o.build(cmd, s, modules, true)
		},
	}
}

// build bakes modules in order. With keepGoing, every module is attempted and the failures are joined.
func (o *rootOpts) build(cmd *cobra.Command, s *session, modules []*module.Module, keepGoing bool) error {
	start := time.Now()
	baker := s.baker(o.inv.Stdout, o.skipTests)

	var errs []error
	for _, m := range modules {
		if err := baker.Bake(cmd.Context(), m); err != nil {
			if !keepGoing {
				return err
			}
			utils.Failure(cmd, err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d of %d modules failed: %w", len(errs), len(modules), errors.Join(errs...))
	}

	utils.Success(cmd, "Done in %dms.", time.Since(start).Milliseconds())
	return nil
}
