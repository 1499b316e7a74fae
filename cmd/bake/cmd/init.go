// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"daml.com/x/bake/pkg/bakeconfig"
	"daml.com/x/bake/pkg/module"
	"daml.com/x/bake/pkg/utils"
	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "make a directory the root of a bake repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			configPath, err := bakeconfig.Init(dir)
			if err != nil {
				return err
			}
			utils.Success(cmd, "Created %s", configPath)
			return nil
		},
	}
}

func initJavaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-java <module path>",
		Short: "scaffold a Java module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := bakeconfig.Get()
			if err != nil {
				return err
			}
			descriptor, err := scaffoldJava(config.RepoRoot, args[0])
			if err != nil {
				return err
			}
			utils.Success(cmd, "Created %s", descriptor)
			return nil
		},
	}
}

// scaffoldJava creates the descriptor and source directories of a new Java module at path
func scaffoldJava(repoRoot, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(repoRoot, abs)
	if err != nil {
		return "", err
	}
	name := module.NameForRelativeDirectory(rel)
	if err := module.ValidateName(name); err != nil {
		return "", err
	}

	descriptorPath := filepath.Join(abs, module.DescriptorFilename)
	if _, err := os.Stat(descriptorPath); err == nil {
		return "", fmt.Errorf("%s already exists", descriptorPath)
	}

	d := module.NewDescriptor(module.Java)
	contents, err := d.Marshal()
	if err != nil {
		return "", err
	}

	dirs := append(append([]string{}, d.Java.Source...), d.Java.TestSource...)
	for i := range dirs {
		dirs[i] = filepath.Join(abs, dirs[i])
	}
	if err := utils.EnsureDirs(dirs...); err != nil {
		return "", err
	}
	if err := os.WriteFile(descriptorPath, contents, 0o644); err != nil {
		return "", err
	}
	return descriptorPath, nil
}
