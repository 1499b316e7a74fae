// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package repository

import (
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"daml.com/x/bake/pkg/bakeconfig"
	"daml.com/x/bake/pkg/module"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/samber/lo"
)

// AllModules discovers every module of the repository.
// out/, hidden directories, nested repositories and git-ignored paths are skipped.
func (r *Repository) AllModules() ([]*module.Module, error) {
	patterns, err := gitignore.ReadPatterns(osfs.New(r.Root), nil)
	if err != nil {
		return nil, err
	}
	ignored := gitignore.NewMatcher(patterns)

	var names []string
	err = filepath.WalkDir(r.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == r.Root {
			return nil
		}

		rel, err := filepath.Rel(r.Root, path)
		if err != nil {
			return err
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")

		if d.IsDir() {
			switch {
			case rel == bakeconfig.OutputDirName,
				strings.HasPrefix(d.Name(), "."),
				isNestedRepository(path),
				ignored.Match(parts, true):
				return filepath.SkipDir
			}
			return nil
		}

		if d.Name() != module.DescriptorFilename || len(parts) == 1 || ignored.Match(parts, false) {
			return nil
		}
		names = append(names, module.NameForRelativeDirectory(filepath.Dir(rel)))
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(names)
	r.logger.Debug("discovered modules", "count", len(names))

	modules := make([]*module.Module, 0, len(names))
	for _, name := range names {
		m, err := r.ModuleByName(name)
		if err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}
	return lo.Uniq(modules), nil
}
