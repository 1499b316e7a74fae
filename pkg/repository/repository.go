// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package repository

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"daml.com/x/bake/pkg/bakeconfig"
	"daml.com/x/bake/pkg/bakeerrors"
	"daml.com/x/bake/pkg/module"
	"daml.com/x/bake/pkg/utils"
)

var ErrModuleNotFound = fmt.Errorf("module not found")

// Repository is the module registry of one bake repository.
// It loads each module at most once and hands out the same *module.Module for every lookup.
type Repository struct {
	Root    string
	OutPath string

	logger *slog.Logger

	mu      sync.Mutex
	modules map[string]*module.Module

	setsMu sync.Mutex
	sets   map[string]*setsEntry
}

func New(config *bakeconfig.Config, logger *slog.Logger) *Repository {
	return &Repository{
		Root:    config.RepoRoot,
		OutPath: config.OutPath,
		logger:  logger,
		modules: map[string]*module.Module{},
		sets:    map[string]*setsEntry{},
	}
}

// ModuleByName returns the module called name, loading its descriptor on first use
func (r *Repository) ModuleByName(name string) (*module.Module, error) {
	if err := module.ValidateName(name); err != nil {
		return nil, bakeerrors.NewConfigurationError(name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.modules[name]; ok {
		return m, nil
	}

	m, err := r.load(name)
	if err != nil {
		return nil, bakeerrors.NewConfigurationError(name, err)
	}
	r.modules[name] = m
	return m, nil
}

func (r *Repository) load(name string) (*module.Module, error) {
	dir := filepath.Join(r.Root, module.RelativeDirectory(name))
	descriptorPath := filepath.Join(dir, module.DescriptorFilename)

	ok, err := utils.FileExists(descriptorPath)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s (expected %s)", ErrModuleNotFound, name, r.RelativePath(descriptorPath))
	}

	d, err := module.ReadDescriptor(descriptorPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.RelativePath(descriptorPath), err)
	}

	r.logger.Debug("loaded module", "module", name, "kind", d.Kind)
	return module.New(name, dir, d)
}

// ModuleForPath returns the module rooted at path, which may be relative to the working directory
func (r *Repository) ModuleForPath(path string) (*module.Module, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	rel, err := filepath.Rel(r.Root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, bakeerrors.NewConfigurationError("", fmt.Errorf("%s is outside of repository %s", path, r.Root))
	}
	if rel == "." {
		return nil, bakeerrors.NewConfigurationError("", fmt.Errorf("the repository root %s isn't a module", r.Root))
	}

	// a path to the descriptor itself is accepted too
	if filepath.Base(rel) == module.DescriptorFilename {
		rel = filepath.Dir(rel)
	}
	return r.ModuleByName(module.NameForRelativeDirectory(rel))
}

// OutputDirectory returns a directory under out/, creating it if necessary
func (r *Repository) OutputDirectory(parts ...string) (string, error) {
	dir := filepath.Join(append([]string{r.OutPath}, parts...)...)
	if err := utils.EnsureDirs(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// ModuleOutputDirectory is out/modules/<name>
func (r *Repository) ModuleOutputDirectory(m *module.Module) (string, error) {
	return r.OutputDirectory("modules", m.Name)
}

// RelativePath renders path relative to the repository root when possible, for messages
func (r *Repository) RelativePath(path string) string {
	rel, err := filepath.Rel(r.Root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

func isNestedRepository(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, bakeconfig.RepositoryMarker))
	return err == nil && info.IsDir()
}
