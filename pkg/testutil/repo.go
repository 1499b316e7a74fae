// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"daml.com/x/bake/pkg/bakeconfig"
	"daml.com/x/bake/pkg/module"
	"daml.com/x/bake/pkg/schema"
	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/require"
)

// Repo is a bake repository in a temp dir
type Repo struct {
	t    *testing.T
	Root string
}

func NewRepo(t *testing.T) *Repo {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, bakeconfig.RepositoryMarker), 0o755))

	// t.TempDir may be behind a symlink (e.g. macOS), which breaks relative path checks
	resolved, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	return &Repo{t: t, Root: resolved}
}

// Config loads the repository's config
func (r *Repo) Config() *bakeconfig.Config {
	config, err := bakeconfig.GetForRepo(r.Root)
	require.NoError(r.t, err)
	return config
}

func (r *Repo) ModuleDir(name string) string {
	return filepath.Join(r.Root, module.RelativeDirectory(name))
}

// Java writes a Java module descriptor for name
func (r *Repo) Java(name string, spec module.JavaSpec) *Repo {
	return r.descriptor(name, struct {
		schema.ManifestMeta `yaml:",inline"`
		Spec                module.JavaSpec `yaml:"spec"`
	}{schema.New(string(module.Java)), spec})
}

// FatJar writes a FatJar module descriptor for name
func (r *Repo) FatJar(name string, spec module.FatJarSpec) *Repo {
	return r.descriptor(name, struct {
		schema.ManifestMeta `yaml:",inline"`
		Spec                module.FatJarSpec `yaml:"spec"`
	}{schema.New(string(module.FatJar)), spec})
}

func (r *Repo) descriptor(name string, v any) *Repo {
	bytes, err := yaml.Marshal(v)
	require.NoError(r.t, err)
	r.File(filepath.Join(module.RelativeDirectory(name), module.DescriptorFilename), string(bytes))
	return r
}

// File writes contents at path relative to the repository root
func (r *Repo) File(path, contents string) string {
	p := filepath.Join(r.Root, path)
	require.NoError(r.t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(r.t, os.WriteFile(p, []byte(contents), 0o644))
	return p
}

// Touch sets path's modification time
func Touch(t *testing.T, path string, modTime time.Time) {
	require.NoError(t, os.Chtimes(path, modTime, modTime))
}
