// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package ociresolver

import (
	"os"
	"path/filepath"
	"testing"

	"daml.com/x/bake/pkg/artifact"
	"daml.com/x/bake/pkg/bakeconfig"
	"daml.com/x/bake/pkg/bakeconfig/bakeremote"
	"daml.com/x/bake/pkg/dependency"
	"daml.com/x/bake/pkg/logging"
	"daml.com/x/bake/pkg/ocipusher"
	"daml.com/x/bake/pkg/resolutioncache"
	"daml.com/x/bake/pkg/testutil"
	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ResolverSuite struct {
	suite.Suite
	client *bakeremote.Remote
	config *bakeconfig.Config
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	t := s.T()
	s.client, _ = testutil.StartRegistry(t)
	s.config = testutil.NewRepo(t).Config()

	s.publish("com.google.inject", "guice", "2.0.0")
	s.publish("com.google.inject", "guice", "3.0.0", "javax.inject/javax.inject@1.0.0")
	s.publish("javax.inject", "javax.inject", "1.0.0")
	s.publish("javax.inject", "javax.inject", "1.1.0")
	s.publish("junit", "junit", "4.13.0", "org.hamcrest/hamcrest-core")
	s.publish("org.hamcrest", "hamcrest-core", "1.3.0")
}

// publish pushes a library jar and a sources jar for org/name
func (s *ResolverSuite) publish(org, name, version string, deps ...string) {
	t := s.T()
	dir := t.TempDir()
	jar := name + "-" + version + ".jar"
	sources := name + "-" + version + "-sources.jar"
	require.NoError(t, os.WriteFile(filepath.Join(dir, jar), []byte(org+":"+name+":"+version), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, sources), []byte("sources"), 0o644))

	var ids []dependency.Identifier
	for _, d := range deps {
		id, err := dependency.Parse(dependency.ExternalPrefix + d)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	ctx := testutil.Context(t)
	op, err := ocipusher.New(ctx, ocipusher.Opts{
		Repo:    org + "/" + name,
		Name:    name,
		Version: semver.MustParse(version),
		Dir:     dir,
		Layers: []ocipusher.Layer{
			{Name: jar, Kind: artifact.Library},
			{Name: sources, Kind: artifact.Source},
		},
		Dependencies: ids,
	})
	require.NoError(t, err)
	_, err = op.Do(ctx, s.client)
	require.NoError(t, err)
}

func (s *ResolverSuite) resolve(main ...dependency.Identifier) (*artifact.Map, error) {
	req := &resolutioncache.Request{
		Module: "foo",
		Manifests: map[string]*resolutioncache.Manifest{
			"foo": resolutioncache.NewManifest("foo", dependency.NewSet(main...), dependency.NewSet()),
		},
	}
	r := New(s.config, s.client, logging.Discard())
	return r.Resolve(testutil.Context(s.T()), req, resolutioncache.DefaultConfiguration)
}

func (s *ResolverSuite) TestResolvesTransitively() {
	t := s.T()
	result, err := s.resolve(dependency.External("com.google.inject", "guice", "3.0.0"))
	require.NoError(t, err)

	guice := artifact.Id{Organization: "com.google.inject", Name: "guice", Kind: artifact.Library}
	inject := artifact.Id{Organization: "javax.inject", Name: "javax.inject", Kind: artifact.Library}
	assert.Equal(t, []artifact.Id{
		guice,
		{Organization: "com.google.inject", Name: "guice", Kind: artifact.Source},
		inject,
		{Organization: "javax.inject", Name: "javax.inject", Kind: artifact.Source},
	}, result.Ids())

	path, ok := result.Get(inject)
	require.True(t, ok)
	assert.Equal(t, artifact.StorePath(s.config.ExternalStorePath, inject, "1.0.0", "jar"), path)
	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "javax.inject:javax.inject:1.0.0", string(contents))

	assert.Equal(t, []string{
		artifact.StorePath(s.config.ExternalStorePath, guice, "3.0.0", "jar"),
		artifact.StorePath(s.config.ExternalStorePath, inject, "1.0.0", "jar"),
	}, result.Libraries().Paths())
	assert.DirExists(t, s.config.OciLayoutCache)
}

func (s *ResolverSuite) TestVersionSelection() {
	tests := []struct {
		requested string
		expected  string
	}{
		{"", "3.0.0"},
		{"2.0.0", "2.0.0"},
		{"~2", "2.0.0"},
		{">= 2.5", "3.0.0"},
	}
	for _, tt := range tests {
		s.Run(tt.requested, func() {
			t := s.T()
			result, err := s.resolve(dependency.External("com.google.inject", "guice", tt.requested))
			require.NoError(t, err)

			id := artifact.Id{Organization: "com.google.inject", Name: "guice", Kind: artifact.Library}
			path, ok := result.Get(id)
			require.True(t, ok)
			assert.Equal(t, artifact.StorePath(s.config.ExternalStorePath, id, tt.expected, "jar"), path)
		})
	}
}

func (s *ResolverSuite) TestHighestVersionWinsConflicts() {
	t := s.T()
	result, err := s.resolve(
		dependency.External("com.google.inject", "guice", "3.0.0"),
		dependency.External("javax.inject", "javax.inject", "1.1.0"),
	)
	require.NoError(t, err)

	inject := artifact.Id{Organization: "javax.inject", Name: "javax.inject", Kind: artifact.Library}
	path, ok := result.Get(inject)
	require.True(t, ok)
	assert.Equal(t, artifact.StorePath(s.config.ExternalStorePath, inject, "1.1.0", "jar"), path)
	assert.NoFileExists(t, artifact.StorePath(s.config.ExternalStorePath, inject, "1.0.0", "jar"))
}

func (s *ResolverSuite) TestUnversionedTransitiveDependency() {
	t := s.T()
	result, err := s.resolve(dependency.External("junit", "junit", "4.13.0"))
	require.NoError(t, err)

	hamcrest := artifact.Id{Organization: "org.hamcrest", Name: "hamcrest-core", Kind: artifact.Library}
	path, ok := result.Get(hamcrest)
	require.True(t, ok)
	assert.FileExists(t, path)
}

func (s *ResolverSuite) TestUnknownDependency() {
	_, err := s.resolve(dependency.External("org", "nope", ""))
	assert.ErrorContains(s.T(), err, "org/nope not found")

	_, err = s.resolve(dependency.External("com.google.inject", "guice", "9.9.9"))
	assert.ErrorIs(s.T(), err, ErrVersionNotFound)
}

func TestSelectTag(t *testing.T) {
	tags := []string{"1.0.0", "1.2.0", "2.0.0-rc1", "latest", "1.2"}
	tests := []struct {
		requested string
		expected  string
	}{
		{"", "1.2.0"},
		{"latest", "latest"},
		{"1.2", "1.2"},
		{"~1.0", "1.0.0"},
		{">= 2.0.0-rc1", "2.0.0-rc1"},
	}
	for _, tt := range tests {
		t.Run(tt.requested, func(t *testing.T) {
			tag, err := SelectTag(tags, tt.requested)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, tag)
		})
	}

	_, err := SelectTag(tags, "3.0.0")
	assert.ErrorIs(t, err, ErrVersionNotFound)
	_, err = SelectTag(nil, "")
	assert.ErrorIs(t, err, ErrVersionNotFound)
}

func TestIsFloaty(t *testing.T) {
	tests := []struct {
		tag  string
		want bool
	}{
		{"3.4", true},
		{"latest", true},
		{"3", true},
		{"3.4.0", false},
		{"3.4.0-rc2", false},
	}
	for _, tc := range tests {
		t.Run(tc.tag, func(t *testing.T) {
			assert.Equal(t, tc.want, IsFloaty(tc.tag))
		})
	}
}
