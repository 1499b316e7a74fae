// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package resolutioncache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"daml.com/x/bake/pkg/artifact"
	"daml.com/x/bake/pkg/bakeerrors"
	"daml.com/x/bake/pkg/dependency"
	"daml.com/x/bake/pkg/logging"
	"daml.com/x/bake/pkg/module"
	"daml.com/x/bake/pkg/repository"
	"daml.com/x/bake/pkg/testutil"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	calls    []string
	requests []*Request
	err      error
}

func (f *fakeResolver) Resolve(_ context.Context, req *Request, configuration string) (*artifact.Map, error) {
	f.calls = append(f.calls, req.Module+":"+configuration)
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}

	ids, err := req.Externals(configuration)
	if err != nil {
		return nil, err
	}
	result := artifact.NewMap()
	for _, id := range ids {
		result.Put(artifact.Id{Organization: id.Organization, Name: id.Name, Kind: artifact.Library}, "/store/"+id.Name+".jar")
	}
	return result, nil
}

// foo -> foo.bar (guice); foo tests -> junit, foo.fixtures (hamcrest); foo.bar tests -> mockito
func newTestRepo(t *testing.T) *testutil.Repo {
	return testutil.NewRepo(t).
		Java("foo", module.JavaSpec{
			Dependencies:     []string{"foo.bar"},
			TestDependencies: []string{"external:junit/junit@4.13", "foo.fixtures"},
		}).
		Java("foo.bar", module.JavaSpec{
			Dependencies:     []string{"external:com.google.inject/guice@3.0"},
			TestDependencies: []string{"external:org.mockito/mockito"},
		}).
		Java("foo.fixtures", module.JavaSpec{
			Dependencies: []string{"external:org.hamcrest/hamcrest"},
		})
}

func newCache(t *testing.T, r *testutil.Repo, resolver Resolver) (*Cache, *module.Module) {
	repo := repository.New(r.Config(), logging.Discard())
	m, err := repo.ModuleByName("foo")
	require.NoError(t, err)
	return New(repo, resolver, logging.Discard()), m
}

func TestFingerprint(t *testing.T) {
	c, foo := newCache(t, newTestRepo(t), &fakeResolver{})

	fingerprint, err := c.Fingerprint(testutil.Context(t), foo)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"external:com.google.inject/guice@3.0",
		"external:junit/junit@4.13",
		"external:org.hamcrest/hamcrest",
	}, fingerprint)
}

func TestResolveWritesRecordAndManifests(t *testing.T) {
	r := newTestRepo(t)
	resolver := &fakeResolver{}
	c, foo := newCache(t, r, resolver)
	ctx := testutil.Context(t)

	record, err := c.Resolve(ctx, foo)
	require.NoError(t, err)
	assert.Equal(t, []string{"foo:default", "foo:test"}, resolver.calls)

	assert.Equal(t, []string{"/store/guice.jar"}, record.Main.Paths())
	assert.Equal(t, []string{"/store/junit.jar", "/store/hamcrest.jar"}, record.Test.Paths())
	assert.Equal(t, []string{"/store/guice.jar", "/store/junit.jar", "/store/hamcrest.jar"}, record.All.Paths())

	req := resolver.requests[0]
	assert.ElementsMatch(t, []string{"foo", "foo.bar", "foo.fixtures"}, lo.Keys(req.Manifests))
	for _, name := range []string{"foo", "foo.bar", "foo.fixtures"} {
		manifest, err := ReadManifest(filepath.Join(r.Root, "out", "modules", name, ManifestFilename))
		require.NoError(t, err)
		assert.Equal(t, name, manifest.Info.Module)
		assert.Equal(t, InternalOrganization, manifest.Info.Organization)
		assert.Equal(t, WorkingRevision, manifest.Info.Revision)
	}
	assert.FileExists(t, filepath.Join(r.Root, "out", "modules", "foo", RecordFilename))
	assert.NoFileExists(t, filepath.Join(r.Root, "out", "modules", "foo", RecordFilename+".temp"))

	// memoized within the process
	again, err := c.Resolve(ctx, foo)
	require.NoError(t, err)
	assert.Same(t, record, again)
	assert.Len(t, resolver.calls, 2)
}

func TestResolveReusesMatchingRecord(t *testing.T) {
	r := newTestRepo(t)
	ctx := testutil.Context(t)

	first, foo := newCache(t, r, &fakeResolver{})
	expected, err := first.Resolve(ctx, foo)
	require.NoError(t, err)

	resolver := &fakeResolver{}
	second, foo := newCache(t, r, resolver)
	record, err := second.Resolve(ctx, foo)
	require.NoError(t, err)
	assert.Empty(t, resolver.calls)
	assert.Equal(t, expected.All.Ids(), record.All.Ids())
	assert.Equal(t, expected.All.Paths(), record.All.Paths())

	// a new dependency invalidates the record
	r.Java("foo.fixtures", module.JavaSpec{Dependencies: []string{"external:org.assertj/assertj"}})
	resolver = &fakeResolver{}
	third, foo := newCache(t, r, resolver)
	record, err = third.Resolve(ctx, foo)
	require.NoError(t, err)
	assert.Len(t, resolver.calls, 2)
	assert.Contains(t, record.Dependencies, "external:org.assertj/assertj")
}

func TestResolveIgnoresCorruptRecord(t *testing.T) {
	r := newTestRepo(t)
	r.File(filepath.Join("out", "modules", "foo", RecordFilename), "kind: [")
	resolver := &fakeResolver{}
	c, foo := newCache(t, r, resolver)

	_, err := c.Resolve(testutil.Context(t), foo)
	require.NoError(t, err)
	assert.Len(t, resolver.calls, 2)
}

func TestResolveFailure(t *testing.T) {
	c, foo := newCache(t, newTestRepo(t), &fakeResolver{err: errors.New("registry unreachable")})

	_, err := c.Resolve(testutil.Context(t), foo)
	assert.Equal(t, bakeerrors.Resolution, bakeerrors.Code(err))
	assert.ErrorContains(t, err, "Failed to resolve external dependencies for foo.")
	assert.ErrorContains(t, err, "registry unreachable")
}

func TestLastModified(t *testing.T) {
	c, foo := newCache(t, newTestRepo(t), &fakeResolver{})

	before, err := c.LastModified(foo)
	require.NoError(t, err)
	assert.True(t, before.IsZero())

	_, err = c.Resolve(testutil.Context(t), foo)
	require.NoError(t, err)
	after, err := c.LastModified(foo)
	require.NoError(t, err)
	assert.False(t, after.IsZero())
}

func TestRequestExternals(t *testing.T) {
	main := dependency.NewSet(dependency.Internal("foo.bar"), dependency.External("org", "direct", "1.0"))
	req := &Request{
		Module: "foo",
		Manifests: map[string]*Manifest{
			"foo": NewManifest("foo", main, dependency.NewSet(dependency.External("junit", "junit", ""))),
			"foo.bar": NewManifest("foo.bar",
				dependency.NewSet(dependency.External("org", "transitive", "")),
				dependency.NewSet(dependency.External("org", "bar-test-only", ""))),
		},
	}

	ids, err := req.Externals(DefaultConfiguration)
	require.NoError(t, err)
	assert.Equal(t, []dependency.Identifier{
		dependency.External("org", "transitive", ""),
		dependency.External("org", "direct", "1.0"),
	}, ids)

	ids, err = req.Externals(TestConfiguration)
	require.NoError(t, err)
	assert.Equal(t, []dependency.Identifier{
		dependency.External("org", "transitive", ""),
		dependency.External("org", "direct", "1.0"),
		dependency.External("junit", "junit", ""),
	}, ids)

	delete(req.Manifests, "foo.bar")
	_, err = req.Externals(DefaultConfiguration)
	assert.ErrorContains(t, err, "no dependency manifest for foo.bar")
}
