// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package ocicache

import (
	"bytes"
	"context"
	"io"
	"testing"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/content/memory"
)

func TestFetchPopulatesCache(t *testing.T) {
	ctx := context.Background()
	blob := []byte("PK fake jar")
	desc := content.NewDescriptorFromBytes("application/java-archive", blob)

	origin := memory.New()
	require.NoError(t, origin.Push(ctx, desc, bytes.NewReader(blob)))
	cache := memory.New()

	target := New(origin, cache)

	fetched := fetch(t, target, desc)
	assert.Equal(t, blob, fetched)

	exists, err := cache.Exists(ctx, desc)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestFetchServesFromCache(t *testing.T) {
	ctx := context.Background()
	blob := []byte("cached only")
	desc := content.NewDescriptorFromBytes("application/java-archive", blob)

	cache := memory.New()
	require.NoError(t, cache.Push(ctx, desc, bytes.NewReader(blob)))

	target := New(memory.New(), cache)
	assert.Equal(t, blob, fetch(t, target, desc))

	exists, err := target.Exists(ctx, desc)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCachedTargetOnDisk(t *testing.T) {
	ctx := context.Background()
	blob := []byte("to disk")
	desc := content.NewDescriptorFromBytes("application/java-archive", blob)
	origin := memory.New()
	require.NoError(t, origin.Push(ctx, desc, bytes.NewReader(blob)))

	dir := t.TempDir()
	target, err := CachedTarget(origin, dir)
	require.NoError(t, err)
	assert.Equal(t, blob, fetch(t, target, desc))

	// a fresh cache on the same dir serves the blob without the origin
	again, err := CachedTarget(memory.New(), dir)
	require.NoError(t, err)
	assert.Equal(t, blob, fetch(t, again, desc))
}

func fetch(t *testing.T, target interface {
	Fetch(context.Context, ocispec.Descriptor) (io.ReadCloser, error)
}, desc ocispec.Descriptor) []byte {
	rc, err := target.Fetch(context.Background(), desc)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	return data
}
