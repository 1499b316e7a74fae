// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package ocicache tees blobs pulled from a registry into a local oci-layout directory,
// so that the next resolution of the same artifact doesn't hit the network.
//
// Adapted from https://github.com/oras-project/oras/blob/ae989e834228c87ebb795643d61da983b1d47a1b/internal/cache/target.go
package ocicache

import (
	"context"
	"io"
	"sync"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/content/oci"
	"oras.land/oras-go/v2/registry"
)

// CachedTarget wraps src so that fetched content is read from, and written through to,
// the oci-layout at ociLayoutCache
func CachedTarget(src oras.ReadOnlyTarget, ociLayoutCache string) (oras.ReadOnlyTarget, error) {
	store, err := oci.New(ociLayoutCache)
	if err != nil {
		return nil, err
	}
	return New(src, store), nil
}

type cachedTarget struct {
	oras.ReadOnlyTarget
	cache content.Storage
}

func New(src oras.ReadOnlyTarget, cache content.Storage) oras.ReadOnlyTarget {
	t := &cachedTarget{ReadOnlyTarget: src, cache: cache}
	if fetcher, ok := src.(registry.ReferenceFetcher); ok {
		return &cachedReferenceTarget{cachedTarget: t, ReferenceFetcher: fetcher}
	}
	return t
}

func (t *cachedTarget) Fetch(ctx context.Context, desc ocispec.Descriptor) (io.ReadCloser, error) {
	if rc, err := t.cache.Fetch(ctx, desc); err == nil {
		return rc, nil
	}

	rc, err := t.ReadOnlyTarget.Fetch(ctx, desc)
	if err != nil {
		return nil, err
	}
	return t.tee(ctx, rc, desc), nil
}

func (t *cachedTarget) Exists(ctx context.Context, desc ocispec.Descriptor) (bool, error) {
	if ok, err := t.cache.Exists(ctx, desc); err == nil && ok {
		return true, nil
	}
	return t.ReadOnlyTarget.Exists(ctx, desc)
}

// tee returns a reader of rc that pushes everything read into the cache.
// Closing it waits for the push to finish.
func (t *cachedTarget) tee(ctx context.Context, rc io.ReadCloser, desc ocispec.Descriptor) io.ReadCloser {
	pr, pw := io.Pipe()

	var wg sync.WaitGroup
	var pushErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		if pushErr = t.cache.Push(ctx, desc, pr); pushErr != nil {
			pr.CloseWithError(pushErr)
		}
	}()

	return &teeReadCloser{
		Reader: io.TeeReader(rc, pw),
		close: func() error {
			rcErr := rc.Close()
			if err := pw.Close(); err != nil {
				return err
			}
			wg.Wait()
			if pushErr != nil {
				return pushErr
			}
			return rcErr
		},
	}
}

type teeReadCloser struct {
	io.Reader
	close func() error
}

func (r *teeReadCloser) Close() error {
	return r.close()
}

// cachedReferenceTarget always resolves references against the origin, since tags move
type cachedReferenceTarget struct {
	*cachedTarget
	registry.ReferenceFetcher
}

func (t *cachedReferenceTarget) FetchReference(ctx context.Context, reference string) (ocispec.Descriptor, io.ReadCloser, error) {
	desc, rc, err := t.ReferenceFetcher.FetchReference(ctx, reference)
	if err != nil {
		return ocispec.Descriptor{}, nil, err
	}

	exists, err := t.cache.Exists(ctx, desc)
	if err != nil {
		_ = rc.Close()
		return ocispec.Descriptor{}, nil, err
	}
	if !exists {
		return desc, t.tee(ctx, rc, desc), nil
	}

	if err := rc.Close(); err != nil {
		return ocispec.Descriptor{}, nil, err
	}
	rc, err = t.cache.Fetch(ctx, desc)
	if err != nil {
		return ocispec.Descriptor{}, nil, err
	}
	return desc, rc, nil
}
