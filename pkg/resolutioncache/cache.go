// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package resolutioncache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"daml.com/x/bake/pkg/bakeerrors"
	"daml.com/x/bake/pkg/dependency"
	"daml.com/x/bake/pkg/module"
	"daml.com/x/bake/pkg/repository"
	"daml.com/x/bake/pkg/utils/stringset"
	"daml.com/x/bake/pkg/walk"
	"github.com/samber/lo"
)

// Cache resolves each module's external dependencies at most once per process,
// and across processes for as long as the module's fingerprint doesn't change
type Cache struct {
	repo     *repository.Repository
	resolver Resolver
	logger   *slog.Logger

	mu        sync.Mutex
	records   map[string]*Record
	manifests map[string]*Manifest
}

func New(repo *repository.Repository, resolver Resolver, logger *slog.Logger) *Cache {
	return &Cache{
		repo:      repo,
		resolver:  resolver,
		logger:    logger,
		records:   map[string]*Record{},
		manifests: map[string]*Manifest{},
	}
}

// Fingerprint is the sorted set of external dependencies that determine m's resolution:
// the main externals of every module reached including m's test dependencies, plus m's test externals
func (c *Cache) Fingerprint(ctx context.Context, m *module.Module) ([]string, error) {
	all := stringset.New()
	add := func(ids []string) {
		for _, id := range ids {
			all.Add(id)
		}
	}

	err := c.repo.Walk(ctx, m, walk.IncludingTests, func(ctx context.Context, reached *module.Module) error {
		main, err := c.repo.MainDependencies(ctx, reached)
		if err != nil {
			return err
		}
		add(externalStrings(main.External()))
		return nil
	})
	if err != nil {
		return nil, err
	}

	test, err := c.repo.TestDependencies(ctx, m)
	if err != nil {
		return nil, err
	}
	add(externalStrings(test.External()))
	return all.Sorted(), nil
}

// Resolve returns the resolved external artifacts of m, resolving only when the persisted record is out of date
func (c *Cache) Resolve(ctx context.Context, m *module.Module) (*Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r, ok := c.records[m.Name]; ok {
		c.logger.Debug("already resolved", "module", m.Name)
		return r, nil
	}

	fingerprint, err := c.Fingerprint(ctx, m)
	if err != nil {
		return nil, err
	}

	path, err := c.RecordPath(m)
	if err != nil {
		return nil, err
	}
	if r, err := readRecord(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.logger.Debug("ignoring unreadable resolution record", "path", path, "err", err)
		}
	} else if r.Matches(fingerprint) {
		c.logger.Debug("external dependencies are up to date", "module", m.Name)
		c.records[m.Name] = r
		return r, nil
	}

	if len(fingerprint) > 0 {
		c.logger.Info("retrieving external dependencies", "module", m.Name)
	}
	r, err := c.resolve(ctx, m, fingerprint)
	if err != nil {
		return nil, err
	}
	if err := r.write(path); err != nil {
		return nil, bakeerrors.NewResolutionError(m.Name, err)
	}
	c.records[m.Name] = r
	return r, nil
}

func (c *Cache) resolve(ctx context.Context, m *module.Module, fingerprint []string) (*Record, error) {
	req := &Request{Module: m.Name, Manifests: map[string]*Manifest{}}
	err := c.repo.Walk(ctx, m, walk.IncludingTests, func(ctx context.Context, reached *module.Module) error {
		manifest, err := c.manifest(ctx, reached)
		if err != nil {
			return err
		}
		req.Manifests[reached.Name] = manifest
		return nil
	})
	if err != nil {
		return nil, err
	}

	main, err := c.resolver.Resolve(ctx, req, DefaultConfiguration)
	if err != nil {
		return nil, resolutionFailed(m, err)
	}
	all, err := c.resolver.Resolve(ctx, req, TestConfiguration)
	if err != nil {
		return nil, resolutionFailed(m, err)
	}
	return NewRecord(fingerprint, main, all), nil
}

func resolutionFailed(m *module.Module, err error) error {
	return bakeerrors.NewResolutionError(m.Name,
		errors.Join(fmt.Errorf("Failed to resolve external dependencies for %s.", m.Name), err))
}

// manifest writes the dependency manifest of m, once per process
func (c *Cache) manifest(ctx context.Context, m *module.Module) (*Manifest, error) {
	if manifest, ok := c.manifests[m.Name]; ok {
		return manifest, nil
	}

	main, err := c.repo.MainDependencies(ctx, m)
	if err != nil {
		return nil, err
	}
	test, err := c.repo.TestDependencies(ctx, m)
	if err != nil {
		return nil, err
	}

	dir, err := c.repo.ModuleOutputDirectory(m)
	if err != nil {
		return nil, err
	}
	manifest := NewManifest(m.Name, main, test)
	if err := manifest.Write(filepath.Join(dir, ManifestFilename)); err != nil {
		return nil, bakeerrors.NewResolutionError(m.Name, err)
	}
	c.manifests[m.Name] = manifest
	return manifest, nil
}

// RecordPath is where m's resolution record is persisted
func (c *Cache) RecordPath(m *module.Module) (string, error) {
	dir, err := c.repo.ModuleOutputDirectory(m)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, RecordFilename), nil
}

// LastModified is the time m's external dependencies last changed. Zero if they were never resolved.
func (c *Cache) LastModified(m *module.Module) (time.Time, error) {
	path, err := c.RecordPath(m)
	if err != nil {
		return time.Time{}, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func externalStrings(ids []dependency.Identifier) []string {
	return lo.Map(ids, func(id dependency.Identifier, _ int) string { return id.String() })
}
