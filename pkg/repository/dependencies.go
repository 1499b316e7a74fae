// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"daml.com/x/bake/pkg/bakeerrors"
	"daml.com/x/bake/pkg/dependency"
	"daml.com/x/bake/pkg/module"
	"daml.com/x/bake/pkg/walk"
)

type setsEntry struct {
	once sync.Once
	sets *walk.Sets
	err  error
}

var _ walk.Graph = (*Repository)(nil)

// Sets returns m's expanded dependency sets. They are computed once per process.
func (r *Repository) Sets(ctx context.Context, m *module.Module) (*walk.Sets, error) {
	r.setsMu.Lock()
	e, ok := r.sets[m.Name]
	if !ok {
		e = &setsEntry{}
		r.sets[m.Name] = e
	}
	r.setsMu.Unlock()

	e.once.Do(func() {
		e.sets, e.err = r.computeSets(ctx, m)
	})
	return e.sets, e.err
}

func (r *Repository) MainDependencies(ctx context.Context, m *module.Module) (*dependency.Set, error) {
	sets, err := r.Sets(ctx, m)
	if err != nil {
		return nil, err
	}
	return sets.Main, nil
}

// TestDependencies are the test-only additions, never overlapping MainDependencies
func (r *Repository) TestDependencies(ctx context.Context, m *module.Module) (*dependency.Set, error) {
	sets, err := r.Sets(ctx, m)
	if err != nil {
		return nil, err
	}
	return sets.Test, nil
}

func (r *Repository) AllDependencies(ctx context.Context, m *module.Module) (*dependency.Set, error) {
	sets, err := r.Sets(ctx, m)
	if err != nil {
		return nil, err
	}
	return sets.All, nil
}

func (r *Repository) computeSets(ctx context.Context, m *module.Module) (*walk.Sets, error) {
	main, err := r.expand(ctx, m, m.Declared.Dependencies)
	if err != nil {
		return nil, err
	}
	test, err := r.expand(ctx, m, m.Declared.TestDependencies)
	if err != nil {
		return nil, err
	}
	test = test.Difference(main)

	return &walk.Sets{
		Main:    main,
		Test:    test,
		All:     main.Union(test),
		Exports: dependency.NewSet(m.Declared.Exports...),
	}, nil
}

// expand adds the exports of every module reachable from raw through exports.
// owner's own exports are for its consumers and are not added.
func (r *Repository) expand(ctx context.Context, owner *module.Module, raw []dependency.Identifier) (*dependency.Set, error) {
	result := dependency.NewSet(raw...)
	w := walk.New(r)

	for _, id := range result.Internal() {
		dep, err := r.dependencyModule(owner, id)
		if err != nil {
			return nil, err
		}
		err = w.Walk(ctx, dep, walk.ExportsOnly, func(_ context.Context, reached *module.Module) error {
			result.Add(reached.Declared.Exports...)
			return nil
		})
		if err != nil {
			return nil, wrapGraphError(owner, err)
		}
	}
	return result, nil
}

// DirectDependencies returns the internal modules m depends on under s
func (r *Repository) DirectDependencies(ctx context.Context, m *module.Module, s walk.Strategy) ([]*module.Module, error) {
	var ids []dependency.Identifier
	if s == walk.ExportsOnly {
		ids = dependency.NewSet(m.Declared.Exports...).Internal()
	} else {
		sets, err := r.Sets(ctx, m)
		if err != nil {
			return nil, err
		}
		ids = s.Select(sets).Internal()
	}

	modules := make([]*module.Module, 0, len(ids))
	for _, id := range ids {
		dep, err := r.dependencyModule(m, id)
		if err != nil {
			return nil, err
		}
		modules = append(modules, dep)
	}
	return modules, nil
}

// ExternalDependencies returns the external identifiers of s applied to m
func (r *Repository) ExternalDependencies(ctx context.Context, m *module.Module, s walk.Strategy) ([]dependency.Identifier, error) {
	if s == walk.ExportsOnly {
		return dependency.NewSet(m.Declared.Exports...).External(), nil
	}
	sets, err := r.Sets(ctx, m)
	if err != nil {
		return nil, err
	}
	return s.Select(sets).External(), nil
}

func (r *Repository) dependencyModule(owner *module.Module, id dependency.Identifier) (*module.Module, error) {
	dep, err := r.ModuleByName(id.Module)
	if err != nil {
		return nil, bakeerrors.NewConfigurationError(owner.Name, fmt.Errorf("module %s depends on %s: %w", owner.Name, id.Module, err))
	}
	return dep, nil
}

func wrapGraphError(m *module.Module, err error) error {
	var cycleErr *walk.CycleError
	if errors.As(err, &cycleErr) {
		return bakeerrors.NewGraphError(m.Name, err)
	}
	return err
}

// Walk runs task over root's dependency graph with a fresh walker.
// Cycles are reported as graph errors.
func (r *Repository) Walk(ctx context.Context, root *module.Module, s walk.Strategy, task walk.Task) error {
	return r.WalkGraph(ctx, r, root, s, task)
}

// WalkGraph is Walk along the edges reported by g
func (r *Repository) WalkGraph(ctx context.Context, g walk.Graph, root *module.Module, s walk.Strategy, task walk.Task) error {
	return wrapGraphError(root, walk.New(g).Walk(ctx, root, s, task))
}
