// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package bake

import (
	"context"
	"path/filepath"

	"daml.com/x/bake/pkg/artifact"
	"daml.com/x/bake/pkg/dependency"
	"daml.com/x/bake/pkg/module"
	"daml.com/x/bake/pkg/walk"
	"github.com/samber/lo"
)

// outputJars returns the jars m contributes to the classpath of its dependents
func (b *Baker) outputJars(m *module.Module) ([]string, error) {
	h, err := b.Handler(m)
	if err != nil {
		return nil, err
	}
	provider, ok := h.(jarProvider)
	if !ok {
		return nil, nil
	}
	return provider.OutputJars()
}

// reachable returns the modules root transitively depends on under s, dependencies first
func (b *Baker) reachable(ctx context.Context, root *module.Module, s walk.Strategy) ([]*module.Module, error) {
	var modules []*module.Module
	err := b.walk(ctx, root, s, func(_ context.Context, m *module.Module) error {
		if m != root {
			modules = append(modules, m)
		}
		return nil
	})
	return modules, err
}

// internalJars returns the output jars of the internal entries of ids, in order
func (b *Baker) internalJars(ids []dependency.Identifier) ([]string, error) {
	var jars []string
	for _, id := range ids {
		dep, err := b.repo.ModuleByName(id.Module)
		if err != nil {
			return nil, err
		}
		depJars, err := b.outputJars(dep)
		if err != nil {
			return nil, err
		}
		jars = append(jars, depJars...)
	}
	return jars, nil
}

// isExcludedArtifact reports whether a resolved artifact belongs to one of m's
// provided or excluded external dependencies. Versions are ignored.
func isExcludedArtifact(m *module.Module, id artifact.Id) bool {
	return lo.ContainsBy(m.Excluded(), func(d dependency.Identifier) bool {
		return d.IsExternal() && d.Organization == id.Organization && d.Name == id.Name
	})
}

// classPathEntries names the jars the excluded dependencies of m are expected
// to be found under, next to m's executable jar
func (b *Baker) classPathEntries(m *module.Module) ([]string, error) {
	var entries []string
	for _, id := range m.Excluded() {
		if id.IsExternal() {
			entries = append(entries, id.Name+".jar")
			continue
		}
		dep, err := b.repo.ModuleByName(id.Module)
		if err != nil {
			return nil, err
		}
		entries = append(entries, lo.Map(dep.Declared.Jars, func(jar string, _ int) string {
			return filepath.Base(jar)
		})...)
		entries = append(entries, dep.Name+".jar")
	}
	return lo.Uniq(entries), nil
}
