// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package walk

import (
	"context"
	"fmt"
	"strings"

	"daml.com/x/bake/pkg/module"
	"github.com/samber/lo"
)

// Graph resolves the modules a traversal steps into
type Graph interface {
	DirectDependencies(ctx context.Context, m *module.Module, s Strategy) ([]*module.Module, error)
}

// Task is executed once per module, after all of its dependencies
type Task func(ctx context.Context, m *module.Module) error

type CycleError struct {
	Module string
	Cycle  []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("Circular dependency in %s: %s.", e.Module, strings.Join(e.Cycle, " -> "))
}

// Walker is a memoized, cycle-detecting post-order traversal.
// A Walker executes its task at most once per module; create a new Walker
// for every independent traversal.
type Walker struct {
	graph    Graph
	onStack  []string
	finished map[string]struct{}
}

func New(graph Graph) *Walker {
	return &Walker{
		graph:    graph,
		finished: map[string]struct{}{},
	}
}

// Walk executes task against every module root transitively depends on
// under strategy, then against root itself
func (w *Walker) Walk(ctx context.Context, root *module.Module, strategy Strategy, task Task) error {
	return w.visit(ctx, root, strategy, task)
}

func (w *Walker) visit(ctx context.Context, m *module.Module, strategy Strategy, task Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := w.finished[m.Name]; ok {
		return nil
	}
	if i := lo.IndexOf(w.onStack, m.Name); i >= 0 {
		cycle := append(append([]string{}, w.onStack[i:]...), m.Name)
		return &CycleError{Module: m.Name, Cycle: cycle}
	}

	w.onStack = append(w.onStack, m.Name)
	deps, err := w.graph.DirectDependencies(ctx, m, strategy)
	if err != nil {
		return err
	}
	for _, dep := range deps {
		if err := w.visit(ctx, dep, strategy.Narrow(), task); err != nil {
			return err
		}
	}

	if err := task(ctx, m); err != nil {
		return err
	}
	w.onStack = w.onStack[:len(w.onStack)-1]
	w.finished[m.Name] = struct{}{}
	return nil
}

// Visited reports whether the walker already executed its task for m
func (w *Walker) Visited(m *module.Module) bool {
	_, ok := w.finished[m.Name]
	return ok
}
