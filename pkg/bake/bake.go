// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package bake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"

	"daml.com/x/bake/pkg/bakeerrors"
	"daml.com/x/bake/pkg/compiler"
	"daml.com/x/bake/pkg/module"
	"daml.com/x/bake/pkg/packaging"
	"daml.com/x/bake/pkg/repository"
	"daml.com/x/bake/pkg/resolutioncache"
	"daml.com/x/bake/pkg/walk"
)

// Phase is one step of a build. Phases run in declaration order.
type Phase int

const (
	Resolve Phase = iota
	Compile
	Package
	Test
)

var Phases = []Phase{Resolve, Compile, Package, Test}

func (p Phase) String() string {
	switch p {
	case Resolve:
		return "resolve"
	case Compile:
		return "compile"
	case Package:
		return "package"
	case Test:
		return "test"
	default:
		return "unknown"
	}
}

// Tools are the collaborators a Baker hands work to
type Tools struct {
	Compiler compiler.Compiler
	Runner   compiler.TestRunner
	Packager *packaging.Packager
	// OneJarBoot is the one-jar boot jar copied into bundled executables
	OneJarBoot string
	// Output receives compiler diagnostics and test output
	Output    io.Writer
	SkipTests bool
}

// Baker builds modules and everything they depend on
type Baker struct {
	repo   *repository.Repository
	cache  *resolutioncache.Cache
	tools  Tools
	logger *slog.Logger

	mu        sync.Mutex
	handlers  map[string]Handler
	completed map[Phase]map[string]struct{}
}

func New(repo *repository.Repository, cache *resolutioncache.Cache, tools Tools, logger *slog.Logger) *Baker {
	if tools.Output == nil {
		tools.Output = io.Discard
	}
	return &Baker{
		repo:      repo,
		cache:     cache,
		tools:     tools,
		logger:    logger,
		handlers:  map[string]Handler{},
		completed: map[Phase]map[string]struct{}{},
	}
}

// Bake runs every phase for m. Resolve, Compile and Test cover m's whole graph,
// Package only m. The first failure aborts the build.
func (b *Baker) Bake(ctx context.Context, m *module.Module) error {
	for _, phase := range Phases {
		if phase == Test && b.tools.SkipTests {
			continue
		}
		b.logger.Debug("starting phase", "module", m.Name, "phase", phase)

		var err error
		if phase == Package {
			err = b.bakeModule(ctx, m, phase)
		} else {
			err = b.walk(ctx, m, walk.IncludingTests, func(ctx context.Context, dep *module.Module) error {
				return b.bakeModule(ctx, dep, phase)
			})
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// bakeModule runs phase for m unless an earlier Bake call on b already did
func (b *Baker) bakeModule(ctx context.Context, m *module.Module, phase Phase) error {
	b.mu.Lock()
	done := b.completed[phase]
	if done == nil {
		done = map[string]struct{}{}
		b.completed[phase] = done
	}
	_, ok := done[m.Name]
	b.mu.Unlock()
	if ok {
		return nil
	}

	h, err := b.Handler(m)
	if err != nil {
		return err
	}
	if err := h.Bake(ctx, phase); err != nil {
		return err
	}

	b.mu.Lock()
	done[m.Name] = struct{}{}
	b.mu.Unlock()
	return nil
}

// Handler returns m's handler, constructing it on first use
func (b *Baker) Handler(m *module.Module) (Handler, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if h, ok := b.handlers[m.Name]; ok {
		return h, nil
	}
	newHandler, ok := handlers[m.Kind]
	if !ok {
		return nil, bakeerrors.NewConfigurationError(m.Name, fmt.Errorf("%w: no handler for kind %q", module.ErrInvalidDescriptor, m.Kind))
	}
	h := newHandler(b, m)
	b.handlers[m.Name] = h
	return h, nil
}

// ErrNothingToPublish is returned for modules whose build doesn't produce a single publishable jar
var ErrNothingToPublish = errors.New("nothing to publish")

// PublishedJar is the jar distributed for m once it's baked:
// the compiled classes of a Java module, or the merged archive of a fat jar
func (b *Baker) PublishedJar(m *module.Module) (string, error) {
	if m.Kind == module.FatJar {
		if m.FatJar.Strategy == module.OneJar {
			return "", bakeerrors.NewConfigurationError(m.Name, fmt.Errorf("%w: %s archives are launched, not published", ErrNothingToPublish, module.OneJar))
		}
		dir, err := b.repo.OutputDirectory("jars")
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, m.Name+".jar"), nil
	}

	jars, err := b.outputJars(m)
	if err != nil {
		return "", err
	}
	if len(jars) == 0 {
		return "", bakeerrors.NewConfigurationError(m.Name, ErrNothingToPublish)
	}
	return jars[0], nil
}
