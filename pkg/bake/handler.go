// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package bake

import (
	"context"

	"daml.com/x/bake/pkg/module"
	"daml.com/x/bake/pkg/walk"
)

// Handler builds the modules of one kind. There is one handler per module.
type Handler interface {
	Kind() module.Kind
	DirectDependencies(ctx context.Context, s walk.Strategy) ([]*module.Module, error)
	Bake(ctx context.Context, phase Phase) error
}

// jarProvider is implemented by handlers whose output other modules compile and package against
type jarProvider interface {
	// OutputJars are the jars making up the module at run time. They may not exist yet.
	OutputJars() ([]string, error)
}

// handlerGraph walks modules along the dependencies their handlers report
type handlerGraph struct {
	baker *Baker
}

var _ walk.Graph = handlerGraph{}

func (g handlerGraph) DirectDependencies(ctx context.Context, m *module.Module, s walk.Strategy) ([]*module.Module, error) {
	h, err := g.baker.Handler(m)
	if err != nil {
		return nil, err
	}
	return h.DirectDependencies(ctx, s)
}

func (b *Baker) walk(ctx context.Context, root *module.Module, s walk.Strategy, task walk.Task) error {
	return b.repo.WalkGraph(ctx, handlerGraph{baker: b}, root, s, task)
}

type constructor func(b *Baker, m *module.Module) Handler

var handlers = map[module.Kind]constructor{
	module.Java:   newJavaHandler,
	module.FatJar: newFatJarHandler,
}
