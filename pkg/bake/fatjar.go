// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package bake

import (
	"context"
	"fmt"

	"daml.com/x/bake/pkg/dependency"
	"daml.com/x/bake/pkg/module"
	"daml.com/x/bake/pkg/packaging"
	"daml.com/x/bake/pkg/walk"
	"github.com/samber/lo"
)

// fatJarHandler packages its dependencies into one jar. It has no sources of its own.
type fatJarHandler struct {
	baker  *Baker
	module *module.Module
}

var _ jarProvider = (*fatJarHandler)(nil)

func newFatJarHandler(b *Baker, m *module.Module) Handler {
	return &fatJarHandler{baker: b, module: m}
}

func (h *fatJarHandler) Kind() module.Kind {
	return module.FatJar
}

func (h *fatJarHandler) DirectDependencies(ctx context.Context, s walk.Strategy) ([]*module.Module, error) {
	return h.baker.repo.DirectDependencies(ctx, h.module, s)
}

func (h *fatJarHandler) Bake(ctx context.Context, phase Phase) error {
	switch phase {
	case Resolve:
		_, err := h.baker.cache.Resolve(ctx, h.module)
		return err
	case Package:
		fj := h.module.FatJar
		return h.baker.packageExecutable(ctx, executable{
			module:    h.module,
			mainClass: fj.MainClass,
			args:      fj.Args,
			vmArgs:    fj.VMArgs,
			attributes: lo.Map(fj.ManifestAttributes, func(a module.Attribute, _ int) packaging.Attribute {
				return packaging.Attribute{Name: a.Name, Value: a.Value}
			}),
			bundled: fj.Strategy == module.OneJar,
		})
	case Compile, Test:
		return nil
	default:
		return fmt.Errorf("unknown phase %d", phase)
	}
}

// OutputJars are the output jars of the module's direct internal dependencies,
// which are built before any dependent packages them
func (h *fatJarHandler) OutputJars() ([]string, error) {
	ids := lo.Filter(h.module.Declared.Dependencies, func(id dependency.Identifier, _ int) bool {
		return !id.IsExternal() && !h.module.IsProvided(id)
	})
	return h.baker.internalJars(ids)
}
