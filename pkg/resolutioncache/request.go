// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package resolutioncache

import (
	"context"
	"fmt"

	"daml.com/x/bake/pkg/artifact"
	"daml.com/x/bake/pkg/dependency"
)

// Resolver resolves the external dependencies declared by a tree of manifests
// and places the resolved files in the shared artifact store
type Resolver interface {
	Resolve(ctx context.Context, req *Request, configuration string) (*artifact.Map, error)
}

// Request is the manifest of the module being resolved plus those of every internal module it reaches
type Request struct {
	Module    string
	Manifests map[string]*Manifest
}

func (r *Request) Root() *Manifest {
	return r.Manifests[r.Module]
}

// Externals returns the external dependencies that are direct, or reached through internal modules,
// in configuration of the root manifest. Internal modules contribute their default configuration.
func (r *Request) Externals(configuration string) ([]dependency.Identifier, error) {
	result := dependency.NewSet()
	visited := map[string]bool{}

	var visit func(name, configuration string) error
	visit = func(name, configuration string) error {
		if visited[name] {
			return nil
		}
		visited[name] = true

		m, ok := r.Manifests[name]
		if !ok {
			return fmt.Errorf("no dependency manifest for %s", name)
		}
		for _, d := range m.In(configuration) {
			if !d.IsInternal() {
				result.Add(d.Identifier())
				continue
			}
			if err := visit(d.Name, DefaultConfiguration); err != nil {
				return err
			}
		}
		return nil
	}

	if err := visit(r.Module, configuration); err != nil {
		return nil, err
	}
	return result.Items(), nil
}
