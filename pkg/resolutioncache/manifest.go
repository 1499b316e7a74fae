// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package resolutioncache

import (
	"fmt"
	"os"

	"daml.com/x/bake/pkg/dependency"
	"daml.com/x/bake/pkg/schema"
	"daml.com/x/bake/pkg/utils"
	"github.com/goccy/go-yaml"
	"github.com/samber/lo"
)

const (
	ManifestKind     = "DependencyManifest"
	ManifestFilename = "dependencies.yaml"

	// InternalOrganization is the organization internal modules are declared under
	InternalOrganization = "internal"
	// WorkingRevision is the revision of every internal module
	WorkingRevision = "working"

	DefaultConfiguration = "default"
	TestConfiguration    = "test"
)

// Manifest declares one module's dependencies to a Resolver
type Manifest struct {
	schema.ManifestMeta `yaml:",inline"`

	Info           ManifestInfo         `yaml:"info"`
	Configurations []Configuration      `yaml:"configurations"`
	Dependencies   []ManifestDependency `yaml:"dependencies"`
}

type ManifestInfo struct {
	Organization string `yaml:"organization"`
	Module       string `yaml:"module"`
	Revision     string `yaml:"revision"`
}

type Configuration struct {
	Name    string   `yaml:"name"`
	Extends []string `yaml:"extends,omitempty"`
}

type ManifestDependency struct {
	Organization  string `yaml:"organization"`
	Name          string `yaml:"name"`
	Revision      string `yaml:"revision"`
	Configuration string `yaml:"configuration"`
	// Changing marks dependencies whose content may change without a new revision
	Changing bool `yaml:"changing,omitempty"`
}

func (d ManifestDependency) IsInternal() bool {
	return d.Organization == InternalOrganization
}

// Identifier converts an external dependency back to its declared form
func (d ManifestDependency) Identifier() dependency.Identifier {
	if d.IsInternal() {
		return dependency.Internal(d.Name)
	}
	version := d.Revision
	if version == dependency.Latest {
		version = ""
	}
	return dependency.External(d.Organization, d.Name, version)
}

// NewManifest declares main under the default configuration and test under the test configuration
func NewManifest(moduleName string, main, test *dependency.Set) *Manifest {
	m := &Manifest{
		ManifestMeta: schema.New(ManifestKind),
		Info: ManifestInfo{
			Organization: InternalOrganization,
			Module:       moduleName,
			Revision:     WorkingRevision,
		},
		Configurations: []Configuration{
			{Name: DefaultConfiguration},
			{Name: TestConfiguration, Extends: []string{DefaultConfiguration}},
		},
	}
	m.Dependencies = append(manifestDependencies(main, DefaultConfiguration), manifestDependencies(test, TestConfiguration)...)
	return m
}

func manifestDependencies(set *dependency.Set, configuration string) []ManifestDependency {
	return lo.Map(set.Items(), func(id dependency.Identifier, _ int) ManifestDependency {
		if !id.IsExternal() {
			return ManifestDependency{
				Organization:  InternalOrganization,
				Name:          id.Module,
				Revision:      WorkingRevision,
				Configuration: configuration,
				Changing:      true,
			}
		}
		return ManifestDependency{
			Organization:  id.Organization,
			Name:          id.Name,
			Revision:      id.VersionOrLatest(),
			Configuration: configuration,
		}
	})
}

// In returns the dependencies visible in configuration, including those of the configurations it extends
func (m *Manifest) In(configuration string) []ManifestDependency {
	confs := []string{configuration}
	if c, ok := lo.Find(m.Configurations, func(c Configuration) bool { return c.Name == configuration }); ok {
		confs = append(confs, c.Extends...)
	}
	return lo.Filter(m.Dependencies, func(d ManifestDependency, _ int) bool {
		return lo.Contains(confs, d.Configuration)
	})
}

func (m *Manifest) Write(path string) error {
	bytes, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return utils.WriteFileAtomic(path, bytes, 0o644)
}

func ReadManifest(path string) (*Manifest, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.UnmarshalWithOptions(bytes, &m, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("invalid dependency manifest %s: %w", path, err)
	}
	if err := schema.New(ManifestKind).ValidateSchema(m.ManifestMeta); err != nil {
		return nil, fmt.Errorf("invalid dependency manifest %s: %w", path, err)
	}
	return &m, nil
}
