// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package module

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"daml.com/x/bake/pkg/dependency"
	"github.com/samber/lo"
)

var ErrInvalidModuleName = fmt.Errorf("invalid module name")

var nameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*(\.[a-z_][a-z0-9_]*)*$`)

func ValidateName(name string) error {
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("%w: %s", ErrInvalidModuleName, name)
	}
	return nil
}

// RelativeDirectory maps a module name to its directory relative to the repository root
func RelativeDirectory(name string) string {
	return filepath.FromSlash(strings.ReplaceAll(name, ".", "/"))
}

// NameForRelativeDirectory is the inverse of RelativeDirectory
func NameForRelativeDirectory(dir string) string {
	return strings.ReplaceAll(filepath.ToSlash(filepath.Clean(dir)), "/", ".")
}

// Module is a named, directory-backed build unit. It is immutable once created.
type Module struct {
	Name      string
	Directory string
	Kind      Kind

	Declared *Declared

	Java   *JavaSpec
	FatJar *FatJarSpec
}

// Declared holds a module's dependency lists and paths, parsed and resolved
// against the module directory
type Declared struct {
	Dependencies         []dependency.Identifier
	ProvidedDependencies []dependency.Identifier
	ExcludedDependencies []dependency.Identifier
	TestDependencies     []dependency.Identifier
	Exports              []dependency.Identifier

	SourcePaths     []string
	ResourcePaths   []string
	TestSourcePaths []string
	TestResources   []string
	Jars            []string

	MainClass string
	Args      []string
	VMArgs    []string
}

func New(name, directory string, d *Descriptor) (*Module, error) {
	m := &Module{
		Name:      name,
		Directory: directory,
		Kind:      Kind(d.Kind),
		Java:      d.Java,
		FatJar:    d.FatJar,
	}

	var err error
	switch m.Kind {
	case Java:
		m.Declared, err = m.declaredJava(d.Java)
	case FatJar:
		m.Declared, err = m.declaredFatJar(d.FatJar)
	default:
		err = fmt.Errorf("%w: unsupported kind %q", ErrInvalidDescriptor, d.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("module %s: %w", name, err)
	}
	return m, nil
}

func (m *Module) declaredJava(s *JavaSpec) (*Declared, error) {
	var d Declared
	var err error
	if d.Dependencies, err = dependency.ParseAll(s.Dependencies); err != nil {
		return nil, err
	}
	if d.ProvidedDependencies, err = dependency.ParseAll(s.ProvidedDependencies); err != nil {
		return nil, err
	}
	if d.TestDependencies, err = dependency.ParseAll(s.TestDependencies); err != nil {
		return nil, err
	}
	if d.Exports, err = dependency.ParseAll(s.Exports); err != nil {
		return nil, err
	}

	// provided dependencies are compiled against like any other
	d.Dependencies = dependency.NewSet(d.Dependencies...).Add(d.ProvidedDependencies...).Items()

	d.SourcePaths = m.paths(s.Source)
	d.ResourcePaths = m.paths(s.Resources)
	d.TestSourcePaths = m.paths(s.TestSource)
	d.TestResources = m.paths(s.TestResources)
	d.Jars = m.paths(s.Jars)
	d.MainClass = s.MainClass
	d.Args = s.Args
	d.VMArgs = s.VMArgs
	return &d, nil
}

func (m *Module) declaredFatJar(s *FatJarSpec) (*Declared, error) {
	var d Declared
	var err error
	if d.Dependencies, err = dependency.ParseAll(s.Dependencies); err != nil {
		return nil, err
	}
	if d.ExcludedDependencies, err = dependency.ParseAll(s.ExcludedDependencies); err != nil {
		return nil, err
	}
	d.MainClass = s.MainClass
	d.Args = s.Args
	d.VMArgs = s.VMArgs
	return &d, nil
}

func (m *Module) paths(relative []string) []string {
	return lo.Map(relative, func(p string, _ int) string {
		return filepath.Join(m.Directory, filepath.FromSlash(p))
	})
}

// IsProvided reports whether id is expected to be supplied at run time
// rather than packaged into this module's executable
func (m *Module) IsProvided(id dependency.Identifier) bool {
	return lo.Contains(m.Declared.ProvidedDependencies, id) || lo.Contains(m.Declared.ExcludedDependencies, id)
}

// Excluded returns the provided and excluded dependencies, in declaration order
func (m *Module) Excluded() []dependency.Identifier {
	return dependency.NewSet(m.Declared.ProvidedDependencies...).Add(m.Declared.ExcludedDependencies...).Items()
}

func (m *Module) String() string {
	return m.Name
}
