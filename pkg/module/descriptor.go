// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package module

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"daml.com/x/bake/pkg/schema"
	"github.com/goccy/go-yaml"
	"github.com/samber/lo"
)

const DescriptorFilename = "bake.yaml"

var ErrInvalidDescriptor = fmt.Errorf("invalid module descriptor")
var ErrMissingDescriptorField = fmt.Errorf("%w: a required field is missing", ErrInvalidDescriptor)

// Kind selects the handler that builds a module
type Kind string

const (
	Java   Kind = "Java"
	FatJar Kind = "FatJar"
)

var Kinds = []Kind{Java, FatJar}

const (
	DefaultTestRunner = "org.junit.runner.JUnitCore"
)

var DefaultVMArgs = []string{"-Xmx1G"}

// Descriptor is the parsed contents of a module's bake.yaml
type Descriptor struct {
	schema.ManifestMeta
	Java   *JavaSpec
	FatJar *FatJarSpec
}

type JavaSpec struct {
	Dependencies         []string `yaml:"dependencies,omitempty"`
	ProvidedDependencies []string `yaml:"provided-dependencies,omitempty"`
	Exports              []string `yaml:"exports,omitempty"`
	MainClass            string   `yaml:"main-class,omitempty"`
	Args                 []string `yaml:"args,omitempty"`
	VMArgs               []string `yaml:"vm-args,omitempty"`
	Jars                 []string `yaml:"jars,omitempty"`
	Source               []string `yaml:"source,omitempty"`
	Resources            []string `yaml:"resources,omitempty"`
	License              License  `yaml:"license,omitempty"`

	TestDependencies     []string `yaml:"test-dependencies,omitempty"`
	TestSource           []string `yaml:"test-source,omitempty"`
	TestResources        []string `yaml:"test-resources,omitempty"`
	TestRunner           string   `yaml:"test-runner,omitempty"`
	TestWorkingDirectory string   `yaml:"test-working-directory,omitempty"`

	// OneJar packages the executable as a bundled archive instead of a merged one
	OneJar bool `yaml:"one-jar,omitempty"`
}

func (s *JavaSpec) applyDefaults() {
	s.VMArgs = lo.Ternary(s.VMArgs == nil, DefaultVMArgs, s.VMArgs)
	s.Source = lo.Ternary(s.Source == nil, []string{"java"}, s.Source)
	s.Resources = lo.Ternary(s.Resources == nil, []string{"resources"}, s.Resources)
	s.TestSource = lo.Ternary(s.TestSource == nil, []string{"tests/java"}, s.TestSource)
	s.TestResources = lo.Ternary(s.TestResources == nil, []string{"tests/resources"}, s.TestResources)
	if s.TestRunner == "" {
		s.TestRunner = DefaultTestRunner
	}
	if s.License == "" {
		s.License = Proprietary
	}
}

type Strategy string

const (
	// Merge flattens every constituent archive into one
	Merge Strategy = "merge"
	// OneJar nests constituent archives and boots through One-JAR's loader
	OneJar Strategy = "one-jar"
)

type Attribute struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

type FatJarSpec struct {
	Dependencies         []string    `yaml:"dependencies,omitempty"`
	ExcludedDependencies []string    `yaml:"excluded-dependencies,omitempty"`
	MainClass            string      `yaml:"main-class,omitempty"`
	Args                 []string    `yaml:"args,omitempty"`
	VMArgs               []string    `yaml:"vm-args,omitempty"`
	ManifestAttributes   []Attribute `yaml:"manifest-attributes,omitempty"`
	Strategy             Strategy    `yaml:"strategy,omitempty"`
}

func (s *FatJarSpec) applyDefaults() {
	s.VMArgs = lo.Ternary(s.VMArgs == nil, DefaultVMArgs, s.VMArgs)
	if s.Strategy == "" {
		s.Strategy = Merge
	}
}

// ReservedManifestAttributes are written from the descriptor's other fields
var ReservedManifestAttributes = []string{"Manifest-Version", "Main-Class", "Class-Path"}

func (s *FatJarSpec) validate() error {
	if !lo.Contains([]Strategy{Merge, OneJar}, s.Strategy) {
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidDescriptor, s.Strategy)
	}
	for _, a := range s.ManifestAttributes {
		if a.Name == "" {
			return fmt.Errorf("%w: 'manifest-attributes[].name'", ErrMissingDescriptorField)
		}
		if _, ok := lo.Find(ReservedManifestAttributes, func(name string) bool { return strings.EqualFold(name, a.Name) }); ok {
			return fmt.Errorf("%w: manifest attribute %q is generated by bake", ErrInvalidDescriptor, a.Name)
		}
	}
	return nil
}

type javaDescriptor struct {
	schema.ManifestMeta `yaml:",inline"`
	Spec                *JavaSpec `yaml:"spec"`
}

type fatJarDescriptor struct {
	schema.ManifestMeta `yaml:",inline"`
	Spec                *FatJarSpec `yaml:"spec"`
}

func ReadDescriptor(filePath string) (*Descriptor, error) {
	bytes, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return ReadDescriptorContents(bytes)
}

func ReadDescriptorContents(contents []byte) (*Descriptor, error) {
	// the header decides which spec to strictly decode
	var header struct {
		schema.ManifestMeta `yaml:",inline"`
	}
	if err := yaml.Unmarshal(contents, &header); err != nil {
		return nil, errors.Join(ErrInvalidDescriptor, err)
	}

	kinds := lo.Map(Kinds, func(k Kind, _ int) string { return string(k) })
	if err := schema.New("").ValidateOneOf(header.ManifestMeta, kinds...); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDescriptor, err.Error())
	}

	d := &Descriptor{ManifestMeta: header.ManifestMeta}
	switch Kind(header.Kind) {
	case Java:
		var j javaDescriptor
		if err := yaml.UnmarshalWithOptions(contents, &j, yaml.Strict()); err != nil {
			return nil, errors.Join(ErrInvalidDescriptor, err)
		}
		if j.Spec == nil {
			j.Spec = &JavaSpec{}
		}
		j.Spec.applyDefaults()
		d.Java = j.Spec
	case FatJar:
		var f fatJarDescriptor
		if err := yaml.UnmarshalWithOptions(contents, &f, yaml.Strict()); err != nil {
			return nil, errors.Join(ErrInvalidDescriptor, err)
		}
		if f.Spec == nil {
			return nil, fmt.Errorf("%w: 'spec'", ErrMissingDescriptorField)
		}
		f.Spec.applyDefaults()
		if err := f.Spec.validate(); err != nil {
			return nil, err
		}
		d.FatJar = f.Spec
	}

	return d, nil
}

// Marshal renders the descriptor back to yaml, e.g. when scaffolding a module
func (d *Descriptor) Marshal() ([]byte, error) {
	switch Kind(d.Kind) {
	case Java:
		return yaml.Marshal(javaDescriptor{ManifestMeta: d.ManifestMeta, Spec: d.Java})
	case FatJar:
		return yaml.Marshal(fatJarDescriptor{ManifestMeta: d.ManifestMeta, Spec: d.FatJar})
	default:
		return nil, fmt.Errorf("%w: unsupported kind %q", ErrInvalidDescriptor, d.Kind)
	}
}

// NewDescriptor returns a descriptor with the given kind and an empty spec
func NewDescriptor(kind Kind) *Descriptor {
	d := &Descriptor{ManifestMeta: schemaFor(kind)}
	switch kind {
	case Java:
		d.Java = &JavaSpec{}
		d.Java.applyDefaults()
	case FatJar:
		d.FatJar = &FatJarSpec{}
		d.FatJar.applyDefaults()
	}
	return d
}

func schemaFor(kind Kind) schema.ManifestMeta {
	return schema.New(string(kind))
}
