// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package resolutioncache

import (
	"fmt"
	"os"

	"daml.com/x/bake/pkg/artifact"
	"daml.com/x/bake/pkg/schema"
	"daml.com/x/bake/pkg/utils"
	"daml.com/x/bake/pkg/utils/stringset"
	"github.com/goccy/go-yaml"
)

const (
	RecordKind     = "ResolutionRecord"
	RecordFilename = "resolution.yaml"
)

// Record is the persisted outcome of resolving a module's external dependencies.
// It stays valid for as long as the module's fingerprint equals Dependencies.
type Record struct {
	schema.ManifestMeta `yaml:",inline"`

	// Dependencies is the fingerprint the record was resolved for
	Dependencies []string `yaml:"dependencies"`

	// Main is the transitive closure of the main dependencies
	Main *artifact.Map `yaml:"main"`
	// Test holds the additional artifacts used in testing
	Test *artifact.Map `yaml:"test"`
	// All is Main + Test
	All *artifact.Map `yaml:"all"`
}

func NewRecord(fingerprint []string, main, all *artifact.Map) *Record {
	return &Record{
		ManifestMeta: schema.New(RecordKind),
		Dependencies: fingerprint,
		Main:         main,
		Test: all.Filter(func(id artifact.Id) bool {
			_, ok := main.Get(id)
			return !ok
		}),
		All: all,
	}
}

// Matches reports whether the record was resolved for exactly fingerprint
func (r *Record) Matches(fingerprint []string) bool {
	return stringset.New(r.Dependencies...).Equal(stringset.New(fingerprint...))
}

func (r *Record) write(path string) error {
	bytes, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	return utils.WriteFileAtomic(path, bytes, 0o644)
}

func readRecord(path string) (*Record, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r := Record{}
	if err := yaml.UnmarshalWithOptions(bytes, &r, yaml.Strict()); err != nil {
		return nil, err
	}
	if err := schema.New(RecordKind).ValidateSchema(r.ManifestMeta); err != nil {
		return nil, err
	}
	if r.Main == nil || r.Test == nil || r.All == nil {
		return nil, fmt.Errorf("incomplete resolution record")
	}
	return &r, nil
}
