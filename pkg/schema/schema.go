// Copyright (c) 2017-2025 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"fmt"

	"github.com/samber/lo"
)

const (
	APIGroup = "bake.daml.com"
	V1       = "v1"
)

// ManifestMeta is the header shared by every yaml file bake reads or writes
type ManifestMeta struct {
	APIVersion string `yaml:"apiVersion"`
	Kind       string `yaml:"kind"`
}

func New(kind string) ManifestMeta {
	return ManifestMeta{
		APIVersion: APIGroup + "/" + V1,
		Kind:       kind,
	}
}

func (m ManifestMeta) ValidateSchema(target ManifestMeta) error {
	if target.Kind == "" {
		return fmt.Errorf("missing required field 'kind'")
	} else if target.Kind != m.Kind {
		return fmt.Errorf("unsupported kind %q. expected %q", target.Kind, m.Kind)
	}

	return m.validateAPIVersion(target)
}

// ValidateOneOf is like ValidateSchema but accepts any of the given kinds
func (m ManifestMeta) ValidateOneOf(target ManifestMeta, kinds ...string) error {
	if target.Kind == "" {
		return fmt.Errorf("missing required field 'kind'")
	}
	if !lo.Contains(kinds, target.Kind) {
		return fmt.Errorf("unsupported kind %q. expected one of %q", target.Kind, kinds)
	}

	return m.validateAPIVersion(target)
}

func (m ManifestMeta) validateAPIVersion(target ManifestMeta) error {
	if target.APIVersion == "" {
		return fmt.Errorf("missing required field 'apiVersion'")
	}
	if target.APIVersion != m.APIVersion {
		return fmt.Errorf("unsupported apiVersion %q. expected %q", target.APIVersion, m.APIVersion)
	}
	return nil
}
