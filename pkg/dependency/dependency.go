// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package dependency

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	ExternalPrefix = "external:"

	// Latest is the version used for external dependencies that don't declare one
	Latest = "latest"
)

var ErrInvalidDependency = fmt.Errorf("failed to parse dependency")

var externalRegex = regexp.MustCompile(`^external:([^/]*)/([^@]*)(?:@(.*))?$`)

// Identifier is either an internal module reference or an external
// organization/name[@version] coordinate.
type Identifier struct {
	Module string

	Organization string
	Name         string
	Version      string

	external bool
}

func Internal(moduleName string) Identifier {
	return Identifier{Module: moduleName}
}

func External(organization, name, version string) Identifier {
	return Identifier{
		Organization: organization,
		Name:         name,
		Version:      version,
		external:     true,
	}
}

func IsExternal(raw string) bool {
	return strings.HasPrefix(raw, ExternalPrefix)
}

// Parse classifies a declared dependency string.
//
// e.g. "external:com.google.inject/guice@3.0" is external, "foo.bar" is internal
func Parse(raw string) (Identifier, error) {
	if !IsExternal(raw) {
		return Internal(raw), nil
	}

	m := externalRegex.FindStringSubmatch(raw)
	if m == nil || m[1] == "" || m[2] == "" {
		return Identifier{}, fmt.Errorf("%w: %s", ErrInvalidDependency, raw)
	}
	return External(m[1], m[2], m[3]), nil
}

// ParseAll parses every entry, stopping at the first malformed one
func ParseAll(raw []string) ([]Identifier, error) {
	ids := make([]Identifier, 0, len(raw))
	for _, r := range raw {
		id, err := Parse(r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (i Identifier) IsExternal() bool {
	return i.external
}

// VersionOrLatest returns the declared version, or Latest if none was declared
func (i Identifier) VersionOrLatest() string {
	if i.Version == "" {
		return Latest
	}
	return i.Version
}

// Key identifies an external artifact regardless of its version
func (i Identifier) Key() string {
	return i.Organization + "/" + i.Name
}

func (i Identifier) String() string {
	if !i.external {
		return i.Module
	}
	s := ExternalPrefix + i.Key()
	if i.Version != "" {
		s += "@" + i.Version
	}
	return s
}
