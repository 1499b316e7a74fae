// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package artifact

import (
	"fmt"
	"path/filepath"
	"strings"
)

type Kind string

const (
	Library Kind = "library"
	Source  Kind = "source"
	Unknown Kind = "unknown"
)

// ParseKind maps a resolver's artifact type onto a Kind. Unrecognised types are Unknown.
func ParseKind(s string) Kind {
	switch strings.ToLower(s) {
	case "jar", "bundle", string(Library):
		return Library
	case "src", string(Source):
		return Source
	default:
		return Unknown
	}
}

// Id identifies one file of a resolved external dependency
type Id struct {
	Organization string
	Name         string
	Kind         Kind
}

func (i Id) String() string {
	return fmt.Sprintf("%s/%s/%s", i.Organization, i.Name, i.Kind)
}

// ParseId parses the "org/name/kind" form produced by String
func ParseId(s string) (Id, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return Id{}, fmt.Errorf("invalid artifact id %q", s)
	}
	return Id{Organization: parts[0], Name: parts[1], Kind: ParseKind(parts[2])}, nil
}

// StorePath is where a resolved artifact lives in the shared store:
// <store>/libs/<org>/<name>/<kind>/<name>-<version>.<ext>
func StorePath(store string, id Id, version, ext string) string {
	file := id.Name + "-" + version
	if ext != "" {
		file += "." + strings.TrimPrefix(ext, ".")
	}
	return filepath.Join(store, "libs", id.Organization, id.Name, string(id.Kind), file)
}
