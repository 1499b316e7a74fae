// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package packaging

import (
	"archive/zip"
	"io"
	"strings"
)

type MergeOptions struct {
	MainClass string
	// ClassPath lists jars expected next to the merged jar at runtime
	ClassPath  []string
	Attributes []Attribute
	// Jars are merged in order
	Jars []string
}

// MergedManifest is the manifest of a merged jar
func MergedManifest(opts MergeOptions) *Manifest {
	manifest := NewManifest().Set("Main-Class", opts.MainClass)
	if len(opts.ClassPath) > 0 {
		manifest.Set("Class-Path", strings.Join(opts.ClassPath, " "))
	}
	for _, a := range opts.Attributes {
		manifest.Set(a.Name, a.Value)
	}
	return manifest
}

// WriteMerged writes a single jar at dest holding the entries of every jar in opts.Jars
func (p *Packager) WriteMerged(dest string, opts MergeOptions) error {
	p.logger.Debug("merging jars", "dest", dest, "jars", opts.Jars)
	return writeExecutable(dest, func(w io.Writer) error {
		zw := zip.NewWriter(w)
		merger, err := NewMerger(zw, MergedManifest(opts), p.logger)
		if err != nil {
			return err
		}
		for _, jar := range opts.Jars {
			if err := merger.Add(jar); err != nil {
				return err
			}
		}
		return zw.Close()
	})
}
