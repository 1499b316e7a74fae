// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package packaging

import (
	"archive/zip"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"regexp"
	"strings"
	"time"
)

// signatures and indexes of the merged jars don't apply to the merged result
var skippedEntry = regexp.MustCompile(`(?i)^META-INF/(INDEX\.LIST|.+\.(SF|DSA))$`)

// Merger merges the entries of several jars into one. The first jar to provide a path wins.
type Merger struct {
	zw     *zip.Writer
	logger *slog.Logger

	files       map[string]struct{}
	directories map[string]struct{}
}

// NewMerger writes manifest followed by the root directory entry
func NewMerger(zw *zip.Writer, manifest *Manifest, logger *slog.Logger) (*Merger, error) {
	m := &Merger{
		zw:          zw,
		logger:      logger,
		files:       map[string]struct{}{ManifestPath: {}},
		directories: map[string]struct{}{"/": {}},
	}
	if err := writeManifest(zw, manifest); err != nil {
		return nil, err
	}
	if _, err := zw.CreateHeader(directoryHeader("/")); err != nil {
		return nil, err
	}
	return m, nil
}

// Add copies the entries of the jar at path. A missing jar is skipped.
func (m *Merger) Add(path string) error {
	r, err := openZip(path)
	if errors.Is(err, fs.ErrNotExist) {
		m.logger.Debug("skipping missing jar", "path", path)
		return nil
	}
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		if err := m.addEntry(f); err != nil {
			return err
		}
	}
	return nil
}

func (m *Merger) addEntry(f *zip.File) error {
	name := f.Name
	if skippedEntry.MatchString(name) {
		return nil
	}
	if _, ok := m.files[name]; ok {
		m.logger.Debug("already present", "entry", name)
		return nil
	}
	m.files[name] = struct{}{}

	if strings.HasSuffix(name, "/") {
		return m.addDirectory(name)
	}
	if last := strings.LastIndex(name, "/"); last > -1 {
		if err := m.addDirectory(name[:last+1]); err != nil {
			return err
		}
	}
	return copyEntry(m.zw, f, name)
}

// addDirectory writes an entry for dir and any of its parents not written yet
func (m *Merger) addDirectory(dir string) error {
	if _, ok := m.directories[dir]; ok {
		return nil
	}
	if parent := strings.LastIndex(strings.TrimSuffix(dir, "/"), "/"); parent > -1 {
		if err := m.addDirectory(dir[:parent+1]); err != nil {
			return err
		}
	}
	m.directories[dir] = struct{}{}
	_, err := m.zw.CreateHeader(directoryHeader(dir))
	return err
}

func openZip(path string) (*zip.ReadCloser, error) {
	r, err := zip.OpenReader(path)
	// jars carry a "/" entry, which is harmless here
	if errors.Is(err, zip.ErrInsecurePath) {
		return r, nil
	}
	return r, err
}

func copyEntry(zw *zip.Writer, f *zip.File, name string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: f.Modified,
	})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, rc)
	return err
}

func writeManifest(zw *zip.Writer, manifest *Manifest) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: ManifestPath, Method: zip.Deflate, Modified: epoch})
	if err != nil {
		return err
	}
	_, err = w.Write(manifest.Bytes())
	return err
}

// epoch timestamps generated entries, so that equal inputs produce equal archives
var epoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

func directoryHeader(name string) *zip.FileHeader {
	return &zip.FileHeader{Name: name, Method: zip.Store, Modified: epoch}
}
