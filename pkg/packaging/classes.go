// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package packaging

import (
	"archive/zip"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"daml.com/x/bake/pkg/staleness"
	"daml.com/x/bake/pkg/utils"
)

// ClassesJar jars the contents of dirs, typically compiled classes followed by resources.
// When two dirs hold the same path the first one wins.
// It reports false if there was nothing to jar or dest was up to date.
func (p *Packager) ClassesJar(dest string, dirs ...string) (bool, error) {
	latest, ok, err := staleness.LatestModTime(dirs...)
	if err != nil {
		return false, err
	}
	if !ok {
		p.logger.Debug("no classes or resources to jar", "dest", dest)
		return false, nil
	}
	stale, err := staleness.IsStaleAt(dest, latest)
	if err != nil {
		return false, err
	}
	if !stale {
		p.logger.Debug("up to date", "path", dest)
		return false, nil
	}

	p.logger.Debug("jarring classes and resources", "dest", dest)
	if err := utils.EnsureDirs(filepath.Dir(dest)); err != nil {
		return false, err
	}
	err = writeExecutable(dest, func(w io.Writer) error {
		zw := zip.NewWriter(w)
		paths := map[string]struct{}{"/": {}}
		if _, err := zw.CreateHeader(directoryHeader("/")); err != nil {
			return err
		}
		for _, dir := range dirs {
			if err := zipDirectory(zw, dir, paths); err != nil {
				return err
			}
		}
		return zw.Close()
	})
	return err == nil, err
}

func zipDirectory(zw *zip.Writer, dir string, paths map[string]struct{}) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir && errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if path == dir {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if d.IsDir() {
			name += "/"
		}
		if _, ok := paths[name]; ok {
			return nil
		}
		paths[name] = struct{}{}

		if d.IsDir() {
			_, err := zw.CreateHeader(directoryHeader(name))
			return err
		}
		return zipFile(zw, path, name)
	})
}

func zipFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: info.ModTime()})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}
