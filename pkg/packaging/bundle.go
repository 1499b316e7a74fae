// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package packaging

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"daml.com/x/bake/pkg/utils"
)

const (
	oneJarBootClass   = "com.simontuffs.onejar.Boot"
	oneJarURLFactory  = "com.simontuffs.onejar.JarClassLoader$OneJarURLFactory"
	BundleMainJarPath = "main/main.jar"
)

var ErrNoBootJar = errors.New("no one-jar boot jar configured")

// BundleEntry places the file at Path into the bundle under Name
type BundleEntry struct {
	Name string
	Path string
}

type BundleOptions struct {
	MainClass string
	// Boot is the jar holding the bootstrap class loader
	Boot    string
	Entries []BundleEntry
	VMArgs  []string
	Args    []string
}

// BundleScript makes a bundle directly executable when prepended to it
func BundleScript(vmArgs, args []string) string {
	return "#!/bin/sh\n" +
		"set -e\n" +
		"exec java -DuseJavaUtilZip " + utils.QuoteArgs(vmArgs) + " -jar \"$0\" " + utils.QuoteArgs(args) + " \"$@\"\n"
}

func BundleManifest(mainClass string) *Manifest {
	return NewManifest().
		Set("Main-Class", oneJarBootClass).
		Set("One-Jar-Main-Class", mainClass).
		Set("One-Jar-URL-Factory", oneJarURLFactory)
}

// WriteBundle writes a self-executing jar at dest that keeps the entries as nested jars
// and loads them through the one-jar boot class loader
func (p *Packager) WriteBundle(dest string, opts BundleOptions) error {
	if opts.Boot == "" {
		return ErrNoBootJar
	}
	p.logger.Debug("bundling jars", "dest", dest, "entries", opts.Entries)

	return writeExecutable(dest, func(w io.Writer) error {
		script := BundleScript(opts.VMArgs, opts.Args)
		if _, err := io.WriteString(w, script); err != nil {
			return err
		}

		zw := zip.NewWriter(w)
		zw.SetOffset(int64(len(script)))
		if err := writeManifest(zw, BundleManifest(opts.MainClass)); err != nil {
			return err
		}
		if err := copyBoot(zw, opts.Boot); err != nil {
			return err
		}
		for _, e := range opts.Entries {
			if err := p.addFile(zw, e); err != nil {
				return err
			}
		}
		return zw.Close()
	})
}

func copyBoot(zw *zip.Writer, boot string) error {
	r, err := openZip(boot)
	if err != nil {
		return fmt.Errorf("reading one-jar boot jar: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name == ManifestPath || f.Name == "/" {
			continue
		}
		if strings.HasSuffix(f.Name, "/") {
			if _, err := zw.CreateHeader(directoryHeader(f.Name)); err != nil {
				return err
			}
			continue
		}
		if err := copyEntry(zw, f, f.Name); err != nil {
			return err
		}
	}
	return nil
}

func (p *Packager) addFile(zw *zip.Writer, e BundleEntry) error {
	f, err := os.Open(e.Path)
	if errors.Is(err, fs.ErrNotExist) {
		p.logger.Debug("skipping missing file", "path", e.Path)
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	w, err := zw.CreateHeader(&zip.FileHeader{Name: e.Name, Method: zip.Deflate, Modified: info.ModTime()})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}
