// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package bake

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"daml.com/x/bake/pkg/artifact"
	"daml.com/x/bake/pkg/bakeerrors"
	"daml.com/x/bake/pkg/dependency"
	"daml.com/x/bake/pkg/module"
	"daml.com/x/bake/pkg/packaging"
	"daml.com/x/bake/pkg/staleness"
	"daml.com/x/bake/pkg/walk"
	"github.com/samber/lo"
)

// executable describes the runnable archive built for a module
type executable struct {
	module     *module.Module
	mainClass  string
	args       []string
	vmArgs     []string
	attributes []packaging.Attribute
	// own jars come first; the first one is the module's classes jar, if any
	own     []string
	bundled bool
}

// constituents are the jars making up an executable, grouped by origin
type constituents struct {
	own       []string
	internal  []internalJars
	externals *artifact.Map
}

type internalJars struct {
	module *module.Module
	jars   []string
}

func (c *constituents) all() []string {
	jars := append([]string{}, c.own...)
	for _, i := range c.internal {
		jars = append(jars, i.jars...)
	}
	return append(jars, c.externals.Paths()...)
}

// packageExecutable builds e's archive, and for a merged archive with a main class, its launcher
func (b *Baker) packageExecutable(ctx context.Context, e executable) error {
	m := e.module
	c, err := b.constituents(ctx, e)
	if err != nil {
		return err
	}
	recordTime, err := b.cache.LastModified(m)
	if err != nil {
		return bakeerrors.NewPackagingError(m.Name, err)
	}

	if e.bundled {
		return b.bundle(m, e, c, recordTime)
	}
	return b.merge(m, e, c, recordTime)
}

func (b *Baker) constituents(ctx context.Context, e executable) (*constituents, error) {
	m := e.module
	deps, err := b.reachable(ctx, m, walk.MainOnly)
	if err != nil {
		return nil, err
	}

	c := &constituents{own: e.own}
	for _, dep := range deps {
		if m.IsProvided(dependency.Internal(dep.Name)) {
			b.logger.Debug("leaving out provided module", "module", m.Name, "dependency", dep.Name)
			continue
		}
		jars, err := b.outputJars(dep)
		if err != nil {
			return nil, err
		}
		c.internal = append(c.internal, internalJars{module: dep, jars: jars})
	}

	record, err := b.cache.Resolve(ctx, m)
	if err != nil {
		return nil, err
	}
	c.externals = record.Main.Libraries().Filter(func(id artifact.Id) bool {
		return !isExcludedArtifact(m, id)
	})
	return c, nil
}

// isUpToDate reports whether dest is newer than every input and the resolution record
func isUpToDate(dest string, inputs []string, recordTime time.Time) (bool, error) {
	latest, _, err := staleness.LatestModTime(inputs...)
	if err != nil {
		return false, err
	}
	if recordTime.After(latest) {
		latest = recordTime
	}
	stale, err := staleness.IsStaleAt(dest, latest)
	return !stale, err
}

func (b *Baker) merge(m *module.Module, e executable, c *constituents, recordTime time.Time) error {
	jarsDir, err := b.repo.OutputDirectory("jars")
	if err != nil {
		return bakeerrors.NewPackagingError(m.Name, err)
	}
	jar := filepath.Join(jarsDir, m.Name+".jar")

	classPath, err := b.classPathEntries(m)
	if err != nil {
		return err
	}

	jars := c.all()
	upToDate, err := isUpToDate(jar, jars, recordTime)
	if err != nil {
		return bakeerrors.NewPackagingError(m.Name, err)
	}
	if upToDate {
		b.logger.Info(fmt.Sprintf("%s is up to date.", b.repo.RelativePath(jar)))
	} else {
		b.logger.Info(fmt.Sprintf("Building %s...", b.repo.RelativePath(jar)))
		err := b.tools.Packager.WriteMerged(jar, packaging.MergeOptions{
			MainClass:  e.mainClass,
			ClassPath:  classPath,
			Attributes: e.attributes,
			Jars:       jars,
		})
		if err != nil {
			return bakeerrors.NewPackagingError(m.Name, err)
		}
	}

	if e.mainClass == "" {
		return nil
	}
	binDir, err := b.repo.OutputDirectory("bin")
	if err != nil {
		return bakeerrors.NewPackagingError(m.Name, err)
	}
	launcher := filepath.Join(binDir, m.Name)
	written, err := b.tools.Packager.WriteLauncher(launcher, jar, e.vmArgs, e.args)
	if err != nil {
		return bakeerrors.NewPackagingError(m.Name, err)
	}
	if !written {
		b.logger.Debug(fmt.Sprintf("%s is up to date.", b.repo.RelativePath(launcher)))
	}
	return nil
}

// bundleEntries lays out the jars of a one-jar archive: the module's classes as
// main/main.jar and everything else under lib/
func bundleEntries(m *module.Module, c *constituents) []packaging.BundleEntry {
	var entries []packaging.BundleEntry
	for i, jar := range c.own {
		if i == 0 && m.Kind == module.Java {
			entries = append(entries, packaging.BundleEntry{Name: packaging.BundleMainJarPath, Path: jar})
			continue
		}
		entries = append(entries, packaging.BundleEntry{Name: "lib/internal-" + m.Name + "-" + filepath.Base(jar), Path: jar})
	}
	for _, dep := range c.internal {
		for i, jar := range dep.jars {
			name := "lib/internal-" + dep.module.Name + "-" + filepath.Base(jar)
			if i == 0 {
				name = "lib/internal-" + dep.module.Name + ".jar"
			}
			entries = append(entries, packaging.BundleEntry{Name: name, Path: jar})
		}
	}
	for _, id := range c.externals.Ids() {
		path, _ := c.externals.Get(id)
		entries = append(entries, packaging.BundleEntry{Name: "lib/" + id.Organization + "-" + id.Name + ".jar", Path: path})
	}
	return lo.UniqBy(entries, func(e packaging.BundleEntry) string { return e.Name })
}

func (b *Baker) bundle(m *module.Module, e executable, c *constituents, recordTime time.Time) error {
	binDir, err := b.repo.OutputDirectory("bin")
	if err != nil {
		return bakeerrors.NewPackagingError(m.Name, err)
	}
	dest := filepath.Join(binDir, m.Name)

	entries := bundleEntries(m, c)
	inputs := lo.Map(entries, func(e packaging.BundleEntry, _ int) string { return e.Path })
	if b.tools.OneJarBoot != "" {
		inputs = append(inputs, b.tools.OneJarBoot)
	}
	upToDate, err := isUpToDate(dest, inputs, recordTime)
	if err != nil {
		return bakeerrors.NewPackagingError(m.Name, err)
	}
	if upToDate {
		b.logger.Info(fmt.Sprintf("%s is up to date.", b.repo.RelativePath(dest)))
		return nil
	}

	b.logger.Info(fmt.Sprintf("Building %s...", b.repo.RelativePath(dest)))
	err = b.tools.Packager.WriteBundle(dest, packaging.BundleOptions{
		MainClass: e.mainClass,
		Boot:      b.tools.OneJarBoot,
		Entries:   entries,
		VMArgs:    e.vmArgs,
		Args:      e.args,
	})
	if err != nil {
		return bakeerrors.NewPackagingError(m.Name, err)
	}
	return nil
}
