// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package bake

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"daml.com/x/bake/pkg/bakeerrors"
	"daml.com/x/bake/pkg/compiler"
	"daml.com/x/bake/pkg/module"
	"daml.com/x/bake/pkg/walk"
	"github.com/samber/lo"
)

const (
	ClassesDir         = "classes"
	TestClassesDir     = "test-classes"
	ClassesJarName     = "classes.jar"
	TestClassesJarName = "test-classes.jar"
	testStateFilename  = "test-" + compiler.StateFilename

	testClassSuffix = "Test.java"
)

// javaHandler compiles, packages and tests Java modules
type javaHandler struct {
	baker  *Baker
	module *module.Module
}

var _ jarProvider = (*javaHandler)(nil)

func newJavaHandler(b *Baker, m *module.Module) Handler {
	return &javaHandler{baker: b, module: m}
}

func (h *javaHandler) Kind() module.Kind {
	return module.Java
}

func (h *javaHandler) DirectDependencies(ctx context.Context, s walk.Strategy) ([]*module.Module, error) {
	return h.baker.repo.DirectDependencies(ctx, h.module, s)
}

func (h *javaHandler) Bake(ctx context.Context, phase Phase) error {
	switch phase {
	case Resolve:
		_, err := h.baker.cache.Resolve(ctx, h.module)
		return err
	case Compile:
		return h.compile(ctx)
	case Package:
		if h.module.Declared.MainClass == "" {
			h.baker.logger.Debug("no main class, nothing to package", "module", h.module.Name)
			return nil
		}
		return h.packageExecutable(ctx)
	case Test:
		return h.test(ctx)
	default:
		return fmt.Errorf("unknown phase %d", phase)
	}
}

func (h *javaHandler) outputPath(name string) (string, error) {
	dir, err := h.baker.repo.ModuleOutputDirectory(h.module)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// jars returns the module's pre-built jars, failing if any is missing
func (h *javaHandler) jars() ([]string, error) {
	for _, jar := range h.module.Declared.Jars {
		if _, err := os.Stat(jar); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, bakeerrors.NewConfigurationError(h.module.Name,
					fmt.Errorf("File not found: %s (module %s)", h.baker.repo.RelativePath(jar), h.module.Name))
			}
			return nil, err
		}
	}
	return h.module.Declared.Jars, nil
}

// OutputJars is the classes jar followed by the pre-built jars
func (h *javaHandler) OutputJars() ([]string, error) {
	classesJar, err := h.outputPath(ClassesJarName)
	if err != nil {
		return nil, err
	}
	jars, err := h.jars()
	if err != nil {
		return nil, err
	}
	return append([]string{classesJar}, jars...), nil
}

// mainClasspath is what main sources compile against: the output jars of direct
// internal dependencies, the module's own jars, then resolved external libraries
func (h *javaHandler) mainClasspath(ctx context.Context) ([]string, error) {
	main, err := h.baker.repo.MainDependencies(ctx, h.module)
	if err != nil {
		return nil, err
	}
	classpath, err := h.baker.internalJars(main.Internal())
	if err != nil {
		return nil, err
	}
	own, err := h.jars()
	if err != nil {
		return nil, err
	}
	record, err := h.baker.cache.Resolve(ctx, h.module)
	if err != nil {
		return nil, err
	}
	classpath = append(classpath, own...)
	return lo.Uniq(append(classpath, record.Main.Libraries().Paths()...)), nil
}

// testClasspath adds the module's classes and its test dependencies to the main classpath
func (h *javaHandler) testClasspath(ctx context.Context) ([]string, error) {
	classesJar, err := h.outputPath(ClassesJarName)
	if err != nil {
		return nil, err
	}
	main, err := h.mainClasspath(ctx)
	if err != nil {
		return nil, err
	}
	test, err := h.baker.repo.TestDependencies(ctx, h.module)
	if err != nil {
		return nil, err
	}
	testJars, err := h.baker.internalJars(test.Internal())
	if err != nil {
		return nil, err
	}
	record, err := h.baker.cache.Resolve(ctx, h.module)
	if err != nil {
		return nil, err
	}

	classpath := append([]string{classesJar}, main...)
	classpath = append(classpath, testJars...)
	return lo.Uniq(append(classpath, record.Test.Libraries().Paths()...)), nil
}

func (h *javaHandler) compile(ctx context.Context) error {
	m := h.module
	mainClasspath, err := h.mainClasspath(ctx)
	if err != nil {
		return err
	}
	if err := h.compileAndJar(ctx, m.Declared.SourcePaths, m.Declared.ResourcePaths, mainClasspath,
		ClassesDir, compiler.StateFilename, ClassesJarName); err != nil {
		return err
	}

	testClasspath, err := h.testClasspath(ctx)
	if err != nil {
		return err
	}
	return h.compileAndJar(ctx, m.Declared.TestSourcePaths, m.Declared.TestResources, testClasspath,
		TestClassesDir, testStateFilename, TestClassesJarName)
}

func (h *javaHandler) compileAndJar(ctx context.Context, sources, resources, classpath []string, classesDir, stateFile, jarName string) error {
	m := h.module
	dest, err := h.outputPath(classesDir)
	if err != nil {
		return err
	}
	state, err := h.outputPath(stateFile)
	if err != nil {
		return err
	}
	jar, err := h.outputPath(jarName)
	if err != nil {
		return err
	}

	compiled, err := h.baker.tools.Compiler.Compile(ctx, compiler.Request{
		Sources:     sources,
		Classpath:   classpath,
		Destination: dest,
		StateFile:   state,
		Diagnostics: h.baker.tools.Output,
	})
	if err != nil {
		return bakeerrors.NewCompilationError(m.Name, fmt.Errorf("compiling %s: %w", m.Name, err))
	}
	if compiled {
		h.baker.logger.Info(fmt.Sprintf("Compiled %s.", h.baker.repo.RelativePath(dest)))
	}

	jarred, err := h.baker.tools.Packager.ClassesJar(jar, append([]string{dest}, resources...)...)
	if err != nil {
		return bakeerrors.NewPackagingError(m.Name, err)
	}
	if jarred {
		h.baker.logger.Info(fmt.Sprintf("Jarred classes and resources for %s.", m.Name))
	}
	return nil
}

func (h *javaHandler) packageExecutable(ctx context.Context) error {
	own, err := h.OutputJars()
	if err != nil {
		return err
	}
	return h.baker.packageExecutable(ctx, executable{
		module:    h.module,
		mainClass: h.module.Declared.MainClass,
		args:      h.module.Declared.Args,
		vmArgs:    h.module.Declared.VMArgs,
		own:       own,
		bundled:   h.module.Java.OneJar,
	})
}

// TestClasses returns the names of the classes in dirs whose file names end in Test.java
func TestClasses(dirs ...string) ([]string, error) {
	var classes []string
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == dir && errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				return err
			}
			if d.IsDir() || !strings.HasSuffix(d.Name(), testClassSuffix) {
				return nil
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			name := strings.TrimSuffix(filepath.ToSlash(rel), ".java")
			classes = append(classes, strings.ReplaceAll(name, "/", "."))
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	slices.Sort(classes)
	return slices.Compact(classes), nil
}

// runtimeClasspath is everything the module's tests run against
func (h *javaHandler) runtimeClasspath(ctx context.Context) ([]string, error) {
	testClassesJar, err := h.outputPath(TestClassesJarName)
	if err != nil {
		return nil, err
	}
	own, err := h.OutputJars()
	if err != nil {
		return nil, err
	}
	deps, err := h.baker.reachable(ctx, h.module, walk.IncludingTests)
	if err != nil {
		return nil, err
	}
	classpath := append([]string{testClassesJar}, own...)
	for _, dep := range deps {
		jars, err := h.baker.outputJars(dep)
		if err != nil {
			return nil, err
		}
		classpath = append(classpath, jars...)
	}

	record, err := h.baker.cache.Resolve(ctx, h.module)
	if err != nil {
		return nil, err
	}
	return lo.Uniq(append(classpath, record.All.Libraries().Paths()...)), nil
}

func (h *javaHandler) test(ctx context.Context) error {
	m := h.module
	classes, err := TestClasses(m.Declared.TestSourcePaths...)
	if err != nil {
		return bakeerrors.NewTestError(m.Name, err)
	}
	if len(classes) == 0 {
		h.baker.logger.Info(fmt.Sprintf("No tests found for %s.", m.Name))
		return nil
	}

	classpath, err := h.runtimeClasspath(ctx)
	if err != nil {
		return err
	}
	dir := m.Directory
	if wd := m.Java.TestWorkingDirectory; wd != "" {
		dir = filepath.Join(m.Directory, filepath.FromSlash(wd))
	}

	h.baker.logger.Info(fmt.Sprintf("Running tests for %s...", m.Name))
	err = h.baker.tools.Runner.Run(ctx, compiler.TestRequest{
		Dir:       dir,
		Classpath: classpath,
		Runner:    m.Java.TestRunner,
		Classes:   classes,
		Output:    h.baker.tools.Output,
	})
	if err != nil {
		var exitError *compiler.ExitError
		if errors.As(err, &exitError) {
			return bakeerrors.NewTestError(m.Name, fmt.Errorf("%s failed.", m.Name))
		}
		return bakeerrors.NewTestError(m.Name, err)
	}
	h.baker.logger.Info(fmt.Sprintf("%s passed.", m.Name))
	return nil
}
