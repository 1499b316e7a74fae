// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"daml.com/x/bake/pkg/bakeconfig"
	"daml.com/x/bake/pkg/depstable"
	"daml.com/x/bake/pkg/logging"
	"daml.com/x/bake/pkg/module"
	"daml.com/x/bake/pkg/repository"
	"daml.com/x/bake/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	stdout, stderr string
	err            error
}

func run(t *testing.T, args ...string) result {
	var stdout, stderr bytes.Buffer
	inv := &Invocation{
		Stdout: &stdout,
		Stderr: &stderr,
		Stdin:  strings.NewReader(""),
		OsArgs: append([]string{BakeName}, args...),
	}
	cmd, err := RootCmd(inv)
	require.NoError(t, err)

	err = cmd.ExecuteContext(testutil.Context(t))
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// inRepo points bake at r and at an in-memory registry
func inRepo(t *testing.T, r *testutil.Repo) {
	testutil.StartRegistry(t)
	t.Setenv(bakeconfig.RepositoryEnvVar, r.Root)
}

func TestRootCmdRequiresArgs(t *testing.T) {
	_, err := RootCmd(&Invocation{})
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	res := run(t, "--version")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "version: unknown")
}

func TestHelpWithoutModules(t *testing.T) {
	res := run(t)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Build Commands")
	assert.Contains(t, res.stdout, "init-java")
}

func TestInit(t *testing.T) {
	dir := t.TempDir()

	res := run(t, "init", dir)
	require.NoError(t, res.err)
	assert.FileExists(t, bakeconfig.ConfigFilePath(dir))

	_, err := bakeconfig.GetForRepo(dir)
	require.NoError(t, err)

	res = run(t, "init", dir)
	assert.ErrorContains(t, res.err, "already exists")
}

func TestInitJava(t *testing.T) {
	r := testutil.NewRepo(t)
	inRepo(t, r)

	res := run(t, "init-java", filepath.Join(r.Root, "foo", "bar"))
	require.NoError(t, res.err)
	assert.DirExists(t, filepath.Join(r.Root, "foo", "bar", "java"))
	assert.DirExists(t, filepath.Join(r.Root, "foo", "bar", "tests", "java"))

	m, err := repository.New(r.Config(), logging.Discard()).ModuleByName("foo.bar")
	require.NoError(t, err)
	assert.Equal(t, module.Java, m.Kind)

	res = run(t, "init-java", filepath.Join(r.Root, "foo", "bar"))
	assert.ErrorContains(t, res.err, "already exists")

	res = run(t, "init-java", filepath.Join(r.Root, "Not-A-Name"))
	assert.ErrorIs(t, res.err, module.ErrInvalidModuleName)
}

func TestDeps(t *testing.T) {
	r := testutil.NewRepo(t).
		Java("foo", module.JavaSpec{
			Dependencies:     []string{"foo.bar"},
			TestDependencies: []string{"external:junit/junit@4.13"},
		}).
		Java("foo.bar", module.JavaSpec{
			Exports: []string{"external:org/guice@3.0"},
		})
	inRepo(t, r)

	res := run(t, "deps", r.ModuleDir("foo"), "-o", "json")
	require.NoError(t, res.err)

	var summary depstable.Summary
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &summary))
	assert.Equal(t, "foo", summary.Module)
	assert.Equal(t, []string{"foo.bar", "external:org/guice@3.0"}, summary.In(depstable.Main))
	assert.Equal(t, []string{"external:junit/junit@4.13"}, summary.In(depstable.Test))

	res = run(t, "deps", r.ModuleDir("foo"))
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "fingerprint")

	res = run(t, "deps", r.ModuleDir("foo"), "-o", "xml")
	assert.ErrorContains(t, res.err, "output format not supported")
}

func newDistRepo(t *testing.T) *testutil.Repo {
	return testutil.NewRepo(t).
		FatJar("dist", module.FatJarSpec{
			MainClass:          "dist.Main",
			ManifestAttributes: []module.Attribute{{Name: "Implementation-Title", Value: "dist"}},
		})
}

func TestBuild(t *testing.T) {
	r := newDistRepo(t)
	inRepo(t, r)

	res := run(t, r.ModuleDir("dist"))
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Done in ")

	jar := testutil.ReadJar(t, filepath.Join(r.Root, "out", "jars", "dist.jar"))
	assert.Contains(t, jar["META-INF/MANIFEST.MF"], "Implementation-Title: dist")
	assert.FileExists(t, filepath.Join(r.Root, "out", "bin", "dist"))
}

func TestBuildAll(t *testing.T) {
	r := newDistRepo(t).FatJar("tools", module.FatJarSpec{})
	inRepo(t, r)

	res := run(t, "all")
	require.NoError(t, res.err)
	assert.FileExists(t, filepath.Join(r.Root, "out", "jars", "dist.jar"))
	assert.FileExists(t, filepath.Join(r.Root, "out", "jars", "tools.jar"))
}

func TestBuildAllJoinsFailures(t *testing.T) {
	r := newDistRepo(t).
		Java("broken", module.JavaSpec{Jars: []string{"lib/missing.jar"}})
	inRepo(t, r)

	res := run(t, "all", "--skip-tests")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "1 of 2 modules failed")
	assert.Contains(t, res.stderr, "missing.jar")
	assert.FileExists(t, filepath.Join(r.Root, "out", "jars", "dist.jar"))
}

func TestBuildUnknownModule(t *testing.T) {
	r := newDistRepo(t)
	inRepo(t, r)

	res := run(t, filepath.Join(r.Root, "nope"))
	assert.ErrorIs(t, res.err, repository.ErrModuleNotFound)
	assert.NotContains(t, res.err.Error(), "unknown command")
	assert.NoFileExists(t, filepath.Join(r.Root, "out", "jars", "nope.jar"))
}

func TestBuildOutsideRepository(t *testing.T) {
	t.Setenv(bakeconfig.RepositoryEnvVar, t.TempDir())
	res := run(t, "foo")
	assert.ErrorIs(t, res.err, bakeconfig.ErrNotInRepository)
}

func TestPublish(t *testing.T) {
	r := newDistRepo(t)
	inRepo(t, r)

	res := run(t, "publish", r.ModuleDir("dist"), "--version", "1.0")
	assert.ErrorContains(t, res.err, "complete semantic version")

	res = run(t, "publish", r.ModuleDir("dist"), "--version", "1.0.0", "--no-git", "-a", "team=build")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "successfully published")

	res = run(t, "publish", r.ModuleDir("dist"), "--version", "1.0.0", "--no-git")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "already exists in remote")
}

func TestScaffoldJavaOutsideRepository(t *testing.T) {
	root := t.TempDir()
	_, err := scaffoldJava(filepath.Join(root, "repo"), filepath.Join(root, "elsewhere"))
	assert.ErrorIs(t, err, module.ErrInvalidModuleName)
	_, statErr := os.Stat(filepath.Join(root, "elsewhere"))
	assert.True(t, os.IsNotExist(statErr))
}
