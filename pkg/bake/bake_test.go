// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package bake

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"daml.com/x/bake/pkg/artifact"
	"daml.com/x/bake/pkg/bakeerrors"
	"daml.com/x/bake/pkg/compiler"
	"daml.com/x/bake/pkg/logging"
	"daml.com/x/bake/pkg/module"
	"daml.com/x/bake/pkg/packaging"
	"daml.com/x/bake/pkg/repository"
	"daml.com/x/bake/pkg/resolutioncache"
	"daml.com/x/bake/pkg/testutil"
	"daml.com/x/bake/pkg/walk"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCompiler "compiles" each source into a class file holding the source path.
// Existing class files are left alone.
type fakeCompiler struct {
	requests []compiler.Request
}

func (f *fakeCompiler) Compile(_ context.Context, req compiler.Request) (bool, error) {
	f.requests = append(f.requests, req)
	compiled := false
	for _, src := range req.Sources {
		files, err := compiler.JavaFiles(src)
		if err != nil {
			return false, err
		}
		for _, file := range files {
			rel, err := filepath.Rel(src, file)
			if err != nil {
				return false, err
			}
			class := filepath.Join(req.Destination, strings.TrimSuffix(rel, ".java")+".class")
			if _, err := os.Stat(class); err == nil {
				continue
			}
			compiled = true
			if err := os.MkdirAll(filepath.Dir(class), 0o755); err != nil {
				return false, err
			}
			if err := os.WriteFile(class, []byte(file), 0o644); err != nil {
				return false, err
			}
		}
	}
	return compiled, nil
}

func (f *fakeCompiler) destinations(root string) []string {
	return lo.Map(f.requests, func(r compiler.Request, _ int) string {
		rel, _ := filepath.Rel(root, r.Destination)
		return filepath.ToSlash(rel)
	})
}

func (f *fakeCompiler) request(t *testing.T, root, destination string) compiler.Request {
	r, ok := lo.Find(f.requests, func(r compiler.Request) bool {
		return r.Destination == filepath.Join(root, filepath.FromSlash(destination))
	})
	require.True(t, ok, "no compile request for %s", destination)
	return r
}

type fakeRunner struct {
	requests []compiler.TestRequest
	err      error
}

func (f *fakeRunner) Run(_ context.Context, req compiler.TestRequest) error {
	f.requests = append(f.requests, req)
	return f.err
}

// fakeResolver resolves every external to a jar holding <org>/<name>/Lib.class
type fakeResolver struct {
	t     *testing.T
	store string
	calls []string
}

func (f *fakeResolver) Resolve(_ context.Context, req *resolutioncache.Request, configuration string) (*artifact.Map, error) {
	f.calls = append(f.calls, req.Module+":"+configuration)
	ids, err := req.Externals(configuration)
	if err != nil {
		return nil, err
	}
	result := artifact.NewMap()
	for _, id := range ids {
		jar := filepath.Join(f.store, id.Organization, id.Name+".jar")
		if _, err := os.Stat(jar); err != nil {
			testutil.WriteJar(f.t, jar, map[string]string{
				id.Organization + "/" + id.Name + "/Lib.class": id.Name,
				"META-INF/MANIFEST.MF":                         "Manifest-Version: 1.0\r\n\r\n",
			})
		}
		result.Put(artifact.Id{Organization: id.Organization, Name: id.Name, Kind: artifact.Library}, jar)
	}
	return result, nil
}

type fixture struct {
	repo     *testutil.Repo
	compiler *fakeCompiler
	runner   *fakeRunner
	resolver *fakeResolver
	tools    Tools
}

func newFixture(t *testing.T, r *testutil.Repo) *fixture {
	f := &fixture{
		repo:     r,
		compiler: &fakeCompiler{},
		runner:   &fakeRunner{},
		resolver: &fakeResolver{t: t, store: t.TempDir()},
	}
	f.tools = Tools{
		Compiler: f.compiler,
		Runner:   f.runner,
		Packager: packaging.New(logging.Discard()),
	}
	return f
}

func (f *fixture) bake(t *testing.T, name string) error {
	return f.bakeWith(t, f.tools, name)
}

func (f *fixture) bakeWith(t *testing.T, tools Tools, name string) error {
	repo := repository.New(f.repo.Config(), logging.Discard())
	cache := resolutioncache.New(repo, f.resolver, logging.Discard())
	m, err := repo.ModuleByName(name)
	require.NoError(t, err)
	return New(repo, cache, tools, logging.Discard()).Bake(testutil.Context(t), m)
}

func (f *fixture) out(path string) string {
	return filepath.Join(f.repo.Root, "out", filepath.FromSlash(path))
}

// foo -> foo.bar, which exports guice
func newFooRepo(t *testing.T, fooSpec module.JavaSpec) *testutil.Repo {
	fooSpec.Dependencies = append(fooSpec.Dependencies, "foo.bar")
	fooSpec.TestDependencies = append(fooSpec.TestDependencies, "external:junit/junit@4.13")
	r := testutil.NewRepo(t).
		Java("foo", fooSpec).
		Java("foo.bar", module.JavaSpec{
			Dependencies: []string{"external:org/guice@3.0"},
			Exports:      []string{"external:org/guice@3.0"},
		})
	r.File("foo/java/foo/Main.java", "package foo; class Main {}")
	r.File("foo/resources/foo/app.properties", "name=foo")
	r.File("foo/tests/java/foo/MainTest.java", "package foo; class MainTest {}")
	r.File("foo/tests/java/foo/Helper.java", "package foo; class Helper {}")
	r.File("foo/bar/java/bar/Bar.java", "package bar; class Bar {}")
	return r
}

func TestBakeEndToEnd(t *testing.T) {
	f := newFixture(t, newFooRepo(t, module.JavaSpec{MainClass: "foo.Main", Args: []string{"serve"}}))

	require.NoError(t, f.bake(t, "foo"))

	assert.Equal(t, []string{"foo.bar:default", "foo.bar:test", "foo:default", "foo:test"}, f.resolver.calls)
	assert.Equal(t, []string{
		"out/modules/foo.bar/classes",
		"out/modules/foo.bar/test-classes",
		"out/modules/foo/classes",
		"out/modules/foo/test-classes",
	}, f.compiler.destinations(f.repo.Root))

	guice := filepath.Join(f.resolver.store, "org", "guice.jar")
	junit := filepath.Join(f.resolver.store, "junit", "junit.jar")
	assert.Equal(t, []string{f.out("modules/foo.bar/classes.jar"), guice},
		f.compiler.request(t, f.repo.Root, "out/modules/foo/classes").Classpath)
	assert.Equal(t, []string{f.out("modules/foo/classes.jar"), f.out("modules/foo.bar/classes.jar"), guice, junit},
		f.compiler.request(t, f.repo.Root, "out/modules/foo/test-classes").Classpath)

	classes := testutil.ReadJar(t, f.out("modules/foo/classes.jar"))
	assert.Contains(t, classes, "foo/Main.class")
	assert.Equal(t, "name=foo", classes["foo/app.properties"])

	merged := testutil.ReadJar(t, f.out("jars/foo.jar"))
	assert.Contains(t, merged, "foo/Main.class")
	assert.Contains(t, merged, "bar/Bar.class")
	assert.Equal(t, "guice", merged["org/guice/Lib.class"])
	assert.NotContains(t, merged, "foo/MainTest.class")
	assert.Equal(t, "Manifest-Version: 1.0\r\nMain-Class: foo.Main\r\n\r\n", merged[packaging.ManifestPath])

	launcher, err := os.ReadFile(f.out("bin/foo"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(launcher), packaging.LauncherSuffix([]string{"-Xmx1G"}, []string{"serve"})))

	require.Len(t, f.runner.requests, 1)
	req := f.runner.requests[0]
	assert.Equal(t, f.repo.ModuleDir("foo"), req.Dir)
	assert.Equal(t, module.DefaultTestRunner, req.Runner)
	assert.Equal(t, []string{"foo.MainTest"}, req.Classes)
	assert.Equal(t, []string{
		f.out("modules/foo/test-classes.jar"),
		f.out("modules/foo/classes.jar"),
		f.out("modules/foo.bar/classes.jar"),
		guice,
		junit,
	}, req.Classpath)
}

func TestBakeReusesResolution(t *testing.T) {
	f := newFixture(t, newFooRepo(t, module.JavaSpec{MainClass: "foo.Main"}))
	require.NoError(t, f.bake(t, "foo"))
	calls := len(f.resolver.calls)

	info, err := os.Stat(f.out("jars/foo.jar"))
	require.NoError(t, err)

	require.NoError(t, f.bake(t, "foo"))
	assert.Len(t, f.resolver.calls, calls)

	again, err := os.Stat(f.out("jars/foo.jar"))
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), again.ModTime(), "an up to date jar isn't rewritten")
}

func TestBakeRecompilesDependents(t *testing.T) {
	f := newFixture(t, newFooRepo(t, module.JavaSpec{MainClass: "foo.Main"}))
	log := filepath.Join(t.TempDir(), "javac.log")
	javac := compiler.NewJavac("", logging.Discard())
	javac.Command = testutil.WriteScript(t, filepath.Join(t.TempDir(), "javac"), fmt.Sprintf(`echo "$2" >> %q
echo "$2" > "$2/Out.class"
`, log))
	tools := f.tools
	tools.Compiler = javac

	compiled := func() []string {
		b, err := os.ReadFile(log)
		require.NoError(t, err)
		return lo.Map(strings.Fields(string(b)), func(dest string, _ int) string {
			rel, err := filepath.Rel(f.repo.Root, dest)
			require.NoError(t, err)
			return filepath.ToSlash(rel)
		})
	}

	require.NoError(t, f.bakeWith(t, tools, "foo"))
	assert.Equal(t, []string{
		"out/modules/foo.bar/classes",
		"out/modules/foo/classes",
		"out/modules/foo/test-classes",
	}, compiled())
	before, err := os.Stat(f.out("jars/foo.jar"))
	require.NoError(t, err)

	require.NoError(t, f.bakeWith(t, tools, "foo"))
	assert.Len(t, compiled(), 3)

	testutil.Touch(t, filepath.Join(f.repo.Root, "foo", "bar", "java", "bar", "Bar.java"), time.Now().Add(time.Hour))
	require.NoError(t, f.bakeWith(t, tools, "foo"))
	assert.Equal(t, []string{
		"out/modules/foo.bar/classes",
		"out/modules/foo/classes",
		"out/modules/foo/test-classes",
	}, compiled()[3:])

	after, err := os.Stat(f.out("jars/foo.jar"))
	require.NoError(t, err)
	assert.True(t, after.ModTime().After(before.ModTime()), "the merged jar is rebuilt")
}

func TestBakeRunsEachModuleOnce(t *testing.T) {
	f := newFixture(t, newFooRepo(t, module.JavaSpec{}))
	r := repository.New(f.repo.Config(), logging.Discard())
	baker := New(r, resolutioncache.New(r, f.resolver, logging.Discard()), f.tools, logging.Discard())

	foo, err := r.ModuleByName("foo")
	require.NoError(t, err)
	bar, err := r.ModuleByName("foo.bar")
	require.NoError(t, err)

	require.NoError(t, baker.Bake(testutil.Context(t), bar))
	require.NoError(t, baker.Bake(testutil.Context(t), foo))
	assert.Len(t, f.compiler.requests, 4)
	assert.NoFileExists(t, f.out("jars/foo.jar"))
}

func TestBakeSkipTests(t *testing.T) {
	f := newFixture(t, newFooRepo(t, module.JavaSpec{}))
	tools := f.tools
	tools.SkipTests = true

	require.NoError(t, f.bakeWith(t, tools, "foo"))
	assert.Empty(t, f.runner.requests)
}

func TestBakeTestFailure(t *testing.T) {
	f := newFixture(t, newFooRepo(t, module.JavaSpec{TestWorkingDirectory: "tests"}))
	f.runner.err = &compiler.ExitError{Tool: "java", Code: 1}

	err := f.bake(t, "foo")
	require.Error(t, err)
	assert.Equal(t, bakeerrors.Test, bakeerrors.Code(err))
	assert.Equal(t, "foo", bakeerrors.Standardize(err).Module)
	assert.EqualError(t, err, "foo failed.")
	assert.Equal(t, filepath.Join(f.repo.ModuleDir("foo"), "tests"), f.runner.requests[0].Dir)
}

func TestBakeMissingJar(t *testing.T) {
	f := newFixture(t, newFooRepo(t, module.JavaSpec{Jars: []string{"lib/missing.jar"}}))

	err := f.bake(t, "foo")
	require.Error(t, err)
	assert.Equal(t, bakeerrors.Configuration, bakeerrors.Code(err))
	assert.EqualError(t, err, "File not found: "+filepath.Join("foo", "lib", "missing.jar")+" (module foo)")
	assert.Equal(t, []string{"out/modules/foo.bar/classes", "out/modules/foo.bar/test-classes"},
		f.compiler.destinations(f.repo.Root))
}

func TestBakeCompilationFailure(t *testing.T) {
	f := newFixture(t, newFooRepo(t, module.JavaSpec{}))
	tools := f.tools
	tools.Compiler = compilerFunc(func(context.Context, compiler.Request) (bool, error) {
		return false, compiler.ErrCompilationFailed
	})

	err := f.bakeWith(t, tools, "foo")
	assert.ErrorIs(t, err, compiler.ErrCompilationFailed)
	assert.Equal(t, bakeerrors.Compilation, bakeerrors.Code(err))
	assert.Equal(t, "foo.bar", bakeerrors.Standardize(err).Module)
	assert.Empty(t, f.runner.requests)
}

type compilerFunc func(ctx context.Context, req compiler.Request) (bool, error)

func (f compilerFunc) Compile(ctx context.Context, req compiler.Request) (bool, error) {
	return f(ctx, req)
}

func TestBakeCycle(t *testing.T) {
	r := testutil.NewRepo(t).
		Java("a", module.JavaSpec{Dependencies: []string{"b"}}).
		Java("b", module.JavaSpec{Dependencies: []string{"a"}})
	f := newFixture(t, r)

	err := f.bake(t, "a")
	require.Error(t, err)
	assert.Equal(t, bakeerrors.Graph, bakeerrors.Code(err))
	assert.Empty(t, f.compiler.requests)
	assert.Empty(t, f.resolver.calls)
}

func TestBakeOneJar(t *testing.T) {
	f := newFixture(t, newFooRepo(t, module.JavaSpec{MainClass: "foo.Main", OneJar: true}))
	tools := f.tools
	tools.SkipTests = true
	tools.OneJarBoot = testutil.WriteJar(t, filepath.Join(t.TempDir(), "one-jar-boot.jar"), map[string]string{
		"com/simontuffs/onejar/Boot.class": "boot",
	})

	err := f.bakeWith(t, tools, "foo")
	require.NoError(t, err)

	bundle := testutil.ReadJar(t, f.out("bin/foo"))
	assert.ElementsMatch(t, []string{
		packaging.ManifestPath,
		"com/simontuffs/onejar/Boot.class",
		packaging.BundleMainJarPath,
		"lib/internal-foo.bar.jar",
		"lib/org-guice.jar",
	}, lo.Keys(bundle))
	assert.NoFileExists(t, f.out("jars/foo.jar"))

	t.Run("a newer boot jar rebuilds the bundle", func(t *testing.T) {
		before, err := os.Stat(f.out("bin/foo"))
		require.NoError(t, err)
		testutil.Touch(t, tools.OneJarBoot, before.ModTime().Add(time.Hour))

		require.NoError(t, f.bakeWith(t, tools, "foo"))
		after, err := os.Stat(f.out("bin/foo"))
		require.NoError(t, err)
		assert.True(t, after.ModTime().After(before.ModTime()))
	})
}

func TestBakeOneJarWithJars(t *testing.T) {
	f := newFixture(t, newFooRepo(t, module.JavaSpec{MainClass: "foo.Main", OneJar: true, Jars: []string{"lib/extra.jar"}}))
	testutil.WriteJar(t, filepath.Join(f.repo.Root, "foo", "lib", "extra.jar"), map[string]string{"extra/E.class": "e"})
	tools := f.tools
	tools.SkipTests = true
	tools.OneJarBoot = testutil.WriteJar(t, filepath.Join(t.TempDir(), "one-jar-boot.jar"), map[string]string{
		"com/simontuffs/onejar/Boot.class": "boot",
	})

	require.NoError(t, f.bakeWith(t, tools, "foo"))
	bundle := testutil.ReadJar(t, f.out("bin/foo"))
	assert.Contains(t, bundle, "lib/internal-foo-extra.jar")
}

func TestBakeOneJarWithoutBoot(t *testing.T) {
	f := newFixture(t, newFooRepo(t, module.JavaSpec{MainClass: "foo.Main", OneJar: true}))

	err := f.bake(t, "foo")
	assert.ErrorIs(t, err, packaging.ErrNoBootJar)
	assert.Equal(t, bakeerrors.Packaging, bakeerrors.Code(err))
}

func TestBakeFatJar(t *testing.T) {
	r := newFooRepo(t, module.JavaSpec{}).
		FatJar("dist", module.FatJarSpec{
			Dependencies:         []string{"foo"},
			ExcludedDependencies: []string{"external:org/guice"},
			MainClass:            "foo.Main",
			ManifestAttributes:   []module.Attribute{{Name: "Implementation-Title", Value: "dist"}},
		})
	f := newFixture(t, r)
	tools := f.tools
	tools.SkipTests = true

	require.NoError(t, f.bakeWith(t, tools, "dist"))

	merged := testutil.ReadJar(t, f.out("jars/dist.jar"))
	assert.Contains(t, merged, "foo/Main.class")
	assert.Contains(t, merged, "bar/Bar.class")
	assert.NotContains(t, merged, "org/guice/Lib.class")
	assert.Equal(t,
		"Manifest-Version: 1.0\r\nMain-Class: foo.Main\r\nClass-Path: guice.jar\r\nImplementation-Title: dist\r\n\r\n",
		merged[packaging.ManifestPath])
	assert.FileExists(t, f.out("bin/dist"))
}

func TestTestClasses(t *testing.T) {
	dir := t.TempDir()
	for _, p := range []string{"a/b/FooTest.java", "a/Helper.java", "BarTest.java", "a/b/FooTest.class"} {
		path := filepath.Join(dir, "tests", filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o644))
	}

	classes, err := TestClasses(filepath.Join(dir, "tests"), filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Equal(t, []string{"BarTest", "a.b.FooTest"}, classes)
}

func TestHandlerKinds(t *testing.T) {
	f := newFixture(t, newFooRepo(t, module.JavaSpec{}).FatJar("dist", module.FatJarSpec{Dependencies: []string{"foo"}}))
	r := repository.New(f.repo.Config(), logging.Discard())
	baker := New(r, resolutioncache.New(r, f.resolver, logging.Discard()), f.tools, logging.Discard())

	for name, kind := range map[string]module.Kind{"foo": module.Java, "dist": module.FatJar} {
		m, err := r.ModuleByName(name)
		require.NoError(t, err)
		h, err := baker.Handler(m)
		require.NoError(t, err)
		assert.Equal(t, kind, h.Kind())

		again, err := baker.Handler(m)
		require.NoError(t, err)
		assert.Same(t, h, again)
	}
}

func TestBakerWalksHandlerDependencies(t *testing.T) {
	f := newFixture(t, newFooRepo(t, module.JavaSpec{}).FatJar("dist", module.FatJarSpec{Dependencies: []string{"foo"}}))
	r := repository.New(f.repo.Config(), logging.Discard())
	baker := New(r, resolutioncache.New(r, f.resolver, logging.Discard()), f.tools, logging.Discard())

	dist, err := r.ModuleByName("dist")
	require.NoError(t, err)
	h, err := baker.Handler(dist)
	require.NoError(t, err)
	deps, err := h.DirectDependencies(testutil.Context(t), walk.MainOnly)
	require.NoError(t, err)
	assert.Equal(t, []string{"foo"}, lo.Map(deps, func(m *module.Module, _ int) string { return m.Name }))

	var visited []string
	err = baker.walk(testutil.Context(t), dist, walk.IncludingTests, func(_ context.Context, m *module.Module) error {
		visited = append(visited, m.Name)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"foo.bar", "foo", "dist"}, visited)
}

func TestPublishedJar(t *testing.T) {
	r := newFooRepo(t, module.JavaSpec{}).
		FatJar("dist", module.FatJarSpec{Dependencies: []string{"foo"}}).
		FatJar("dist.boot", module.FatJarSpec{Dependencies: []string{"foo"}, Strategy: module.OneJar})
	f := newFixture(t, r)
	repo := repository.New(f.repo.Config(), logging.Discard())
	baker := New(repo, resolutioncache.New(repo, f.resolver, logging.Discard()), f.tools, logging.Discard())

	tests := []struct {
		module string
		jar    string
		err    error
	}{
		{"foo", "modules/foo/classes.jar", nil},
		{"dist", "jars/dist.jar", nil},
		{"dist.boot", "", ErrNothingToPublish},
	}
	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			m, err := repo.ModuleByName(tt.module)
			require.NoError(t, err)

			jar, err := baker.PublishedJar(m)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, f.out(tt.jar), jar)
		})
	}
}
