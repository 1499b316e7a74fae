// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package depstable

import (
	"context"
	"strings"
	"testing"

	"daml.com/x/bake/pkg/artifact"
	"daml.com/x/bake/pkg/logging"
	"daml.com/x/bake/pkg/module"
	"daml.com/x/bake/pkg/repository"
	"daml.com/x/bake/pkg/resolutioncache"
	"daml.com/x/bake/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noResolver struct{}

func (noResolver) Resolve(context.Context, *resolutioncache.Request, string) (*artifact.Map, error) {
	panic("not expected")
}

func newSummary(t *testing.T) *Summary {
	r := testutil.NewRepo(t).
		Java("foo", module.JavaSpec{
			Dependencies:     []string{"foo.bar"},
			TestDependencies: []string{"external:junit/junit@4.13"},
			Exports:          []string{"foo.bar"},
		}).
		Java("foo.bar", module.JavaSpec{
			Dependencies: []string{"external:com.google.inject/guice@3.0"},
			Exports:      []string{"external:com.google.inject/guice@3.0"},
		})

	repo := repository.New(r.Config(), logging.Discard())
	m, err := repo.ModuleByName("foo")
	require.NoError(t, err)

	s, err := New(testutil.Context(t), repo, resolutioncache.New(repo, noResolver{}, logging.Discard()), m)
	require.NoError(t, err)
	return s
}

func TestSummary(t *testing.T) {
	s := newSummary(t)

	assert.Equal(t, "foo", s.Module)
	assert.Equal(t, []string{"foo.bar", "external:com.google.inject/guice@3.0"}, s.In(Main))
	assert.Equal(t, []string{"external:junit/junit@4.13"}, s.In(Test))
	assert.Equal(t, []string{"foo.bar"}, s.In(Exports))
	assert.Equal(t, []string{"external:com.google.inject/guice@3.0", "external:junit/junit@4.13"}, s.In(Fingerprint))

	assert.True(t, s.Rows[0].Internal)
	assert.False(t, s.Rows[1].Internal)
}

func TestTable(t *testing.T) {
	out := newSummary(t).Table()

	for _, want := range []string{"main", "test", "exports", "fingerprint", "foo.bar", "external:junit/junit@4.13"} {
		assert.Contains(t, out, want)
	}
	assert.Equal(t, 1, strings.Count(out, "main"))
}
