// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"io"
	"log/slog"

	"daml.com/x/bake/pkg/bake"
	"daml.com/x/bake/pkg/bakeconfig"
	"daml.com/x/bake/pkg/bakeconfig/bakeremote"
	"daml.com/x/bake/pkg/compiler"
	"daml.com/x/bake/pkg/logging"
	"daml.com/x/bake/pkg/module"
	"daml.com/x/bake/pkg/ociresolver"
	"daml.com/x/bake/pkg/packaging"
	"daml.com/x/bake/pkg/repository"
	"daml.com/x/bake/pkg/resolutioncache"
)

// session is everything a command needs to build in the enclosing repository
type session struct {
	config *bakeconfig.Config
	logger *slog.Logger
	remote *bakeremote.Remote
	repo   *repository.Repository
	cache  *resolutioncache.Cache
}

func (o *rootOpts) session() (*session, error) {
	config, err := bakeconfig.Get()
	if err != nil {
		return nil, err
	}
	if err := config.EnsureDirs(); err != nil {
		return nil, err
	}

	logger, err := logging.New(o.inv.Stderr, config.LogLevel, o.verbose)
	if err != nil {
		return nil, err
	}

	remote, err := bakeremote.NewFromConfig(config, logger)
	if err != nil {
		return nil, err
	}

	s := &session{config: config, logger: logger, remote: remote}
	s.reload()
	return s, nil
}

// reload drops every loaded module, expanded dependency set and cached resolution
func (s *session) reload() {
	s.repo = repository.New(s.config, s.logger)
	s.cache = resolutioncache.New(s.repo, ociresolver.New(s.config, s.remote, s.logger), s.logger)
}

func (s *session) baker(output io.Writer, skipTests bool) *bake.Baker {
	return bake.New(s.repo, s.cache, bake.Tools{
		Compiler:   compiler.NewJavac(s.config.JavaHome, s.logger),
		Runner:     compiler.NewJavaRunner(s.config.JavaHome, s.logger),
		Packager:   packaging.New(s.logger),
		OneJarBoot: s.config.OneJarBoot,
		Output:     output,
		SkipTests:  skipTests,
	}, s.logger)
}

func (s *session) modules(paths []string) ([]*module.Module, error) {
	modules := make([]*module.Module, 0, len(paths))
	for _, p := range paths {
		m, err := s.repo.ModuleForPath(p)
		if err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}
	return modules, nil
}
