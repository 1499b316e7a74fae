// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package depstable

import (
	"context"

	"daml.com/x/bake/pkg/dependency"
	"daml.com/x/bake/pkg/module"
	"daml.com/x/bake/pkg/repository"
	"daml.com/x/bake/pkg/resolutioncache"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/samber/lo"
)

const (
	Main        = "main"
	Test        = "test"
	Exports     = "exports"
	Fingerprint = "fingerprint"
)

type Row struct {
	Configuration string `json:"configuration"`
	Dependency    string `json:"dependency"`
	Internal      bool   `json:"internal,omitempty"`
}

// Summary is the expanded dependency view of a single module
type Summary struct {
	Module string `json:"module"`
	Rows   []Row  `json:"rows"`
}

func New(ctx context.Context, repo *repository.Repository, cache *resolutioncache.Cache, m *module.Module) (*Summary, error) {
	sets, err := repo.Sets(ctx, m)
	if err != nil {
		return nil, err
	}
	fingerprint, err := cache.Fingerprint(ctx, m)
	if err != nil {
		return nil, err
	}

	s := &Summary{Module: m.Name}
	s.add(Main, sets.Main)
	s.add(Test, sets.Test)
	s.add(Exports, sets.Exports)
	for _, f := range fingerprint {
		s.Rows = append(s.Rows, Row{Configuration: Fingerprint, Dependency: f})
	}
	return s, nil
}

func (s *Summary) add(configuration string, set *dependency.Set) {
	for _, id := range set.Items() {
		s.Rows = append(s.Rows, Row{
			Configuration: configuration,
			Dependency:    id.String(),
			Internal:      !id.IsExternal(),
		})
	}
}

// In returns the dependencies listed under configuration
func (s *Summary) In(configuration string) []string {
	return lo.FilterMap(s.Rows, func(r Row, _ int) (string, bool) {
		return r.Dependency, r.Configuration == configuration
	})
}

func (s *Summary) Table() string {
	internal := lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	derived := lipgloss.NewStyle().Faint(true).Italic(true)

	return table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		Rows(lo.Map(s.Rows, func(row Row, i int) []string {
			configuration := row.Configuration
			if i > 0 && s.Rows[i-1].Configuration == configuration {
				configuration = ""
			}

			dep := row.Dependency
			switch {
			case row.Configuration == Fingerprint:
				dep = derived.Render(dep)
			case row.Internal:
				dep = internal.Render(dep)
			}
			return []string{configuration, dep}
		})...).
		String()
}
