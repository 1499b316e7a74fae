// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package artifact

import (
	"slices"

	"github.com/samber/lo"
)

// Map associates artifact ids with local file paths.
// Keys keep their insertion order so that classpaths built from a Map are deterministic.
type Map struct {
	keys  []Id
	paths map[Id]string
}

func NewMap() *Map {
	return &Map{paths: map[Id]string{}}
}

// Put records path for id. A later Put for the same id replaces the path but keeps its position.
func (m *Map) Put(id Id, path string) {
	if _, ok := m.paths[id]; !ok {
		m.keys = append(m.keys, id)
	}
	m.paths[id] = path
}

func (m *Map) Get(id Id) (string, bool) {
	p, ok := m.paths[id]
	return p, ok
}

func (m *Map) Len() int {
	return len(m.keys)
}

func (m *Map) Ids() []Id {
	return slices.Clone(m.keys)
}

// Paths returns every path in key order
func (m *Map) Paths() []string {
	return lo.Map(m.keys, func(id Id, _ int) string { return m.paths[id] })
}

// Libraries returns the subset of m that belongs on a classpath
func (m *Map) Libraries() *Map {
	result := NewMap()
	for _, id := range m.keys {
		if id.Kind == Library {
			result.Put(id, m.paths[id])
		}
	}
	return result
}

// Filter returns the entries of m for which keep is true
func (m *Map) Filter(keep func(id Id) bool) *Map {
	result := NewMap()
	for _, id := range m.keys {
		if keep(id) {
			result.Put(id, m.paths[id])
		}
	}
	return result
}

// Merge adds the entries of o missing from m
func (m *Map) Merge(o *Map) *Map {
	if o == nil {
		return m
	}
	for _, id := range o.keys {
		if _, ok := m.paths[id]; !ok {
			m.Put(id, o.paths[id])
		}
	}
	return m
}

type entry struct {
	Id   string `yaml:"id"`
	Path string `yaml:"path"`
}

func (m *Map) MarshalYAML() (any, error) {
	return lo.Map(m.keys, func(id Id, _ int) entry {
		return entry{Id: id.String(), Path: m.paths[id]}
	}), nil
}

func (m *Map) UnmarshalYAML(unmarshal func(any) error) error {
	var entries []entry
	if err := unmarshal(&entries); err != nil {
		return err
	}
	*m = *NewMap()
	for _, e := range entries {
		id, err := ParseId(e.Id)
		if err != nil {
			return err
		}
		m.Put(id, e.Path)
	}
	return nil
}
