// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package dependency

import (
	"slices"

	"github.com/samber/lo"
)

// Set is an insertion-ordered set of identifiers
type Set struct {
	items []Identifier
	index map[Identifier]struct{}
}

func NewSet(ids ...Identifier) *Set {
	s := &Set{index: map[Identifier]struct{}{}}
	s.Add(ids...)
	return s
}

// Add appends the identifiers that aren't present yet
func (s *Set) Add(ids ...Identifier) *Set {
	for _, id := range ids {
		if _, ok := s.index[id]; ok {
			continue
		}
		s.index[id] = struct{}{}
		s.items = append(s.items, id)
	}
	return s
}

func (s *Set) Contains(id Identifier) bool {
	_, ok := s.index[id]
	return ok
}

func (s *Set) Len() int {
	return len(s.items)
}

// Items returns a copy of the identifiers in insertion order
func (s *Set) Items() []Identifier {
	return slices.Clone(s.items)
}

// Union returns a new set holding s followed by the additions of o
func (s *Set) Union(o *Set) *Set {
	return NewSet(s.items...).Add(o.items...)
}

// Difference returns a new set holding the members of s missing from o
func (s *Set) Difference(o *Set) *Set {
	return NewSet(lo.Reject(s.items, func(id Identifier, _ int) bool {
		return o.Contains(id)
	})...)
}

func (s *Set) Internal() []Identifier {
	return lo.Reject(s.items, func(id Identifier, _ int) bool { return id.IsExternal() })
}

func (s *Set) External() []Identifier {
	return lo.Filter(s.items, func(id Identifier, _ int) bool { return id.IsExternal() })
}

func (s *Set) Strings() []string {
	return lo.Map(s.items, func(id Identifier, _ int) string { return id.String() })
}
