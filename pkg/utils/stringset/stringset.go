// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package stringset

import (
	"maps"
	"slices"
)

type StringSet map[string]struct{}

func New(items ...string) StringSet {
	ss := make(StringSet, len(items))
	for _, s := range items {
		ss.Add(s)
	}
	return ss
}

func (ss StringSet) Add(s string) StringSet {
	ss[s] = struct{}{}
	return ss
}

func (ss StringSet) Contains(s string) bool {
	_, ok := ss[s]
	return ok
}

// Equal reports whether both sets hold exactly the same members
func (ss StringSet) Equal(other StringSet) bool {
	if len(ss) != len(other) {
		return false
	}
	for s := range ss {
		if !other.Contains(s) {
			return false
		}
	}
	return true
}

// Sorted returns the members in lexical order
func (ss StringSet) Sorted() []string {
	return slices.Sorted(maps.Keys(ss))
}
