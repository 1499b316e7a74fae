// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package walk

import (
	"daml.com/x/bake/pkg/dependency"
)

// Strategy selects which dependency set a traversal follows from a module
type Strategy int

const (
	// MainOnly follows main dependencies
	MainOnly Strategy = iota
	// IncludingTests follows main and test dependencies of the entry module,
	// and main dependencies of everything reached from it
	IncludingTests
	// AllTests follows main and test dependencies at every level
	AllTests
	// ExportsOnly follows declared exports
	ExportsOnly
)

func (s Strategy) String() string {
	switch s {
	case MainOnly:
		return "main-only"
	case IncludingTests:
		return "including-tests"
	case AllTests:
		return "all-tests"
	case ExportsOnly:
		return "exports-only"
	default:
		return "unknown"
	}
}

// Sets are the expanded dependency sets of a module
type Sets struct {
	Main, Test, All *dependency.Set
	Exports         *dependency.Set
}

// Select returns the dependencies s follows given a module's sets
func (s Strategy) Select(sets *Sets) *dependency.Set {
	switch s {
	case IncludingTests, AllTests:
		return sets.All
	case ExportsOnly:
		return sets.Exports
	default:
		return sets.Main
	}
}

// Narrow is the strategy applied to modules reached through the entry module.
// Test dependencies of dependencies are only followed under AllTests.
func (s Strategy) Narrow() Strategy {
	if s == IncludingTests {
		return MainOnly
	}
	return s
}
