// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package bakeconfig

const (
	// RepositoryMarker is the directory marking a repository root
	RepositoryMarker   = ".bake"
	ConfigFileName     = "config.yaml"
	OutputDirName      = "out"
	DefaultOciRegistry = "localhost:5000"

	BakeUserAgentPrefix = "bake"
)
