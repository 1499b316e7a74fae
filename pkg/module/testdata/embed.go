// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package testdata

import _ "embed"

//go:embed java.yaml
var Java []byte

//go:embed fatjar.yaml
var FatJar []byte

//go:embed empty-java.yaml
var EmptyJava []byte

//go:embed unknown-field.yaml
var UnknownField []byte

//go:embed unknown-kind.yaml
var UnknownKind []byte

//go:embed unknown-license.yaml
var UnknownLicense []byte

//go:embed unknown-strategy.yaml
var UnknownStrategy []byte
