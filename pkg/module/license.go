// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package module

import (
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/samber/lo"
)

// License a module's code is released under
type License string

const (
	Proprietary License = "proprietary"
	Apache2     License = "apache-2.0"
	BSD         License = "bsd"
	MIT         License = "mit"
	GPL         License = "gpl"
	LGPL        License = "lgpl"
	EPL         License = "epl"
)

var Licenses = []License{Proprietary, Apache2, BSD, MIT, GPL, LGPL, EPL}

func (l *License) UnmarshalYAML(bytes []byte) error {
	var s string
	if err := yaml.Unmarshal(bytes, &s); err != nil {
		return err
	}
	if !lo.Contains(Licenses, License(s)) {
		return fmt.Errorf("unknown license %q. Must be one of %q", s, Licenses)
	}
	*l = License(s)
	return nil
}

var _ yaml.BytesUnmarshaler = (*License)(nil)
