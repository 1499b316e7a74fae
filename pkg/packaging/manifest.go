// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package packaging

import (
	"bytes"
	"unicode/utf8"

	"github.com/samber/lo"
)

const (
	ManifestPath = "META-INF/MANIFEST.MF"

	// maxLineLength is the jar manifest limit, in bytes, excluding the line break
	maxLineLength = 72
)

type Attribute struct {
	Name  string
	Value string
}

// Manifest is the main section of a jar manifest. Attributes keep their insertion order.
type Manifest struct {
	attributes []Attribute
}

func NewManifest() *Manifest {
	return &Manifest{attributes: []Attribute{{Name: "Manifest-Version", Value: "1.0"}}}
}

// Set adds the attribute, or replaces the value of an existing attribute with the same name
func (m *Manifest) Set(name, value string) *Manifest {
	if _, i, ok := lo.FindIndexOf(m.attributes, func(a Attribute) bool { return a.Name == name }); ok {
		m.attributes[i].Value = value
		return m
	}
	m.attributes = append(m.attributes, Attribute{Name: name, Value: value})
	return m
}

func (m *Manifest) Get(name string) (string, bool) {
	a, ok := lo.Find(m.attributes, func(a Attribute) bool { return a.Name == name })
	return a.Value, ok
}

func (m *Manifest) Attributes() []Attribute {
	return append([]Attribute(nil), m.attributes...)
}

// Bytes renders the manifest with CRLF line breaks, continuing long lines on lines starting with a space
func (m *Manifest) Bytes() []byte {
	var buf bytes.Buffer
	for _, a := range m.attributes {
		writeWrapped(&buf, a.Name+": "+a.Value)
	}
	buf.WriteString("\r\n")
	return buf.Bytes()
}

func writeWrapped(buf *bytes.Buffer, line string) {
	limit := maxLineLength
	for len(line) > limit {
		cut := limit
		// never split a multi-byte character
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		buf.WriteString(line[:cut])
		buf.WriteString("\r\n ")
		line = line[cut:]
		limit = maxLineLength - 1
	}
	buf.WriteString(line)
	buf.WriteString("\r\n")
}
