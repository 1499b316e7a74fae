// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package compiler

import (
	"errors"
	"io/fs"
	"os"
	"slices"
	"time"

	"daml.com/x/bake/pkg/schema"
	"daml.com/x/bake/pkg/staleness"
	"daml.com/x/bake/pkg/utils"
	"github.com/goccy/go-yaml"
)

const (
	StateKind     = "CompilerState"
	StateFilename = "compiler-state.yaml"
)

type SourceState struct {
	Path    string    `yaml:"path"`
	ModTime time.Time `yaml:"mod-time"`
}

// State is what a class directory was compiled from.
// A classpath entry's ModTime is the latest file time below it, zero when it doesn't exist.
type State struct {
	schema.ManifestMeta `yaml:",inline"`
	Sources             []SourceState `yaml:"sources"`
	Classpath           []SourceState `yaml:"classpath"`
}

func newState(sources, classpath []string) (*State, error) {
	s := &State{ManifestMeta: schema.New(StateKind)}
	for _, path := range sources {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		s.Sources = append(s.Sources, SourceState{Path: path, ModTime: info.ModTime().UTC()})
	}
	for _, path := range classpath {
		latest, _, err := staleness.LatestModTime(path)
		if err != nil {
			return nil, err
		}
		s.Classpath = append(s.Classpath, SourceState{Path: path, ModTime: latest.UTC()})
	}
	return s, nil
}

// Equal reports whether both states list the same sources and classpath with the same mtimes
func (s *State) Equal(other *State) bool {
	if other == nil {
		return false
	}
	return slices.EqualFunc(s.Classpath, other.Classpath, sameState) &&
		slices.EqualFunc(s.Sources, other.Sources, sameState)
}

func sameState(a, b SourceState) bool {
	return a.Path == b.Path && a.ModTime.Equal(b.ModTime)
}

// readState returns nil when there is no usable state at path
func readState(path string) (*State, error) {
	bytes, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var s State
	if err := yaml.UnmarshalWithOptions(bytes, &s, yaml.Strict()); err != nil {
		return nil, nil
	}
	if err := schema.New(StateKind).ValidateSchema(s.ManifestMeta); err != nil {
		return nil, nil
	}
	return &s, nil
}

func (s *State) write(path string) error {
	bytes, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return utils.WriteFileAtomic(path, bytes, 0o644)
}
