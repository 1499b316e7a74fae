// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"path/filepath"

	"daml.com/x/bake/pkg/artifact"
	"daml.com/x/bake/pkg/bakeconfig/bakeremote"
	"daml.com/x/bake/pkg/dependency"
	"daml.com/x/bake/pkg/ociresolver"
	"daml.com/x/bake/pkg/ocipusher"
	"daml.com/x/bake/pkg/utils"
	"github.com/Masterminds/semver/v3"
	"github.com/fatih/color"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/storer"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/samber/lo"
	"oras.land/oras-go/v2/errdef"
)

const (
	GitCommitAnnotation = "git.commit"
	GitTagAnnotation    = "git.tag"
)

type Config struct {
	Organization string
	Name         string
	Version      *semver.Version

	// Jar is the built archive published as the library layer
	Jar string
	// Sources is an optional source archive
	Sources string

	Dependencies []dependency.Identifier
	Annotations  map[string]string

	DryRun bool
	// GitDir, when set, adds the commit (and tag) checked out there as annotations
	GitDir string
}

// Repo is the registry repository the module is published to, matching how external dependencies are resolved
func (c *Config) Repo() string {
	return c.Organization + "/" + c.Name
}

type Publisher struct {
	config  *Config
	printer utils.RawPrinter
}

func New(config *Config, printer utils.RawPrinter) *Publisher {
	return &Publisher{config: config, printer: printer}
}

// Publish pushes the module's archives unless the version is already in the registry
func (p *Publisher) Publish(ctx context.Context, client *bakeremote.Remote) error {
	dir, deleteFn, err := utils.MkdirTemp("", "bake-publish-")
	if err != nil {
		return err
	}
	defer func() { _ = deleteFn() }()

	pushOp, err := p.prepare(ctx, dir)
	if err != nil {
		return err
	}

	if p.config.DryRun {
		p.printer.Println("Skipping push due to --dry-run")
		return nil
	}

	tags, _, err := ociresolver.ListTags(ctx, client, p.config.Repo())
	if err != nil {
		return err
	}
	if lo.Contains(tags, pushOp.Tag()) {
		p.printer.Println("skipped pushing because " + p.config.Repo() + ":" + pushOp.Tag() + " already exists in remote")
		return nil
	}

	_, err = p.push(ctx, client, pushOp)
	return err
}

// stage copies the archives into dir under the names consumers store them by
func (p *Publisher) stage(dir string) ([]ocipusher.Layer, error) {
	layers := []ocipusher.Layer{{Name: p.config.Name + ".jar", Kind: artifact.Library}}
	if err := utils.CopyFile(p.config.Jar, filepath.Join(dir, layers[0].Name)); err != nil {
		return nil, fmt.Errorf("staging %s: %w", p.config.Jar, err)
	}

	if p.config.Sources != "" {
		sources := ocipusher.Layer{Name: p.config.Name + "-sources.jar", Kind: artifact.Source}
		if err := utils.CopyFile(p.config.Sources, filepath.Join(dir, sources.Name)); err != nil {
			return nil, fmt.Errorf("staging %s: %w", p.config.Sources, err)
		}
		layers = append(layers, sources)
	}
	return layers, nil
}

func (p *Publisher) prepare(ctx context.Context, dir string) (*ocipusher.PushOperation, error) {
	layers, err := p.stage(dir)
	if err != nil {
		return nil, err
	}

	annotations := map[string]string{}
	maps.Copy(annotations, p.config.Annotations)
	if p.config.GitDir != "" {
		gitAnnotations, err := collectGitAnnotations(p.config.GitDir)
		if err != nil {
			return nil, err
		}
		maps.Copy(annotations, gitAnnotations)
	}

	pushOp, err := ocipusher.New(ctx, ocipusher.Opts{
		Repo:             p.config.Repo(),
		Name:             p.config.Name,
		Version:          p.config.Version,
		Dir:              dir,
		Layers:           layers,
		Dependencies:     p.config.Dependencies,
		ExtraAnnotations: annotations,
	})
	if err != nil {
		if errors.Is(err, errdef.ErrSizeExceedsLimit) {
			p.printer.PrintErrln("Failed to construct OCI manifest due to size limit.")
		}
		return nil, err
	}
	return pushOp, nil
}

func (p *Publisher) push(ctx context.Context, client *bakeremote.Remote, pushOp *ocipusher.PushOperation) (*v1.Descriptor, error) {
	coloredDest := color.GreenString(pushOp.Destination(client.Registry))

	p.printer.Printf("Pushing %q...\n", coloredDest)
	descriptor, err := pushOp.Do(ctx, client)
	if err != nil {
		return nil, err
	}
	descriptorJson, err := json.MarshalIndent(descriptor, "", "  ")
	if err != nil {
		return nil, err
	}
	p.printer.Printf("\n%s\n", string(descriptorJson))
	p.printer.Println("successfully published " + coloredDest)
	return descriptor, nil
}

func collectGitAnnotations(dir string) (map[string]string, error) {
	r, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, err
	}
	head, err := r.Head()
	if err != nil {
		return nil, err
	}

	result := map[string]string{
		GitCommitAnnotation: head.Hash().String(),
	}

	tags, err := r.Tags()
	if err != nil {
		return nil, err
	}
	err = tags.ForEach(func(ref *plumbing.Reference) error {
		target := ref.Hash()
		// annotated tags point at a tag object rather than the commit
		if tag, err := r.TagObject(target); err == nil {
			target = tag.Target
		} else if !errors.Is(err, plumbing.ErrObjectNotFound) {
			return err
		}
		if target == head.Hash() {
			result[GitTagAnnotation] = ref.Name().Short()
			return storer.ErrStop
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
