// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package ociresolver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"daml.com/x/bake/pkg/artifact"
	"daml.com/x/bake/pkg/bakeconfig"
	"daml.com/x/bake/pkg/bakeconfig/bakeremote"
	"daml.com/x/bake/pkg/dependency"
	"daml.com/x/bake/pkg/oci"
	"daml.com/x/bake/pkg/resolutioncache"
	"daml.com/x/bake/pkg/utils"
	"github.com/Masterminds/semver/v3"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/samber/lo"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/content/file"
)

const storeLockFilename = ".lock"

// Resolver resolves external dependencies against an OCI registry.
// Each dependency organization/name is the repository <organization>/<name>, tagged by version.
type Resolver struct {
	remote   *bakeremote.Remote
	store    string
	ociCache string
	logger   *slog.Logger

	mu    sync.Mutex
	tags  map[string][]string
	nodes map[string]*node
}

var _ resolutioncache.Resolver = (*Resolver)(nil)

func New(config *bakeconfig.Config, remote *bakeremote.Remote, logger *slog.Logger) *Resolver {
	return &Resolver{
		remote:   remote,
		store:    config.ExternalStorePath,
		ociCache: config.OciLayoutCache,
		logger:   logger,
		tags:     map[string][]string{},
		nodes:    map[string]*node{},
	}
}

// node is one version of an external dependency, as published
type node struct {
	repoName string
	tag      string
	id       dependency.Identifier
	version  *semver.Version
	desc     v1.Descriptor
	manifest v1.Manifest
	deps     []dependency.Identifier
}

// storeVersion is the version the node's files are stored under
func (n *node) storeVersion() string {
	if n.version != nil {
		return n.version.Original()
	}
	return n.tag
}

// supersedes reports whether n wins a version conflict against o
func (n *node) supersedes(o *node) bool {
	return n.version != nil && o.version != nil && n.version.GreaterThan(o.version)
}

func (r *Resolver) Resolve(ctx context.Context, req *resolutioncache.Request, configuration string) (*artifact.Map, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	roots, err := req.Externals(configuration)
	if err != nil {
		return nil, err
	}

	nodes, err := r.selectNodes(ctx, roots)
	if err != nil {
		return nil, err
	}

	result := artifact.NewMap()
	for _, n := range nodes {
		if err := r.retrieve(ctx, n, result); err != nil {
			return nil, fmt.Errorf("retrieving %s: %w", n.id.Key(), err)
		}
	}
	r.logger.Debug("resolved external dependencies", "module", req.Module, "configuration", configuration, "artifacts", result.Len())
	return result, nil
}

// selectNodes computes the transitive closure of roots. When several versions of one dependency are
// requested the highest wins, and the closure is recomputed until no further version changes.
func (r *Resolver) selectNodes(ctx context.Context, roots []dependency.Identifier) ([]*node, error) {
	chosen := map[string]*node{}
	for {
		changed := false
		included := map[string]*node{}

		queue := slices.Clone(roots)
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]

			n, err := r.node(ctx, id)
			if err != nil {
				return nil, err
			}

			key := id.Key()
			if c, ok := chosen[key]; !ok {
				chosen[key] = n
			} else if n.supersedes(c) {
				r.logger.Debug("version conflict", "dependency", key, "evicted", c.tag, "selected", n.tag)
				chosen[key] = n
				changed = true
			}

			if _, ok := included[key]; ok {
				continue
			}
			included[key] = chosen[key]
			queue = append(queue, chosen[key].deps...)
		}

		if !changed {
			nodes := lo.Values(included)
			slices.SortFunc(nodes, func(a, b *node) int { return strings.Compare(a.id.Key(), b.id.Key()) })
			return nodes, nil
		}
	}
}

func (r *Resolver) node(ctx context.Context, id dependency.Identifier) (*node, error) {
	repoName := oci.RepoName(id)

	tags, err := r.listTags(ctx, repoName)
	if err != nil {
		return nil, err
	}
	tag, err := SelectTag(tags, id.Version)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}

	key := repoName + ":" + tag
	if n, ok := r.nodes[key]; ok {
		return n, nil
	}

	repo, err := r.remote.Repo(repoName)
	if err != nil {
		return nil, err
	}
	desc, err := repo.Resolve(ctx, tag)
	if err != nil {
		return nil, err
	}

	src, err := r.remote.CachedRepo(repoName, r.ociCache)
	if err != nil {
		return nil, err
	}
	manifestBytes, err := content.FetchAll(ctx, src, desc)
	if err != nil {
		return nil, err
	}
	var manifest v1.Manifest
	if err := json.Unmarshal(manifestBytes, &manifest); err != nil {
		return nil, fmt.Errorf("invalid image manifest for %s: %w", key, err)
	}

	deps, err := oci.DecodeDependencies(manifest.Annotations)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}

	n := &node{
		repoName: repoName,
		tag:      tag,
		id:       dependency.External(id.Organization, id.Name, tag),
		version:  r.version(tag, manifest.Annotations),
		desc:     desc,
		manifest: manifest,
		deps:     deps,
	}
	r.nodes[key] = n
	r.logger.Debug("selected", "dependency", id.String(), "tag", tag, "digest", desc.Digest.String())
	return n, nil
}

// version figures out the node's non-floaty semver, nil if it has none
func (r *Resolver) version(tag string, annotations map[string]string) *semver.Version {
	if !IsFloaty(tag) {
		return semver.MustParse(tag)
	}
	v, err := oci.VersionFromDescriptorAnnotations(annotations)
	if err != nil {
		r.logger.Debug("floaty tag without version annotation", "tag", tag)
		return nil
	}
	return v
}

func (r *Resolver) listTags(ctx context.Context, repoName string) ([]string, error) {
	if tags, ok := r.tags[repoName]; ok {
		return tags, nil
	}
	tags, found, err := ListTags(ctx, r.remote, repoName)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%s not found in registry %s", repoName, r.remote.Registry)
	}
	r.tags[repoName] = tags
	return tags, nil
}

// retrieve adds the node's files to result, pulling them into the shared store if they aren't there yet
func (r *Resolver) retrieve(ctx context.Context, n *node, result *artifact.Map) error {
	var missing []v1.Descriptor
	for _, layer := range n.manifest.Layers {
		title := layer.Annotations[v1.AnnotationTitle]
		if title == "" {
			r.logger.Debug("skipping untitled layer", "dependency", n.id.Key(), "digest", layer.Digest.String())
			continue
		}

		id := artifact.Id{Organization: n.id.Organization, Name: n.id.Name, Kind: oci.LayerKind(layer)}
		if _, ok := result.Get(id); ok {
			return fmt.Errorf("two artifacts returned for %s", id)
		}
		path := r.storePath(n, id, title)
		result.Put(id, path)

		ok, err := utils.FileExists(path)
		if err != nil {
			return err
		}
		if !ok {
			missing = append(missing, layer)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	return utils.WithLock(ctx, r.logger, filepath.Join(r.store, storeLockFilename), func() error {
		return r.pull(ctx, n, missing)
	})
}

func (r *Resolver) storePath(n *node, id artifact.Id, title string) string {
	return artifact.StorePath(r.store, id, n.storeVersion(), strings.TrimPrefix(filepath.Ext(title), "."))
}

// pull copies the node's image into a staging dir and moves the missing layers into the store.
// It runs under the store lock. Files already present are left alone.
func (r *Resolver) pull(ctx context.Context, n *node, layers []v1.Descriptor) error {
	staging, cleanup, err := utils.MkdirTemp(r.store, "pull-")
	if err != nil {
		return err
	}
	defer func() { _ = cleanup() }()

	src, err := r.remote.CachedRepo(n.repoName, r.ociCache)
	if err != nil {
		return err
	}
	dest, err := file.New(staging)
	if err != nil {
		return err
	}
	defer dest.Close()
	dest.DisableOverwrite = true

	r.logger.Info("downloading", "dependency", n.id.String())
	if err := oras.CopyGraph(ctx, src, dest, n.desc, oras.DefaultCopyGraphOptions); err != nil {
		return err
	}

	for _, layer := range layers {
		title := layer.Annotations[v1.AnnotationTitle]
		id := artifact.Id{Organization: n.id.Organization, Name: n.id.Name, Kind: oci.LayerKind(layer)}
		path := r.storePath(n, id, title)

		if ok, err := utils.FileExists(path); err != nil {
			return err
		} else if ok {
			continue
		}
		if err := utils.EnsureDirs(filepath.Dir(path)); err != nil {
			return err
		}
		if err := os.Rename(filepath.Join(staging, title), path); err != nil {
			return err
		}
	}
	return nil
}
