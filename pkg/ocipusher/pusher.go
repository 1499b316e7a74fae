// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package ocipusher

import (
	"bytes"
	"context"
	"fmt"
	"maps"

	"daml.com/x/bake/pkg/artifact"
	"daml.com/x/bake/pkg/bakeconfig/bakeremote"
	"daml.com/x/bake/pkg/dependency"
	"daml.com/x/bake/pkg/oci"
	"github.com/Masterminds/semver/v3"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/content/file"
)

// Layer is one file of the published artifact
type Layer struct {
	// Name of the file, relative to Opts.Dir
	Name string
	Kind artifact.Kind
}

type Opts struct {
	Repo    string
	Name    string
	Version *semver.Version
	Dir     string
	Layers  []Layer

	// Dependencies are the artifact's transitive external dependencies, resolved along with it
	Dependencies     []dependency.Identifier
	ExtraAnnotations map[string]string
}

type PushOperation struct {
	fs           *file.Store
	manifestDesc v1.Descriptor
	repoName     string
	tag          string
}

func (op *PushOperation) Tag() string {
	return op.tag
}

func (op *PushOperation) Destination(registry string) string {
	return fmt.Sprintf("%s/%s:%s", registry, op.repoName, op.Tag())
}

// Do pushes the packed artifact to an oci registry
//
// mostly copied from
// https://pkg.go.dev/oras.land/oras-go/v2#example-package-PushFilesToRemoteRepository
func (op *PushOperation) Do(ctx context.Context, client *bakeremote.Remote) (*v1.Descriptor, error) {
	defer op.fs.Close()

	repo, err := client.Repo(op.repoName)
	if err != nil {
		return nil, err
	}

	d, err := oras.Copy(ctx, op.fs, op.Tag(), repo, op.Tag(), oras.DefaultCopyOptions)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// New packs the layers into an image manifest tagged with the version
func New(ctx context.Context, opts Opts) (*PushOperation, error) {
	if len(opts.Layers) == 0 {
		return nil, fmt.Errorf("nothing to publish to %s", opts.Repo)
	}

	fs, err := file.New(opts.Dir)
	if err != nil {
		return nil, err
	}

	op, err := pack(ctx, fs, opts)
	if err != nil {
		_ = fs.Close()
		return nil, err
	}
	return op, nil
}

func pack(ctx context.Context, fs *file.Store, opts Opts) (*PushOperation, error) {
	configDesc, err := appendConfig(ctx, fs)
	if err != nil {
		return nil, err
	}

	var layers []v1.Descriptor
	for _, l := range opts.Layers {
		desc, err := fs.Add(ctx, l.Name, oci.FileMediaType(l.Kind), "")
		if err != nil {
			return nil, err
		}
		desc.Annotations = withAnnotation(desc.Annotations, oci.ArtifactTypeAnnotation, string(l.Kind))
		layers = append(layers, desc)
	}

	annotations := map[string]string{}
	maps.Copy(annotations, opts.ExtraAnnotations)
	oci.DescriptorAnnotations{Name: opts.Name, Version: opts.Version}.AppendToMap(annotations)
	if len(opts.Dependencies) > 0 {
		annotations[oci.DependenciesAnnotation] = oci.EncodeDependencies(opts.Dependencies)
	}

	packOpts := oras.PackManifestOptions{
		Layers:              layers,
		ManifestAnnotations: annotations,
		ConfigDescriptor:    configDesc,
	}
	manifestDesc, err := oras.PackManifest(ctx, fs, oras.PackManifestVersion1_1, oci.ArtifactType, packOpts)
	if err != nil {
		return nil, err
	}

	op := &PushOperation{
		fs:           fs,
		manifestDesc: manifestDesc,
		repoName:     opts.Repo,
		tag:          opts.Version.String(),
	}
	if err := fs.Tag(ctx, manifestDesc, op.Tag()); err != nil {
		return nil, err
	}
	return op, nil
}

func withAnnotation(annotations map[string]string, key, value string) map[string]string {
	if annotations == nil {
		annotations = map[string]string{}
	}
	annotations[key] = value
	return annotations
}

func appendConfig(ctx context.Context, store *file.Store) (*v1.Descriptor, error) {
	blob := []byte(`{}`)
	desc := content.NewDescriptorFromBytes(oras.MediaTypeUnknownConfig, blob)
	if err := store.Push(ctx, desc, bytes.NewReader(blob)); err != nil {
		return nil, err
	}
	return &desc, nil
}
