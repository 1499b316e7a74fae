// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package oci

import (
	"cmp"
	"fmt"
	"strings"

	"daml.com/x/bake/pkg/artifact"
	"daml.com/x/bake/pkg/dependency"
	"github.com/Masterminds/semver/v3"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/samber/lo"
)

const (
	ArtifactType        = "application/vnd.bake.artifact"
	fileMediaTypePrefix = "application/vnd.bake."

	AnnotationPrefix            = "bake.daml.com."
	DescriptorNameAnnotation    = AnnotationPrefix + "name"
	DescriptorVersionAnnotation = AnnotationPrefix + "version"
	ArtifactTypeAnnotation      = AnnotationPrefix + "artifact-type"
	DependenciesAnnotation      = AnnotationPrefix + "dependencies"
	dependenciesAnnotationSep   = ","
)

// RepoName is the repository an external dependency is published to
func RepoName(id dependency.Identifier) string {
	return id.Organization + "/" + id.Name
}

// FileMediaType is the layer media type of an artifact of the given kind
func FileMediaType(kind artifact.Kind) string {
	return fileMediaTypePrefix + string(kind)
}

// LayerKind determines the artifact kind of a layer, from its annotation or else the media type's last segment
func LayerKind(layer v1.Descriptor) artifact.Kind {
	if t, ok := layer.Annotations[ArtifactTypeAnnotation]; ok {
		return artifact.ParseKind(t)
	}
	mediaType := layer.MediaType
	if i := strings.LastIndexAny(mediaType, "./+"); i >= 0 {
		mediaType = mediaType[i+1:]
	}
	return artifact.ParseKind(mediaType)
}

// DescriptorAnnotations are required annotations to be appended onto image manifests.
// They allow resolving a floaty tag to the artifact's semver
type DescriptorAnnotations struct {
	Name    string
	Version *semver.Version
}

func (d DescriptorAnnotations) AppendToMap(annotations map[string]string) {
	annotations[DescriptorNameAnnotation] = d.Name
	annotations[DescriptorVersionAnnotation] = d.Version.String()
	annotations[v1.AnnotationVersion] = d.Version.String()
}

func VersionFromDescriptorAnnotations(annotations map[string]string) (*semver.Version, error) {
	v := cmp.Or(annotations[v1.AnnotationVersion], annotations[DescriptorVersionAnnotation])
	if v == "" {
		return nil, fmt.Errorf("descriptor missing required %q annotations", DescriptorVersionAnnotation)
	}
	return semver.NewVersion(v)
}

// EncodeDependencies renders external dependencies for the dependencies annotation
func EncodeDependencies(ids []dependency.Identifier) string {
	return strings.Join(lo.Map(ids, func(id dependency.Identifier, _ int) string {
		return strings.TrimPrefix(id.String(), dependency.ExternalPrefix)
	}), dependenciesAnnotationSep)
}

// DecodeDependencies parses the dependencies annotation of a manifest
func DecodeDependencies(annotations map[string]string) ([]dependency.Identifier, error) {
	raw := strings.TrimSpace(annotations[DependenciesAnnotation])
	if raw == "" {
		return nil, nil
	}

	var ids []dependency.Identifier
	for _, entry := range strings.Split(raw, dependenciesAnnotationSep) {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !dependency.IsExternal(entry) {
			entry = dependency.ExternalPrefix + entry
		}
		id, err := dependency.Parse(entry)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
