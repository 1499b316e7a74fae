// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package ociresolver

import (
	"cmp"
	"context"
	"errors"
	"fmt"

	"daml.com/x/bake/pkg/bakeconfig/bakeremote"
	"github.com/Masterminds/semver/v3"
	"github.com/samber/lo"
	"oras.land/oras-go/v2/registry/remote/errcode"
)

var ErrVersionNotFound = errors.New("version not found")

// ListTags returns every tag of repoName. found is false if the repository doesn't exist.
func ListTags(ctx context.Context, client *bakeremote.Remote, repoName string) (tags []string, found bool, err error) {
	repo, err := client.Repo(repoName)
	if err != nil {
		return nil, false, err
	}

	err = repo.Tags(ctx, "", func(page []string) error {
		tags = append(tags, page...)
		return nil
	})
	if isErrorCode(err, errcode.ErrorCodeNameUnknown) {
		// repo doesn't even exist...
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}
	return tags, true, nil
}

// IsFloaty reports whether tag may move between versions, i.e. isn't a complete semver
func IsFloaty(tag string) bool {
	_, err := semver.StrictNewVersion(tag)
	return err != nil
}

// SelectTag picks the tag a requested version resolves to.
// An empty request selects the highest release; a request naming an existing tag selects it;
// anything else is treated as a semver constraint.
func SelectTag(tags []string, requested string) (string, error) {
	if requested != "" && lo.Contains(tags, requested) {
		return requested, nil
	}

	// prereleases are only selected when asked for
	accept := func(v *semver.Version) bool { return v.Prerelease() == "" }
	if requested != "" {
		constraint, err := semver.NewConstraint(requested)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrVersionNotFound, requested)
		}
		accept = constraint.Check
	}

	var best *semver.Version
	var bestTag string
	for _, tag := range tags {
		if IsFloaty(tag) {
			continue
		}
		v := semver.MustParse(tag)
		if !accept(v) {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best, bestTag = v, tag
		}
	}
	if best == nil {
		return "", fmt.Errorf("%w: %s", ErrVersionNotFound, cmp.Or(requested, "latest"))
	}
	return bestTag, nil
}

// isErrorCode returns true if err is an oras Error and its Code equals to code.
func isErrorCode(err error, code string) bool {
	var ec errcode.Error
	return errors.As(err, &ec) && ec.Code == code
}
