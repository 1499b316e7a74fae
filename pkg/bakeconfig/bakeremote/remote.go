// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package bakeremote

import (
	"fmt"
	"log/slog"
	"net/http"

	"daml.com/x/bake/pkg/bakeconfig"
	"daml.com/x/bake/pkg/ocicache"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"
)

// Remote is the OCI registry external dependencies are resolved against and published to
type Remote struct {
	Registry string
	client   *auth.Client
	logger   *slog.Logger

	// Use http instead of https.
	// This is merely a hint to consumers of Remote, and not something that is enforced by Client
	Insecure bool
}

func (r *Remote) Repo(repoName string) (repo *remote.Repository, err error) {
	repo, err = remote.NewRepository(fmt.Sprintf("%s/%s", r.Registry, repoName))
	if err != nil {
		return nil, err
	}

	repo.Client = r
	repo.PlainHTTP = r.Insecure
	return
}

// CachedRepo is Repo with pulled blobs teed into the oci-layout dir ociCache
func (r *Remote) CachedRepo(repoName, ociCache string) (oras.ReadOnlyTarget, error) {
	repo, err := r.Repo(repoName)
	if err != nil {
		return nil, err
	}
	return ocicache.CachedTarget(repo, ociCache)
}

func NewWithCustomClient(registry string, client *auth.Client, insecure bool, logger *slog.Logger) *Remote {
	return &Remote{
		Registry: registry,
		client:   client,
		logger:   logger,
		Insecure: insecure,
	}
}

func New(registry string, authConfigPath string, insecure bool, logger *slog.Logger) (*Remote, error) {
	// This client has some default caching (e.g. for auth tokens) and retry settings
	client := &auth.Client{
		Client: auth.DefaultClient.Client,
		Cache:  auth.NewCache(),
	}
	client.SetUserAgent(bakeconfig.GetBakeUserAgent())

	if authConfigPath != "" {
		logger.Debug("using custom auth for registry", "path", authConfigPath)
		ds, err := credentials.NewStore(authConfigPath, credentials.StoreOptions{})
		if err != nil {
			return nil, err
		}
		client.Credential = credentials.Credential(readOnly(ds))
	} else {
		logger.Debug("no custom registry auth provided. Will default to docker's if present on system")
		ds, err := credentials.NewStoreFromDocker(credentials.StoreOptions{})
		if err != nil {
			logger.Debug("failed to determine docker config to default to. Requests to registry will be unauthenticated", "err", err.Error())
		} else {
			client.Credential = credentials.Credential(readOnly(ds))
		}
	}

	return NewWithCustomClient(registry, client, insecure, logger), nil
}

var _ remote.Client = (*Remote)(nil)

func (r *Remote) Do(req *http.Request) (*http.Response, error) {
	r.logger.Debug("OCI request", "method", req.Method, "url", req.URL.String())
	return r.client.Do(req)
}

func NewFromConfig(config *bakeconfig.Config, logger *slog.Logger) (*Remote, error) {
	return New(config.Registry, config.RegistryAuthPath, config.Insecure, logger)
}
