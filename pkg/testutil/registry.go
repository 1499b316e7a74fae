// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"net/http/httptest"
	"strings"
	"testing"

	"daml.com/x/bake/pkg/bakeconfig"
	"daml.com/x/bake/pkg/bakeconfig/bakeremote"
	"daml.com/x/bake/pkg/logging"
	"github.com/google/go-containerregistry/pkg/registry"
	"oras.land/oras-go/v2/registry/remote/auth"
)

// StartRegistry serves an in-memory OCI registry for the duration of the test
// and points BAKE_REGISTRY at it
func StartRegistry(t *testing.T) (client *bakeremote.Remote, reg *httptest.Server) {
	reg = httptest.NewServer(registry.New())
	t.Cleanup(func() { reg.Close() })
	regUrl := strings.TrimPrefix(reg.URL, "http://")

	t.Setenv(bakeconfig.OciRegistryEnvVar, regUrl)
	t.Setenv(bakeconfig.RegistryAuthConfigPathEnvVar, TestdataPath(t, "empty-docker-config.json"))
	t.Setenv(bakeconfig.AllowInsecureRegistryEnvVar, "true")

	return getRemote(reg), reg
}

func getRemote(reg *httptest.Server) *bakeremote.Remote {
	host := strings.TrimPrefix(reg.URL, "http://")
	return bakeremote.NewWithCustomClient(host, &auth.Client{Client: reg.Client()}, true, logging.Discard())
}
