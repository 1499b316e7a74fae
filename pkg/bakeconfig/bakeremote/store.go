// Copyright (c) 2017-2025 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package bakeremote

import (
	"context"
	"fmt"

	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"
)

// readOnlyStore keeps builds from touching the user's credentials. Only `bake login` writes them.
type readOnlyStore struct {
	ds *credentials.DynamicStore
}

var _ credentials.Store = (*readOnlyStore)(nil)

func readOnly(ds *credentials.DynamicStore) *readOnlyStore {
	return &readOnlyStore{ds}
}

func (r readOnlyStore) Get(ctx context.Context, serverAddress string) (auth.Credential, error) {
	return r.ds.Get(ctx, serverAddress)
}

func (r readOnlyStore) Put(ctx context.Context, serverAddress string, cred auth.Credential) error {
	return fmt.Errorf("read-only credential store does not allow put operations")
}

func (r readOnlyStore) Delete(ctx context.Context, serverAddress string) error {
	return fmt.Errorf("read-only credential store does not allow delete operations")
}
