// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package login

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"os/user"
	"path/filepath"
	"strings"

	"daml.com/x/bake/pkg/bakeconfig"
	"github.com/jdx/go-netrc"
	"github.com/spf13/cobra"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"
)

type loginCmd struct {
	username, password, netrcHost string
	passwordStdin, useNativeStore bool
	netrcPath                     string
}

// Cmd builds the login command. The configuration is loaded when the command runs.
func Cmd(getConfig func() (*bakeconfig.Config, error)) *cobra.Command {
	c := &loginCmd{}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "store credentials for the registry",
		Long: "Authenticate to the registry external dependencies are resolved from. " +
			"This will modify the auth config file. (The registry and auth file are the ones specified in " +
			".bake/config.yaml or the corresponding env vars, or the defaults if none are set)",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := getConfig()
			if err != nil {
				return err
			}

			creds, err := c.get(cmd.InOrStdin())
			if err != nil {
				return err
			}

			if err := c.login(cmd.Context(), config, creds); err != nil {
				return err
			}

			cmd.Println("Successfully logged in.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&c.username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&c.password, "password", "p", "", "password")
	cmd.Flags().BoolVar(&c.passwordStdin, "password-stdin", false, "Take the password from stdin")
	cmd.Flags().BoolVar(&c.useNativeStore, "use-native-cred-store", false, "store credentials in system's credential store instead of plaintext in the auth config file")
	cmd.Flags().StringVarP(&c.netrcHost, "netrc", "n", "", "log in using username and password of a netrc host (machine)")
	cmd.Flags().StringVar(&c.netrcPath, "netrc-file", "", "netrc file to read (default ~/.netrc)")

	return cmd
}

func (c *loginCmd) storeOpts() credentials.StoreOptions {
	return credentials.StoreOptions{
		AllowPlaintextPut:        true,
		DetectDefaultNativeStore: c.useNativeStore,
	}
}

func (c *loginCmd) login(ctx context.Context, config *bakeconfig.Config, creds *auth.Credential) (err error) {
	var ds *credentials.DynamicStore
	if config.RegistryAuthPath != "" {
		ds, err = credentials.NewStore(config.RegistryAuthPath, c.storeOpts())
	} else {
		ds, err = credentials.NewStoreFromDocker(c.storeOpts())
	}
	if err != nil {
		return err
	}

	host, err := registryHost(config.Registry)
	if err != nil {
		return err
	}
	reg, err := remote.NewRegistry(host)
	if err != nil {
		return err
	}
	reg.PlainHTTP = config.Insecure
	return credentials.Login(ctx, ds, reg, *creds)
}

func registryHost(registry string) (string, error) {
	if !strings.HasPrefix(registry, "http://") && !strings.HasPrefix(registry, "https://") {
		registry = "http://" + registry
	}
	u, err := url.Parse(registry)
	if err != nil {
		return "", err
	}
	return u.Host, nil
}

func (c *loginCmd) get(stdin io.Reader) (*auth.Credential, error) {
	if c.netrcHost != "" {
		if c.username != "" || c.passwordStdin {
			return nil, fmt.Errorf("netrc can't be used with other options")
		}

		return getNetrc(c.netrcPath, c.netrcHost)
	}

	if c.username == "" {
		return nil, fmt.Errorf("username is required")
	}

	if c.passwordStdin && c.password != "" {
		return nil, fmt.Errorf("--password and --password-stdin cannot be used together")
	}

	if !c.passwordStdin && c.password == "" {
		return nil, fmt.Errorf("password must be provided via --password or --password-stdin")
	}

	if c.password != "" {
		return &auth.Credential{
			Username: c.username,
			Password: c.password,
		}, nil
	}

	p, err := io.ReadAll(bufio.NewReader(stdin))
	if err != nil {
		return nil, fmt.Errorf("failed to read password from stdin: %w", err)
	}
	return &auth.Credential{
		Username: c.username,
		Password: strings.TrimRight(string(p), "\r\n"),
	}, nil
}

func getNetrc(path, host string) (*auth.Credential, error) {
	if path == "" {
		usr, err := user.Current()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(usr.HomeDir, ".netrc")
	}
	n, err := netrc.Parse(path)
	if err != nil {
		return nil, err
	}

	machine := n.Machine(host)
	if machine == nil {
		return nil, fmt.Errorf("no machine %q in %s", host, path)
	}
	return &auth.Credential{
		Username: machine.Get("login"),
		Password: machine.Get("password"),
	}, nil
}
