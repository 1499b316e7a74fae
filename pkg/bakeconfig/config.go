// Copyright (c) 2017-2025 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package bakeconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"daml.com/x/bake/pkg/bakeversion"
	"daml.com/x/bake/pkg/utils"
	"github.com/goccy/go-yaml"
)

var ErrNotInRepository = errors.New("Not in a Bake repository.")

type Config struct {
	RepoRoot string `yaml:"-"`
	// OutPath holds every build output of the repository
	OutPath string `yaml:"-"`
	// ExternalStorePath is the shared store resolved external artifacts are copied into
	ExternalStorePath string `yaml:"-"`

	// oci-layout dir containing raw pulled blobs
	OciLayoutCache string `yaml:"oci-cache,omitempty"`

	Registry         string `yaml:"registry,omitempty"`
	RegistryAuthPath string `yaml:"registry-auth-path,omitempty"`
	Insecure         bool   `yaml:"insecure,omitempty"`

	JavaHome   string `yaml:"java-home,omitempty"`
	LogLevel   string `yaml:"log-level,omitempty"`
	OneJarBoot string `yaml:"one-jar-boot,omitempty"`
}

func (c *Config) EnsureDirs() error {
	return utils.EnsureDirs(c.OutPath, c.ExternalStorePath, c.OciLayoutCache)
}

// ConfigFilePath is the location of the repository's config file
func ConfigFilePath(repoRoot string) string {
	return filepath.Join(repoRoot, RepositoryMarker, ConfigFileName)
}

// Get locates the repository enclosing the working directory (or BAKE_REPOSITORY) and loads its config
func Get() (*Config, error) {
	start, ok := os.LookupEnv(RepositoryEnvVar)
	if !ok {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		start = wd
	}

	root, err := FindRepoRoot(start)
	if err != nil {
		return nil, err
	}
	return GetForRepo(root)
}

func GetForRepo(repoRoot string) (*Config, error) {
	config := Config{}

	// config.yaml is optional
	configFilePath := ConfigFilePath(repoRoot)
	fileInfo, err := os.Stat(configFilePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else {
		if fileInfo.IsDir() {
			return nil, fmt.Errorf("%q is directory and not a file", configFilePath)
		}

		bytes, err := os.ReadFile(configFilePath)
		if err != nil {
			return nil, err
		}

		if err := yaml.UnmarshalWithOptions(bytes, &config, yaml.Strict()); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", configFilePath, err)
		}
	}

	if registry, ok := os.LookupEnv(OciRegistryEnvVar); ok {
		config.Registry = registry
	}
	if config.Registry == "" {
		config.Registry = DefaultOciRegistry
	}

	if registryAuthPath, ok := os.LookupEnv(RegistryAuthConfigPathEnvVar); ok {
		config.RegistryAuthPath = registryAuthPath
	}

	insecure, ok, err := utils.BoolEnvVar(AllowInsecureRegistryEnvVar)
	if err != nil {
		return nil, err
	}
	if ok {
		config.Insecure = insecure
	}

	if logLevel, ok := os.LookupEnv(LogLevelEnvVar); ok {
		config.LogLevel = logLevel
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	if javaHome, ok := os.LookupEnv(JavaHomeEnvVar); ok {
		config.JavaHome = javaHome
	} else if config.JavaHome == "" {
		config.JavaHome = os.Getenv("JAVA_HOME")
	}

	if oneJarBoot, ok := os.LookupEnv(OneJarBootEnvVar); ok {
		config.OneJarBoot = oneJarBoot
	}

	config.RepoRoot = repoRoot
	config.OutPath = filepath.Join(repoRoot, OutputDirName)
	config.ExternalStorePath = filepath.Join(config.OutPath, "external")

	if ociCache, ok := os.LookupEnv(OciCacheEnvVar); ok {
		config.OciLayoutCache = ociCache
	}
	if config.OciLayoutCache == "" {
		config.OciLayoutCache = filepath.Join(config.ExternalStorePath, "oci-layout")
	}
	config.OciLayoutCache = utils.ResolvePath(repoRoot, config.OciLayoutCache)
	if config.OneJarBoot != "" {
		config.OneJarBoot = utils.ResolvePath(repoRoot, config.OneJarBoot)
	}
	return &config, nil
}

// FindRepoRoot returns the nearest ancestor of startDir (inclusive) containing a .bake directory
func FindRepoRoot(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	root, ok, err := findInAncestors(abs, RepositoryMarker)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotInRepository
	}
	return root, nil
}

func findInAncestors(startDir, dirname string) (string, bool, error) {
	ok, err := utils.DirExists(filepath.Join(startDir, dirname))
	if err != nil {
		return "", false, err
	}
	if ok {
		return startDir, true, nil
	}

	parent := filepath.Dir(startDir)
	if parent == startDir {
		return "", false, nil
	}

	return findInAncestors(parent, dirname)
}

// Init makes dir the root of a new repository
func Init(dir string) (string, error) {
	configPath := ConfigFilePath(dir)
	if _, err := os.Stat(configPath); err == nil {
		return "", fmt.Errorf("%s already exists", configPath)
	}
	if err := utils.EnsureDirs(filepath.Dir(configPath)); err != nil {
		return "", err
	}
	contents := []byte("# registry: localhost:5000\n# log-level: info\n")
	if err := os.WriteFile(configPath, contents, 0o644); err != nil {
		return "", err
	}
	return configPath, nil
}

func GetBakeUserAgent() string {
	return fmt.Sprintf("%s/%s", BakeUserAgentPrefix, bakeversion.GetBakeVersion())
}
