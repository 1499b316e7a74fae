// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package bakeconfig

const envVarPrefix = "BAKE_"

const (
	// OciRegistryEnvVar
	// BAKE_REGISTRY overrides the OCI registry external dependencies are resolved against
	OciRegistryEnvVar = envVarPrefix + "REGISTRY"

	// RegistryAuthConfigPathEnvVar
	// BAKE_REGISTRY_AUTH overrides the OCI registry auth file used
	// Contains a path to a config file similar to docker’s config.json
	// 	default: $HOME/.docker/config.json).
	RegistryAuthConfigPathEnvVar = envVarPrefix + "REGISTRY_AUTH"

	// AllowInsecureRegistryEnvVar
	// BAKE_INSECURE_REGISTRY allows an insecure registry to be used (http instead of https)
	AllowInsecureRegistryEnvVar = envVarPrefix + "INSECURE_REGISTRY"

	// LogLevelEnvVar
	// BAKE_LOG_LEVEL sets the log level.
	// 	Default: info
	//  Possible values: debug info warn error
	LogLevelEnvVar = envVarPrefix + "LOG_LEVEL"

	// JavaHomeEnvVar
	// BAKE_JAVA_HOME is the JDK used to compile and run tests. Falls back to JAVA_HOME, then to $PATH
	JavaHomeEnvVar = envVarPrefix + "JAVA_HOME"

	// OneJarBootEnvVar
	// BAKE_ONE_JAR_BOOT is the path to the one-jar-boot jar copied into bundled executables
	OneJarBootEnvVar = envVarPrefix + "ONE_JAR_BOOT"

	// OciCacheEnvVar
	// BAKE_OCI_CACHE overrides the oci-layout dir raw pulled blobs are cached in
	OciCacheEnvVar = envVarPrefix + "OCI_CACHE"

	// RepositoryEnvVar
	// BAKE_REPOSITORY is a path inside a bake repository.
	// This allows running bake against a repository without changing directory
	RepositoryEnvVar = envVarPrefix + "REPOSITORY"
)
