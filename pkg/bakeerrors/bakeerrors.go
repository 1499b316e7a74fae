// Copyright (c) 2017-2025 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package bakeerrors

import (
	"errors"
)

const (
	Configuration = "CONFIGURATION"
	Graph         = "GRAPH"
	Resolution    = "RESOLUTION"
	Compilation   = "COMPILATION"
	Packaging     = "PACKAGING"
	Test          = "TEST"
	UnknownError  = "UNKNOWN_ERROR"
)

// BakeError is a fatal build error. Every BakeError aborts the current build.
type BakeError struct {
	Code string
	// Module is the name of the failing module, if any
	Module string
	Cause  error
}

func (b *BakeError) Error() string {
	if b.Cause != nil {
		return b.Cause.Error()
	}
	if b.Module != "" {
		return b.Code + ": " + b.Module
	}
	return b.Code
}

func (b *BakeError) Unwrap() error {
	return b.Cause
}

var _ error = (*BakeError)(nil)

func NewConfigurationError(module string, cause error) *BakeError {
	return &BakeError{Code: Configuration, Module: module, Cause: cause}
}

func NewGraphError(module string, cause error) *BakeError {
	return &BakeError{Code: Graph, Module: module, Cause: cause}
}

func NewResolutionError(module string, cause error) *BakeError {
	return &BakeError{Code: Resolution, Module: module, Cause: cause}
}

func NewCompilationError(module string, cause error) *BakeError {
	return &BakeError{Code: Compilation, Module: module, Cause: cause}
}

func NewPackagingError(module string, cause error) *BakeError {
	return &BakeError{Code: Packaging, Module: module, Cause: cause}
}

func NewTestError(module string, cause error) *BakeError {
	return &BakeError{Code: Test, Module: module, Cause: cause}
}

func NewUnknownError(cause error) *BakeError {
	return &BakeError{Code: UnknownError, Cause: cause}
}

// Standardize returns the first BakeError in err's chain, or wraps err as unknown
func Standardize(err error) *BakeError {
	if err == nil {
		return nil
	}

	var bakeErr *BakeError
	if errors.As(err, &bakeErr) {
		return bakeErr
	}

	return NewUnknownError(err)
}

// Code returns the error code of err, UnknownError if it isn't a BakeError
func Code(err error) string {
	if err == nil {
		return ""
	}
	return Standardize(err).Code
}
