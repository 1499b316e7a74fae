// Copyright (c) 2017-2025 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"io"
	"log/slog"
)

const Debug = "debug"

// New builds the logger handed to every bake component.
// verbose forces debug level regardless of logLevel.
func New(w io.Writer, logLevel string, verbose bool) (*slog.Logger, error) {
	if verbose {
		logLevel = Debug
	}
	if logLevel == "" {
		logLevel = "info"
	}

	var l slog.Level
	if err := l.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, err
	}

	slogHandler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})
	return slog.New(slogHandler), nil
}

// Discard is a logger that drops everything, for tests and library callers without logging needs
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
