// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package packaging

import (
	"bufio"
	"io"
	"log/slog"
	"os"

	"daml.com/x/bake/pkg/utils"
)

// Packager writes jars and executables
type Packager struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Packager {
	return &Packager{logger: logger}
}

// writeExecutable stages the output at <dest>.temp, marks it executable and renames it over dest
func writeExecutable(dest string, write func(w io.Writer) error) error {
	temp := utils.TempPath(dest)
	f, err := os.Create(temp)
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(temp) }()

	w := bufio.NewWriter(f)
	if err := write(w); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	if err := os.Chmod(temp, 0o755); err != nil {
		return err
	}
	return os.Rename(temp, dest)
}
