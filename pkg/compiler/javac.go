// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package compiler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"daml.com/x/bake/pkg/utils"
)

// Javac compiles by forking the JDK's javac
type Javac struct {
	// Command is the javac executable
	Command string
	logger  *slog.Logger
}

var _ Compiler = (*Javac)(nil)

func NewJavac(javaHome string, logger *slog.Logger) *Javac {
	return &Javac{Command: JavaTool(javaHome, "javac"), logger: logger}
}

// Compile recompiles every source whenever a source, the set of sources or the classpath changed.
// Stale classes are removed first.
func (j *Javac) Compile(ctx context.Context, req Request) (bool, error) {
	sources, err := JavaFiles(req.Sources...)
	if err != nil {
		return false, err
	}
	if len(sources) == 0 {
		j.logger.Debug("no sources to compile", "destination", req.Destination)
		return false, nil
	}

	state, err := newState(sources, req.Classpath)
	if err != nil {
		return false, err
	}
	previous, err := readState(req.StateFile)
	if err != nil {
		return false, err
	}
	exists, err := utils.DirExists(req.Destination)
	if err != nil {
		return false, err
	}
	if exists && state.Equal(previous) {
		j.logger.Debug("classes are up to date", "destination", req.Destination)
		return false, nil
	}

	if err := os.RemoveAll(req.Destination); err != nil {
		return false, err
	}
	if err := utils.EnsureDirs(req.Destination, filepath.Dir(req.StateFile)); err != nil {
		return false, err
	}

	argFile := req.StateFile + ".args"
	if err := os.WriteFile(argFile, []byte(argFileContents(sources)), 0o644); err != nil {
		return false, err
	}
	defer func() { _ = os.Remove(argFile) }()

	j.logger.Info(fmt.Sprintf("[Re]compiling %d files...", len(sources)), "destination", req.Destination)
	j.logger.Debug("classpath", "entries", req.Classpath)

	args := []string{"-d", req.Destination, "-encoding", "UTF-8"}
	if len(req.Classpath) > 0 {
		args = append(args, "-classpath", Classpath(req.Classpath))
	}
	args = append(args, "@"+argFile)

	cmd := exec.CommandContext(ctx, j.Command, args...)
	diagnostics := req.Diagnostics
	if diagnostics == nil {
		diagnostics = io.Discard
	}
	cmd.Stdout = diagnostics
	cmd.Stderr = diagnostics

	if err := run(cmd, "javac"); err != nil {
		var exitError *ExitError
		if errors.As(err, &exitError) {
			return false, errors.Join(ErrCompilationFailed, err)
		}
		return false, err
	}

	return true, state.write(req.StateFile)
}

// argFileContents quotes each source, escaping backslashes as javac expects
func argFileContents(sources []string) string {
	var b strings.Builder
	for _, s := range sources {
		b.WriteString(`"` + strings.ReplaceAll(s, `\`, `\\`) + `"` + "\n")
	}
	return b.String()
}
