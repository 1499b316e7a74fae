// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package compiler

import (
	"context"
	"io"
	"log/slog"
	"os/exec"
)

// JavaRunner runs tests in a forked JVM
type JavaRunner struct {
	Command string
	logger  *slog.Logger
}

var _ TestRunner = (*JavaRunner)(nil)

func NewJavaRunner(javaHome string, logger *slog.Logger) *JavaRunner {
	return &JavaRunner{Command: JavaTool(javaHome, "java"), logger: logger}
}

func (r *JavaRunner) Run(ctx context.Context, req TestRequest) error {
	args := []string{"-classpath", Classpath(req.Classpath), req.Runner}
	args = append(args, req.Classes...)
	r.logger.Debug("running tests", "dir", req.Dir, "runner", req.Runner, "classes", req.Classes)

	cmd := exec.CommandContext(ctx, r.Command, args...)
	cmd.Dir = req.Dir
	output := req.Output
	if output == nil {
		output = io.Discard
	}
	cmd.Stdout = output
	cmd.Stderr = output
	return run(cmd, "java")
}
