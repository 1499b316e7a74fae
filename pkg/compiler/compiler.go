// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package compiler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
)

var ErrCompilationFailed = errors.New("Compilation failed.")

type Request struct {
	// Sources are directories searched recursively for .java files. Missing ones are ignored.
	Sources     []string
	Classpath   []string
	Destination string
	// StateFile records what the destination was last compiled from
	StateFile   string
	Diagnostics io.Writer
}

// Compiler compiles a module's sources into a class directory.
// It reports false when the destination was already up to date.
type Compiler interface {
	Compile(ctx context.Context, req Request) (bool, error)
}

type TestRequest struct {
	// Dir is the working directory of the test process
	Dir       string
	Classpath []string
	// Runner is the main class receiving the test classes as arguments
	Runner  string
	Classes []string
	Output  io.Writer
}

type TestRunner interface {
	Run(ctx context.Context, req TestRequest) error
}

// ExitError is returned when a tool ran but exited with a non-zero status
type ExitError struct {
	Tool string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Tool, e.Code)
}

// JavaTool returns the path of a JDK tool, looked up on $PATH when javaHome is empty
func JavaTool(javaHome, tool string) string {
	if javaHome == "" {
		return tool
	}
	return filepath.Join(javaHome, "bin", tool)
}

// Classpath joins entries with the platform's list separator
func Classpath(entries []string) string {
	return strings.Join(entries, string(filepath.ListSeparator))
}

// JavaFiles returns the .java files below dirs, sorted
func JavaFiles(dirs ...string) ([]string, error) {
	var files []string
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == dir && errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, ".java") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	slices.Sort(files)
	return files, nil
}

func run(cmd *exec.Cmd, tool string) error {
	if err := cmd.Run(); err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return &ExitError{Tool: tool, Code: exitError.ExitCode()}
		}
		return fmt.Errorf("failed to spawn %s. %w", tool, err)
	}
	return nil
}
