// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// RawPrinter is the user-facing output of bake, as opposed to its logs
type RawPrinter interface {
	Println(i ...interface{})
	Printf(format string, i ...interface{})
	PrintErrln(i ...interface{})
}

type StdPrinter struct{}

func (s StdPrinter) Println(i ...interface{}) {
	fmt.Println(i...)
}

func (s StdPrinter) Printf(format string, i ...interface{}) {
	fmt.Printf(format, i...)
}

func (s StdPrinter) PrintErrln(i ...interface{}) {
	fmt.Fprintln(os.Stderr, i...)
}

// WriterPrinter prints to arbitrary writers, e.g. buffers in tests
type WriterPrinter struct {
	Out, Err io.Writer
}

func (w WriterPrinter) Println(i ...interface{}) {
	fmt.Fprintln(w.Out, i...)
}

func (w WriterPrinter) Printf(format string, i ...interface{}) {
	fmt.Fprintf(w.Out, format, i...)
}

func (w WriterPrinter) PrintErrln(i ...interface{}) {
	fmt.Fprintln(w.Err, i...)
}

// Status prints a build step, e.g. "Compiling foo..."
func Status(p RawPrinter, format string, args ...interface{}) {
	p.Println(color.CyanString(format, args...))
}

// Success prints a completed outcome, e.g. "Done in 12ms."
func Success(p RawPrinter, format string, args ...interface{}) {
	p.Println(color.GreenString(format, args...))
}

// Failure prints an error line on the error stream
func Failure(p RawPrinter, err error) {
	p.PrintErrln(color.RedString(err.Error()))
}

var _ RawPrinter = (*StdPrinter)(nil)
var _ RawPrinter = (*WriterPrinter)(nil)
var _ RawPrinter = (*cobra.Command)(nil)
