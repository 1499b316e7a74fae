// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"os"
	"os/signal"

	bake "daml.com/x/bake/cmd/bake/cmd"
	"daml.com/x/bake/pkg/utils"
)

func main() {
	ctx, cancelFn := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer cancelFn()

	inv := &bake.Invocation{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Stdin:  os.Stdin,
		OsArgs: os.Args,
	}
	cmd, err := bake.RootCmd(inv)
	if err != nil {
		utils.Failure(utils.StdPrinter{}, err)
		os.Exit(1)
	}
	if err := cmd.ExecuteContext(ctx); err != nil {
		utils.Failure(utils.StdPrinter{}, err)
		os.Exit(1)
	}
}
