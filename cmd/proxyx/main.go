// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Command proxyx sends HTTP requests through rotating proxies from the
// shell.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/gogama/proxyx"
	"github.com/gogama/proxyx/internal/cmd"
)

// Exit codes.
const (
	exitFailure       = 1
	exitConfiguration = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cmd.NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "proxyx:", err)
		stop()
		if proxyx.IsConfigurationError(err) {
			os.Exit(exitConfiguration)
		}
		os.Exit(exitFailure)
	}
}
