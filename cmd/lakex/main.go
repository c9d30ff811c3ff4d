// Package main is the entry point for the lakex CLI binary.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cli "lake-explorer/pkg/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx)
	stop()
	os.Exit(code)
}
