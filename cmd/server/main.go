// Package main runs the lakehouse explorer HTTP server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"lake-explorer/internal/app"
	"lake-explorer/internal/config"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

type serverFlags struct {
	configPath string
	listen     string
}

func parseFlags(args []string) (serverFlags, error) {
	var f serverFlags
	fs := pflag.NewFlagSet("server", pflag.ContinueOnError)
	fs.StringVarP(&f.configPath, "config", "c", os.Getenv("LAKEX_CONFIG"), "config file (YAML or JSON); environment variables when empty")
	fs.StringVar(&f.listen, "listen", "", "listen address (overrides the configured one)")
	err := fs.Parse(args)
	return f, err
}

func run(args []string) int {
	flags, err := parseFlags(args)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		return 2
	}

	bootLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := config.LoadDotEnv(".env"); err != nil {
		bootLogger.Warn("could not load .env", "error", err)
	}
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		bootLogger.Error("invalid configuration", "error", err)
		return 1
	}
	if flags.listen != "" {
		cfg.ListenAddr = flags.listen
	}
	logger := app.NewLogger(cfg, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}()

	if err := a.Serve(ctx, cfg.ListenAddr); err != nil {
		logger.Error("server error", "error", err)
		return 1
	}
	return 0
}
