package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kawabatas/bundle-publisher/internal/app/usecase"
	"github.com/kawabatas/bundle-publisher/internal/infra/config"
	"github.com/kawabatas/bundle-publisher/internal/infra/platform/logger"
)

func main() {
	cfg := config.Load()
	lvl := logger.ParseLevel(cfg.LogLevel)
	// stdout は結果（URL 等）専用、ログは stderr
	slog.SetDefault(logger.New(cfg.LogProvider, lvl, os.Stderr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(cfg).ExecuteContext(ctx); err != nil {
		slog.Error("command failed", slog.String("kind", usecase.KindOf(err).String()), slog.Any("error", err))
		stop()
		os.Exit(1)
	}
}
