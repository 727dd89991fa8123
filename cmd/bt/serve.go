package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/suykerbuyk/bargain-timeline/internal/config"
	"github.com/suykerbuyk/bargain-timeline/internal/dataset"
	"github.com/suykerbuyk/bargain-timeline/internal/logger"
	"github.com/suykerbuyk/bargain-timeline/internal/metrics"
	"github.com/suykerbuyk/bargain-timeline/internal/server"
	"github.com/suykerbuyk/bargain-timeline/internal/watch"
)

const watchDebounce = 500 * time.Millisecond

func runServe(ctx context.Context, cfg config.Config, args []string) error {
	log := logger.New("serve")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(func(ctx context.Context) (*dataset.Result, error) {
		return dataset.Build(ctx, cfg)
	}, metrics.New(), logger.New("server"))

	if err := srv.Reload(ctx); err != nil {
		return fmt.Errorf("initial build: %w", err)
	}

	if cfg.Server.Watch && !hasFlag(args, "--no-watch") {
		w, err := watch.New(watchPaths(cfg), watchDebounce, logger.New("watch"))
		if err != nil {
			return err
		}
		go func() {
			err := w.Run(ctx, func(ctx context.Context) {
				// Reload logs its own failures and keeps the old timeline.
				_ = srv.Reload(ctx)
			})
			if err != nil {
				log.Error("watcher stopped", slog.Any("err", err))
			}
		}()
	}

	addr := cfg.Server.BindAddr
	if a := flagValue(args, "--addr"); a != "" {
		addr = a
	}
	return srv.ListenAndServe(ctx, addr, cfg.Server.ReadTimeout(), cfg.Server.WriteTimeout())
}

// watchPaths lists the inputs whose change should rebuild the timeline.
func watchPaths(cfg config.Config) []string {
	paths := []string{cfg.Data.Groups, cfg.Data.Summaries}
	if cfg.Data.Source == config.SourceStore {
		return append(paths, cfg.Store.Path)
	}
	return append(paths, cfg.Data.Events)
}
