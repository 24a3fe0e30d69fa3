package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shelfsync/internal/binder"
	"shelfsync/internal/catalog"
	"shelfsync/internal/config"
	"shelfsync/internal/daemon"
	"shelfsync/internal/logging"
	"shelfsync/internal/queue"
	"shelfsync/internal/services/blobstore"
	"shelfsync/internal/services/telegram"
	"shelfsync/internal/sweep"
	"shelfsync/internal/worker"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, configPath, exists, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if !exists {
		fmt.Fprintf(os.Stderr, "no configuration found at %s\n", configPath)
		fmt.Fprintln(os.Stderr, "run 'shelfsync config init' to create one")
		os.Exit(1)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	d, err := buildDaemon(cfg, logger)
	if err != nil {
		logger.Error("bootstrap daemon", logging.Error(err))
		os.Exit(1)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("shelfsyncd shutting down")
	d.Stop()
}

func buildDaemon(cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	tasks, err := queue.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open queue store: %w", err)
	}

	books, err := catalog.Open(cfg)
	if err != nil {
		tasks.Close()
		return nil, fmt.Errorf("open catalog store: %w", err)
	}

	channel, err := telegram.New(
		cfg.Telegram.BotToken,
		cfg.Telegram.APIBaseURL,
		cfg.Telegram.ChannelID,
		telegram.WithRequestTimeout(time.Duration(cfg.Telegram.RequestTimeout)*time.Second),
		telegram.WithRequestsPerMinute(cfg.Telegram.RequestsPerMinute),
	)
	if err != nil {
		tasks.Close()
		books.Close()
		return nil, fmt.Errorf("create channel client: %w", err)
	}

	blobs, err := blobstore.New(cfg.Paths.StorageDir)
	if err != nil {
		tasks.Close()
		books.Close()
		return nil, fmt.Errorf("create blob store: %w", err)
	}

	taskBinder := binder.New(channel, blobs, books, cfg, logger)
	w := worker.New(tasks, taskBinder, cfg, logger)
	sweeper := sweep.New(channel, books, tasks, cfg, logger)

	d, err := daemon.New(cfg, tasks, books, w, sweeper, logger)
	if err != nil {
		tasks.Close()
		books.Close()
		return nil, err
	}
	return d, nil
}
