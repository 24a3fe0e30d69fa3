// Package testsupport provides shared fixtures for package tests: configs
// seeded with per-test temp directories and store constructors with
// registered cleanup.
package testsupport

import (
	"path/filepath"
	"testing"

	"shelfsync/internal/config"
)

// ConfigOption mutates the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// The channel credentials are placeholders; tests that talk to a channel
// use a fake ChannelReader instead.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.StorageDir = filepath.Join(base, "files")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Telegram.BotToken = "test-token"
	cfg.Telegram.ChannelID = -100200
	cfg.Sync.PollInterval = 1

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}
