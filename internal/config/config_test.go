package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shelfsync/internal/config"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[telegram]
bot_token = "123:abc"
channel_id = -100200300
`)

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %s to be used, got %s exists=%v", path, resolved, exists)
	}
	if cfg.Matching.MinScore != 50 {
		t.Fatalf("expected default min score 50, got %d", cfg.Matching.MinScore)
	}
	if cfg.Sync.MaxRetries != 5 {
		t.Fatalf("expected default retry budget 5, got %d", cfg.Sync.MaxRetries)
	}
	if cfg.Sync.BackoffBase != 30 {
		t.Fatalf("expected default backoff base 30s, got %d", cfg.Sync.BackoffBase)
	}
	if !filepath.IsAbs(cfg.Paths.DataDir) {
		t.Fatalf("expected expanded data dir, got %q", cfg.Paths.DataDir)
	}
}

func TestLoadRequiresBotToken(t *testing.T) {
	path := writeConfig(t, `
[telegram]
channel_id = -100200300
`)

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error when bot token missing")
	} else if !strings.Contains(err.Error(), "bot_token") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsBadRatioThreshold(t *testing.T) {
	path := writeConfig(t, `
[telegram]
bot_token = "123:abc"
channel_id = -1

[matching]
ratio_bonus_threshold = 1.5
`)

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for out-of-range ratio threshold")
	}
}

func TestNormalizeClampsAutoBindScore(t *testing.T) {
	path := writeConfig(t, `
[telegram]
bot_token = "123:abc"
channel_id = -1

[matching]
min_score = 60
auto_bind_score = 10
`)

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Matching.AutoBindScore != 60 {
		t.Fatalf("expected auto bind score clamped to min score, got %d", cfg.Matching.AutoBindScore)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[matching]") {
		t.Fatal("sample config missing matching section")
	}
}

func TestQueueDBPathInsideDataDir(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = "/tmp/shelfsync-test"
	if got := cfg.QueueDBPath(); got != "/tmp/shelfsync-test/queue.db" {
		t.Fatalf("unexpected queue db path %q", got)
	}
}
