package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	LogDir     string `toml:"log_dir"`
	StorageDir string `toml:"storage_dir"`
	APIBind    string `toml:"api_bind"`
}

// Telegram contains configuration for the upstream channel source.
type Telegram struct {
	BotToken          string `toml:"bot_token"`
	APIBaseURL        string `toml:"api_base_url"`
	ChannelID         int64  `toml:"channel_id"`
	ListLimit         int    `toml:"list_limit"`
	RequestTimeout    int    `toml:"request_timeout"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
}

// Matching contains relevance scoring weights and acceptance thresholds.
// The point values are empirically tuned; they are configuration rather
// than invariants so they can be recalibrated per catalog.
type Matching struct {
	WordMatchValue        int     `toml:"word_match_value"`
	UnmatchedPenalty      int     `toml:"unmatched_penalty"`
	SecondaryPenalty      int     `toml:"secondary_penalty"`
	RatioBonusThreshold   float64 `toml:"ratio_bonus_threshold"`
	SegmentedFullBonus    int     `toml:"segmented_full_bonus"`
	SegmentedPartialBonus int     `toml:"segmented_partial_bonus"`
	MinScore              int     `toml:"min_score"`
	AutoBindScore         int     `toml:"auto_bind_score"`
	MaxCandidates         int     `toml:"max_candidates"`
}

// Sync contains worker loop timing, retry budget, and backoff settings.
// Interval and timeout values are in seconds.
type Sync struct {
	MaxRetries         int `toml:"max_retries"`
	PollInterval       int `toml:"poll_interval"`
	SweepInterval      int `toml:"sweep_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	FetchTimeout       int `toml:"fetch_timeout"`
	BackoffBase        int `toml:"backoff_base"`
	BackoffCeiling     int `toml:"backoff_ceiling"`
	ThrottleMargin     int `toml:"throttle_margin"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for shelfsync.
//
// Configuration sections by subsystem:
//   - Paths: data/log/storage directories and API bind address
//   - Telegram: upstream channel source connection and pacing
//   - Matching: relevance scoring weights and thresholds
//   - Sync: worker polling, retry budget, and backoff policy
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Telegram Telegram `toml:"telegram"`
	Matching Matching `toml:"matching"`
	Sync     Sync     `toml:"sync"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/shelfsync/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. The boolean reports whether a
// file existed at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("shelfsync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.StorageDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QueueDBPath returns the path of the queue database inside the data directory.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.DataDir, "queue.db")
}

// CatalogDBPath returns the path of the catalog database inside the data directory.
func (c *Config) CatalogDBPath() string {
	return filepath.Join(c.Paths.DataDir, "catalog.db")
}

// LockFilePath returns the daemon lock file location.
func (c *Config) LockFilePath() string {
	return filepath.Join(c.Paths.DataDir, "shelfsyncd.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
