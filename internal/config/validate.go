package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTelegram(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.StorageDir == "" {
		return errors.New("paths.storage_dir must be set")
	}
	return nil
}

func (c *Config) validateTelegram() error {
	if c.Telegram.BotToken == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/shelfsync/config.toml"
		}
		return fmt.Errorf("telegram.bot_token is required. Edit %s (create with 'shelfsync config init')", defaultPath)
	}
	if c.Telegram.ChannelID == 0 {
		return errors.New("telegram.channel_id must be set")
	}
	return nil
}

func (c *Config) validateMatching() error {
	if c.Matching.WordMatchValue <= 0 {
		return errors.New("matching.word_match_value must be positive")
	}
	if c.Matching.UnmatchedPenalty < 0 || c.Matching.SecondaryPenalty < 0 {
		return errors.New("matching penalties must not be negative")
	}
	if c.Matching.RatioBonusThreshold < 0 || c.Matching.RatioBonusThreshold > 1 {
		return errors.New("matching.ratio_bonus_threshold must be between 0 and 1")
	}
	if c.Matching.MinScore < 0 {
		return errors.New("matching.min_score must not be negative")
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.MaxRetries < 0 {
		return errors.New("sync.max_retries must not be negative")
	}
	if c.Sync.ThrottleMargin < 0 {
		return errors.New("sync.throttle_margin must not be negative")
	}
	return nil
}
