package config

import "strings"

// normalize expands path fields and fills unset values with defaults so the
// rest of the codebase never deals with "~" prefixes or zero intervals.
func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if c.Paths.StorageDir, err = expandPath(c.Paths.StorageDir); err != nil {
		return err
	}

	c.Telegram.BotToken = strings.TrimSpace(c.Telegram.BotToken)
	c.Telegram.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.Telegram.APIBaseURL), "/")
	if c.Telegram.APIBaseURL == "" {
		c.Telegram.APIBaseURL = defaultTelegramBaseURL
	}
	if c.Telegram.ListLimit <= 0 {
		c.Telegram.ListLimit = defaultTelegramListLimit
	}
	if c.Telegram.RequestTimeout <= 0 {
		c.Telegram.RequestTimeout = defaultTelegramRequestTimeout
	}
	if c.Telegram.RequestsPerMinute <= 0 {
		c.Telegram.RequestsPerMinute = defaultRequestsPerMinute
	}

	if c.Matching.MaxCandidates <= 0 {
		c.Matching.MaxCandidates = defaultMaxCandidates
	}
	if c.Matching.AutoBindScore < c.Matching.MinScore {
		c.Matching.AutoBindScore = c.Matching.MinScore
	}

	if c.Sync.PollInterval <= 0 {
		c.Sync.PollInterval = defaultPollInterval
	}
	if c.Sync.ErrorRetryInterval <= 0 {
		c.Sync.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Sync.FetchTimeout <= 0 {
		c.Sync.FetchTimeout = defaultFetchTimeout
	}
	if c.Sync.BackoffBase <= 0 {
		c.Sync.BackoffBase = defaultBackoffBase
	}
	if c.Sync.BackoffCeiling < c.Sync.BackoffBase {
		c.Sync.BackoffCeiling = defaultBackoffCeiling
	}
	if c.Sync.HeartbeatInterval <= 0 {
		c.Sync.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Sync.HeartbeatTimeout <= 0 {
		c.Sync.HeartbeatTimeout = defaultHeartbeatTimeout
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}

	return nil
}
