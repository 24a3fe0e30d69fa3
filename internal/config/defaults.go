package config

const (
	defaultDataDir    = "~/.local/share/shelfsync"
	defaultLogDir     = "~/.local/share/shelfsync/logs"
	defaultStorageDir = "~/.local/share/shelfsync/files"
	defaultAPIBind    = "127.0.0.1:7519"

	defaultTelegramBaseURL        = "https://api.telegram.org"
	defaultTelegramListLimit      = 100
	defaultTelegramRequestTimeout = 30
	defaultRequestsPerMinute      = 20

	defaultWordMatchValue        = 20
	defaultUnmatchedPenalty      = 10
	defaultSecondaryPenalty      = 5
	defaultRatioBonusThreshold   = 0.8
	defaultSegmentedFullBonus    = 25
	defaultSegmentedPartialBonus = 15
	defaultMinScore              = 50
	defaultAutoBindScore         = 80
	defaultMaxCandidates         = 15

	defaultMaxRetries         = 5
	defaultPollInterval       = 5
	defaultSweepInterval      = 900
	defaultErrorRetryInterval = 10
	defaultFetchTimeout       = 120
	defaultBackoffBase        = 30
	defaultBackoffCeiling     = 600
	defaultThrottleMargin     = 10
	defaultHeartbeatInterval  = 15
	defaultHeartbeatTimeout   = 120

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
			StorageDir: defaultStorageDir,
			APIBind:    defaultAPIBind,
		},
		Telegram: Telegram{
			APIBaseURL:        defaultTelegramBaseURL,
			ListLimit:         defaultTelegramListLimit,
			RequestTimeout:    defaultTelegramRequestTimeout,
			RequestsPerMinute: defaultRequestsPerMinute,
		},
		Matching: Matching{
			WordMatchValue:        defaultWordMatchValue,
			UnmatchedPenalty:      defaultUnmatchedPenalty,
			SecondaryPenalty:      defaultSecondaryPenalty,
			RatioBonusThreshold:   defaultRatioBonusThreshold,
			SegmentedFullBonus:    defaultSegmentedFullBonus,
			SegmentedPartialBonus: defaultSegmentedPartialBonus,
			MinScore:              defaultMinScore,
			AutoBindScore:         defaultAutoBindScore,
			MaxCandidates:         defaultMaxCandidates,
		},
		Sync: Sync{
			MaxRetries:         defaultMaxRetries,
			PollInterval:       defaultPollInterval,
			SweepInterval:      defaultSweepInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			FetchTimeout:       defaultFetchTimeout,
			BackoffBase:        defaultBackoffBase,
			BackoffCeiling:     defaultBackoffCeiling,
			ThrottleMargin:     defaultThrottleMargin,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
