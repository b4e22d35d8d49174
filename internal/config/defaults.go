package config

const (
	defaultStateDir         = "~/.local/share/thepipe"
	defaultLogDir           = "~/.local/share/thepipe/logs"
	defaultConnectTimeoutMS = 50
	defaultReadTimeoutMS    = 5000
	defaultDrainTimeoutMS   = 5000
	defaultAbsTolerance     = 1e-9
	defaultRelTolerance     = 1e-9
	defaultRelayListen      = "127.0.0.1:7480"
	defaultMaxPayloadMB     = 64
	defaultRedisKeyPrefix   = "thepipe:"
	defaultRedisTTLSeconds  = 3600
	defaultJournalFile      = "journal.db"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
)

// Default returns a Config populated with repository defaults. The runtime
// directory is resolved during normalization so environment overrides apply.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Pipe: Pipe{
			ConnectTimeoutMS: defaultConnectTimeoutMS,
			ReadTimeoutMS:    defaultReadTimeoutMS,
			DrainTimeoutMS:   defaultDrainTimeoutMS,
		},
		Geometry: Geometry{
			AbsTolerance: defaultAbsTolerance,
			RelTolerance: defaultRelTolerance,
		},
		Relay: Relay{
			Listen:       defaultRelayListen,
			MaxPayloadMB: defaultMaxPayloadMB,
		},
		Redis: Redis{
			KeyPrefix:  defaultRedisKeyPrefix,
			TTLSeconds: defaultRedisTTLSeconds,
		},
		Journal: Journal{
			Enabled: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
