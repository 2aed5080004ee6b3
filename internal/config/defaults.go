package config

const (
	defaultDataDir              = "~/.local/share/postgate"
	defaultLogDir               = "~/.local/share/postgate/logs"
	defaultAPIBind              = "127.0.0.1:7488"
	defaultTimeoutSeconds       = 24 * 60 * 60
	defaultSweepIntervalSeconds = 5 * 60
	defaultReviewerPollSeconds  = 5
	defaultReviewerName         = "cli"
	defaultNtfyTimeoutSeconds   = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
	defaultConfigPath           = "~/.config/postgate/config.toml"
	projectConfigName           = "postgate.toml"
	queueDatabaseName           = "queue.db"
	envAPIBind                  = "POSTGATE_API_BIND"
	envDataDir                  = "POSTGATE_DATA_DIR"
	envLogLevel                 = "POSTGATE_LOG_LEVEL"
	envNtfyTopic                = "POSTGATE_NTFY_TOPIC"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Queue: Queue{
			DefaultTimeoutSeconds: defaultTimeoutSeconds,
			SweepIntervalSeconds:  defaultSweepIntervalSeconds,
		},
		Reviewer: Reviewer{
			PollIntervalSeconds: defaultReviewerPollSeconds,
			Name:                defaultReviewerName,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
			OnSubmit:              true,
			OnExpire:              true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
