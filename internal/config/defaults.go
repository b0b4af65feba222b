package config

const (
	defaultStagingDir      = "~/.local/share/clipd/staging"
	defaultLogDir          = "~/.local/share/clipd/logs"
	defaultBaseURL         = "https://api.telegram.org"
	defaultPollTimeout     = 50
	defaultMaxFileSizeMB   = 2000
	defaultFFmpegBinary    = "ffmpeg"
	defaultTrimTimeout     = 300
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultStaleAfterHours = 24
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
		},
		Telegram: Telegram{
			BaseURL:     defaultBaseURL,
			PollTimeout: defaultPollTimeout,
		},
		Limits: Limits{
			MaxFileSizeMB: defaultMaxFileSizeMB,
		},
		Trim: Trim{
			FFmpegBinary:   defaultFFmpegBinary,
			TimeoutSeconds: defaultTrimTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Workspaces: Workspaces{
			StaleAfterHours: defaultStaleAfterHours,
		},
	}
}
