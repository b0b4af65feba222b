package config

import "strings"

// normalize expands paths and fills defaulted fields left empty by the
// config file.
func (c *Config) normalize() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(strings.TrimSpace(c.Paths.StagingDir)); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return err
	}

	c.Telegram.BotToken = strings.TrimSpace(c.Telegram.BotToken)
	c.Telegram.APIHash = strings.TrimSpace(c.Telegram.APIHash)
	c.Telegram.BaseURL = strings.TrimRight(strings.TrimSpace(c.Telegram.BaseURL), "/")
	if c.Telegram.BaseURL == "" {
		c.Telegram.BaseURL = defaultBaseURL
	}
	if c.Telegram.PollTimeout <= 0 {
		c.Telegram.PollTimeout = defaultPollTimeout
	}

	c.Trim.FFmpegBinary = strings.TrimSpace(c.Trim.FFmpegBinary)
	if c.Trim.FFmpegBinary == "" {
		c.Trim.FFmpegBinary = defaultFFmpegBinary
	}
	if c.Trim.TimeoutSeconds <= 0 {
		c.Trim.TimeoutSeconds = defaultTrimTimeout
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}

	if c.Workspaces.StaleAfterHours <= 0 {
		c.Workspaces.StaleAfterHours = defaultStaleAfterHours
	}
	return nil
}
