package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable. Missing platform
// credentials are the only startup-fatal condition in the system, so they
// are reported here before any event intake begins.
func (c *Config) Validate() error {
	if err := c.validateTelegram(); err != nil {
		return err
	}
	if err := c.validateLimits(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Paths.StagingDir == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateTelegram() error {
	if c.Telegram.BotToken == "" {
		return credentialError("telegram.bot_token", "BOT_TOKEN")
	}
	if c.Telegram.APIID == 0 {
		return credentialError("telegram.api_id", "API_ID")
	}
	if c.Telegram.APIHash == "" {
		return credentialError("telegram.api_hash", "API_HASH")
	}
	return nil
}

func credentialError(tomlKey, envKey string) error {
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = "~/.config/clipd/config.toml"
	}
	return fmt.Errorf("%s is required. Set the %s env var or edit %s (create with 'clipd config init')", tomlKey, envKey, defaultPath)
}

func (c *Config) validateLimits() error {
	if c.Limits.MaxFileSizeMB < 0 {
		return errors.New("limits.max_file_size_mb must not be negative")
	}
	if c.Limits.MaxClipSeconds < 0 {
		return errors.New("limits.max_clip_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
