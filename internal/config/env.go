package config

import (
	"fmt"
	"strconv"
	"strings"
)

// applyEnv layers the recognized environment options over file values.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		return nil
	}

	if v, ok := lookup("BOT_TOKEN"); ok && strings.TrimSpace(v) != "" {
		c.Telegram.BotToken = strings.TrimSpace(v)
	}
	if v, ok := lookup("API_ID"); ok && strings.TrimSpace(v) != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("API_ID must be an integer: %w", err)
		}
		c.Telegram.APIID = id
	}
	if v, ok := lookup("API_HASH"); ok && strings.TrimSpace(v) != "" {
		c.Telegram.APIHash = strings.TrimSpace(v)
	}
	if v, ok := lookup("MAX_FILE_SIZE"); ok && strings.TrimSpace(v) != "" {
		mb, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("MAX_FILE_SIZE must be an integer megabyte count: %w", err)
		}
		c.Limits.MaxFileSizeMB = mb
	}
	if v, ok := lookup("LOG_LEVEL"); ok && strings.TrimSpace(v) != "" {
		c.Logging.Level = strings.TrimSpace(v)
	}
	return nil
}
