package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
}

// Telegram contains the chat platform credentials and transport settings.
type Telegram struct {
	BotToken    string `toml:"bot_token"`
	APIID       int64  `toml:"api_id"`
	APIHash     string `toml:"api_hash"`
	BaseURL     string `toml:"base_url"`
	PollTimeout int    `toml:"poll_timeout"`
}

// Limits contains media intake limits.
type Limits struct {
	MaxFileSizeMB int `toml:"max_file_size_mb"`
	// MaxClipSeconds bounds the requested clip duration before a run
	// starts. Zero disables the check.
	MaxClipSeconds int `toml:"max_clip_seconds"`
}

// Trim contains transcoder invocation settings.
type Trim struct {
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Workspaces contains staging hygiene settings.
type Workspaces struct {
	// StaleAfterHours controls the startup sweep of leftover workspace
	// directories from crashed runs.
	StaleAfterHours int `toml:"stale_after_hours"`
}

// Config encapsulates all configuration values for clipd.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Telegram   Telegram   `toml:"telegram"`
	Limits     Limits     `toml:"limits"`
	Trim       Trim       `toml:"trim"`
	Logging    Logging    `toml:"logging"`
	Workspaces Workspaces `toml:"workspaces"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/clipd/config.toml")
}

// Load locates and parses a configuration file, layers environment
// overrides on top, then normalizes and validates the result. The spec'd
// env options always win over file values: BOT_TOKEN, API_ID, API_HASH,
// MAX_FILE_SIZE (megabytes), LOG_LEVEL.
func Load(path string) (*Config, string, bool, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an injectable environment lookup for tests.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (*Config, string, bool, error) {
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

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, "", false, err
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

	projectPath, err := filepath.Abs("clipd.toml")
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

// EnsureDirectories creates the directories the daemon needs at runtime.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// MaxFileSizeBytes returns the media intake ceiling in bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.Limits.MaxFileSizeMB) * 1024 * 1024
}

// TrimTimeout returns the transcoder wall-clock bound.
func (c *Config) TrimTimeout() time.Duration {
	return time.Duration(c.Trim.TimeoutSeconds) * time.Second
}

// WorkspaceStaleAge returns the cutoff for the startup workspace sweep.
func (c *Config) WorkspaceStaleAge() time.Duration {
	return time.Duration(c.Workspaces.StaleAfterHours) * time.Hour
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
