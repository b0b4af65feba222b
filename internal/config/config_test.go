package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func envMap(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func validEnv() map[string]string {
	return map[string]string{
		"BOT_TOKEN": "123:abc",
		"API_ID":    "4242",
		"API_HASH":  "deadbeef",
	}
}

func TestLoadDefaultsWithEnvCredentials(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.toml")
	cfg, _, exists, err := LoadWithEnv(missing, envMap(validEnv()))
	if err != nil {
		t.Fatalf("LoadWithEnv: %v", err)
	}
	if exists {
		t.Fatal("config file should not exist")
	}
	if cfg.Telegram.BotToken != "123:abc" || cfg.Telegram.APIID != 4242 {
		t.Fatalf("env credentials not applied: %+v", cfg.Telegram)
	}
	if cfg.Limits.MaxFileSizeMB != defaultMaxFileSizeMB {
		t.Fatalf("max file size default = %d", cfg.Limits.MaxFileSizeMB)
	}
	if cfg.TrimTimeout() != 300*time.Second {
		t.Fatalf("trim timeout default = %v", cfg.TrimTimeout())
	}
	if cfg.MaxFileSizeBytes() != int64(defaultMaxFileSizeMB)*1024*1024 {
		t.Fatalf("MaxFileSizeBytes = %d", cfg.MaxFileSizeBytes())
	}
}

func TestLoadMissingCredentialsFatal(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.toml")
	_, _, _, err := LoadWithEnv(missing, envMap(nil))
	if err == nil {
		t.Fatal("expected error without credentials")
	}
	if !strings.Contains(err.Error(), "BOT_TOKEN") {
		t.Fatalf("error should point at the missing env var: %v", err)
	}
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clipd.toml")
	body := `
[telegram]
bot_token = "file-token"
api_id = 1
api_hash = "file-hash"

[limits]
max_file_size_mb = 500

[logging]
level = "debug"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	env := map[string]string{
		"MAX_FILE_SIZE": "100",
		"LOG_LEVEL":     "warn",
	}
	cfg, resolved, exists, err := LoadWithEnv(path, envMap(env))
	if err != nil {
		t.Fatalf("LoadWithEnv: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved=%q exists=%v", resolved, exists)
	}
	if cfg.Telegram.BotToken != "file-token" {
		t.Fatalf("file token not read: %q", cfg.Telegram.BotToken)
	}
	if cfg.Limits.MaxFileSizeMB != 100 {
		t.Fatalf("MAX_FILE_SIZE should override file, got %d", cfg.Limits.MaxFileSizeMB)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("LOG_LEVEL should override file, got %q", cfg.Logging.Level)
	}
}

func TestLoadRejectsBadAPIID(t *testing.T) {
	env := validEnv()
	env["API_ID"] = "not-a-number"
	missing := filepath.Join(t.TempDir(), "absent.toml")
	if _, _, _, err := LoadWithEnv(missing, envMap(env)); err == nil {
		t.Fatal("expected error for non-numeric API_ID")
	}
}

func TestLoadRejectsBadLogFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clipd.toml")
	if err := os.WriteFile(path, []byte("[logging]\nformat = \"xml\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := LoadWithEnv(path, envMap(validEnv())); err == nil {
		t.Fatal("expected error for unknown log format")
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := Default()
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StagingDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[telegram]") {
		t.Fatalf("sample config missing telegram section")
	}
}
