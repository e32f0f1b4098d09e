package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123456:ABC-token"
database:
  path: "/tmp/bot.db"
poll:
  default_interval_sec: 600
server:
  addr: ":9090"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Telegram.Token != "123456:ABC-token" {
		t.Errorf("token = %q", cfg.Telegram.Token)
	}
	if cfg.Database.Path != "/tmp/bot.db" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
	if cfg.Poll.DefaultIntervalSec != 600 {
		t.Errorf("default interval = %d, want 600", cfg.Poll.DefaultIntervalSec)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("server addr = %q", cfg.Server.Addr)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123456:ABC-token"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Poll.DefaultIntervalSec != 900 {
		t.Errorf("default interval = %d, want 900", cfg.Poll.DefaultIntervalSec)
	}
	if cfg.Poll.RetryCount != 3 {
		t.Errorf("retry count = %d, want 3", cfg.Poll.RetryCount)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("server addr = %q, want :8080", cfg.Server.Addr)
	}
	if !cfg.Server.Enabled {
		t.Error("server should be enabled by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("log level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadMissingToken(t *testing.T) {
	path := writeConfig(t, `
database:
  path: "/tmp/bot.db"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for missing token")
	}
	if !strings.Contains(err.Error(), "token") {
		t.Errorf("error should mention token, got: %v", err)
	}
}

func TestLoadBadTokenFormat(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "not-a-valid-token"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for malformed token")
	}
}

func TestLoadTokenFromEnv(t *testing.T) {
	t.Setenv("AOCBOT_TELEGRAM_TOKEN", "987654:ENV-token")

	path := writeConfig(t, `
database:
  path: "/tmp/bot.db"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Telegram.Token != "987654:ENV-token" {
		t.Errorf("token = %q, want env value", cfg.Telegram.Token)
	}
}

func TestValidateIntervals(t *testing.T) {
	cfg := &Config{
		Telegram: TelegramConfig{Token: "1:a"},
		Poll:     PollConfig{DefaultIntervalSec: 0, MinIntervalSec: 900},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero default interval")
	}

	cfg.Poll.DefaultIntervalSec = 900
	cfg.Poll.MinIntervalSec = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero min interval")
	}
}
