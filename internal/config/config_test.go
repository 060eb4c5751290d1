package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SLACK_WEBHOOK_URL", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Storage.Driver != "json" {
		t.Errorf("Storage.Driver = %q, want json", cfg.Storage.Driver)
	}
	if cfg.Storage.JSON.Path != "./github_events.json" {
		t.Errorf("Storage.JSON.Path = %q", cfg.Storage.JSON.Path)
	}
	if cfg.Notify.Timeout != 10*time.Second {
		t.Errorf("Notify.Timeout = %v, want 10s", cfg.Notify.Timeout)
	}
	if cfg.Notify.MaxAttempts != 1 {
		t.Errorf("Notify.MaxAttempts = %d, want 1", cfg.Notify.MaxAttempts)
	}
	if cfg.Notify.SlackWebhookURL != "" {
		t.Errorf("Notify.SlackWebhookURL = %q, want empty", cfg.Notify.SlackWebhookURL)
	}
	if cfg.Webhook.Secret != "" {
		t.Errorf("Webhook.Secret = %q, want empty", cfg.Webhook.Secret)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cimonitor.yaml")
	yaml := `
server:
  port: 9090
storage:
  driver: sqlite
  sqlite:
    path: /tmp/events.db
notify:
  timeout: 3s
  retry_schedule: ["1s", "2s"]
logging:
  format: console
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.slack.com/services/T/B/X")
	t.Setenv("CIMONITOR_SERVER_PORT", "7070")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want env override 7070", cfg.Server.Port)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.SQLite.Path != "/tmp/events.db" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Notify.Timeout != 3*time.Second {
		t.Errorf("Notify.Timeout = %v, want 3s", cfg.Notify.Timeout)
	}
	if len(cfg.Notify.RetrySchedule) != 2 || cfg.Notify.RetrySchedule[1] != 2*time.Second {
		t.Errorf("Notify.RetrySchedule = %v", cfg.Notify.RetrySchedule)
	}
	if cfg.Notify.SlackWebhookURL != "https://hooks.slack.com/services/T/B/X" {
		t.Errorf("Notify.SlackWebhookURL = %q", cfg.Notify.SlackWebhookURL)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format = %q", cfg.Logging.Format)
	}
}
