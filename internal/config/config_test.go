package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vidpulse.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadDefaultsWithSQLite(t *testing.T) {
	Reset()
	defer Reset()

	path := writeConfigFile(t, `
database:
  driver: sqlite
  path: /tmp/vidpulse-test.db
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Schedule.Cron != "0 * * * *" {
		t.Errorf("Expected hourly cron default, got %q", cfg.Schedule.Cron)
	}
	if cfg.Analysis.VideosPerQuery != 5 {
		t.Errorf("Expected videos_per_query 5, got %d", cfg.Analysis.VideosPerQuery)
	}
	if cfg.Analysis.Path != "/api/analyze" {
		t.Errorf("Expected analysis path '/api/analyze', got %q", cfg.Analysis.Path)
	}
	if cfg.Email.BaseURL != "https://api.brevo.com/v3" {
		t.Errorf("Expected default email base URL, got %q", cfg.Email.BaseURL)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("Expected read timeout 15s, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.App.ConfigFile != path {
		t.Errorf("Expected config file %q, got %q", path, cfg.App.ConfigFile)
	}
}

func TestLoadEnvironmentAliases(t *testing.T) {
	Reset()
	defer Reset()

	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/vidpulse?sslmode=disable")
	t.Setenv("APP_BASE_URL", "https://app.example.com/")
	t.Setenv("BREVO_API_KEY", "xkeysib-test")
	t.Setenv("SENDER_EMAIL", "reports@example.com")

	cfg, err := Load(writeConfigFile(t, "logging:\n  level: debug\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.DSN == "" {
		t.Error("Expected DSN from DATABASE_URL")
	}
	if cfg.Analysis.BaseURL != "https://app.example.com" {
		t.Errorf("Expected trailing slash trimmed, got %q", cfg.Analysis.BaseURL)
	}
	if cfg.Email.APIKey != "xkeysib-test" {
		t.Errorf("Expected email API key from BREVO_API_KEY, got %q", cfg.Email.APIKey)
	}
	if cfg.Email.FromAddress != "reports@example.com" {
		t.Errorf("Expected sender from SENDER_EMAIL, got %q", cfg.Email.FromAddress)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected logging level 'debug', got %q", cfg.Logging.Level)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "postgres without dsn",
			body:    "database:\n  driver: postgres\n",
			wantErr: "database DSN is required",
		},
		{
			name:    "unknown driver",
			body:    "database:\n  driver: mongo\n",
			wantErr: "Driver",
		},
		{
			name:    "bad duration",
			body:    "database:\n  driver: sqlite\nanalysis:\n  timeout: soon\n",
			wantErr: "invalid duration for analysis.timeout",
		},
		{
			name:    "bad cron expression",
			body:    "database:\n  driver: sqlite\nschedule:\n  cron: every hour\n",
			wantErr: "invalid schedule.cron",
		},
		{
			name:    "unknown email template",
			body:    "database:\n  driver: sqlite\nemail:\n  template: fancy\n",
			wantErr: "Template",
		},
		{
			name:    "api key without sender",
			body:    "database:\n  driver: sqlite\nemail:\n  api_key: abc\n",
			wantErr: "sender address is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Reset()
			defer Reset()
			t.Setenv("DATABASE_URL", "")
			t.Setenv("BREVO_API_KEY", "")

			_, err := Load(writeConfigFile(t, tt.body))
			if err == nil {
				t.Fatalf("Expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDuration(t *testing.T) {
	if got := Duration("", time.Minute); got != time.Minute {
		t.Errorf("Expected fallback for empty value, got %v", got)
	}
	if got := Duration("nope", time.Minute); got != time.Minute {
		t.Errorf("Expected fallback for invalid value, got %v", got)
	}
	if got := Duration("90s", time.Minute); got != 90*time.Second {
		t.Errorf("Expected 90s, got %v", got)
	}
}

func TestLoadNotificationWebhooks(t *testing.T) {
	Reset()
	defer Reset()

	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.slack.com/services/T0/B0/x")

	cfg, err := Load(writeConfigFile(t, "database:\n  driver: sqlite\nnotifications:\n  only_on_failure: true\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Notifications.SlackWebhookURL != "https://hooks.slack.com/services/T0/B0/x" {
		t.Errorf("Expected Slack webhook from SLACK_WEBHOOK_URL, got %q", cfg.Notifications.SlackWebhookURL)
	}
	if cfg.Notifications.DiscordWebhookURL != "" {
		t.Errorf("Expected no Discord webhook, got %q", cfg.Notifications.DiscordWebhookURL)
	}
	if !cfg.Notifications.OnlyOnFailure {
		t.Error("Expected only_on_failure from config file")
	}
}
