package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Database != "iso27001_db" {
		t.Errorf("Database.Database = %q", cfg.Database.Database)
	}
	if !cfg.Database.ShouldMigrate() {
		t.Error("ShouldMigrate() = false, want true by default")
	}
	if cfg.Scheduler.LockTTL != 5*time.Minute {
		t.Errorf("Scheduler.LockTTL = %v", cfg.Scheduler.LockTTL)
	}
}

func TestLoad_ExpandsEnvAndParsesJobs(t *testing.T) {
	t.Setenv("SLACK_HOOK", "https://hooks.example.com/x")
	path := writeConfig(t, `
server:
  port: 9000
database:
  migrate_on_start: false
notifications:
  slack:
    enabled: true
    webhook_url: ${SLACK_HOOK}
scheduler:
  enabled: true
  lock_ttl: 2m
  jobs:
    - name: weekly-digest
      type: overdue_digest
      schedule: "0 8 * * MON"
      options:
        include_risks: "true"
    - name: snapshot
      type: soa_snapshot
      schedule: "@daily"
      enabled: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Database.ShouldMigrate() {
		t.Error("ShouldMigrate() = true, want false")
	}
	if got := cfg.Notifications.Slack.WebhookURL; got != "https://hooks.example.com/x" {
		t.Errorf("WebhookURL = %q", got)
	}
	if cfg.Scheduler.LockTTL != 2*time.Minute {
		t.Errorf("LockTTL = %v", cfg.Scheduler.LockTTL)
	}
	if len(cfg.Scheduler.Jobs) != 2 {
		t.Fatalf("len(Jobs) = %d, want 2", len(cfg.Scheduler.Jobs))
	}
	if !cfg.Scheduler.Jobs[0].IsEnabled() || cfg.Scheduler.Jobs[1].IsEnabled() {
		t.Error("job enabled flags not honoured")
	}
	if cfg.Scheduler.Jobs[0].Options["include_risks"] != "true" {
		t.Errorf("Options = %v", cfg.Scheduler.Jobs[0].Options)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_NAME", "isms")
	path := writeConfig(t, "server:\n  port: 9000\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070", cfg.Server.Port)
	}
	want := "host=db port=5432 user=iso27001 password=iso27001_password dbname=isms sslmode=disable"
	if got := cfg.Database.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Run("bad yaml", func(t *testing.T) {
		if _, err := Load(writeConfig(t, "server: [")); err == nil {
			t.Error("expected parse error")
		}
	})
	t.Run("bad PORT", func(t *testing.T) {
		t.Setenv("PORT", "eighty")
		if _, err := Load(writeConfig(t, "")); err == nil {
			t.Error("expected PORT error")
		}
	})
}
