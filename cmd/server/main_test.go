package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseFlags_ConfigPathFromDotEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	os.Unsetenv("CONFIG_PATH")

	envFile := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envFile, []byte("CONFIG_PATH=/etc/isms/tracker.yaml\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := loadDotEnv(envFile); err != nil {
		t.Fatalf("loadDotEnv() error = %v", err)
	}

	opts, err := parseFlags(nil)
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	if opts.configPath != "/etc/isms/tracker.yaml" {
		t.Errorf("configPath = %q, want the .env value", opts.configPath)
	}

	opts, err = parseFlags([]string{"-config", "local.yaml", "-run-job", "weekly-digest"})
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	if opts.configPath != "local.yaml" || opts.runJob != "weekly-digest" {
		t.Errorf("opts = %+v", opts)
	}
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	if err := loadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("loadDotEnv() error = %v, want nil for a missing file", err)
	}
}

func TestParseFlags_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")

	opts, err := parseFlags(nil)
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	if opts.configPath != "config.yaml" || opts.runJob != "" || opts.showVersion {
		t.Errorf("opts = %+v", opts)
	}
}
