package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	return &Config{
		Port:              "8081",
		SQLiteDBPath:      dir + "/maon.db",
		AMQPExchange:      "maon",
		AMQPQueue:         "export_jobs",
		ExportDir:         dir + "/exports",
		PhotoFetchTimeout: 30 * time.Second,
		UploadDir:         dir + "/uploads",
		UploadTTL:         15 * time.Minute,
		SweepEvery:        time.Minute,
	}
}

func TestValidateOK(t *testing.T) {
	if err := validConfig(t).Validate(); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
}

func TestValidateErrors(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		message string
	}{
		{"non-numeric port", func(c *Config) { c.Port = "web" }, "invalid port"},
		{"port out of range", func(c *Config) { c.Port = "70000" }, "invalid port"},
		{"empty db path", func(c *Config) { c.SQLiteDBPath = "" }, "SQLite database path"},
		{"bad amqp scheme", func(c *Config) { c.AMQPURL = "http://broker" }, "AMQP URL scheme"},
		{"amqp without queue", func(c *Config) { c.AMQPURL = "amqp://broker"; c.AMQPQueue = "" }, "queue name"},
		{"empty export dir", func(c *Config) { c.ExportDir = "" }, "export directory"},
		{"empty upload dir", func(c *Config) { c.UploadDir = "" }, "upload directory"},
		{"fetch timeout too short", func(c *Config) { c.PhotoFetchTimeout = 100 * time.Millisecond }, "photo fetch timeout"},
		{"fetch timeout too long", func(c *Config) { c.PhotoFetchTimeout = 10 * time.Minute }, "photo fetch timeout"},
		{"upload ttl too short", func(c *Config) { c.UploadTTL = time.Second }, "upload TTL"},
		{"sweep interval too short", func(c *Config) { c.SweepEvery = 10 * time.Millisecond }, "sweep interval"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig(t)
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.message) {
				t.Fatalf("error %q does not mention %q", err, tc.message)
			}
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := validConfig(t)
	cfg.Port = "web"
	cfg.ExportDir = ""
	cfg.UploadDir = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"invalid port", "export directory", "upload directory"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err, want)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "AMQP_EXCHANGE", "AMQP_QUEUE", "PHOTO_FETCH_TIMEOUT", "UPLOAD_TTL"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8081" {
		t.Fatalf("port = %q", cfg.Port)
	}
	if cfg.AMQPExchange != "maon" || cfg.AMQPQueue != "export_jobs" {
		t.Fatalf("amqp defaults = %q/%q", cfg.AMQPExchange, cfg.AMQPQueue)
	}
	if cfg.PhotoFetchTimeout != 30*time.Second {
		t.Fatalf("fetch timeout = %v", cfg.PhotoFetchTimeout)
	}
	if cfg.UploadTTL != 15*time.Minute {
		t.Fatalf("upload ttl = %v", cfg.UploadTTL)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("PHOTO_FETCH_TIMEOUT", "45s")
	t.Setenv("UPLOAD_TTL", "not-a-duration")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("port = %q", cfg.Port)
	}
	if cfg.PhotoFetchTimeout != 45*time.Second {
		t.Fatalf("fetch timeout = %v", cfg.PhotoFetchTimeout)
	}
	// unparseable durations fall back to the default
	if cfg.UploadTTL != 15*time.Minute {
		t.Fatalf("upload ttl = %v", cfg.UploadTTL)
	}
}
