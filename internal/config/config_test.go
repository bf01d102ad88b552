// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Policy.Publisher.RetryDelay != 5*time.Second {
		t.Errorf("RetryDelay = %v, want 5s", cfg.Policy.Publisher.RetryDelay)
	}
	if cfg.Policy.Publisher.BackoffDelay != 60*time.Second {
		t.Errorf("BackoffDelay = %v, want 60s", cfg.Policy.Publisher.BackoffDelay)
	}
	if cfg.Policy.Publisher.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.Policy.Publisher.MaxAttempts)
	}
	if cfg.Policy.Publisher.QueueSize != 1024 {
		t.Errorf("QueueSize = %d, want 1024", cfg.Policy.Publisher.QueueSize)
	}
	if cfg.Policy.Upstream.MinDelay != time.Second || cfg.Policy.Upstream.MaxDelay != 30*time.Second {
		t.Errorf("upstream delays = %v..%v, want 1s..30s",
			cfg.Policy.Upstream.MinDelay, cfg.Policy.Upstream.MaxDelay)
	}
	if cfg.LogStore.Retention != 72*time.Hour {
		t.Errorf("LogStore.Retention = %v, want 72h", cfg.LogStore.Retention)
	}
	if cfg.LogStore.MaxEntries != 200 {
		t.Errorf("LogStore.MaxEntries = %d, want 200", cfg.LogStore.MaxEntries)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom("")
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Forwarding.Document != "forwarding.yaml" {
		t.Errorf("Forwarding.Document = %q", cfg.Forwarding.Document)
	}
	if !cfg.Forwarding.Autostart {
		t.Error("Autostart should default to true")
	}
}

func TestLoadFrom_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relayd.yaml")
	yaml := `
server:
  port: 9000
  host: 127.0.0.1
logging:
  level: warn
policy:
  publisher:
    retry_delay: 2s
    backoff_delay: 20s
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("RELAYD_HTTP_PORT", "9090")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("RELAYD_CORS_ORIGINS", "http://pi.local, http://10.0.0.2")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("env should override file: port = %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format = %q, want console", cfg.Logging.Format)
	}
	if cfg.Policy.Publisher.RetryDelay != 2*time.Second {
		t.Errorf("RetryDelay = %v, want 2s", cfg.Policy.Publisher.RetryDelay)
	}
	if cfg.Policy.Publisher.MaxAttempts != 3 {
		t.Errorf("unset keys keep defaults: MaxAttempts = %d", cfg.Policy.Publisher.MaxAttempts)
	}
	want := []string{"http://pi.local", "http://10.0.0.2"}
	if !reflect.DeepEqual(cfg.Server.CORSOrigins, want) {
		t.Errorf("CORSOrigins = %v, want %v", cfg.Server.CORSOrigins, want)
	}
	if cfg.Server.Addr() != "127.0.0.1:9090" {
		t.Errorf("Addr() = %q", cfg.Server.Addr())
	}
}

func TestLoadFrom_BackoffMustExceedRetry(t *testing.T) {
	t.Setenv("RELAYD_RETRY_DELAY", "10s")
	t.Setenv("RELAYD_BACKOFF_DELAY", "5s")

	_, err := LoadFrom("")
	if !errors.Is(err, ErrConfigurationInvalid) {
		t.Fatalf("err = %v, want ErrConfigurationInvalid", err)
	}
}

func TestLoadFrom_MissingFile(t *testing.T) {
	if _, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for unreadable config file")
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := map[string]string{
		"RELAYD_HTTP_PORT":   "server.port",
		"LOG_LEVEL":          "logging.level",
		"RELAYD_QUEUE_SIZE":  "policy.publisher.queue_size",
		"RELAYD_DOCUMENT":    "forwarding.document",
		"HOME":               "",
		"RELAYD_NOT_A_THING": "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}
