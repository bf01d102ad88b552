// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where the daemon config file is searched, in order.
var DefaultConfigPaths = []string{
	"relayd.yaml",
	"relayd.yml",
	"/etc/relayd/relayd.yaml",
	"/etc/relayd/relayd.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "RELAYD_CONFIG"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 120,
			RateLimitWindow:   time.Minute,
			StatusInterval:    2 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			File:   "relayd.log",
		},
		LogStore: LogStoreConfig{
			Path:       "data/logstore",
			Retention:  72 * time.Hour,
			MaxEntries: 200,
		},
		Forwarding: ForwardingConfig{
			Document:    "forwarding.yaml",
			Autostart:   true,
			FrameBuffer: 256,
			MaxBackups:  20,
		},
		Policy: PolicyConfig{
			Publisher: PublisherPolicy{
				RetryDelay:     5 * time.Second,
				BackoffDelay:   60 * time.Second,
				MaxAttempts:    3,
				ConnectTimeout: 5 * time.Second,
				WriteTimeout:   5 * time.Second,
				QueueSize:      1024,
			},
			Upstream: UpstreamPolicy{
				MinDelay:       time.Second,
				MaxDelay:       30 * time.Second,
				ConnectTimeout: 10 * time.Second,
				IdleTimeout:    5 * time.Minute,
				MaxFrameBytes:  4096,
			},
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// Load builds the daemon Config from three layers: struct defaults, the
// optional YAML file, then environment variables.
func Load() (*Config, error) {
	return LoadFrom(findConfigFile())
}

// LoadFrom is Load with an explicit config file path. An empty path skips
// the file layer.
func LoadFrom(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// RELAYD_HTTP_PORT -> server.port, LOG_LEVEL -> logging.level
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are keys whose env values are comma-separated lists.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"relayd_http_host":           "server.host",
	"relayd_http_port":           "server.port",
	"relayd_http_read_timeout":   "server.read_timeout",
	"relayd_http_write_timeout":  "server.write_timeout",
	"relayd_cors_origins":        "server.cors_origins",
	"relayd_rate_limit_requests": "server.rate_limit_requests",
	"relayd_rate_limit_window":   "server.rate_limit_window",
	"relayd_disable_rate_limit":  "server.rate_limit_disabled",
	"relayd_status_interval":     "server.status_interval",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
	"log_file":   "logging.file",

	"relayd_logstore_path":        "logstore.path",
	"relayd_logstore_in_memory":   "logstore.in_memory",
	"relayd_logstore_retention":   "logstore.retention",
	"relayd_logstore_max_entries": "logstore.max_entries",

	"relayd_document":     "forwarding.document",
	"relayd_autostart":    "forwarding.autostart",
	"relayd_frame_buffer": "forwarding.frame_buffer",
	"relayd_max_backups":  "forwarding.max_backups",

	"relayd_retry_delay":     "policy.publisher.retry_delay",
	"relayd_backoff_delay":   "policy.publisher.backoff_delay",
	"relayd_max_attempts":    "policy.publisher.max_attempts",
	"relayd_connect_timeout": "policy.publisher.connect_timeout",
	"relayd_write_timeout":   "policy.publisher.write_timeout",
	"relayd_queue_size":      "policy.publisher.queue_size",

	"relayd_upstream_min_delay":       "policy.upstream.min_delay",
	"relayd_upstream_max_delay":       "policy.upstream.max_delay",
	"relayd_upstream_connect_timeout": "policy.upstream.connect_timeout",
	"relayd_upstream_idle_timeout":    "policy.upstream.idle_timeout",

	"relayd_shutdown_timeout": "supervisor.shutdown_timeout",
}

// envTransformFunc maps known environment variables to koanf paths and
// drops everything else.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
