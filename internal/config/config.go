// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/validation"
)

// Config holds the daemon settings. The forwarding document (upstream,
// filter, endpoints) is not part of it; see Document.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	LogStore   LogStoreConfig   `koanf:"logstore"`
	Forwarding ForwardingConfig `koanf:"forwarding"`
	Policy     PolicyConfig     `koanf:"policy"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
}

// ServerConfig holds control API settings.
type ServerConfig struct {
	Host              string        `koanf:"host" validate:"omitempty,hostname_rfc1123|ip"`
	Port              int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout       time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout      time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout       time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"min=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	// StatusInterval is how often the live feed pushes a status snapshot.
	StatusInterval time.Duration `koanf:"status_interval" validate:"gt=0"`
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`

	// File is the append-only daemon log. Empty disables the file.
	File string `koanf:"file"`
}

// LogStoreConfig holds recent-log store settings.
type LogStoreConfig struct {
	Path       string        `koanf:"path"`
	InMemory   bool          `koanf:"in_memory"`
	Retention  time.Duration `koanf:"retention" validate:"gt=0"`
	MaxEntries int           `koanf:"max_entries" validate:"min=1,max=10000"`
}

// ForwardingConfig locates the forwarding document.
type ForwardingConfig struct {
	Document string `koanf:"document" validate:"required"`

	// Autostart starts the forwarder when the daemon boots.
	Autostart bool `koanf:"autostart"`

	// FrameBuffer bounds the reader to dispatcher channel.
	FrameBuffer int `koanf:"frame_buffer" validate:"min=1"`

	// MaxBackups caps the number of document backups kept. 0 keeps all.
	MaxBackups int `koanf:"max_backups" validate:"min=0"`
}

// PolicyConfig holds the retry and timing policy.
type PolicyConfig struct {
	Publisher PublisherPolicy `koanf:"publisher"`
	Upstream  UpstreamPolicy  `koanf:"upstream"`
}

// PublisherPolicy controls endpoint connection behaviour.
type PublisherPolicy struct {
	RetryDelay     time.Duration `koanf:"retry_delay" validate:"gt=0"`
	BackoffDelay   time.Duration `koanf:"backoff_delay" validate:"gtfield=RetryDelay"`
	MaxAttempts    uint32        `koanf:"max_attempts" validate:"min=1"`
	ConnectTimeout time.Duration `koanf:"connect_timeout" validate:"gt=0"`
	WriteTimeout   time.Duration `koanf:"write_timeout" validate:"gt=0"`
	QueueSize      int           `koanf:"queue_size" validate:"min=1"`
}

// UpstreamPolicy controls the upstream reconnect loop.
type UpstreamPolicy struct {
	MinDelay       time.Duration `koanf:"min_delay" validate:"gt=0"`
	MaxDelay       time.Duration `koanf:"max_delay" validate:"gtefield=MinDelay"`
	ConnectTimeout time.Duration `koanf:"connect_timeout" validate:"gt=0"`
	IdleTimeout    time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	MaxFrameBytes  int           `koanf:"max_frame_bytes" validate:"min=82"`
}

// SupervisorConfig tunes the suture trees.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold" validate:"gt=0"`
	FailureDecay     float64       `koanf:"failure_decay" validate:"gt=0"`
	FailureBackoff   time.Duration `koanf:"failure_backoff" validate:"gt=0"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// Validate checks the daemon settings.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return fmt.Errorf("%w: %s", ErrConfigurationInvalid, verr.Error())
	}
	return nil
}
