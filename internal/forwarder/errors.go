// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

package forwarder

import (
	"errors"

	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/config"
	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/filter"
	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/publisher"
	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/upstream"
)

var (
	// ErrAlreadyRunning is returned by Start on a running daemon.
	ErrAlreadyRunning = errors.New("forwarder already running")

	// ErrNotRunning is reported by callers that require a running daemon.
	// Stop itself is idempotent and never returns it.
	ErrNotRunning = errors.New("forwarder not running")

	// ErrEndpointNotFound is returned for an unknown endpoint ID.
	ErrEndpointNotFound = errors.New("endpoint not found")
)

// Errors owned by other packages, re-exported so callers of the daemon
// need a single import for errors.Is checks.
var (
	ErrConfigurationInvalid = config.ErrConfigurationInvalid
	ErrUpstreamUnavailable  = upstream.ErrUpstreamUnavailable
	ErrUpstreamClosed       = upstream.ErrUpstreamClosed
	ErrUpstreamTimeout      = upstream.ErrUpstreamTimeout
	ErrEndpointUnreachable  = publisher.ErrEndpointUnreachable
	ErrMalformedFrame       = filter.ErrMalformedFrame
)
