// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/config"
	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/forwarder"
	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/logstore"
	ws "github.com/JLBMaritime/AIS-WiFi-Manager/internal/websocket"
)

// Forwarder is the daemon surface the API drives. *forwarder.Daemon
// implements it.
type Forwarder interface {
	Running() bool
	Start(ctx context.Context) error
	Stop() error
	Restart(ctx context.Context) error
	Status() forwarder.Status
	Document() *config.Document
	PatchDocument(ctx context.Context, p forwarder.DocumentPatch) (*config.Document, error)
	AddEndpoint(ctx context.Context, ep config.EndpointConfig) (config.EndpointConfig, error)
	PatchEndpoint(ctx context.Context, id string, p forwarder.EndpointPatch) (config.EndpointConfig, error)
	DeleteEndpoint(ctx context.Context, id string) error
	ToggleEndpoint(ctx context.Context, id string) (config.EndpointConfig, error)
	TestEndpoint(ctx context.Context, host string, port int) forwarder.ProbeResult
}

// LogReader serves the recent-log view. *logstore.Store implements it.
type LogReader interface {
	Recent(count int, level string) ([]logstore.Entry, error)
	Clear() error
}

// Handler holds the dependencies of every route.
type Handler struct {
	forwarder   Forwarder
	logs        LogReader
	wsHub       *ws.Hub
	corsOrigins []string
	startTime   time.Time
}

// NewHandler creates a Handler. logs and hub may be nil; their routes then
// answer 503 SERVICE_UNAVAILABLE.
func NewHandler(f Forwarder, logs LogReader, hub *ws.Hub, server config.ServerConfig) *Handler {
	return &Handler{
		forwarder:   f,
		logs:        logs,
		wsHub:       hub,
		corsOrigins: server.CORSOrigins,
		startTime:   time.Now(),
	}
}

// respondDaemonError maps forwarder errors onto status codes.
func respondDaemonError(w http.ResponseWriter, err error) {
	switch {
	case respondConfigurationError(w, err):
	case errors.Is(err, config.ErrConfigurationInvalid):
		respondError(w, http.StatusBadRequest, "CONFIGURATION_INVALID", err.Error(), err)
	case errors.Is(err, forwarder.ErrAlreadyRunning):
		respondError(w, http.StatusConflict, "ALREADY_RUNNING", "Forwarder is already running", err)
	case errors.Is(err, forwarder.ErrNotRunning):
		respondError(w, http.StatusConflict, "NOT_RUNNING", "Forwarder is not running", err)
	case errors.Is(err, forwarder.ErrEndpointNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found", err)
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", err)
	}
}

// getUpgrader returns a websocket upgrader that accepts same-origin requests
// and the configured CORS origins.
func (h *Handler) getUpgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
				return true
			}
			for _, allowed := range h.corsOrigins {
				if allowed == "*" || strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}
