// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

package api

import (
	"net/http"
	"strings"

	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/logging"
	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/logstore"
	ws "github.com/JLBMaritime/AIS-WiFi-Manager/internal/websocket"
)

// logLevels are the accepted values of the level query parameter.
var logLevels = map[string]bool{
	"": true, "all": true, "trace": true, "debug": true, "info": true,
	"warn": true, "warning": true, "error": true, "fatal": true, "panic": true,
}

// LogsResponse is the data of GET /api/v1/logs.
type LogsResponse struct {
	Entries []logstore.Entry `json:"entries"`
	Count   int              `json:"count"`
	Level   string           `json:"level"`
}

// GetLogs returns recent log entries, oldest first.
//
// Query parameters:
//   - count: number of entries (default 100, capped at the store maximum)
//   - level: exact level to keep, or "all"
func (h *Handler) GetLogs(w http.ResponseWriter, r *http.Request) {
	if h.logs == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Log store unavailable", nil)
		return
	}

	level := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("level")))
	if !logLevels[level] {
		respondErrorDetails(w, http.StatusBadRequest, &APIError{
			Code:    "VALIDATION_ERROR",
			Message: "level must be one of all, trace, debug, info, warn, error, fatal, panic",
			Details: map[string]any{"level": sanitizeLogValue(level)},
		}, nil)
		return
	}
	if level == "" {
		level = "all"
	}

	entries, err := h.logs.Recent(getIntParam(r, "count", logstore.DefaultCount), level)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read log entries", err)
		return
	}
	respondData(w, r, http.StatusOK, LogsResponse{Entries: entries, Count: len(entries), Level: level})
}

// ClearLogs drops every stored log entry. The log file is not touched.
func (h *Handler) ClearLogs(w http.ResponseWriter, r *http.Request) {
	if h.logs == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Log store unavailable", nil)
		return
	}
	if err := h.logs.Clear(); err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to clear log entries", err)
		return
	}
	logging.Info().Str("request_id", logging.RequestIDFromContext(r.Context())).Msg("recent log store cleared")
	respondData(w, r, http.StatusOK, map[string]bool{"cleared": true})
}

// WebSocket upgrades the request and registers the connection with the
// live feed hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		logging.Warn().Msg("WebSocket connection rejected: hub not initialized")
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "WebSocket service unavailable", nil)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error().Err(err).Msg("WebSocket upgrade error")
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	h.wsHub.Register <- client
	client.Start()
}
