// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

package api

import (
	"net/http"
	"time"
)

// HealthLive reports that the process is serving requests.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, r, http.StatusOK, map[string]any{
		"status":         "alive",
		"uptime_seconds": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady reports whether the API can serve its routes. A stopped
// forwarder is still ready; it can be started through the API.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.forwarder == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Forwarder not initialized", nil)
		return
	}
	respondData(w, r, http.StatusOK, map[string]any{
		"status":            "ready",
		"forwarder_running": h.forwarder.Running(),
		"log_store":         h.logs != nil,
		"websocket_clients": h.clientCount(),
	})
}

func (h *Handler) clientCount() int {
	if h.wsHub == nil {
		return 0
	}
	return h.wsHub.ClientCount()
}

// Status returns the daemon status snapshot. It never touches the network.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	respondData(w, r, http.StatusOK, h.forwarder.Status())
}

// StartForwarder starts forwarding with the persisted document.
func (h *Handler) StartForwarder(w http.ResponseWriter, r *http.Request) {
	if err := h.forwarder.Start(r.Context()); err != nil {
		respondDaemonError(w, err)
		return
	}
	respondData(w, r, http.StatusOK, h.forwarder.Status())
}

// StopForwarder stops forwarding. Stopping a stopped forwarder answers 409
// and changes nothing.
func (h *Handler) StopForwarder(w http.ResponseWriter, r *http.Request) {
	if !h.forwarder.Running() {
		respondError(w, http.StatusConflict, "NOT_RUNNING", "Forwarder is not running", nil)
		return
	}
	if err := h.forwarder.Stop(); err != nil {
		respondDaemonError(w, err)
		return
	}
	respondData(w, r, http.StatusOK, h.forwarder.Status())
}

// RestartForwarder stops the current run, if any, and starts a new one.
func (h *Handler) RestartForwarder(w http.ResponseWriter, r *http.Request) {
	if err := h.forwarder.Restart(r.Context()); err != nil {
		respondDaemonError(w, err)
		return
	}
	respondData(w, r, http.StatusOK, h.forwarder.Status())
}
