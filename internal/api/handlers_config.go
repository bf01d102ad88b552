// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/config"
	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/forwarder"
)

// ConfigUpdateRequest is the body of PUT /api/v1/config. Omitted sections
// keep their current values; an explicit empty endpoints list removes every
// endpoint.
type ConfigUpdateRequest struct {
	Upstream  *config.UpstreamConfig  `json:"upstream,omitempty"`
	Filter    *config.FilterConfig    `json:"filter,omitempty"`
	Endpoints []config.EndpointConfig `json:"endpoints"`
}

// EndpointRequest is the body of endpoint create and update. Enabled
// defaults to true on create and to the current value on update.
type EndpointRequest struct {
	Name    string `json:"name"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
	Enabled *bool  `json:"enabled,omitempty"`
}

// ProbeRequest is the body of POST /api/v1/endpoints/test.
type ProbeRequest struct {
	Host string `koanf:"host" json:"host" validate:"required,hostname_rfc1123|ip"`
	Port int    `koanf:"port" json:"port" validate:"min=1,max=65535"`
}

// GetConfig returns the current forwarding document.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	respondData(w, r, http.StatusOK, h.forwarder.Document())
}

// UpdateConfig validates and persists a new filter and endpoint set, and an
// upstream when given, restarting the forwarder if it is running.
func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req ConfigUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	doc, err := h.forwarder.PatchDocument(r.Context(), forwarder.DocumentPatch{
		Upstream:  req.Upstream,
		Filter:    req.Filter,
		Endpoints: req.Endpoints,
	})
	if err != nil {
		respondDaemonError(w, err)
		return
	}
	respondData(w, r, http.StatusOK, doc)
}

// ListEndpoints returns every configured endpoint with its live state.
func (h *Handler) ListEndpoints(w http.ResponseWriter, r *http.Request) {
	respondData(w, r, http.StatusOK, h.forwarder.Status().Endpoints)
}

// CreateEndpoint adds an endpoint with a generated ID.
func (h *Handler) CreateEndpoint(w http.ResponseWriter, r *http.Request) {
	var req EndpointRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	ep, err := h.forwarder.AddEndpoint(r.Context(), config.EndpointConfig{
		Name:    req.Name,
		Host:    req.Host,
		Port:    req.Port,
		Enabled: enabled,
	})
	if err != nil {
		respondDaemonError(w, err)
		return
	}
	respondData(w, r, http.StatusCreated, ep)
}

// UpdateEndpoint replaces the endpoint named by the {id} URL parameter.
func (h *Handler) UpdateEndpoint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req EndpointRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ep, err := h.forwarder.PatchEndpoint(r.Context(), id, forwarder.EndpointPatch{
		Name:    req.Name,
		Host:    req.Host,
		Port:    req.Port,
		Enabled: req.Enabled,
	})
	if err != nil {
		respondDaemonError(w, err)
		return
	}
	respondData(w, r, http.StatusOK, ep)
}

// DeleteEndpoint removes the endpoint named by the {id} URL parameter.
func (h *Handler) DeleteEndpoint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.forwarder.DeleteEndpoint(r.Context(), id); err != nil {
		respondDaemonError(w, err)
		return
	}
	respondData(w, r, http.StatusOK, map[string]string{"id": id})
}

// ToggleEndpoint flips the enabled flag of the endpoint named by {id}.
func (h *Handler) ToggleEndpoint(w http.ResponseWriter, r *http.Request) {
	ep, err := h.forwarder.ToggleEndpoint(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDaemonError(w, err)
		return
	}
	respondData(w, r, http.StatusOK, ep)
}

// TestEndpoint probes host:port with one TCP connect. An unreachable
// endpoint is a successful probe with reachable=false.
func (h *Handler) TestEndpoint(w http.ResponseWriter, r *http.Request) {
	var req ProbeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondErrorDetails(w, http.StatusBadRequest, apiErr, nil)
		return
	}
	respondData(w, r, http.StatusOK, h.forwarder.TestEndpoint(r.Context(), req.Host, req.Port))
}
