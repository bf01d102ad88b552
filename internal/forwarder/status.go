// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

package forwarder

import (
	"time"

	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/publisher"
	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/upstream"
)

// StateDisabled is reported for endpoints with enabled=false. No publisher
// exists for them.
const StateDisabled publisher.State = "disabled"

// Status is a point-in-time view of the daemon.
type Status struct {
	Running       bool             `json:"running"`
	StartedAt     *time.Time       `json:"started_at,omitempty"`
	UptimeSeconds float64          `json:"uptime_seconds"`
	Upstream      UpstreamStatus   `json:"upstream"`
	Filter        FilterStatus     `json:"filter"`
	Frames        FrameCounters    `json:"frames"`
	Endpoints     []EndpointStatus `json:"endpoints"`
}

// UpstreamStatus is the reader state plus the configured source.
type UpstreamStatus struct {
	upstream.Status
	Kind   string `json:"kind"`
	Format string `json:"format"`
}

// FilterStatus describes the active filter.
type FilterStatus struct {
	Mode          string `json:"mode"`
	AllowListSize int    `json:"allow_list_size"`
}

// EndpointStatus is one configured endpoint and its connection state.
type EndpointStatus struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Host           string          `json:"host"`
	Port           int             `json:"port"`
	Enabled        bool            `json:"enabled"`
	State          publisher.State `json:"state"`
	LastError      string          `json:"last_error,omitempty"`
	Retries        uint32          `json:"retries"`
	Forwarded      uint64          `json:"forwarded"`
	Dropped        uint64          `json:"dropped"`
	Queued         int             `json:"queued"`
	ConnectedSince *time.Time      `json:"connected_since,omitempty"`
	NextAttempt    *time.Time      `json:"next_attempt,omitempty"`
}

// Status returns cached state only; it never touches the network. Endpoints
// are listed in document order, disabled ones included.
func (d *Daemon) Status() Status {
	d.mu.RLock()
	doc := d.doc
	r := d.run
	d.mu.RUnlock()

	st := Status{
		Upstream: UpstreamStatus{
			Status: upstream.Status{
				State:  upstream.StateDisconnected,
				Source: d.source(doc.Upstream).String(),
			},
			Kind:   doc.Upstream.Kind,
			Format: doc.Upstream.Format,
		},
		Filter: FilterStatus{
			Mode:          doc.Filter.Mode,
			AllowListSize: len(doc.Filter.AllowList),
		},
		Endpoints: make([]EndpointStatus, 0, len(doc.Endpoints)),
	}

	if r != nil {
		started := r.started
		st.Running = true
		st.StartedAt = &started
		st.UptimeSeconds = time.Since(started).Seconds()
		st.Upstream.Status = r.reader.Status()
		st.Frames = r.dispatcher.counters()
	}

	for _, ep := range doc.Endpoints {
		es := EndpointStatus{
			ID:      ep.ID,
			Name:    ep.Name,
			Host:    ep.Host,
			Port:    ep.Port,
			Enabled: ep.Enabled,
			State:   publisher.StateDisconnected,
		}
		if !ep.Enabled {
			es.State = StateDisabled
		}
		if r != nil {
			if p, ok := r.publishers[ep.ID]; ok {
				ps := p.Status()
				es.State = ps.State
				es.LastError = ps.LastError
				es.Retries = ps.Retries
				es.Forwarded = ps.Forwarded
				es.Dropped = ps.Dropped
				es.Queued = ps.Queued
				es.ConnectedSince = ps.ConnectedSince
				es.NextAttempt = ps.NextAttempt
			}
		}
		st.Endpoints = append(st.Endpoints, es)
	}
	return st
}
