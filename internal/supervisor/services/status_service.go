// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

package services

import (
	"context"
	"time"
)

// StatusPublisher is satisfied by *websocket.Hub.
type StatusPublisher interface {
	ClientCount() int
	BroadcastStatus(status any)
}

// StatusBroadcastService pushes a status snapshot to dashboard clients on
// a fixed interval. Ticks with no connected client are skipped.
type StatusBroadcastService struct {
	hub      StatusPublisher
	snapshot func() any
	interval time.Duration
	name     string
}

// NewStatusBroadcastService calls snapshot every interval (default 2s).
func NewStatusBroadcastService(hub StatusPublisher, snapshot func() any, interval time.Duration) *StatusBroadcastService {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &StatusBroadcastService{
		hub:      hub,
		snapshot: snapshot,
		interval: interval,
		name:     "status-broadcaster",
	}
}

// Serve ticks until ctx is canceled.
func (s *StatusBroadcastService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if s.hub.ClientCount() == 0 {
				continue
			}
			s.hub.BroadcastStatus(s.snapshot())
		}
	}
}

func (s *StatusBroadcastService) String() string {
	return s.name
}
