// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

package services

import (
	"context"

	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/logging"
)

// Forwarder is satisfied by *forwarder.Daemon.
type Forwarder interface {
	Start(ctx context.Context) error
	Stop() error
}

// ForwarderService ties the forwarder's lifetime to the process. The
// forwarder runs its own per-run supervisor; this service only starts it
// at boot and guarantees Stop is called before the process exits.
type ForwarderService struct {
	forwarder Forwarder
	autostart bool
	name      string
}

// NewForwarderService wraps f. With autostart the forwarder is started as
// soon as the tree runs.
func NewForwarderService(f Forwarder, autostart bool) *ForwarderService {
	return &ForwarderService{
		forwarder: f,
		autostart: autostart,
		name:      "forwarder",
	}
}

// Serve starts the forwarder if requested and blocks until ctx is canceled.
// A failed autostart is logged, not returned: the operator can fix the
// document through the API and start it by hand.
func (s *ForwarderService) Serve(ctx context.Context) error {
	if s.autostart {
		if err := s.forwarder.Start(ctx); err != nil {
			logging.Error().Err(err).Msg("forwarder autostart failed")
		}
	}

	<-ctx.Done()

	if err := s.forwarder.Stop(); err != nil {
		logging.Error().Err(err).Msg("forwarder stop failed")
	}
	return ctx.Err()
}

func (s *ForwarderService) String() string {
	return s.name
}
