// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

package forwarder

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/filter"
	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/logging"
	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/metrics"
)

// malformedLogInterval bounds malformed-frame warnings to one per interval;
// the rest are counted and reported with the next warning.
const malformedLogInterval = 10 * time.Second

// FrameCounters count frames seen by the dispatcher in the current run.
type FrameCounters struct {
	Received  uint64 `json:"received"`
	Malformed uint64 `json:"malformed"`
	Filtered  uint64 `json:"filtered"`
	Accepted  uint64 `json:"accepted"`
}

// offerer is the publisher side of the fan-out.
type offerer interface {
	Offer(frame []byte)
}

// dispatcher moves lines from the reader to every publisher. It is the only
// goroutine touching the decoder, so multi-sentence NMEA state needs no lock.
type dispatcher struct {
	in      <-chan []byte
	decoder filter.Decoder
	filter  *filter.Filter
	targets []offerer
	limiter *rate.Limiter
	logger  zerolog.Logger

	received   atomic.Uint64
	malformed  atomic.Uint64
	filtered   atomic.Uint64
	accepted   atomic.Uint64
	suppressed uint64
}

func newDispatcher(in <-chan []byte, dec filter.Decoder, f *filter.Filter, targets []offerer) *dispatcher {
	return &dispatcher{
		in:      in,
		decoder: dec,
		filter:  f,
		targets: targets,
		limiter: rate.NewLimiter(rate.Every(malformedLogInterval), 1),
		logger:  logging.WithComponent("dispatcher"),
	}
}

// Serve implements suture.Service.
func (d *dispatcher) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line := <-d.in:
			d.dispatch(line)
		}
	}
}

func (d *dispatcher) String() string { return "dispatcher" }

func (d *dispatcher) dispatch(line []byte) {
	d.received.Add(1)

	frame, complete, err := d.decoder.Decode(line)
	if err != nil {
		d.malformed.Add(1)
		metrics.FramesMalformed.Inc()
		d.warnMalformed(line, err)
		return
	}
	if !complete {
		return
	}
	if !d.filter.Accepts(frame.ID) {
		d.filtered.Add(1)
		metrics.FramesFiltered.Inc()
		return
	}

	d.accepted.Add(1)
	for _, t := range d.targets {
		t.Offer(frame.Data)
	}
}

func (d *dispatcher) warnMalformed(line []byte, err error) {
	if !d.limiter.Allow() {
		d.suppressed++
		return
	}
	const maxShown = 96
	shown := line
	if len(shown) > maxShown {
		shown = shown[:maxShown]
	}
	d.logger.Warn().
		Err(err).
		Bytes("line", shown).
		Uint64("suppressed", d.suppressed).
		Msg("dropping malformed frame")
	d.suppressed = 0
}

func (d *dispatcher) counters() FrameCounters {
	return FrameCounters{
		Received:  d.received.Load(),
		Malformed: d.malformed.Load(),
		Filtered:  d.filtered.Load(),
		Accepted:  d.accepted.Load(),
	}
}
