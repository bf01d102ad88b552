// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

// Package upstream keeps one connection to the frame source open and turns
// its byte stream into lines.
package upstream

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/logging"
	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/metrics"
)

var (
	// ErrUpstreamUnavailable means the source could not be opened.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrUpstreamClosed means an open source ended or failed mid-stream.
	ErrUpstreamClosed = errors.New("upstream closed")
	// ErrUpstreamTimeout means no bytes arrived within the idle timeout.
	ErrUpstreamTimeout = errors.New("upstream idle timeout")
)

// Upstream states.
const (
	StateDisconnected = "disconnected"
	StateConnecting   = "connecting"
	StateConnected    = "connected"
)

// Options tunes a Reader.
type Options struct {
	MinDelay      time.Duration
	MaxDelay      time.Duration
	IdleTimeout   time.Duration
	MaxFrameBytes int
}

// Status is a copy of the reader's state.
type Status struct {
	State          string     `json:"state"`
	Source         string     `json:"source"`
	LastError      string     `json:"last_error,omitempty"`
	Reconnects     uint64     `json:"reconnects"`
	Frames         uint64     `json:"frames"`
	ConnectedSince *time.Time `json:"connected_since,omitempty"`
}

// Reader reads newline-delimited frames from a Source, reconnecting with
// exponential backoff for as long as its context lives.
type Reader struct {
	src    Source
	opts   Options
	logger zerolog.Logger

	mu     sync.Mutex
	status Status
}

// NewReader returns a Reader for src.
func NewReader(src Source, opts Options) *Reader {
	if opts.MinDelay <= 0 {
		opts.MinDelay = time.Second
	}
	if opts.MaxDelay < opts.MinDelay {
		opts.MaxDelay = opts.MinDelay
	}
	if opts.MaxFrameBytes <= 0 {
		opts.MaxFrameBytes = 4096
	}
	return &Reader{
		src:    src,
		opts:   opts,
		logger: logging.WithComponent("upstream"),
		status: Status{State: StateDisconnected, Source: src.String()},
	}
}

// Status returns a snapshot. It never blocks on I/O.
func (r *Reader) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.status
	if s.ConnectedSince != nil {
		t := *s.ConnectedSince
		s.ConnectedSince = &t
	}
	return s
}

// Run connects and sends every line on out until ctx is done. Lines are
// fresh slices without terminators. Run returns ctx.Err().
func (r *Reader) Run(ctx context.Context, out chan<- []byte) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.opts.MinDelay
	b.MaxInterval = r.opts.MaxDelay
	b.MaxElapsedTime = 0
	b.RandomizationFactor = 0
	b.Reset()

	defer r.setDisconnected("")

	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt > 0 {
			metrics.UpstreamReconnects.Inc()
			r.mu.Lock()
			r.status.Reconnects++
			r.mu.Unlock()
		}

		err := r.session(ctx, out, b)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay := b.NextBackOff()
		r.logger.Warn().Err(err).Str("source", r.src.String()).Dur("retry_in", delay).Msg("upstream lost")
		r.setDisconnected(err.Error())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// session runs one connection. It always returns a non-nil error.
func (r *Reader) session(ctx context.Context, out chan<- []byte, b backoff.BackOff) error {
	r.setState(StateConnecting)
	r.logger.Info().Str("source", r.src.String()).Msg("connecting to upstream")

	conn, err := r.src.Open(ctx)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("unavailable").Inc()
		return fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, r.src.String(), err)
	}
	b.Reset()

	var timedOut atomic.Bool
	var once sync.Once
	closeConn := func() { once.Do(func() { _ = conn.Close() }) }
	defer closeConn()

	stop := context.AfterFunc(ctx, closeConn)
	defer stop()

	var idle *time.Timer
	if r.opts.IdleTimeout > 0 {
		idle = time.AfterFunc(r.opts.IdleTimeout, func() {
			timedOut.Store(true)
			closeConn()
		})
		defer idle.Stop()
	}

	now := time.Now()
	r.mu.Lock()
	r.status.State = StateConnected
	r.status.LastError = ""
	r.status.ConnectedSince = &now
	r.mu.Unlock()
	metrics.SetUpstreamConnected(true)
	r.logger.Info().Str("source", r.src.String()).Msg("upstream connected")

	br := bufio.NewReaderSize(conn, r.opts.MaxFrameBytes)
	oversize := false
	for {
		chunk, err := br.ReadSlice('\n')
		if len(chunk) > 0 && idle != nil {
			idle.Reset(r.opts.IdleTimeout)
		}

		switch {
		case err == nil:
			if oversize {
				oversize = false
				continue
			}
			if line := bytes.TrimRight(chunk, "\r\n"); len(line) > 0 {
				frame := append([]byte(nil), line...)
				select {
				case out <- frame:
					metrics.FramesReceived.Inc()
					r.mu.Lock()
					r.status.Frames++
					r.mu.Unlock()
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		case errors.Is(err, bufio.ErrBufferFull):
			if !oversize {
				r.logger.Warn().Int("limit", r.opts.MaxFrameBytes).Msg("discarding oversize upstream line")
			}
			oversize = true
		default:
			metrics.SetUpstreamConnected(false)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if timedOut.Load() {
				metrics.UpstreamErrors.WithLabelValues("timeout").Inc()
				return fmt.Errorf("%w: no data for %s", ErrUpstreamTimeout, r.opts.IdleTimeout)
			}
			metrics.UpstreamErrors.WithLabelValues("closed").Inc()
			return fmt.Errorf("%w: %v", ErrUpstreamClosed, err)
		}
	}
}

func (r *Reader) setState(state string) {
	r.mu.Lock()
	r.status.State = state
	r.mu.Unlock()
}

func (r *Reader) setDisconnected(lastErr string) {
	metrics.SetUpstreamConnected(false)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.State = StateDisconnected
	r.status.ConnectedSince = nil
	if lastErr != "" {
		r.status.LastError = lastErr
	}
}
