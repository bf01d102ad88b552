// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

// Package publisher delivers frames to one TCP endpoint.
//
// Each Publisher owns one goroutine (its Serve loop) and one socket. It is
// fed through Offer, which never blocks: when the queue is full the oldest
// frame is evicted. Connection attempts go through a circuit breaker, so
// after MaxAttempts consecutive failed connects the endpoint reports
// StateError and waits BackoffDelay instead of RetryDelay.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/logging"
	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/metrics"
)

// ErrEndpointUnreachable means a connect attempt failed.
var ErrEndpointUnreachable = errors.New("endpoint unreachable")

// State is the connection state of an endpoint.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateError        State = "error"
)

// Ordinal is the numeric value exported as a metric.
func (s State) Ordinal() int {
	switch s {
	case StateConnecting:
		return 1
	case StateConnected:
		return 2
	case StateError:
		return 3
	default:
		return 0
	}
}

// Endpoint identifies the destination.
type Endpoint struct {
	ID   string
	Name string
	Host string
	Port int
}

// Address returns host:port.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Policy is the retry and timing policy of one publisher.
type Policy struct {
	RetryDelay     time.Duration
	BackoffDelay   time.Duration
	MaxAttempts    uint32
	ConnectTimeout time.Duration
	WriteTimeout   time.Duration
	QueueSize      int
}

// Dialer opens TCP connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Status is a copy of a publisher's state.
type Status struct {
	ID             string     `json:"id"`
	State          State      `json:"state"`
	LastError      string     `json:"last_error,omitempty"`
	Retries        uint32     `json:"retries"`
	Forwarded      uint64     `json:"forwarded"`
	Dropped        uint64     `json:"dropped"`
	Queued         int        `json:"queued"`
	ConnectedSince *time.Time `json:"connected_since,omitempty"`
	NextAttempt    *time.Time `json:"next_attempt,omitempty"`
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithDialer replaces the default net.Dialer.
func WithDialer(d Dialer) Option {
	return func(p *Publisher) { p.dialer = d }
}

// Publisher forwards queued frames to one endpoint.
type Publisher struct {
	endpoint Endpoint
	policy   Policy
	dialer   Dialer
	breaker  *gobreaker.CircuitBreaker[net.Conn]
	queue    *queue
	logger   zerolog.Logger

	forwarded atomic.Uint64
	dropped   atomic.Uint64

	mu     sync.Mutex
	status Status
}

// New returns a Publisher in StateDisconnected. Call Serve to run it.
func New(ep Endpoint, policy Policy, opts ...Option) *Publisher {
	if policy.MaxAttempts == 0 {
		policy.MaxAttempts = 3
	}
	p := &Publisher{
		endpoint: ep,
		policy:   policy,
		dialer:   &net.Dialer{KeepAlive: 30 * time.Second},
		queue:    newQueue(policy.QueueSize),
		logger: logging.With().
			Str("component", "publisher").
			Str("endpoint", ep.ID).
			Str("address", ep.Address()).
			Logger(),
		status: Status{ID: ep.ID, State: StateDisconnected},
	}
	for _, opt := range opts {
		opt(p)
	}

	p.breaker = gobreaker.NewCircuitBreaker[net.Conn](gobreaker.Settings{
		Name:        ep.ID,
		MaxRequests: 1,
		Timeout:     policy.BackoffDelay,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= p.policy.MaxAttempts
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			p.logger.Info().Str("from", from.String()).Str("to", to.String()).Msg("endpoint breaker state change")
		},
	})

	metrics.SetEndpointState(ep.ID, StateDisconnected.Ordinal())
	return p
}

// String implements fmt.Stringer; suture uses it to name the service.
func (p *Publisher) String() string {
	return "publisher-" + p.endpoint.ID
}

// Endpoint returns the destination.
func (p *Publisher) Endpoint() Endpoint { return p.endpoint }

// Offer queues frame for delivery without blocking. frame must not be
// modified afterwards.
func (p *Publisher) Offer(frame []byte) {
	if n := p.queue.push(frame); n > 0 {
		p.dropped.Add(uint64(n))
		metrics.FramesDropped.WithLabelValues(p.endpoint.ID).Add(float64(n))
	}
}

// Status returns a snapshot. It never blocks on I/O.
func (p *Publisher) Status() Status {
	p.mu.Lock()
	s := p.status
	p.mu.Unlock()

	s.Forwarded = p.forwarded.Load()
	s.Dropped = p.dropped.Load()
	s.Queued = p.queue.len()
	if s.ConnectedSince != nil {
		t := *s.ConnectedSince
		s.ConnectedSince = &t
	}
	if s.NextAttempt != nil {
		t := *s.NextAttempt
		s.NextAttempt = &t
	}
	return s
}

// Serve connects, writes and reconnects until ctx is done. It implements
// suture.Service and returns ctx.Err().
func (p *Publisher) Serve(ctx context.Context) error {
	defer p.update(func(s *Status) {
		s.State = StateDisconnected
		s.ConnectedSince = nil
		s.NextAttempt = nil
	})

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		p.update(func(s *Status) {
			s.State = StateConnecting
			s.NextAttempt = nil
		})

		conn, err := p.connect(ctx)
		if err == nil {
			err = p.deliver(ctx, conn)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		wait := p.fail(err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (p *Publisher) connect(ctx context.Context) (net.Conn, error) {
	conn, err := p.breaker.Execute(func() (net.Conn, error) {
		dialCtx, cancel := context.WithTimeout(ctx, p.policy.ConnectTimeout)
		defer cancel()
		conn, err := p.dialer.DialContext(dialCtx, "tcp", p.endpoint.Address())
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrEndpointUnreachable, p.endpoint.Address(), err)
		}
		return conn, nil
	})
	switch {
	case err == nil:
		metrics.RecordEndpointConnect(p.endpoint.ID, "success")
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordEndpointConnect(p.endpoint.ID, "rejected")
	default:
		metrics.RecordEndpointConnect(p.endpoint.ID, "failure")
	}
	return conn, err
}

// deliver writes queued frames to conn until a write fails, the peer
// closes, or ctx ends. It closes conn and waits for its reader before
// returning.
func (p *Publisher) deliver(ctx context.Context, conn net.Conn) error {
	// Frames queued while disconnected are stale.
	if n := p.queue.drain(); n > 0 {
		p.dropped.Add(uint64(n))
		metrics.FramesDropped.WithLabelValues(p.endpoint.ID).Add(float64(n))
	}

	now := time.Now()
	p.update(func(s *Status) {
		s.State = StateConnected
		s.Retries = 0
		s.LastError = ""
		s.ConnectedSince = &now
	})
	p.logger.Info().Msg("endpoint connected")

	var readErr error
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		// Endpoints never send; this only notices the peer going away.
		_, readErr = io.Copy(io.Discard, conn)
		if readErr == nil {
			readErr = io.EOF
		}
	}()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer func() {
		stop()
		_ = conn.Close()
		<-readDone
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-readDone:
			return fmt.Errorf("peer closed connection: %w", readErr)
		case frame := <-p.queue.ch:
			if err := conn.SetWriteDeadline(time.Now().Add(p.policy.WriteTimeout)); err != nil {
				return fmt.Errorf("set write deadline: %w", err)
			}
			if _, err := conn.Write(frame); err != nil {
				return fmt.Errorf("write: %w", err)
			}
			p.forwarded.Add(1)
			metrics.FramesForwarded.WithLabelValues(p.endpoint.ID).Inc()
		}
	}
}

// fail records err and returns how long to wait before the next attempt.
func (p *Publisher) fail(err error) time.Duration {
	wait := p.policy.RetryDelay
	state := StateDisconnected
	if p.breaker.State() == gobreaker.StateOpen {
		state = StateError
		wait = p.policy.BackoffDelay
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		// Rejected without dialing; keep the previous error text.
		state = StateError
		wait = p.policy.RetryDelay
		err = nil
	}

	next := time.Now().Add(wait)
	var retries uint32
	p.update(func(s *Status) {
		s.State = state
		s.ConnectedSince = nil
		s.NextAttempt = &next
		if err != nil {
			s.Retries++
			s.LastError = err.Error()
		}
		retries = s.Retries
	})

	event := p.logger.Warn()
	if state == StateError {
		event = p.logger.Error()
	}
	event.Err(err).Uint32("retries", retries).Dur("retry_in", wait).Str("state", string(state)).Msg("endpoint unavailable")
	return wait
}

func (p *Publisher) update(fn func(*Status)) {
	p.mu.Lock()
	fn(&p.status)
	state := p.status.State
	p.mu.Unlock()
	metrics.SetEndpointState(p.endpoint.ID, state.Ordinal())
}
