// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

// Package forwarder wires the upstream reader, the filter and the endpoint
// publishers together and owns their lifecycle.
//
// A Daemon is created once by main and shared with the control API. Each
// Start builds a fresh run from the forwarding document:
//
//	upstream.Reader ──chan──▶ dispatcher ──Offer──▶ publisher (one per enabled endpoint)
//
// and runs every part as a service of a per-run suture supervisor. Stop
// cancels the run and waits until every goroutine has returned and every
// socket is closed, so a following Start never overlaps the previous run.
//
// Configuration changes never patch a live run: they are validated,
// persisted and then applied with a full restart.
package forwarder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/config"
	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/filter"
	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/logging"
	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/metrics"
	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/publisher"
	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/supervisor"
	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/upstream"
)

// Options configures a Daemon.
type Options struct {
	// Store holds the forwarding document. Required.
	Store *config.DocumentStore

	Publisher   config.PublisherPolicy
	Upstream    config.UpstreamPolicy
	FrameBuffer int
	Supervisor  supervisor.TreeConfig

	// Logger receives per-run supervisor events.
	// Default: logging.NewSlogLogger()
	Logger *slog.Logger

	// Dialer replaces the publishers' net.Dialer.
	Dialer publisher.Dialer

	// NewSource replaces the upstream source built from the document.
	NewSource func(config.UpstreamConfig) upstream.Source
}

// Daemon is the forwarding coordinator handle.
type Daemon struct {
	opts   Options
	logger zerolog.Logger

	// lifecycle serializes Start, Stop, Restart and configuration updates.
	lifecycle sync.Mutex

	// mu guards the fields below for Status readers.
	mu  sync.RWMutex
	doc *config.Document
	run *run
}

// run is one Start..Stop cycle.
type run struct {
	cancel     context.CancelFunc
	done       <-chan error
	sup        *suture.Supervisor
	started    time.Time
	doc        *config.Document
	reader     *upstream.Reader
	dispatcher *dispatcher
	publishers map[string]*publisher.Publisher
}

// New returns a stopped Daemon. It reads the document once so Status can
// list endpoints before the first Start. An invalid document is logged and
// replaced in memory by the defaults; Start will refuse to run until it is
// fixed.
func New(opts Options) (*Daemon, error) {
	if opts.Store == nil {
		return nil, errors.New("forwarder: document store is required")
	}
	if opts.FrameBuffer <= 0 {
		opts.FrameBuffer = 256
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewSlogLogger()
	}

	d := &Daemon{
		opts:   opts,
		logger: logging.WithComponent("forwarder"),
	}

	doc, err := opts.Store.Load()
	switch {
	case errors.Is(err, config.ErrConfigurationInvalid):
		d.logger.Error().Err(err).Str("document", opts.Store.Path()).Msg("forwarding document is invalid")
		doc = config.DefaultDocument()
	case err != nil:
		return nil, err
	}
	d.doc = doc
	metrics.SetForwarderRunning(false)
	return d, nil
}

// Running reports whether a run is active.
func (d *Daemon) Running() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.run != nil
}

// Start reads the forwarding document and starts forwarding. The run is
// detached from ctx cancellation; only Stop ends it.
func (d *Daemon) Start(ctx context.Context) error {
	d.lifecycle.Lock()
	defer d.lifecycle.Unlock()
	return d.startLocked(ctx)
}

// Stop ends the current run and waits for it to wind down. Stopping a
// stopped daemon is a no-op.
func (d *Daemon) Stop() error {
	d.lifecycle.Lock()
	defer d.lifecycle.Unlock()
	d.stopLocked()
	return nil
}

// Restart stops the current run, if any, and starts a new one.
func (d *Daemon) Restart(ctx context.Context) error {
	d.lifecycle.Lock()
	defer d.lifecycle.Unlock()
	d.stopLocked()
	return d.startLocked(ctx)
}

func (d *Daemon) startLocked(ctx context.Context) error {
	if d.Running() {
		return ErrAlreadyRunning
	}

	doc, err := d.opts.Store.Load()
	if err != nil {
		return fmt.Errorf("failed to load forwarding document: %w", err)
	}

	r, err := d.build(doc)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel
	r.started = time.Now()
	r.done = r.sup.ServeBackground(runCtx)

	d.mu.Lock()
	d.doc = doc
	d.run = r
	d.mu.Unlock()
	metrics.SetForwarderRunning(true)

	d.logger.Info().
		Str("upstream", r.reader.Status().Source).
		Str("format", doc.Upstream.Format).
		Str("filter", doc.Filter.Mode).
		Int("allow_list", len(doc.Filter.AllowList)).
		Int("endpoints", len(r.publishers)).
		Msg("forwarder started")
	return nil
}

func (d *Daemon) build(doc *config.Document) (*run, error) {
	dec, err := filter.NewDecoder(doc.Upstream.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigurationInvalid, err)
	}
	flt := filter.New(filter.Mode(doc.Filter.Mode), doc.Filter.AllowList)

	reader := upstream.NewReader(d.source(doc.Upstream), upstream.Options{
		MinDelay:      d.opts.Upstream.MinDelay,
		MaxDelay:      d.opts.Upstream.MaxDelay,
		IdleTimeout:   d.opts.Upstream.IdleTimeout,
		MaxFrameBytes: d.opts.Upstream.MaxFrameBytes,
	})

	var pubOpts []publisher.Option
	if d.opts.Dialer != nil {
		pubOpts = append(pubOpts, publisher.WithDialer(d.opts.Dialer))
	}
	policy := publisher.Policy{
		RetryDelay:     d.opts.Publisher.RetryDelay,
		BackoffDelay:   d.opts.Publisher.BackoffDelay,
		MaxAttempts:    d.opts.Publisher.MaxAttempts,
		ConnectTimeout: d.opts.Publisher.ConnectTimeout,
		WriteTimeout:   d.opts.Publisher.WriteTimeout,
		QueueSize:      d.opts.Publisher.QueueSize,
	}

	publishers := make(map[string]*publisher.Publisher)
	var ordered []*publisher.Publisher
	var targets []offerer
	for _, ep := range doc.Endpoints {
		if !ep.Enabled {
			continue
		}
		p := publisher.New(publisher.Endpoint{
			ID:   ep.ID,
			Name: ep.Name,
			Host: ep.Host,
			Port: ep.Port,
		}, policy, pubOpts...)
		publishers[ep.ID] = p
		ordered = append(ordered, p)
		targets = append(targets, p)
	}

	frames := make(chan []byte, d.opts.FrameBuffer)
	disp := newDispatcher(frames, dec, flt, targets)

	sup := supervisor.New("forwarder", d.opts.Logger, d.opts.Supervisor)
	sup.Add(&readerService{reader: reader, out: frames})
	sup.Add(disp)
	for _, p := range ordered {
		sup.Add(p)
	}

	return &run{
		sup:        sup,
		doc:        doc,
		reader:     reader,
		dispatcher: disp,
		publishers: publishers,
	}, nil
}

func (d *Daemon) source(u config.UpstreamConfig) upstream.Source {
	if d.opts.NewSource != nil {
		return d.opts.NewSource(u)
	}
	if u.Kind == config.UpstreamSerial {
		return upstream.SerialSource{Device: u.Device, Baud: u.Baud}
	}
	return upstream.TCPSource{
		Address: net.JoinHostPort(u.Host, strconv.Itoa(u.Port)),
		Timeout: d.opts.Upstream.ConnectTimeout,
	}
}

func (d *Daemon) stopLocked() {
	d.mu.RLock()
	r := d.run
	d.mu.RUnlock()
	if r == nil {
		return
	}

	r.cancel()
	if err := <-r.done; err != nil && !errors.Is(err, context.Canceled) {
		d.logger.Warn().Err(err).Msg("forwarder supervisor stopped with error")
	}
	if report, err := r.sup.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		for _, svc := range report {
			d.logger.Error().Str("service", svc.Name).Msg("service did not stop within the shutdown timeout")
		}
	}

	d.mu.Lock()
	d.run = nil
	d.mu.Unlock()
	metrics.SetForwarderRunning(false)

	d.logger.Info().Dur("uptime", time.Since(r.started)).Msg("forwarder stopped")
}

// readerService adapts upstream.Reader to suture.Service.
type readerService struct {
	reader *upstream.Reader
	out    chan<- []byte
}

func (s *readerService) Serve(ctx context.Context) error {
	return s.reader.Run(ctx, s.out)
}

func (s *readerService) String() string { return "upstream-reader" }
