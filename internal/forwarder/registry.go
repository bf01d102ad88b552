// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

package forwarder

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/config"
	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/metrics"
)

// Document returns a copy of the current forwarding document.
func (d *Daemon) Document() *config.Document {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.doc.Clone()
}

// UpdateConfiguration replaces the filter and the endpoint list, keeping
// the upstream section. Endpoints without an ID get one.
func (d *Daemon) UpdateConfiguration(ctx context.Context, f config.FilterConfig, endpoints []config.EndpointConfig) error {
	_, err := d.apply(ctx, func(doc *config.Document) error {
		doc.Filter = f
		doc.Endpoints = append([]config.EndpointConfig(nil), endpoints...)
		return nil
	})
	return err
}

// DocumentPatch is a partial document. Nil sections keep their current
// values; a non-nil empty Endpoints removes every endpoint.
type DocumentPatch struct {
	Upstream  *config.UpstreamConfig
	Filter    *config.FilterConfig
	Endpoints []config.EndpointConfig
}

// PatchDocument merges p into the current document under the lifecycle
// lock and applies the result.
func (d *Daemon) PatchDocument(ctx context.Context, p DocumentPatch) (*config.Document, error) {
	return d.apply(ctx, func(doc *config.Document) error {
		if p.Upstream != nil {
			doc.Upstream = *p.Upstream
		}
		if p.Filter != nil {
			doc.Filter = *p.Filter
			doc.Filter.AllowList = append([]string(nil), p.Filter.AllowList...)
		}
		if p.Endpoints != nil {
			doc.Endpoints = append([]config.EndpointConfig{}, p.Endpoints...)
		}
		return nil
	})
}

// AddEndpoint appends ep and returns it with its assigned ID.
func (d *Daemon) AddEndpoint(ctx context.Context, ep config.EndpointConfig) (config.EndpointConfig, error) {
	ep.ID = uuid.New().String()
	doc, err := d.apply(ctx, func(doc *config.Document) error {
		doc.Endpoints = append(doc.Endpoints, ep)
		return nil
	})
	if err != nil {
		return config.EndpointConfig{}, err
	}
	saved, _, _ := doc.Endpoint(ep.ID)
	return saved, nil
}

// EndpointPatch edits one endpoint. A nil Enabled keeps the current flag.
type EndpointPatch struct {
	Name    string
	Host    string
	Port    int
	Enabled *bool
}

// PatchEndpoint applies p to the endpoint with id, reading its current
// enabled flag under the lifecycle lock.
func (d *Daemon) PatchEndpoint(ctx context.Context, id string, p EndpointPatch) (config.EndpointConfig, error) {
	doc, err := d.apply(ctx, func(doc *config.Document) error {
		current, i, ok := doc.Endpoint(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrEndpointNotFound, id)
		}
		enabled := current.Enabled
		if p.Enabled != nil {
			enabled = *p.Enabled
		}
		doc.Endpoints[i] = config.EndpointConfig{
			ID:      id,
			Name:    p.Name,
			Host:    p.Host,
			Port:    p.Port,
			Enabled: enabled,
		}
		return nil
	})
	if err != nil {
		return config.EndpointConfig{}, err
	}
	saved, _, _ := doc.Endpoint(id)
	return saved, nil
}

// DeleteEndpoint removes the endpoint with id. Its connection is closed by
// the restart that follows when the daemon is running.
func (d *Daemon) DeleteEndpoint(ctx context.Context, id string) error {
	_, err := d.apply(ctx, func(doc *config.Document) error {
		_, i, ok := doc.Endpoint(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrEndpointNotFound, id)
		}
		doc.Endpoints = append(doc.Endpoints[:i], doc.Endpoints[i+1:]...)
		return nil
	})
	return err
}

// ToggleEndpoint flips the enabled flag of the endpoint with id.
func (d *Daemon) ToggleEndpoint(ctx context.Context, id string) (config.EndpointConfig, error) {
	doc, err := d.apply(ctx, func(doc *config.Document) error {
		_, i, ok := doc.Endpoint(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrEndpointNotFound, id)
		}
		doc.Endpoints[i].Enabled = !doc.Endpoints[i].Enabled
		return nil
	})
	if err != nil {
		return config.EndpointConfig{}, err
	}
	saved, _, _ := doc.Endpoint(id)
	return saved, nil
}

// apply edits a copy of the document, validates and persists it, and then
// restarts the daemon if it was running. A rejected edit leaves both the
// file and the running configuration untouched.
func (d *Daemon) apply(ctx context.Context, mutate func(*config.Document) error) (*config.Document, error) {
	d.lifecycle.Lock()
	defer d.lifecycle.Unlock()

	d.mu.RLock()
	prev := d.doc
	d.mu.RUnlock()

	next := prev.Clone()
	if err := mutate(next); err != nil {
		metrics.ConfigUpdates.WithLabelValues("rejected").Inc()
		return nil, err
	}
	for i := range next.Endpoints {
		if next.Endpoints[i].ID == "" {
			next.Endpoints[i].ID = uuid.New().String()
		}
	}
	next.Normalize()
	if err := next.Validate(); err != nil {
		metrics.ConfigUpdates.WithLabelValues("rejected").Inc()
		d.logger.Warn().Err(err).Msg("configuration update rejected")
		return nil, err
	}

	if err := d.opts.Store.Save(next); err != nil {
		metrics.ConfigUpdates.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to persist forwarding document: %w", err)
	}

	d.mu.Lock()
	d.doc = next
	d.mu.Unlock()
	metrics.ConfigUpdates.WithLabelValues("applied").Inc()
	d.logger.Info().
		Str("filter", next.Filter.Mode).
		Int("endpoints", len(next.Endpoints)).
		Msg("configuration updated")

	var restartErr error
	if d.Running() {
		d.stopLocked()
		if err := d.startLocked(ctx); err != nil {
			restartErr = fmt.Errorf("configuration saved but restart failed: %w", err)
		}
	}

	// After the restart, so a stopping publisher cannot recreate the series.
	for _, ep := range prev.Endpoints {
		if _, _, ok := next.Endpoint(ep.ID); !ok {
			metrics.ForgetEndpoint(ep.ID)
		}
	}
	return next.Clone(), restartErr
}
