// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/validation"
)

// ErrConfigurationInvalid is returned, wrapped, for any rejected
// configuration. Use errors.As with *ConfigurationError for field reasons.
var ErrConfigurationInvalid = errors.New("configuration invalid")

// ConfigurationError carries the per-field reasons of a rejected document.
type ConfigurationError struct {
	Fields *validation.RequestValidationError
}

func (e *ConfigurationError) Error() string {
	return "configuration invalid: " + e.Fields.Error()
}

// Unwrap lets errors.Is match ErrConfigurationInvalid.
func (e *ConfigurationError) Unwrap() error { return ErrConfigurationInvalid }

// Upstream kinds.
const (
	UpstreamTCP    = "tcp"
	UpstreamSerial = "serial"
)

// Frame formats.
const (
	FormatSBS  = "sbs"
	FormatNMEA = "nmea"
	FormatRaw  = "raw"
)

// Filter modes.
const (
	FilterAll      = "all"
	FilterSpecific = "specific"
)

// Document is the persisted forwarding configuration.
type Document struct {
	Upstream  UpstreamConfig   `koanf:"upstream" json:"upstream"`
	Filter    FilterConfig     `koanf:"filter" json:"filter"`
	Endpoints []EndpointConfig `koanf:"endpoints" json:"endpoints" validate:"dive"`
}

// UpstreamConfig selects the single upstream source.
type UpstreamConfig struct {
	Kind   string `koanf:"kind" json:"kind" validate:"oneof=tcp serial"`
	Host   string `koanf:"host" json:"host" validate:"required_if=Kind tcp,omitempty,hostname_rfc1123|ip"`
	Port   int    `koanf:"port" json:"port" validate:"required_if=Kind tcp,omitempty,min=1,max=65535"`
	Device string `koanf:"device" json:"device" validate:"required_if=Kind serial"`
	Baud   int    `koanf:"baud" json:"baud" validate:"required_if=Kind serial,omitempty,min=1200"`
	Format string `koanf:"format" json:"format" validate:"oneof=sbs nmea raw"`
}

// FilterConfig is the allow-list filter. AllowList is ignored in mode all.
type FilterConfig struct {
	Mode      string   `koanf:"mode" json:"mode" validate:"oneof=all specific"`
	AllowList []string `koanf:"allow_list" json:"allow_list" validate:"dive,ident_hex,max=16"`
}

// EndpointConfig is one forwarding destination.
type EndpointConfig struct {
	ID      string `koanf:"id" json:"id"`
	Name    string `koanf:"name" json:"name" validate:"max=64"`
	Host    string `koanf:"host" json:"host" validate:"required,hostname_rfc1123|ip"`
	Port    int    `koanf:"port" json:"port" validate:"min=1,max=65535"`
	Enabled bool   `koanf:"enabled" json:"enabled"`
}

// DefaultDocument is written when no document exists yet: dump1090 SBS on
// localhost, no filtering, no endpoints.
func DefaultDocument() *Document {
	return &Document{
		Upstream: UpstreamConfig{
			Kind:   UpstreamTCP,
			Host:   "127.0.0.1",
			Port:   30003,
			Device: "/dev/serial0",
			Baud:   38400,
			Format: FormatSBS,
		},
		Filter:    FilterConfig{Mode: FilterAll},
		Endpoints: []EndpointConfig{},
	}
}

// mmsiDigits is the width AIS identifiers are compared at.
const mmsiDigits = 9

// Normalize uppercases allow-list identifiers and trims names. With nmea
// upstreams, short numeric MMSIs are zero-padded to nine digits.
func (d *Document) Normalize() {
	for i, id := range d.Filter.AllowList {
		id = strings.ToUpper(strings.TrimSpace(id))
		if d.Upstream.Format == FormatNMEA && len(id) < mmsiDigits && isDigits(id) {
			id = strings.Repeat("0", mmsiDigits-len(id)) + id
		}
		d.Filter.AllowList[i] = id
	}
	for i := range d.Endpoints {
		d.Endpoints[i].Name = strings.TrimSpace(d.Endpoints[i].Name)
		d.Endpoints[i].Host = strings.TrimSpace(d.Endpoints[i].Host)
	}
}

// Validate checks the document. It returns a *ConfigurationError.
func (d *Document) Validate() error {
	verr := validation.ValidateStruct(d)
	if verr == nil {
		verr = &validation.RequestValidationError{}
	}

	if d.Filter.Mode == FilterSpecific && len(d.Filter.AllowList) == 0 {
		verr.Append(validation.NewError("filter.allow_list", "required_if",
			"filter.allow_list must not be empty in specific mode"))
	}
	if d.Upstream.Format == FormatRaw && d.Filter.Mode != FilterAll {
		verr.Append(validation.NewError("filter.mode", "eq",
			"filter.mode must be all when upstream.format is raw"))
	}

	if d.Upstream.Format == FormatNMEA {
		for i, id := range d.Filter.AllowList {
			verr.Append(validation.ValidateVar(fmt.Sprintf("filter.allow_list[%d]", i), id, "mmsi"))
		}
	}

	seen := make(map[string]int, len(d.Endpoints))
	for i, ep := range d.Endpoints {
		if ep.ID == "" {
			continue
		}
		if j, dup := seen[ep.ID]; dup {
			verr.Append(validation.NewError(fmt.Sprintf("endpoints[%d].id", i), "unique",
				fmt.Sprintf("endpoints[%d].id duplicates endpoints[%d].id", i, j)))
			continue
		}
		seen[ep.ID] = i
	}

	if len(verr.Errors()) == 0 {
		return nil
	}
	return &ConfigurationError{Fields: verr}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	out := *d
	out.Filter.AllowList = append([]string(nil), d.Filter.AllowList...)
	out.Endpoints = append([]EndpointConfig(nil), d.Endpoints...)
	if out.Endpoints == nil {
		out.Endpoints = []EndpointConfig{}
	}
	return &out
}

// Endpoint returns the endpoint with id and its index.
func (d *Document) Endpoint(id string) (EndpointConfig, int, bool) {
	for i, ep := range d.Endpoints {
		if ep.ID == id {
			return ep, i, true
		}
	}
	return EndpointConfig{}, -1, false
}
