// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

// Package filter decides which upstream frames are forwarded.
//
// A Decoder turns upstream lines into frames carrying an identifier (ICAO
// address for SBS, MMSI for AIS). A Filter then accepts or rejects the
// identifier against the allow-list.
package filter

import "strings"

// Mode selects how a Filter treats identifiers.
type Mode string

const (
	// ModeAll accepts every frame.
	ModeAll Mode = "all"
	// ModeSpecific accepts only allow-listed identifiers.
	ModeSpecific Mode = "specific"
)

// Filter is an immutable allow-list. It is safe for concurrent use.
type Filter struct {
	mode  Mode
	allow map[string]struct{}
}

// New builds a Filter. In ModeAll the list is ignored.
func New(mode Mode, allowList []string) *Filter {
	f := &Filter{mode: mode}
	if mode != ModeSpecific {
		return f
	}
	f.allow = make(map[string]struct{}, len(allowList))
	for _, id := range allowList {
		f.allow[normalize(id)] = struct{}{}
	}
	return f
}

// Accepts reports whether a frame with identifier id should be forwarded.
func (f *Filter) Accepts(id string) bool {
	if f.mode != ModeSpecific {
		return true
	}
	_, ok := f.allow[normalize(id)]
	return ok
}

// Mode returns the filter mode.
func (f *Filter) Mode() Mode { return f.mode }

// Size returns the number of allow-listed identifiers.
func (f *Filter) Size() int { return len(f.allow) }

func normalize(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
