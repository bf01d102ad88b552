// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

package filter

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedFrame means no identifier could be extracted from a frame.
var ErrMalformedFrame = errors.New("malformed frame")

// Frame is one forwardable unit: a single SBS line, or every fragment of
// one AIS message. Data includes line terminators.
type Frame struct {
	ID   string
	Data []byte
}

// Decoder extracts identifiers from upstream lines. Decoders are stateful
// and must be used from one goroutine.
type Decoder interface {
	// Decode consumes one line without its terminator. ok is false while a
	// multi-line frame is still incomplete.
	Decode(line []byte) (frame Frame, ok bool, err error)
}

// NewDecoder returns the decoder for an upstream format: sbs, nmea or raw.
func NewDecoder(format string) (Decoder, error) {
	switch format {
	case "sbs":
		return SBSDecoder{}, nil
	case "nmea":
		return NewNMEADecoder(), nil
	case "raw":
		return RawDecoder{}, nil
	default:
		return nil, fmt.Errorf("unknown frame format %q", format)
	}
}

// sbsIdentField is the hex ident column of a BaseStation line:
// MSG,3,1,1,4CA2D6,1,2026/01/01,...
const sbsIdentField = 4

// SBSDecoder reads dump1090 BaseStation (port 30003) lines.
type SBSDecoder struct{}

// Decode implements Decoder.
func (SBSDecoder) Decode(line []byte) (Frame, bool, error) {
	fields := bytes.SplitN(line, []byte{','}, sbsIdentField+2)
	if len(fields) <= sbsIdentField {
		return Frame{}, false, fmt.Errorf("%w: %d fields", ErrMalformedFrame, len(fields))
	}

	// dump1090 marks non-ICAO (TIS-B) addresses with a leading '~'.
	ident := strings.TrimPrefix(strings.TrimSpace(string(fields[sbsIdentField])), "~")
	if !isHex(ident) {
		return Frame{}, false, fmt.Errorf("%w: ident %q is not hexadecimal", ErrMalformedFrame, ident)
	}

	return Frame{ID: strings.ToUpper(ident), Data: withTerminator(line, "\n")}, true, nil
}

// RawDecoder passes lines through without an identifier. It is only valid
// with ModeAll.
type RawDecoder struct{}

// Decode implements Decoder.
func (RawDecoder) Decode(line []byte) (Frame, bool, error) {
	return Frame{Data: withTerminator(line, "\n")}, true, nil
}

func isHex(s string) bool {
	if s == "" || len(s) > 16 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}

func withTerminator(line []byte, term string) []byte {
	out := make([]byte, 0, len(line)+len(term))
	out = append(out, line...)
	return append(out, term...)
}
