// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

package upstream

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"go.bug.st/serial"
)

// Source opens a fresh upstream stream. Each successful Open is one
// connection; the Reader closes it when done.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// TCPSource dials a decoder process such as dump1090-fa (SBS on 30003) or
// an AIS network receiver.
type TCPSource struct {
	Address string
	Timeout time.Duration
}

// Open dials Address.
func (s TCPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	d := net.Dialer{Timeout: s.Timeout, KeepAlive: 30 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", s.Address)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (s TCPSource) String() string { return "tcp://" + s.Address }

// DefaultBaudRate is the AIS receiver line rate.
const DefaultBaudRate = 38400

// SerialSource reads an AIS receiver on a serial device, 8N1.
type SerialSource struct {
	Device string
	Baud   int
}

// Open opens the device. ctx is not consulted; opening a tty does not block.
func (s SerialSource) Open(_ context.Context) (io.ReadCloser, error) {
	baud := s.Baud
	if baud == 0 {
		baud = DefaultBaudRate
	}
	port, err := serial.Open(s.Device, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.Device, err)
	}
	return port, nil
}

func (s SerialSource) String() string { return "serial://" + s.Device }

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (io.ReadCloser, error)

// Open calls f.
func (f SourceFunc) Open(ctx context.Context) (io.ReadCloser, error) { return f(ctx) }

func (f SourceFunc) String() string { return "func" }
