// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

package forwarder

import (
	"context"
	"net"
	"strconv"
	"time"
)

// ProbeResult is the outcome of TestEndpoint.
type ProbeResult struct {
	Host      string  `json:"host"`
	Port      int     `json:"port"`
	Reachable bool    `json:"reachable"`
	LatencyMS float64 `json:"latency_ms"`
	Error     string  `json:"error,omitempty"`
}

// TestEndpoint opens and immediately closes one TCP connection to host:port.
// It does not touch the running forwarder.
func (d *Daemon) TestEndpoint(ctx context.Context, host string, port int) ProbeResult {
	timeout := d.opts.Publisher.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var dial func(ctx context.Context, network, address string) (net.Conn, error)
	if d.opts.Dialer != nil {
		dial = d.opts.Dialer.DialContext
	} else {
		dial = (&net.Dialer{}).DialContext
	}

	res := ProbeResult{Host: host, Port: port}
	start := time.Now()
	conn, err := dial(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	res.LatencyMS = float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		res.Error = err.Error()
		d.logger.Info().Str("host", host).Int("port", port).Err(err).Msg("endpoint probe failed")
		return res
	}
	_ = conn.Close()
	res.Reachable = true
	d.logger.Info().Str("host", host).Int("port", port).Float64("latency_ms", res.LatencyMS).Msg("endpoint probe succeeded")
	return res
}
