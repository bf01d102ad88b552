// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

package forwarder

import (
	"bufio"
	"context"
	"net"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/config"
	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/publisher"
	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/supervisor"
)

const (
	waitFor = 3 * time.Second
	tick    = 5 * time.Millisecond
)

const (
	sbsA92F2D = "MSG,3,1,1,A92F2D,1,2026/03/01,12:00:00.000,2026/03/01,12:00:00.000,,35000,,,51.47,-0.46,,,0,0,0,0"
	sbsA932E4 = "MSG,3,1,1,A932E4,1,2026/03/01,12:00:00.100,2026/03/01,12:00:00.100,,12000,,,51.50,-0.40,,,0,0,0,0"
	sbs4CA123 = "MSG,3,1,1,4CA123,1,2026/03/01,12:00:00.200,2026/03/01,12:00:00.200,,8000,,,51.52,-0.38,,,0,0,0,0"
)

func testOptions(store *config.DocumentStore) Options {
	return Options{
		Store: store,
		Publisher: config.PublisherPolicy{
			RetryDelay:     20 * time.Millisecond,
			BackoffDelay:   300 * time.Millisecond,
			MaxAttempts:    3,
			ConnectTimeout: time.Second,
			WriteTimeout:   time.Second,
			QueueSize:      64,
		},
		Upstream: config.UpstreamPolicy{
			MinDelay:       10 * time.Millisecond,
			MaxDelay:       50 * time.Millisecond,
			ConnectTimeout: time.Second,
			MaxFrameBytes:  4096,
		},
		FrameBuffer: 16,
		Supervisor: supervisor.TreeConfig{
			FailureBackoff:  50 * time.Millisecond,
			ShutdownTimeout: 2 * time.Second,
		},
	}
}

// newTestDaemon saves doc and returns a stopped daemon reading it. The
// daemon is stopped at cleanup.
func newTestDaemon(t *testing.T, doc *config.Document) *Daemon {
	t.Helper()
	return newTestDaemonWith(t, doc, func(*Options) {})
}

func newTestDaemonWith(t *testing.T, doc *config.Document, tweak func(*Options)) *Daemon {
	t.Helper()
	store := config.NewDocumentStore(filepath.Join(t.TempDir(), "forwarding.yaml"), 5)
	require.NoError(t, store.Save(doc))

	opts := testOptions(store)
	tweak(&opts)
	d, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Stop() })
	return d
}

// feed is a loopback upstream that writes lines to every connected client.
type feed struct {
	ln      net.Listener
	mu      sync.Mutex
	clients []net.Conn
	accepts atomic.Int32
}

func newFeed(t *testing.T) *feed {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	f := &feed{ln: ln}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			f.accepts.Add(1)
			f.mu.Lock()
			f.clients = append(f.clients, conn)
			f.mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		f.mu.Lock()
		for _, c := range f.clients {
			_ = c.Close()
		}
		f.mu.Unlock()
	})
	return f
}

func (f *feed) upstream() config.UpstreamConfig {
	addr := f.ln.Addr().(*net.TCPAddr)
	u := config.DefaultDocument().Upstream
	u.Host = addr.IP.String()
	u.Port = addr.Port
	return u
}

// waitClients waits until n upstream connections have been accepted in
// total, so the latest reader session is registered before send.
func (f *feed) waitClients(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return len(f.clients) == n
	}, 3*time.Second, 5*time.Millisecond, "feed never saw %d clients", n)
}

func (f *feed) send(t *testing.T, lines ...string) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.clients {
		for _, l := range lines {
			_, _ = c.Write([]byte(l + "\r\n"))
		}
	}
}

// sink is a loopback endpoint that records received lines.
type sink struct {
	ln      net.Listener
	mu      sync.Mutex
	lines   []string
	conns   []net.Conn
	accepts atomic.Int32
	closed  atomic.Int32
}

func newSink(t *testing.T) *sink {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &sink{ln: ln}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			s.accepts.Add(1)
			s.mu.Lock()
			s.conns = append(s.conns, conn)
			s.mu.Unlock()
			go func() {
				sc := bufio.NewScanner(conn)
				for sc.Scan() {
					s.mu.Lock()
					s.lines = append(s.lines, sc.Text())
					s.mu.Unlock()
				}
				s.closed.Add(1)
			}()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		s.mu.Lock()
		for _, c := range s.conns {
			_ = c.Close()
		}
		s.mu.Unlock()
	})
	return s
}

func (s *sink) endpoint(id string) config.EndpointConfig {
	addr := s.ln.Addr().(*net.TCPAddr)
	return config.EndpointConfig{ID: id, Name: id, Host: addr.IP.String(), Port: addr.Port, Enabled: true}
}

func (s *sink) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

// refusedEndpoint returns an endpoint on a loopback port nobody listens on.
func refusedEndpoint(t *testing.T, id string) config.EndpointConfig {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return config.EndpointConfig{ID: id, Name: id, Host: "127.0.0.1", Port: port, Enabled: true}
}

func docWith(u config.UpstreamConfig, f config.FilterConfig, eps ...config.EndpointConfig) *config.Document {
	doc := config.DefaultDocument()
	doc.Upstream = u
	doc.Filter = f
	doc.Endpoints = append([]config.EndpointConfig{}, eps...)
	return doc
}

func endpointState(d *Daemon, id string) publisher.State {
	for _, ep := range d.Status().Endpoints {
		if ep.ID == id {
			return ep.State
		}
	}
	return ""
}

func waitEndpointState(t *testing.T, d *Daemon, id string, want publisher.State) {
	t.Helper()
	require.Eventually(t, func() bool { return endpointState(d, id) == want },
		3*time.Second, 5*time.Millisecond, "endpoint %s never reached %s (now %s)", id, want, endpointState(d, id))
}

func waitUpstreamConnected(t *testing.T, d *Daemon) {
	t.Helper()
	require.Eventually(t, func() bool { return d.Status().Upstream.State == "connected" },
		3*time.Second, 5*time.Millisecond, "upstream never connected")
}

// recordingDialer counts dial attempts per address.
type recordingDialer struct {
	mu    sync.Mutex
	dials map[string]int
	net.Dialer
}

func (r *recordingDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	r.mu.Lock()
	if r.dials == nil {
		r.dials = make(map[string]int)
	}
	r.dials[address]++
	r.mu.Unlock()
	return r.Dialer.DialContext(ctx, network, address)
}

func (r *recordingDialer) count(address string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dials[address]
}
