// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/config"
	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/forwarder"
	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/logging"
	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/logstore"
	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/supervisor"
	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/upstream"
	ws "github.com/JLBMaritime/AIS-WiFi-Manager/internal/websocket"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "json",
		Output: io.Discard,
	})
}

// envelope is the decoded response shape.
type envelope struct {
	Status   string          `json:"status"`
	Data     json.RawMessage `json:"data"`
	Metadata Metadata        `json:"metadata"`
	Error    *APIError       `json:"error"`
}

func decodeEnvelope(t *testing.T, body []byte) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("decode envelope: %v: %s", err, body)
	}
	return env
}

// idleSource is an upstream that connects and never sends.
func idleSource(config.UpstreamConfig) upstream.Source {
	return upstream.SourceFunc(func(ctx context.Context) (io.ReadCloser, error) {
		pr, pw := io.Pipe()
		go func() {
			<-ctx.Done()
			_ = pw.Close()
		}()
		return pr, nil
	})
}

type testEnv struct {
	daemon *forwarder.Daemon
	logs   *logstore.Store
	hub    *ws.Hub
	router http.Handler
}

// newTestEnv builds the API over a real daemon with an idle upstream, an
// in-memory log store and a hub that is not running.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := config.NewDocumentStore(filepath.Join(t.TempDir(), "forwarding.yaml"), 5)
	if err := store.Save(config.DefaultDocument()); err != nil {
		t.Fatalf("save document: %v", err)
	}
	daemon, err := forwarder.New(forwarder.Options{
		Store: store,
		Publisher: config.PublisherPolicy{
			RetryDelay:     20 * time.Millisecond,
			BackoffDelay:   200 * time.Millisecond,
			MaxAttempts:    3,
			ConnectTimeout: time.Second,
			WriteTimeout:   time.Second,
			QueueSize:      16,
		},
		Upstream: config.UpstreamPolicy{
			MinDelay:       10 * time.Millisecond,
			MaxDelay:       50 * time.Millisecond,
			ConnectTimeout: time.Second,
			MaxFrameBytes:  4096,
		},
		Supervisor: supervisor.TreeConfig{
			FailureBackoff:  50 * time.Millisecond,
			ShutdownTimeout: 2 * time.Second,
		},
		NewSource: idleSource,
	})
	if err != nil {
		t.Fatalf("forwarder.New: %v", err)
	}
	t.Cleanup(func() { _ = daemon.Stop() })

	logs, err := logstore.Open(logstore.Config{InMemory: true, MaxEntries: 200})
	if err != nil {
		t.Fatalf("logstore.Open: %v", err)
	}
	t.Cleanup(func() { _ = logs.Close() })

	hub := ws.NewHub()
	server := config.ServerConfig{RateLimitDisabled: true}
	handler := NewHandler(daemon, logs, hub, server)
	return &testEnv{
		daemon: daemon,
		logs:   logs,
		hub:    hub,
		router: NewRouter(handler, NewChiMiddlewareFromConfig(server)).Setup(),
	}
}

// do sends a request through the router. body is marshaled unless it is a
// string.
func (e *testEnv) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	if w.Header().Get("Content-Type") != "application/json" {
		return w, envelope{}
	}
	return w, decodeEnvelope(t, w.Body.Bytes())
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode data: %v: %s", err, env.Data)
	}
	return v
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, env envelope, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Errorf("status = %d, want %d: %s", w.Code, status, w.Body.String())
	}
	if env.Status != "error" || env.Error == nil {
		t.Fatalf("expected error envelope, got %s", w.Body.String())
	}
	if env.Error.Code != code {
		t.Errorf("error code = %q, want %q", env.Error.Code, code)
	}
}
