// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/config"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewSupervisorTree_Defaults(t *testing.T) {
	tree, err := NewSupervisorTree(quietLogger(), TreeConfig{})
	if err != nil {
		t.Fatalf("failed to create tree: %v", err)
	}
	if tree.Root() == nil {
		t.Fatal("root supervisor should not be nil")
	}
	if tree.config != DefaultTreeConfig() {
		t.Errorf("zero config should take defaults, got %+v", tree.config)
	}
}

func TestTreeConfigFrom(t *testing.T) {
	got := TreeConfigFrom(config.SupervisorConfig{
		FailureThreshold: 2,
		FailureDecay:     10,
		FailureBackoff:   time.Second,
		ShutdownTimeout:  3 * time.Second,
	})
	want := TreeConfig{FailureThreshold: 2, FailureDecay: 10, FailureBackoff: time.Second, ShutdownTimeout: 3 * time.Second}
	if got != want {
		t.Errorf("TreeConfigFrom = %+v, want %+v", got, want)
	}
}

func TestSupervisorTree_StartsEveryLayer(t *testing.T) {
	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: time.Second})

	fwd := newMockService("forwarder")
	hub := newMockService("hub")
	api := newMockService("http")
	tree.AddForwardingService(fwd)
	tree.AddMessagingService(hub)
	tree.AddAPIService(api)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not shut down in time")
	}

	for _, svc := range []*mockService{fwd, hub, api} {
		if svc.StartCount() < 1 {
			t.Errorf("%s was not started", svc)
		}
		if svc.StopCount() != svc.StartCount() {
			t.Errorf("%s: %d starts but %d stops", svc, svc.StartCount(), svc.StopCount())
		}
	}
}

func TestSupervisorTree_RestartIsolatedToService(t *testing.T) {
	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})

	failing := newMockService("failing")
	failing.SetFailCount(2)
	stable := newMockService("stable")
	tree.AddMessagingService(failing)
	tree.AddAPIService(stable)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	go func() { _ = tree.Serve(ctx) }()
	time.Sleep(200 * time.Millisecond)

	if failing.StartCount() < 3 {
		t.Errorf("expected at least 3 starts for failing service, got %d", failing.StartCount())
	}
	if stable.StartCount() != 1 {
		t.Errorf("stable service should start once, got %d", stable.StartCount())
	}
}

func TestNew_StandaloneSupervisor(t *testing.T) {
	sup := New("forwarder-run", quietLogger(), TreeConfig{ShutdownTimeout: time.Second})

	svc := newMockService("publisher-a")
	svc.SetError(errors.New("boom"))
	sup.Add(svc)

	ctx, cancel := context.WithCancel(context.Background())
	done := sup.ServeBackground(ctx)
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	if svc.StartCount() < 2 {
		t.Errorf("failing service should be restarted, started %d times", svc.StartCount())
	}
}

func TestSupervisorTree_WaitReturnsAfterCancel(t *testing.T) {
	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: time.Second})
	svc := newMockService("forwarder")
	tree.AddForwardingService(svc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)
	time.Sleep(50 * time.Millisecond)
	cancel()

	done := make(chan error, 1)
	go func() { done <- tree.Wait(ctx, errCh) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Wait after cancel = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait still blocked 2s after cancel")
	}
	if svc.StopCount() != svc.StartCount() {
		t.Errorf("%s: %d starts but %d stops", svc, svc.StartCount(), svc.StopCount())
	}
}

func TestSupervisorTree_WaitReportsTreeError(t *testing.T) {
	tree, _ := NewSupervisorTree(quietLogger(), TreeConfig{})
	boom := errors.New("boom")

	errCh := make(chan error, 1)
	errCh <- boom
	if err := tree.Wait(context.Background(), errCh); !errors.Is(err, boom) {
		t.Errorf("Wait = %v, want %v", err, boom)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	errCh = make(chan error, 1)
	errCh <- context.Canceled
	if err := tree.Wait(ctx, errCh); err != nil {
		t.Errorf("Wait on canceled tree = %v, want nil", err)
	}
}
