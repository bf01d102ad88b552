// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

package logstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thejerf/suture/v4"

	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/logging"
	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/metrics"
)

func openMemory(t *testing.T, cfg Config) *Store {
	t.Helper()
	cfg.InMemory = true
	s, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_RecentReturnsOldestFirst(t *testing.T) {
	s := openMemory(t, Config{})
	log := logging.NewTestLogger(s)

	log.Info().Str("component", "upstream").Str("source", "tcp://127.0.0.1:30003").Msg("upstream connected")
	log.Warn().Str("endpoint", "ep-1").Msg("endpoint connect failed")
	log.Error().Str("endpoint", "ep-1").Msg("endpoint unreachable")

	entries, err := s.Recent(0, "")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "upstream connected", entries[0].Message)
	assert.Equal(t, "info", entries[0].Level)
	assert.Equal(t, "upstream", entries[0].Component)
	assert.Equal(t, "tcp://127.0.0.1:30003", entries[0].Fields["source"])
	assert.False(t, entries[0].Time.IsZero())

	assert.Equal(t, "endpoint unreachable", entries[2].Message)
	assert.Equal(t, "error", entries[2].Level)
}

func TestStore_RecentCount(t *testing.T) {
	s := openMemory(t, Config{MaxEntries: 5})
	log := logging.NewTestLogger(s)
	for i := 0; i < 8; i++ {
		log.Info().Msg(fmt.Sprintf("line %d", i))
	}

	entries, err := s.Recent(3, "all")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "line 5", entries[0].Message)
	assert.Equal(t, "line 7", entries[2].Message)

	entries, err = s.Recent(50, "")
	require.NoError(t, err)
	assert.Len(t, entries, 5, "count is capped at MaxEntries")
	assert.Equal(t, 5, s.MaxEntries())
}

func TestStore_RecentLevelFilter(t *testing.T) {
	s := openMemory(t, Config{})
	log := logging.NewTestLogger(s)
	log.Info().Msg("one")
	log.Warn().Msg("two")
	log.Info().Msg("three")
	log.Warn().Msg("four")

	entries, err := s.Recent(10, "WARNING")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "two", entries[0].Message)
	assert.Equal(t, "four", entries[1].Message)

	entries, err = s.Recent(10, "error")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_NonJSONLineKeptAsMessage(t *testing.T) {
	s := openMemory(t, Config{})
	_, err := s.Write([]byte("plain text line\n"))
	require.NoError(t, err)
	_, err = s.Write([]byte("\n"))
	require.NoError(t, err)

	entries, err := s.Recent(10, "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "plain text line", entries[0].Message)
	assert.Empty(t, entries[0].Level)
}

func TestStore_Clear(t *testing.T) {
	s := openMemory(t, Config{})
	log := logging.NewTestLogger(s)
	log.Info().Msg("before")

	require.NoError(t, s.Clear())
	entries, err := s.Recent(10, "")
	require.NoError(t, err)
	assert.Empty(t, entries)

	log.Info().Msg("after")
	entries, err = s.Recent(10, "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "after", entries[0].Message)
}

func TestStore_EntriesExpire(t *testing.T) {
	s := openMemory(t, Config{Retention: time.Second})
	log := logging.NewTestLogger(s)
	log.Info().Msg("short lived")

	entries, err := s.Recent(10, "")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.Eventually(t, func() bool {
		entries, err := s.Recent(10, "")
		return err == nil && len(entries) == 0
	}, 5*time.Second, 100*time.Millisecond)
}

func TestStore_ClosedStore(t *testing.T) {
	s, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "close is idempotent")

	before := testutil.ToFloat64(metrics.LogStoreWriteErrors)
	line := []byte(`{"level":"info","message":"late"}`)
	n, err := s.Write(line)
	require.NoError(t, err, "writes never fail the logger")
	assert.Equal(t, len(line), n)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.LogStoreWriteErrors))

	_, err = s.Recent(10, "")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Clear(), ErrClosed)
	assert.ErrorIs(t, s.RunGC(), ErrClosed)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logstore")

	s, err := Open(Config{Path: dir})
	require.NoError(t, err)
	log := logging.NewTestLogger(s)
	log.Info().Msg("kept")
	require.NoError(t, s.RunGC())
	require.NoError(t, s.Close())

	s, err = Open(Config{Path: dir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	entries, err := s.Recent(10, "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0].Message)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestStore_ServeStopsOnCancel(t *testing.T) {
	s := openMemory(t, Config{GCInterval: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestStore_ServeDoesNotRestartAfterClose(t *testing.T) {
	s, err := Open(Config{InMemory: true, GCInterval: 10 * time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	done := make(chan error, 1)
	go func() { done <- s.Serve(context.Background()) }()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, suture.ErrDoNotRestart))
	case <-time.After(time.Second):
		t.Fatal("Serve kept running on a closed store")
	}
}
