// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

// Package logstore keeps the most recent daemon log lines in BadgerDB so the
// control API can show them without reading the log file.
//
// Store is an io.Writer meant to be attached to logging.Config.Extra. Each
// zerolog JSON line becomes one entry under a time-ordered key with a TTL
// equal to the configured retention, so old lines expire on their own.
// Reads are capped at MaxEntries.
package logstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/thejerf/suture/v4"

	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/logging"
	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/metrics"
)

// ErrClosed is returned by operations on a closed Store.
var ErrClosed = errors.New("log store is closed")

const (
	keyPrefix = "log/"

	// DefaultCount is the number of entries Recent returns when asked for
	// zero or fewer.
	DefaultCount = 100
)

// Config holds Store settings.
type Config struct {
	// Path is the badger directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps entries in memory only.
	InMemory bool

	// Retention is the TTL of every entry.
	// Default: 72h
	Retention time.Duration

	// MaxEntries caps the number of entries Recent returns.
	// Default: 200
	MaxEntries int

	// GCInterval is how often Serve runs value-log garbage collection.
	// Default: 10m
	GCInterval time.Duration
}

func (c *Config) withDefaults() {
	if c.Retention <= 0 {
		c.Retention = 72 * time.Hour
	}
	if c.MaxEntries <= 0 {
		c.MaxEntries = 200
	}
	if c.GCInterval <= 0 {
		c.GCInterval = 10 * time.Minute
	}
}

// Entry is one stored log line.
type Entry struct {
	Time      time.Time      `json:"time"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Component string         `json:"component,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Store is a TTL-bounded recent-log store.
type Store struct {
	db  *badger.DB
	cfg Config
	seq atomic.Uint64

	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the store.
func Open(cfg Config) (*Store, error) {
	cfg.withDefaults()

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("logstore: path is required unless in_memory is set")
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	// Sized for a small always-on board rather than a server.
	opts.MemTableSize = 16 << 20
	opts.ValueLogFileSize = 16 << 20
	opts.BlockCacheSize = 8 << 20
	opts.NumCompactors = 2
	opts.NumMemtables = 2

	// Badger's own logger would write into the log we are storing.
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}
	return &Store{db: db, cfg: cfg}, nil
}

// Write stores one log line. It always reports success so a store failure
// never disturbs the other log writers; failures are counted in
// metrics.LogStoreWriteErrors.
func (s *Store) Write(p []byte) (int, error) {
	n := len(p)
	line := bytes.TrimSpace(p)
	if len(line) == 0 {
		return n, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		metrics.LogStoreWriteErrors.Inc()
		return n, nil
	}

	value := make([]byte, len(line))
	copy(value, line)

	key := s.nextKey(time.Now())
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key, value).WithTTL(s.cfg.Retention))
	})
	if err != nil {
		metrics.LogStoreWriteErrors.Inc()
	}
	return n, nil
}

// nextKey returns prefix + big-endian nanos + big-endian sequence, so keys
// sort by arrival even when two lines share a timestamp.
func (s *Store) nextKey(t time.Time) []byte {
	key := make([]byte, len(keyPrefix)+16)
	copy(key, keyPrefix)
	binary.BigEndian.PutUint64(key[len(keyPrefix):], uint64(t.UnixNano()))
	binary.BigEndian.PutUint64(key[len(keyPrefix)+8:], s.seq.Add(1))
	return key
}

// Recent returns up to count entries, oldest first. count is clamped to
// [1, MaxEntries] with DefaultCount for count <= 0. A level other than ""
// or "all" keeps only entries of exactly that level.
func (s *Store) Recent(count int, level string) ([]Entry, error) {
	if count <= 0 {
		count = DefaultCount
	}
	if count > s.cfg.MaxEntries {
		count = s.cfg.MaxEntries
	}
	level = normalizeLevel(level)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	entries := make([]Entry, 0, count)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(seekLast()); it.Valid() && len(entries) < count; it.Next() {
			var e Entry
			if err := it.Item().Value(func(val []byte) error {
				e = decodeEntry(val)
				return nil
			}); err != nil {
				return err
			}
			if level != "" && e.Level != level {
				continue
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read log entries: %w", err)
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// seekLast is the first key past every log key, for reverse iteration.
func seekLast() []byte {
	return append([]byte(keyPrefix), 0xFF)
}

// Clear drops every stored entry.
func (s *Store) Clear() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.db.DropPrefix([]byte(keyPrefix)); err != nil {
		return fmt.Errorf("drop log entries: %w", err)
	}
	return nil
}

// RunGC reclaims value-log space until badger reports nothing to rewrite.
func (s *Store) RunGC() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	if s.cfg.InMemory {
		return nil
	}
	for {
		err := s.db.RunValueLogGC(0.5)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

// Serve runs value-log GC every GCInterval until ctx is done. It implements
// suture.Service.
func (s *Store) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunGC(); err != nil {
				if errors.Is(err, ErrClosed) {
					return suture.ErrDoNotRestart
				}
				logging.Warn().Err(err).Msg("log store GC failed")
			}
		}
	}
}

func (s *Store) String() string { return "logstore-gc" }

// MaxEntries reports the read cap.
func (s *Store) MaxEntries() int { return s.cfg.MaxEntries }

// Close closes the database. Later writes are counted as errors.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close BadgerDB: %w", err)
	}
	return nil
}

// decodeEntry splits a zerolog JSON line into the well-known fields and the
// rest. A line that is not JSON is kept as the message.
func decodeEntry(raw []byte) Entry {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Entry{Message: string(raw)}
	}

	var e Entry
	if v, ok := fields["time"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			e.Time = t
		}
		delete(fields, "time")
	}
	if v, ok := fields["level"].(string); ok {
		e.Level = v
		delete(fields, "level")
	}
	if v, ok := fields["message"].(string); ok {
		e.Message = v
		delete(fields, "message")
	}
	if v, ok := fields["component"].(string); ok {
		e.Component = v
		delete(fields, "component")
	}
	if len(fields) > 0 {
		e.Fields = fields
	}
	return e
}

func normalizeLevel(level string) string {
	level = strings.ToLower(strings.TrimSpace(level))
	switch level {
	case "all":
		return ""
	case "warning":
		return "warn"
	}
	return level
}
