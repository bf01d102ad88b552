// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// backupTimeFormat sorts lexically in time order.
const backupTimeFormat = "20060102_150405.000"

// DocumentStore reads and writes the forwarding document. Every save first
// copies the current file into a backups directory next to it.
type DocumentStore struct {
	path       string
	maxBackups int
	now        func() time.Time

	mu sync.Mutex
}

// NewDocumentStore returns a store for path. maxBackups of 0 keeps every
// backup.
func NewDocumentStore(path string, maxBackups int) *DocumentStore {
	return &DocumentStore{path: path, maxBackups: maxBackups, now: time.Now}
}

// Path returns the document path.
func (s *DocumentStore) Path() string { return s.path }

// BackupDir returns the directory holding document backups.
func (s *DocumentStore) BackupDir() string {
	return filepath.Join(filepath.Dir(s.path), "backups")
}

// Load reads, normalizes and validates the document. A missing file is
// created from DefaultDocument.
func (s *DocumentStore) Load() (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		doc := DefaultDocument()
		if err := s.write(doc); err != nil {
			return nil, err
		}
		return doc, nil
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(DefaultDocument(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load document defaults: %w", err)
	}
	if err := k.Load(file.Provider(s.path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", s.path, err)
	}

	doc := &Document{}
	if err := k.Unmarshal("", doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", s.path, err)
	}
	if doc.Endpoints == nil {
		doc.Endpoints = []EndpointConfig{}
	}
	doc.Normalize()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Save backs up the current document, then replaces it with doc.
// The caller validates doc first.
func (s *DocumentStore) Save(doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backup(); err != nil {
		return err
	}
	return s.write(doc)
}

// Backups lists backup files, oldest first.
func (s *DocumentStore) Backups() ([]string, error) {
	entries, err := os.ReadDir(s.BackupDir())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	prefix := s.backupPrefix()
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			out = append(out, filepath.Join(s.BackupDir(), e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *DocumentStore) backupPrefix() string {
	base := filepath.Base(s.path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "_"
}

func (s *DocumentStore) backup() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read document for backup: %w", err)
	}

	if err := os.MkdirAll(s.BackupDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}
	name := s.backupPrefix() + s.now().UTC().Format(backupTimeFormat) + ".yaml"
	if err := os.WriteFile(filepath.Join(s.BackupDir(), name), data, 0o644); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	return s.pruneBackups()
}

func (s *DocumentStore) pruneBackups() error {
	if s.maxBackups <= 0 {
		return nil
	}
	backups, err := s.Backups()
	if err != nil {
		return err
	}
	for len(backups) > s.maxBackups {
		if err := os.Remove(backups[0]); err != nil {
			return fmt.Errorf("failed to prune backup: %w", err)
		}
		backups = backups[1:]
	}
	return nil
}

// write marshals doc and renames it into place so readers never see a
// partial file.
func (s *DocumentStore) write(doc *Document) error {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(doc, "koanf"), nil); err != nil {
		return fmt.Errorf("failed to flatten document: %w", err)
	}
	data, err := k.Marshal(yaml.Parser())
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create document directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace document: %w", err)
	}
	return nil
}
