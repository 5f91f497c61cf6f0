// Copyright 2025 Certen Protocol
//
// Package audit implements the sidecar ledger's append-only audit sink (C2):
// every committed or rejected write is mirrored here as one JSON line, never
// rewritten or deleted. The logger-prefix convention
// (log.New(log.Writer(), "[Name] ", log.LstdFlags)) and the os.MkdirAll
// parent-directory setup follow the teacher's firestore.AuditTrailService
// and pkg/consensus/bft_integration.go.
package audit

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/certen/sidecar-ledger/pkg/ledger"
	"github.com/prometheus/client_golang/prometheus"
)

// Sink is an append-only mirror of every committed or rejected write. A Sink
// is safe for concurrent use; callers do not need to hold their own lock
// around Append.
type Sink struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	entries  []ledger.AuditEntry
	logger   *log.Logger
	counter  *prometheus.CounterVec
	closed   bool
}

// Config controls how a Sink is constructed.
type Config struct {
	// Path is the audit file's full path, e.g. "./log/sidecar-audit.edn".
	Path string
	// Logger receives a line per append failure. Defaults to a
	// "[Audit] "-prefixed logger on log.Writer(), matching the teacher's
	// server-handler convention.
	Logger *log.Logger
	// Counter, if non-nil, is incremented once per AuditType on every
	// Append call (C8 wiring point). Optional.
	Counter *prometheus.CounterVec
}

// New opens (creating if absent) the audit file at cfg.Path in append mode
// and returns a ready Sink. The parent directory is created if missing.
func New(cfg Config) (*Sink, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("audit: path is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(log.Writer(), "[Audit] ", log.LstdFlags)
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("audit: create log dir: %w", err)
		}
	}

	f, err := os.OpenFile(cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", cfg.Path, err)
	}

	return &Sink{
		path:    cfg.Path,
		file:    f,
		logger:  cfg.Logger,
		counter: cfg.Counter,
	}, nil
}

// Append durably records entry: one JSON object per line, in the order
// calls are made. It is the caller's (the store's) responsibility to hold
// its write mutex across validate→commit→Append so audit ordering matches
// commit ordering (spec §5, §9 open question 1: audit-after-commit).
func (s *Sink) Append(entry ledger.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ledger.ErrAuditClosed
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("audit: marshal entry: %w", err)
	}
	line = append(line, '\n')

	if _, err := s.file.Write(line); err != nil {
		s.logger.Printf("append failed for event %s (%s): %v", entry.Event.ID, entry.AuditType, err)
		return fmt.Errorf("audit: write entry: %w", err)
	}

	s.entries = append(s.entries, entry)
	if s.counter != nil {
		s.counter.WithLabelValues(string(entry.AuditType)).Inc()
	}
	return nil
}

// All returns a snapshot copy of every entry appended so far, oldest first.
func (s *Sink) All() []ledger.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ledger.AuditEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Close flushes and closes the underlying file. Further Append calls return
// ErrAuditClosed.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}
