// Copyright 2025 Certen Protocol
//
// Package ledger provides sentinel errors for programmer-facing conditions
// that sit outside the public {ok,errors} record-operation surface.

package ledger

import "errors"

// Sentinel errors for ledger operations.
var (
	// ErrAuditClosed is returned when a write is attempted after the audit
	// sink's underlying file has been closed.
	ErrAuditClosed = errors.New("ledger: audit sink is closed")
)
