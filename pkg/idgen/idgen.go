// Package idgen generates the ledger's entity and event identifiers.
//
// IDs are opaque strings of the form "<prefix>-<8 hex chars>", the random
// part being the first 8 hex digits of a 128-bit UUID, continuing the
// teacher's own uuid.New() usage (see database repository tests and server
// handlers) rather than hand-rolling a random source.
package idgen

import (
	"strings"

	"github.com/google/uuid"
)

// Generator yields fresh, statistically-unique IDs. Collisions are treated
// by the store as caller error (append-only violation), not corruption.
type Generator interface {
	NewID(prefix string) string
}

// UUIDGenerator is the production Generator, backed by google/uuid.
type UUIDGenerator struct{}

// New returns the production ID generator.
func New() Generator {
	return UUIDGenerator{}
}

// NewID returns "<prefix>-<8 hex chars>".
func (UUIDGenerator) NewID(prefix string) string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return prefix + "-" + raw[:8]
}

// Sequential is a deterministic Generator for tests: it returns
// "<prefix>-<8 zero-padded hex digits of a counter>" so test expectations
// can be written without needing to match a random suffix.
type Sequential struct {
	counter uint32
}

// NewSequential returns a deterministic test ID generator.
func NewSequential() *Sequential {
	return &Sequential{}
}

// NewID returns the next deterministic ID for prefix.
func (s *Sequential) NewID(prefix string) string {
	s.counter++
	return prefix + "-" + padHex(s.counter)
}

func padHex(n uint32) string {
	const hexDigits = "0123456789abcdef"
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = hexDigits[n&0xf]
		n >>= 4
	}
	return string(b)
}
