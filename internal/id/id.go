// Package id mints the identifiers used for trades and persisted
// positions. They are ULIDs, so ids minted later sort after earlier ones.
package id

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator mints ULIDs from one entropy source. Ids minted within the
// same millisecond stay in minting order.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewGenerator reads randomness from entropy. Tests pass a seeded reader
// to get reproducible ids.
func NewGenerator(entropy io.Reader) *Generator {
	return &Generator{entropy: ulid.Monotonic(entropy, 0)}
}

// At returns an id whose timestamp component is t.
func (g *Generator) At(t time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	u, err := ulid.New(ulid.Timestamp(t.UTC()), g.entropy)
	if err != nil {
		// Only when the entropy source fails or a millisecond runs out
		// of monotonic room.
		panic(err)
	}
	return u.String()
}

var std = NewGenerator(rand.Reader)

// New returns an id stamped with the current time.
func New() string {
	return std.At(time.Now())
}

// NewAt returns an id stamped with t.
func NewAt(t time.Time) string {
	return std.At(t)
}

// Valid reports whether s parses as a ULID.
func Valid(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
