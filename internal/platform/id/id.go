// Package id generates opaque identifiers for sessions, participants, and
// turn records.
package id

import (
	"encoding/base32"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewID returns a random UUIDv4 encoded as lowercase, unpadded base32.
// The identifier is always 26 characters long and URL-safe.
func NewID() (string, error) {
	raw, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return strings.ToLower(encoding.EncodeToString(raw[:])), nil
}

// Generator is a function that returns new identifiers. Components accept a
// Generator so tests can supply deterministic ids.
type Generator func() (string, error)

// Sequence returns a Generator yielding prefix-1, prefix-2, ... in order.
// It is safe for concurrent use.
func Sequence(prefix string) Generator {
	var n atomic.Int64
	return func() (string, error) {
		return fmt.Sprintf("%s-%d", prefix, n.Add(1)), nil
	}
}
