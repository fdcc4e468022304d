// Package random provides seeded pseudo-random sources for prompt draws.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"sync"
)

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// Source is a goroutine-safe Intn source backed by a seeded math/rand
// generator.
type Source struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSource returns a Source seeded with seed.
func NewSource(seed int64) *Source {
	return &Source{rng: rand.New(rand.NewSource(seed))}
}

// NewCryptoSeededSource returns a Source seeded from crypto/rand.
func NewCryptoSeededSource() (*Source, error) {
	seed, err := NewSeed()
	if err != nil {
		return nil, err
	}
	return NewSource(seed), nil
}

// Intn returns a uniform value in [0, n). It panics if n <= 0.
func (s *Source) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}
