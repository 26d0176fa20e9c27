// Package entropy provides the simulation's randomness. Every run draws from
// a single seeded source so that identical seeds reproduce identical runs.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
	"sync"
)

// Source is a seeded random stream. A nil Source draws a crypto seed on
// first use, for callers that do not care about reproducibility.
type Source struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

// NewSource creates a deterministic source from a seed.
func NewSource(seed int64) *Source {
	return &Source{rng: mrand.New(mrand.NewSource(seed))}
}

// NewRandomSource creates a source seeded from the operating system.
func NewRandomSource() *Source {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return NewSource(1)
	}
	return NewSource(int64(binary.LittleEndian.Uint64(buf[:])))
}

// Float returns a float64 in [0, 1).
func (s *Source) Float() float64 {
	if s == nil {
		return NewRandomSource().Float()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// IntBetween returns an int in [lo, hi] inclusive. lo > hi returns lo.
func (s *Source) IntBetween(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	if s == nil {
		return NewRandomSource().IntBetween(lo, hi)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo + s.rng.Intn(hi-lo+1)
}

// NormFloat returns a normally distributed float64 with the given mean and
// standard deviation.
func (s *Source) NormFloat(mean, stddev float64) float64 {
	if s == nil {
		return NewRandomSource().NormFloat(mean, stddev)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return mean + s.rng.NormFloat64()*stddev
}
