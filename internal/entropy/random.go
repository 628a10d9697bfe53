// Package entropy provides the injected randomness used by the sketch.
// Every stochastic choice (spawn point, particle velocity, palette blend) draws
// from a Source so a session can be replayed exactly from its seed.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
)

// Source yields uniform floats in [0, 1).
type Source interface {
	Float64() float64
}

// Seeded is a deterministic Source backed by math/rand.
type Seeded struct {
	seed int64
	rng  *mrand.Rand
}

// NewSeeded creates a deterministic source. A zero seed is replaced by one
// drawn from crypto/rand; Seed reports the value actually used.
func NewSeeded(seed int64) *Seeded {
	if seed == 0 {
		seed = CryptoSeed()
	}
	return &Seeded{
		seed: seed,
		rng:  mrand.New(mrand.NewSource(seed)),
	}
}

// Float64 implements Source.
func (s *Seeded) Float64() float64 {
	return s.rng.Float64()
}

// Seed returns the seed this source was built from.
func (s *Seeded) Seed() int64 {
	return s.seed
}

// Range returns a uniform value in [lo, hi).
func Range(src Source, lo, hi float64) float64 {
	return lo + src.Float64()*(hi-lo)
}

// Index returns a uniform integer in [0, n). n must be positive.
func Index(src Source, n int) int {
	i := int(src.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

// CryptoSeed returns a non-zero seed from crypto/rand.
func CryptoSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand does not fail on supported platforms.
		return 1
	}
	seed := int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
	if seed == 0 {
		seed = 1
	}
	return seed
}

// Fixed is a Source that cycles through a fixed list of values. Useful for
// pinning down a particular sequence of draws.
type Fixed struct {
	Values []float64
	next   int
}

// Float64 implements Source. An empty Fixed always yields 0.
func (f *Fixed) Float64() float64 {
	if len(f.Values) == 0 {
		return 0
	}
	v := f.Values[f.next%len(f.Values)]
	f.next++
	return v
}
