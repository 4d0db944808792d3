// Package randutil centralises how random sources are seeded so that every
// decision can be replayed from a single int64.
package randutil

import (
	rand "math/rand/v2"
	"sync/atomic"
)

const goldenRatio64 = 0x9e3779b97f4a7c15

// New returns a *rand.Rand seeded deterministically from the provided int64.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// NewPair returns a *rand.Rand seeded from two 64-bit keys. The evaluator
// keys it on card bitsets so the stream depends only on which cards are held.
func NewPair(a, b uint64) *rand.Rand {
	return rand.New(rand.NewPCG(mix(a^goldenRatio64), mix(b+goldenRatio64)))
}

// Sequence hands out one seed per request. Seeds are derived from a base so a
// run started with the same base replays the same decisions in order.
// Safe for concurrent use.
type Sequence struct {
	base uint64
	n    atomic.Uint64
}

// NewSequence creates a sequence rooted at base.
func NewSequence(base int64) *Sequence {
	return &Sequence{base: uint64(base)}
}

// Next returns the next seed.
func (s *Sequence) Next() int64 {
	i := s.n.Add(1)
	return int64(mix(s.base + i*goldenRatio64))
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
