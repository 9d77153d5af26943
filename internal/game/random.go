package game

import (
	mathrand "math/rand"
	"sync"
	"time"
)

// Source is the engine's only source of nondeterminism. Float64 returns a
// value in [0, 1).
type Source interface {
	Float64() float64
}

type lockedSource struct {
	mu   sync.Mutex
	rand *mathrand.Rand
}

// NewSource returns a seeded Source. A zero seed seeds from the clock.
func NewSource(seed int64) Source {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedSource{rand: mathrand.New(mathrand.NewSource(seed))}
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Float64()
}

func uniform(rng Source, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// pickIndex draws a uniform index in [0, n).
func pickIndex(rng Source, n int) int {
	if n <= 1 {
		return 0
	}
	i := int(rng.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}
