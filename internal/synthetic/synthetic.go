// Package synthetic provides the random source behind every synthesized
// environmental value: fallback samples, zone perturbation and historical series.
package synthetic

import (
	"math/rand/v2"
	"sync"
)

// Source yields uniform draws in [0,1).
type Source interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// Default returns a Source backed by the runtime's auto-seeded generator.
// Safe for concurrent use.
func Default() Source {
	return globalSource{}
}

// seeded is a reproducible Source. rand.Rand is not goroutine safe.
type seeded struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSeeded returns a deterministic Source for the given seed.
func NewSeeded(seed uint64) Source {
	return &seeded{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *seeded) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64()
}

// Sequence replays fixed draws in order and wraps around. Used by tests
// that need exact control over synthesized values.
type Sequence struct {
	mu     sync.Mutex
	values []float64
	next   int
}

// NewSequence returns a Source replaying values. An empty sequence always yields 0.
func NewSequence(values ...float64) *Sequence {
	return &Sequence{values: values}
}

// Float64 returns the next value of the sequence.
func (s *Sequence) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}

// Draws reports how many values have been consumed.
func (s *Sequence) Draws() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Uniform draws from [lo, hi).
func Uniform(src Source, lo, hi float64) float64 {
	return lo + src.Float64()*(hi-lo)
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
