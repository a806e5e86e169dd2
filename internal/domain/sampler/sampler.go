// Package sampler draws pool indices without replacement for one quiz session.
//
// Every index is served exactly once per cycle. When a draw finds nothing
// left, the served set is cleared and the draw picks from the full pool, so a
// session never runs out. A Session is not safe for concurrent use; callers
// serialize access per session (see package sessions).
package sampler

import (
	"math/rand"
	"sync/atomic"
	"time"
)

// Sizer is anything with a card count. *deck.Pool satisfies it.
type Sizer interface {
	Len() int
}

// Option configures a Session.
type Option func(*Session)

// WithRand injects the random source, mostly for deterministic tests.
func WithRand(r *rand.Rand) Option {
	return func(s *Session) {
		if r != nil {
			s.rng = r
		}
	}
}

// Session is the per-user sampling state.
type Session struct {
	size      int
	remaining []int // unserved indices in arbitrary order
	cycle     int
	score     float64
	rng       *rand.Rand
}

var seedSeq atomic.Int64

func newSource() *rand.Rand {
	seed := time.Now().UnixNano() ^ (seedSeq.Add(1) * 0x5DEECE66D)
	return rand.New(rand.NewSource(seed)) //nolint:gosec // quiz ordering, not security sensitive
}

// Start opens a session over pool with nothing served and a zero score.
// The pool size is captured once; pools are immutable.
func Start(pool Sizer, opts ...Option) *Session {
	n := 0
	if pool != nil {
		n = pool.Len()
	}
	s := &Session{size: n}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = newSource()
	}
	s.refill()
	return s
}

func (s *Session) refill() {
	if cap(s.remaining) < s.size {
		s.remaining = make([]int, s.size)
	}
	s.remaining = s.remaining[:s.size]
	for i := range s.remaining {
		s.remaining[i] = i
	}
}

// Next returns an index not yet served in the current cycle, chosen
// uniformly. If every index has been served, the cycle resets first and the
// draw is taken from the whole pool.
func (s *Session) Next() (int, error) {
	if s.size == 0 {
		return 0, ErrEmptyPool
	}
	if len(s.remaining) == 0 {
		s.refill()
		s.cycle++
	}

	j := s.rng.Intn(len(s.remaining))
	idx := s.remaining[j]
	last := len(s.remaining) - 1
	s.remaining[j] = s.remaining[last]
	s.remaining = s.remaining[:last]
	return idx, nil
}

// RecordScore adds delta to the running score and returns the new total.
// Negative deltas are allowed and nothing is clamped.
func (s *Session) RecordScore(delta float64) float64 {
	s.score += delta
	return s.score
}

// Score returns the running score.
func (s *Session) Score() float64 { return s.score }

// Size returns the pool size captured at Start.
func (s *Session) Size() int { return s.size }

// Remaining returns how many indices are left in the current cycle.
func (s *Session) Remaining() int { return len(s.remaining) }

// Served returns how many indices were served in the current cycle.
func (s *Session) Served() int { return s.size - len(s.remaining) }

// Cycle returns how many times the pool has been reset.
func (s *Session) Cycle() int { return s.cycle }
