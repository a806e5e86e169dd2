// Package leaderboard keeps a ranked top-N score table in a single persisted
// resource shared by concurrent writers.
//
// Submit runs the whole read-modify-write cycle under one exclusive gate so
// concurrent submissions are linearizable. Readers never see a partial table:
// they take the shared side of an RWMutex whose exclusive side is only held
// while the new table is saved.
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/flashquiz/pkg/logger"
	"github.com/okian/flashquiz/pkg/metrics"
)

const defaultLockTimeout = 2 * time.Second

// Persister loads and saves the whole table.
//
// Load returns an empty table and no error when nothing is stored yet, and an
// error wrapping ErrMalformed when stored data cannot be decoded. Save must
// replace the table atomically: after a failed Save the previous table is
// still what Load returns.
type Persister interface {
	Load(ctx context.Context) ([]Entry, error)
	Save(ctx context.Context, entries []Entry) error
}

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithLockTimeout bounds how long Submit waits for the gate. Zero waits until
// the context ends.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d >= 0 {
			s.lockTimeout = d
		}
	}
}

// WithSize sets how many entries are kept.
func WithSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.size = n
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock replaces time.Now, used for the entry date.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store is the concurrency-safe leaderboard.
type Store struct {
	p    Persister
	gate chan struct{}
	rw   sync.RWMutex

	lockTimeout time.Duration
	size        int
	log         logger.Logger
	now         func() time.Time
}

// NewStore creates a Store backed by p.
func NewStore(p Persister, opts ...Option) *Store {
	s := &Store{
		p:           p,
		gate:        make(chan struct{}, 1),
		lockTimeout: defaultLockTimeout,
		size:        DefaultSize,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("leaderboard")
	}
	return s
}

// Size returns the maximum table length.
func (s *Store) Size() int { return s.size }

// Read returns the current table, or an empty one if nothing is stored or the
// stored data is unreadable. It never fails.
func (s *Store) Read(ctx context.Context) []Entry {
	s.rw.RLock()
	entries, err := s.p.Load(ctx)
	s.rw.RUnlock()

	metrics.RecordLeaderboardRead()
	if err != nil {
		s.loadFailed(ctx, err)
		return []Entry{}
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries
}

func (s *Store) loadFailed(ctx context.Context, err error) {
	if errors.Is(err, ErrMalformed) {
		metrics.RecordLeaderboardMalformed()
		s.log.Warn(ctx, "leaderboard data malformed, treating as empty", logger.Error(err))
		return
	}
	metrics.RecordLeaderboardError("read")
	s.log.Warn(ctx, "leaderboard read failed, treating as empty", logger.Error(err))
}

// Submit records a score and returns the updated table. The name is
// sanitized and the score coerced before insertion.
//
// ErrLockTimeout is returned when the gate is not acquired before the lock
// timeout or ctx ends, or when ctx ends before the save starts.
// ErrPersistence is returned when the save fails. In both cases the stored
// table is unchanged.
func (s *Store) Submit(ctx context.Context, name string, score any) ([]Entry, error) {
	start := s.now()

	if err := s.acquire(ctx); err != nil {
		metrics.RecordLeaderboardError("lock_timeout")
		s.log.Warn(ctx, "leaderboard busy", logger.Error(err))
		return nil, err
	}
	defer s.release()
	metrics.RecordLeaderboardLockWait(float64(s.now().Sub(start).Milliseconds()))
	if err := ctx.Err(); err != nil {
		return nil, abandoned(err)
	}

	current, err := s.p.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrMalformed) {
			metrics.RecordLeaderboardError("read")
			return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
		}
		s.loadFailed(ctx, err)
		current = nil
	}

	entry := Entry{
		Name:  SanitizeName(name),
		Score: CoerceScore(score),
		Date:  s.now().Format(DateLayout),
	}
	next := make([]Entry, 0, len(current)+1)
	next = append(next, current...)
	next = append(next, entry)
	next = Rank(next, s.size)

	if err := ctx.Err(); err != nil {
		return nil, abandoned(err)
	}

	s.rw.Lock()
	err = s.p.Save(ctx, next)
	s.rw.Unlock()
	if err != nil {
		metrics.RecordLeaderboardError("persistence")
		s.log.Error(ctx, "leaderboard save failed", logger.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	metrics.RecordLeaderboardSubmission()
	metrics.UpdateLeaderboardEntries(len(next))
	metrics.RecordLeaderboardSubmitLatency(float64(s.now().Sub(start).Milliseconds()))
	s.log.Debug(ctx, "score submitted",
		logger.String("name", entry.Name),
		logger.Float64("score", entry.Score),
		logger.Int("entries", len(next)))

	out := make([]Entry, len(next))
	copy(out, next)
	return out, nil
}

// Reset clears the table under the same gate as Submit.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	s.rw.Lock()
	err := s.p.Save(ctx, []Entry{})
	s.rw.Unlock()
	if err != nil {
		metrics.RecordLeaderboardError("persistence")
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	metrics.UpdateLeaderboardEntries(0)
	return nil
}

func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.gate <- struct{}{}:
		return nil
	default:
	}

	var timeout <-chan time.Time
	if s.lockTimeout > 0 {
		t := time.NewTimer(s.lockTimeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case s.gate <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrLockTimeout, ctx.Err())
	case <-timeout:
		return fmt.Errorf("%w: waited %s", ErrLockTimeout, s.lockTimeout)
	}
}

func (s *Store) release() { <-s.gate }

// abandoned reports a submit whose caller went away after the gate was taken.
// Nothing was written, so it is as retryable as a lock timeout.
func abandoned(err error) error {
	metrics.RecordLeaderboardError("cancelled")
	return fmt.Errorf("%w: %w", ErrLockTimeout, err)
}
