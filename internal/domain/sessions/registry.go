// Package sessions keeps live quiz sessions and serializes access to each one.
//
// Each session has its own mutex. Access goes through With, which uses
// TryLock: a request that finds the session in use gets ErrSessionBusy and
// is expected to retry, instead of queueing behind the holder.
package sessions

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/flashquiz/internal/domain/deck"
	"github.com/okian/flashquiz/internal/domain/quiz"
	"github.com/okian/flashquiz/internal/domain/sampler"
	"github.com/okian/flashquiz/pkg/logger"
	"github.com/okian/flashquiz/pkg/metrics"
)

// Defaults.
const (
	defaultIdleTimeout   = 30 * time.Minute
	defaultSweepInterval = time.Minute
)

// Entry is the mutable state of one session. It is only touched inside With.
type Entry struct {
	ID        string
	Deck      string
	Pool      *deck.Pool
	Sampler   *sampler.Session
	Pending   *quiz.Result // quiz awaiting an answer
	Answered  int
	Correct   int
	CreatedAt time.Time
}

type slot struct {
	mu       sync.Mutex
	entry    *Entry
	lastSeen atomic.Int64 // unix nanos
	removed  atomic.Bool  // set once the slot leaves the map
}

// Registry owns all live sessions.
type Registry struct {
	mu    sync.RWMutex
	slots map[string]*slot

	idleTimeout   time.Duration
	sweepInterval time.Duration
	maxSessions   int
	log           logger.Logger
	now           func() time.Time

	closed    atomic.Bool
	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewRegistry creates a registry and starts its idle sweeper when expiry is enabled.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		slots:         make(map[string]*slot),
		idleTimeout:   defaultIdleTimeout,
		sweepInterval: defaultSweepInterval,
		now:           time.Now,
		stop:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Get().Named("sessions")
	}

	if r.idleTimeout > 0 {
		r.wg.Add(1)
		go r.sweepLoop()
	}
	return r
}

// Create starts a session over pool and returns its key.
func (r *Registry) Create(ctx context.Context, deckName string, pool *deck.Pool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if r.closed.Load() {
		return "", ErrRegistryClosed
	}

	now := r.now()
	id := uuid.NewString()
	s := &slot{entry: &Entry{
		ID:        id,
		Deck:      deckName,
		Pool:      pool,
		Sampler:   sampler.Start(pool),
		CreatedAt: now,
	}}
	s.lastSeen.Store(now.UnixNano())

	r.mu.Lock()
	if r.maxSessions > 0 && len(r.slots) >= r.maxSessions {
		r.mu.Unlock()
		return "", fmt.Errorf("%w: limit %d", ErrTooManySessions, r.maxSessions)
	}
	r.slots[id] = s
	n := len(r.slots)
	r.mu.Unlock()

	metrics.RecordSessionStarted()
	metrics.UpdateSessionsActive(n)
	r.log.Debug(ctx, "session started",
		logger.String("session", id),
		logger.String("deck", deckName),
		logger.Int("cards", pool.Len()))
	return id, nil
}

// With runs fn while holding the session's lock. The lock is released on
// every exit path, including a panic in fn.
func (r *Registry) With(ctx context.Context, key string, fn func(*Entry) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.RLock()
	s, ok := r.slots[key]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, key)
	}
	return r.enter(s, fn)
}

// enter locks a slot found by With. A slot swept or ended between the lookup
// and the lock is reported as not found.
func (r *Registry) enter(s *slot, fn func(*Entry) error) error {
	if !s.mu.TryLock() {
		metrics.RecordSessionBusy()
		return ErrSessionBusy
	}
	defer s.mu.Unlock()

	if s.removed.Load() {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, s.entry.ID)
	}
	s.lastSeen.Store(r.now().UnixNano())
	return fn(s.entry)
}

// End removes a session. Unknown keys return ErrSessionNotFound.
func (r *Registry) End(ctx context.Context, key string) error {
	r.mu.Lock()
	s, ok := r.slots[key]
	if ok {
		s.removed.Store(true)
		delete(r.slots, key)
	}
	n := len(r.slots)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, key)
	}
	metrics.UpdateSessionsActive(n)
	r.log.Debug(ctx, "session ended", logger.String("session", key))
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.slots)
}

// Sweep removes sessions idle longer than the idle timeout and returns how
// many were removed. Sessions currently locked are skipped.
func (r *Registry) Sweep(ctx context.Context) int {
	if r.idleTimeout <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTimeout).UnixNano()

	r.mu.Lock()
	removed := 0
	for key, s := range r.slots {
		if s.lastSeen.Load() > cutoff {
			continue
		}
		if !s.mu.TryLock() {
			continue
		}
		s.removed.Store(true)
		delete(r.slots, key)
		s.mu.Unlock()
		removed++
	}
	n := len(r.slots)
	r.mu.Unlock()

	if removed > 0 {
		metrics.RecordSessionsExpired(removed)
		metrics.UpdateSessionsActive(n)
		r.log.Info(ctx, "idle sessions expired", logger.Int("expired", removed), logger.Int("active", n))
	}
	return removed
}

func (r *Registry) sweepLoop() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.Sweep(context.Background())
		}
	}
}

// Close stops the sweeper. Existing sessions stay usable; new ones are refused.
func (r *Registry) Close() {
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		close(r.stop)
		r.wg.Wait()
	})
}
