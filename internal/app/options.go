package service

import (
	"time"

	"github.com/okian/flashquiz/internal/domain/deck"
	"github.com/okian/flashquiz/internal/domain/leaderboard"
	"github.com/okian/flashquiz/internal/domain/quiz"
	"github.com/okian/flashquiz/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDeckDir loads every deck in dir on Start.
func WithDeckDir(dir string) Option {
	return func(s *Service) {
		s.deckDir = dir
	}
}

// WithWatchDecks reloads decks when files in the deck dir change.
func WithWatchDecks(enabled bool) Option {
	return func(s *Service) {
		s.watchDecks = enabled
	}
}

// WithCatalog uses a prepared catalog instead of loading a directory.
func WithCatalog(c *deck.Catalog) Option {
	return func(s *Service) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithLeaderboardBackend selects the persistence backend and its path.
func WithLeaderboardBackend(backend, path string) Option {
	return func(s *Service) {
		s.backendName = backend
		s.backendPath = path
	}
}

// WithPersister uses p directly, bypassing backend selection.
func WithPersister(p leaderboard.Persister) Option {
	return func(s *Service) {
		if p != nil {
			s.persister = p
		}
	}
}

// WithLeaderboardSize sets how many leaderboard entries are kept.
func WithLeaderboardSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.leaderboardSize = n
		}
	}
}

// WithLockTimeout bounds how long a score submission waits for the lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.lockTimeout = d
		}
	}
}

// WithSessionIdleTimeout expires idle sessions.
func WithSessionIdleTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.idleTimeout = d
		}
	}
}

// WithSessionSweepInterval sets how often idle sessions are collected.
func WithSessionSweepInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// WithMaxSessions caps live sessions.
func WithMaxSessions(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxSessions = n
		}
	}
}

// WithDedupeSize sets how many idempotency keys are remembered. Zero or
// negative means unbounded.
func WithDedupeSize(n int) Option {
	return func(s *Service) {
		s.dedupeSize = n
	}
}

// WithGenerator sets where quiz generators come from. Defaults to the
// offline generator.
func WithGenerator(src quiz.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// WithOfflineLatency makes the offline generator simulate model latency.
func WithOfflineLatency(minLatency, maxLatency time.Duration) Option {
	return func(s *Service) {
		if minLatency > 0 && maxLatency > minLatency {
			s.offlineMinLatency = minLatency
			s.offlineMaxLatency = maxLatency
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
