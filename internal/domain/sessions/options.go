package sessions

import (
	"time"

	"github.com/okian/flashquiz/pkg/logger"
)

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithIdleTimeout expires sessions not used for d. Zero disables expiry.
func WithIdleTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d >= 0 {
			r.idleTimeout = d
		}
	}
}

// WithSweepInterval sets how often the background sweeper runs.
func WithSweepInterval(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.sweepInterval = d
		}
	}
}

// WithMaxSessions caps live sessions. Zero or negative means unbounded.
func WithMaxSessions(n int) Option {
	return func(r *Registry) {
		r.maxSessions = n
	}
}

// WithLogger sets the registry logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}
