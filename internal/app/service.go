// Package service wires decks, sessions, quiz generation and the leaderboard
// into the operations exposed by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/okian/flashquiz/internal/adapters/repository"
	"github.com/okian/flashquiz/internal/domain/deck"
	"github.com/okian/flashquiz/internal/domain/dedupe"
	"github.com/okian/flashquiz/internal/domain/leaderboard"
	"github.com/okian/flashquiz/internal/domain/quiz"
	"github.com/okian/flashquiz/internal/domain/sampler"
	"github.com/okian/flashquiz/internal/domain/sessions"
	"github.com/okian/flashquiz/pkg/logger"
	"github.com/okian/flashquiz/pkg/metrics"
)

// How long NextQuiz keeps retrying to stash a generated quiz on a busy session.
const (
	pendingRetries  = 20
	pendingRetryGap = 5 * time.Millisecond
)

// SessionInfo is a snapshot of a session's progress.
type SessionInfo struct {
	ID        string  `json:"session_id"`
	Deck      string  `json:"deck"`
	Cards     int     `json:"cards"`
	Served    int     `json:"served"`
	Remaining int     `json:"remaining"`
	Cycle     int     `json:"cycle"`
	Score     float64 `json:"score"`
	Answered  int     `json:"answered"`
	Correct   int     `json:"correct"`
	Pending   bool    `json:"pending"`
}

// Quiz is a generated question for a session.
type Quiz struct {
	quiz.Result
	Index     int `json:"index"`
	Cycle     int `json:"cycle"`
	Remaining int `json:"remaining"`
}

// AnswerResult reports the outcome of an answer.
type AnswerResult struct {
	Correct    bool    `json:"correct"`
	Expected   string  `json:"expected"`
	FullAnswer string  `json:"full_answer,omitempty"`
	Source     string  `json:"source,omitempty"`
	Score      float64 `json:"score"`
}

// Service implements the API dependencies for the quiz system.
type Service struct {
	mu sync.RWMutex

	// Core components
	catalog  *deck.Catalog
	watcher  *deck.Watcher
	sessions *sessions.Registry
	board    *leaderboard.Store
	source   quiz.Source
	offline  *quiz.Offline
	deduper  dedupe.Deduper
	closer   io.Closer

	// Configuration
	deckDir           string
	watchDecks        bool
	backendName       string
	backendPath       string
	persister         leaderboard.Persister
	leaderboardSize   int
	lockTimeout       time.Duration
	idleTimeout       time.Duration
	sweepInterval     time.Duration
	maxSessions       int
	dedupeSize        int
	offlineMinLatency time.Duration
	offlineMaxLatency time.Duration

	// State
	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		backendName:     repository.BackendFile,
		backendPath:     "leaderboard.json",
		leaderboardSize: leaderboard.DefaultSize,
		lockTimeout:     2 * time.Second,
		idleTimeout:     30 * time.Minute,
		sweepInterval:   time.Minute,
		maxSessions:     10_000,
		dedupeSize:      10_000,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start loads decks, opens the leaderboard backend and starts background work.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting quiz service...")

	if s.catalog == nil {
		s.catalog = deck.NewCatalog(deck.WithLogger(s.logger.Named("deck")))
	}
	if s.deckDir != "" {
		if err := s.catalog.LoadDir(ctx, s.deckDir); err != nil {
			return fmt.Errorf("load decks: %w", err)
		}
	}

	if s.source == nil {
		s.offline = quiz.NewOffline(quiz.WithLatencyRange(s.offlineMinLatency, s.offlineMaxLatency))
		s.feedCorpus(ctx, s.catalog)
		s.source = quiz.Static{Generator: s.offline}
	}

	persister := s.persister
	if persister == nil {
		backend, err := repository.Open(ctx, s.backendName, s.backendPath)
		if err != nil {
			return err
		}
		persister, s.closer = backend, backend
	}
	s.board = leaderboard.NewStore(persister,
		leaderboard.WithSize(s.leaderboardSize),
		leaderboard.WithLockTimeout(s.lockTimeout),
		leaderboard.WithLogger(s.logger.Named("leaderboard")),
	)

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))

	s.sessions = sessions.NewRegistry(
		sessions.WithIdleTimeout(s.idleTimeout),
		sessions.WithSweepInterval(s.sweepInterval),
		sessions.WithMaxSessions(s.maxSessions),
		sessions.WithLogger(s.logger.Named("sessions")),
	)

	bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	if s.watchDecks && s.deckDir != "" {
		w, err := deck.NewWatcher(s.catalog, s.deckDir,
			deck.OnReload(s.feedCorpus),
			deck.WithWatchLogger(s.logger.Named("deck-watch")))
		if err != nil {
			s.logger.Warn(ctx, "deck hot reload disabled", logger.Error(err))
		} else {
			s.watcher = w
			go w.Run(bg)
		}
	}

	s.started = true
	s.logger.Info(ctx, "quiz service started",
		logger.Int("decks", s.catalog.Len()),
		logger.String("backend", s.backendName),
		logger.Int("leaderboardSize", s.leaderboardSize),
		logger.Int("maxSessions", s.maxSessions),
	)
	return nil
}

// feedCorpus gives the offline generator every answer as distractor material.
func (s *Service) feedCorpus(_ context.Context, c *deck.Catalog) {
	if s.offline == nil {
		return
	}
	for _, d := range c.List() {
		p, err := c.Get(d.Name)
		if err != nil {
			continue
		}
		answers := make([]string, 0, p.Len())
		for _, card := range p.Cards() {
			answers = append(answers, card.Answer)
		}
		s.offline.AddCorpus(answers...)
	}
}

// Stop shuts down background work and closes the leaderboard backend.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping quiz service...")

	if s.cancel != nil {
		s.cancel()
	}
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
	if s.sessions != nil {
		s.sessions.Close()
	}
	if s.closer != nil {
		if err := s.closer.Close(); err != nil {
			s.logger.Warn(context.Background(), "closing leaderboard backend", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(context.Background(), "quiz service stopped")
}

// Ready returns ErrNotStarted unless the service is running.
func (s *Service) Ready() error { return s.ready() }

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// ListDecks returns the loaded decks.
func (s *Service) ListDecks(_ context.Context) []deck.Summary {
	if s.ready() != nil {
		return []deck.Summary{}
	}
	return s.catalog.List()
}

// StartSession opens a session on the named deck.
func (s *Service) StartSession(ctx context.Context, deckName string) (SessionInfo, error) {
	if err := s.ready(); err != nil {
		return SessionInfo{}, err
	}
	pool, err := s.catalog.Get(deckName)
	if err != nil {
		return SessionInfo{}, err
	}
	id, err := s.sessions.Create(ctx, deckName, pool)
	if err != nil {
		return SessionInfo{}, err
	}
	return s.SessionInfo(ctx, id)
}

// NextQuiz draws the next card for a session and generates a quiz from it.
// The session lock is not held while the generator runs.
func (s *Service) NextQuiz(ctx context.Context, sessionID string, mode quiz.Mode, apiKey string) (Quiz, error) {
	if err := s.ready(); err != nil {
		return Quiz{}, err
	}
	gen, err := s.source.ForKey(apiKey)
	if err != nil {
		return Quiz{}, err
	}

	var (
		card deck.Card
		out  Quiz
	)
	err = s.sessions.With(ctx, sessionID, func(e *sessions.Entry) error {
		before := e.Sampler.Cycle()
		idx, err := e.Sampler.Next()
		if err != nil {
			if errors.Is(err, sampler.ErrEmptyPool) {
				metrics.RecordEmptyPool()
			}
			return err
		}
		if e.Sampler.Cycle() != before {
			metrics.RecordPoolExhausted()
		}
		c, ok := e.Pool.Card(idx)
		if !ok {
			return fmt.Errorf("card %d missing from deck %q", idx, e.Deck)
		}
		card = c
		out.Index = idx
		out.Cycle = e.Sampler.Cycle()
		out.Remaining = e.Sampler.Remaining()
		return nil
	})
	if err != nil {
		return Quiz{}, err
	}
	metrics.RecordCardServed()

	start := time.Now()
	result, err := gen.Generate(ctx, mode, card.Question, card.Answer)
	metrics.RecordGenerationLatency(gen.Name(), string(mode), float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordGenerationError(gen.Name(), string(mode))
		s.logger.Warn(ctx, "quiz generation failed",
			logger.String("session", sessionID),
			logger.String("provider", gen.Name()),
			logger.String("mode", string(mode)),
			logger.Error(err))
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Quiz{}, err
		}
		return Quiz{}, fmt.Errorf("%w: %w", quiz.ErrGeneration, err)
	}
	result.Source = card.Source
	out.Result = result

	if err := s.storePending(ctx, sessionID, result); err != nil {
		return Quiz{}, err
	}
	return out, nil
}

func (s *Service) storePending(ctx context.Context, sessionID string, r quiz.Result) error {
	pending := r
	for attempt := 0; ; attempt++ {
		err := s.sessions.With(ctx, sessionID, func(e *sessions.Entry) error {
			e.Pending = &pending
			return nil
		})
		if !errors.Is(err, sessions.ErrSessionBusy) || attempt >= pendingRetries {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pendingRetryGap):
		}
	}
}

// Answer checks an answer against the session's pending quiz. A correct
// answer adds one point.
func (s *Service) Answer(ctx context.Context, sessionID, answer string) (AnswerResult, error) {
	if err := s.ready(); err != nil {
		return AnswerResult{}, err
	}
	var out AnswerResult
	err := s.sessions.With(ctx, sessionID, func(e *sessions.Entry) error {
		if e.Pending == nil {
			return ErrNoPendingQuiz
		}
		p := *e.Pending
		out.Correct = quiz.Check(p, answer)
		out.Expected = p.Expected()
		out.FullAnswer = p.FullAnswer
		out.Source = p.Source
		e.Answered++
		if out.Correct {
			e.Correct++
			out.Score = e.Sampler.RecordScore(1)
		} else {
			out.Score = e.Sampler.Score()
		}
		e.Pending = nil

		outcome := "incorrect"
		if out.Correct {
			outcome = "correct"
		}
		metrics.RecordAnswerChecked(string(p.Mode), outcome)
		return nil
	})
	return out, err
}

// RecordScore adds delta to a session's score.
func (s *Service) RecordScore(ctx context.Context, sessionID string, delta float64) (float64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	var score float64
	err := s.sessions.With(ctx, sessionID, func(e *sessions.Entry) error {
		score = e.Sampler.RecordScore(delta)
		return nil
	})
	return score, err
}

// SessionInfo returns a session's progress.
func (s *Service) SessionInfo(ctx context.Context, sessionID string) (SessionInfo, error) {
	if err := s.ready(); err != nil {
		return SessionInfo{}, err
	}
	var info SessionInfo
	err := s.sessions.With(ctx, sessionID, func(e *sessions.Entry) error {
		info = SessionInfo{
			ID:        e.ID,
			Deck:      e.Deck,
			Cards:     e.Sampler.Size(),
			Served:    e.Sampler.Served(),
			Remaining: e.Sampler.Remaining(),
			Cycle:     e.Sampler.Cycle(),
			Score:     e.Sampler.Score(),
			Answered:  e.Answered,
			Correct:   e.Correct,
			Pending:   e.Pending != nil,
		}
		return nil
	})
	return info, err
}

// EndSession discards a session.
func (s *Service) EndSession(ctx context.Context, sessionID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.sessions.End(ctx, sessionID)
}

// Leaderboard returns the current table.
func (s *Service) Leaderboard(ctx context.Context) []leaderboard.Entry {
	if s.ready() != nil {
		return []leaderboard.Entry{}
	}
	return s.board.Read(ctx)
}

// SubmitScore records an arbitrary score.
func (s *Service) SubmitScore(ctx context.Context, name string, score any) ([]leaderboard.Entry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.board.Submit(ctx, name, score)
}

// SubmitSession records a session's current score under name. The session
// lock is released before the leaderboard lock is taken.
func (s *Service) SubmitSession(ctx context.Context, sessionID, name string) ([]leaderboard.Entry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var score float64
	err := s.sessions.With(ctx, sessionID, func(e *sessions.Entry) error {
		score = e.Sampler.Score()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.board.Submit(ctx, name, score)
}

// SeenAndRecord implements dedupe.Deduper for idempotent submits.
func (s *Service) SeenAndRecord(ctx context.Context, key string) bool {
	if s.ready() != nil {
		return false
	}
	return s.deduper.SeenAndRecord(ctx, key)
}

// Unrecord implements dedupe.Deduper.
func (s *Service) Unrecord(ctx context.Context, key string) {
	if s.ready() != nil {
		return
	}
	s.deduper.Unrecord(ctx, key)
}

// Size implements dedupe.Deduper.
func (s *Service) Size() int64 {
	if s.ready() != nil {
		return 0
	}
	return s.deduper.Size()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"backend":         s.backendName,
		"leaderboardSize": s.leaderboardSize,
		"maxSessions":     s.maxSessions,
	}

	if s.started {
		active := s.sessions.Len()
		stats["activeSessions"] = active
		stats["decks"] = s.catalog.Len()
		stats["generator"] = generatorName(s.source)
		stats["idempotencyKeys"] = s.deduper.Size()

		metrics.UpdateSessionsActive(active)
		metrics.UpdateDecksLoaded(s.catalog.Len())
	}

	return stats
}

func generatorName(src quiz.Source) string {
	switch v := src.(type) {
	case quiz.Static:
		return v.Name()
	case interface{ Provider() string }:
		return v.Provider()
	}
	return "custom"
}
