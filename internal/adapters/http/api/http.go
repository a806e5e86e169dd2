// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	service "github.com/okian/flashquiz/internal/app"
	"github.com/okian/flashquiz/internal/domain/deck"
	"github.com/okian/flashquiz/internal/domain/dedupe"
	"github.com/okian/flashquiz/internal/domain/leaderboard"
	"github.com/okian/flashquiz/internal/domain/quiz"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Request headers.
const (
	// APIKeyHeader carries the caller's model credential for quiz generation.
	APIKeyHeader = "X-API-Key"
	// IdempotencyKeyHeader makes a score submit safe to retry.
	IdempotencyKeyHeader = "Idempotency-Key"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	DeckDependencies
	SessionDependencies
	LeaderboardDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	deckHandler        *DeckHandler
	sessionHandler     *SessionHandler
	leaderboardHandler *LeaderboardHandler
}

// NewServer creates a new API server with all handlers. When statsProvider
// also implements Checker, /healthz reports its readiness.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	check, _ := statsProvider.(Checker)
	return &Server{
		healthHandler:      NewHealthHandler(check),
		statsHandler:       NewStatsHandler(statsProvider),
		deckHandler:        NewDeckHandler(deps),
		sessionHandler:     NewSessionHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /api/decks", MetricsMiddleware(s.deckHandler.HandleList, "decks"))

	mux.HandleFunc("POST /api/sessions", MetricsMiddleware(s.sessionHandler.HandleStart, "session_start"))
	mux.HandleFunc("GET /api/sessions/{id}", MetricsMiddleware(s.sessionHandler.HandleGet, "session_get"))
	mux.HandleFunc("DELETE /api/sessions/{id}", MetricsMiddleware(s.sessionHandler.HandleEnd, "session_end"))
	mux.HandleFunc("POST /api/sessions/{id}/next", MetricsMiddleware(s.sessionHandler.HandleNext, "next"))
	mux.HandleFunc("POST /api/sessions/{id}/answer", MetricsMiddleware(s.sessionHandler.HandleAnswer, "answer"))
	mux.HandleFunc("POST /api/sessions/{id}/score", MetricsMiddleware(s.sessionHandler.HandleScore, "score"))
	mux.HandleFunc("POST /api/sessions/{id}/submit", MetricsMiddleware(s.sessionHandler.HandleSubmit, "session_submit"))

	mux.HandleFunc("GET /api/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGet, "leaderboard"))
	mux.HandleFunc("POST /api/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleSubmit, "leaderboard_submit"))
}

type startSessionRequest struct {
	Deck string `json:"deck"`
}

type nextRequest struct {
	Mode string `json:"mode"`
}

type answerRequest struct {
	Answer string `json:"answer"`
}

type scoreRequest struct {
	Delta *float64 `json:"delta"`
}

type scoreResponse struct {
	Score float64 `json:"score"`
}

type submitSessionRequest struct {
	Name string `json:"name"`
}

// submitRequest keeps score untyped so strings and numbers both reach
// leaderboard coercion.
type submitRequest struct {
	Name  string `json:"name"`
	Score any    `json:"score"`
}

type decksResponse struct {
	Decks []deck.Summary `json:"decks"`
}

type leaderboardResponse struct {
	Entries   []leaderboard.Entry `json:"entries"`
	Duplicate bool                `json:"duplicate,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail writes err with the status its kind maps to.
func fail(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched when
// optional is set.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

func sessionID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		return "", errors.New("missing session id")
	}
	return id, nil
}

func parseMode(raw string) (quiz.Mode, error) {
	mode, err := quiz.ParseMode(raw)
	if err != nil {
		return "", fmt.Errorf("mode: %w", err)
	}
	return mode, nil
}

// submitDependencies is what an idempotent submit needs besides the submit
// itself.
type submitDependencies interface {
	dedupe.Deduper
	Leaderboard(ctx context.Context) []leaderboard.Entry
}

// submitOnce runs submit unless the request's idempotency key was already
// used, in which case the current table is replayed. A failed submit forgets
// the key so the client can retry.
func submitOnce(w http.ResponseWriter, r *http.Request, deps submitDependencies, op string, submit func() ([]leaderboard.Entry, error)) {
	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if key != "" {
		key = op + ":" + key
		if deps.SeenAndRecord(r.Context(), key) {
			writeJSON(w, http.StatusOK, leaderboardResponse{Entries: deps.Leaderboard(r.Context()), Duplicate: true})
			return
		}
	}
	entries, err := submit()
	if err != nil {
		if key != "" {
			deps.Unrecord(r.Context(), key)
		}
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{Entries: entries})
}

// redact hides the solution of a quiz until it is answered.
func redact(q service.Quiz) service.Quiz {
	q.Result = q.Result.Redacted()
	return q
}
