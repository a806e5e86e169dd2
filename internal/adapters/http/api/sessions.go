package api

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"

	service "github.com/okian/flashquiz/internal/app"
	"github.com/okian/flashquiz/internal/domain/leaderboard"
	"github.com/okian/flashquiz/internal/domain/quiz"
)

// SessionDependencies defines the interface for quiz session operations.
type SessionDependencies interface {
	submitDependencies
	StartSession(ctx context.Context, deckName string) (service.SessionInfo, error)
	SessionInfo(ctx context.Context, sessionID string) (service.SessionInfo, error)
	EndSession(ctx context.Context, sessionID string) error
	NextQuiz(ctx context.Context, sessionID string, mode quiz.Mode, apiKey string) (service.Quiz, error)
	Answer(ctx context.Context, sessionID, answer string) (service.AnswerResult, error)
	RecordScore(ctx context.Context, sessionID string, delta float64) (float64, error)
	SubmitSession(ctx context.Context, sessionID, name string) ([]leaderboard.Entry, error)
}

// SessionHandler handles session requests.
type SessionHandler struct {
	deps SessionDependencies
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps SessionDependencies) *SessionHandler {
	return &SessionHandler{deps: deps}
}

// HandleStart handles POST /api/sessions requests.
func (h *SessionHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	const op = "api.start_session"
	var req startSessionRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Deck) == "" {
		fail(w, WrapKind(op, ErrBadRequest, errors.New("missing deck")))
		return
	}
	info, err := h.deps.StartSession(r.Context(), strings.TrimSpace(req.Deck))
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// HandleGet handles GET /api/sessions/{id} requests.
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_session"
	id, err := sessionID(r)
	if err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	info, err := h.deps.SessionInfo(r.Context(), id)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// HandleEnd handles DELETE /api/sessions/{id} requests.
func (h *SessionHandler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	const op = "api.end_session"
	id, err := sessionID(r)
	if err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.EndSession(r.Context(), id); err != nil {
		fail(w, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleNext handles POST /api/sessions/{id}/next requests. The solution is
// withheld until the quiz is answered.
func (h *SessionHandler) HandleNext(w http.ResponseWriter, r *http.Request) {
	const op = "api.next_quiz"
	id, err := sessionID(r)
	if err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	var req nextRequest
	if err := decodeBody(w, r, &req, true); err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	mode, err := parseMode(req.Mode)
	if err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	q, err := h.deps.NextQuiz(r.Context(), id, mode, strings.TrimSpace(r.Header.Get(APIKeyHeader)))
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, redact(q))
}

// HandleAnswer handles POST /api/sessions/{id}/answer requests.
func (h *SessionHandler) HandleAnswer(w http.ResponseWriter, r *http.Request) {
	const op = "api.answer"
	id, err := sessionID(r)
	if err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	var req answerRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.deps.Answer(r.Context(), id, req.Answer)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleScore handles POST /api/sessions/{id}/score requests.
func (h *SessionHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.record_score"
	id, err := sessionID(r)
	if err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	var req scoreRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.Delta == nil || math.IsNaN(*req.Delta) || math.IsInf(*req.Delta, 0) {
		fail(w, WrapKind(op, ErrBadRequest, errors.New("delta must be a finite number")))
		return
	}
	score, err := h.deps.RecordScore(r.Context(), id, *req.Delta)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, scoreResponse{Score: score})
}

// HandleSubmit handles POST /api/sessions/{id}/submit requests.
func (h *SessionHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_session"
	id, err := sessionID(r)
	if err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	var req submitSessionRequest
	if err := decodeBody(w, r, &req, true); err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	submitOnce(w, r, h.deps, op, func() ([]leaderboard.Entry, error) {
		return h.deps.SubmitSession(r.Context(), id, req.Name)
	})
}
