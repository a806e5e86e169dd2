package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	service "github.com/okian/flashquiz/internal/app"
	"github.com/okian/flashquiz/internal/domain/deck"
	"github.com/okian/flashquiz/internal/domain/leaderboard"
	"github.com/okian/flashquiz/internal/domain/quiz"
	"github.com/okian/flashquiz/internal/domain/sampler"
	"github.com/okian/flashquiz/internal/domain/sessions"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// Error carries the failing operation, a sentinel kind and the cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Kind != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Kind != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return e.Op
}

// Unwrap exposes both kind and cause to errors.Is.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Wrap annotates err with op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// WrapKind annotates err with op and a sentinel kind.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// NewKind builds an error that is only a sentinel kind.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// classify maps domain errors to an HTTP status and a stable error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, quiz.ErrUnknownMode):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, quiz.ErrMissingAPIKey):
		return http.StatusUnauthorized, "missing_api_key"
	case errors.Is(err, deck.ErrDeckNotFound):
		return http.StatusNotFound, "deck_not_found"
	case errors.Is(err, sessions.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, sampler.ErrEmptyPool):
		return http.StatusConflict, "empty_pool"
	case errors.Is(err, service.ErrNoPendingQuiz):
		return http.StatusConflict, "no_pending_quiz"
	case errors.Is(err, sessions.ErrSessionBusy):
		return http.StatusConflict, "retry"
	case errors.Is(err, sessions.ErrTooManySessions):
		return http.StatusTooManyRequests, "too_many_sessions"
	case errors.Is(err, leaderboard.ErrLockTimeout),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "retry"
	case errors.Is(err, service.ErrNotStarted),
		errors.Is(err, sessions.ErrRegistryClosed):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, quiz.ErrGeneration),
		errors.Is(err, quiz.ErrInvalidContent):
		return http.StatusBadGateway, "generation_failed"
	case errors.Is(err, leaderboard.ErrPersistence):
		return http.StatusInternalServerError, "persistence_failure"
	}
	return http.StatusInternalServerError, "internal_error"
}
