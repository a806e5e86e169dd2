package api

import (
	"context"
	"net/http"

	"github.com/okian/flashquiz/internal/domain/dedupe"
	"github.com/okian/flashquiz/internal/domain/leaderboard"
)

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	dedupe.Deduper
	Leaderboard(ctx context.Context) []leaderboard.Entry
	SubmitScore(ctx context.Context, name string, score any) ([]leaderboard.Entry, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps LeaderboardDependencies
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

// HandleGet handles GET /api/leaderboard requests. A missing or unreadable
// table is served as empty.
func (h *LeaderboardHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, leaderboardResponse{Entries: h.deps.Leaderboard(r.Context())})
}

// HandleSubmit handles POST /api/leaderboard requests. An Idempotency-Key
// header makes retries safe.
func (h *LeaderboardHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_score"
	var req submitRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	submitOnce(w, r, h.deps, op, func() ([]leaderboard.Entry, error) {
		return h.deps.SubmitScore(r.Context(), req.Name, req.Score)
	})
}
