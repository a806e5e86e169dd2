package api

import (
	"context"
	"net/http"

	"github.com/okian/flashquiz/internal/domain/deck"
)

// DeckDependencies lists loaded decks.
type DeckDependencies interface {
	ListDecks(ctx context.Context) []deck.Summary
}

// DeckHandler handles deck requests.
type DeckHandler struct {
	deps DeckDependencies
}

// NewDeckHandler creates a new deck handler.
func NewDeckHandler(deps DeckDependencies) *DeckHandler {
	return &DeckHandler{deps: deps}
}

// HandleList handles GET /api/decks requests.
func (h *DeckHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, decksResponse{Decks: h.deps.ListDecks(r.Context())})
}
