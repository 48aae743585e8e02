package api

import (
	"context"
	"net/http"

	"github.com/okian/gamx/internal/domain/scoring"
)

// RankDependencies defines the interface for rank operations.
type RankDependencies interface {
	VariantDefaulter
	Rank(ctx context.Context, v scoring.Variant, athleteID string) (Entry, error)
}

// RankHandler handles rank requests.
type RankHandler struct {
	deps RankDependencies
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps RankDependencies) *RankHandler {
	return &RankHandler{deps: deps}
}

// HandleGetRank handles GET /rank/{athlete_id}?variant=V requests.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rank"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id, ok := athleteParam(r, "/rank/")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	v, err := variantParam(r, h.deps)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	entry, err := h.deps.Rank(r.Context(), v, id)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
