package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/gamx/internal/domain/scoring"
)

// ScoreDependencies defines what POST /score needs.
type ScoreDependencies interface {
	VariantDefaulter
	Score(ctx context.Context, req scoring.Request) (float64, error)
}

// scoreRequest mirrors the OpenAPI schema for POST /score.
type scoreRequest struct {
	Gender   string  `json:"gender"`
	BodyMass float64 `json:"body_mass"`
	Total    float64 `json:"total"`
	Age      int     `json:"age"`
	Variant  string  `json:"variant"`
}

type scoreResponse struct {
	Variant string  `json:"variant"`
	Score   float64 `json:"score"`
	// Raw is the unrounded score.
	Raw float64 `json:"raw"`
}

// ScoreHandler computes single scores.
type ScoreHandler struct {
	deps ScoreDependencies
}

// NewScoreHandler creates a new score handler.
func NewScoreHandler(deps ScoreDependencies) *ScoreHandler {
	return &ScoreHandler{deps: deps}
}

// HandlePostScore handles POST /score requests.
func (h *ScoreHandler) HandlePostScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_score"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	g, err := scoring.ParseGender(req.Gender)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	v, err := variantOrDefault(req.Variant, h.deps)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}

	score, err := h.deps.Score(r.Context(), scoring.Request{
		Gender:   g,
		Variant:  v,
		BodyMass: req.BodyMass,
		Total:    req.Total,
		Age:      req.Age,
	})
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, scoreResponse{Variant: v.String(), Score: scoring.Round2(score), Raw: score})
}
