package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/gamx/internal/domain/scoring"
	"github.com/okian/gamx/internal/domain/types"
)

// TargetDependencies defines what the target endpoints need.
type TargetDependencies interface {
	VariantDefaulter
	Target(ctx context.Context, req scoring.TargetRequest) (scoring.Solution, error)
	TargetFor(ctx context.Context, v scoring.Variant, athleteID string) (types.Target, error)
}

// targetRequest mirrors the OpenAPI schema for POST /target.
type targetRequest struct {
	Gender   string  `json:"gender"`
	BodyMass float64 `json:"body_mass"`
	Score    float64 `json:"score"`
	Age      int     `json:"age"`
	Variant  string  `json:"variant"`
}

type targetResponse struct {
	Variant string `json:"variant"`
	scoring.Solution
}

// TargetHandler solves for the total that beats a score.
type TargetHandler struct {
	deps TargetDependencies
}

// NewTargetHandler creates a new target handler.
func NewTargetHandler(deps TargetDependencies) *TargetHandler {
	return &TargetHandler{deps: deps}
}

// HandlePostTarget handles POST /target requests.
func (h *TargetHandler) HandlePostTarget(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_target"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req targetRequest
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

	sol, err := h.deps.Target(r.Context(), scoring.TargetRequest{
		Gender:   g,
		Variant:  v,
		BodyMass: req.BodyMass,
		Score:    req.Score,
		Age:      req.Age,
	})
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	sol.Score = scoring.Round2(sol.Score)
	writeJSON(w, http.StatusOK, targetResponse{Variant: v.String(), Solution: sol})
}

// HandleGetTarget handles GET /target/{athlete_id}?variant=V requests.
func (h *TargetHandler) HandleGetTarget(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_target"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id, ok := athleteParam(r, "/target/")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	v, err := variantParam(r, h.deps)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	target, err := h.deps.TargetFor(r.Context(), v, id)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, target)
}
