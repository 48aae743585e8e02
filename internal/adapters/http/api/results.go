package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/okian/gamx/internal/adapters/mq/queue"
	"github.com/okian/gamx/internal/domain/model"
	"github.com/okian/gamx/internal/domain/scoring"
)

// ResultDependencies defines what POST /results needs.
type ResultDependencies interface {
	VariantDefaulter
	// Submit queues a result. It reports duplicate=true when the result id
	// was seen before.
	Submit(ctx context.Context, r model.LiftResult) (duplicate bool, err error)
}

// resultRequest mirrors the OpenAPI schema for POST /results.
type resultRequest struct {
	ResultID  string  `json:"result_id"`
	AthleteID string  `json:"athlete_id"`
	Gender    string  `json:"gender"`
	BodyMass  float64 `json:"body_mass"`
	Total     float64 `json:"total"`
	Age       int     `json:"age"`
	Variant   string  `json:"variant"`
	TS        string  `json:"ts"`
}

func (req resultRequest) toResult(d VariantDefaulter) (model.LiftResult, error) {
	if strings.TrimSpace(req.AthleteID) == "" {
		return model.LiftResult{}, errors.New("missing athlete_id")
	}
	g, err := scoring.ParseGender(req.Gender)
	if err != nil {
		return model.LiftResult{}, err
	}
	v, err := variantOrDefault(req.Variant, d)
	if err != nil {
		return model.LiftResult{}, err
	}
	r := model.LiftResult{
		ResultID:  strings.TrimSpace(req.ResultID),
		AthleteID: req.AthleteID,
		Gender:    g,
		BodyMass:  req.BodyMass,
		Total:     req.Total,
		Age:       req.Age,
		Variant:   v,
	}
	if req.TS != "" {
		ts, err := time.Parse(time.RFC3339, req.TS)
		if err != nil {
			return model.LiftResult{}, errors.New("invalid ts; must be RFC3339")
		}
		r.TS = ts
	}
	return r, nil
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// ResultsHandler handles result submissions.
type ResultsHandler struct {
	deps ResultDependencies
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(deps ResultDependencies) *ResultsHandler {
	return &ResultsHandler{deps: deps}
}

// HandlePostResult handles POST /results requests.
func (h *ResultsHandler) HandlePostResult(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_result"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req resultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := req.toResult(h.deps)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	dup, err := h.deps.Submit(r.Context(), res)
	if err != nil {
		writeFailure(w, submitFailure(op, err))
		return
	}
	if dup {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}

// submitFailure tags queue failures with the kind the client acts on.
func submitFailure(op string, err error) error {
	switch {
	case errors.Is(err, queue.ErrFull):
		return WrapKind(op, ErrBackpressure, err)
	case errors.Is(err, queue.ErrClosed):
		return WrapKind(op, ErrUnavailable, err)
	}
	return Wrap(op, err)
}
