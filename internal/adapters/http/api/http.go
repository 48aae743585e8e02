// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/gamx/internal/adapters/mq/queue"
	"github.com/okian/gamx/internal/adapters/repository"
	"github.com/okian/gamx/internal/domain/model"
	"github.com/okian/gamx/internal/domain/scoring"
	"github.com/okian/gamx/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ResultDependencies
	ScoreDependencies
	TargetDependencies
	LeaderboardDependencies
	RankDependencies
}

// Entry mirrors the read shape returned by standings queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	resultsHandler     *ResultsHandler
	scoreHandler       *ScoreHandler
	targetHandler      *TargetHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps
// GET /leaderboard?limit.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		resultsHandler:     NewResultsHandler(deps),
		scoreHandler:       NewScoreHandler(deps),
		targetHandler:      NewTargetHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		rankHandler:        NewRankHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/results", MetricsMiddleware(s.resultsHandler.HandlePostResult, "results"))
	mux.HandleFunc("/score", MetricsMiddleware(s.scoreHandler.HandlePostScore, "score"))
	mux.HandleFunc("/target", MetricsMiddleware(s.targetHandler.HandlePostTarget, "target"))
	mux.HandleFunc("/target/", MetricsMiddleware(s.targetHandler.HandleGetTarget, "target_athlete"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/rank/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
}

// VariantDefaulter supplies the variant used when a request names none.
type VariantDefaulter interface {
	DefaultVariant() scoring.Variant
}

// variantParam reads ?variant=, falling back to the service default.
func variantParam(r *http.Request, d VariantDefaulter) (scoring.Variant, error) {
	return variantOrDefault(r.URL.Query().Get("variant"), d)
}

func variantOrDefault(s string, d VariantDefaulter) (scoring.Variant, error) {
	if strings.TrimSpace(s) == "" {
		return d.DefaultVariant(), nil
	}
	return scoring.ParseVariant(s)
}

// athleteParam returns the single path segment after prefix.
func athleteParam(r *http.Request, prefix string) (string, bool) {
	id := strings.TrimPrefix(r.URL.Path, prefix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
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

// writeFailure maps err to a status and code and writes it.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

// classify translates upstream sentinel errors to an HTTP status and code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBackpressure), errors.Is(err, queue.ErrFull):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, ErrUnavailable), errors.Is(err, queue.ErrClosed):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, model.ErrInvalidResult),
		errors.Is(err, scoring.ErrUnknownGender),
		errors.Is(err, scoring.ErrUnknownVariant),
		errors.Is(err, repository.ErrInvalidLimit):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, scoring.ErrTargetUnreachable):
		return http.StatusUnprocessableEntity, "target_unreachable"
	case errors.Is(err, scoring.ErrInvalidInput), errors.Is(err, scoring.ErrUndefined):
		return http.StatusUnprocessableEntity, "invalid_input"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, repository.ErrNoneAhead):
		return http.StatusConflict, "no_opponent"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "unavailable"
	}
	return http.StatusInternalServerError, "internal_error"
}
