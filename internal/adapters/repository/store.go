// Package repository holds the in-memory standings.
package repository

import (
	"context"

	"github.com/okian/gamx/internal/domain/model"
)

// Entry represents a standings row.
type Entry struct {
	Rank      int
	AthleteID string
	Score     float64
	Result    model.LiftResult
}

// Store provides read/write access to the standings of one variant.
type Store interface {
	// UpdateBest records s if it beats the athlete's current best at two
	// decimals. Returns true if the store changed.
	UpdateBest(ctx context.Context, s model.AthleteScore) (bool, error)

	// Rank returns the current rank and score for an athlete.
	// Returns ErrNotFound if the athlete is unknown.
	Rank(ctx context.Context, athleteID string) (Entry, error)

	// Above returns the closest entry with a strictly higher score.
	// Returns ErrNoneAhead when the athlete leads.
	Above(ctx context.Context, athleteID string) (Entry, error)

	// TopN returns the top-N entries ordered by score desc.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of athletes tracked.
	Count(ctx context.Context) int
}
