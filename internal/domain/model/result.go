// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/gamx/internal/domain/scoring"
)

// resultNamespace scopes ids derived from result content.
var resultNamespace = uuid.MustParse("6b1f7f1e-3c2a-5d8e-9a41-0c7d2e5b9f30")

// LiftResult is one competitor's total as reported by the meet.
type LiftResult struct {
	ResultID  string // unique id for idempotency
	AthleteID string
	Gender    scoring.Gender
	BodyMass  float64 // kg
	Total     float64 // kg
	Age       int     // only read by age-dependent variants
	Variant   scoring.Variant
	TS        time.Time
}

// Request is the scoring request for the result.
func (r LiftResult) Request() scoring.Request {
	return scoring.Request{
		Gender:   r.Gender,
		Variant:  r.Variant,
		BodyMass: r.BodyMass,
		Total:    r.Total,
		Age:      r.Age,
	}
}

// DeriveID returns a stable id for results submitted without one. The same
// athlete, variant, body mass, total and age always map to the same id.
func (r LiftResult) DeriveID() string {
	key := r.AthleteID + "|" + r.Variant.String() + "|" + r.Gender.String() + "|" +
		strconv.FormatFloat(r.BodyMass, 'f', -1, 64) + "|" +
		strconv.FormatFloat(r.Total, 'f', -1, 64) + "|" +
		strconv.Itoa(r.Age)
	return uuid.NewSHA1(resultNamespace, []byte(key)).String()
}

// Validate checks the fields every layer relies on. Score-level checks
// (positive body mass, non-negative total) are left to the engine.
func (r LiftResult) Validate() error {
	if r.AthleteID == "" {
		return fmt.Errorf("%w: athlete id is required", ErrInvalidResult)
	}
	if !r.Gender.Valid() {
		return fmt.Errorf("%w: gender is required", ErrInvalidResult)
	}
	if !r.Variant.Valid() {
		return fmt.Errorf("%w: unknown variant %d", ErrInvalidResult, r.Variant)
	}
	if r.Variant.AgeDependent() && r.Age <= 0 {
		return fmt.Errorf("%w: age is required for the %s variant", ErrInvalidResult, r.Variant)
	}
	return nil
}

// AthleteScore captures an athlete's best result used for ranking.
type AthleteScore struct {
	AthleteID string
	Score     float64
	Result    LiftResult
}
