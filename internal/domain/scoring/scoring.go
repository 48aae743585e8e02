// Package scoring computes GAMX performance scores: a lifter's total is placed
// on a truncated Box-Cox Cole-Green distribution fitted for their gender, body
// mass and (for some variants) age, and the resulting probability is mapped to
// a normal score centred on 1000.
//
// Every function is pure. The only shared state is the parameter table store,
// which is immutable once loaded, so an Engine may be used from any number of
// goroutines.
package scoring

import (
	"context"
	"fmt"
	"math"
	"sync"
)

// Score scale and sentinels.
const (
	ScoreScale  = 100
	ScoreOffset = 1000

	// InvalidScore is returned by the sentinel forms for malformed input or an
	// undefined score.
	InvalidScore = 0.0
	// InvalidTarget is returned by the sentinel forms when no total within the
	// search bound beats the target.
	InvalidTarget = 0

	DefaultTargetUpperBound = 600
)

// Round2 rounds x to hundredths. Two scores are tied when their Round2 values
// are equal.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// Request is a forward scoring request. Age is only read by age-dependent
// variants.
type Request struct {
	Gender   Gender
	Variant  Variant
	BodyMass float64
	Total    float64
	Age      int
}

// Input is a scoring request tagged with the athlete it belongs to.
type Input struct {
	AthleteID string
	Request
}

// Result contains the computed score for an athlete.
type Result struct {
	AthleteID string
	Score     float64
}

// Engine computes scores and target totals against a table store.
type Engine struct {
	tables     *Tables
	upperBound int
}

// NewEngine creates an engine. Without WithTables it uses the bundled tables.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{upperBound: DefaultTargetUpperBound}
	for _, opt := range opts {
		opt(e)
	}
	if e.tables == nil {
		ts, err := EmbeddedTables()
		if err != nil {
			return nil, fmt.Errorf("load bundled tables: %w", err)
		}
		e.tables = ts
	}
	return e, nil
}

// TargetUpperBound returns the largest total the target solver tries.
func (e *Engine) TargetUpperBound() int { return e.upperBound }

// Params resolves the distribution parameters for an athlete.
func (e *Engine) Params(g Gender, v Variant, bodyMass float64, age int) (Params, error) {
	if !positiveFinite(bodyMass) {
		return Params{}, fmt.Errorf("%w: body mass %v", ErrInvalidInput, bodyMass)
	}
	t, err := e.tables.Table(v, g)
	if err != nil {
		return Params{}, err
	}
	p := t.Resolve(bodyMass, age)
	if !p.valid() {
		return Params{}, fmt.Errorf("%w: resolved %+v", ErrUndefined, p)
	}
	return p, nil
}

// Compute returns the score for req. Malformed input yields ErrInvalidInput;
// a total at or beyond the edge of the distribution yields ErrUndefined.
func (e *Engine) Compute(req Request) (float64, error) {
	if math.IsNaN(req.Total) || math.IsInf(req.Total, 0) || req.Total < 0 {
		return InvalidScore, fmt.Errorf("%w: total %v", ErrInvalidInput, req.Total)
	}
	p, err := e.Params(req.Gender, req.Variant, req.BodyMass, req.Age)
	if err != nil {
		return InvalidScore, err
	}
	s := scoreAt(p, req.Total)
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return InvalidScore, fmt.Errorf("%w: total %v", ErrUndefined, req.Total)
	}
	return s, nil
}

// Score implements the worker scoring contract.
func (e *Engine) Score(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("context cancelled: %w", err)
	}
	s, err := e.Compute(in.Request)
	if err != nil {
		return Result{}, err
	}
	return Result{AthleteID: in.AthleteID, Score: s}, nil
}

// scoreAt maps a total to the score scale. The result is NaN when the
// total's probability is 0 or 1.
func scoreAt(p Params, total float64) float64 {
	return NormalQuantile(p.CDF(total))*ScoreScale + ScoreOffset
}

func positiveFinite(x float64) bool {
	return x > 0 && !math.IsInf(x, 1)
}

var defaultEngine = sync.OnceValues(func() (*Engine, error) {
	return NewEngine()
})

// Default returns the process-wide engine over the bundled tables.
func Default() (*Engine, error) {
	return defaultEngine()
}

// ComputeScore scores a total with the default engine, returning
// InvalidScore for malformed input or an undefined score.
func ComputeScore(g Gender, bodyMass, total float64, v Variant, age int) float64 {
	e, err := defaultEngine()
	if err != nil {
		return InvalidScore
	}
	s, err := e.Compute(Request{Gender: g, Variant: v, BodyMass: bodyMass, Total: total, Age: age})
	if err != nil {
		return InvalidScore
	}
	return s
}

// SeniorScore scores against the senior tables.
func SeniorScore(g Gender, bodyMass, total float64) float64 {
	return ComputeScore(g, bodyMass, total, VariantSenior, 0)
}

// YouthScore scores against the youth tables.
func YouthScore(g Gender, bodyMass, total float64) float64 {
	return ComputeScore(g, bodyMass, total, VariantYouth, 0)
}

// AgeAdjustedScore scores against the age-adjusted tables. Age is clamped
// to 13..40.
func AgeAdjustedScore(g Gender, bodyMass, total float64, age int) float64 {
	return ComputeScore(g, bodyMass, total, VariantAgeAdjusted, age)
}

// MastersScore scores against the masters tables. Age is clamped to 30..95.
func MastersScore(g Gender, bodyMass, total float64, age int) float64 {
	return ComputeScore(g, bodyMass, total, VariantMasters, age)
}
