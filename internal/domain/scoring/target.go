package scoring

import (
	"fmt"
	"math"
)

// TargetRequest asks for the smallest total that beats Score.
type TargetRequest struct {
	Gender   Gender
	Variant  Variant
	BodyMass float64
	Score    float64
	Age      int
}

// Solution is the outcome of a target search.
type Solution struct {
	// Total is the smallest integer total whose score beats the target at
	// two decimals.
	Total int `json:"total"`
	// Score is the score earned by Total.
	Score float64 `json:"score"`
	// Estimate is the continuous starting point from the inverse CDF.
	Estimate float64 `json:"estimate"`
	// Steps counts the candidate totals that were scored.
	Steps int `json:"steps"`
}

// Target returns the smallest integer total that strictly beats req.Score.
func (e *Engine) Target(req TargetRequest) (int, error) {
	sol, err := e.Solve(req)
	if err != nil {
		return InvalidTarget, err
	}
	return sol.Total, nil
}

// Solve runs the target search and reports how it got there. It returns
// ErrTargetUnreachable when no total up to the engine's bound beats the
// target, and ErrUndefined when the target has no finite inverse.
func (e *Engine) Solve(req TargetRequest) (Solution, error) {
	if math.IsNaN(req.Score) || math.IsInf(req.Score, 0) {
		return Solution{}, fmt.Errorf("%w: target score %v", ErrInvalidInput, req.Score)
	}
	p, err := e.Params(req.Gender, req.Variant, req.BodyMass, req.Age)
	if err != nil {
		return Solution{}, err
	}
	return solveTarget(p, req.Score, e.upperBound)
}

func solveTarget(p Params, target float64, upper int) (Solution, error) {
	est := p.Quantile(NormalCDF((target - ScoreOffset) / ScoreScale))
	if math.IsNaN(est) || math.IsInf(est, 0) {
		return Solution{}, fmt.Errorf("%w: no inverse for target %v", ErrUndefined, target)
	}

	sol := Solution{Estimate: est}
	goal := Round2(target)
	beats := func(total int) bool {
		sol.Steps++
		s := scoreAt(p, float64(total))
		return !math.IsNaN(s) && Round2(s) > goal
	}

	// Scores rise with the total: an estimate past the bound is settled at
	// the bound.
	candidate := upper
	if est < float64(upper) {
		candidate = max(int(math.Ceil(est)), 1)
	}

	ok := beats(candidate)
	for !ok && candidate < upper {
		candidate++
		ok = beats(candidate)
	}
	if !ok {
		return Solution{Estimate: est, Steps: sol.Steps}, fmt.Errorf("%w: %d", ErrTargetUnreachable, upper)
	}
	for candidate > 1 && beats(candidate-1) {
		candidate--
	}

	sol.Total = candidate
	sol.Score = scoreAt(p, float64(candidate))
	return sol, nil
}

// KgTarget returns the smallest total beating targetScore using the default
// engine, or InvalidTarget when none exists within the search bound.
func KgTarget(g Gender, bodyMass, targetScore float64, v Variant, age int) int {
	e, err := defaultEngine()
	if err != nil {
		return InvalidTarget
	}
	total, err := e.Target(TargetRequest{Gender: g, Variant: v, BodyMass: bodyMass, Score: targetScore, Age: age})
	if err != nil {
		return InvalidTarget
	}
	return total
}
