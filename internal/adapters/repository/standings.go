package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/gamx/internal/domain/model"
	"github.com/okian/gamx/internal/domain/scoring"
)

// Standings routes results to one TreapStore per variant. Scores from
// different variants are never ranked against each other.
type Standings struct {
	stores map[scoring.Variant]*TreapStore
}

// NewStandings creates an empty store for every supported variant.
func NewStandings(ctx context.Context, opts ...Option) *Standings {
	st := &Standings{stores: make(map[scoring.Variant]*TreapStore, len(scoring.Variants))}
	for _, v := range scoring.Variants {
		vopts := append([]Option{}, opts...)
		vopts = append(vopts, WithLabel(v.String()))
		st.stores[v] = NewTreapStore(ctx, vopts...)
	}
	return st
}

// For returns the store of variant v.
func (st *Standings) For(v scoring.Variant) (*TreapStore, error) {
	s, ok := st.stores[v]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVariant, v)
	}
	return s, nil
}

// UpdateBest records as in the standings of its result's variant.
func (st *Standings) UpdateBest(ctx context.Context, as model.AthleteScore) (bool, error) {
	s, err := st.For(as.Result.Variant)
	if err != nil {
		return false, err
	}
	return s.UpdateBest(ctx, as)
}

// Rank returns the athlete's entry in variant v.
func (st *Standings) Rank(ctx context.Context, v scoring.Variant, athleteID string) (Entry, error) {
	s, err := st.For(v)
	if err != nil {
		return Entry{}, err
	}
	return s.Rank(ctx, athleteID)
}

// Above returns the entry directly ahead of the athlete in variant v.
func (st *Standings) Above(ctx context.Context, v scoring.Variant, athleteID string) (Entry, error) {
	s, err := st.For(v)
	if err != nil {
		return Entry{}, err
	}
	return s.Above(ctx, athleteID)
}

// TopN returns the leading n entries of variant v.
func (st *Standings) TopN(ctx context.Context, v scoring.Variant, n int) ([]Entry, error) {
	s, err := st.For(v)
	if err != nil {
		return nil, err
	}
	return s.TopN(ctx, n)
}

// Counts returns the number of athletes per variant name.
func (st *Standings) Counts(ctx context.Context) map[string]int {
	out := make(map[string]int, len(st.stores))
	for v, s := range st.stores {
		out[v.String()] = s.Count(ctx)
	}
	return out
}

// Count returns the number of athletes across all variants. An athlete
// ranked in two variants counts twice.
func (st *Standings) Count(ctx context.Context) int {
	total := 0
	for _, s := range st.stores {
		total += s.Count(ctx)
	}
	return total
}

// Close stops every store.
func (st *Standings) Close() error {
	var errs []error
	for _, s := range st.stores {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
