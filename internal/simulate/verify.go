package simulate

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/okian/gamx/internal/domain/scoring"
	"github.com/okian/gamx/internal/domain/types"
	"github.com/okian/gamx/pkg/logger"
)

// mismatches collects verification failures from concurrent checks.
type mismatches struct {
	mu   sync.Mutex
	list []string
}

func (m *mismatches) addf(format string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.list = append(m.list, fmt.Sprintf(format, args...))
}

func variantQuery(v scoring.Variant) string {
	return "variant=" + url.QueryEscape(v.String())
}

// retrieveRankings fetches every generated athlete's entry and checks its
// score against the local engine.
func retrieveRankings(ctx context.Context, cfg *Config, client *httpClient, results []Result, mm *mismatches) ([]types.Entry, error) {
	logger.Get().Info(ctx, "retrieving rankings",
		logger.Int("athletes", len(results)),
		logger.Int("workers", cfg.Workers))

	entries := make([]types.Entry, len(results))
	found := make([]bool, len(results))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i, r := range results {
		g.Go(func() error {
			path := "/rank/" + url.PathEscape(r.AthleteID) + "?" + variantQuery(cfg.Variant)
			var e types.Entry
			if _, err := client.get(gctx, path, &e); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				mm.addf("rank %s: %v", r.AthleteID, err)
				return nil
			}
			if e.Score != r.expected {
				mm.addf("athlete %s scored %.2f, expected %.2f", r.AthleteID, e.Score, r.expected)
			}
			entries[i], found[i] = e, true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]types.Entry, 0, len(entries))
	for i, e := range entries {
		if found[i] {
			out = append(out, e)
		}
	}
	return out, nil
}

// checkRankOrder checks that higher scores rank strictly ahead and equal
// scores share a rank.
func checkRankOrder(entries []types.Entry, mm *mismatches) {
	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, byStanding)
	for i := 1; i < len(sorted); i++ {
		a, b := sorted[i-1], sorted[i]
		switch {
		case a.Score == b.Score && a.Rank != b.Rank:
			mm.addf("tied athletes %s and %s have ranks %d and %d", a.AthleteID, b.AthleteID, a.Rank, b.Rank)
		case a.Score > b.Score && a.Rank >= b.Rank:
			mm.addf("athlete %s (%.2f) ranked %d, not ahead of %s (%.2f) ranked %d",
				a.AthleteID, a.Score, a.Rank, b.AthleteID, b.Score, b.Rank)
		}
	}
}

// byStanding orders by score desc, then athlete id asc.
func byStanding(a, b types.Entry) int {
	switch {
	case a.Score > b.Score:
		return -1
	case a.Score < b.Score:
		return 1
	}
	switch {
	case a.AthleteID < b.AthleteID:
		return -1
	case a.AthleteID > b.AthleteID:
		return 1
	}
	return 0
}

func getLeaderboard(ctx context.Context, cfg *Config, client *httpClient) ([]types.Entry, error) {
	path := "/leaderboard?limit=" + strconv.Itoa(cfg.TopN) + "&" + variantQuery(cfg.Variant)
	var entries []types.Entry
	if _, err := client.get(ctx, path, &entries); err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	return entries, nil
}

// checkLeaderboard checks ordering and competition ranks, and when every
// entry is one of ours, that it matches the locally computed top N.
func checkLeaderboard(leaderboard []types.Entry, results []Result, topN int, mm *mismatches) {
	for i, e := range leaderboard {
		want := 1
		if i > 0 {
			prev := leaderboard[i-1]
			if byStanding(prev, e) > 0 {
				mm.addf("leaderboard entries %d and %d out of order", i-1, i)
			}
			want = i + 1
			if prev.Score == e.Score {
				want = prev.Rank
			}
		}
		if e.Rank != want {
			mm.addf("leaderboard entry %s has rank %d, expected %d", e.AthleteID, e.Rank, want)
		}
	}

	expected := make(map[string]float64, len(results))
	local := make([]types.Entry, 0, len(results))
	for _, r := range results {
		expected[r.AthleteID] = r.expected
		local = append(local, types.Entry{AthleteID: r.AthleteID, Score: r.expected})
	}
	for _, e := range leaderboard {
		if _, ok := expected[e.AthleteID]; !ok {
			return
		}
	}
	slices.SortFunc(local, byStanding)
	local = local[:min(topN, len(local))]
	if len(leaderboard) != len(local) {
		mm.addf("leaderboard has %d entries, expected %d", len(leaderboard), len(local))
		return
	}
	for i, e := range leaderboard {
		if e.AthleteID != local[i].AthleteID || e.Score != local[i].Score {
			mm.addf("leaderboard position %d is %s (%.2f), expected %s (%.2f)",
				i+1, e.AthleteID, e.Score, local[i].AthleteID, local[i].Score)
		}
	}
}

// checkTarget asks the server what the best athlete behind the leader needs
// and checks the answer with the local engine: the total must beat the
// leader at two decimals and one kilogram less must not. It reports whether
// a target was checked.
func checkTarget(ctx context.Context, cfg *Config, client *httpClient, engine *scoring.Engine, leaderboard []types.Entry, mm *mismatches) (bool, error) {
	if len(leaderboard) == 0 {
		return false, nil
	}
	leader := leaderboard[0]
	idx := slices.IndexFunc(leaderboard, func(e types.Entry) bool { return e.Score < leader.Score })
	if idx < 0 {
		return false, nil
	}
	chaser := leaderboard[idx]
	g, err := scoring.ParseGender(chaser.Gender)
	if err != nil {
		mm.addf("entry %s has gender %q", chaser.AthleteID, chaser.Gender)
		return false, nil
	}
	req := scoring.TargetRequest{
		Gender:   g,
		Variant:  cfg.Variant,
		BodyMass: chaser.BodyMass,
		Score:    leader.Score,
		Age:      chaser.Age,
	}
	local, localErr := engine.Solve(req)

	path := "/target/" + url.PathEscape(chaser.AthleteID) + "?" + variantQuery(cfg.Variant)
	var got types.Target
	if _, err := client.get(ctx, path, &got); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if errorCode(err) == "target_unreachable" && errors.Is(localErr, scoring.ErrTargetUnreachable) {
			logger.Get().Warn(ctx, "leader out of reach",
				logger.String("athlete_id", chaser.AthleteID),
				logger.Float64("leader_score", leader.Score))
			return true, nil
		}
		mm.addf("target %s: %v", chaser.AthleteID, err)
		return false, nil
	}
	if localErr != nil {
		mm.addf("target %s: server answered %d, local engine failed: %v", chaser.AthleteID, got.Total, localErr)
		return true, nil
	}

	if got.OpponentScore != leader.Score {
		mm.addf("target %s chases %.2f, expected the leader's %.2f", chaser.AthleteID, got.OpponentScore, leader.Score)
	}
	if got.Total != local.Total {
		mm.addf("target %s is %d kg, local engine says %d kg", chaser.AthleteID, got.Total, local.Total)
	}
	beats := func(total int) bool {
		s, err := engine.Compute(scoring.Request{
			Gender: g, Variant: cfg.Variant, BodyMass: chaser.BodyMass, Total: float64(total), Age: chaser.Age,
		})
		return err == nil && scoring.Round2(s) > leader.Score
	}
	if !beats(got.Total) {
		mm.addf("target %s: %d kg does not beat %.2f", chaser.AthleteID, got.Total, leader.Score)
	}
	if got.Total > 1 && beats(got.Total-1) {
		mm.addf("target %s: %d kg already beats %.2f", chaser.AthleteID, got.Total-1, leader.Score)
	}
	return true, nil
}
