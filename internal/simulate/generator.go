package simulate

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/okian/gamx/internal/domain/scoring"
	"github.com/okian/gamx/pkg/logger"
)

// Body mass and strength ranges the generator draws from, per gender.
type athleteRange struct {
	minMass, maxMass   float64
	minRatio, maxRatio float64 // total / body mass
}

var ranges = map[scoring.Gender]athleteRange{
	scoring.GenderMale:   {minMass: 55, maxMass: 120, minRatio: 2.2, maxRatio: 5.2},
	scoring.GenderFemale: {minMass: 45, maxMass: 90, minRatio: 1.8, maxRatio: 4.4},
}

const (
	maxAttempts   = 20
	defaultMinAge = 18
	defaultMaxAge = 45
)

// generateResults creates one scoreable result per athlete. Every result is
// scored locally; draws the engine rejects are redrawn.
func generateResults(ctx context.Context, cfg *Config, engine *scoring.Engine) ([]Result, error) {
	logger.Get().Info(ctx, "generating results",
		logger.Int("athletes", cfg.Athletes),
		logger.String("variant", cfg.Variant.String()),
		logger.Any("seed", cfg.Seed))

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	ts := time.Now().UTC().Format(time.RFC3339)

	results := make([]Result, 0, cfg.Athletes)
	for range cfg.Athletes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := drawResult(rng, cfg.Variant, engine)
		if err != nil {
			return nil, err
		}
		r.ResultID = uuid.NewString()
		r.AthleteID = uuid.NewString()
		r.TS = ts
		results = append(results, r)
	}
	return results, nil
}

func drawResult(rng *rand.Rand, v scoring.Variant, engine *scoring.Engine) (Result, error) {
	for range maxAttempts {
		g := scoring.GenderMale
		if rng.IntN(2) == 1 {
			g = scoring.GenderFemale
		}
		ar := ranges[g]
		mass := round1(between(rng, ar.minMass, ar.maxMass))
		total := math.Round(mass * between(rng, ar.minRatio, ar.maxRatio))

		lo, hi, ok := v.AgeBounds()
		if !ok {
			lo, hi = defaultMinAge, defaultMaxAge
		}
		age := lo + rng.IntN(hi-lo+1)

		score, err := engine.Compute(scoring.Request{Gender: g, Variant: v, BodyMass: mass, Total: total, Age: age})
		if err != nil {
			continue
		}
		r := Result{
			Gender:   g.String(),
			BodyMass: mass,
			Total:    total,
			Variant:  v.String(),
			expected: scoring.Round2(score),
			gender:   g,
		}
		if v.AgeDependent() {
			r.Age = age
		}
		return r, nil
	}
	return Result{}, fmt.Errorf("no scoreable result after %d draws for variant %s", maxAttempts, v)
}

func between(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
