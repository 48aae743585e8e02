package simulate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/gamx/internal/domain/scoring"
	"github.com/okian/gamx/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// Run executes a complete simulation: health check, generation, concurrent
// submission, waiting for the pipeline, then verification of rankings, the
// leaderboard and one target. The report is returned even when verification
// fails.
func Run(ctx context.Context, config *Config) (*Report, error) {
	cfg := config.withDefaults()
	report := &Report{Seed: cfg.Seed, StartTime: time.Now()}
	log := logger.Get()

	engine := cfg.Engine
	if engine == nil {
		var err error
		if engine, err = scoring.Default(); err != nil {
			return report, fmt.Errorf("failed to build scoring engine: %w", err)
		}
	}

	log.Info(ctx, "starting gamx simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("athletes", cfg.Athletes),
		logger.Int("duplicates", cfg.Duplicates),
		logger.String("variant", cfg.Variant.String()),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
		logger.Int("topN", cfg.TopN))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: check service health
	if err := checkServiceHealth(ctx, client); err != nil {
		return report, fmt.Errorf("service health check failed: %w", err)
	}
	baseline, err := processed(ctx, client)
	if err != nil {
		return report, fmt.Errorf("failed to read service stats: %w", err)
	}

	// Step 2: generate results
	results, err := generateResults(ctx, &cfg, engine)
	if err != nil {
		return report, fmt.Errorf("result generation failed: %w", err)
	}
	report.Generated = len(results)

	// Step 3: submit, then resubmit a prefix to exercise idempotency
	if err := submitResults(ctx, &cfg, client, results, report); err != nil {
		return report, fmt.Errorf("result submission failed: %w", err)
	}
	accepted := int64(report.Accepted)
	if cfg.Duplicates > 0 {
		if err := submitResults(ctx, &cfg, client, results[:cfg.Duplicates], report); err != nil {
			return report, fmt.Errorf("duplicate submission failed: %w", err)
		}
	}

	// Step 4: wait for processing
	n, err := waitProcessed(ctx, &cfg, client, baseline+accepted)
	report.Processed = n - baseline
	if err != nil {
		return report, err
	}

	// Step 5: rankings
	mm := &mismatches{}
	rankings, err := retrieveRankings(ctx, &cfg, client, results, mm)
	if err != nil {
		return report, fmt.Errorf("ranking retrieval failed: %w", err)
	}
	report.RankingsRetrieved = len(rankings)
	checkRankOrder(rankings, mm)

	// Step 6: leaderboard
	leaderboard, err := getLeaderboard(ctx, &cfg, client)
	if err != nil {
		return report, err
	}
	report.LeaderboardEntries = len(leaderboard)
	checkLeaderboard(leaderboard, results, cfg.TopN, mm)

	// Step 7: target for the best athlete behind the leader
	if report.TargetChecked, err = checkTarget(ctx, &cfg, client, engine, leaderboard, mm); err != nil {
		return report, fmt.Errorf("target check failed: %w", err)
	}

	// Step 8: save results to file
	if cfg.OutputFile != "" {
		if err := saveResults(cfg.OutputFile, results); err != nil {
			log.Warn(ctx, "failed to save results to file", logger.Error(err))
		}
	}

	if report.Failed > 0 {
		mm.addf("%d submissions failed", report.Failed)
	}
	report.Mismatches = mm.list
	report.Duration = time.Since(report.StartTime)
	logReport(ctx, report)

	if len(report.Mismatches) > 0 {
		return report, fmt.Errorf("%w: %d mismatches, first: %s", ErrVerification, len(report.Mismatches), report.Mismatches[0])
	}
	log.Info(ctx, "simulation completed successfully")
	return report, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *httpClient) error {
	logger.Get().Info(ctx, "checking service health")
	if _, err := client.get(ctx, "/healthz", nil); err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	return nil
}

// saveResults writes the generated results as a JSON array.
func saveResults(filename string, results []Result) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return nil
}

func logReport(ctx context.Context, r *Report) {
	logger.Get().Info(ctx, "simulation statistics",
		logger.Any("seed", r.Seed),
		logger.Int("generated", r.Generated),
		logger.Int("submitted", r.Submitted),
		logger.Int("accepted", r.Accepted),
		logger.Int("duplicate", r.Duplicate),
		logger.Int("failed", r.Failed),
		logger.Any("processed", r.Processed),
		logger.Int("rankings", r.RankingsRetrieved),
		logger.Int("leaderboard", r.LeaderboardEntries),
		logger.Bool("target_checked", r.TargetChecked),
		logger.Int("mismatches", len(r.Mismatches)),
		logger.Duration("duration", r.Duration))
}
