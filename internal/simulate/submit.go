package simulate

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/gamx/pkg/logger"
)

const progressInterval = time.Second

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// submitResults posts results with at most cfg.Workers requests in flight.
// Individual failures are counted, not returned; only cancellation stops the
// run.
func submitResults(ctx context.Context, cfg *Config, client *httpClient, results []Result, report *Report) error {
	log := logger.Get()
	log.Info(ctx, "submitting results",
		logger.Int("results", len(results)),
		logger.Int("workers", cfg.Workers))

	var accepted, duplicate, failed, submitted atomic.Int64
	var lastReport atomic.Int64
	lastReport.Store(time.Now().UnixNano())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := range results {
		r := results[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var ack ackResponse
			status, err := client.post(gctx, "/results", r, &ack)
			submitted.Add(1)
			switch {
			case err != nil:
				failed.Add(1)
				log.Debug(gctx, "result submission failed",
					logger.String("result_id", r.ResultID), logger.Error(err))
			case status == http.StatusOK && ack.Duplicate:
				duplicate.Add(1)
			default:
				accepted.Add(1)
			}

			last := lastReport.Load()
			if now := time.Now().UnixNano(); now-last >= int64(progressInterval) && lastReport.CompareAndSwap(last, now) {
				log.Info(gctx, "submission progress",
					logger.Int("submitted", int(submitted.Load())),
					logger.Int("total", len(results)),
					logger.Int("accepted", int(accepted.Load())),
					logger.Int("duplicate", int(duplicate.Load())),
					logger.Int("failed", int(failed.Load())))
			}
			return nil
		})
	}
	err := g.Wait()

	report.Submitted += int(submitted.Load())
	report.Accepted += int(accepted.Load())
	report.Duplicate += int(duplicate.Load())
	report.Failed += int(failed.Load())

	log.Info(ctx, "submission completed",
		logger.Int("accepted", report.Accepted),
		logger.Int("duplicate", report.Duplicate),
		logger.Int("failed", report.Failed))
	return err
}

type statsResponse struct {
	Processed int64 `json:"processed"`
}

func processed(ctx context.Context, client *httpClient) (int64, error) {
	var s statsResponse
	if _, err := client.get(ctx, "/stats", &s); err != nil {
		return 0, err
	}
	return s.Processed, nil
}

// waitProcessed polls /stats until the server reports want processed results.
func waitProcessed(ctx context.Context, cfg *Config, client *httpClient, want int64) (int64, error) {
	logger.Get().Info(ctx, "waiting for results to be processed", logger.Any("want", want))

	ctx, cancel := context.WithTimeout(ctx, cfg.WaitTimeout)
	defer cancel()
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	var got int64
	for {
		n, err := processed(ctx, client)
		if err == nil {
			got = n
			if got >= want {
				return got, nil
			}
		}
		select {
		case <-ctx.Done():
			return got, ErrNotProcessed
		case <-ticker.C:
		}
	}
}
