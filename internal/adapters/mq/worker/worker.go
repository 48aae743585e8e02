// Package worker scores queued lift results and applies them to the standings.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/gamx/internal/domain/model"
	"github.com/okian/gamx/internal/domain/scoring"
	"github.com/okian/gamx/pkg/logger"
	"github.com/okian/gamx/pkg/metrics"
)

// defaultWorkerMultiplier sizes the pool when no count is given.
const defaultWorkerMultiplier = 2

// Result is what workers read off the queue.
type Result = model.LiftResult

// Updater applies a scored result to the standings.
type Updater interface {
	// UpdateBest stores s when it beats the athlete's current best and
	// reports whether it did.
	UpdateBest(ctx context.Context, s model.AthleteScore) (bool, error)
}

// Scorer computes a score for a result.
type Scorer interface {
	Score(ctx context.Context, in scoring.Input) (scoring.Result, error)
}

// Queue defines how workers receive results.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Result
}

// dequeueObserver is implemented by queues that track consumer progress.
type dequeueObserver interface {
	Dequeued()
}

// Worker processes results and writes standings updates.
type Worker interface {
	// Run starts the worker loop until ctx is canceled, Shutdown is called
	// or the queue channel is closed.
	Run(ctx context.Context)

	// Shutdown stops the worker after the result in hand.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue   Queue
	scorer  Scorer
	updater Updater
	name    string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, scorer Scorer, updater Updater, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		scorer:   scorer,
		updater:  updater,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	observer, _ := w.queue.(dequeueObserver)
	results := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case r, ok := <-results:
			if !ok {
				return
			}
			if observer != nil {
				observer.Dequeued()
			}
			if err := w.process(ctx, r); err != nil {
				w.logger.Error(ctx, "error processing result", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stop()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) stop() {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
}

// process scores one result and applies it. Results the engine rejects are
// counted and dropped; they are never retried.
func (w *InMemoryWorker) process(ctx context.Context, r Result) error { //nolint:gocritic // hugeParam: results travel by value
	start := time.Now()
	metrics.AddWorkerActive(1)
	defer func() {
		metrics.AddWorkerActive(-1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	variant := r.Variant.String()
	scoreStart := time.Now()
	res, err := w.scorer.Score(ctx, scoring.Input{AthleteID: r.AthleteID, Request: r.Request()})
	metrics.RecordScoringLatency(float64(time.Since(scoreStart).Microseconds()) / 1000)
	if err != nil {
		if reason := RejectReason(err); reason != "" {
			metrics.RecordInvalidScore(variant, reason)
			w.logger.Warn(ctx, "result rejected by scoring engine",
				logger.String("result_id", r.ResultID),
				logger.String("athlete_id", r.AthleteID),
				logger.String("reason", reason),
				logger.Error(err),
			)
			return nil
		}
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "scoring_error")
		metrics.RecordErrorByType("scoring_error", "high")
		return fmt.Errorf("score result %s: %w", r.ResultID, err)
	}
	metrics.RecordScoreComputed(variant)

	updated, err := w.updater.UpdateBest(ctx, model.AthleteScore{AthleteID: r.AthleteID, Score: res.Score, Result: r})
	if err != nil {
		metrics.RecordStandingsError()
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "standings_error")
		metrics.RecordErrorByType("standings_error", "high")
		return fmt.Errorf("standings update for result %s: %w", r.ResultID, err)
	}

	metrics.RecordResultProcessed()
	if updated {
		metrics.RecordStandingsUpdate(variant)
	}
	w.logger.Debug(ctx, "result scored",
		logger.String("result_id", r.ResultID),
		logger.String("athlete_id", r.AthleteID),
		logger.Float64("score", res.Score),
		logger.Bool("best", updated),
	)
	return nil
}

// RejectReason maps engine input errors to a metric label. It returns ""
// for errors that are not caused by the result itself.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, scoring.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, scoring.ErrUndefined):
		return "undefined"
	case errors.Is(err, scoring.ErrUnknownGender):
		return "unknown_gender"
	case errors.Is(err, scoring.ErrUnknownVariant):
		return "unknown_variant"
	}
	return ""
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger

	processed atomic.Int64
}

// NewPool creates a new worker pool. A workerCount below one sizes the pool
// from the CPU count.
func NewPool(workerCount int, queue Queue, scorer Scorer, updater Updater) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("worker-pool"),
	}
	counted := &countingUpdater{next: updater, n: &p.processed}
	for i := range p.workers {
		p.workers[i] = NewInMemoryWorker(queue, scorer, counted, WithName("worker-"+strconv.Itoa(i)))
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns how many results reached the standings.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for the workers to drain it. If ctx
// expires first the workers are stopped and the remaining results dropped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker pool drain timed out", logger.Int("worker_id", i))
			for _, w := range p.workers {
				w.stop()
			}
			return fmt.Errorf("drain workers: %w", ctx.Err())
		}
	}
	return nil
}

type countingUpdater struct {
	next Updater
	n    *atomic.Int64
}

func (c *countingUpdater) UpdateBest(ctx context.Context, s model.AthleteScore) (bool, error) {
	ok, err := c.next.UpdateBest(ctx, s)
	if err == nil {
		c.n.Add(1)
	}
	return ok, err
}
