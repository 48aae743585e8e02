// Package service wires the scoring engine into the standings pipeline and
// implements the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/okian/gamx/internal/adapters/mq/queue"
	"github.com/okian/gamx/internal/adapters/mq/worker"
	"github.com/okian/gamx/internal/adapters/repository"
	"github.com/okian/gamx/internal/domain/dedupe"
	"github.com/okian/gamx/internal/domain/model"
	"github.com/okian/gamx/internal/domain/scoring"
	"github.com/okian/gamx/internal/domain/types"
	"github.com/okian/gamx/pkg/logger"
	"github.com/okian/gamx/pkg/metrics"
)

// ErrNotStarted is returned before Start and by Submit after Stop. It
// matches queue.ErrClosed.
var ErrNotStarted = fmt.Errorf("service not started: %w", queue.ErrClosed)

// Service implements the API dependencies for the standings system.
type Service struct {
	mu sync.RWMutex

	engine    *scoring.Engine
	standings *repository.Standings
	deduper   dedupe.Deduper
	queue     *queue.InMemoryQueue
	pool      *worker.Pool

	workerCount    int
	queueSize      int
	dedupeSize     int
	upperBound     int
	tablesDir      string
	defaultVariant scoring.Variant

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the result queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache. Zero or less
// keeps every id.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		s.dedupeSize = size
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTargetUpperBound sets the largest total the target solver tries.
func WithTargetUpperBound(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.upperBound = n
		}
	}
}

// WithTablesDir loads the parameter tables from dir instead of the bundled
// copies.
func WithTablesDir(dir string) Option {
	return func(s *Service) {
		s.tablesDir = dir
	}
}

// WithDefaultVariant sets the variant used when a request names none.
func WithDefaultVariant(v scoring.Variant) Option {
	return func(s *Service) {
		if v.Valid() {
			s.defaultVariant = v
		}
	}
}

// New constructs a Service and its scoring engine.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		workerCount:    runtime.NumCPU() * 2,
		queueSize:      100_000,
		dedupeSize:     500_000,
		upperBound:     scoring.DefaultTargetUpperBound,
		defaultVariant: scoring.VariantSenior,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	engineOpts := []scoring.Option{scoring.WithTargetUpperBound(s.upperBound)}
	if s.tablesDir != "" {
		tables, err := scoring.LoadTables(os.DirFS(s.tablesDir))
		if err != nil {
			return nil, fmt.Errorf("load tables from %s: %w", s.tablesDir, err)
		}
		engineOpts = append(engineOpts, scoring.WithTables(tables))
	}
	engine, err := scoring.NewEngine(engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("build scoring engine: %w", err)
	}
	s.engine = engine
	return s, nil
}

// Start initializes and starts the pipeline components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting standings service...")

	s.standings = repository.NewStandings(ctx)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.engine, s.standings)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "standings service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.Int("target_upper_bound", s.upperBound),
		logger.String("default_variant", s.defaultVariant.String()),
	)
	return nil
}

// Stop closes the queue and waits for queued results to be applied. If ctx
// expires first the remaining results are dropped.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping standings service...")

	err := s.pool.Shutdown(ctx)
	if cerr := s.standings.Close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	s.started = false

	s.logger.Info(ctx, "standings service stopped",
		logger.Int("processed", int(s.pool.Processed())),
	)
	return err
}

// DefaultVariant is the variant used when a request names none.
func (s *Service) DefaultVariant() scoring.Variant { return s.defaultVariant }

// Engine exposes the scoring engine.
func (s *Service) Engine() *scoring.Engine { return s.engine }

// Submit records r for asynchronous scoring. It reports duplicate=true when
// the result id was already seen. A result without an id gets one derived
// from its content, so resubmitting the same result is a duplicate. Results
// the engine cannot score are rejected here and never claim their id.
func (s *Service) Submit(ctx context.Context, r model.LiftResult) (duplicate bool, err error) { //nolint:gocritic // hugeParam: results travel by value
	if err := r.Validate(); err != nil {
		return false, err
	}
	if _, err := s.engine.Compute(r.Request()); err != nil {
		if reason := worker.RejectReason(err); reason != "" {
			metrics.RecordInvalidScore(r.Variant.String(), reason)
		}
		return false, fmt.Errorf("score result for %s: %w", r.AthleteID, err)
	}
	if r.ResultID == "" {
		r.ResultID = r.DeriveID()
	}
	if r.TS.IsZero() {
		r.TS = time.Now().UTC()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return false, ErrNotStarted
	}

	if s.deduper.SeenAndRecord(ctx, r.ResultID) {
		metrics.RecordResultDuplicate()
		s.logger.Debug(ctx, "duplicate result skipped",
			logger.String("result_id", r.ResultID),
			logger.String("athlete_id", r.AthleteID),
		)
		return true, nil
	}
	if err := s.queue.Enqueue(ctx, r); err != nil {
		// Let the client retry the same id.
		s.deduper.Unrecord(ctx, r.ResultID)
		return false, fmt.Errorf("enqueue result %s: %w", r.ResultID, err)
	}
	return false, nil
}

// Score computes the score of req synchronously.
func (s *Service) Score(ctx context.Context, req scoring.Request) (float64, error) {
	if err := ctx.Err(); err != nil {
		return scoring.InvalidScore, err
	}
	score, err := s.engine.Compute(req)
	if err != nil {
		if reason := worker.RejectReason(err); reason != "" {
			metrics.RecordInvalidScore(req.Variant.String(), reason)
		}
		return scoring.InvalidScore, err
	}
	metrics.RecordScoreComputed(req.Variant.String())
	return score, nil
}

// Target finds the smallest total that beats req.Score.
func (s *Service) Target(ctx context.Context, req scoring.TargetRequest) (scoring.Solution, error) {
	if err := ctx.Err(); err != nil {
		return scoring.Solution{}, err
	}
	sol, err := s.engine.Solve(req)
	metrics.RecordTargetSolve(req.Variant.String(), solveOutcome(err), sol.Steps)
	return sol, err
}

// solveOutcome labels a Solve error for metrics.
func solveOutcome(err error) string {
	switch {
	case err == nil:
		return "solved"
	case errors.Is(err, scoring.ErrTargetUnreachable):
		return "unreachable"
	case errors.Is(err, scoring.ErrUndefined):
		return "undefined"
	}
	return "invalid"
}

// TargetFor returns the total athleteID needs, at their recorded body mass
// and age, to strictly pass the athlete ranked directly ahead in variant v.
func (s *Service) TargetFor(ctx context.Context, v scoring.Variant, athleteID string) (types.Target, error) {
	st, err := s.standingsFor()
	if err != nil {
		return types.Target{}, err
	}
	self, err := st.Rank(ctx, v, athleteID)
	if err != nil {
		return types.Target{}, err
	}
	ahead, err := st.Above(ctx, v, athleteID)
	if err != nil {
		return types.Target{}, err
	}

	res := self.Result
	sol, err := s.Target(ctx, scoring.TargetRequest{
		Gender:   res.Gender,
		Variant:  v,
		BodyMass: res.BodyMass,
		Score:    ahead.Score,
		Age:      res.Age,
	})
	if err != nil {
		return types.Target{}, fmt.Errorf("target for %s to pass %s: %w", athleteID, ahead.AthleteID, err)
	}
	return types.Target{
		AthleteID:     athleteID,
		Rank:          self.Rank,
		OpponentID:    ahead.AthleteID,
		OpponentScore: ahead.Score,
		Total:         sol.Total,
		Score:         scoring.Round2(sol.Score),
	}, nil
}

// TopN returns the top n entries of variant v.
func (s *Service) TopN(ctx context.Context, v scoring.Variant, n int) ([]types.Entry, error) {
	st, err := s.standingsFor()
	if err != nil {
		return nil, err
	}
	entries, err := st.TopN(ctx, v, n)
	if err != nil {
		return nil, err
	}
	out := make([]types.Entry, len(entries))
	for i, e := range entries {
		out[i] = toEntry(e)
	}
	return out, nil
}

// Rank returns the rank and score of athleteID in variant v.
func (s *Service) Rank(ctx context.Context, v scoring.Variant, athleteID string) (types.Entry, error) {
	st, err := s.standingsFor()
	if err != nil {
		return types.Entry{}, err
	}
	e, err := st.Rank(ctx, v, athleteID)
	if err != nil {
		return types.Entry{}, err
	}
	return toEntry(e), nil
}

func (s *Service) standingsFor() (*repository.Standings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.standings == nil {
		return nil, ErrNotStarted
	}
	return s.standings, nil
}

func toEntry(e repository.Entry) types.Entry { //nolint:gocritic // hugeParam: entries travel by value
	r := e.Result
	out := types.Entry{
		Rank:      e.Rank,
		AthleteID: e.AthleteID,
		Score:     e.Score,
		Gender:    r.Gender.String(),
		BodyMass:  r.BodyMass,
		Total:     r.Total,
		Variant:   r.Variant.String(),
	}
	if r.Variant.AgeDependent() {
		out.Age = r.Age
	}
	return out
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":            s.started,
		"worker_count":       s.workerCount,
		"queue_size":         s.queueSize,
		"dedupe_size":        s.dedupeSize,
		"target_upper_bound": s.upperBound,
		"default_variant":    s.defaultVariant.String(),
	}

	if s.standings != nil {
		stats["athletes"] = s.standings.Counts(ctx)
		stats["total_athletes"] = s.standings.Count(ctx)
	}
	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queue_length"] = queueLen
		stats["processed"] = s.pool.Processed()
		stats["seen_results"] = s.deduper.Size()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.workerCount)
	}
	return stats
}
