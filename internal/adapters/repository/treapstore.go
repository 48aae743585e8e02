package repository

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/okian/gamx/internal/domain/model"
	"github.com/okian/gamx/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: score DESC, then athleteID ASC (deterministic).
// "less" means ranks earlier, so in-order traversal produces the standings
// from best to worst. Node sizes give O(log n) expected rank queries.

// scoreScale stores scores as hundredths so that ordering and ties follow
// the two-decimal score.
const scoreScale = 100

type scoreFP int64

func toFixedPoint(x float64) scoreFP {
	return scoreFP(math.Round(x * scoreScale))
}

func toFloat(x scoreFP) float64 {
	return float64(x) / scoreScale
}

// maxScore bounds storable scores well inside int64 hundredths.
const maxScore = 1e15

// record stores the fixed-point score plus the result that produced it.
type record struct {
	score  scoreFP
	result model.LiftResult
}

// treap node
type node struct {
	id    string
	score scoreFP
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aScore, aID) should appear before (bScore, bID)
// in the standings (higher ranks first).
func less(aScore scoreFP, aID string, bScore scoreFP, bID string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, score scoreFP, prio uint64) *node {
	if n == nil {
		return &node{id: id, score: score, prio: prio, size: 1}
	}
	if less(score, id, n.score, n.id) {
		n.left = insert(n.left, id, score, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, score scoreFP) *node {
	if n == nil {
		return nil
	}
	if score == n.score && id == n.id {
		// Rotate the higher-priority child up until the node is a leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, score)
		}
	} else if less(score, id, n.score, n.id) {
		n.left = deleteNode(n.left, id, score)
	} else {
		n.right = deleteNode(n.right, id, score)
	}
	fix(n)
	return n
}

// countAhead returns how many nodes hold a score strictly greater than score.
func countAhead(n *node, score scoreFP) int {
	count := 0
	for n != nil {
		if n.score > score {
			count += nsize(n.left) + 1
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

// lastAhead returns the lowest-ranked node whose score is strictly greater
// than score, or nil.
func lastAhead(n *node, score scoreFP) *node {
	var found *node
	for n != nil {
		if n.score > score {
			found = n
			n = n.right
		} else {
			n = n.left
		}
	}
	return found
}

// collectTopN appends up to limit entries in rank order (highest scores first).
func collectTopN(n *node, limit int, records map[string]record, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, records, out)
	if len(*out) < limit {
		if rec, ok := records[n.id]; ok {
			*out = append(*out, Entry{AthleteID: n.id, Score: toFloat(rec.score), Result: rec.result})
		}
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, records, out)
	}
}

// assignRanksWithTies gives equal scores the same rank; the next distinct
// score takes its 1-based position (1, 1, 3). entries must start at the top.
func assignRanksWithTies(entries []Entry) {
	for i := range entries {
		if i > 0 && entries[i].Score == entries[i-1].Score {
			entries[i].Rank = entries[i-1].Rank
			continue
		}
		entries[i].Rank = i + 1
	}
}

// TreapStore is the standings of one variant.
type TreapStore struct {
	mu    sync.RWMutex
	root  *node
	byID  map[string]record
	label string

	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

var _ Store = (*TreapStore)(nil)

// NewTreapStore constructs a treap store. The metrics updater stops when ctx
// is done or Close is called.
func NewTreapStore(ctx context.Context, opts ...Option) *TreapStore {
	s := &TreapStore{
		byID:                  make(map[string]record),
		label:                 "default",
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	metrics.UpdateTrackedAthletes(s.label, 0)
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the background metrics updater.
func (s *TreapStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// UpdateBest implements Store.UpdateBest with O(log n) expected time.
func (s *TreapStore) UpdateBest(ctx context.Context, as model.AthleteScore) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if math.IsNaN(as.Score) || math.Abs(as.Score) > maxScore {
		metrics.RecordStandingsError()
		return false, ErrInvalidScore
	}
	ns := toFixedPoint(as.Score)

	isNew := false
	s.mu.Lock()
	if old, ok := s.byID[as.AthleteID]; ok {
		if ns <= old.score {
			s.mu.Unlock()
			return false, nil
		}
		s.root = deleteNode(s.root, as.AthleteID, old.score)
	} else {
		isNew = true
	}
	s.byID[as.AthleteID] = record{score: ns, result: as.Result}
	s.root = insert(s.root, as.AthleteID, ns, rand.Uint64())
	count := len(s.byID)
	s.mu.Unlock()

	if isNew {
		metrics.UpdateTrackedAthletes(s.label, count)
	}
	return true, nil
}

// Rank returns the current rank and score for an athlete in O(log n).
func (s *TreapStore) Rank(_ context.Context, athleteID string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[athleteID]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return Entry{
		Rank:      countAhead(s.root, rec.score) + 1,
		AthleteID: athleteID,
		Score:     toFloat(rec.score),
		Result:    rec.result,
	}, nil
}

// Above returns the entry ranked directly ahead of athleteID with a strictly
// higher score. Athletes tied with athleteID are skipped.
func (s *TreapStore) Above(_ context.Context, athleteID string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[athleteID]
	if !ok {
		return Entry{}, ErrNotFound
	}
	n := lastAhead(s.root, rec.score)
	if n == nil {
		return Entry{}, ErrNoneAhead
	}
	return Entry{
		Rank:      countAhead(s.root, n.score) + 1,
		AthleteID: n.id,
		Score:     toFloat(n.score),
		Result:    s.byID[n.id].result,
	}, nil
}

// TopN returns the top N entries ordered by score desc.
func (s *TreapStore) TopN(_ context.Context, n int) ([]Entry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, min(n, len(s.byID)))
	collectTopN(s.root, n, s.byID, &out)
	assignRanksWithTies(out)
	return out, nil
}

// Count returns the number of athletes.
func (s *TreapStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// startMetricsUpdater periodically republishes the tracked athlete gauge.
func (s *TreapStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateTrackedAthletes(s.label, s.Count(ctx))
			}
		}
	}()
}
