package repository

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/okian/workscore/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: score DESC, then workerID ASC (deterministic). "less" means
// ranks earlier, so in-order traversal yields the board from best to worst.

// scoreScale controls fixed-point scaling from float64.
const scoreScale = 1_000_000_000

type scoreFP int64

// toFixedPoint maps a score onto an integer key. NaN maps to 0.
func toFixedPoint(x float64) scoreFP {
	if math.IsNaN(x) {
		return 0
	}
	scaled := x * scoreScale
	if scaled >= math.MaxInt64 {
		return scoreFP(math.MaxInt64)
	}
	if scaled <= math.MinInt64 {
		return scoreFP(math.MinInt64)
	}
	return scoreFP(math.Round(scaled))
}

func toFloat(x scoreFP) float64 {
	return float64(x) / scoreScale
}

// record stores the fixed-point score plus metadata for a worker's latest score.
type record struct {
	score     scoreFP
	eventID   string
	updatedAt time.Time
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

// less returns true if (aScore, aID) should appear before (bScore, bID).
func less(aScore scoreFP, aID string, bScore scoreFP, bID string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
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
	switch {
	case score == n.score && id == n.id:
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
	case less(score, id, n.score, n.id):
		n.left = deleteNode(n.left, id, score)
	default:
		n.right = deleteNode(n.right, id, score)
	}
	fix(n)
	return n
}

// walk visits nodes in rank order until visit returns false.
func walk(n *node, visit func(*node) bool) bool {
	if n == nil {
		return true
	}
	if !walk(n.left, visit) {
		return false
	}
	if !visit(n) {
		return false
	}
	return walk(n.right, visit)
}

// TreapStore is the in-memory ranking board.
type TreapStore struct {
	mu   sync.RWMutex
	root *node
	byID map[string]record
	rng  *rand.Rand
	seed uint64
	now  func() time.Time
}

// NewTreapStore constructs a treap store with configuration options.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{
		byID: make(map[string]record),
		seed: uint64(time.Now().UnixNano()),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rng = rand.New(rand.NewPCG(s.seed, s.seed^0x9e3779b97f4a7c15))
	return s
}

// Upsert implements Store.Upsert in O(log n) expected time.
func (s *TreapStore) Upsert(ctx context.Context, workerID string, score float64, eventID string) (bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryLatency("upsert", float64(time.Since(start).Microseconds())/1000)
	}()

	if workerID == "" {
		metrics.RecordErrorByComponent("repository", "invalid_worker_id")
		return false, ErrInvalidWorkerID
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	ns := toFixedPoint(score)
	rec := record{score: ns, eventID: eventID, updatedAt: s.now().UTC()}

	s.mu.Lock()
	old, existed := s.byID[workerID]
	if existed {
		s.root = deleteNode(s.root, workerID, old.score)
	}
	s.byID[workerID] = rec
	s.root = insert(s.root, workerID, ns, s.rng.Uint64())
	count := len(s.byID)
	s.mu.Unlock()

	metrics.RecordLeaderboardUpdate()
	if !existed {
		metrics.UpdateRankedWorkers(count)
	}
	return !existed, nil
}

// Rank returns the worker's dense rank: workers with equal scores share a
// rank and the next distinct score takes the following rank.
func (s *TreapStore) Rank(ctx context.Context, workerID string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryLatency("rank", float64(time.Since(start).Microseconds())/1000)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[workerID]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, ErrNotFound
	}

	rank := 0
	var last scoreFP
	walk(s.root, func(n *node) bool {
		if n.score < rec.score {
			return false
		}
		if rank == 0 || n.score != last {
			rank++
			last = n.score
		}
		return n.score != rec.score
	})

	return Entry{
		Rank:      rank,
		WorkerID:  workerID,
		Score:     toFloat(rec.score),
		EventID:   rec.eventID,
		UpdatedAt: rec.updatedAt,
	}, nil
}

// TopN returns the top N entries ordered by score desc with dense ranks.
func (s *TreapStore) TopN(ctx context.Context, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryLatency("top_n", float64(time.Since(start).Microseconds())/1000)
	}()

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, min(n, len(s.byID)))
	rank := 0
	var last scoreFP
	walk(s.root, func(nd *node) bool {
		if rank == 0 || nd.score != last {
			rank++
			last = nd.score
		}
		rec := s.byID[nd.id]
		out = append(out, Entry{
			Rank:      rank,
			WorkerID:  nd.id,
			Score:     toFloat(nd.score),
			EventID:   rec.eventID,
			UpdatedAt: rec.updatedAt,
		})
		return len(out) < n
	})
	return out, nil
}

// Count returns the number of ranked workers.
func (s *TreapStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// depth returns the height of the treap. Used to check balance.
func (s *TreapStore) depth() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var h func(*node) int
	h = func(n *node) int {
		if n == nil {
			return 0
		}
		return 1 + max(h(n.left), h(n.right))
	}
	return h(s.root)
}
