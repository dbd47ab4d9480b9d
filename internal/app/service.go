// Package service provides the core business service that implements
// the dependencies required by the HTTP API and the command line tools.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	eventqueue "github.com/okian/workscore/internal/adapters/mq/queue"
	workerpool "github.com/okian/workscore/internal/adapters/mq/worker"
	"github.com/okian/workscore/internal/adapters/repository"
	"github.com/okian/workscore/internal/domain/dedupe"
	"github.com/okian/workscore/internal/domain/model"
	"github.com/okian/workscore/internal/domain/predictor"
	"github.com/okian/workscore/internal/domain/scoring"
	"github.com/okian/workscore/pkg/logger"
	"github.com/okian/workscore/pkg/metrics"
)

// Registry is the persistent worker store.
type Registry interface {
	Create(ctx context.Context, name, email string, m model.Metrics) (model.Worker, error)
	Get(ctx context.Context, id int64) (model.Worker, error)
	List(ctx context.Context, limit, offset int) ([]model.Worker, error)
	Count(ctx context.Context) (int, error)
	UpdateMetrics(ctx context.Context, id int64, m model.Metrics) (model.Worker, error)
	TrainingRecords(ctx context.Context) ([]model.Metrics, error)
}

// scoringState is swapped as a whole when the scoring configuration reloads.
type scoringState struct {
	engine     *scoring.Engine
	globalMean float64
	maxSalary  float64
}

// NewWorker is the input of CreateWorker.
type NewWorker struct {
	Name   string             `json:"name" yaml:"name"`
	Email  string             `json:"email" yaml:"email"`
	Record model.WorkerRecord `json:"metrics" yaml:"metrics"`
}

// Submission is the outcome of SubmitMetrics.
type Submission struct {
	EventID   string `json:"event_id"`
	WorkerID  string `json:"worker_id"`
	Duplicate bool   `json:"duplicate"`
}

// Analytics is the employability summary of a registered worker.
type Analytics struct {
	WorkerID           int64    `json:"worker_id" yaml:"worker_id"`
	EmployabilityScore int      `json:"employability_score" yaml:"employability_score"`
	Reasons            []string `json:"reasons" yaml:"reasons"`
}

// Stats is a point-in-time view of the service for monitoring.
type Stats struct {
	Started        bool      `json:"started"`
	WorkerCount    int       `json:"worker_count"`
	QueueCapacity  int       `json:"queue_capacity"`
	QueueLength    int       `json:"queue_length"`
	DedupeSize     int64     `json:"dedupe_size"`
	Registered     int       `json:"registered_workers"`
	Ranked         int       `json:"ranked_workers"`
	ModelLoaded    bool      `json:"model_loaded"`
	ModelVersion   string    `json:"model_version,omitempty"`
	ModelSamples   int       `json:"model_samples,omitempty"`
	ModelTrainedAt time.Time `json:"model_trained_at,omitempty"`
}

// Service wires the registry, the scoring engine, the predictor and the
// asynchronous rescoring pipeline together.
type Service struct {
	mu sync.RWMutex

	registry  Registry
	predictor *predictor.Predictor
	scoring   atomic.Pointer[scoringState]
	board     repository.Store
	deduper   *dedupe.InMemoryDeduper
	queue     *eventqueue.InMemoryQueue
	pool      *workerpool.Pool
	// workerLocks stripes metrics updates by worker id.
	workerLocks [workerLockStripes]sync.Mutex

	workerCount int
	queueSize   int
	dedupeSize  int
	params      scoring.Params
	globalMean  float64
	maxSalary   float64

	started bool
	logger  logger.Logger
}

const workerLockStripes = 64

// New constructs a new Service over registry.
func New(registry Registry, opts ...Option) *Service {
	s := &Service{
		registry:    registry,
		workerCount: runtime.NumCPU(),
		queueSize:   10000,
		dedupeSize:  50000,
		params:      scoring.DefaultParams(),
		globalMean:  scoring.DefaultGlobalMean,
		maxSalary:   scoring.DefaultMaxSalary,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.predictor == nil {
		s.predictor = predictor.New(predictor.WithLogger(s.logger.Named("predictor")))
	}
	if s.board == nil {
		s.board = repository.NewTreapStore()
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.storeScoring(s.params, s.globalMean, s.maxSalary)
	return s
}

func (s *Service) storeScoring(params scoring.Params, globalMean, maxSalary float64) {
	s.scoring.Store(&scoringState{
		engine: scoring.NewEngine(
			scoring.WithParams(params),
			scoring.WithPredictor(s.predictor),
			scoring.WithLogger(s.logger.Named("scoring")),
		),
		globalMean: globalMean,
		maxSalary:  maxSalary,
	})
}

// Start ranks every registered worker and starts the rescoring pipeline.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting scoring service...")

	if err := s.rankRegistered(ctx); err != nil {
		return fmt.Errorf("rank registered workers: %w", err)
	}

	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.queue, s, s.board,
		workerpool.WithWorkerCount(s.workerCount),
		workerpool.WithPoolLogger(s.logger.Named("worker")),
	)
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "scoring service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop drains the rescoring queue and stops the workers.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping scoring service...")

	err := s.pool.Shutdown(ctx)
	s.started = false
	if err != nil {
		s.logger.Error(ctx, "scoring service stopped with pending work", logger.Error(err))
		return err
	}
	s.logger.Info(ctx, "scoring service stopped")
	return nil
}

// UpdateScoring atomically replaces the scoring parameters. In-flight
// scoring calls finish with the configuration they started with.
func (s *Service) UpdateScoring(params scoring.Params, globalMean, maxSalary float64) error {
	if err := params.Validate(); err != nil {
		return err
	}
	s.storeScoring(params, globalMean, maxSalary)
	s.logger.Info(context.Background(), "scoring configuration updated",
		logger.Float64("globalMean", globalMean),
		logger.Float64("maxSalary", maxSalary),
	)
	return nil
}

// Score computes the hybrid score of rec with the current configuration.
func (s *Service) Score(ctx context.Context, rec model.WorkerRecord) scoring.Explanation {
	st := s.scoring.Load()
	_, exp := st.engine.CalculateFinalScore(ctx, rec, st.globalMean, st.maxSalary)
	return exp
}

// ScoreEvent implements the worker pool's Scorer. Events addressed to a
// registered worker id are partial updates: fields the event leaves out keep
// their stored values, and the merged record is both scored and stored.
func (s *Service) ScoreEvent(ctx context.Context, e eventqueue.Event) (float64, error) { //nolint:gocritic // hugeParam: events travel by value
	id, err := strconv.ParseInt(e.WorkerID, 10, 64)
	if err != nil {
		st := s.scoring.Load()
		final, _ := st.engine.CalculateFinalScore(ctx, e.Record, st.globalMean, st.maxSalary)
		return final, nil
	}

	unlock := s.lockWorker(id)
	defer unlock()

	rec := e.Record
	w, err := s.registry.Get(ctx, id)
	if err == nil {
		rec = w.Metrics.Record().Overlay(e.Record)
	}

	st := s.scoring.Load()
	final, _ := st.engine.CalculateFinalScore(ctx, rec, st.globalMean, st.maxSalary)

	if err != nil {
		s.logger.Debug(ctx, "metrics not stored",
			logger.String("worker_id", e.WorkerID),
			logger.Error(err))
		return final, nil
	}
	if _, err := s.registry.UpdateMetrics(ctx, id, scoring.Sanitize(rec)); err != nil {
		s.logger.Warn(ctx, "metrics not stored",
			logger.String("worker_id", e.WorkerID),
			logger.Error(err))
	}
	return final, nil
}

// lockWorker serializes read-merge-write cycles on one worker's metrics.
func (s *Service) lockWorker(id int64) func() {
	mu := &s.workerLocks[uint64(id)%uint64(len(s.workerLocks))]
	mu.Lock()
	return mu.Unlock
}

// SubmitMetrics de-duplicates e by event id and queues it for rescoring.
// An empty event id is replaced by a generated one.
func (s *Service) SubmitMetrics(ctx context.Context, e eventqueue.Event) (Submission, error) { //nolint:gocritic // hugeParam: events travel by value
	e.WorkerID = strings.TrimSpace(e.WorkerID)
	if e.WorkerID == "" {
		return Submission{}, fmt.Errorf("%w: worker_id is required", ErrInvalidEvent)
	}
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.TS.IsZero() {
		e.TS = time.Now().UTC()
	}
	sub := Submission{EventID: e.EventID, WorkerID: e.WorkerID}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return sub, ErrNotStarted
	}

	if s.deduper.SeenAndRecord(ctx, e.EventID) {
		metrics.RecordEventDuplicate()
		s.logger.Debug(ctx, "duplicate event detected, skipping",
			logger.String("eventID", e.EventID),
			logger.String("workerID", e.WorkerID),
		)
		sub.Duplicate = true
		return sub, nil
	}

	if err := s.queue.Enqueue(ctx, e); err != nil {
		s.deduper.Unrecord(ctx, e.EventID)
		if errors.Is(err, eventqueue.ErrQueueFull) {
			return sub, ErrBackpressure
		}
		return sub, err
	}
	return sub, nil
}

// TopN returns the top n ranked workers.
func (s *Service) TopN(ctx context.Context, n int) ([]repository.Entry, error) {
	return s.board.TopN(ctx, n)
}

// Rank returns the rank entry of workerID.
func (s *Service) Rank(ctx context.Context, workerID string) (repository.Entry, error) {
	return s.board.Rank(ctx, strings.TrimSpace(workerID))
}

// Train retrains the predictor on every registered worker and reranks them
// with the new model.
func (s *Service) Train(ctx context.Context) (*predictor.Model, error) {
	mdl, err := s.predictor.TrainFromStore(ctx, s.registry)
	if err != nil {
		return nil, err
	}
	if err := s.rankRegistered(ctx); err != nil {
		s.logger.Warn(ctx, "rerank after training failed", logger.Error(err))
	}
	return mdl, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		Started:       s.started,
		WorkerCount:   s.workerCount,
		QueueCapacity: s.queueSize,
		DedupeSize:    s.deduper.Size(),
		Ranked:        s.board.Count(ctx),
	}
	if s.started {
		stats.QueueLength = s.queue.Len(ctx)
		metrics.UpdateQueueSize(stats.QueueLength)
	}
	if n, err := s.registry.Count(ctx); err == nil {
		stats.Registered = n
		metrics.UpdateWorkersTotal(n)
	}
	if mdl, err := s.predictor.Model(ctx); err == nil {
		stats.ModelLoaded = true
		stats.ModelVersion = mdl.Version
		stats.ModelSamples = mdl.Samples
		stats.ModelTrainedAt = mdl.TrainedAt
	}
	return stats
}

// rankRegistered scores every registered worker and upserts the results.
func (s *Service) rankRegistered(ctx context.Context) error {
	const page = 500
	st := s.scoring.Load()
	ranked := 0
	for offset := 0; ; offset += page {
		workers, err := s.registry.List(ctx, page, offset)
		if err != nil {
			return err
		}
		for _, w := range workers {
			final, _ := st.engine.CalculateFinalScore(ctx, w.Metrics.Record(), st.globalMean, st.maxSalary)
			if _, err := s.board.Upsert(ctx, strconv.FormatInt(w.ID, 10), final, ""); err != nil {
				return err
			}
			ranked++
		}
		if len(workers) < page {
			break
		}
	}
	s.logger.Debug(ctx, "registered workers ranked", logger.Int("count", ranked))
	return nil
}
