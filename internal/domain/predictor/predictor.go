// Package predictor implements the ML collaborator of the scoring engine: a
// regression tree trained on stored workers with the employability heuristic
// as pseudo-label.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/workscore/internal/domain/model"
	"github.com/okian/workscore/internal/domain/scoring"
	"github.com/okian/workscore/pkg/logger"
	"github.com/okian/workscore/pkg/metrics"
)

// Training defaults.
const (
	DefaultMinRecords  = 5
	DefaultMaxDepth    = 4
	DefaultMissRecheck = 30 * time.Second

	// confidenceJobs is the job count at which a prediction is fully trusted.
	confidenceJobs = 50.0
	minLeafSamples = 1
	minPrediction  = 1.0
	maxPrediction  = 10.0
)

// Source supplies training records.
type Source interface {
	TrainingRecords(ctx context.Context) ([]model.Metrics, error)
}

// Predictor serves predictions from the current model. The model is swapped
// atomically on retrain, so readers never see a partially built tree.
type Predictor struct {
	current atomic.Pointer[Model]
	loadMu  sync.Mutex
	// missedAt is the unix nano time the artifact was last found missing.
	missedAt atomic.Int64

	path        string
	minRecords  int
	maxDepth    int
	missRecheck time.Duration
	logger      logger.Logger
}

// New creates a predictor with configuration options.
func New(opts ...Option) *Predictor {
	p := &Predictor{
		minRecords:  DefaultMinRecords,
		maxDepth:    DefaultMaxDepth,
		missRecheck: DefaultMissRecheck,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Model returns the loaded model, loading it from disk on first use.
// A missing artifact is remembered for the miss recheck interval, so callers
// on the scoring path do not read the disk on every prediction.
func (p *Predictor) Model(ctx context.Context) (*Model, error) {
	if m := p.current.Load(); m != nil {
		return m, nil
	}
	if p.path == "" {
		return nil, ErrModelUnavailable
	}
	if p.recentlyMissed() {
		return nil, fmt.Errorf("%w: %s", ErrModelUnavailable, p.path)
	}

	p.loadMu.Lock()
	defer p.loadMu.Unlock()
	if m := p.current.Load(); m != nil {
		return m, nil
	}
	if p.recentlyMissed() {
		return nil, fmt.Errorf("%w: %s", ErrModelUnavailable, p.path)
	}
	m, err := LoadModel(p.path)
	if err != nil {
		if errors.Is(err, ErrModelUnavailable) {
			p.missedAt.Store(time.Now().UnixNano())
		}
		return nil, err
	}
	p.missedAt.Store(0)
	p.current.Store(m)
	p.logger.Info(ctx, "model loaded",
		logger.String("path", p.path),
		logger.String("version", m.Version),
		logger.Int("samples", m.Samples))
	return m, nil
}

func (p *Predictor) recentlyMissed() bool {
	at := p.missedAt.Load()
	return at != 0 && time.Since(time.Unix(0, at)) < p.missRecheck
}

// Raw returns the tree output on the 1-10 employability scale.
func (p *Predictor) Raw(ctx context.Context, m model.Metrics) (float64, error) {
	mdl, err := p.Model(ctx)
	if err != nil {
		return 0, err
	}
	return mdl.Tree.Predict(Features(m)), nil
}

// Predict implements scoring.Predictor.
func (p *Predictor) Predict(ctx context.Context, m model.Metrics) (scoring.Prediction, error) {
	raw, err := p.Raw(ctx, m)
	if err != nil {
		return scoring.Prediction{}, err
	}
	return scoring.Prediction{
		Quality:    max(0, min(raw, maxPrediction)) / maxPrediction,
		Confidence: Confidence(m.JobsCompleted),
	}, nil
}

// PredictWorker sanitizes rec and predicts it.
func (p *Predictor) PredictWorker(ctx context.Context, rec model.WorkerRecord) (scoring.Prediction, error) {
	return p.Predict(ctx, scoring.Sanitize(rec))
}

// PredictScore returns the integer employability estimate in [1,10].
func (p *Predictor) PredictScore(ctx context.Context, m model.Metrics) (int, error) {
	raw, err := p.Raw(ctx, m)
	if err != nil {
		return 0, err
	}
	return int(max(minPrediction, min(raw, maxPrediction))), nil
}

// Confidence is min(jobs/50, 1).
func Confidence(jobs int64) float64 {
	if jobs <= 0 {
		return 0
	}
	return min(float64(jobs)/confidenceJobs, 1)
}

// Train fits a new model on records, persists it when a model path is set,
// and publishes it. Fewer than the minimum records yields ErrInsufficientData
// and leaves the current model untouched.
func (p *Predictor) Train(ctx context.Context, records []model.Metrics) (*Model, error) {
	start := time.Now()
	if len(records) < p.minRecords {
		metrics.RecordModelTraining("insufficient_data", msSince(start), len(records), 0)
		return nil, fmt.Errorf("%w: have %d records, need %d", ErrInsufficientData, len(records), p.minRecords)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	x := make([][]float64, len(records))
	y := make([]float64, len(records))
	for i, m := range records {
		x[i] = Features(m)
		score, _ := scoring.Employability(m)
		y[i] = float64(score)
	}

	mdl := &Model{
		Version:   uuid.NewString(),
		TrainedAt: time.Now().UTC(),
		Samples:   len(records),
		Features:  FeatureNames,
		Tree:      FitTree(x, y, p.maxDepth, minLeafSamples),
	}

	if p.path != "" {
		if err := SaveModel(p.path, mdl); err != nil {
			metrics.RecordModelTraining("error", msSince(start), len(records), 0)
			return nil, err
		}
	}
	p.current.Store(mdl)
	p.missedAt.Store(0)

	metrics.RecordModelTraining("ok", msSince(start), mdl.Samples, mdl.TrainedAt.Unix())
	p.logger.Info(ctx, "model trained",
		logger.String("version", mdl.Version),
		logger.Int("samples", mdl.Samples),
		logger.Int("depth", mdl.Tree.Depth()),
		logger.Duration("took", time.Since(start)))
	return mdl, nil
}

// TrainFromStore trains on every record the source returns.
func (p *Predictor) TrainFromStore(ctx context.Context, src Source) (*Model, error) {
	if src == nil {
		return nil, errors.New("nil training source")
	}
	records, err := src.TrainingRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("load training records: %w", err)
	}
	return p.Train(ctx, records)
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
