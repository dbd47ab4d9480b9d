package service

import (
	"context"
	"strconv"

	"github.com/okian/workscore/internal/domain/model"
	"github.com/okian/workscore/internal/domain/scoring"
	"github.com/okian/workscore/pkg/logger"
	"github.com/okian/workscore/pkg/metrics"
)

// CreateWorker registers a worker and ranks it immediately.
func (s *Service) CreateWorker(ctx context.Context, in NewWorker) (model.Worker, error) {
	w, err := s.registry.Create(ctx, in.Name, in.Email, scoring.Sanitize(in.Record))
	if err != nil {
		return model.Worker{}, err
	}

	st := s.scoring.Load()
	final, _ := st.engine.CalculateFinalScore(ctx, w.Metrics.Record(), st.globalMean, st.maxSalary)
	if _, err := s.board.Upsert(ctx, strconv.FormatInt(w.ID, 10), final, ""); err != nil {
		s.logger.Warn(ctx, "worker registered but not ranked",
			logger.Int64("id", w.ID),
			logger.Error(err))
	}

	if n, err := s.registry.Count(ctx); err == nil {
		metrics.UpdateWorkersTotal(n)
	}
	s.logger.Info(ctx, "worker registered",
		logger.Int64("id", w.ID),
		logger.Float64("score", final))
	return w, nil
}

// GetWorker returns a registered worker.
func (s *Service) GetWorker(ctx context.Context, id int64) (model.Worker, error) {
	return s.registry.Get(ctx, id)
}

// ListWorkers returns a page of registered workers ordered by id.
func (s *Service) ListWorkers(ctx context.Context, limit, offset int) ([]model.Worker, error) {
	return s.registry.List(ctx, limit, offset)
}

// WorkerAnalytics returns the employability score and reasons of a worker.
func (s *Service) WorkerAnalytics(ctx context.Context, id int64) (Analytics, error) {
	w, err := s.registry.Get(ctx, id)
	if err != nil {
		return Analytics{}, err
	}
	score, reasons := scoring.Employability(w.Metrics)
	return Analytics{
		WorkerID:           w.ID,
		EmployabilityScore: score,
		Reasons:            reasons,
	}, nil
}
