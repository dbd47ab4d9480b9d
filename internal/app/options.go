package service

import (
	"github.com/okian/workscore/internal/adapters/repository"
	"github.com/okian/workscore/internal/domain/predictor"
	"github.com/okian/workscore/internal/domain/scoring"
	"github.com/okian/workscore/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of rescoring workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the rescoring queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many metrics event ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithPredictor sets the ML predictor used for hybrid scoring and retraining.
func WithPredictor(p *predictor.Predictor) Option {
	return func(s *Service) {
		if p != nil {
			s.predictor = p
		}
	}
}

// WithRankingBoard replaces the in-memory ranking board.
func WithRankingBoard(board repository.Store) Option {
	return func(s *Service) {
		if board != nil {
			s.board = board
		}
	}
}

// WithScoring sets the scoring parameters and the global inputs of the engine.
// Invalid parameters are ignored.
func WithScoring(params scoring.Params, globalMean, maxSalary float64) Option {
	return func(s *Service) {
		if params.Validate() == nil {
			s.params = params
		}
		s.globalMean = globalMean
		s.maxSalary = maxSalary
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
