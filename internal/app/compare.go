package service

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/okian/workscore/internal/domain/model"
	"github.com/okian/workscore/internal/domain/scoring"
)

// Comparison contrasts the rule heuristic with the model for one worker.
type Comparison struct {
	WorkerID   int64   `json:"worker_id" yaml:"worker_id"`
	RuleScore  int     `json:"rule_score" yaml:"rule_score"`
	MLScore    int     `json:"ml_score" yaml:"ml_score"`
	Difference int     `json:"difference" yaml:"difference"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Distribution counts integer scores "1".."10" across registered workers.
// ML is nil when no model is available; MLError then says why.
type Distribution struct {
	Workers int            `json:"workers"`
	Rule    map[string]int `json:"rule_score_distribution"`
	ML      map[string]int `json:"ml_score_distribution,omitempty"`
	MLError string         `json:"ml_error,omitempty"`
}

// AgreementConfidence maps the rule/model gap onto a confidence in the rule
// score: identical scores are trusted most.
func AgreementConfidence(diff int) float64 {
	if diff < 0 {
		diff = -diff
	}
	switch diff {
	case 0:
		return 0.90
	case 1:
		return 0.75
	case 2:
		return 0.55
	default:
		return 0.35
	}
}

// Compare returns the rule and ML scores of a registered worker.
func (s *Service) Compare(ctx context.Context, id int64) (Comparison, error) {
	w, err := s.registry.Get(ctx, id)
	if err != nil {
		return Comparison{}, err
	}
	rule, _ := scoring.Employability(w.Metrics)
	ml, err := s.predictor.PredictScore(ctx, w.Metrics)
	if err != nil {
		return Comparison{}, err
	}
	diff := ml - rule
	return Comparison{
		WorkerID:   w.ID,
		RuleScore:  rule,
		MLScore:    ml,
		Difference: diff,
		Confidence: AgreementConfidence(diff),
	}, nil
}

// Distribution computes the rule and ML histograms concurrently.
func (s *Service) Distribution(ctx context.Context) (Distribution, error) {
	workers, err := s.registry.List(ctx, 0, 0)
	if err != nil {
		return Distribution{}, err
	}

	var (
		rule  map[string]int
		ml    map[string]int
		mlErr error
		g     errgroup.Group
	)
	g.Go(func() error {
		rule = emptyDistribution()
		for _, w := range workers {
			score, _ := scoring.Employability(w.Metrics)
			rule[strconv.Itoa(score)]++
		}
		return nil
	})
	g.Go(func() error {
		hist, err := s.mlDistribution(ctx, workers)
		if err != nil {
			mlErr = err
			return nil
		}
		ml = hist
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Distribution{}, err
	}
	d := Distribution{Workers: len(workers), Rule: rule, ML: ml}
	if mlErr != nil {
		d.MLError = mlErr.Error()
	}
	return d, nil
}

func (s *Service) mlDistribution(ctx context.Context, workers []model.Worker) (map[string]int, error) {
	hist := emptyDistribution()
	for _, w := range workers {
		score, err := s.predictor.PredictScore(ctx, w.Metrics)
		if err != nil {
			return nil, err
		}
		hist[strconv.Itoa(score)]++
	}
	return hist, nil
}

func emptyDistribution() map[string]int {
	d := make(map[string]int, scoring.MaxEmployability)
	for i := scoring.MinEmployability; i <= scoring.MaxEmployability; i++ {
		d[strconv.Itoa(i)] = 0
	}
	return d
}
