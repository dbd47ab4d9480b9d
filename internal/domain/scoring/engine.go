// Package scoring implements the hybrid employability scoring engine:
// sanitization, normalization, the weighted rule score, Bayesian rating
// smoothing, blending with an ML prediction and the edge-case policies.
//
// Everything except Engine.CalculateFinalScore is a pure function of its
// inputs and safe for concurrent use.
package scoring

import (
	"context"

	"github.com/okian/workscore/internal/domain/model"
	"github.com/okian/workscore/pkg/logger"
	"github.com/okian/workscore/pkg/metrics"
)

// Predictor is the ML collaborator consumed by the engine.
type Predictor interface {
	// Predict returns the predicted quality and confidence for m.
	Predict(ctx context.Context, m model.Metrics) (Prediction, error)
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithParams replaces the default scoring parameters. Invalid params are ignored.
func WithParams(p Params) Option {
	return func(e *Engine) {
		if p.Validate() == nil {
			e.params = p
		}
	}
}

// WithPredictor sets the ML collaborator. Without one the engine scores rule-only.
func WithPredictor(p Predictor) Option {
	return func(e *Engine) {
		e.predictor = p
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Engine computes hybrid scores.
type Engine struct {
	params    Params
	predictor Predictor
	logger    logger.Logger
}

// NewEngine creates a scoring engine with configuration options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		params: DefaultParams(),
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Params returns a copy of the engine's parameters.
func (e *Engine) Params() Params {
	return e.params
}

// Score computes the explanation for already sanitized metrics and an
// optional prediction. A nil prediction selects rule-only blending.
func (e *Engine) Score(m model.Metrics, globalMean, maxSalary float64, pred *Prediction) Explanation {
	p := e.params
	globalMean = SanitizeGlobalMean(globalMean)

	features := Normalize(m, maxSalary)
	rule := RuleScore(features, p.Weights)
	bayes := BayesianRating(m.Rating, m.JobsCompleted, globalMean, p.ConfidenceM)

	hybrid := p.Hybrid(rule, bayes, pred)
	final, policies := p.ApplyEdgeCases(hybrid, m)

	exp := Explanation{
		RuleScore:             round2(rule),
		BayesianScore:         round2(bayes),
		HybridBeforeEdgeCases: round2(hybrid),
		FinalScore:            round2(final),
		Policies:              policies,
		Reasons:               p.Reasons(m),
	}
	if pred != nil {
		c := pred.clamped()
		exp.MLScore = round2(c.Quality * maxScore)
		exp.MLConfidence = round2(c.Confidence)
		exp.MLUsed = true
	} else {
		exp.Policies = append([]string{PolicyRuleOnlyFallback}, exp.Policies...)
	}
	if exp.Policies == nil {
		exp.Policies = []string{}
	}
	return exp
}

// CalculateFinalScore sanitizes rec, asks the predictor for a prediction and
// returns the bounded final score with its explanation. A failing or absent
// predictor never fails the call; the engine falls back to rule-only blending.
func (e *Engine) CalculateFinalScore(ctx context.Context, rec model.WorkerRecord, globalMean, maxSalary float64) (float64, Explanation) {
	m := Sanitize(rec)

	var pred *Prediction
	if e.predictor != nil {
		got, err := e.predictor.Predict(ctx, m)
		if err != nil {
			metrics.RecordPrediction("unavailable")
			e.logger.Debug(ctx, "prediction unavailable, scoring rule-only", logger.Error(err))
		} else {
			metrics.RecordPrediction("ok")
			pred = &got
		}
	}

	exp := e.Score(m, globalMean, maxSalary, pred)
	for _, policy := range exp.Policies {
		metrics.RecordScoringPolicy(policy)
	}
	metrics.ObserveFinalScore(exp.FinalScore)
	return exp.FinalScore, exp
}
