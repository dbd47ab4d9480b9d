package scoring

import (
	"fmt"
	"math"
)

// Weights are the rule-score weights per normalized feature. They must sum to 1.
type Weights struct {
	OnTime     float64 `koanf:"on_time" json:"on_time"`
	Completion float64 `koanf:"completion" json:"completion"`
	Rating     float64 `koanf:"rating" json:"rating"`
	Complaints float64 `koanf:"complaints" json:"complaints"`
	Experience float64 `koanf:"experience" json:"experience"`
	Salary     float64 `koanf:"salary" json:"salary"`
	JobVolume  float64 `koanf:"job_volume" json:"job_volume"`
}

// DefaultWeights returns the production weight table.
func DefaultWeights() Weights {
	return Weights{
		OnTime:     0.25,
		Completion: 0.20,
		Rating:     0.15,
		Complaints: 0.25,
		Experience: 0.05,
		Salary:     0.05,
		JobVolume:  0.05,
	}
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.OnTime + w.Completion + w.Rating + w.Complaints + w.Experience + w.Salary + w.JobVolume
}

// Params is the immutable scoring configuration. Engines copy it on
// construction, so callers can build variants without touching shared state.
type Params struct {
	Weights Weights `koanf:"weights" json:"weights"`

	// ConfidenceM is the Bayesian prior strength in pseudo-jobs.
	ConfidenceM float64 `koanf:"confidence_m" json:"confidence_m"`

	// Blend of rule score and Bayesian score into the blended rule score.
	RuleBlendWeight     float64 `koanf:"rule_blend_weight" json:"rule_blend_weight"`
	BayesianBlendWeight float64 `koanf:"bayesian_blend_weight" json:"bayesian_blend_weight"`

	// Blend of blended rule score and confidence-weighted ML score.
	RuleWeight float64 `koanf:"rule_weight" json:"rule_weight"`
	MLWeight   float64 `koanf:"ml_weight" json:"ml_weight"`

	// Low-data cap: workers below LowDataJobs are clamped into [LowDataMin, LowDataMax].
	LowDataJobs int64   `koanf:"low_data_jobs" json:"low_data_jobs"`
	LowDataMin  float64 `koanf:"low_data_min" json:"low_data_min"`
	LowDataMax  float64 `koanf:"low_data_max" json:"low_data_max"`

	// ZeroActivityFactor multiplies the score of workers with no completed jobs.
	ZeroActivityFactor float64 `koanf:"zero_activity_factor" json:"zero_activity_factor"`

	// Anomaly dampening applies when jobs per active day exceeds AnomalyThroughput.
	AnomalyThroughput float64 `koanf:"anomaly_throughput" json:"anomaly_throughput"`
	AnomalyFactor     float64 `koanf:"anomaly_factor" json:"anomaly_factor"`

	// Explanation thresholds.
	LowHistoryJobs     int64   `koanf:"low_history_jobs" json:"low_history_jobs"`
	HighComplaints     int64   `koanf:"high_complaints" json:"high_complaints"`
	BelowAverageRating float64 `koanf:"below_average_rating" json:"below_average_rating"`
}

// DefaultParams returns the production scoring configuration.
func DefaultParams() Params {
	return Params{
		Weights:             DefaultWeights(),
		ConfidenceM:         20,
		RuleBlendWeight:     0.8,
		BayesianBlendWeight: 0.2,
		RuleWeight:          0.6,
		MLWeight:            0.4,
		LowDataJobs:         5,
		LowDataMin:          4.0,
		LowDataMax:          7.0,
		ZeroActivityFactor:  0.8,
		AnomalyThroughput:   20,
		AnomalyFactor:       0.85,
		LowHistoryJobs:      10,
		HighComplaints:      3,
		BelowAverageRating:  3.5,
	}
}

const weightTolerance = 1e-9

// Validate reports whether p can produce scores within [0,10].
func (p Params) Validate() error {
	if math.Abs(p.Weights.Sum()-1) > weightTolerance {
		return fmt.Errorf("%w: weights sum to %.4f, want 1", ErrInvalidParams, p.Weights.Sum())
	}
	if math.Abs(p.RuleBlendWeight+p.BayesianBlendWeight-1) > weightTolerance {
		return fmt.Errorf("%w: rule/bayesian blend must sum to 1", ErrInvalidParams)
	}
	if math.Abs(p.RuleWeight+p.MLWeight-1) > weightTolerance {
		return fmt.Errorf("%w: rule/ml weights must sum to 1", ErrInvalidParams)
	}
	if p.ConfidenceM <= 0 {
		return fmt.Errorf("%w: confidence constant must be positive", ErrInvalidParams)
	}
	if p.LowDataMin > p.LowDataMax {
		return fmt.Errorf("%w: low-data cap bounds inverted", ErrInvalidParams)
	}
	return nil
}
