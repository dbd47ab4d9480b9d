package scoring

import (
	"math"

	"github.com/okian/workscore/internal/domain/model"
)

// Edge-case policy names reported in explanations and metrics.
const (
	PolicyLowDataCap        = "low_data_cap"
	PolicyZeroActivityDecay = "zero_activity_decay"
	PolicyAnomalyDampening  = "anomaly_dampening"
	PolicyRuleOnlyFallback  = "rule_only_fallback"
)

const maxScore = 10.0

// Prediction is the ML collaborator's output: predicted quality and the
// trust placed in it, both in [0,1].
type Prediction struct {
	Quality    float64 `json:"predicted_quality"`
	Confidence float64 `json:"confidence"`
}

// clamped returns p with both values forced into [0,1].
func (p Prediction) clamped() Prediction {
	return Prediction{Quality: unit(p.Quality), Confidence: unit(p.Confidence)}
}

// Hybrid blends the rule and Bayesian scores with the confidence-weighted
// ML score. A nil prediction yields the blended rule score alone.
func (p Params) Hybrid(rule, bayes float64, pred *Prediction) float64 {
	blended := p.RuleBlendWeight*rule + p.BayesianBlendWeight*bayes
	if pred == nil {
		return blended
	}
	c := pred.clamped()
	mlTerm := c.Quality * maxScore * c.Confidence
	return p.RuleWeight*blended + p.MLWeight*mlTerm
}

// ApplyEdgeCases runs the edge-case policies over hybrid in order: low-data
// cap, zero-activity decay, anomaly dampening, final clamp. Each step works
// on the previous step's output. It returns the final score and the names
// of the policies that fired.
func (p Params) ApplyEdgeCases(hybrid float64, m model.Metrics) (float64, []string) {
	var fired []string
	score := hybrid

	if m.JobsCompleted < p.LowDataJobs {
		score = clamp(score, p.LowDataMin, p.LowDataMax)
		fired = append(fired, PolicyLowDataCap)
	}
	if m.JobsCompleted == 0 {
		score *= p.ZeroActivityFactor
		fired = append(fired, PolicyZeroActivityDecay)
	}
	if m.ActiveDays > 0 && float64(m.JobsCompleted)/float64(m.ActiveDays) > p.AnomalyThroughput {
		score *= p.AnomalyFactor
		fired = append(fired, PolicyAnomalyDampening)
	}

	return clamp(score, 0, maxScore), fired
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func unit(v float64) float64 {
	return clamp(v, 0, 1)
}
