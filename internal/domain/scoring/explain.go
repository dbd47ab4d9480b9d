package scoring

import (
	"math"

	"github.com/okian/workscore/internal/domain/model"
)

// Reason strings attached to explanations.
const (
	ReasonLowJobHistory      = "low job history"
	ReasonHighComplaints     = "high complaint frequency"
	ReasonBelowAverageRating = "below average rating"
)

// Explanation is the per-call breakdown of a hybrid score. Numeric values
// are rounded to two decimals.
type Explanation struct {
	RuleScore             float64  `json:"rule_score" yaml:"rule_score"`
	BayesianScore         float64  `json:"bayesian_score" yaml:"bayesian_score"`
	MLScore               float64  `json:"ml_score" yaml:"ml_score"`
	MLConfidence          float64  `json:"ml_confidence" yaml:"ml_confidence"`
	MLUsed                bool     `json:"ml_used" yaml:"ml_used"`
	HybridBeforeEdgeCases float64  `json:"hybrid_before_edge_cases" yaml:"hybrid_before_edge_cases"`
	FinalScore            float64  `json:"final_score" yaml:"final_score"`
	Policies              []string `json:"policies" yaml:"policies"`
	Reasons               []string `json:"reasons" yaml:"reasons"`
}

// Reasons returns the qualitative flags for m. Each flag is an independent
// check on the sanitized inputs.
func (p Params) Reasons(m model.Metrics) []string {
	reasons := []string{}
	if m.JobsCompleted < p.LowHistoryJobs {
		reasons = append(reasons, ReasonLowJobHistory)
	}
	if m.Complaints > p.HighComplaints {
		reasons = append(reasons, ReasonHighComplaints)
	}
	if m.Rating < p.BelowAverageRating {
		reasons = append(reasons, ReasonBelowAverageRating)
	}
	return reasons
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
