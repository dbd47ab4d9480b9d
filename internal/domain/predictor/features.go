package predictor

import (
	"github.com/okian/workscore/internal/domain/model"
	"github.com/okian/workscore/internal/domain/scoring"
)

// FeatureNames lists the model inputs in vector order.
var FeatureNames = []string{ //nolint:gochecknoglobals // fixed feature layout
	"experience_years",
	"high_demand_skill",
	"salary",
	"rating",
	"on_time",
	"completion",
	"complaints",
	"jobs_completed",
}

// Features extracts the model input vector from sanitized metrics.
func Features(m model.Metrics) []float64 {
	skill := 0.0
	if scoring.IsHighDemandSkill(m.Skill) {
		skill = 1
	}
	return []float64{
		m.ExperienceYears,
		skill,
		m.Salary,
		m.Rating,
		m.OnTime,
		m.Completion,
		float64(m.Complaints),
		float64(m.JobsCompleted),
	}
}
