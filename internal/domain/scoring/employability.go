package scoring

import (
	"slices"

	"github.com/okian/workscore/internal/domain/model"
)

// Employability score bounds.
const (
	MinEmployability = 1
	MaxEmployability = 10
)

// highDemandSkills is the fixed vocabulary of skills with strong demand.
var highDemandSkills = []string{"delivery", "cleaning", "driver"}

// IsHighDemandSkill reports whether skill belongs to the high-demand vocabulary.
// skill must already be normalized (see Sanitize).
func IsHighDemandSkill(skill string) bool {
	return slices.Contains(highDemandSkills, skill)
}

// CalculateEmployability is the additive rule heuristic. It is used as a
// quick summary and as the pseudo-label when training the predictor.
// The score is always within [1,10].
func CalculateEmployability(rec model.WorkerRecord) (int, []string) {
	return Employability(Sanitize(rec))
}

// Employability scores already sanitized metrics. See CalculateEmployability.
func Employability(m model.Metrics) (int, []string) {
	score := 0
	reasons := []string{}

	switch {
	case m.ExperienceYears >= 5:
		score += 3
		reasons = append(reasons, "Strong experience (5+ years)")
	case m.ExperienceYears >= 2:
		score += 2
		reasons = append(reasons, "Moderate experience (2+ years)")
	default:
		score++
		reasons = append(reasons, "Limited experience")
	}

	if IsHighDemandSkill(m.Skill) {
		score++
		reasons = append(reasons, "High-demand skill")
	}

	switch {
	case m.Rating >= 4.5:
		score += 2
		reasons = append(reasons, "Excellent rating")
	case m.Rating >= 3.5:
		score++
		reasons = append(reasons, "Good rating")
	}

	if m.OnTime >= 90 {
		score++
		reasons = append(reasons, "High punctuality")
	}
	if m.Completion >= 90 {
		score++
		reasons = append(reasons, "High completion rate")
	}

	switch {
	case m.Complaints >= 20:
		score -= 2
		reasons = append(reasons, "High complaint history")
	case m.Complaints >= 5:
		score--
		reasons = append(reasons, "Some complaints reported")
	}

	if m.JobsCompleted >= 100 {
		score++
		reasons = append(reasons, "Strong work history")
	}

	// A missing salary sanitizes to 0 and counts as cost-effective.
	if m.Salary <= 20000 {
		score++
		reasons = append(reasons, "Cost-effective salary")
	}

	return max(MinEmployability, min(score, MaxEmployability)), reasons
}
