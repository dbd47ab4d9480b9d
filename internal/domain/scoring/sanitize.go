package scoring

import (
	"math"
	"strings"

	"github.com/okian/workscore/internal/domain/model"
)

// Domain bounds for sanitized metrics and the default external knobs.
const (
	MaxRating         = 5.0
	MaxPercent        = 100.0
	DefaultMaxSalary  = 50000.0
	DefaultGlobalMean = 4.2

	minMaxSalary  = 1.0
	unboundedCeil = math.MaxFloat64
)

// Sanitize clamps every field of rec into its valid domain. Missing,
// negative and NaN values become 0; values above a bounded domain become
// the ceiling. It never fails.
func Sanitize(rec model.WorkerRecord) model.Metrics {
	return model.Metrics{
		Rating:          clampFloat(rec.Rating, MaxRating),
		OnTime:          clampFloat(rec.OnTime, MaxPercent),
		Completion:      clampFloat(rec.Completion, MaxPercent),
		ExperienceYears: clampFloat(rec.ExperienceYears, unboundedCeil),
		Salary:          clampFloat(rec.Salary, unboundedCeil),
		Complaints:      clampCount(rec.Complaints),
		JobsCompleted:   clampCount(rec.JobsCompleted),
		ActiveDays:      clampCount(rec.ActiveDays),
		Skill:           strings.ToLower(strings.TrimSpace(rec.Skill)),
	}
}

// SanitizeMaxSalary floors the salary ceiling at 1.
func SanitizeMaxSalary(v float64) float64 {
	if math.IsNaN(v) || v < minMaxSalary {
		return minMaxSalary
	}
	if math.IsInf(v, 1) {
		return unboundedCeil
	}
	return v
}

// SanitizeGlobalMean clamps the population mean rating into [0,5].
func SanitizeGlobalMean(v float64) float64 {
	return clampFloat(&v, MaxRating)
}

func clampFloat(p *float64, ceil float64) float64 {
	if p == nil {
		return 0
	}
	v := *p
	switch {
	case math.IsNaN(v), v <= 0:
		return 0
	case v > ceil:
		return ceil
	}
	return v
}

func clampCount(p *int64) int64 {
	if p == nil || *p < 0 {
		return 0
	}
	return *p
}
