package scoring

import (
	"math"

	"github.com/okian/workscore/internal/domain/model"
)

// Saturation points of the normalization curves.
const (
	ExperienceSaturationYears = 5.0
	JobVolumeSaturation       = 50.0
)

// Features are the seven normalized signals, each in [0,1].
type Features struct {
	Rating     float64 `json:"rating"`
	OnTime     float64 `json:"on_time"`
	Completion float64 `json:"completion"`
	Experience float64 `json:"experience"`
	Salary     float64 `json:"salary"`
	Complaints float64 `json:"complaints"`
	JobVolume  float64 `json:"job_volume"`
}

// Normalize maps sanitized metrics into [0,1] signals. maxSalary is
// floored at 1 before use.
//
// Punctuality and completion are squared so that drops below ~90% hurt
// more than linearly. Complaints decay harmonically and never reach zero.
func Normalize(m model.Metrics, maxSalary float64) Features {
	maxSalary = SanitizeMaxSalary(maxSalary)
	onTime := m.OnTime / MaxPercent
	completion := m.Completion / MaxPercent
	return Features{
		Rating:     m.Rating / MaxRating,
		OnTime:     onTime * onTime,
		Completion: completion * completion,
		Experience: math.Min(m.ExperienceYears/ExperienceSaturationYears, 1),
		Salary:     math.Max(0, 1-m.Salary/maxSalary),
		Complaints: 1 / (1 + float64(m.Complaints)),
		JobVolume:  math.Min(float64(m.JobsCompleted)/JobVolumeSaturation, 1),
	}
}
