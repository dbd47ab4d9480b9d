// Package model contains domain models passed between layers.
package model

import "time"

// WorkerRecord is a raw worker record as received from callers or storage.
// Numeric fields are optional; nil means the value was not supplied.
type WorkerRecord struct {
	Rating          *float64 `json:"rating,omitempty" yaml:"rating,omitempty"`
	OnTime          *float64 `json:"on_time,omitempty" yaml:"on_time,omitempty"`
	Completion      *float64 `json:"completion,omitempty" yaml:"completion,omitempty"`
	ExperienceYears *float64 `json:"experience_years,omitempty" yaml:"experience_years,omitempty"`
	Salary          *float64 `json:"salary,omitempty" yaml:"salary,omitempty"`
	Complaints      *int64   `json:"complaints,omitempty" yaml:"complaints,omitempty"`
	JobsCompleted   *int64   `json:"jobs_completed,omitempty" yaml:"jobs_completed,omitempty"`
	ActiveDays      *int64   `json:"active_days,omitempty" yaml:"active_days,omitempty"`
	Skill           string   `json:"skill,omitempty" yaml:"skill,omitempty"`
}

// Metrics is the sanitized, fully populated view of a worker record.
// Every field is within its valid domain.
type Metrics struct {
	Rating          float64 `json:"rating"`
	OnTime          float64 `json:"on_time"`
	Completion      float64 `json:"completion"`
	ExperienceYears float64 `json:"experience_years"`
	Salary          float64 `json:"salary"`
	Complaints      int64   `json:"complaints"`
	JobsCompleted   int64   `json:"jobs_completed"`
	ActiveDays      int64   `json:"active_days"`
	Skill           string  `json:"skill,omitempty"`
}

// Record returns m as a WorkerRecord with every field present.
func (m Metrics) Record() WorkerRecord {
	return WorkerRecord{
		Rating:          Float(m.Rating),
		OnTime:          Float(m.OnTime),
		Completion:      Float(m.Completion),
		ExperienceYears: Float(m.ExperienceYears),
		Salary:          Float(m.Salary),
		Complaints:      Int(m.Complaints),
		JobsCompleted:   Int(m.JobsCompleted),
		ActiveDays:      Int(m.ActiveDays),
		Skill:           m.Skill,
	}
}

// Overlay returns r with every field supplied in patch taken from patch.
// Fields patch leaves out keep r's value.
func (r WorkerRecord) Overlay(patch WorkerRecord) WorkerRecord {
	out := r
	if patch.Rating != nil {
		out.Rating = patch.Rating
	}
	if patch.OnTime != nil {
		out.OnTime = patch.OnTime
	}
	if patch.Completion != nil {
		out.Completion = patch.Completion
	}
	if patch.ExperienceYears != nil {
		out.ExperienceYears = patch.ExperienceYears
	}
	if patch.Salary != nil {
		out.Salary = patch.Salary
	}
	if patch.Complaints != nil {
		out.Complaints = patch.Complaints
	}
	if patch.JobsCompleted != nil {
		out.JobsCompleted = patch.JobsCompleted
	}
	if patch.ActiveDays != nil {
		out.ActiveDays = patch.ActiveDays
	}
	if patch.Skill != "" {
		out.Skill = patch.Skill
	}
	return out
}

// Worker is a registered worker profile.
type Worker struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Metrics   Metrics   `json:"metrics"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MetricsEvent asks for a worker to be rescored with fresh metrics.
type MetricsEvent struct {
	EventID  string       // unique id for idempotency
	WorkerID string       // subject identifier
	Record   WorkerRecord // raw metrics, sanitized by the scorer
	TS       time.Time    // event timestamp
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int64) *int64 { return &v }
