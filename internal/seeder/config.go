// Package seeder drives a running workscore server with synthetic worker
// profiles: it registers them, streams metrics events, optionally retrains
// the model and reports the resulting leaderboard.
package seeder

import (
	"time"

	"github.com/okian/workscore/internal/domain/model"
)

// Config holds the seeding run parameters.
type Config struct {
	BaseURL     string        // base URL of the service
	Workers     int           // profiles to register
	Events      int           // metrics events per registered worker
	Concurrency int           // in-flight requests
	TopN        int           // leaderboard entries to fetch
	Timeout     time.Duration // per-request timeout
	Settle      time.Duration // max wait for the rescoring queue to drain
	Train       bool          // retrain the model after registration
}

// Profile is a synthetic worker registration.
type Profile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	model.WorkerRecord
}

// Event is a synthetic metrics event for a registered worker.
type Event struct {
	EventID  string `json:"event_id"`
	WorkerID string `json:"worker_id"`
	TS       string `json:"ts"`
	model.WorkerRecord
}

// Entry is a leaderboard row as served by the API.
type Entry struct {
	Rank     int     `json:"rank" yaml:"rank"`
	WorkerID string  `json:"worker_id" yaml:"worker_id"`
	Score    float64 `json:"score" yaml:"score"`
	EventID  string  `json:"event_id,omitempty" yaml:"event_id,omitempty"`
}

// AckResponse is the reply to POST /metrics.
type AckResponse struct {
	Status    string `json:"status"`
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
}

// TrainResult is the reply to POST /model/train.
type TrainResult struct {
	Version string `json:"version" yaml:"version"`
	Samples int    `json:"samples" yaml:"samples"`
	Depth   int    `json:"depth" yaml:"depth"`
}

// Stats holds run counters.
type Stats struct {
	WorkersRegistered int           `json:"workers_registered" yaml:"workers_registered"`
	RegisterFailed    int           `json:"register_failed" yaml:"register_failed"`
	EventsSubmitted   int           `json:"events_submitted" yaml:"events_submitted"`
	EventsAccepted    int           `json:"events_accepted" yaml:"events_accepted"`
	EventsDuplicate   int           `json:"events_duplicate" yaml:"events_duplicate"`
	EventsFailed      int           `json:"events_failed" yaml:"events_failed"`
	RanksRetrieved    int           `json:"ranks_retrieved" yaml:"ranks_retrieved"`
	Duration          time.Duration `json:"duration" yaml:"duration"`
}

// Report is the outcome of a run.
type Report struct {
	Stats       Stats        `json:"stats" yaml:"stats"`
	Model       *TrainResult `json:"model,omitempty" yaml:"model,omitempty"`
	TrainError  string       `json:"train_error,omitempty" yaml:"train_error,omitempty"`
	Consistent  bool         `json:"consistent" yaml:"consistent"`
	Leaderboard []Entry      `json:"leaderboard" yaml:"leaderboard"`
}
