// Package config defines service configuration and its loading, validation
// and hot-reload hooks.
package config

import (
	"fmt"
	"math"
	"runtime"

	"github.com/okian/workscore/internal/domain/scoring"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBDriver selects the worker registry backend: sqlite or postgres.
	DBDriver string `koanf:"db_driver"`

	// DBDSN is the sqlite file path (or ":memory:") or a postgres connection string.
	DBDSN string `koanf:"db_dsn"`

	// EventQueueSize bounds the in-memory rescoring queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of scoring workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many metrics event ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// GlobalMean is the platform-wide mean rating used as the Bayesian prior.
	GlobalMean float64 `koanf:"global_mean"`

	// MaxSalary is the salary at which the salary feature reaches zero.
	MaxSalary float64 `koanf:"max_salary"`

	// ModelPath is where the trained model artifact is stored.
	ModelPath string `koanf:"model_path"`

	// MinTrainRecords is the minimum registry size required to retrain.
	MinTrainRecords int `koanf:"min_train_records"`

	// TreeDepth bounds the regression tree depth.
	TreeDepth int `koanf:"tree_depth"`

	// TrainRatePerMinute and TrainBurst limit POST /model/train.
	TrainRatePerMinute float64 `koanf:"train_rate_per_minute"`
	TrainBurst         int     `koanf:"train_burst"`

	// Scoring holds the engine weights and edge-case thresholds.
	Scoring scoring.Params `koanf:"scoring"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		DBDriver:            "sqlite",
		DBDSN:               "workscore.db",
		EventQueueSize:      10_000,
		WorkerCount:         runtime.NumCPU(),
		DedupeSize:          50_000,
		MaxLeaderboardLimit: 100,
		GlobalMean:          scoring.DefaultGlobalMean,
		MaxSalary:           scoring.DefaultMaxSalary,
		ModelPath:           "employability_model.json",
		MinTrainRecords:     5,
		TreeDepth:           4,
		TrainRatePerMinute:  6,
		TrainBurst:          2,
		Scoring:             scoring.DefaultParams(),
	}
}

// Validate checks the config and returns an ErrInvalidConfig wrap on failure.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DBDriver != "sqlite" && c.DBDriver != "postgres":
		return fmt.Errorf("%w: db_driver %q (want sqlite or postgres)", ErrInvalidConfig, c.DBDriver)
	case c.DBDSN == "":
		return fmt.Errorf("%w: db_dsn must not be empty", ErrInvalidConfig)
	case c.EventQueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.MaxLeaderboardLimit < 1:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	case math.IsNaN(c.GlobalMean) || c.GlobalMean < 0 || c.GlobalMean > scoring.MaxRating:
		return fmt.Errorf("%w: global_mean must be within [0,5]", ErrInvalidConfig)
	case math.IsNaN(c.MaxSalary) || c.MaxSalary <= 0:
		return fmt.Errorf("%w: max_salary must be positive", ErrInvalidConfig)
	case c.MinTrainRecords < 1:
		return fmt.Errorf("%w: min_train_records must be positive", ErrInvalidConfig)
	case c.TreeDepth < 1:
		return fmt.Errorf("%w: tree_depth must be positive", ErrInvalidConfig)
	case c.TrainRatePerMinute <= 0 || c.TrainBurst < 1:
		return fmt.Errorf("%w: train rate limit must be positive", ErrInvalidConfig)
	}
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
