// Package repository holds the in-memory ranking board of latest worker scores.
package repository

import (
	"context"
	"time"
)

// Entry represents a ranking board row.
type Entry struct {
	Rank      int       `json:"rank"`
	WorkerID  string    `json:"worker_id"`
	Score     float64   `json:"score"`
	EventID   string    `json:"event_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store provides read/write access to the ranking state.
type Store interface {
	// Upsert sets the worker's latest score, replacing any previous one.
	// It returns true when the worker was not on the board before.
	Upsert(ctx context.Context, workerID string, score float64, eventID string) (bool, error)

	// Rank returns the current rank and score for a worker.
	// Returns ErrNotFound if the worker is unknown.
	Rank(ctx context.Context, workerID string) (Entry, error)

	// TopN returns the top-N entries ordered by score desc.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of workers on the board.
	Count(ctx context.Context) int
}
