package repository

import "errors"

// Sentinel kinds for ranking board errors.
var (
	ErrNotFound        = errors.New("worker not ranked")
	ErrInvalidLimit    = errors.New("invalid leaderboard limit")
	ErrInvalidWorkerID = errors.New("invalid worker id")
)
