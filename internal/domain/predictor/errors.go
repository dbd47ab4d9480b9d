package predictor

import "errors"

// Sentinel errors returned by the predictor.
var (
	// ErrModelUnavailable is returned when no model is loaded and no artifact exists.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrInsufficientData is returned when training has too few records.
	ErrInsufficientData = errors.New("insufficient training data")
	// ErrInvalidArtifact is returned when a stored model cannot be decoded.
	ErrInvalidArtifact = errors.New("invalid model artifact")
)
