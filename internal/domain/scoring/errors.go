package scoring

import "errors"

// Sentinel kinds for scoring errors.
var (
	ErrInvalidParams = errors.New("invalid scoring params")
)
