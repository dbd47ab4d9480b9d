package predictor

import (
	"time"

	"github.com/okian/workscore/pkg/logger"
)

// Option applies a configuration option to the Predictor.
type Option func(*Predictor)

// WithModelPath sets where the model artifact is persisted and lazily loaded from.
// An empty path keeps models in memory only.
func WithModelPath(path string) Option {
	return func(p *Predictor) {
		p.path = path
	}
}

// WithMissRecheck sets how long a missing artifact is remembered before the
// path is read again.
func WithMissRecheck(d time.Duration) Option {
	return func(p *Predictor) {
		if d > 0 {
			p.missRecheck = d
		}
	}
}

// WithMinRecords sets the minimum number of records required to train.
func WithMinRecords(n int) Option {
	return func(p *Predictor) {
		if n > 0 {
			p.minRecords = n
		}
	}
}

// WithMaxDepth sets the maximum depth of the regression tree.
func WithMaxDepth(depth int) Option {
	return func(p *Predictor) {
		if depth > 0 {
			p.maxDepth = depth
		}
	}
}

// WithLogger sets a custom logger for the predictor.
func WithLogger(l logger.Logger) Option {
	return func(p *Predictor) {
		if l != nil {
			p.logger = l
		}
	}
}
