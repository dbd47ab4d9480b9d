package api

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/workscore/internal/domain/predictor"
	"github.com/okian/workscore/pkg/logger"
)

// ModelDependencies defines the retraining operation.
type ModelDependencies interface {
	Train(ctx context.Context) (*predictor.Model, error)
}

type trainResponse struct {
	Version   string    `json:"version"`
	TrainedAt time.Time `json:"trained_at"`
	Samples   int       `json:"samples"`
	Depth     int       `json:"depth"`
}

// ModelHandler handles model lifecycle requests.
type ModelHandler struct {
	deps    ModelDependencies
	limiter *rate.Limiter
	logger  logger.Logger
}

// NewModelHandler creates a new model handler. Retraining is throttled by limiter.
func NewModelHandler(deps ModelDependencies, limiter *rate.Limiter, l logger.Logger) *ModelHandler {
	return &ModelHandler{deps: deps, limiter: limiter, logger: l}
}

// HandleTrain handles POST /model/train requests.
func (h *ModelHandler) HandleTrain(w http.ResponseWriter, r *http.Request) {
	const op = "api.train_model"
	if !h.limiter.Allow() {
		writeFailure(w, NewKind(op, ErrRateLimited))
		return
	}
	mdl, err := h.deps.Train(r.Context())
	if err != nil {
		h.logger.Warn(r.Context(), "model training rejected", logger.Error(err))
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, trainResponse{
		Version:   mdl.Version,
		TrainedAt: mdl.TrainedAt,
		Samples:   mdl.Samples,
		Depth:     mdl.Tree.Depth(),
	})
}
