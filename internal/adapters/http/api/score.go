package api

import (
	"context"
	"net/http"

	"github.com/okian/workscore/internal/domain/model"
	"github.com/okian/workscore/internal/domain/scoring"
)

// ScoreDependencies defines the synchronous scoring operation.
type ScoreDependencies interface {
	Score(ctx context.Context, rec model.WorkerRecord) scoring.Explanation
}

// ScoreHandler handles synchronous scoring requests.
type ScoreHandler struct {
	deps ScoreDependencies
}

// NewScoreHandler creates a new score handler.
func NewScoreHandler(deps ScoreDependencies) *ScoreHandler {
	return &ScoreHandler{deps: deps}
}

// HandleScore handles POST /score requests. Missing or out-of-range metrics
// are sanitized, never rejected.
func (h *ScoreHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.score"
	var rec model.WorkerRecord
	if err := decodeJSON(w, r, &rec); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Score(r.Context(), rec))
}
