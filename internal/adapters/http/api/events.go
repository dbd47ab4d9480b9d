package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	service "github.com/okian/workscore/internal/app"
	"github.com/okian/workscore/internal/domain/model"
)

// MetricsDependencies defines the asynchronous rescoring entry point.
type MetricsDependencies interface {
	SubmitMetrics(ctx context.Context, e model.MetricsEvent) (service.Submission, error)
}

// metricsRequest is the body of POST /metrics. Metrics are top-level fields.
type metricsRequest struct {
	EventID  string `json:"event_id"`
	WorkerID string `json:"worker_id"`
	TS       string `json:"ts"`
	model.WorkerRecord
}

func (req metricsRequest) validate() (time.Time, error) {
	if strings.TrimSpace(req.WorkerID) == "" {
		return time.Time{}, errors.New("missing worker_id")
	}
	if req.TS == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339, req.TS)
	if err != nil {
		return time.Time{}, errors.New("invalid ts; must be RFC3339")
	}
	return ts, nil
}

type ackResponse struct {
	Status    string `json:"status"`
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
}

// MetricsHandler handles metrics event submissions.
type MetricsHandler struct {
	deps MetricsDependencies
}

// NewMetricsHandler creates a new metrics handler.
func NewMetricsHandler(deps MetricsDependencies) *MetricsHandler {
	return &MetricsHandler{deps: deps}
}

// HandlePostMetrics handles POST /metrics requests.
func (h *MetricsHandler) HandlePostMetrics(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_metrics"
	var req metricsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	ts, err := req.validate()
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	sub, err := h.deps.SubmitMetrics(r.Context(), model.MetricsEvent{
		EventID:  strings.TrimSpace(req.EventID),
		WorkerID: req.WorkerID,
		Record:   req.WorkerRecord,
		TS:       ts,
	})
	switch {
	case errors.Is(err, service.ErrBackpressure):
		writeFailure(w, WrapKind(op, ErrBackpressure, err))
	case err != nil:
		writeFailure(w, Wrap(op, err))
	case sub.Duplicate:
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", EventID: sub.EventID, Duplicate: true})
	default:
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", EventID: sub.EventID})
	}
}
