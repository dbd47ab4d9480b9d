package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	service "github.com/okian/workscore/internal/app"
	"github.com/okian/workscore/internal/domain/model"
)

// WorkerDependencies defines the registry and analytics operations.
type WorkerDependencies interface {
	CreateWorker(ctx context.Context, in service.NewWorker) (model.Worker, error)
	ListWorkers(ctx context.Context, limit, offset int) ([]model.Worker, error)
	WorkerAnalytics(ctx context.Context, id int64) (service.Analytics, error)
	Compare(ctx context.Context, id int64) (service.Comparison, error)
	Distribution(ctx context.Context) (service.Distribution, error)
}

// workerRequest is the body of POST /workers. Metrics are top-level fields.
type workerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	model.WorkerRecord
}

func (req workerRequest) validate() error {
	switch {
	case strings.TrimSpace(req.Name) == "":
		return errors.New("missing name")
	case strings.TrimSpace(req.Email) == "":
		return errors.New("missing email")
	case !strings.Contains(req.Email, "@"):
		return errors.New("invalid email")
	}
	return nil
}

type workerPage struct {
	Workers []model.Worker `json:"workers"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
}

// WorkersHandler handles worker registry and analytics requests.
type WorkersHandler struct {
	deps     WorkerDependencies
	maxLimit int
}

// NewWorkersHandler creates a new workers handler.
func NewWorkersHandler(deps WorkerDependencies, maxLimit int) *WorkersHandler {
	return &WorkersHandler{deps: deps, maxLimit: maxLimit}
}

// HandleCreate handles POST /workers requests.
func (h *WorkersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_worker"
	var req workerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	worker, err := h.deps.CreateWorker(r.Context(), service.NewWorker{
		Name:   req.Name,
		Email:  req.Email,
		Record: req.WorkerRecord,
	})
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, worker)
}

// HandleList handles GET /workers?limit=N&offset=M requests.
func (h *WorkersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_workers"
	limit, err := queryInt(r, "limit", min(defaultPageSize, h.maxLimit))
	if err != nil || limit < 1 || limit > h.maxLimit {
		writeFailure(w, WrapKind(op, ErrBadRequest, errors.New("limit out of range")))
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		writeFailure(w, WrapKind(op, ErrBadRequest, errors.New("offset out of range")))
		return
	}
	workers, err := h.deps.ListWorkers(r.Context(), limit, offset)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, workerPage{Workers: workers, Limit: limit, Offset: offset})
}

// HandleAnalytics handles GET /workers/{id}/analytics requests.
func (h *WorkersHandler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	const op = "api.worker_analytics"
	id, err := pathID(r)
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	a, err := h.deps.WorkerAnalytics(r.Context(), id)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// HandleCompare handles GET /workers/{id}/compare requests.
func (h *WorkersHandler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	const op = "api.worker_compare"
	id, err := pathID(r)
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	c, err := h.deps.Compare(r.Context(), id)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleDistribution handles GET /analytics/distribution requests.
func (h *WorkersHandler) HandleDistribution(w http.ResponseWriter, r *http.Request) {
	const op = "api.distribution"
	d, err := h.deps.Distribution(r.Context())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, d)
}
