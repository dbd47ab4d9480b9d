// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/okian/workscore/internal/adapters/repository"
	"github.com/okian/workscore/internal/adapters/storage"
	service "github.com/okian/workscore/internal/app"
	"github.com/okian/workscore/internal/domain/predictor"
	"github.com/okian/workscore/pkg/logger"
)

const (
	defaultMaxLimit   = 100
	defaultPageSize   = 50
	maxRequestBytes   = 1 << 20
	defaultTrainRate  = rate.Limit(0.1)
	defaultTrainBurst = 2
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	WorkerDependencies
	ScoreDependencies
	MetricsDependencies
	LeaderboardDependencies
	RankDependencies
	ModelDependencies
	StatsProvider
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxLimit caps the leaderboard and worker page sizes.
func WithMaxLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithTrainLimiter sets the token bucket guarding POST /model/train.
func WithTrainLimiter(l *rate.Limiter) Option {
	return func(s *Server) {
		if l != nil {
			s.trainLimiter = l
		}
	}
}

// WithLogger sets a custom logger for the handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	maxLimit     int
	trainLimiter *rate.Limiter
	logger       logger.Logger

	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	workersHandler     *WorkersHandler
	scoreHandler       *ScoreHandler
	metricsHandler     *MetricsHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	modelHandler       *ModelHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		maxLimit:     defaultMaxLimit,
		trainLimiter: rate.NewLimiter(defaultTrainRate, defaultTrainBurst),
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(deps)
	s.workersHandler = NewWorkersHandler(deps, s.maxLimit)
	s.scoreHandler = NewScoreHandler(deps)
	s.metricsHandler = NewMetricsHandler(deps)
	s.leaderboardHandler = NewLeaderboardHandler(deps, s.maxLimit)
	s.rankHandler = NewRankHandler(deps)
	s.modelHandler = NewModelHandler(deps, s.trainLimiter, s.logger)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /workers", MetricsMiddleware(s.workersHandler.HandleCreate, "workers"))
	mux.HandleFunc("GET /workers", MetricsMiddleware(s.workersHandler.HandleList, "workers"))
	mux.HandleFunc("GET /workers/{id}/analytics", MetricsMiddleware(s.workersHandler.HandleAnalytics, "worker_analytics"))
	mux.HandleFunc("GET /workers/{id}/compare", MetricsMiddleware(s.workersHandler.HandleCompare, "worker_compare"))
	mux.HandleFunc("GET /analytics/distribution", MetricsMiddleware(s.workersHandler.HandleDistribution, "distribution"))

	mux.HandleFunc("POST /score", MetricsMiddleware(s.scoreHandler.HandleScore, "score"))
	mux.HandleFunc("POST /metrics", MetricsMiddleware(s.metricsHandler.HandlePostMetrics, "metrics"))
	mux.HandleFunc("GET /leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("GET /rank/{worker_id}", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	mux.HandleFunc("POST /model/train", MetricsMiddleware(s.modelHandler.HandleTrain, "model_train"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps err onto a status code and writes it.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err)
}

// statusFor translates domain errors into HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, storage.ErrInvalidWorker),
		errors.Is(err, service.ErrInvalidEvent),
		errors.Is(err, repository.ErrInvalidLimit),
		errors.Is(err, repository.ErrInvalidWorkerID):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, storage.ErrDuplicate):
		return http.StatusConflict, "duplicate"
	case errors.Is(err, predictor.ErrInsufficientData):
		return http.StatusPreconditionFailed, "insufficient_data"
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, ErrBackpressure), errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, predictor.ErrModelUnavailable), errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	}
	return http.StatusInternalServerError, "internal_error"
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

// pathID parses the {id} path value as a registry id.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("id must be a positive integer")
	}
	return id, nil
}

// queryInt returns the integer query parameter key, or def when it is absent.
func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("invalid " + key)
	}
	return n, nil
}
