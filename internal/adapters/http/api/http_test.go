package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/workscore/internal/adapters/http/api"
	"github.com/okian/workscore/internal/adapters/repository"
	"github.com/okian/workscore/internal/adapters/storage"
	service "github.com/okian/workscore/internal/app"
	"github.com/okian/workscore/internal/domain/model"
	"github.com/okian/workscore/internal/domain/predictor"
	"github.com/okian/workscore/internal/domain/scoring"
	"github.com/okian/workscore/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDeps struct {
	mu sync.Mutex

	created   []service.NewWorker
	createErr error
	workers   []model.Worker
	analytics service.Analytics
	compare   service.Comparison
	compErr   error
	dist      service.Distribution

	submitted []model.MetricsEvent
	submitErr error
	seen      map[string]bool

	top     []repository.Entry
	rank    repository.Entry
	rankErr error

	trainErr error
	trains   int
}

func (m *mockDeps) CreateWorker(_ context.Context, in service.NewWorker) (model.Worker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return model.Worker{}, m.createErr
	}
	m.created = append(m.created, in)
	return model.Worker{ID: int64(len(m.created)), Name: in.Name, Email: in.Email, Metrics: scoring.Sanitize(in.Record)}, nil
}

func (m *mockDeps) ListWorkers(_ context.Context, limit, offset int) ([]model.Worker, error) {
	if offset >= len(m.workers) {
		return []model.Worker{}, nil
	}
	return m.workers[offset:min(len(m.workers), offset+limit)], nil
}

func (m *mockDeps) WorkerAnalytics(_ context.Context, id int64) (service.Analytics, error) {
	if id != m.analytics.WorkerID {
		return service.Analytics{}, fmt.Errorf("%w: %d", storage.ErrNotFound, id)
	}
	return m.analytics, nil
}

func (m *mockDeps) Compare(context.Context, int64) (service.Comparison, error) {
	return m.compare, m.compErr
}

func (m *mockDeps) Distribution(context.Context) (service.Distribution, error) {
	return m.dist, nil
}

func (m *mockDeps) Score(ctx context.Context, rec model.WorkerRecord) scoring.Explanation {
	_, exp := scoring.NewEngine().CalculateFinalScore(ctx, rec, scoring.DefaultGlobalMean, scoring.DefaultMaxSalary)
	return exp
}

func (m *mockDeps) SubmitMetrics(_ context.Context, e model.MetricsEvent) (service.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submitErr != nil {
		return service.Submission{}, m.submitErr
	}
	if e.EventID == "" {
		e.EventID = "generated"
	}
	sub := service.Submission{EventID: e.EventID, WorkerID: e.WorkerID}
	if m.seen[e.EventID] {
		sub.Duplicate = true
		return sub, nil
	}
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	m.seen[e.EventID] = true
	m.submitted = append(m.submitted, e)
	return sub, nil
}

func (m *mockDeps) TopN(_ context.Context, n int) ([]repository.Entry, error) {
	if n > len(m.top) {
		return m.top, nil
	}
	return m.top[:n], nil
}

func (m *mockDeps) Rank(_ context.Context, workerID string) (repository.Entry, error) {
	if m.rankErr != nil {
		return repository.Entry{}, m.rankErr
	}
	e := m.rank
	e.WorkerID = workerID
	return e, nil
}

func (m *mockDeps) Train(context.Context) (*predictor.Model, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trains++
	if m.trainErr != nil {
		return nil, m.trainErr
	}
	tree := predictor.FitTree([][]float64{{1}, {2}}, []float64{3, 7}, 4, 1)
	return &predictor.Model{Version: "v1", TrainedAt: time.Now(), Samples: 2, Tree: tree}, nil
}

func (m *mockDeps) GetStats(context.Context) service.Stats {
	return service.Stats{Started: true, WorkerCount: 4, QueueCapacity: 100}
}

func newMux(deps *mockDeps, opts ...api.Option) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, opts...).Register(context.Background(), mux)
	return mux
}

func do(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var v T
	So(json.Unmarshal(w.Body.Bytes(), &v), ShouldBeNil)
	return v
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(&mockDeps{})

		Convey("Then the health endpoint serves Prometheus metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "workscore_")
		})

		Convey("Then stats are JSON", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			stats := decode[service.Stats](w)
			So(stats.WorkerCount, ShouldEqual, 4)
		})

		Convey("Then unknown paths are not found", func() {
			So(do(mux, http.MethodGet, "/unknown", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then wrong methods are rejected", func() {
			So(do(mux, http.MethodDelete, "/workers", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestWorkersHandler(t *testing.T) {
	Convey("Given a workers API", t, func() {
		deps := &mockDeps{
			workers: []model.Worker{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}, {ID: 3, Name: "c"}},
			analytics: service.Analytics{
				WorkerID:           7,
				EmployabilityScore: 8,
				Reasons:            []string{"Excellent rating"},
			},
		}
		mux := newMux(deps, api.WithMaxLimit(2))

		Convey("When a valid worker is posted", func() {
			w := do(mux, http.MethodPost, "/workers",
				`{"name":"Ann","email":"ann@example.com","rating":4.5,"skill":"Driver","jobs_completed":12}`)

			Convey("Then it is created with flattened metrics", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				got := decode[model.Worker](w)
				So(got.ID, ShouldEqual, int64(1))
				So(got.Metrics.Rating, ShouldEqual, 4.5)
				So(got.Metrics.Skill, ShouldEqual, "driver")
				So(*deps.created[0].Record.JobsCompleted, ShouldEqual, int64(12))
			})
		})

		Convey("When the email is missing or invalid", func() {
			So(do(mux, http.MethodPost, "/workers", `{"name":"Ann"}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/workers", `{"name":"Ann","email":"nope"}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the body is not JSON", func() {
			So(do(mux, http.MethodPost, "/workers", `{`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the email is already registered", func() {
			deps.createErr = fmt.Errorf("%w: ann@example.com", storage.ErrDuplicate)
			w := do(mux, http.MethodPost, "/workers", `{"name":"Ann","email":"ann@example.com"}`)
			So(w.Code, ShouldEqual, http.StatusConflict)
			So(decode[map[string]string](w)["code"], ShouldEqual, "duplicate")
		})

		Convey("When listing with paging", func() {
			w := do(mux, http.MethodGet, "/workers?limit=2&offset=1", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			page := decode[struct {
				Workers []model.Worker `json:"workers"`
				Limit   int            `json:"limit"`
				Offset  int            `json:"offset"`
			}](w)
			So(page.Workers, ShouldHaveLength, 2)
			So(page.Workers[0].ID, ShouldEqual, int64(2))
			So(page.Limit, ShouldEqual, 2)
		})

		Convey("When the page is too large", func() {
			So(do(mux, http.MethodGet, "/workers?limit=3", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/workers?offset=-1", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When reading analytics", func() {
			w := do(mux, http.MethodGet, "/workers/7/analytics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode[map[string]any](w)
			So(body["worker_id"], ShouldEqual, 7.0)
			So(body["employability_score"], ShouldEqual, 8.0)
			So(body["reasons"], ShouldResemble, []any{"Excellent rating"})

			So(do(mux, http.MethodGet, "/workers/8/analytics", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/workers/x/analytics", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When comparing", func() {
			deps.compare = service.Comparison{WorkerID: 7, RuleScore: 8, MLScore: 7, Difference: -1, Confidence: 0.75}
			w := do(mux, http.MethodGet, "/workers/7/compare", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode[service.Comparison](w), ShouldResemble, deps.compare)
		})

		Convey("When comparing without a model", func() {
			deps.compErr = predictor.ErrModelUnavailable
			So(do(mux, http.MethodGet, "/workers/7/compare", "").Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When reading the distribution", func() {
			deps.dist = service.Distribution{Workers: 1, Rule: map[string]int{"8": 1}, MLError: "model unavailable"}
			w := do(mux, http.MethodGet, "/analytics/distribution", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode[map[string]any](w)
			So(body, ShouldContainKey, "rule_score_distribution")
			So(body, ShouldNotContainKey, "ml_score_distribution")
		})
	})
}

func TestScoreHandler(t *testing.T) {
	Convey("Given a score API", t, func() {
		mux := newMux(&mockDeps{})

		Convey("When a partial record is posted", func() {
			w := do(mux, http.MethodPost, "/score", `{"rating":-3,"on_time":250}`)

			Convey("Then it is sanitized and scored", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				exp := decode[scoring.Explanation](w)
				So(exp.FinalScore, ShouldBeBetweenOrEqual, 0.0, 10.0)
				So(exp.Policies, ShouldContain, scoring.PolicyZeroActivityDecay)
			})
		})

		Convey("When the body is malformed", func() {
			So(do(mux, http.MethodPost, "/score", `[`).Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestMetricsHandler(t *testing.T) {
	Convey("Given a metrics API", t, func() {
		deps := &mockDeps{}
		mux := newMux(deps)
		body := `{"event_id":"e1","worker_id":"w1","rating":4.8,"ts":"2026-01-02T03:04:05Z"}`

		Convey("When a new event is posted", func() {
			w := do(mux, http.MethodPost, "/metrics", body)

			Convey("Then it is accepted", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				ack := decode[map[string]any](w)
				So(ack["status"], ShouldEqual, "accepted")
				So(ack["event_id"], ShouldEqual, "e1")
				So(deps.submitted[0].TS.Year(), ShouldEqual, 2026)
				So(*deps.submitted[0].Record.Rating, ShouldEqual, 4.8)
			})

			Convey("And the same event again is a duplicate", func() {
				w := do(mux, http.MethodPost, "/metrics", body)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode[map[string]any](w)["duplicate"], ShouldBeTrue)
			})
		})

		Convey("When the queue is full", func() {
			deps.submitErr = service.ErrBackpressure
			w := do(mux, http.MethodPost, "/metrics", body)
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(decode[map[string]string](w)["code"], ShouldEqual, "backpressure")
		})

		Convey("When the pipeline is not running", func() {
			deps.submitErr = service.ErrNotStarted
			So(do(mux, http.MethodPost, "/metrics", body).Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When required fields are wrong", func() {
			So(do(mux, http.MethodPost, "/metrics", `{"event_id":"e2"}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/metrics", `{"worker_id":"w","ts":"yesterday"}`).Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestLeaderboardAndRank(t *testing.T) {
	Convey("Given a ranking API", t, func() {
		deps := &mockDeps{
			top: []repository.Entry{
				{Rank: 1, WorkerID: "a", Score: 9.1},
				{Rank: 2, WorkerID: "b", Score: 8.2},
			},
			rank: repository.Entry{Rank: 3, Score: 7.5},
		}
		mux := newMux(deps, api.WithMaxLimit(50))

		Convey("When the leaderboard is requested", func() {
			w := do(mux, http.MethodGet, "/leaderboard?limit=1", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			entries := decode[[]repository.Entry](w)
			So(entries, ShouldHaveLength, 1)
			So(entries[0].WorkerID, ShouldEqual, "a")
		})

		Convey("When the limit is absent the default applies", func() {
			So(decode[[]repository.Entry](do(mux, http.MethodGet, "/leaderboard", "")), ShouldHaveLength, 2)
		})

		Convey("When the limit is invalid", func() {
			So(do(mux, http.MethodGet, "/leaderboard?limit=0", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/leaderboard?limit=abc", "").Code, ShouldEqual, http.StatusBadRequest)
			w := do(mux, http.MethodGet, "/leaderboard?limit=51", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode[map[string]string](w)["code"], ShouldEqual, "limit_exceeded")
		})

		Convey("When a rank is requested", func() {
			w := do(mux, http.MethodGet, "/rank/w-9", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			e := decode[repository.Entry](w)
			So(e.WorkerID, ShouldEqual, "w-9")
			So(e.Rank, ShouldEqual, 3)
		})

		Convey("When the worker is not ranked", func() {
			deps.rankErr = repository.ErrNotFound
			So(do(mux, http.MethodGet, "/rank/w-9", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestModelHandler(t *testing.T) {
	Convey("Given a model API with a burst of two", t, func() {
		deps := &mockDeps{}
		mux := newMux(deps, api.WithTrainLimiter(rate.NewLimiter(rate.Every(time.Hour), 2)))

		Convey("When training succeeds", func() {
			w := do(mux, http.MethodPost, "/model/train", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode[map[string]any](w)
			So(body["version"], ShouldEqual, "v1")
			So(body["samples"], ShouldEqual, 2.0)
			So(body["depth"], ShouldEqual, 1.0)
		})

		Convey("When there is too little data", func() {
			deps.trainErr = fmt.Errorf("%w: have 2 records, need 5", predictor.ErrInsufficientData)
			So(do(mux, http.MethodPost, "/model/train", "").Code, ShouldEqual, http.StatusPreconditionFailed)
		})

		Convey("When the burst is exhausted", func() {
			do(mux, http.MethodPost, "/model/train", "")
			do(mux, http.MethodPost, "/model/train", "")
			w := do(mux, http.MethodPost, "/model/train", "")

			Convey("Then training is rate limited", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(decode[map[string]string](w)["code"], ShouldEqual, "rate_limited")
				So(deps.trains, ShouldEqual, 2)
			})
		})
	})
}

func TestErrors(t *testing.T) {
	Convey("Given wrapped API errors", t, func() {
		cause := errors.New("boom")
		err := api.WrapKind("api.op", api.ErrBadRequest, cause)

		Convey("Then both the kind and the cause match", func() {
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: bad request: boom")
		})

		Convey("Then Wrap keeps nil", func() {
			So(api.Wrap("api.op", nil), ShouldBeNil)
			So(api.NewKind("api.op", api.ErrRateLimited).Error(), ShouldEqual, "api.op: rate limited")
		})
	})
}

func TestRecoverMiddleware(t *testing.T) {
	Convey("Given a panicking handler", t, func() {
		h := api.RecoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("kaboom")
		}), logger.Nop())

		Convey("Then the client gets a 500", func() {
			So(do(h, http.MethodGet, "/", "").Code, ShouldEqual, http.StatusInternalServerError)
		})
	})
}
