package seeder

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/workscore/pkg/logger"
)

const settlePollInterval = 100 * time.Millisecond

// Run executes a seeding run against cfg.BaseURL.
func Run(ctx context.Context, cfg *Config) (*Report, error) {
	log := logger.Named("seeder")
	start := time.Now()
	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)
	report := &Report{}

	log.Info(ctx, "starting seeding run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("workers", cfg.Workers),
		logger.Int("eventsPerWorker", cfg.Events),
		logger.Int("concurrency", cfg.Concurrency),
		logger.Bool("train", cfg.Train))

	if err := checkHealth(ctx, client); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	ids, err := register(ctx, client, cfg, generateProfiles(cfg.Workers), &report.Stats)
	if err != nil {
		return nil, fmt.Errorf("worker registration failed: %w", err)
	}
	log.Info(ctx, "workers registered",
		logger.Int("registered", report.Stats.WorkersRegistered),
		logger.Int("failed", report.Stats.RegisterFailed))

	if cfg.Train {
		mdl, err := train(ctx, client)
		if err != nil {
			// Training needs a minimum registry size; the run stays useful without it.
			log.Warn(ctx, "model training failed", logger.Error(err))
			report.TrainError = err.Error()
		} else {
			report.Model = mdl
			log.Info(ctx, "model trained", logger.String("version", mdl.Version), logger.Int("samples", mdl.Samples))
		}
	}

	if err := submit(ctx, client, cfg, generateEvents(ids, cfg.Events), &report.Stats); err != nil {
		return nil, fmt.Errorf("event submission failed: %w", err)
	}
	log.Info(ctx, "events submitted",
		logger.Int("accepted", report.Stats.EventsAccepted),
		logger.Int("duplicate", report.Stats.EventsDuplicate),
		logger.Int("failed", report.Stats.EventsFailed))

	if err := settle(ctx, client, cfg.Settle); err != nil {
		log.Warn(ctx, "rescoring queue did not drain", logger.Error(err))
	}

	ranks, err := retrieveRanks(ctx, client, cfg, ids)
	if err != nil {
		return nil, fmt.Errorf("rank retrieval failed: %w", err)
	}
	report.Stats.RanksRetrieved = len(ranks)

	report.Leaderboard, err = leaderboard(ctx, client, cfg.TopN)
	if err != nil {
		return nil, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}

	if err := verifyLeaderboard(ranks, report.Leaderboard); err != nil {
		log.Warn(ctx, "leaderboard consistency warning", logger.Error(err))
	} else {
		report.Consistent = true
	}

	report.Stats.Duration = time.Since(start)
	log.Info(ctx, "seeding run completed", logger.Duration("duration", report.Stats.Duration))
	return report, nil
}

// checkHealth verifies the service is running.
func checkHealth(ctx context.Context, client *HTTPClient) error {
	resp, err := client.Get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	return decode(resp, nil, http.StatusOK)
}

// register creates every profile and returns the assigned ids in profile order.
// Failed registrations are counted and skipped.
func register(ctx context.Context, client *HTTPClient, cfg *Config, profiles []Profile, stats *Stats) ([]string, error) {
	ids := make([]string, len(profiles))
	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)
	for i, p := range profiles {
		g.Go(func() error {
			resp, err := client.Post(gctx, "/workers", p)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				return nil
			}
			var w struct {
				ID int64 `json:"id"`
			}
			if err := decode(resp, &w, http.StatusCreated); err != nil {
				failed.Add(1)
				return nil
			}
			ids[i] = strconv.FormatInt(w.ID, 10)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := ids[:0]
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	stats.WorkersRegistered = len(out)
	stats.RegisterFailed = int(failed.Load())
	return out, nil
}

// submit posts every event. Backpressure and transport failures count as failed.
func submit(ctx context.Context, client *HTTPClient, cfg *Config, events []Event, stats *Stats) error {
	var accepted, duplicate, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)
	for _, ev := range events {
		g.Go(func() error {
			resp, err := client.Post(gctx, "/metrics", ev)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				return nil
			}
			var ack AckResponse
			if err := decode(resp, &ack, http.StatusAccepted, http.StatusOK); err != nil {
				failed.Add(1)
				return nil
			}
			if ack.Duplicate {
				duplicate.Add(1)
			} else {
				accepted.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	stats.EventsSubmitted = len(events)
	stats.EventsAccepted = int(accepted.Load())
	stats.EventsDuplicate = int(duplicate.Load())
	stats.EventsFailed = int(failed.Load())
	return nil
}

func train(ctx context.Context, client *HTTPClient) (*TrainResult, error) {
	resp, err := client.Post(ctx, "/model/train", nil)
	if err != nil {
		return nil, err
	}
	var out TrainResult
	if err := decode(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// settle polls /stats until the rescoring queue is empty or max elapses.
func settle(ctx context.Context, client *HTTPClient, maxWait time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()

	ticker := time.NewTicker(settlePollInterval)
	defer ticker.Stop()
	for {
		resp, err := client.Get(ctx, "/stats")
		if err == nil {
			var st struct {
				QueueLength int `json:"queue_length"`
			}
			if err := decode(resp, &st, http.StatusOK); err == nil && st.QueueLength == 0 {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
