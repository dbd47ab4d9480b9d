package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/workscore/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldResemble, config.New())
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("WORKSCORE_ADDR", ":8080")
			_ = os.Setenv("WORKSCORE_QUEUE_SIZE", "500")
			_ = os.Setenv("WORKSCORE_WORKER_COUNT", "16")
			_ = os.Setenv("WORKSCORE_GLOBAL_MEAN", "3.9")
			_ = os.Setenv("WORKSCORE_DB_DRIVER", "postgres")
			_ = os.Setenv("WORKSCORE_DB_DSN", "postgres://localhost/workscore?sslmode=disable")
			_ = os.Setenv("WORKSCORE_SCORING__LOW_DATA_JOBS", "8")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.EventQueueSize, convey.ShouldEqual, 500)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.GlobalMean, convey.ShouldEqual, 3.9)
				convey.So(cfg.DBDriver, convey.ShouldEqual, "postgres")
				convey.So(cfg.Scoring.LowDataJobs, convey.ShouldEqual, 8)
			})

			convey.Convey("And untouched scoring fields keep their defaults", func() {
				convey.So(cfg.Scoring.Weights.OnTime, convey.ShouldEqual, 0.25)
				convey.So(cfg.Scoring.ConfidenceM, convey.ShouldEqual, 20)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			path := writeConfigFile(t, `
addr: ":9090"
queue_size: 300
model_path: /tmp/model.json
scoring:
  anomaly_factor: 0.9
  weights:
    on_time: 0.30
    complaints: 0.20
`)
			_ = os.Setenv("WORKSCORE_CONFIG", path)
			_ = os.Setenv("WORKSCORE_ADDR", ":7070")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values apply and env vars win", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.EventQueueSize, convey.ShouldEqual, 300)
				convey.So(cfg.ModelPath, convey.ShouldEqual, "/tmp/model.json")
				convey.So(cfg.Scoring.AnomalyFactor, convey.ShouldEqual, 0.9)
				convey.So(cfg.Scoring.Weights.OnTime, convey.ShouldEqual, 0.30)
				convey.So(cfg.Scoring.Weights.Rating, convey.ShouldEqual, 0.15)
			})
		})

		convey.Convey("When the YAML file is invalid", func() {
			path := writeConfigFile(t, "addr: [unterminated")
			_, err := config.LoadFrom(ctx, path)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the file does not exist", func() {
			_, err := config.LoadFrom(ctx, filepath.Join(t.TempDir(), "missing.yaml"))

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a value fails validation", func() {
			path := writeConfigFile(t, "global_mean: 7\n")
			_, err := config.LoadFrom(ctx, path)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a numeric env var is not a number", func() {
			_ = os.Setenv("WORKSCORE_QUEUE_SIZE", "lots")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				if name := kv[:i]; len(name) >= len(config.EnvPrefix) && name[:len(config.EnvPrefix)] == config.EnvPrefix {
					_ = os.Unsetenv(name)
				}
				break
			}
		}
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workscore.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
