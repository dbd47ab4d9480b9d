package seeder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"

	urfave "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/okian/workscore/pkg/logger"
)

// Defaults for the seed-workers command.
const (
	defaultBaseURL     = "http://localhost:9080"
	defaultWorkers     = 200
	defaultEvents      = 3
	defaultTopN        = 20
	defaultTimeout     = 30 * time.Second
	defaultSettle      = 30 * time.Second
	defaultRunTimeout  = 10 * time.Minute
	concurrencyPerCore = 2
)

// NewCommand returns the seed-workers command.
func NewCommand() *urfave.Command {
	return &urfave.Command{
		Name:   "seed-workers",
		Usage:  "Register synthetic workers against a running workscore server and report the leaderboard",
		Writer: os.Stdout,
		Flags: []urfave.Flag{
			&urfave.StringFlag{Name: "url", Value: defaultBaseURL, Usage: "Base URL of the service"},
			&urfave.IntFlag{Name: "workers", Value: defaultWorkers, Usage: "Number of worker profiles to register"},
			&urfave.IntFlag{Name: "events", Value: defaultEvents, Usage: "Metrics events per registered worker"},
			&urfave.IntFlag{Name: "top", Value: defaultTopN, Usage: "Leaderboard entries to fetch"},
			&urfave.IntFlag{Name: "concurrency", Value: runtime.NumCPU() * concurrencyPerCore, Usage: "Concurrent requests"},
			&urfave.DurationFlag{Name: "timeout", Value: defaultTimeout, Usage: "HTTP request timeout"},
			&urfave.DurationFlag{Name: "settle", Value: defaultSettle, Usage: "Max wait for the rescoring queue to drain"},
			&urfave.BoolFlag{Name: "train", Value: true, Usage: "Retrain the model after registration"},
			&urfave.StringFlag{Name: "format", Value: "json", Usage: "Report format [json, yaml]"},
			&urfave.BoolFlag{Name: "verbose", Usage: "Enable verbose logging"},
		},
		Action: func(ctx context.Context, cmd *urfave.Command) error {
			if cmd.Bool("verbose") {
				_ = logger.SetLevelString("debug")
			}
			cfg := &Config{
				BaseURL:     cmd.String("url"),
				Workers:     int(cmd.Int("workers")),
				Events:      int(cmd.Int("events")),
				TopN:        int(cmd.Int("top")),
				Concurrency: max(1, int(cmd.Int("concurrency"))),
				Timeout:     cmd.Duration("timeout"),
				Settle:      cmd.Duration("settle"),
				Train:       cmd.Bool("train"),
			}
			if cfg.Workers < 1 {
				return fmt.Errorf("workers must be positive, got %d", cfg.Workers)
			}
			if cfg.TopN < 1 {
				return fmt.Errorf("top must be positive, got %d", cfg.TopN)
			}

			ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
			defer cancel()

			report, err := Run(ctx, cfg)
			if err != nil {
				return err
			}
			return writeReport(cmd, report)
		},
	}
}

func writeReport(cmd *urfave.Command, r *Report) error {
	switch cmd.String("format") {
	case "yaml", "yml":
		enc := yaml.NewEncoder(cmd.Writer)
		defer enc.Close()
		return enc.Encode(r)
	case "json":
		enc := json.NewEncoder(cmd.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	default:
		return fmt.Errorf("unsupported format %q", cmd.String("format"))
	}
}
