package cli

import (
	"context"
	"fmt"
	"os"

	urfave "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	service "github.com/okian/workscore/internal/app"
	"github.com/okian/workscore/internal/domain/model"
	"github.com/okian/workscore/internal/domain/scoring"
)

var (
	fileFlag = &urfave.StringFlag{
		Name:     "file",
		Aliases:  []string{"f"},
		Usage:    "YAML file with the worker record to score",
		Required: true,
	}

	idFlag = &urfave.Int64Flag{
		Name:     "id",
		Usage:    "Registered worker id",
		Required: true,
	}

	scoreCmd = &urfave.Command{
		Name:  "score",
		Usage: "Compute the hybrid score and explanation of a worker record",
		Flags: []urfave.Flag{fileFlag},
		Action: func(ctx context.Context, cmd *urfave.Command) error {
			e, err := newEnv(ctx, cmd)
			if err != nil {
				return err
			}
			rec, err := readRecord(cmd.String(fileFlag.Name))
			if err != nil {
				return err
			}
			eng := scoring.NewEngine(
				scoring.WithParams(e.cfg.Scoring),
				scoring.WithPredictor(e.predictor()),
				scoring.WithLogger(e.log.Named("scoring")),
			)
			_, exp := eng.CalculateFinalScore(ctx, rec, e.cfg.GlobalMean, e.cfg.MaxSalary)
			return e.encode(exp)
		},
	}

	trainCmd = &urfave.Command{
		Name:  "train",
		Usage: "Retrain the model on every registered worker",
		Action: func(ctx context.Context, cmd *urfave.Command) error {
			e, err := newEnv(ctx, cmd)
			if err != nil {
				return err
			}
			return e.withService(ctx, func(svc *service.Service) error {
				mdl, err := svc.Train(ctx)
				if err != nil {
					return err
				}
				return e.encode(trainSummary{
					Version: mdl.Version,
					Samples: mdl.Samples,
					Depth:   mdl.Tree.Depth(),
					Path:    e.cfg.ModelPath,
				})
			})
		},
	}

	employabilityCmd = &urfave.Command{
		Name:  "employability",
		Usage: "Print the employability score and reasons of a registered worker",
		Flags: []urfave.Flag{idFlag},
		Action: func(ctx context.Context, cmd *urfave.Command) error {
			e, err := newEnv(ctx, cmd)
			if err != nil {
				return err
			}
			return e.withService(ctx, func(svc *service.Service) error {
				a, err := svc.WorkerAnalytics(ctx, cmd.Int64(idFlag.Name))
				if err != nil {
					return err
				}
				return e.encode(a)
			})
		},
	}

	compareCmd = &urfave.Command{
		Name:  "compare",
		Usage: "Compare the rule score of a registered worker with the model",
		Flags: []urfave.Flag{idFlag},
		Action: func(ctx context.Context, cmd *urfave.Command) error {
			e, err := newEnv(ctx, cmd)
			if err != nil {
				return err
			}
			return e.withService(ctx, func(svc *service.Service) error {
				c, err := svc.Compare(ctx, cmd.Int64(idFlag.Name))
				if err != nil {
					return err
				}
				return e.encode(c)
			})
		},
	}
)

type trainSummary struct {
	Version string `json:"version" yaml:"version"`
	Samples int    `json:"samples" yaml:"samples"`
	Depth   int    `json:"depth" yaml:"depth"`
	Path    string `json:"path" yaml:"path"`
}

// readRecord parses a YAML worker record. JSON is valid YAML, so both work.
func readRecord(path string) (model.WorkerRecord, error) {
	var rec model.WorkerRecord
	b, err := os.ReadFile(path)
	if err != nil {
		return rec, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &rec); err != nil {
		return rec, fmt.Errorf("parse %s: %w", path, err)
	}
	return rec, nil
}
