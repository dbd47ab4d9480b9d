// Package cli implements the offline workscore command line: scoring,
// retraining and analytics against the local worker registry without
// running the HTTP server.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	urfave "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/okian/workscore/internal/adapters/storage"
	service "github.com/okian/workscore/internal/app"
	"github.com/okian/workscore/internal/config"
	"github.com/okian/workscore/internal/domain/predictor"
	"github.com/okian/workscore/pkg/logger"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	version = "v0.0.1-default"

	configFlag = &urfave.StringFlag{
		Name:    "config",
		Usage:   "Path to the YAML config file (default: $WORKSCORE_CONFIG)",
		Sources: urfave.EnvVars(config.EnvConfigPath),
	}

	formatFlag = &urfave.StringFlag{
		Name:  "format",
		Usage: "Output format [json, yaml]",
		Value: formatJSON,
	}

	debugFlag = &urfave.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs",
	}
)

// Execute creates and runs the CLI application.
func Execute() {
	if err := logger.InitWithWriter(os.Stderr, "text"); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := NewApp().Run(context.Background(), os.Args); err != nil {
		logger.Get().Error(context.Background(), "fatal error", logger.Error(err))
		os.Exit(1)
	}
}

// NewApp returns the root command.
func NewApp() *urfave.Command {
	return &urfave.Command{
		Name:    "workscore",
		Usage:   "Score, rank and explain worker employability",
		Version: version,
		Writer:  os.Stdout,
		Flags: []urfave.Flag{
			configFlag,
			formatFlag,
			debugFlag,
		},
		Commands: []*urfave.Command{
			scoreCmd,
			trainCmd,
			employabilityCmd,
			compareCmd,
		},
	}
}

// env is what every command needs: config, logger and an output encoder.
type env struct {
	cfg    *config.Config
	log    logger.Logger
	out    io.Writer
	format string
}

func newEnv(ctx context.Context, cmd *urfave.Command) (*env, error) {
	cfg, err := config.LoadFrom(ctx, cmd.String(configFlag.Name))
	if err != nil {
		return nil, err
	}

	format := cmd.String(formatFlag.Name)
	switch format {
	case formatJSON:
	case formatYAML, "yml":
		format = formatYAML
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}

	level := cfg.LogLevel
	if cmd.Bool(debugFlag.Name) {
		level = "debug"
	}
	_ = logger.SetLevelString(level)

	return &env{cfg: cfg, log: logger.Named("cli"), out: cmd.Root().Writer, format: format}, nil
}

func (e *env) encode(v any) error {
	if e.format == formatYAML {
		enc := yaml.NewEncoder(e.out)
		defer enc.Close()
		return enc.Encode(v)
	}
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (e *env) predictor() *predictor.Predictor {
	return predictor.New(
		predictor.WithModelPath(e.cfg.ModelPath),
		predictor.WithMinRecords(e.cfg.MinTrainRecords),
		predictor.WithMaxDepth(e.cfg.TreeDepth),
		predictor.WithLogger(e.log.Named("predictor")),
	)
}

// withService opens the registry and runs fn with a service over it.
func (e *env) withService(ctx context.Context, fn func(*service.Service) error) error {
	store, err := storage.Open(ctx, e.cfg.DBDriver, e.cfg.DBDSN, storage.WithLogger(e.log.Named("storage")))
	if err != nil {
		return err
	}
	defer store.Close()

	svc := service.New(store,
		service.WithLogger(e.log.Named("service")),
		service.WithPredictor(e.predictor()),
		service.WithScoring(e.cfg.Scoring, e.cfg.GlobalMean, e.cfg.MaxSalary),
	)
	return fn(svc)
}
