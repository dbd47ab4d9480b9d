package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/workscore/internal/seeder"
	"github.com/okian/workscore/pkg/logger"
)

func main() {
	if err := logger.InitWithWriter(os.Stderr, "text"); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := seeder.NewCommand().Run(ctx, os.Args); err != nil {
		logger.Get().Error(ctx, "seeding failed", logger.Error(err))
		stop()
		os.Exit(1)
	}
}
