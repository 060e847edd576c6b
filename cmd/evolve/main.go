// Command evolve runs a single evolution with the settings taken from the
// environment and prints the best candidate found.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/copyleftdev/evolver/internal/config"
	apperrors "github.com/copyleftdev/evolver/internal/errors"
	"github.com/copyleftdev/evolver/internal/logging"
	"github.com/copyleftdev/evolver/internal/optimization/genetic"
	"github.com/copyleftdev/evolver/internal/report"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "evolve: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return apperrors.Wrap(err, "load configuration")
	}

	logger, err := logging.NewLogger(&logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return apperrors.Wrap(err, "initialize logger")
	}
	logger = logger.WithField("run_id", uuid.NewString())

	evoCfg, err := genetic.ConfigFromEnv(cfg)
	if err != nil {
		return apperrors.Wrap(err, "build evolution config")
	}

	zl := logging.NewZapLogger(logger)
	defer func() { _ = zl.Sync() }()

	opt, err := genetic.NewOptimizer(evoCfg, zl, nil)
	if err != nil {
		return apperrors.Wrap(err, "create optimizer")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := opt.Optimize(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return apperrors.Wrap(err, "evolve")
	}

	report.Render(os.Stdout, evoCfg, result)
	return nil
}
