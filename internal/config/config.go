package config

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/caarlos0/env/v10"
)

// ErrInvalid marks settings rejected by Validate.
var ErrInvalid = errors.New("invalid configuration")

// DefaultDomainBound is the exclusive upper bound of both coordinates.
const DefaultDomainBound = 2 * math.Pi

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Evolution struct {
		PopulationSize         int       `env:"EVO_POPULATION_SIZE" envDefault:"100"`
		Iterations             int       `env:"EVO_ITERATIONS" envDefault:"1000"`
		MutationFactors        []float64 `env:"EVO_MUTATION_FACTORS" envDefault:"0.999,1.001" envSeparator:","`
		MutationsPerGeneration int       `env:"EVO_MUTATIONS_PER_GENERATION" envDefault:"4"`
		DomainBound            float64   `env:"EVO_DOMAIN_BOUND" envDefault:"6.283185307179586"`
		Seed                   int64     `env:"EVO_SEED" envDefault:"0"`
		Fitness                string    `env:"EVO_FITNESS" envDefault:"trig-sum"`
		MaxRuns                int       `env:"EVO_MAX_RUNS" envDefault:"16"`
		MaxPopulation          int       `env:"EVO_MAX_POPULATION" envDefault:"100000"`
		MaxIterations          int       `env:"EVO_MAX_ITERATIONS" envDefault:"10000000"`
		// Finished runs are kept for status queries until they are older
		// than RunRetention or more than RetainedRuns have finished.
		RunRetention time.Duration `env:"EVO_RUN_RETENTION" envDefault:"1h"`
		RetainedRuns int           `env:"EVO_RETAINED_RUNS" envDefault:"256"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}

	// Parse environment variables
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports the first evolution setting that cannot drive a run.
// Crossover pairs candidates two at a time and selection halves a pool of
// 2N, so the population size has to be even.
func (c *Config) Validate() error {
	evo := c.Evolution
	switch {
	case evo.PopulationSize <= 0 || evo.PopulationSize%2 != 0:
		return fmt.Errorf("%w: EVO_POPULATION_SIZE must be a positive even integer, got %d", ErrInvalid, evo.PopulationSize)
	case evo.Iterations < 0:
		return fmt.Errorf("%w: EVO_ITERATIONS must not be negative, got %d", ErrInvalid, evo.Iterations)
	case len(evo.MutationFactors) == 0:
		return fmt.Errorf("%w: EVO_MUTATION_FACTORS must list at least one factor", ErrInvalid)
	case evo.MutationsPerGeneration < 0:
		return fmt.Errorf("%w: EVO_MUTATIONS_PER_GENERATION must not be negative, got %d", ErrInvalid, evo.MutationsPerGeneration)
	case !(evo.DomainBound > 0) || math.IsInf(evo.DomainBound, 0):
		return fmt.Errorf("%w: EVO_DOMAIN_BOUND must be a positive finite number, got %v", ErrInvalid, evo.DomainBound)
	case evo.MaxRuns <= 0:
		return fmt.Errorf("%w: EVO_MAX_RUNS must be positive, got %d", ErrInvalid, evo.MaxRuns)
	case evo.PopulationSize > evo.MaxPopulation:
		return fmt.Errorf("%w: EVO_POPULATION_SIZE %d exceeds EVO_MAX_POPULATION %d", ErrInvalid, evo.PopulationSize, evo.MaxPopulation)
	case evo.Iterations > evo.MaxIterations:
		return fmt.Errorf("%w: EVO_ITERATIONS %d exceeds EVO_MAX_ITERATIONS %d", ErrInvalid, evo.Iterations, evo.MaxIterations)
	case evo.RunRetention <= 0:
		return fmt.Errorf("%w: EVO_RUN_RETENTION must be positive, got %v", ErrInvalid, evo.RunRetention)
	case evo.RetainedRuns < 0:
		return fmt.Errorf("%w: EVO_RETAINED_RUNS must not be negative, got %d", ErrInvalid, evo.RetainedRuns)
	}
	for _, f := range evo.MutationFactors {
		if !(f > 0) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: EVO_MUTATION_FACTORS must be positive finite numbers, got %v", ErrInvalid, f)
		}
	}
	return nil
}
