package genetic

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/copyleftdev/evolver/internal/config"
	"github.com/copyleftdev/evolver/internal/optimization"
	"github.com/copyleftdev/evolver/internal/optimization/fitness"
	"github.com/copyleftdev/evolver/internal/optimization/stats"
)

// State is the lifecycle stage of an Optimizer.
type State int

const (
	StateInitialized State = iota
	StateRunning
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Recorder receives progress notifications from a running Optimizer.
type Recorder interface {
	GenerationCompleted(s optimization.GenerationStats)
	EliteImproved(value float64)
	MutationSkipped()
}

type nopRecorder struct{}

func (nopRecorder) GenerationCompleted(optimization.GenerationStats) {}
func (nopRecorder) EliteImproved(float64)                           {}
func (nopRecorder) MutationSkipped()                                {}

// Config holds the parameters of one evolution run
type Config struct {
	// PopulationSize is N, the size at every generation boundary. Must be even.
	PopulationSize int

	// Iterations is the number of generations to run
	Iterations int

	// MutationFactors are the multiplicative mutation steps
	MutationFactors []float64

	// MutationsPerGeneration is how many single-coordinate mutations hit the 2N pool
	MutationsPerGeneration int

	// DomainBound is the exclusive upper bound of both coordinates
	DomainBound float64

	// Random seed for reproducibility; 0 seeds from the clock
	RandomSeed int64

	// Fitness is the function being maximized; nil selects fitness.TrigSum
	Fitness fitness.Function

	// InitialPopulation replaces random sampling when set.
	// Its length must equal PopulationSize.
	InitialPopulation Population
}

// DefaultConfig returns the reference parameters: 100 candidates, 1000
// generations, factors {0.999, 1.001}, 4 mutations per generation and a
// domain of [0, 2π).
func DefaultConfig() Config {
	return Config{
		PopulationSize:         100,
		Iterations:             1000,
		MutationFactors:        []float64{0.999, 1.001},
		MutationsPerGeneration: 4,
		DomainBound:            config.DefaultDomainBound,
		Fitness:                fitness.TrigSum{},
	}
}

// ConfigFromEnv builds a run configuration from the process configuration.
func ConfigFromEnv(cfg *config.Config) (Config, error) {
	fn, err := fitness.Lookup(cfg.Evolution.Fitness)
	if err != nil {
		return Config{}, invalidConfig(err.Error())
	}
	return Config{
		PopulationSize:         cfg.Evolution.PopulationSize,
		Iterations:             cfg.Evolution.Iterations,
		MutationFactors:        append([]float64(nil), cfg.Evolution.MutationFactors...),
		MutationsPerGeneration: cfg.Evolution.MutationsPerGeneration,
		DomainBound:            cfg.Evolution.DomainBound,
		RandomSeed:             cfg.Evolution.Seed,
		Fitness:                fn,
	}, nil
}

// Validate reports configuration errors. It is called by NewOptimizer so a
// bad configuration never reaches the first generation.
func (c Config) Validate() error {
	switch {
	case c.PopulationSize <= 0:
		return invalidConfig(fmt.Sprintf("population size must be positive, got %d", c.PopulationSize))
	case c.PopulationSize%2 != 0:
		return &optimization.Error{
			Component: "genetic",
			Op:        "validate",
			Message:   fmt.Sprintf("population size %d", c.PopulationSize),
			Err:       fmt.Errorf("%w: %w", optimization.ErrInvalidConfig, optimization.ErrOddPopulation),
		}
	case c.Iterations < 0:
		return invalidConfig(fmt.Sprintf("iterations must not be negative, got %d", c.Iterations))
	case c.MutationsPerGeneration < 0:
		return invalidConfig(fmt.Sprintf("mutations per generation must not be negative, got %d", c.MutationsPerGeneration))
	case len(c.MutationFactors) == 0:
		return invalidConfig("at least one mutation factor is required")
	case !(c.DomainBound > 0) || math.IsInf(c.DomainBound, 0):
		return invalidConfig(fmt.Sprintf("domain bound must be a positive finite number, got %v", c.DomainBound))
	case c.InitialPopulation != nil && len(c.InitialPopulation) != c.PopulationSize:
		return invalidConfig(fmt.Sprintf("initial population has %d candidates, want %d",
			len(c.InitialPopulation), c.PopulationSize))
	}
	for _, f := range c.MutationFactors {
		if !(f > 0) || math.IsInf(f, 0) {
			return invalidConfig(fmt.Sprintf("mutation factors must be positive finite numbers, got %v", f))
		}
	}
	return nil
}

func invalidConfig(msg string) *optimization.Error {
	return &optimization.Error{
		Component: "genetic",
		Op:        "validate",
		Message:   msg,
		Err:       optimization.ErrInvalidConfig,
	}
}

// Optimizer runs the generational loop: crossover doubles the population,
// a few mutations perturb the pool, tournaments cut it back to N and the
// elite keeps the best candidate ever seen.
//
// The loop itself is single-threaded. The mutex only guards the snapshot
// fields read by GetBestSolution, GetHistory and Progress from other goroutines.
type Optimizer struct {
	config   Config
	fn       fitness.Function
	rng      *rand.Rand
	mutator  Mutator
	buffers  *BufferPool
	scores   []float64
	logger   *zap.Logger
	recorder Recorder

	population Population

	mu         sync.RWMutex
	state      State
	elite      Candidate
	eliteValue float64
	history    []optimization.Evaluation
	lastStats  optimization.GenerationStats
	generation int
	cancel     context.CancelFunc
	stopped    bool

	stopRequested bool
}

var _ optimization.Optimizer = (*Optimizer)(nil)

// NewOptimizer validates cfg, builds the initial population and records its
// best candidate as the elite. logger and recorder may be nil.
func NewOptimizer(cfg Config, logger *zap.Logger, recorder Recorder) (*Optimizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Fitness == nil {
		cfg.Fitness = fitness.TrigSum{}
	}
	cfg.MutationFactors = append([]float64(nil), cfg.MutationFactors...)
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}

	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	n := cfg.PopulationSize
	var pop Population
	if cfg.InitialPopulation != nil {
		pop = make(Population, n, 2*n)
		copy(pop, cfg.InitialPopulation)
	} else {
		pop = GenerateInitial(rng, n, cfg.DomainBound)
	}

	o := &Optimizer{
		config:     cfg,
		fn:         cfg.Fitness,
		rng:        rng,
		mutator:    Mutator{Factors: cfg.MutationFactors, Bound: cfg.DomainBound},
		buffers:    NewBufferPool(),
		scores:     make([]float64, 0, 2*n),
		logger:     logger.With(zap.String("fitness", cfg.Fitness.Name()), zap.Int64("seed", seed)),
		recorder:   recorder,
		population: pop,
		history:    make([]optimization.Evaluation, 0, 16),
	}

	best, s := o.evaluate(-1, pop)
	o.elite, o.eliteValue = best, s.Best
	o.lastStats = s
	o.history = append(o.history, optimization.Evaluation{
		Iteration: -1,
		Solution:  best.Solution(s.Best),
	})
	return o, nil
}

// Optimize runs every configured generation. Cancelling ctx or calling Stop
// ends the run at the next generation boundary; the partial result is
// returned together with the context error.
func (o *Optimizer) Optimize(ctx context.Context) (*optimization.OptimizationResult, error) {
	o.mu.Lock()
	if o.state != StateInitialized {
		state := o.state
		o.mu.Unlock()
		return nil, &optimization.Error{
			Component: "genetic",
			Op:        "optimize",
			Message:   fmt.Sprintf("optimizer already %s", state),
		}
	}
	ctx, o.cancel = context.WithCancel(ctx)
	if o.stopRequested {
		o.cancel()
	}
	o.state = StateRunning
	o.mu.Unlock()
	defer o.cancel()

	o.logger.Info("Starting evolution",
		zap.Float64("best_value", o.eliteValue),
		zap.Int("population_size", o.config.PopulationSize),
		zap.Int("iterations", o.config.Iterations),
	)

	var runErr error
	for i := 0; i < o.config.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if err := o.step(i); err != nil {
			o.logger.Error("Evolution aborted", zap.Int("generation", i), zap.Error(err))
			runErr = err
			break
		}
	}

	o.mu.Lock()
	o.state = StateCompleted
	o.stopped = runErr != nil
	result := &optimization.OptimizationResult{
		BestSolution: o.elite.Solution(o.eliteValue),
		History:      append([]optimization.Evaluation(nil), o.history...),
		Iterations:   o.generation,
		Stopped:      o.stopped,
	}
	o.mu.Unlock()

	o.logger.Info("Evolution finished",
		zap.Float64("x", o.elite.X),
		zap.Float64("y", o.elite.Y),
		zap.Float64("best_value", o.eliteValue),
		zap.Int("generations", result.Iterations),
		zap.Bool("stopped", result.Stopped),
	)

	if runErr != nil {
		return result, runErr
	}
	return result, nil
}

// step runs generation i: crossover, mutation, selection, elite update.
func (o *Optimizer) step(i int) error {
	n := o.config.PopulationSize

	pool, err := Cross(o.population)
	if err != nil {
		return err
	}

	for k := 0; k < o.config.MutationsPerGeneration; k++ {
		if !o.mutator.Mutate(o.rng, pool) {
			o.recorder.MutationSkipped()
		}
	}

	next, err := Select(o.rng, pool, n, o.fn, o.buffers.Get(2*n))
	if err != nil {
		return err
	}
	o.buffers.Put(pool)
	o.population = next

	best, s := o.evaluate(i, next)
	o.recorder.GenerationCompleted(s)

	o.mu.Lock()
	o.generation = i + 1
	o.lastStats = s
	improved := s.Best > o.eliteValue
	if improved {
		o.elite, o.eliteValue = best, s.Best
		o.history = append(o.history, optimization.Evaluation{
			Iteration: i,
			Solution:  best.Solution(s.Best),
		})
	}
	o.mu.Unlock()

	if improved {
		o.recorder.EliteImproved(s.Best)
		o.logger.Info("New best value found",
			zap.Float64("best_value", s.Best),
			zap.Int("generation", i),
		)
	}
	o.logger.Debug("Generation completed",
		zap.Int("generation", i),
		zap.Float64("best", s.Best),
		zap.Float64("mean", s.Mean),
		zap.Float64("std_dev", s.StdDev),
	)
	return nil
}

// evaluate scores pop once and returns its first best candidate (a copy) and the summary.
func (o *Optimizer) evaluate(generation int, pop Population) (Candidate, optimization.GenerationStats) {
	o.scores = pop.Scores(o.fn, o.scores)
	s := stats.Summarize(generation, o.scores)
	return pop[stats.ArgMax(o.scores)], s
}

// GetBestSolution returns a copy of the elite
func (o *Optimizer) GetBestSolution() *optimization.Solution {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.elite.Solution(o.eliteValue)
}

// Elite returns the best candidate seen so far and its fitness
func (o *Optimizer) Elite() (Candidate, float64) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.elite, o.eliteValue
}

// GetHistory returns the initial elite followed by every improvement
func (o *Optimizer) GetHistory() []optimization.Evaluation {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]optimization.Evaluation(nil), o.history...)
}

// Progress returns completed generations and the configured budget
func (o *Optimizer) Progress() (int, int) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.generation, o.config.Iterations
}

// LastStats returns the fitness summary of the latest population
func (o *Optimizer) LastStats() optimization.GenerationStats {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastStats
}

// State returns the lifecycle stage
func (o *Optimizer) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Stop requests a stop at the next generation boundary
func (o *Optimizer) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopRequested = true
	if o.cancel != nil {
		o.cancel()
	}
}
