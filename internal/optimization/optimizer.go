package optimization

import (
	"context"
)

// Optimizer defines the interface for search algorithms driven by the server
type Optimizer interface {
	// Optimize runs the search until its generation budget is spent or ctx is done
	Optimize(ctx context.Context) (*OptimizationResult, error)

	// GetBestSolution returns the best solution found so far
	GetBestSolution() *Solution

	// GetHistory returns every improvement of the best solution
	GetHistory() []Evaluation

	// Progress returns the number of completed generations and the budget
	Progress() (done, total int)

	// Stop requests a stop at the next generation boundary
	Stop()
}

// Solution represents a point of the search space and its fitness
type Solution struct {
	Parameters []float64
	Value      float64
}

// Evaluation records an improvement of the best solution.
// Iteration is -1 for the initial population.
type Evaluation struct {
	Iteration int
	Solution  *Solution
}

// GenerationStats summarizes the fitness of one population
type GenerationStats struct {
	Generation int     `json:"generation"`
	Best       float64 `json:"best"`
	Worst      float64 `json:"worst"`
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"std_dev"`
}

// OptimizationResult contains the result of an optimization run
type OptimizationResult struct {
	BestSolution *Solution
	History      []Evaluation
	Iterations   int
	// Stopped is set when the run ended before spending its budget
	Stopped bool
}
