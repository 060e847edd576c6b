// Package stats summarizes population fitness for logging and metrics.
package stats

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/copyleftdev/evolver/internal/optimization"
)

// Summarize computes best, worst, mean and standard deviation of values.
// An empty slice yields zero stats.
func Summarize(generation int, values []float64) optimization.GenerationStats {
	s := optimization.GenerationStats{Generation: generation}
	if len(values) == 0 {
		return s
	}

	s.Best = floats.Max(values)
	s.Worst = floats.Min(values)
	if len(values) == 1 {
		s.Mean = values[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
	return s
}

// ArgMax returns the index of the first maximum of values, or -1 when empty.
func ArgMax(values []float64) int {
	if len(values) == 0 {
		return -1
	}
	return floats.MaxIdx(values)
}
