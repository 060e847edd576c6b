package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/copyleftdev/evolver/internal/optimization"
	"github.com/copyleftdev/evolver/internal/optimization/genetic"
)

func TestRender(t *testing.T) {
	cfg := genetic.DefaultConfig()
	result := &optimization.OptimizationResult{
		BestSolution: &optimization.Solution{Parameters: []float64{0.5, 0.25}, Value: 4.5},
		History: []optimization.Evaluation{
			{Iteration: -1, Solution: &optimization.Solution{Parameters: []float64{1, 2}, Value: 3}},
			{Iteration: 12, Solution: &optimization.Solution{Parameters: []float64{0.5, 0.25}, Value: 4.5}},
		},
		Iterations: 1000,
	}

	var buf bytes.Buffer
	Render(&buf, cfg, result)
	out := buf.String()

	for _, want := range []string{
		"Evolution Config",
		"trig-sum",
		"Improvements",
		"initial",
		"12",
		"Best Candidate",
		"4.500000",
		"1000/1000",
		"completed",
	} {
		assert.Contains(t, out, want)
	}
	assert.False(t, strings.Contains(out, "stopped"))
}

func TestRenderStopped(t *testing.T) {
	cfg := genetic.DefaultConfig()
	result := &optimization.OptimizationResult{
		BestSolution: &optimization.Solution{Parameters: []float64{1, 1}, Value: 2},
		History: []optimization.Evaluation{
			{Iteration: -1, Solution: &optimization.Solution{Parameters: []float64{1, 1}, Value: 2}},
		},
		Iterations: 3,
		Stopped:    true,
	}

	var buf bytes.Buffer
	Render(&buf, cfg, result)
	assert.Contains(t, buf.String(), "3/1000")
	assert.Contains(t, buf.String(), "stopped")
}
