package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/evolver/internal/optimization"
)

func TestMetricsRecordRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RunStarted()
	m.GenerationCompleted(optimization.GenerationStats{Generation: 0, Best: 4.5, Mean: 2.0, StdDev: 0.5})
	m.GenerationCompleted(optimization.GenerationStats{Generation: 1, Best: 4.8, Mean: 2.5, StdDev: 0.4})
	m.EliteImproved(4.8)
	m.MutationSkipped()
	m.MutationSkipped()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Generations))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Improvements))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.MutationsSkipped))
	assert.Equal(t, 4.8, testutil.ToFloat64(m.BestFitness))
	assert.Equal(t, 2.5, testutil.ToFloat64(m.MeanFitness))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveRuns))

	m.RunFinished("completed")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ActiveRuns))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("completed")))

	count, err := testutil.GatherAndCount(reg, "evolver_generation_fitness_stddev")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNewRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}

func TestFitnessGaugesAreProcessWide(t *testing.T) {
	m := New(prometheus.NewRegistry())

	// two runs interleaving: the gauges hold whichever wrote last
	m.GenerationCompleted(optimization.GenerationStats{Best: 4.9, Mean: 3})
	m.GenerationCompleted(optimization.GenerationStats{Best: 1.2, Mean: 0.8})
	assert.Equal(t, 1.2, testutil.ToFloat64(m.BestFitness))

	for _, g := range []prometheus.Gauge{m.BestFitness, m.MeanFitness} {
		assert.Contains(t, g.Desc().String(), "process-wide")
	}
}
