// Package metrics exposes evolution progress as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/copyleftdev/evolver/internal/optimization"
)

const namespace = "evolver"

// Metrics holds the collectors shared by every run of a process. The fitness
// gauges are last-writer-wins across concurrent runs; per-run figures are
// served by the run status endpoint.
type Metrics struct {
	Generations      prometheus.Counter
	Improvements     prometheus.Counter
	MutationsSkipped prometheus.Counter
	BestFitness      prometheus.Gauge
	MeanFitness      prometheus.Gauge
	FitnessSpread    prometheus.Histogram
	Runs             *prometheus.CounterVec
	ActiveRuns       prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Generations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Completed generations across all runs.",
		}),
		Improvements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "elite_improvements_total",
			Help:      "Times a generation produced a new best candidate.",
		}),
		MutationsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_skipped_total",
			Help:      "Mutations dropped because they would leave the domain.",
		}),
		BestFitness: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "generation_best_fitness",
			Help:      "Best fitness of the most recent generation of any run; process-wide, not per run.",
		}),
		MeanFitness: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "generation_mean_fitness",
			Help:      "Mean fitness of the most recent generation of any run; process-wide, not per run.",
		}),
		FitnessSpread: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_fitness_stddev",
			Help:      "Standard deviation of fitness within a generation.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished evolution runs by outcome.",
		}, []string{"status"}),
		ActiveRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_runs",
			Help:      "Evolution runs currently in progress.",
		}),
	}

	reg.MustRegister(
		m.Generations,
		m.Improvements,
		m.MutationsSkipped,
		m.BestFitness,
		m.MeanFitness,
		m.FitnessSpread,
		m.Runs,
		m.ActiveRuns,
	)
	return m
}

// GenerationCompleted records the summary of a finished generation
func (m *Metrics) GenerationCompleted(s optimization.GenerationStats) {
	m.Generations.Inc()
	m.BestFitness.Set(s.Best)
	m.MeanFitness.Set(s.Mean)
	m.FitnessSpread.Observe(s.StdDev)
}

// EliteImproved counts a new best candidate
func (m *Metrics) EliteImproved(float64) {
	m.Improvements.Inc()
}

// MutationSkipped counts a mutation rejected by the domain bound
func (m *Metrics) MutationSkipped() {
	m.MutationsSkipped.Inc()
}

// RunStarted marks a run as in progress
func (m *Metrics) RunStarted() {
	m.ActiveRuns.Inc()
}

// RunFinished marks a run as done with the given terminal status
func (m *Metrics) RunFinished(status string) {
	m.ActiveRuns.Dec()
	m.Runs.WithLabelValues(status).Inc()
}
