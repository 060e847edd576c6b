package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 30*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, "json", cfg.Logging.Format)

	evo := cfg.Evolution
	assert.Equal(t, 100, evo.PopulationSize)
	assert.Equal(t, 1000, evo.Iterations)
	assert.Equal(t, []float64{0.999, 1.001}, evo.MutationFactors)
	assert.Equal(t, 4, evo.MutationsPerGeneration)
	assert.Equal(t, DefaultDomainBound, evo.DomainBound)
	assert.Equal(t, int64(0), evo.Seed)
	assert.Equal(t, "trig-sum", evo.Fitness)
	assert.Equal(t, 16, evo.MaxRuns)
	assert.Equal(t, 100000, evo.MaxPopulation)
	assert.Equal(t, 10000000, evo.MaxIterations)
	assert.Equal(t, time.Hour, evo.RunRetention)
	assert.Equal(t, 256, evo.RetainedRuns)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("EVO_POPULATION_SIZE", "20")
	t.Setenv("EVO_ITERATIONS", "0")
	t.Setenv("EVO_MUTATION_FACTORS", "0.5,1.5,2")
	t.Setenv("EVO_MUTATIONS_PER_GENERATION", "0")
	t.Setenv("EVO_DOMAIN_BOUND", "3.5")
	t.Setenv("EVO_SEED", "42")
	t.Setenv("HTTP_READ_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Evolution.PopulationSize)
	assert.Equal(t, 0, cfg.Evolution.Iterations)
	assert.Equal(t, []float64{0.5, 1.5, 2}, cfg.Evolution.MutationFactors)
	assert.Equal(t, 0, cfg.Evolution.MutationsPerGeneration)
	assert.Equal(t, 3.5, cfg.Evolution.DomainBound)
	assert.Equal(t, int64(42), cfg.Evolution.Seed)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ReadTimeout)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"odd population", "EVO_POPULATION_SIZE", "7"},
		{"zero population", "EVO_POPULATION_SIZE", "0"},
		{"negative iterations", "EVO_ITERATIONS", "-1"},
		{"negative mutations", "EVO_MUTATIONS_PER_GENERATION", "-2"},
		{"negative bound", "EVO_DOMAIN_BOUND", "-1"},
		{"infinite bound", "EVO_DOMAIN_BOUND", "+Inf"},
		{"zero factor", "EVO_MUTATION_FACTORS", "0.999,0"},
		{"no runs", "EVO_MAX_RUNS", "0"},
		{"zero bound", "EVO_DOMAIN_BOUND", "0"},
		{"population above cap", "EVO_MAX_POPULATION", "50"},
		{"iterations above cap", "EVO_MAX_ITERATIONS", "999"},
		{"no retention", "EVO_RUN_RETENTION", "0s"},
		{"negative retained runs", "EVO_RETAINED_RUNS", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			cfg, err := Load()
			assert.Nil(t, cfg)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("EVO_ITERATIONS", "many")
	_, err := Load()
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalid)
}
