package genetic

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/evolver/internal/optimization"
	"github.com/copyleftdev/evolver/internal/optimization/fitness"
)

// xFitness scores a candidate by its x coordinate, which makes winners easy to predict
type xFitness struct{}

func (xFitness) Name() string              { return "x" }
func (xFitness) Eval(x, _ float64) float64 { return x }

// distinctPopulation returns n candidates with unique coordinates
func distinctPopulation(n int) Population {
	pop := make(Population, n)
	for i := range pop {
		pop[i] = Candidate{X: float64(i + 1), Y: float64(100 + i)}
	}
	return pop
}

func TestGenerateInitial(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	bound := 2 * math.Pi

	pop := GenerateInitial(rng, 50, bound)

	require.Len(t, pop, 50)
	assert.Equal(t, 100, cap(pop), "initial population should have room for crossover offspring")
	for _, c := range pop {
		assert.GreaterOrEqual(t, c.X, 0.0)
		assert.Less(t, c.X, bound)
		assert.GreaterOrEqual(t, c.Y, 0.0)
		assert.Less(t, c.Y, bound)
	}
}

func TestCandidateFitness(t *testing.T) {
	fn := fitness.TrigSum{}
	assert.InDelta(t, 3.0, Candidate{X: 0, Y: 0}.Fitness(fn), 1e-12)
	assert.InDelta(t, 1.0, Candidate{X: math.Pi, Y: math.Pi}.Fitness(fn), 1e-12)

	sol := Candidate{X: 1.5, Y: 2.5}.Solution(4)
	assert.Equal(t, []float64{1.5, 2.5}, sol.Parameters)
	assert.Equal(t, 4.0, sol.Value)
}

func TestCrossAxisSwap(t *testing.T) {
	a := Candidate{X: 1.0, Y: 2.0}
	b := Candidate{X: 3.0, Y: 4.0}

	out, err := Cross(Population{a, b})
	require.NoError(t, err)

	assert.Equal(t, Population{
		a,
		b,
		{X: 1.0, Y: 4.0},
		{X: 3.0, Y: 2.0},
	}, out)
}

func TestCrossSizeLaw(t *testing.T) {
	for _, n := range []int{2, 6, 100} {
		pop := distinctPopulation(n)
		original := append(Population(nil), pop...)

		out, err := Cross(pop)
		require.NoError(t, err)
		require.Len(t, out, 2*n)

		assert.Equal(t, original, out[:n], "parents must keep their slots")
		assert.Equal(t, original, pop, "input must not be modified")
		for i := 0; i < n; i += 2 {
			p1, p2 := original[i], original[i+1]
			c1, c2 := out[n+i], out[n+i+1]
			assert.Equal(t, Candidate{X: p1.X, Y: p2.Y}, c1)
			assert.Equal(t, Candidate{X: p2.X, Y: p1.Y}, c2)
		}
	}
}

func TestCrossReusesCapacity(t *testing.T) {
	pop := make(Population, 4, 8)
	copy(pop, distinctPopulation(4))

	out, err := Cross(pop)
	require.NoError(t, err)
	assert.Equal(t, &pop[0], &out[0], "offspring should be written into spare capacity")
	assert.Len(t, pop, 4)
}

func TestCrossOddPopulation(t *testing.T) {
	_, err := Cross(distinctPopulation(3))
	require.Error(t, err)
	assert.True(t, errors.Is(err, optimization.ErrOddPopulation))

	optErr, ok := optimization.IsOptimizationError(err)
	require.True(t, ok)
	assert.Equal(t, "crossover", optErr.Component)
}

func TestMutatorApply(t *testing.T) {
	bound := 2 * math.Pi
	m := Mutator{Factors: []float64{0.999, 1.001}, Bound: bound}

	tests := []struct {
		name    string
		start   Candidate
		axis    Axis
		factor  float64
		applied bool
		want    Candidate
	}{
		{
			name:    "expand x",
			start:   Candidate{X: 1, Y: 1},
			axis:    AxisX,
			factor:  1.001,
			applied: true,
			want:    Candidate{X: 1.001, Y: 1},
		},
		{
			name:    "contract y",
			start:   Candidate{X: 1, Y: 2},
			axis:    AxisY,
			factor:  0.999,
			applied: true,
			want:    Candidate{X: 1, Y: 2 * 0.999},
		},
		{
			name:    "expansion would cross bound",
			start:   Candidate{X: bound * 0.9995, Y: 1},
			axis:    AxisX,
			factor:  1.001,
			applied: false,
			want:    Candidate{X: bound * 0.9995, Y: 1},
		},
		{
			name:    "landing exactly on bound is rejected",
			start:   Candidate{X: 1, Y: bound / 2},
			axis:    AxisY,
			factor:  2,
			applied: false,
			want:    Candidate{X: 1, Y: bound / 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.start
			assert.Equal(t, tt.applied, m.apply(&c, tt.axis, tt.factor))
			assert.Equal(t, tt.want, c)
		})
	}
}

func TestMutateDomainLaw(t *testing.T) {
	bound := 2 * math.Pi
	m := Mutator{Factors: []float64{0.999, 1.001}, Bound: bound}
	rng := rand.New(rand.NewSource(3))

	// start everything right under the bound so most expansions are rejected
	pop := make(Population, 10)
	for i := range pop {
		pop[i] = Candidate{X: bound * 0.9999, Y: bound * 0.9999}
	}

	applied, skipped := 0, 0
	for i := 0; i < 5000; i++ {
		before := append(Population(nil), pop...)
		if m.Mutate(rng, pop) {
			applied++
		} else {
			skipped++
			assert.Equal(t, before, pop, "a rejected mutation must leave the population untouched")
		}
		for _, c := range pop {
			require.Less(t, c.X, bound)
			require.Less(t, c.Y, bound)
			require.Greater(t, c.X, 0.0)
			require.Greater(t, c.Y, 0.0)
		}
	}
	assert.Positive(t, applied)
	assert.Positive(t, skipped)
}

func TestMutateEmpty(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.False(t, Mutator{Factors: []float64{1.001}, Bound: 1}.Mutate(rng, nil))
	assert.False(t, Mutator{Bound: 1}.Mutate(rng, distinctPopulation(2)))
}

func TestSelectSizeLaw(t *testing.T) {
	for _, target := range []int{1, 2, 5, 50} {
		pool := distinctPopulation(2 * target)
		original := make(map[Candidate]bool, len(pool))
		for _, c := range pool {
			original[c] = true
		}

		rng := rand.New(rand.NewSource(int64(target)))
		out, err := Select(rng, pool, target, fitness.TrigSum{}, nil)
		require.NoError(t, err)
		require.Len(t, out, target)

		seen := make(map[Candidate]bool, target)
		for _, c := range out {
			assert.True(t, original[c], "%v was not in the pool", c)
			assert.False(t, seen[c], "%v selected twice", c)
			seen[c] = true
		}
	}
}

func TestSelectDuplicateCoordinates(t *testing.T) {
	// identical candidates must still be removed one slot at a time
	pool := make(Population, 8)
	for i := range pool {
		pool[i] = Candidate{X: 1, Y: 1}
	}

	rng := rand.New(rand.NewSource(11))
	out, err := Select(rng, pool, 4, fitness.TrigSum{}, nil)
	require.NoError(t, err)
	assert.Len(t, out, 4)
}

func TestSelectWinnerAndTies(t *testing.T) {
	t.Run("fitter candidate wins", func(t *testing.T) {
		for seed := int64(0); seed < 20; seed++ {
			pool := Population{{X: 1}, {X: 5}}
			out, err := Select(rand.New(rand.NewSource(seed)), pool, 1, xFitness{}, nil)
			require.NoError(t, err)
			assert.Equal(t, Population{{X: 5}}, out)
		}
	})

	t.Run("second draw wins ties", func(t *testing.T) {
		for seed := int64(0); seed < 20; seed++ {
			pool := Population{{X: 2, Y: 0}, {X: 2, Y: 1}}

			// replay the two draws Select makes
			replay := rand.New(rand.NewSource(seed))
			i := replay.Intn(2)
			j := replay.Intn(1)
			if j >= i {
				j++
			}
			want := pool[j]

			out, err := Select(rand.New(rand.NewSource(seed)), pool, 1, xFitness{}, nil)
			require.NoError(t, err)
			assert.Equal(t, Population{want}, out)
		}
	})
}

func TestSelectPoolSizePrecondition(t *testing.T) {
	tests := []struct {
		name   string
		pool   int
		target int
	}{
		{name: "pool too small", pool: 3, target: 2},
		{name: "pool too large", pool: 6, target: 2},
		{name: "negative target", pool: 0, target: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(1))
			_, err := Select(rng, distinctPopulation(tt.pool), tt.target, xFitness{}, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, optimization.ErrPoolSize))
		})
	}
}

func TestSelectReusesDestination(t *testing.T) {
	dst := make(Population, 3, 16)
	rng := rand.New(rand.NewSource(5))

	out, err := Select(rng, distinctPopulation(8), 4, xFitness{}, dst)
	require.NoError(t, err)
	assert.Len(t, out, 4)
	assert.Equal(t, &dst[0], &out[0])
}

func TestBufferPool(t *testing.T) {
	p := NewBufferPool()
	assert.Equal(t, 0, p.Len())

	b := p.Get(8)
	assert.Len(t, b, 0)
	assert.GreaterOrEqual(t, cap(b), 8)

	b = append(b, Candidate{X: 1})
	p.Put(b)
	assert.Equal(t, 1, p.Len())

	// too small buffers are skipped
	big := p.Get(16)
	assert.GreaterOrEqual(t, cap(big), 16)
	assert.Equal(t, 1, p.Len())

	reused := p.Get(4)
	assert.Len(t, reused, 0)
	assert.Equal(t, 8, cap(reused))
	assert.Equal(t, 0, p.Len())

	p.Put(nil)
	assert.Equal(t, 0, p.Len())
}

func BenchmarkGeneration(b *testing.B) {
	rng := rand.New(rand.NewSource(42))
	fn := fitness.TrigSum{}
	m := Mutator{Factors: []float64{0.999, 1.001}, Bound: 2 * math.Pi}
	buffers := NewBufferPool()
	pop := GenerateInitial(rng, 100, 2*math.Pi)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pool, err := Cross(pop)
		if err != nil {
			b.Fatal(err)
		}
		for k := 0; k < 4; k++ {
			m.Mutate(rng, pool)
		}
		next, err := Select(rng, pool, 100, fn, buffers.Get(200))
		if err != nil {
			b.Fatal(err)
		}
		buffers.Put(pool)
		pop = next
	}
}
