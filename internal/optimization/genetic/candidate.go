package genetic

import (
	"fmt"
	"math/rand"

	"github.com/copyleftdev/evolver/internal/optimization"
	"github.com/copyleftdev/evolver/internal/optimization/fitness"
)

// Candidate is one point of the search space. It is a plain value: assigning
// it copies the coordinates, so a stored copy never follows later mutation.
type Candidate struct {
	X float64
	Y float64
}

// Fitness evaluates fn at the candidate's coordinates. The value is not cached.
func (c Candidate) Fitness(fn fitness.Function) float64 {
	return fn.Eval(c.X, c.Y)
}

// Solution converts the candidate into the optimizer-neutral representation.
func (c Candidate) Solution(value float64) *optimization.Solution {
	return &optimization.Solution{
		Parameters: []float64{c.X, c.Y},
		Value:      value,
	}
}

func (c Candidate) String() string {
	return fmt.Sprintf("Candidate(x=%v, y=%v)", c.X, c.Y)
}

// Population is the ordered working set of one generation.
type Population []Candidate

// GenerateInitial samples count candidates with both coordinates uniform in [0, bound).
// The result has room to grow to 2*count without reallocating.
func GenerateInitial(rng *rand.Rand, count int, bound float64) Population {
	pop := make(Population, count, 2*count)
	for i := range pop {
		pop[i] = Candidate{
			X: rng.Float64() * bound,
			Y: rng.Float64() * bound,
		}
	}
	return pop
}

// Scores evaluates fn for every candidate into dst, reusing its capacity.
func (p Population) Scores(fn fitness.Function, dst []float64) []float64 {
	dst = dst[:0]
	for _, c := range p {
		dst = append(dst, c.Fitness(fn))
	}
	return dst
}
