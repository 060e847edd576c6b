package genetic

import (
	"math/rand"
)

// Axis selects one coordinate of a candidate.
type Axis int

const (
	AxisX Axis = iota
	AxisY
)

// Mutator scales a single coordinate of a single candidate by one of a
// small set of factors straddling 1.0.
type Mutator struct {
	// Factors are the multiplicative steps, e.g. {0.999, 1.001}
	Factors []float64
	// Bound is the exclusive upper limit a mutated coordinate must stay under
	Bound float64
}

// Mutate picks a candidate, an axis and a factor uniformly at random and
// scales that coordinate in place. When the product would reach Bound the
// candidate is left untouched and Mutate returns false.
//
// Only the upper bound is enforced. Coordinates start non-negative and the
// factors are positive, so they can approach zero but never cross it.
func (m Mutator) Mutate(rng *rand.Rand, pop Population) bool {
	if len(pop) == 0 || len(m.Factors) == 0 {
		return false
	}

	c := &pop[rng.Intn(len(pop))]
	axis := Axis(rng.Intn(2))
	factor := m.Factors[rng.Intn(len(m.Factors))]

	return m.apply(c, axis, factor)
}

func (m Mutator) apply(c *Candidate, axis Axis, factor float64) bool {
	coord := &c.X
	if axis == AxisY {
		coord = &c.Y
	}

	next := *coord * factor
	if !(next < m.Bound) {
		return false
	}
	*coord = next
	return true
}
