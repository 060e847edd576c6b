package genetic

import (
	"github.com/copyleftdev/evolver/internal/optimization"
)

// Cross pairs candidates (0,1), (2,3), ... in their current order and appends
// two offspring per pair by swapping the y axis: (x1, y2) then (x2, y1).
// The parents keep their slots, so a population of N becomes 2N.
//
// Offspring are written into pop's spare capacity when it has room for them;
// pop[:len(pop)] is never modified.
func Cross(pop Population) (Population, error) {
	n := len(pop)
	if n%2 != 0 {
		return nil, &optimization.Error{
			Component: "crossover",
			Op:        "cross",
			Message:   "cannot pair candidates",
			Err:       optimization.ErrOddPopulation,
		}
	}

	out := pop
	if cap(out) < 2*n {
		out = make(Population, n, 2*n)
		copy(out, pop)
	}

	for i := 0; i < n; i += 2 {
		a, b := out[i], out[i+1]
		out = append(out,
			Candidate{X: a.X, Y: b.Y},
			Candidate{X: b.X, Y: a.Y},
		)
	}
	return out, nil
}
