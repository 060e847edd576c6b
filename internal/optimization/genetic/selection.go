package genetic

import (
	"math/rand"

	"github.com/copyleftdev/evolver/internal/optimization"
	"github.com/copyleftdev/evolver/internal/optimization/fitness"
)

// Select runs target pairwise tournaments over pool and appends the winners
// to dst[:0]. Each round draws two distinct slots of the remaining pool,
// keeps the fitter candidate (the second draw wins ties) and removes both
// competitors, so no slot can be picked twice.
//
// Removal is positional (swap with the last live slot), never by value, so
// duplicate coordinates cannot remove the wrong candidate. Select consumes
// pool: its order is undefined afterwards. dst must not share memory with pool.
func Select(rng *rand.Rand, pool Population, target int, fn fitness.Function, dst Population) (Population, error) {
	if target < 0 || len(pool) != 2*target {
		return nil, &optimization.Error{
			Component: "selection",
			Op:        "select",
			Message:   "tournament precondition violated",
			Err:       optimization.ErrPoolSize,
		}
	}

	dst = dst[:0]
	live := len(pool)
	for round := 0; round < target; round++ {
		i := rng.Intn(live)
		j := rng.Intn(live - 1)
		if j >= i {
			j++
		}

		first, second := pool[i], pool[j]
		if first.Fitness(fn) > second.Fitness(fn) {
			dst = append(dst, first)
		} else {
			dst = append(dst, second)
		}

		// drop the higher slot first so the lower one is still in place
		hi, lo := i, j
		if lo > hi {
			hi, lo = lo, hi
		}
		live--
		pool[hi] = pool[live]
		live--
		pool[lo] = pool[live]
	}
	return dst, nil
}
