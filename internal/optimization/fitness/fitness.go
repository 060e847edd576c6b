// Package fitness holds the objective functions maximized by the genetic engine.
package fitness

import (
	"fmt"
	"math"
	"sort"
)

// Function scores a point of the two-dimensional search space.
// Implementations must be pure: the same (x, y) always yields the same value.
type Function interface {
	// Name identifies the function in configuration and API requests
	Name() string
	// Eval computes the fitness at (x, y)
	Eval(x, y float64) float64
}

// TrigSumName is the registry name of TrigSum.
const TrigSumName = "trig-sum"

// TrigSum is |sin x + sin 2x + sin 4x + cos y + cos 2y + cos 4y|.
// It is defined for every real input and never negative.
type TrigSum struct{}

// Name returns the registry name
func (TrigSum) Name() string {
	return TrigSumName
}

// Eval computes the function value at (x, y)
func (TrigSum) Eval(x, y float64) float64 {
	return math.Abs(
		math.Sin(x) + math.Sin(2*x) + math.Sin(4*x) +
			math.Cos(y) + math.Cos(2*y) + math.Cos(4*y),
	)
}

var registry = map[string]Function{
	TrigSumName: TrigSum{},
}

// Lookup returns the function registered under name.
// An empty name selects TrigSum.
func Lookup(name string) (Function, error) {
	if name == "" {
		return TrigSum{}, nil
	}
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown fitness function %q (available: %v)", name, Names())
	}
	return fn, nil
}

// Names lists the registered function names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
