// Package report renders the outcome of an evolution run for the terminal.
package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/copyleftdev/evolver/internal/optimization"
	"github.com/copyleftdev/evolver/internal/optimization/fitness"
	"github.com/copyleftdev/evolver/internal/optimization/genetic"
)

// Render writes the run settings, the improvement history and the final
// elite as tables to w.
func Render(w io.Writer, cfg genetic.Config, result *optimization.OptimizationResult) {
	fn := fitness.TrigSumName
	if cfg.Fitness != nil {
		fn = cfg.Fitness.Name()
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Evolution Config")
	t.AppendRows([]table.Row{
		{"FITNESS", fn},
		{"POPULATION_SIZE", cfg.PopulationSize},
		{"ITERATIONS", cfg.Iterations},
		{"MUTATION_FACTORS", fmt.Sprintf("%v", cfg.MutationFactors)},
		{"MUTATIONS_PER_GENERATION", cfg.MutationsPerGeneration},
		{"DOMAIN_BOUND", fmt.Sprintf("%0.06f", cfg.DomainBound)},
	})
	t.Render()

	t = table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Improvements")
	t.AppendHeader(table.Row{"GENERATION", "X", "Y", "VALUE"})
	for _, ev := range result.History {
		gen := fmt.Sprintf("%d", ev.Iteration)
		if ev.Iteration < 0 {
			gen = "initial"
		}
		t.AppendRow(table.Row{
			gen,
			fmt.Sprintf("%0.06f", ev.Solution.Parameters[0]),
			fmt.Sprintf("%0.06f", ev.Solution.Parameters[1]),
			fmt.Sprintf("%0.06f", ev.Solution.Value),
		})
	}
	t.Render()

	best := result.BestSolution
	status := "completed"
	if result.Stopped {
		status = "stopped"
	}
	t = table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Best Candidate")
	t.AppendRows([]table.Row{
		{"X", fmt.Sprintf("%0.06f", best.Parameters[0])},
		{"Y", fmt.Sprintf("%0.06f", best.Parameters[1])},
		{"VALUE", fmt.Sprintf("%0.06f", best.Value)},
		{"GENERATIONS", fmt.Sprintf("%d/%d", result.Iterations, cfg.Iterations)},
		{"STATUS", status},
	})
	t.Render()
}
