package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/vkngwrapper/heapsim/memutils/metadata"
	"github.com/vkngwrapper/heapsim/stress"
)

var (
	stressLogPath    string
	stressSeed       int64
	stressIterations int
	stressPoolSize   int
)

func init() {
	cmd := newStressCmd()
	cmd.Flags().StringVar(&stressLogPath, "log", "tests.log", "File the report is written to, replacing any previous report")
	cmd.Flags().Int64Var(&stressSeed, "seed", 0, "Random seed (0 seeds from the clock)")
	cmd.Flags().IntVar(&stressIterations, "iterations", 0, "Override the iteration count of every scenario")
	cmd.Flags().IntVar(&stressPoolSize, "size", 0, "Override the pool size of every scenario")
	rootCmd.AddCommand(cmd)
}

func newStressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress [strategy]",
		Short: "Run the randomized stress suite",
		Long: `The stress command runs every default scenario against one strategy, or
against all four when no strategy is named, and writes the averages to a log file.

Example:
  mymem stress
  mymem stress best --seed 42
  mymem stress next --iterations 1000 --json --log next.log`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			strategies, err := parseStrategies(args)
			if err != nil {
				return err
			}

			logger, err := newLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			runner := stress.NewRunner(logger, stress.HeapFactory(logger), stress.Options{
				Seed:    stressSeed,
				LogPath: stressLogPath,
				JSON:    jsonOut,
			})

			results, err := runner.RunSuite(cmd.Context(), strategies, stressScenarios())
			if err != nil {
				return err
			}

			return printStressSummary(cmd.OutOrStdout(), runner.Seed(), strategies, results)
		},
	}
	return cmd
}

// stressScenarios applies the command line overrides to the default scenarios
func stressScenarios() []stress.Scenario {
	scenarios := make([]stress.Scenario, 0, len(stress.DefaultScenarios))
	for _, scenario := range stress.DefaultScenarios {
		if stressIterations > 0 {
			scenario = scenario.WithIterations(stressIterations)
		}
		if stressPoolSize > 0 {
			scenario = scenario.WithPoolSize(stressPoolSize)
		}
		scenarios = append(scenarios, scenario)
	}
	return scenarios
}

func printStressSummary(out io.Writer, seed int64, strategies []metadata.AllocationStrategy, results []stress.Result) error {
	failures := make(map[metadata.AllocationStrategy]int)
	for _, result := range results {
		failures[result.Strategy] += result.FailedAllocations
	}

	_, err := fmt.Fprintf(out, "Ran %d scenarios with seed %d, report written to %s\n", len(results), seed, stressLogPath)
	if err != nil {
		return err
	}

	for _, strategy := range strategies {
		_, err = fmt.Fprintf(out, "  %-6s %d failed allocations\n", strategy, failures[strategy])
		if err != nil {
			return err
		}
	}

	return nil
}
