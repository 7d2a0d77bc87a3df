package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/vkngwrapper/heapsim/memutils/metadata"
)

func init() {
	rootCmd.AddCommand(newStrategiesCmd())
}

func newStrategiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List the available placement strategies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStrategies(cmd.OutOrStdout())
		},
	}
}

func runStrategies(out io.Writer) error {
	for _, strategy := range metadata.AllStrategies {
		_, err := fmt.Fprintln(out, strategy)
		if err != nil {
			return err
		}
	}
	return nil
}

// parseStrategies resolves an optional strategy argument, returning every strategy when it is
// absent
func parseStrategies(args []string) ([]metadata.AllocationStrategy, error) {
	if len(args) == 0 {
		return metadata.AllStrategies, nil
	}

	strategy, err := metadata.StrategyFromName(args[0])
	if err != nil {
		return nil, err
	}

	return []metadata.AllocationStrategy{strategy}, nil
}
