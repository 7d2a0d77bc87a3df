package main

import (
	"fmt"
	"io"
	"unsafe"

	"github.com/spf13/cobra"
	"github.com/vkngwrapper/heapsim/heap"
	"github.com/vkngwrapper/heapsim/memutils/metadata"
	"golang.org/x/exp/slog"
)

const tryPoolSize = 500

func init() {
	rootCmd.AddCommand(newTryCmd())
}

func newTryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "try [strategy]",
		Short: "Replay a short allocation sequence and dump the pool",
		Long: `The try command allocates three 100 byte blocks from a 500 byte pool,
frees the second, allocates 50 bytes, frees the first, and allocates 25 bytes.
Each strategy leaves a different layout behind. The strategy defaults to first.

Example:
  mymem try
  mymem try worst
  mymem try next --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			strategy := metadata.AllocationStrategyFirstFit
			if len(args) > 0 {
				var err error
				strategy, err = metadata.StrategyFromName(args[0])
				if err != nil {
					return err
				}
			}

			logger, err := newLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			return runTry(cmd.OutOrStdout(), logger, strategy)
		},
	}
}

func runTry(out io.Writer, logger *slog.Logger, strategy metadata.AllocationStrategy) error {
	h, err := heap.New(logger, strategy, tryPoolSize, heap.CreateOptions{})
	if err != nil {
		return err
	}

	a := h.Allocate(100)
	b := h.Allocate(100)
	h.Allocate(100)
	h.Free(b)
	h.Allocate(50)
	h.Free(a)
	h.Allocate(25)

	if jsonOut {
		_, err = fmt.Fprintln(out, h.BuildStatsString(true))
		return err
	}

	err = printMemory(out, h)
	if err != nil {
		return err
	}

	return printMemoryStatus(out, h)
}

func printMemory(out io.Writer, h *heap.Heap) error {
	base := uintptr(h.PoolBase())
	block := 0

	return h.VisitAllRegions(func(ptr unsafe.Pointer, size int, free bool) error {
		status := "allocated"
		if free {
			status = "free"
		}

		_, err := fmt.Fprintf(out, "\n-------Block %d-------\n"+
			"-Size    : %d\n"+
			"-Status  : %s\n"+
			"-Offset  : %d\n"+
			"-Pointer : %p\n"+
			"---------------------\n",
			block, size, status, uintptr(ptr)-base, ptr)
		block++
		return err
	})
}

func printMemoryStatus(out io.Writer, h *heap.Heap) error {
	freeBytes := h.FreeBytes()
	holes := h.HoleCount()

	var averageHole float64
	if holes > 0 {
		averageHole = float64(freeBytes) / float64(holes)
	}

	_, err := fmt.Fprintf(out, "%d out of %d bytes allocated.\n"+
		"%d bytes are free in %d holes; maximum allocatable block is %d bytes.\n"+
		"Average hole size is %f.\n\n",
		h.AllocatedBytes(), h.PoolCapacity(),
		freeBytes, holes, h.LargestFreeBlock(),
		averageHole)
	return err
}
