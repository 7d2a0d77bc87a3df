package stress

import (
	"context"
	"math/rand"
	"time"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/heapsim/memutils/metadata"
	"golang.org/x/exp/slog"
)

const cancelCheckInterval = 1024

// Options configures a Runner
type Options struct {
	// Seed seeds the random source used for block sizes and free choices. 0 seeds from the clock.
	Seed int64
	// LogPath is the file RunSuite writes its report to. Defaults to "tests.log".
	LogPath string
	// JSON switches the RunSuite report from text blocks to one json object per line
	JSON bool
}

// Result holds the averages collected over one scenario run with one strategy
type Result struct {
	Strategy metadata.AllocationStrategy
	Scenario Scenario
	Elapsed  time.Duration

	AverageHoleSize         float64
	AverageLargestFreeBlock float64
	AverageAllocatedBytes   float64
	AverageSmallBlocks      float64
	FailedAllocations       int
}

// Runner drives randomized allocate/free workloads against allocators created by its factory.
// A Runner owns a single random source and must not be used from multiple goroutines at once.
type Runner struct {
	logger  *slog.Logger
	factory AllocatorFactory
	options Options
	rng     *rand.Rand
}

// NewRunner creates a Runner. If logger is nil, slog.Default() is used.
func NewRunner(logger *slog.Logger, factory AllocatorFactory, options Options) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	if options.Seed == 0 {
		options.Seed = time.Now().UnixNano()
	}
	if options.LogPath == "" {
		options.LogPath = "tests.log"
	}

	logger.Debug("Runner::New", slog.Int64("Seed", options.Seed), slog.String("LogPath", options.LogPath))

	return &Runner{
		logger:  logger,
		factory: factory,
		options: options,
		rng:     rand.New(rand.NewSource(options.Seed)),
	}
}

// Seed returns the seed the runner's random source was created with
func (r *Runner) Seed() int64 {
	return r.options.Seed
}

// Run executes scenario against a fresh allocator using strategy. Each iteration either
// allocates a random sized block or frees a random live one, then samples the allocator's
// statistics. A failed allocation forces a free on the following iteration.
func (r *Runner) Run(ctx context.Context, strategy metadata.AllocationStrategy, scenario Scenario) (Result, error) {
	result := Result{
		Strategy: strategy,
		Scenario: scenario,
	}

	err := scenario.Validate()
	if err != nil {
		return result, errors.Wrap(err, "invalid scenario")
	}

	allocator, err := r.factory(strategy, scenario.PoolSize)
	if err != nil {
		return result, errors.Wrapf(err, "failed to create a %s allocator", strategy)
	}

	r.logger.Debug("Runner::Run",
		slog.String("Strategy", strategy.String()),
		slog.Int("PoolSize", scenario.PoolSize),
		slog.Float64("FillRatio", scenario.FillRatio),
		slog.Int("MinBlockSize", scenario.MinBlockSize),
		slog.Int("MaxBlockSize", scenario.MaxBlockSize),
		slog.Int("Iterations", scenario.Iterations),
	)

	var sumLargestFree, sumHoleSize, sumAllocated, sumSmall float64
	var pointers []unsafe.Pointer
	forceFree := false
	freeThreshold := float64(scenario.PoolSize) * (1 - scenario.FillRatio)
	smallBlockSize := scenario.SmallBlockSize()
	sizeRange := scenario.MaxBlockSize - scenario.MinBlockSize + 1

	start := time.Now()

	for i := 0; i < scenario.Iterations; i++ {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return result, err
			}
		}

		if !forceFree && float64(allocator.FreeBytes()) > freeThreshold {
			size := r.rng.Intn(sizeRange) + scenario.MinBlockSize

			ptr := allocator.Allocate(size)
			if ptr != nil {
				pointers = append(pointers, ptr)
			} else {
				result.FailedAllocations++
				forceFree = true
			}
		} else {
			forceFree = false

			// Nothing to free, so no sample is taken either
			if len(pointers) == 0 {
				continue
			}

			chosen := r.rng.Intn(len(pointers))
			ptr := pointers[chosen]
			pointers[chosen] = pointers[len(pointers)-1]
			pointers = pointers[:len(pointers)-1]

			allocator.Free(ptr)
		}

		sumLargestFree += float64(allocator.LargestFreeBlock())
		sumHoleSize += float64(averageHoleSize(allocator))
		sumAllocated += float64(allocator.AllocatedBytes())
		sumSmall += float64(allocator.SmallFreeBlockCount(smallBlockSize))
	}

	result.Elapsed = time.Since(start)

	iterations := float64(scenario.Iterations)
	result.AverageHoleSize = sumHoleSize / iterations
	result.AverageLargestFreeBlock = sumLargestFree / iterations
	result.AverageAllocatedBytes = sumAllocated / iterations
	result.AverageSmallBlocks = sumSmall / iterations

	r.logger.Info("scenario complete",
		slog.String("Strategy", strategy.String()),
		slog.Duration("Elapsed", result.Elapsed),
		slog.Int("FailedAllocations", result.FailedAllocations),
	)

	return result, nil
}

// averageHoleSize is the integer mean size of a free region, or 0 when the pool is full
func averageHoleSize(allocator Allocator) int {
	holes := allocator.HoleCount()
	if holes == 0 {
		return 0
	}

	return allocator.FreeBytes() / holes
}
