package stress

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/heapsim/memutils/metadata"
	"golang.org/x/exp/slog"
)

// RunSuite runs every scenario against every strategy and writes a report to the runner's log
// path, replacing any previous report. The results are returned in the order they were run.
func (r *Runner) RunSuite(ctx context.Context, strategies []metadata.AllocationStrategy, scenarios []Scenario) ([]Result, error) {
	file, err := os.Create(r.options.LogPath)
	if err != nil {
		return nil, errors.Wrapf(err, "can't create log file %s", r.options.LogPath)
	}

	results, err := r.RunSuiteTo(ctx, file, strategies, scenarios)
	closeErr := file.Close()
	if err != nil {
		return results, err
	}
	if closeErr != nil {
		return results, errors.Wrapf(closeErr, "failed to close log file %s", r.options.LogPath)
	}

	r.logger.Info("stress report written", slog.String("LogPath", r.options.LogPath), slog.Int("Results", len(results)))

	return results, nil
}

// RunSuiteTo behaves like RunSuite, but writes the report to out
func (r *Runner) RunSuiteTo(ctx context.Context, out io.Writer, strategies []metadata.AllocationStrategy, scenarios []Scenario) ([]Result, error) {
	var results []Result

	for _, scenario := range scenarios {
		if !r.options.JSON {
			err := writeScenarioHeader(out, scenario)
			if err != nil {
				return results, err
			}
		}

		for _, strategy := range strategies {
			result, err := r.Run(ctx, strategy, scenario)
			if err != nil {
				return results, err
			}
			results = append(results, result)

			if r.options.JSON {
				err = writeResultJson(out, result)
			} else {
				err = writeResultText(out, result)
			}
			if err != nil {
				return results, err
			}
		}
	}

	return results, nil
}

func writeScenarioHeader(out io.Writer, scenario Scenario) error {
	_, err := fmt.Fprintf(out, "Running randomized tests: pool size == %d, fill ratio == %f, block size is from %d to %d, %d iterations\n",
		scenario.PoolSize, scenario.FillRatio, scenario.MinBlockSize, scenario.MaxBlockSize, scenario.Iterations)
	return errors.Wrap(err, "failed to write scenario header")
}

func writeResultText(out io.Writer, result Result) error {
	_, err := fmt.Fprintf(out,
		"\t=== %s ===\n"+
			"\tTest took %.2fms.\n"+
			"\tAverage hole size: %f\n"+
			"\tAverage largest free block: %f\n"+
			"\tAverage allocated bytes: %f\n"+
			"\tAverage number of small blocks: %f\n"+
			"\tFailed allocations: %d\n",
		result.Strategy,
		result.ElapsedMilliseconds(),
		result.AverageHoleSize,
		result.AverageLargestFreeBlock,
		result.AverageAllocatedBytes,
		result.AverageSmallBlocks,
		result.FailedAllocations,
	)
	return errors.Wrap(err, "failed to write result")
}

func writeResultJson(out io.Writer, result Result) error {
	writer := jwriter.NewWriter()
	obj := writer.Object()
	result.WriteJson(&obj)
	obj.End()

	if err := writer.Error(); err != nil {
		return errors.Wrap(err, "failed to encode result")
	}

	data := append(writer.Bytes(), '\n')
	_, err := out.Write(data)
	return errors.Wrap(err, "failed to write result")
}

// ElapsedMilliseconds returns the run's wall time in fractional milliseconds
func (r Result) ElapsedMilliseconds() float64 {
	return float64(r.Elapsed.Nanoseconds()) / 1e6
}

// WriteJson writes the result as members of an already-open json object
func (r Result) WriteJson(json *jwriter.ObjectState) {
	json.Name("Strategy").String(r.Strategy.String())

	scenario := json.Name("Scenario").Object()
	r.Scenario.writeJson(&scenario)
	scenario.End()

	json.Name("ElapsedMs").Float64(r.ElapsedMilliseconds())
	json.Name("AverageHoleSize").Float64(r.AverageHoleSize)
	json.Name("AverageLargestFreeBlock").Float64(r.AverageLargestFreeBlock)
	json.Name("AverageAllocatedBytes").Float64(r.AverageAllocatedBytes)
	json.Name("AverageSmallBlocks").Float64(r.AverageSmallBlocks)
	json.Name("FailedAllocations").Int(r.FailedAllocations)
}
