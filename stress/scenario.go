package stress

import (
	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/heapsim/memutils"
)

// Scenario describes one randomized workload. Blocks are allocated while more than
// PoolSize*(1-FillRatio) bytes are free and released otherwise. Block sizes are drawn uniformly
// from [MinBlockSize, MaxBlockSize].
type Scenario struct {
	PoolSize     int
	FillRatio    float64
	MinBlockSize int
	MaxBlockSize int
	Iterations   int
}

// DefaultScenarios is the standard suite of workloads run by `mymem stress`
var DefaultScenarios = []Scenario{
	{PoolSize: 10000, FillRatio: 0.25, MinBlockSize: 1, MaxBlockSize: 1000, Iterations: 10000},
	{PoolSize: 10000, FillRatio: 0.25, MinBlockSize: 1, MaxBlockSize: 2000, Iterations: 10000},
	{PoolSize: 10000, FillRatio: 0.25, MinBlockSize: 1000, MaxBlockSize: 2000, Iterations: 10000},
	{PoolSize: 10000, FillRatio: 0.25, MinBlockSize: 1, MaxBlockSize: 3000, Iterations: 10000},
	{PoolSize: 10000, FillRatio: 0.25, MinBlockSize: 1, MaxBlockSize: 4000, Iterations: 10000},
	{PoolSize: 10000, FillRatio: 0.25, MinBlockSize: 1, MaxBlockSize: 5000, Iterations: 10000},

	{PoolSize: 10000, FillRatio: 0.5, MinBlockSize: 1, MaxBlockSize: 1000, Iterations: 10000},
	{PoolSize: 10000, FillRatio: 0.5, MinBlockSize: 1, MaxBlockSize: 2000, Iterations: 10000},
	{PoolSize: 10000, FillRatio: 0.5, MinBlockSize: 1000, MaxBlockSize: 2000, Iterations: 10000},
	{PoolSize: 10000, FillRatio: 0.5, MinBlockSize: 1, MaxBlockSize: 3000, Iterations: 10000},
	{PoolSize: 10000, FillRatio: 0.5, MinBlockSize: 1, MaxBlockSize: 4000, Iterations: 10000},
	{PoolSize: 10000, FillRatio: 0.5, MinBlockSize: 1, MaxBlockSize: 5000, Iterations: 10000},

	// Equal sized blocks that never fill the pool exactly
	{PoolSize: 10000, FillRatio: 0.5, MinBlockSize: 1000, MaxBlockSize: 1000, Iterations: 10000},

	{PoolSize: 10000, FillRatio: 0.75, MinBlockSize: 1, MaxBlockSize: 1000, Iterations: 10000},
	{PoolSize: 10000, FillRatio: 0.75, MinBlockSize: 500, MaxBlockSize: 1000, Iterations: 10000},
	{PoolSize: 10000, FillRatio: 0.75, MinBlockSize: 1, MaxBlockSize: 2000, Iterations: 10000},

	{PoolSize: 10000, FillRatio: 0.9, MinBlockSize: 1, MaxBlockSize: 500, Iterations: 10000},
}

// Validate returns an error if the scenario cannot be run
func (s Scenario) Validate() error {
	if err := memutils.CheckPositive(s.PoolSize, "pool size"); err != nil {
		return err
	}
	if err := memutils.CheckPositive(s.MinBlockSize, "minimum block size"); err != nil {
		return err
	}
	if err := memutils.CheckPositive(s.Iterations, "iteration count"); err != nil {
		return err
	}
	if s.MaxBlockSize < s.MinBlockSize {
		return errors.Newf("maximum block size %d is below minimum block size %d", s.MaxBlockSize, s.MinBlockSize)
	}
	if s.FillRatio < 0 || s.FillRatio > 1 {
		return errors.Newf("fill ratio %f is outside [0, 1]", s.FillRatio)
	}

	return nil
}

// SmallBlockSize is the threshold below which a free region counts as small
func (s Scenario) SmallBlockSize() int {
	return s.MaxBlockSize / 10
}

// WithIterations returns a copy of the scenario that runs for iterations steps
func (s Scenario) WithIterations(iterations int) Scenario {
	s.Iterations = iterations
	return s
}

// WithPoolSize returns a copy of the scenario with a pool of size bytes
func (s Scenario) WithPoolSize(size int) Scenario {
	s.PoolSize = size
	return s
}

func (s Scenario) writeJson(json *jwriter.ObjectState) {
	json.Name("PoolSize").Int(s.PoolSize)
	json.Name("FillRatio").Float64(s.FillRatio)
	json.Name("MinBlockSize").Int(s.MinBlockSize)
	json.Name("MaxBlockSize").Int(s.MaxBlockSize)
	json.Name("Iterations").Int(s.Iterations)
}
