package metadata

import "github.com/pkg/errors"

// AllocationStrategy selects which free region a new allocation is placed in. A strategy is
// fixed for the lifetime of one Init call.
type AllocationStrategy uint32

const (
	// AllocationStrategyNotSet is the zero value. Metadata cannot allocate with it.
	AllocationStrategyNotSet AllocationStrategy = iota
	// AllocationStrategyFirstFit places the allocation in the first free region, in offset order,
	// that is large enough
	AllocationStrategyFirstFit
	// AllocationStrategyBestFit places the allocation in the free region that leaves the fewest
	// bytes behind. Among equally good regions the lowest offset wins.
	AllocationStrategyBestFit
	// AllocationStrategyWorstFit places the allocation in the free region that leaves the most
	// bytes behind. Among equally good regions the lowest offset wins.
	AllocationStrategyWorstFit
	// AllocationStrategyNextFit behaves like AllocationStrategyFirstFit, but the search begins at
	// the region of the most recent successful allocation and wraps around to offset 0.
	AllocationStrategyNextFit
)

// UnknownStrategyError is returned (wrapped) from StrategyFromName when the name is not recognized
var UnknownStrategyError = errors.New("unknown allocation strategy")

// AllStrategies lists every usable strategy in a stable order
var AllStrategies = []AllocationStrategy{
	AllocationStrategyFirstFit,
	AllocationStrategyBestFit,
	AllocationStrategyWorstFit,
	AllocationStrategyNextFit,
}

var allocationStrategyMapping = map[AllocationStrategy]string{
	AllocationStrategyFirstFit: "first",
	AllocationStrategyBestFit:  "best",
	AllocationStrategyWorstFit: "worst",
	AllocationStrategyNextFit:  "next",
}

// String returns the short name of the strategy ("first", "best", "worst", "next"), or
// "unknown" for any other value
func (s AllocationStrategy) String() string {
	name, ok := allocationStrategyMapping[s]
	if !ok {
		return "unknown"
	}
	return name
}

// IsValid returns true for the four usable strategies
func (s AllocationStrategy) IsValid() bool {
	_, ok := allocationStrategyMapping[s]
	return ok
}

// StrategyFromName maps a short strategy name back to its AllocationStrategy. Unrecognized names
// return AllocationStrategyNotSet and an error wrapping UnknownStrategyError.
func StrategyFromName(name string) (AllocationStrategy, error) {
	for strategy, strategyName := range allocationStrategyMapping {
		if strategyName == name {
			return strategy, nil
		}
	}

	return AllocationStrategyNotSet, errors.Wrapf(UnknownStrategyError, "%q", name)
}
