package heap

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/heapsim/heap/internal/utils"
	"github.com/vkngwrapper/heapsim/memutils"
	"github.com/vkngwrapper/heapsim/memutils/metadata"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"
)

// CreateFlags indicate specific heap behaviors to activate or deactivate
type CreateFlags int32

const (
	// HeapCreateExternallySynchronized ensures that the heap will not be synchronized internally.
	// The consumer must guarantee it is used from only one goroutine at a time or is synchronized
	// by some other mechanism.
	HeapCreateExternallySynchronized CreateFlags = 1 << iota
)

var createFlagsMapping = map[CreateFlags]string{
	HeapCreateExternallySynchronized: "HeapCreateExternallySynchronized",
}

func (f CreateFlags) String() string {
	if f == 0 {
		return "None"
	}

	flags := maps.Keys(createFlagsMapping)
	slices.Sort(flags)

	var names []string
	for _, flag := range flags {
		if f&flag != 0 {
			names = append(names, createFlagsMapping[flag])
		}
	}

	return strings.Join(names, "|")
}

// CreateOptions contains optional settings when creating a heap
type CreateOptions struct {
	// Flags indicates specific heap behaviors to activate or deactivate
	Flags CreateFlags
}

// New creates a Heap managing a fresh pool of size bytes.
//
// logger - Receives debug logs for every public call. If nil, slog.Default() is used.
//
// strategy - The placement strategy used for the lifetime of the pool.
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, strategy metadata.AllocationStrategy, size int, options CreateOptions) (*Heap, error) {
	if logger == nil {
		logger = slog.Default()
	}

	heap := &Heap{
		logger:      logger,
		createFlags: options.Flags,
		mutex: utils.OptionalMutex{
			UseMutex: options.Flags&HeapCreateExternallySynchronized == 0,
		},
	}

	logger.Debug("Heap::New", slog.String("Flags", options.Flags.String()))

	err := heap.Init(strategy, size)
	if err != nil {
		return nil, err
	}

	return heap, nil
}

// Init releases the heap's current pool and all of its bookkeeping, if any, and replaces them with
// a single free region of size bytes placed using strategy. Pointers returned before the call
// no longer belong to the heap.
func (h *Heap) Init(strategy metadata.AllocationStrategy, size int) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.logger == nil {
		h.logger = slog.Default()
	}

	h.logger.Debug("Heap::Init", slog.String("Strategy", strategy.String()), slog.Int("Size", size))

	if !strategy.IsValid() {
		return errors.Wrapf(metadata.UnknownStrategyError, "cannot initialize a heap with strategy %d", uint32(strategy))
	}

	err := memutils.CheckPositive(size, "pool size")
	if err != nil {
		return err
	}

	h.pool = make([]byte, size)
	h.metadata = metadata.NewListBlockMetadata(strategy)
	h.metadata.Init(size)

	return nil
}
