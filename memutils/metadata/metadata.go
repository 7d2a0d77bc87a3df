package metadata

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/heapsim/memutils"
)

// BlockMetadata represents the bookkeeping for a single pool of memory. It partitions the pool
// into allocated and free regions, allowing allocations to be requested and freed, as well as
// enumerated and queried. It never touches the pool's bytes.
type BlockMetadata interface {
	// Init must be called before the BlockMetadata is used. It discards any previous regions and
	// leaves a single free region spanning size bytes.
	Init(size int)
	// Size retrieves the size in bytes that the metadata was initialized with
	Size() int
	// Strategy returns the placement strategy used by CreateAllocationRequest
	Strategy() AllocationStrategy

	// Validate performs internal consistency checks on the metadata. These checks are O(n) in the
	// number of regions. When the implementation is functioning correctly, it should not be possible
	// for this method to return an error, but this may assist in diagnosing issues with the implementation.
	Validate() error
	// AllocationCount returns the number of live allocations
	AllocationCount() int
	// FreeRegionsCount returns the number of free regions. Adjacent free regions are always merged,
	// so this is the number of holes in the pool.
	FreeRegionsCount() int
	// SumFreeSize returns the number of free bytes in the pool
	SumFreeSize() int
	// SumAllocatedSize returns the number of allocated bytes in the pool
	SumAllocatedSize() int
	// LargestFreeRegion returns the size of the largest free region, or 0 if there is none
	LargestFreeRegion() int
	// SmallFreeRegionsCount returns the number of free regions strictly smaller than threshold
	SmallFreeRegionsCount(threshold int) int
	// IsAllocatedOffset returns true if offset falls inside an allocated region
	IsAllocatedOffset(offset int) bool

	// IsEmpty will return true if there are no live allocations
	IsEmpty() bool

	// VisitAllRegions calls the provided callback once for each allocated and free region, in
	// offset order. Iteration stops at the first error, which is returned.
	VisitAllRegions(handleBlock func(handle BlockAllocationHandle, offset int, size int, free bool) error) error
	// FindAllocation returns the handle of the allocation that begins at exactly offset, or
	// NoAllocation.
	FindAllocation(offset int) BlockAllocationHandle
	// AllocationOffset returns the offset of the region mapped to allocHandle
	AllocationOffset(allocHandle BlockAllocationHandle) (int, error)
	// AllocationSize returns the size of the region mapped to allocHandle
	AllocationSize(allocHandle BlockAllocationHandle) (int, error)

	// AddDetailedStatistics sums this pool's allocation statistics into the provided object
	AddDetailedStatistics(stats *memutils.DetailedStatistics)
	// AddStatistics sums this pool's allocation statistics into the provided object
	AddStatistics(stats *memutils.Statistics)

	// Clear instantly frees all allocations
	Clear()
	// BlockJsonData populates a json object with summary information about this pool
	BlockJsonData(json *jwriter.ObjectState)

	// CreateAllocationRequest chooses a free region for an allocation of allocSize bytes without
	// modifying the metadata. It returns false if no region is large enough.
	CreateAllocationRequest(allocSize int) (bool, AllocationRequest, error)
	// Alloc commits an AllocationRequest. The implementation must return an error if the request is
	// no longer valid: the region no longer exists, is not free, or has changed size.
	Alloc(request AllocationRequest) error
	// Free frees an allocation, causing it to become a free region once again and merging it
	// with its free neighbors.
	//
	// The implementation must return an error if the provided handle does not map to a live allocation.
	Free(allocHandle BlockAllocationHandle) error
}

// BlockMetadataBase is a simple struct that provides a few shared utilities for BlockMetadata
// implementations in the memutils module.
type BlockMetadataBase struct {
	size     int
	strategy AllocationStrategy
}

// NewBlockMetadata creates a new BlockMetadataBase for the given placement strategy
func NewBlockMetadata(strategy AllocationStrategy) BlockMetadataBase {
	return BlockMetadataBase{
		size:     0,
		strategy: strategy,
	}
}

// Init sizes the pool in bytes based on the parameter size.
func (m *BlockMetadataBase) Init(size int) {
	m.size = size
}

// Size returns the size of the pool in bytes
func (m *BlockMetadataBase) Size() int { return m.size }

// Strategy returns the placement strategy
func (m *BlockMetadataBase) Strategy() AllocationStrategy { return m.strategy }

// BlockJsonData populates a json object with information about this pool
func (m *BlockMetadataBase) BlockJsonData(json *jwriter.ObjectState, unusedBytes, allocationCount, unusedRangeCount int) {
	json.Name("Strategy").String(m.strategy.String())
	json.Name("TotalBytes").Int(m.Size())
	json.Name("UnusedBytes").Int(unusedBytes)
	json.Name("Allocations").Int(allocationCount)
	json.Name("UnusedRanges").Int(unusedRangeCount)
}
