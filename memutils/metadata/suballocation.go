package metadata

import "math"

// BlockAllocationHandle identifies one region descriptor inside a ListBlockMetadata. Handles are
// indices into the metadata's descriptor arena and are recycled once a region is merged away.
type BlockAllocationHandle uint64

const (
	NoAllocation BlockAllocationHandle = math.MaxUint64
)

// Suballocation describes a region that an AllocationRequest intends to carve out
type Suballocation struct {
	Offset int
	Size   int
}
