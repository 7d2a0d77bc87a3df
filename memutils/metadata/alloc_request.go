package metadata

// AllocationRequest is returned from BlockMetadata.CreateAllocationRequest and indicates which free
// region the metadata has chosen for a new allocation. It can be committed with BlockMetadata.Alloc.
type AllocationRequest struct {
	// BlockAllocationHandle is the handle of the free region that was selected
	BlockAllocationHandle BlockAllocationHandle
	// Size is the number of bytes that were requested
	Size int
	// Item is the region that the allocation will occupy once committed
	Item Suballocation
	// Strategy is the strategy that produced this request
	Strategy AllocationStrategy
	// RegionSize is the size of the selected free region at the time the request was created.
	// Alloc refuses the request if the region has changed since then.
	RegionSize int
}

// Remainder returns the number of free bytes that will be split off behind the allocation
func (r AllocationRequest) Remainder() int {
	return r.RegionSize - r.Size
}
