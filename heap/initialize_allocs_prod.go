//go:build !debug_init_allocs

package heap

const (
	// InitializeAllocs causes all new allocations to be filled with 0xDC and freed allocations
	// with 0xEF. It is only active with the debug_init_allocs build tag.
	InitializeAllocs bool = false
)

func (h *Heap) fillAllocation(offset, size int, pattern uint8) {}
