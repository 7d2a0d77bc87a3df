//go:build debug_init_allocs

package heap

const (
	// InitializeAllocs causes all new allocations to be filled with 0xDC and freed allocations
	// with 0xEF. If you are concerned that code is reading memory it never wrote, or memory it
	// already freed, you can activate this to help diagnose the issue.
	InitializeAllocs bool = true
)

func (h *Heap) fillAllocation(offset, size int, pattern uint8) {
	region := h.pool[offset : offset+size]
	for i := range region {
		region[i] = pattern
	}
}
