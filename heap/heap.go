package heap

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/heapsim/heap/internal/utils"
	"github.com/vkngwrapper/heapsim/memutils/metadata"
	"golang.org/x/exp/slog"
)

const (
	createdFillPattern   uint8 = 0xDC
	destroyedFillPattern uint8 = 0xEF
)

// Heap is a simulated heap allocator over a single fixed-size pool of bytes. Allocations are
// placed by one of the metadata.AllocationStrategy values and returned as pointers into the
// pool. Freed allocations are merged with neighboring free space immediately.
//
// Heaps should be created with New. Allocate and Free panic on a Heap that was never initialized.
type Heap struct {
	logger      *slog.Logger
	mutex       utils.OptionalMutex
	createFlags CreateFlags

	pool     []byte
	metadata *metadata.ListBlockMetadata
}

func (h *Heap) checkInitialized(operation string) {
	if h.metadata == nil {
		panic(errors.AssertionFailedf("Heap::%s called before Init", operation))
	}
}

func (h *Heap) offsetOf(ptr unsafe.Pointer) (int, bool) {
	if ptr == nil || len(h.pool) == 0 {
		return 0, false
	}

	base := uintptr(unsafe.Pointer(&h.pool[0]))
	address := uintptr(ptr)
	if address < base || address >= base+uintptr(len(h.pool)) {
		return 0, false
	}

	return int(address - base), true
}

func (h *Heap) pointerAt(offset int) unsafe.Pointer {
	return unsafe.Pointer(&h.pool[offset])
}

// Strategy returns the placement strategy the pool was initialized with
func (h *Heap) Strategy() metadata.AllocationStrategy {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.metadata == nil {
		return metadata.AllocationStrategyNotSet
	}
	return h.metadata.Strategy()
}

// Allocate reserves size bytes in the pool and returns a pointer to the first of them. It
// returns nil, leaving the heap untouched, if size is below 1 or if no free region is large
// enough.
func (h *Heap) Allocate(size int) unsafe.Pointer {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.checkInitialized("Allocate")
	h.logger.Debug("Heap::Allocate", slog.Int("Size", size))

	if size < 1 {
		return nil
	}

	success, request, err := h.metadata.CreateAllocationRequest(size)
	if err != nil {
		panic(errors.Wrap(err, "failed to create allocation request"))
	}

	if !success {
		h.logger.Debug("  Allocate FAILED", slog.Int("Size", size), slog.Int("FreeBytes", h.metadata.SumFreeSize()))
		return nil
	}

	err = h.metadata.Alloc(request)
	if err != nil {
		panic(errors.Wrap(err, "failed to commit allocation request"))
	}

	h.fillAllocation(request.Item.Offset, request.Item.Size, createdFillPattern)

	return h.pointerAt(request.Item.Offset)
}

// Free releases an allocation previously returned by Allocate. Pointers that do not begin a live
// allocation, including nil, pointers from other heaps, and pointers that were already freed,
// are ignored.
func (h *Heap) Free(ptr unsafe.Pointer) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.checkInitialized("Free")

	offset, ok := h.offsetOf(ptr)
	if !ok {
		h.logger.Debug("Heap::Free", slog.Bool("InPool", false))
		return
	}
	h.logger.Debug("Heap::Free", slog.Int("Offset", offset))

	handle := h.metadata.FindAllocation(offset)
	if handle == metadata.NoAllocation {
		return
	}

	size, err := h.metadata.AllocationSize(handle)
	if err != nil {
		panic(errors.Wrap(err, "offset index returned a dead allocation"))
	}
	h.fillAllocation(offset, size, destroyedFillPattern)

	err = h.metadata.Free(handle)
	if err != nil {
		panic(errors.Wrap(err, "failed to free allocation"))
	}
}

// Bytes returns the bytes of the allocation that begins at ptr, or nil if ptr does not begin a
// live allocation. The slice is only valid until the allocation is freed.
func (h *Heap) Bytes(ptr unsafe.Pointer) []byte {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.metadata == nil {
		return nil
	}

	offset, ok := h.offsetOf(ptr)
	if !ok {
		return nil
	}

	handle := h.metadata.FindAllocation(offset)
	if handle == metadata.NoAllocation {
		return nil
	}

	size, err := h.metadata.AllocationSize(handle)
	if err != nil {
		return nil
	}

	return h.pool[offset : offset+size : offset+size]
}

// HoleCount returns the number of contiguous free regions in the pool
func (h *Heap) HoleCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.metadata == nil {
		return 0
	}
	return h.metadata.FreeRegionsCount()
}

// AllocatedBytes returns the number of bytes currently allocated
func (h *Heap) AllocatedBytes() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.metadata == nil {
		return 0
	}
	return h.metadata.SumAllocatedSize()
}

// FreeBytes returns the number of bytes not currently allocated
func (h *Heap) FreeBytes() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.metadata == nil {
		return 0
	}
	return h.metadata.SumFreeSize()
}

// LargestFreeBlock returns the size of the largest allocation that could currently succeed, or
// 0 if the pool is full
func (h *Heap) LargestFreeBlock() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.metadata == nil {
		return 0
	}
	return h.metadata.LargestFreeRegion()
}

// SmallFreeBlockCount returns the number of free regions smaller than threshold bytes.
// Regions of exactly threshold bytes are not counted.
func (h *Heap) SmallFreeBlockCount(threshold int) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.metadata == nil {
		return 0
	}
	return h.metadata.SmallFreeRegionsCount(threshold)
}

// IsAllocatedAddress returns true if ptr points at any byte of a live allocation. The test is
// made against each region's own [start, start+size) range within the pool.
func (h *Heap) IsAllocatedAddress(ptr unsafe.Pointer) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.metadata == nil {
		return false
	}

	offset, ok := h.offsetOf(ptr)
	if !ok {
		return false
	}

	return h.metadata.IsAllocatedOffset(offset)
}

// PoolBase returns a pointer to the first byte of the pool, or nil before Init
func (h *Heap) PoolBase() unsafe.Pointer {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if len(h.pool) == 0 {
		return nil
	}
	return h.pointerAt(0)
}

// PoolCapacity returns the size of the pool in bytes
func (h *Heap) PoolCapacity() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return len(h.pool)
}

// VisitAllRegions calls the provided callback once for each allocated and free region of the
// pool, in address order. Iteration stops at the first error, which is returned.
func (h *Heap) VisitAllRegions(handleRegion func(ptr unsafe.Pointer, size int, free bool) error) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.metadata == nil {
		return nil
	}

	return h.metadata.VisitAllRegions(func(handle metadata.BlockAllocationHandle, offset int, size int, free bool) error {
		return handleRegion(h.pointerAt(offset), size, free)
	})
}

// Validate checks the heap's bookkeeping against the pool. It should never fail, but it is
// useful for diagnosing issues with the allocator.
func (h *Heap) Validate() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.metadata == nil {
		return errors.New("heap has not been initialized")
	}

	if h.metadata.Size() != len(h.pool) {
		return errors.Newf("metadata covers %d bytes, but the pool holds %d", h.metadata.Size(), len(h.pool))
	}

	return h.metadata.Validate()
}
