package stress

//go:generate mockgen -source allocator.go -destination mocks/allocator.go -package mocks

import (
	"unsafe"

	"github.com/vkngwrapper/heapsim/heap"
	"github.com/vkngwrapper/heapsim/memutils/metadata"
	"golang.org/x/exp/slog"
)

// Allocator is the subset of heap.Heap that a stress run drives
type Allocator interface {
	Allocate(size int) unsafe.Pointer
	Free(ptr unsafe.Pointer)

	FreeBytes() int
	AllocatedBytes() int
	HoleCount() int
	LargestFreeBlock() int
	SmallFreeBlockCount(threshold int) int
}

var _ Allocator = &heap.Heap{}

// AllocatorFactory creates a fresh Allocator with a pool of size bytes for each stress run
type AllocatorFactory func(strategy metadata.AllocationStrategy, size int) (Allocator, error)

// HeapFactory returns an AllocatorFactory that builds heap.Heap pools. A run only ever touches
// its heap from one goroutine, so the heaps are created externally synchronized.
func HeapFactory(logger *slog.Logger) AllocatorFactory {
	return func(strategy metadata.AllocationStrategy, size int) (Allocator, error) {
		return heap.New(logger, strategy, size, heap.CreateOptions{
			Flags: heap.HeapCreateExternallySynchronized,
		})
	}
}
