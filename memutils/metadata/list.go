package metadata

import (
	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/pkg/errors"
	"github.com/vkngwrapper/heapsim/memutils"
)

type listBlock struct {
	offset int
	size   int
	prev   BlockAllocationHandle
	next   BlockAllocationHandle

	allocated bool
	live      bool
}

// ListBlockMetadata is a BlockMetadata implementation that keeps every region of the pool,
// allocated or free, in a single list ordered by offset. Placement is decided by one of the
// four AllocationStrategy values: first fit, best fit, worst fit, or next fit.
//
// Region descriptors live in an arena slice and refer to their neighbors by handle. A region is
// split when an allocation does not use all of it, and freed regions are immediately merged with
// free neighbors, so two free regions are never adjacent.
type ListBlockMetadata struct {
	BlockMetadataBase

	allocCount  int
	freeCount   int
	sumFreeSize int

	blocks    []listBlock
	freeSlots []BlockAllocationHandle
	head      BlockAllocationHandle
	// region of the most recent successful allocation, where next-fit searches begin
	cursor BlockAllocationHandle

	allocationsByOffset *swiss.Map[int, BlockAllocationHandle]
}

var _ BlockMetadata = &ListBlockMetadata{}

// NewListBlockMetadata creates a new ListBlockMetadata that places allocations using strategy.
// Init must be called before it is used.
func NewListBlockMetadata(strategy AllocationStrategy) *ListBlockMetadata {
	return &ListBlockMetadata{
		BlockMetadataBase: NewBlockMetadata(strategy),
		head:              NoAllocation,
		cursor:            NoAllocation,
	}
}

func (m *ListBlockMetadata) allocateBlock() BlockAllocationHandle {
	var handle BlockAllocationHandle

	if slotCount := len(m.freeSlots); slotCount > 0 {
		handle = m.freeSlots[slotCount-1]
		m.freeSlots = m.freeSlots[:slotCount-1]
	} else {
		handle = BlockAllocationHandle(len(m.blocks))
		m.blocks = append(m.blocks, listBlock{})
	}

	m.blocks[handle] = listBlock{
		prev: NoAllocation,
		next: NoAllocation,
		live: true,
	}
	return handle
}

func (m *ListBlockMetadata) freeBlock(handle BlockAllocationHandle) {
	m.blocks[handle] = listBlock{
		prev: NoAllocation,
		next: NoAllocation,
	}
	m.freeSlots = append(m.freeSlots, handle)
}

func (m *ListBlockMetadata) getBlock(handle BlockAllocationHandle) (*listBlock, error) {
	if handle >= BlockAllocationHandle(len(m.blocks)) || !m.blocks[handle].live {
		return nil, errors.New("received a handle that was incompatible with this metadata")
	}
	return &m.blocks[handle], nil
}

// Init discards all regions and leaves a single free region of size bytes. The next-fit
// cursor is placed on that region.
func (m *ListBlockMetadata) Init(size int) {
	m.BlockMetadataBase.Init(size)

	m.blocks = make([]listBlock, 0, 16)
	m.freeSlots = nil
	m.allocationsByOffset = swiss.NewMap[int, BlockAllocationHandle](16)

	m.head = m.allocateBlock()
	m.blocks[m.head].size = size
	m.cursor = m.head

	m.allocCount = 0
	m.freeCount = 1
	m.sumFreeSize = size
}

// Clear instantly frees all allocations
func (m *ListBlockMetadata) Clear() {
	m.Init(m.Size())
}

// Cursor returns the handle of the region that the next next-fit search will begin at
func (m *ListBlockMetadata) Cursor() BlockAllocationHandle {
	return m.cursor
}

// Validate walks the region list and verifies that it partitions the pool: offsets start at 0,
// are contiguous and increasing, sizes add up to Size(), links agree in both directions, no two free
// regions are adjacent, and the cached counters and offset index match what was walked.
func (m *ListBlockMetadata) Validate() error {
	if m.head == NoAllocation {
		return errors.New("metadata has not been initialized")
	}

	var offset, sumFreeSize, freeCount, allocCount, visited int
	prevHandle := NoAllocation
	prevFree := false
	cursorSeen := false

	for handle := m.head; handle != NoAllocation; {
		block, err := m.getBlock(handle)
		if err != nil {
			return errors.Errorf("region list links to dead handle %d", handle)
		}

		visited++
		if visited > len(m.blocks) {
			return errors.New("region list contains a cycle")
		}

		if block.prev != prevHandle {
			return errors.Errorf("region at offset %d has a previous region, but the reverse reference is broken", block.offset)
		}

		if block.size <= 0 {
			return errors.Errorf("region at offset %d has invalid size %d", block.offset, block.size)
		}

		if block.offset != offset {
			return errors.Errorf("region at offset %d does not begin where the previous region ended, expected offset %d", block.offset, offset)
		}

		if block.allocated {
			allocCount++

			indexed, ok := m.allocationsByOffset.Get(block.offset)
			if !ok || indexed != handle {
				return errors.Errorf("allocation at offset %d is missing from the offset index", block.offset)
			}
		} else {
			if prevFree {
				return errors.Errorf("free region at offset %d was not merged with the free region before it", block.offset)
			}

			freeCount++
			sumFreeSize += block.size
		}

		if handle == m.cursor {
			cursorSeen = true
		}

		prevFree = !block.allocated
		prevHandle = handle
		offset += block.size
		handle = block.next
	}

	if offset != m.Size() {
		return errors.Errorf("the full size of the metadata is %d, but the regions only added up to %d", m.Size(), offset)
	}

	if sumFreeSize != m.sumFreeSize {
		return errors.Errorf("the free size of the metadata is %d, but the free regions added up to %d", m.sumFreeSize, sumFreeSize)
	}

	if allocCount != m.allocCount {
		return errors.Errorf("the allocation count of the metadata is %d, but the allocated regions added up to %d", m.allocCount, allocCount)
	}

	if freeCount != m.freeCount {
		return errors.Errorf("the free region count of the metadata is %d, but there were %d free regions", m.freeCount, freeCount)
	}

	if m.allocationsByOffset.Count() != allocCount {
		return errors.Errorf("the offset index holds %d allocations, but there were %d allocated regions", m.allocationsByOffset.Count(), allocCount)
	}

	if visited != len(m.blocks)-len(m.freeSlots) {
		return errors.Errorf("the region arena holds %d live regions, but only %d are linked", len(m.blocks)-len(m.freeSlots), visited)
	}

	if !cursorSeen {
		return errors.Errorf("the next-fit cursor %d does not refer to a linked region", m.cursor)
	}

	return nil
}

// AllocationCount returns the number of live allocations
func (m *ListBlockMetadata) AllocationCount() int {
	return m.allocCount
}

// FreeRegionsCount returns the number of holes in the pool
func (m *ListBlockMetadata) FreeRegionsCount() int {
	return m.freeCount
}

// SumFreeSize returns the number of free bytes in the pool
func (m *ListBlockMetadata) SumFreeSize() int {
	return m.sumFreeSize
}

// SumAllocatedSize returns the number of allocated bytes in the pool
func (m *ListBlockMetadata) SumAllocatedSize() int {
	return m.Size() - m.sumFreeSize
}

// IsEmpty will return true if there are no live allocations
func (m *ListBlockMetadata) IsEmpty() bool {
	return m.allocCount == 0
}

// LargestFreeRegion returns the size of the largest free region, or 0 if the pool is full
func (m *ListBlockMetadata) LargestFreeRegion() int {
	var largest int

	for handle := m.head; handle != NoAllocation; handle = m.blocks[handle].next {
		block := &m.blocks[handle]
		if !block.allocated && block.size > largest {
			largest = block.size
		}
	}

	return largest
}

// SmallFreeRegionsCount returns the number of free regions whose size is strictly less than threshold
func (m *ListBlockMetadata) SmallFreeRegionsCount(threshold int) int {
	var count int

	for handle := m.head; handle != NoAllocation; handle = m.blocks[handle].next {
		block := &m.blocks[handle]
		if !block.allocated && block.size < threshold {
			count++
		}
	}

	return count
}

// IsAllocatedOffset returns true if offset lies within [start, start+size) of an allocated region
func (m *ListBlockMetadata) IsAllocatedOffset(offset int) bool {
	for handle := m.head; handle != NoAllocation; handle = m.blocks[handle].next {
		block := &m.blocks[handle]
		if block.allocated && offset >= block.offset && offset < block.offset+block.size {
			return true
		}
	}

	return false
}

// VisitAllRegions calls the provided callback once for each allocated and free region, in
// offset order
func (m *ListBlockMetadata) VisitAllRegions(handleBlock func(handle BlockAllocationHandle, offset int, size int, free bool) error) error {
	for handle := m.head; handle != NoAllocation; handle = m.blocks[handle].next {
		block := &m.blocks[handle]
		err := handleBlock(handle, block.offset, block.size, !block.allocated)
		if err != nil {
			return err
		}
	}

	return nil
}

// FindAllocation returns the handle of the allocation beginning at exactly offset, or NoAllocation
func (m *ListBlockMetadata) FindAllocation(offset int) BlockAllocationHandle {
	if m.allocationsByOffset == nil {
		return NoAllocation
	}

	handle, ok := m.allocationsByOffset.Get(offset)
	if !ok {
		return NoAllocation
	}

	return handle
}

// AllocationOffset returns the offset of the region mapped to allocHandle, which may be free
func (m *ListBlockMetadata) AllocationOffset(allocHandle BlockAllocationHandle) (int, error) {
	block, err := m.getBlock(allocHandle)
	if err != nil {
		return 0, err
	}

	return block.offset, nil
}

// AllocationSize returns the size of the region mapped to allocHandle, which may be free
func (m *ListBlockMetadata) AllocationSize(allocHandle BlockAllocationHandle) (int, error) {
	block, err := m.getBlock(allocHandle)
	if err != nil {
		return 0, err
	}

	return block.size, nil
}

// AddDetailedStatistics sums this pool's allocation statistics into the provided object
func (m *ListBlockMetadata) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	stats.PoolCount++
	stats.PoolBytes += m.Size()

	for handle := m.head; handle != NoAllocation; handle = m.blocks[handle].next {
		block := &m.blocks[handle]
		if block.allocated {
			stats.AddAllocation(block.size)
		} else {
			stats.AddUnusedRange(block.size)
		}
	}
}

// AddStatistics sums this pool's allocation statistics into the provided object
func (m *ListBlockMetadata) AddStatistics(stats *memutils.Statistics) {
	stats.PoolCount++
	stats.AllocationCount += m.allocCount
	stats.PoolBytes += m.Size()
	stats.AllocationBytes += m.SumAllocatedSize()
}

// BlockJsonData populates a json object with summary information about this pool
func (m *ListBlockMetadata) BlockJsonData(json *jwriter.ObjectState) {
	m.BlockMetadataBase.BlockJsonData(json, m.sumFreeSize, m.allocCount, m.freeCount)
	json.Name("LargestUnusedRange").Int(m.LargestFreeRegion())

	if cursor, err := m.getBlock(m.cursor); err == nil {
		json.Name("CursorOffset").Int(cursor.offset)
	}
}

// CreateAllocationRequest chooses a free region for allocSize bytes according to the metadata's
// strategy. It does not modify the metadata: false is returned when no region is large enough.
func (m *ListBlockMetadata) CreateAllocationRequest(allocSize int) (bool, AllocationRequest, error) {
	var allocRequest AllocationRequest

	if allocSize < 1 {
		return false, allocRequest, errors.Errorf("invalid allocSize: %d", allocSize)
	}

	if m.head == NoAllocation {
		return false, allocRequest, errors.New("metadata has not been initialized")
	}

	memutils.DebugValidate(m)

	// Is pool big enough?
	if allocSize > m.sumFreeSize {
		return false, allocRequest, nil
	}

	var handle BlockAllocationHandle
	switch m.strategy {
	case AllocationStrategyFirstFit:
		handle = m.findFirstFit(m.head, NoAllocation, allocSize)
	case AllocationStrategyBestFit:
		handle = m.findBestFit(allocSize)
	case AllocationStrategyWorstFit:
		handle = m.findWorstFit(allocSize)
	case AllocationStrategyNextFit:
		handle = m.findNextFit(allocSize)
	default:
		return false, allocRequest, errors.Errorf("cannot allocate with strategy %s", m.strategy)
	}

	if handle == NoAllocation {
		return false, allocRequest, nil
	}

	block := &m.blocks[handle]
	allocRequest.BlockAllocationHandle = handle
	allocRequest.Size = allocSize
	allocRequest.Item = Suballocation{
		Offset: block.offset,
		Size:   allocSize,
	}
	allocRequest.Strategy = m.strategy
	allocRequest.RegionSize = block.size

	return true, allocRequest, nil
}

// findFirstFit returns the first free region of at least allocSize bytes, walking from start up
// to but not including stop
func (m *ListBlockMetadata) findFirstFit(start, stop BlockAllocationHandle, allocSize int) BlockAllocationHandle {
	for handle := start; handle != stop && handle != NoAllocation; handle = m.blocks[handle].next {
		block := &m.blocks[handle]
		if !block.allocated && block.size >= allocSize {
			return handle
		}
	}

	return NoAllocation
}

func (m *ListBlockMetadata) findNextFit(allocSize int) BlockAllocationHandle {
	handle := m.findFirstFit(m.cursor, NoAllocation, allocSize)
	if handle != NoAllocation {
		return handle
	}

	// Wrap around
	return m.findFirstFit(m.head, m.cursor, allocSize)
}

func (m *ListBlockMetadata) findBestFit(allocSize int) BlockAllocationHandle {
	best := NoAllocation
	bestDiff := 0

	for handle := m.head; handle != NoAllocation; handle = m.blocks[handle].next {
		block := &m.blocks[handle]
		if block.allocated || block.size < allocSize {
			continue
		}

		// Strictly smaller, so the earliest of several equal candidates is kept
		diff := block.size - allocSize
		if best == NoAllocation || diff < bestDiff {
			best = handle
			bestDiff = diff
		}
	}

	return best
}

func (m *ListBlockMetadata) findWorstFit(allocSize int) BlockAllocationHandle {
	worst := NoAllocation
	worstDiff := 0

	for handle := m.head; handle != NoAllocation; handle = m.blocks[handle].next {
		block := &m.blocks[handle]
		if block.allocated || block.size < allocSize {
			continue
		}

		diff := block.size - allocSize
		if worst == NoAllocation || diff > worstDiff {
			worst = handle
			worstDiff = diff
		}
	}

	return worst
}

// Alloc commits an AllocationRequest: the selected region is split if it is larger than the
// request, marked allocated, and becomes the next-fit cursor.
func (m *ListBlockMetadata) Alloc(req AllocationRequest) error {
	block, err := m.getBlock(req.BlockAllocationHandle)
	if err != nil {
		return err
	}

	if block.allocated {
		return errors.New("allocation request refers to a region that is already allocated")
	}

	if block.offset != req.Item.Offset || block.size != req.RegionSize {
		return errors.Errorf("allocation request is stale: region at offset %d with size %d, request expected offset %d with size %d", block.offset, block.size, req.Item.Offset, req.RegionSize)
	}

	if req.Size < 1 || req.Size > block.size {
		return errors.Errorf("allocation request size %d does not fit region of size %d", req.Size, block.size)
	}

	handle := req.BlockAllocationHandle
	if block.size > req.Size {
		m.splitBlock(handle, req.Size)
	}

	// splitBlock may have grown the arena
	block = &m.blocks[handle]
	block.allocated = true

	m.allocCount++
	m.freeCount--
	m.sumFreeSize -= block.size
	m.allocationsByOffset.Put(block.offset, handle)
	m.cursor = handle

	memutils.DebugValidate(m)

	return nil
}

// splitBlock shrinks the free region at handle to size bytes and inserts a new free region
// covering the remainder immediately after it
func (m *ListBlockMetadata) splitBlock(handle BlockAllocationHandle, size int) {
	newHandle := m.allocateBlock()
	block := &m.blocks[handle]
	newBlock := &m.blocks[newHandle]

	newBlock.offset = block.offset + size
	newBlock.size = block.size - size
	newBlock.prev = handle
	newBlock.next = block.next
	if block.next != NoAllocation {
		m.blocks[block.next].prev = newHandle
	}

	block.next = newHandle
	block.size = size

	m.freeCount++
}

// Free frees the allocation at allocHandle and merges it with free neighbors. The following
// region is absorbed first, then the result is absorbed into the preceding region, and the
// next-fit cursor follows whichever region survives.
func (m *ListBlockMetadata) Free(allocHandle BlockAllocationHandle) error {
	block, err := m.getBlock(allocHandle)
	if err != nil {
		return err
	}
	if !block.allocated {
		return errors.New("block is already free")
	}

	block.allocated = false
	m.allocCount--
	m.freeCount++
	m.sumFreeSize += block.size
	m.allocationsByOffset.Delete(block.offset)

	if next := block.next; next != NoAllocation && !m.blocks[next].allocated {
		m.mergeBlock(allocHandle, next)
	}

	if prev := m.blocks[allocHandle].prev; prev != NoAllocation && !m.blocks[prev].allocated {
		m.mergeBlock(prev, allocHandle)
	}

	memutils.DebugValidate(m)

	return nil
}

// mergeBlock grows the free region at handle by the free region immediately after it and
// destroys the absorbed region
func (m *ListBlockMetadata) mergeBlock(handle BlockAllocationHandle, absorbed BlockAllocationHandle) {
	block := &m.blocks[handle]
	next := &m.blocks[absorbed]

	if block.next != absorbed {
		panic("cannot merge separate physical regions")
	}
	if block.allocated || next.allocated {
		panic("cannot merge an allocated region")
	}

	block.size += next.size
	block.next = next.next
	if block.next != NoAllocation {
		m.blocks[block.next].prev = handle
	}

	if m.cursor == absorbed {
		m.cursor = handle
	}

	m.freeCount--
	m.freeBlock(absorbed)
}
