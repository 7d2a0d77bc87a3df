package metadata_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/heapsim/memutils"
	"github.com/vkngwrapper/heapsim/memutils/metadata"
)

type region struct {
	Offset int
	Size   int
	Free   bool
}

func regions(t *testing.T, md metadata.BlockMetadata) []region {
	var out []region
	err := md.VisitAllRegions(func(handle metadata.BlockAllocationHandle, offset int, size int, free bool) error {
		out = append(out, region{Offset: offset, Size: size, Free: free})
		return nil
	})
	require.NoError(t, err)
	return out
}

func alloc(t *testing.T, md metadata.BlockMetadata, size int) metadata.BlockAllocationHandle {
	success, req, err := md.CreateAllocationRequest(size)
	require.NoError(t, err)
	if !success {
		return metadata.NoAllocation
	}

	err = md.Alloc(req)
	require.NoError(t, err)
	require.NoError(t, md.Validate())

	return req.BlockAllocationHandle
}

func offsetOf(t *testing.T, md metadata.BlockMetadata, handle metadata.BlockAllocationHandle) int {
	offset, err := md.AllocationOffset(handle)
	require.NoError(t, err)
	return offset
}

// threeHundredsWithHole leaves a 500 byte pool as [A100][F100][A100][F200]
func threeHundredsWithHole(t *testing.T, strategy metadata.AllocationStrategy) *metadata.ListBlockMetadata {
	md := metadata.NewListBlockMetadata(strategy)
	md.Init(500)

	alloc(t, md, 100)
	middle := alloc(t, md, 100)
	alloc(t, md, 100)

	require.NoError(t, md.Free(middle))
	require.NoError(t, md.Validate())

	require.Equal(t, []region{
		{Offset: 0, Size: 100},
		{Offset: 100, Size: 100, Free: true},
		{Offset: 200, Size: 100},
		{Offset: 300, Size: 200, Free: true},
	}, regions(t, md))

	return md
}

func TestListBasicAlloc(t *testing.T) {
	md := metadata.NewListBlockMetadata(metadata.AllocationStrategyFirstFit)
	md.Init(1000)
	require.NoError(t, md.Validate())

	var stats memutils.DetailedStatistics
	stats.Clear()
	md.AddDetailedStatistics(&stats)

	require.Equal(t, memutils.DetailedStatistics{
		Statistics: memutils.Statistics{
			PoolCount:       1,
			PoolBytes:       1000,
			AllocationCount: 0,
			AllocationBytes: 0,
		},
		UnusedRangeCount:   1,
		AllocationSizeMin:  math.MaxInt,
		AllocationSizeMax:  0,
		UnusedRangeSizeMin: 1000,
		UnusedRangeSizeMax: 1000,
	}, stats)

	alloc1 := alloc(t, md, 100)
	require.NotEqual(t, metadata.NoAllocation, alloc1)
	require.Equal(t, 0, offsetOf(t, md, alloc1))

	stats.Clear()
	md.AddDetailedStatistics(&stats)

	require.Equal(t, memutils.DetailedStatistics{
		Statistics: memutils.Statistics{
			PoolCount:       1,
			PoolBytes:       1000,
			AllocationCount: 1,
			AllocationBytes: 100,
		},
		UnusedRangeCount:   1,
		AllocationSizeMin:  100,
		AllocationSizeMax:  100,
		UnusedRangeSizeMin: 900,
		UnusedRangeSizeMax: 900,
	}, stats)

	var simple memutils.Statistics
	md.AddStatistics(&simple)
	require.Equal(t, memutils.Statistics{
		PoolCount:       1,
		AllocationCount: 1,
		PoolBytes:       1000,
		AllocationBytes: 100,
	}, simple)

	require.NoError(t, md.Free(alloc1))
	require.NoError(t, md.Validate())
	require.True(t, md.IsEmpty())

	stats.Clear()
	md.AddDetailedStatistics(&stats)

	require.Equal(t, memutils.DetailedStatistics{
		Statistics: memutils.Statistics{
			PoolCount:       1,
			PoolBytes:       1000,
			AllocationCount: 0,
			AllocationBytes: 0,
		},
		UnusedRangeCount:   1,
		AllocationSizeMin:  math.MaxInt,
		AllocationSizeMax:  0,
		UnusedRangeSizeMin: 1000,
		UnusedRangeSizeMax: 1000,
	}, stats)
}

func TestListFirstFitUsesFirstHole(t *testing.T) {
	md := threeHundredsWithHole(t, metadata.AllocationStrategyFirstFit)

	handle := alloc(t, md, 50)
	require.Equal(t, 100, offsetOf(t, md, handle))

	require.Equal(t, []region{
		{Offset: 0, Size: 100},
		{Offset: 100, Size: 50},
		{Offset: 150, Size: 50, Free: true},
		{Offset: 200, Size: 100},
		{Offset: 300, Size: 200, Free: true},
	}, regions(t, md))
}

func TestListBestFitUsesTightestHole(t *testing.T) {
	md := threeHundredsWithHole(t, metadata.AllocationStrategyBestFit)

	handle := alloc(t, md, 50)
	require.Equal(t, 100, offsetOf(t, md, handle))
	require.Equal(t, 2, md.FreeRegionsCount())
	require.Equal(t, 200, md.LargestFreeRegion())
	require.Equal(t, 1, md.SmallFreeRegionsCount(51))
}

func TestListWorstFitUsesLargestHole(t *testing.T) {
	md := threeHundredsWithHole(t, metadata.AllocationStrategyWorstFit)

	handle := alloc(t, md, 50)
	require.Equal(t, 300, offsetOf(t, md, handle))

	require.Equal(t, []region{
		{Offset: 0, Size: 100},
		{Offset: 100, Size: 100, Free: true},
		{Offset: 200, Size: 100},
		{Offset: 300, Size: 50},
		{Offset: 350, Size: 150, Free: true},
	}, regions(t, md))
}

func TestListBestFitKeepsFirstOfEqualHoles(t *testing.T) {
	md := metadata.NewListBlockMetadata(metadata.AllocationStrategyBestFit)
	md.Init(400)

	a := alloc(t, md, 100)
	alloc(t, md, 100)
	c := alloc(t, md, 100)
	alloc(t, md, 100)

	require.NoError(t, md.Free(c))
	require.NoError(t, md.Free(a))

	handle := alloc(t, md, 60)
	require.Equal(t, 0, offsetOf(t, md, handle))
}

func TestListWorstFitKeepsFirstOfEqualHoles(t *testing.T) {
	md := metadata.NewListBlockMetadata(metadata.AllocationStrategyWorstFit)
	md.Init(400)

	a := alloc(t, md, 100)
	alloc(t, md, 100)
	c := alloc(t, md, 100)
	alloc(t, md, 100)

	require.NoError(t, md.Free(c))
	require.NoError(t, md.Free(a))

	handle := alloc(t, md, 60)
	require.Equal(t, 0, offsetOf(t, md, handle))
}

func TestListWorstFitTakesExactFit(t *testing.T) {
	md := metadata.NewListBlockMetadata(metadata.AllocationStrategyWorstFit)
	md.Init(100)

	handle := alloc(t, md, 100)
	require.NotEqual(t, metadata.NoAllocation, handle)
	require.Equal(t, 0, md.SumFreeSize())
	require.Equal(t, 0, md.FreeRegionsCount())
	require.Equal(t, 0, md.LargestFreeRegion())
}

func TestListNextFitResumesAtCursor(t *testing.T) {
	md := metadata.NewListBlockMetadata(metadata.AllocationStrategyNextFit)
	md.Init(500)

	a := alloc(t, md, 100)
	alloc(t, md, 100)
	c := alloc(t, md, 100)
	require.Equal(t, c, md.Cursor())

	require.NoError(t, md.Free(a))

	// The hole at 0 would satisfy first fit, but the search starts at the cursor
	d := alloc(t, md, 50)
	require.Equal(t, 300, offsetOf(t, md, d))
	require.Equal(t, d, md.Cursor())

	e := alloc(t, md, 150)
	require.Equal(t, 350, offsetOf(t, md, e))

	// Nothing remains at or after the cursor, so the search wraps
	f := alloc(t, md, 80)
	require.Equal(t, 0, offsetOf(t, md, f))
	require.Equal(t, f, md.Cursor())
}

func TestListNextFitFailureLeavesCursor(t *testing.T) {
	md := metadata.NewListBlockMetadata(metadata.AllocationStrategyNextFit)
	md.Init(300)

	alloc(t, md, 100)
	b := alloc(t, md, 100)

	before := regions(t, md)
	require.Equal(t, metadata.NoAllocation, alloc(t, md, 101))
	require.Equal(t, b, md.Cursor())
	require.Equal(t, before, regions(t, md))
}

func TestListFreeRedirectsCursorForward(t *testing.T) {
	md := metadata.NewListBlockMetadata(metadata.AllocationStrategyNextFit)
	md.Init(500)

	a := alloc(t, md, 100)
	b := alloc(t, md, 100)

	// b absorbs the tail and remains the cursor
	require.NoError(t, md.Free(b))
	require.Equal(t, b, md.Cursor())
	require.Equal(t, 100, offsetOf(t, md, md.Cursor()))

	// a absorbs b, so the cursor moves to a
	require.NoError(t, md.Free(a))
	require.NoError(t, md.Validate())
	require.Equal(t, a, md.Cursor())
	require.Equal(t, []region{{Offset: 0, Size: 500, Free: true}}, regions(t, md))
}

func TestListFreeRedirectsCursorBackward(t *testing.T) {
	md := metadata.NewListBlockMetadata(metadata.AllocationStrategyNextFit)
	md.Init(500)

	a := alloc(t, md, 100)
	b := alloc(t, md, 100)
	c := alloc(t, md, 100)

	require.NoError(t, md.Free(a))
	require.NoError(t, md.Free(c))
	require.Equal(t, c, md.Cursor())

	// b absorbs c (the cursor), then a absorbs b
	require.NoError(t, md.Free(b))
	require.NoError(t, md.Validate())
	require.Equal(t, a, md.Cursor())
	require.Equal(t, 1, md.FreeRegionsCount())
	require.Equal(t, 500, md.LargestFreeRegion())
}

func TestListFreeMergesBothSides(t *testing.T) {
	md := metadata.NewListBlockMetadata(metadata.AllocationStrategyFirstFit)
	md.Init(400)

	a := alloc(t, md, 100)
	b := alloc(t, md, 100)
	c := alloc(t, md, 100)
	alloc(t, md, 100)

	require.NoError(t, md.Free(a))
	require.NoError(t, md.Free(c))
	require.Equal(t, 2, md.FreeRegionsCount())

	require.NoError(t, md.Free(b))
	require.NoError(t, md.Validate())

	require.Equal(t, []region{
		{Offset: 0, Size: 300, Free: true},
		{Offset: 300, Size: 100},
	}, regions(t, md))
}

func TestListRoundTrip(t *testing.T) {
	for _, strategy := range metadata.AllStrategies {
		t.Run(strategy.String(), func(t *testing.T) {
			md := threeHundredsWithHole(t, strategy)

			before := regions(t, md)
			holes := md.FreeRegionsCount()
			largest := md.LargestFreeRegion()

			handle := alloc(t, md, 40)
			require.NotEqual(t, metadata.NoAllocation, handle)
			require.NoError(t, md.Free(handle))
			require.NoError(t, md.Validate())

			require.Equal(t, before, regions(t, md))
			require.Equal(t, holes, md.FreeRegionsCount())
			require.Equal(t, largest, md.LargestFreeRegion())
		})
	}
}

func TestListExhaustion(t *testing.T) {
	for _, strategy := range metadata.AllStrategies {
		t.Run(strategy.String(), func(t *testing.T) {
			md := threeHundredsWithHole(t, strategy)

			success, _, err := md.CreateAllocationRequest(201)
			require.NoError(t, err)
			require.False(t, success)

			// Enough bytes in total, but no single hole holds them
			success, _, err = md.CreateAllocationRequest(250)
			require.NoError(t, err)
			require.False(t, success)
		})
	}
}

func TestListSmallFreeRegionsIsStrict(t *testing.T) {
	md := threeHundredsWithHole(t, metadata.AllocationStrategyFirstFit)

	require.Equal(t, 0, md.SmallFreeRegionsCount(100))
	require.Equal(t, 1, md.SmallFreeRegionsCount(101))
	require.Equal(t, 1, md.SmallFreeRegionsCount(200))
	require.Equal(t, 2, md.SmallFreeRegionsCount(201))
}

func TestListIsAllocatedOffset(t *testing.T) {
	md := threeHundredsWithHole(t, metadata.AllocationStrategyFirstFit)

	require.True(t, md.IsAllocatedOffset(0))
	require.True(t, md.IsAllocatedOffset(99))
	require.False(t, md.IsAllocatedOffset(100))
	require.False(t, md.IsAllocatedOffset(199))
	require.True(t, md.IsAllocatedOffset(200))
	require.True(t, md.IsAllocatedOffset(299))
	require.False(t, md.IsAllocatedOffset(300))
	require.False(t, md.IsAllocatedOffset(500))
	require.False(t, md.IsAllocatedOffset(-1))
}

func TestListFindAllocation(t *testing.T) {
	md := threeHundredsWithHole(t, metadata.AllocationStrategyFirstFit)

	handle := md.FindAllocation(200)
	require.NotEqual(t, metadata.NoAllocation, handle)
	size, err := md.AllocationSize(handle)
	require.NoError(t, err)
	require.Equal(t, 100, size)

	require.Equal(t, metadata.NoAllocation, md.FindAllocation(100))
	require.Equal(t, metadata.NoAllocation, md.FindAllocation(250))
}

func TestListInvalidRequests(t *testing.T) {
	md := metadata.NewListBlockMetadata(metadata.AllocationStrategyFirstFit)

	_, _, err := md.CreateAllocationRequest(10)
	require.Error(t, err)

	md.Init(100)

	_, _, err = md.CreateAllocationRequest(0)
	require.Error(t, err)

	handle := alloc(t, md, 10)
	require.NoError(t, md.Free(handle))
	require.Error(t, md.Free(handle))
	require.Error(t, md.Free(metadata.NoAllocation))
	require.Error(t, md.Free(metadata.BlockAllocationHandle(5000)))
	require.NoError(t, md.Validate())

	notSet := metadata.NewListBlockMetadata(metadata.AllocationStrategyNotSet)
	notSet.Init(100)
	_, _, err = notSet.CreateAllocationRequest(10)
	require.Error(t, err)
}

func TestListStaleRequest(t *testing.T) {
	md := metadata.NewListBlockMetadata(metadata.AllocationStrategyFirstFit)
	md.Init(100)

	success, req, err := md.CreateAllocationRequest(10)
	require.NoError(t, err)
	require.True(t, success)

	require.NoError(t, md.Alloc(req))
	require.Error(t, md.Alloc(req))

	success, req, err = md.CreateAllocationRequest(10)
	require.NoError(t, err)
	require.True(t, success)
	require.Equal(t, 80, req.Remainder())

	alloc(t, md, 10)
	require.Error(t, md.Alloc(req))
	require.NoError(t, md.Validate())
}

func TestListClear(t *testing.T) {
	md := threeHundredsWithHole(t, metadata.AllocationStrategyNextFit)

	md.Clear()
	require.NoError(t, md.Validate())
	require.True(t, md.IsEmpty())
	require.Equal(t, []region{{Offset: 0, Size: 500, Free: true}}, regions(t, md))
	require.Equal(t, 0, offsetOf(t, md, md.Cursor()))
}

func TestListBlockJsonData(t *testing.T) {
	md := threeHundredsWithHole(t, metadata.AllocationStrategyBestFit)

	writer := jwriter.NewWriter()
	obj := writer.Object()
	md.BlockJsonData(&obj)
	obj.End()

	require.JSONEq(t, `{
		"Strategy": "best",
		"TotalBytes": 500,
		"UnusedBytes": 300,
		"Allocations": 2,
		"UnusedRanges": 2,
		"LargestUnusedRange": 200,
		"CursorOffset": 200
	}`, string(writer.Bytes()))
}

func TestListRandomizedInvariants(t *testing.T) {
	const poolSize = 10000

	for _, strategy := range metadata.AllStrategies {
		t.Run(strategy.String(), func(t *testing.T) {
			rng := rand.New(rand.NewSource(42))
			md := metadata.NewListBlockMetadata(strategy)
			md.Init(poolSize)

			var live []metadata.BlockAllocationHandle
			for i := 0; i < 3000; i++ {
				if len(live) == 0 || rng.Intn(3) != 0 {
					handle := alloc(t, md, rng.Intn(500)+1)
					if handle != metadata.NoAllocation {
						live = append(live, handle)
					}
				} else {
					chosen := rng.Intn(len(live))
					require.NoError(t, md.Free(live[chosen]))
					live[chosen] = live[len(live)-1]
					live = live[:len(live)-1]
				}

				require.NoError(t, md.Validate())
				require.Equal(t, poolSize, md.SumFreeSize()+md.SumAllocatedSize())
				require.Equal(t, len(live), md.AllocationCount())

				var previousFree bool
				for index, r := range regions(t, md) {
					if index > 0 {
						require.False(t, previousFree && r.Free)
					}
					previousFree = r.Free
				}
			}
		})
	}
}
