package memutils

import (
	"math"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// Statistics holds cheap running totals for one or more pools.
type Statistics struct {
	PoolCount       int
	AllocationCount int
	PoolBytes       int
	AllocationBytes int
}

func (s *Statistics) Clear() {
	s.PoolCount = 0
	s.AllocationCount = 0
	s.PoolBytes = 0
	s.AllocationBytes = 0
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.PoolCount += other.PoolCount
	s.AllocationCount += other.AllocationCount
	s.PoolBytes += other.PoolBytes
	s.AllocationBytes += other.AllocationBytes
}

// UnusedBytes is the number of pool bytes not covered by an allocation
func (s *Statistics) UnusedBytes() int {
	return s.PoolBytes - s.AllocationBytes
}

// DetailedStatistics extends Statistics with per-region extremes. It must be Cleared before
// the first Add call so the minimums start out at math.MaxInt.
type DetailedStatistics struct {
	Statistics
	UnusedRangeCount   int
	AllocationSizeMin  int
	AllocationSizeMax  int
	UnusedRangeSizeMin int
	UnusedRangeSizeMax int
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.UnusedRangeCount = 0
	s.AllocationSizeMin = math.MaxInt
	s.AllocationSizeMax = 0
	s.UnusedRangeSizeMin = math.MaxInt
	s.UnusedRangeSizeMax = 0
}

func (s *DetailedStatistics) AddUnusedRange(size int) {
	s.UnusedRangeCount++

	if size < s.UnusedRangeSizeMin {
		s.UnusedRangeSizeMin = size
	}

	if size > s.UnusedRangeSizeMax {
		s.UnusedRangeSizeMax = size
	}
}

func (s *DetailedStatistics) AddAllocation(size int) {
	s.AllocationCount++
	s.AllocationBytes += size

	if size < s.AllocationSizeMin {
		s.AllocationSizeMin = size
	}

	if size > s.AllocationSizeMax {
		s.AllocationSizeMax = size
	}
}

func (s *DetailedStatistics) AddDetailedStatistics(other *DetailedStatistics) {
	s.Statistics.AddStatistics(&other.Statistics)
	s.UnusedRangeCount += other.UnusedRangeCount

	if other.UnusedRangeSizeMin < s.UnusedRangeSizeMin {
		s.UnusedRangeSizeMin = other.UnusedRangeSizeMin
	}

	if other.UnusedRangeSizeMax > s.UnusedRangeSizeMax {
		s.UnusedRangeSizeMax = other.UnusedRangeSizeMax
	}

	if other.AllocationSizeMin < s.AllocationSizeMin {
		s.AllocationSizeMin = other.AllocationSizeMin
	}

	if other.AllocationSizeMax > s.AllocationSizeMax {
		s.AllocationSizeMax = other.AllocationSizeMax
	}
}

// AverageUnusedRangeSize returns the mean size of a free region, or 0 when there are none
func (s *DetailedStatistics) AverageUnusedRangeSize() float64 {
	if s.UnusedRangeCount == 0 {
		return 0
	}

	return float64(s.UnusedBytes()) / float64(s.UnusedRangeCount)
}

// WriteJson writes the statistics as members of an already-open json object. Extremes that
// were never populated are written as 0.
func (s *DetailedStatistics) WriteJson(json *jwriter.ObjectState) {
	json.Name("PoolCount").Int(s.PoolCount)
	json.Name("PoolBytes").Int(s.PoolBytes)
	json.Name("AllocationCount").Int(s.AllocationCount)
	json.Name("AllocationBytes").Int(s.AllocationBytes)
	json.Name("UnusedRangeCount").Int(s.UnusedRangeCount)

	json.Name("AllocationSizeMin").Int(zeroIfUnset(s.AllocationSizeMin))
	json.Name("AllocationSizeMax").Int(s.AllocationSizeMax)
	json.Name("UnusedRangeSizeMin").Int(zeroIfUnset(s.UnusedRangeSizeMin))
	json.Name("UnusedRangeSizeMax").Int(s.UnusedRangeSizeMax)
}

func zeroIfUnset(value int) int {
	if value == math.MaxInt {
		return 0
	}
	return value
}
