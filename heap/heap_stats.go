package heap

import (
	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/heapsim/memutils"
	"github.com/vkngwrapper/heapsim/memutils/metadata"
)

type regionType uint32

const (
	RegionFree regionType = iota
	RegionAllocated
)

var regionTypeMapping = map[regionType]string{
	RegionFree:      "RegionFree",
	RegionAllocated: "RegionAllocated",
}

func (r regionType) String() string {
	str, ok := regionTypeMapping[r]
	if !ok {
		return "unknown RegionType"
	}

	return str
}

// CalculateStatistics returns per-region statistics for the pool
func (h *Heap) CalculateStatistics() memutils.DetailedStatistics {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	var stats memutils.DetailedStatistics
	stats.Clear()
	if h.metadata != nil {
		h.metadata.AddDetailedStatistics(&stats)
	}

	return stats
}

// BuildStatsString returns a json document describing the pool. When detailedMap is true, every
// region of the pool is listed as well.
func (h *Heap) BuildStatsString(detailedMap bool) string {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	var stats memutils.DetailedStatistics
	stats.Clear()

	writer := jwriter.NewWriter()
	root := writer.Object()

	if h.metadata != nil {
		h.logger.Debug("Heap::BuildStatsString")
		h.metadata.AddDetailedStatistics(&stats)
	}

	total := root.Name("Total").Object()
	stats.WriteJson(&total)
	total.End()

	if h.metadata != nil {
		pool := root.Name("Pool").Object()
		h.metadata.BlockJsonData(&pool)
		if detailedMap {
			h.printDetailedMap(&pool)
		}
		pool.End()
	}

	root.End()

	return string(writer.Bytes())
}

func (h *Heap) printDetailedMap(json *jwriter.ObjectState) {
	arrayState := json.Name("Regions").Array()
	defer arrayState.End()

	err := h.metadata.VisitAllRegions(func(handle metadata.BlockAllocationHandle, offset int, size int, free bool) error {
		obj := arrayState.Object()
		defer obj.End()

		kind := RegionAllocated
		if free {
			kind = RegionFree
		}

		obj.Name("Offset").Int(offset)
		obj.Name("Type").String(kind.String())
		obj.Name("Size").Int(size)

		return nil
	})
	if err != nil {
		panic(errors.AssertionFailedf("region dump failed: %+v", err))
	}
}
