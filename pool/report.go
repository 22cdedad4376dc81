package pool

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Thresholds for report recommendations.
const (
	hotUtilization  = 0.90 // above this, a pool is near capacity
	coldUtilization = 0.10 // below this, a pool is oversized for its traffic

	// imbalanceMinAllocs is the minimum traffic before the
	// allocation/deallocation imbalance heuristic speaks up.
	imbalanceMinAllocs = 16
)

// Recommendation is one operational finding in an exported report.
type Recommendation struct {
	Pool     string
	Severity string // "warning" or "info"
	Message  string
}

// Report is the human-readable diagnostics surface consumed by operational
// tooling. It is derived entirely from Stats.
type Report struct {
	Summary         string
	Pools           []PoolStats
	Recommendations []Recommendation
}

// ExportReport builds a diagnostics report: a one-line summary, per-pool
// detail, and recommendations for pools that look mis-sized, leaky, or
// fragmented.
func (a *Allocator) ExportReport() Report {
	stats := a.Stats()
	pr := message.NewPrinter(language.English)

	var resident, capacity int64
	for _, ps := range stats.Pools {
		resident += ps.BytesInUse
		capacity += ps.TotalBytes
	}

	rep := Report{
		Summary: pr.Sprintf("%d pools, %d of %d bytes resident (peak %d)",
			len(stats.Pools), resident, capacity, stats.Global.PeakResident),
		Pools: stats.Pools,
	}

	for _, ps := range stats.Pools {
		if ps.Utilization > hotUtilization {
			rep.Recommendations = append(rep.Recommendations, Recommendation{
				Pool:     ps.Name,
				Severity: "warning",
				Message: pr.Sprintf("utilization %.0f%% — near capacity, allocations may start failing",
					ps.Utilization*100),
			})
		}
		if ps.Utilization < coldUtilization && ps.AllocCount > 0 {
			rep.Recommendations = append(rep.Recommendations, Recommendation{
				Pool:     ps.Name,
				Severity: "info",
				Message: pr.Sprintf("utilization %.0f%% — pool may be oversized for its workload",
					ps.Utilization*100),
			})
		}
		if ps.AllocCount >= imbalanceMinAllocs {
			released := ps.DeallocCount + ps.GCFrees
			if released*2 < ps.AllocCount {
				rep.Recommendations = append(rep.Recommendations, Recommendation{
					Pool:     ps.Name,
					Severity: "warning",
					Message: pr.Sprintf("%d allocations but only %d releases — callers may be leaking",
						ps.AllocCount, released),
				})
			}
		}
		// Plenty of free blocks but no usable run: interior fragmentation.
		if ps.FreeBlocks > 0 && ps.LargestFreeRun*2 < ps.FreeBlocks {
			rep.Recommendations = append(rep.Recommendations, Recommendation{
				Pool:     ps.Name,
				Severity: "info",
				Message: pr.Sprintf("%d free blocks but largest run is %d — consider Defragment",
					ps.FreeBlocks, ps.LargestFreeRun),
			})
		}
	}
	return rep
}

// String renders the report for terminals and log files.
func (r Report) String() string {
	pr := message.NewPrinter(language.English)
	var b strings.Builder

	b.WriteString(r.Summary)
	b.WriteByte('\n')
	for _, ps := range r.Pools {
		pr.Fprintf(&b, "  %-14s %d/%d bytes (%.0f%%), %d live, largest free run %d blocks\n",
			ps.Name, ps.BytesInUse, ps.TotalBytes, ps.Utilization*100,
			ps.LiveAllocations, ps.LargestFreeRun)
	}
	if len(r.Recommendations) == 0 {
		b.WriteString("no recommendations\n")
		return b.String()
	}
	for _, rec := range r.Recommendations {
		fmt.Fprintf(&b, "  [%s] %s: %s\n", rec.Severity, rec.Pool, rec.Message)
	}
	return b.String()
}
