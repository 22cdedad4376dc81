package pool

import (
	"sync"
	"time"
)

// AllocationEvent is one entry in the rolling allocation history. The
// history is diagnostic only; correctness never depends on it.
type AllocationEvent struct {
	ID   AllocationID
	Pool string
	Size int64
	At   time.Time
}

// globalMetrics holds process-wide accounting across all pools, guarded
// separately from the per-pool locks so unrelated pools never serialize.
type globalMetrics struct {
	mu sync.Mutex

	totalAllocated int64 // bytes ever allocated
	totalFreed     int64 // bytes ever freed
	current        int64 // resident bytes right now
	peak           int64 // high-water mark of current

	history []AllocationEvent // ring buffer, oldest overwritten first
	next    int               // next write position
	filled  bool              // ring has wrapped at least once
}

func newGlobalMetrics(historySize int) *globalMetrics {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	return &globalMetrics{history: make([]AllocationEvent, historySize)}
}

func (m *globalMetrics) recordAlloc(rec *Allocation) {
	m.mu.Lock()
	m.totalAllocated += rec.Size
	m.current += rec.Size
	if m.current > m.peak {
		m.peak = m.current
	}
	m.history[m.next] = AllocationEvent{ID: rec.ID, Pool: rec.Pool, Size: rec.Size, At: rec.CreatedAt}
	m.next++
	if m.next == len(m.history) {
		m.next = 0
		m.filled = true
	}
	m.mu.Unlock()
}

func (m *globalMetrics) recordFree(rec *Allocation) {
	m.mu.Lock()
	m.totalFreed += rec.Size
	m.current -= rec.Size
	m.mu.Unlock()
}

// snapshotHistory returns the history oldest-first.
func (m *globalMetrics) snapshotHistory() []AllocationEvent {
	var out []AllocationEvent
	if m.filled {
		out = make([]AllocationEvent, 0, len(m.history))
		out = append(out, m.history[m.next:]...)
		out = append(out, m.history[:m.next]...)
	} else {
		out = make([]AllocationEvent, m.next)
		copy(out, m.history[:m.next])
	}
	return out
}

// PoolStats is a point-in-time snapshot of one pool.
type PoolStats struct {
	Name       string
	TotalBytes int64
	BlockSize  int64
	BlockCount int
	Alignment  int64

	FreeBlocks     int
	UsedBlocks     int
	LargestFreeRun int // blocks

	LiveAllocations int
	BytesInUse      int64
	PeakBytes       int64
	Utilization     float64 // BytesInUse / TotalBytes

	AllocCount   uint64
	DeallocCount uint64
	GCFrees      uint64
}

// GlobalStats is a point-in-time snapshot of the process-wide counters.
type GlobalStats struct {
	TotalAllocated  int64
	TotalFreed      int64
	CurrentResident int64
	PeakResident    int64
	History         []AllocationEvent
}

// Stats is the full read-only reporting surface consumed by dashboards.
type Stats struct {
	Pools  []PoolStats // in definition order
	Global GlobalStats
}

// Stats snapshots every pool and the global counters. It mutates nothing:
// two calls with no intervening allocator activity return identical values.
func (a *Allocator) Stats() Stats {
	out := Stats{Pools: make([]PoolStats, 0, len(a.order))}

	for _, name := range a.order {
		p := a.pools[name]
		p.mu.Lock()
		ps := PoolStats{
			Name:            p.name,
			TotalBytes:      p.size,
			BlockSize:       p.blockSize,
			BlockCount:      p.blockCount,
			Alignment:       p.alignment,
			FreeBlocks:      p.free.freeCount(),
			UsedBlocks:      p.blockCount - p.free.freeCount(),
			LargestFreeRun:  p.free.largestRun(),
			LiveAllocations: len(p.live),
			BytesInUse:      p.counters.BytesInUse,
			PeakBytes:       p.counters.PeakBytes,
			Utilization:     float64(p.counters.BytesInUse) / float64(p.size),
			AllocCount:      p.counters.AllocCount,
			DeallocCount:    p.counters.DeallocCount,
			GCFrees:         p.counters.GCFrees,
		}
		p.mu.Unlock()
		out.Pools = append(out.Pools, ps)
	}

	a.metrics.mu.Lock()
	out.Global = GlobalStats{
		TotalAllocated:  a.metrics.totalAllocated,
		TotalFreed:      a.metrics.totalFreed,
		CurrentResident: a.metrics.current,
		PeakResident:    a.metrics.peak,
		History:         a.metrics.snapshotHistory(),
	}
	a.metrics.mu.Unlock()

	return out
}
