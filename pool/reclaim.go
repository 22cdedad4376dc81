package pool

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// GarbageCollect frees every live allocation in the named pool older than
// the pool's GC TTL and returns how many were reclaimed. Pools with GC
// disabled are left untouched.
//
// This is the same pass Allocate runs inline when a contiguous-run search
// comes up empty; the maintenance cycle runs it across all pools on a fixed
// interval.
func (a *Allocator) GarbageCollect(poolName string) (int, error) {
	p, ok := a.pools[poolName]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPool, poolName)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return a.collectLocked(p, a.now()), nil
}

// collectLocked frees allocations older than the pool TTL. Caller holds p.mu.
func (a *Allocator) collectLocked(p *blockPool, now time.Time) int {
	if p.gcDisabled {
		return 0
	}

	// Collect ids first; freeLocked mutates the map being ranged otherwise.
	var expired []*Allocation
	for _, rec := range p.live {
		if now.Sub(rec.CreatedAt) > p.gcTTL {
			expired = append(expired, rec)
		}
	}
	for _, rec := range expired {
		a.freeLocked(p, rec, true)
	}
	if len(expired) > 0 {
		a.log.WithFields(logrus.Fields{
			"pool":      p.name,
			"reclaimed": len(expired),
			"ttl":       p.gcTTL,
		}).Debug("garbage collection reclaimed expired allocations")
	}
	return len(expired)
}

// Leak describes one allocation that exceeded its pool's leak-age threshold.
type Leak struct {
	ID    AllocationID
	Pool  string
	Size  int64
	Age   time.Duration
	Since time.Time
}

// AuditLeaks scans every pool for live allocations older than the pool's
// leak-age threshold. Findings are logged and returned; nothing is freed —
// reclamation stays the job of GarbageCollect and the caller.
//
// With GC enabled at default settings the TTL expires allocations long
// before the leak age, so the audit mostly matters for pools that run with
// GC disabled.
func (a *Allocator) AuditLeaks() []Leak {
	now := a.now()
	var leaks []Leak

	for _, name := range a.order {
		p := a.pools[name]
		p.mu.Lock()
		for _, rec := range p.live {
			age := now.Sub(rec.CreatedAt)
			if age > p.leakAge {
				leaks = append(leaks, Leak{
					ID:    rec.ID,
					Pool:  p.name,
					Size:  rec.Size,
					Age:   age,
					Since: rec.CreatedAt,
				})
			}
		}
		p.mu.Unlock()
	}

	for _, leak := range leaks {
		a.log.WithFields(logrus.Fields{
			"allocation": leak.ID,
			"pool":       leak.Pool,
			"size":       leak.Size,
			"age":        leak.Age,
		}).Warning("possible leak: allocation exceeds leak-age threshold")
	}
	return leaks
}
