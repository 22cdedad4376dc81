package pool

import (
	"sync"
	"time"
)

// maintenanceState tracks when each periodic task last ran.
type maintenanceState struct {
	mu        sync.Mutex
	lastGC    time.Time
	lastAudit time.Time
}

// MaintenanceSummary reports what one maintenance cycle did.
type MaintenanceSummary struct {
	GCRan     bool
	Reclaimed int // allocations freed by the GC sweep
	AuditRan  bool
	Leaks     int // allocations flagged by the leak audit
}

// RunMaintenanceCycle performs whatever periodic work is due at now: a GC
// sweep across all pools once per GC interval, and a leak audit once per
// audit interval. It is a pure function of the supplied clock — the
// allocator owns no timers — so the host decides when and how often to call
// it. The first call after construction runs both tasks.
func (a *Allocator) RunMaintenanceCycle(now time.Time) MaintenanceSummary {
	a.maint.mu.Lock()
	gcDue := a.maint.lastGC.IsZero() || now.Sub(a.maint.lastGC) >= a.gcInterval
	auditDue := a.maint.lastAudit.IsZero() || now.Sub(a.maint.lastAudit) >= a.auditInterval
	if gcDue {
		a.maint.lastGC = now
	}
	if auditDue {
		a.maint.lastAudit = now
	}
	a.maint.mu.Unlock()

	var sum MaintenanceSummary
	if gcDue {
		sum.GCRan = true
		for _, name := range a.order {
			p := a.pools[name]
			p.mu.Lock()
			sum.Reclaimed += a.collectLocked(p, now)
			p.mu.Unlock()
		}
	}
	if auditDue {
		sum.AuditRan = true
		sum.Leaks = len(a.AuditLeaks())
	}
	return sum
}

// Scheduler drives RunMaintenanceCycle from a ticker for hosts that want
// background maintenance without owning a timer themselves. The allocator
// works fine without one; explicit GarbageCollect and AuditLeaks calls
// remain available either way.
type Scheduler struct {
	alloc *Allocator
	tick  time.Duration

	started  bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewScheduler returns an unstarted scheduler that checks for due work
// every tick. A tick well below the GC interval is fine; RunMaintenanceCycle
// only does work when an interval has actually elapsed.
func NewScheduler(a *Allocator, tick time.Duration) *Scheduler {
	return &Scheduler{
		alloc: a,
		tick:  tick,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Start launches the background loop. Call Stop to halt it.
func (s *Scheduler) Start() {
	if s.started {
		return
	}
	s.started = true
	go s.run()
}

func (s *Scheduler) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			s.alloc.RunMaintenanceCycle(now)
		case <-s.stop:
			return
		}
	}
}

// Stop halts the loop and waits for it to exit. Safe to call more than once;
// a no-op if the scheduler was never started.
func (s *Scheduler) Stop() {
	if !s.started {
		return
	}
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}
