package pool

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// Allocator is the single entry point for memory requests. It owns a fixed
// set of pools built once from a Config; there is no global registry, so
// independent Allocators (one per test, per tenant, per pipeline) never
// interfere.
type Allocator struct {
	pools map[string]*blockPool
	order []string // pool names in definition order, for deterministic iteration

	table   *allocationTable
	metrics *globalMetrics
	log     logrus.FieldLogger

	gcInterval    time.Duration
	auditInterval time.Duration

	maint maintenanceState

	// now is the clock used for allocation timestamps and age checks.
	// Overridden in tests.
	now func() time.Time

	closed bool
}

// New constructs an allocator and all of its pools. Any invalid pool
// definition is fatal: every problem is aggregated into the returned error
// and no allocator is built.
func New(cfg Config) (*Allocator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Allocator{
		pools:         make(map[string]*blockPool, len(cfg.Pools)),
		order:         make([]string, 0, len(cfg.Pools)),
		table:         newAllocationTable(),
		metrics:       newGlobalMetrics(cfg.HistorySize),
		log:           cfg.logger(),
		gcInterval:    cfg.GCInterval,
		auditInterval: cfg.LeakAuditInterval,
		now:           time.Now,
	}
	if a.gcInterval == 0 {
		a.gcInterval = DefaultGCInterval
	}
	if a.auditInterval == 0 {
		a.auditInterval = DefaultLeakAuditInterval
	}

	var errs *multierror.Error
	for _, def := range cfg.Pools {
		p, err := newBlockPool(def.withDefaults())
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		a.pools[def.Name] = p
		a.order = append(a.order, def.Name)
	}
	if err := errs.ErrorOrNil(); err != nil {
		// Construction is all-or-nothing: release whatever was built.
		for _, name := range a.order {
			_ = a.pools[name].teardown()
		}
		return nil, err
	}
	return a, nil
}

// Allocate reserves size bytes from the named pool at the pool's default
// alignment and returns a Handle to the backing storage.
func (a *Allocator) Allocate(poolName string, size int64) (*Handle, error) {
	return a.AllocateAligned(poolName, size, 0)
}

// AllocateAligned reserves size bytes from the named pool with the byte
// offset rounded up to alignment (0 means the pool default).
//
// The free set is searched for the lowest-addressed contiguous run of
// ceil(size/blockSize) blocks. If no run exists, the pool is garbage
// collected once and the search retried exactly once; a second miss fails
// with *OutOfMemoryError. No state is mutated on any failure path.
func (a *Allocator) AllocateAligned(poolName string, size, alignment int64) (*Handle, error) {
	p, ok := a.pools[poolName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPool, poolName)
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, size)
	}
	if alignment <= 0 {
		alignment = p.alignment
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	blocks := p.blocksNeeded(size)
	start := p.free.findRun(blocks)
	if start < 0 {
		// Contention fallback: one GC pass, then one retry.
		if reclaimed := a.collectLocked(p, a.now()); reclaimed > 0 {
			a.log.WithFields(logrus.Fields{
				"pool":      p.name,
				"reclaimed": reclaimed,
			}).Debug("garbage collection freed space under contention")
		}
		start = p.free.findRun(blocks)
	}
	if start < 0 {
		return nil, &OutOfMemoryError{
			Pool:       p.name,
			Requested:  size,
			LargestRun: p.free.largestRun(),
		}
	}

	offset := alignUp(int64(start)*p.blockSize, alignment)
	if offset+size > int64(start+blocks)*p.blockSize {
		// Padding pushed the request past its run. Fail loudly instead of
		// silently widening the reservation.
		return nil, &AlignmentOverflowError{Pool: p.name, Requested: size, Alignment: alignment}
	}

	rec := &Allocation{
		ID:         uuid.NewString(),
		Pool:       p.name,
		StartBlock: start,
		BlockCount: blocks,
		Offset:     offset,
		Size:       size,
		Alignment:  alignment,
		CreatedAt:  a.now(),
	}

	p.free.reserve(start, blocks)
	p.live[rec.ID] = rec
	p.counters.AllocCount++
	p.counters.BytesInUse += size
	if p.counters.BytesInUse > p.counters.PeakBytes {
		p.counters.PeakBytes = p.counters.BytesInUse
	}
	a.table.insert(rec)
	a.metrics.recordAlloc(rec)

	return &Handle{
		id:         rec.ID,
		pool:       p,
		offset:     offset,
		size:       size,
		generation: p.generation,
	}, nil
}

// Deallocate releases the allocation with the given id and reports whether
// anything was freed. An unknown id — double free, stale id, caller bug —
// is tolerated: it logs a warning and returns false, never an error.
func (a *Allocator) Deallocate(id AllocationID) bool {
	rec := a.table.lookup(id)
	if rec == nil {
		a.log.WithFields(logrus.Fields{
			"allocation": id,
		}).Warning("deallocate of unknown allocation id ignored")
		return false
	}

	p := a.pools[rec.Pool]
	p.mu.Lock()
	defer p.mu.Unlock()

	// Re-check under the pool lock: a concurrent Deallocate may have won.
	if _, live := p.live[id]; !live {
		a.log.WithFields(logrus.Fields{
			"allocation": id,
			"pool":       rec.Pool,
		}).Warning("deallocate of already-freed allocation id ignored")
		return false
	}

	a.freeLocked(p, rec, false)
	return true
}

// freeLocked returns rec's blocks to the free set and unwinds all
// bookkeeping. Caller holds p.mu. gc marks the free as a GC reclamation
// rather than an explicit deallocation.
func (a *Allocator) freeLocked(p *blockPool, rec *Allocation, gc bool) {
	p.free.release(rec.StartBlock, rec.BlockCount)
	delete(p.live, rec.ID)
	p.counters.BytesInUse -= rec.Size
	if gc {
		p.counters.GCFrees++
	} else {
		p.counters.DeallocCount++
	}
	a.table.remove(rec.ID)
	a.metrics.recordFree(rec)
}

// Pools returns the pool names in definition order.
func (a *Allocator) Pools() []string {
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}

// Close tears down every pool and returns their storage to the OS. All
// outstanding allocations and Handles are destroyed with their pools.
func (a *Allocator) Close() error {
	if a.closed {
		return ErrClosed
	}
	a.closed = true

	var errs *multierror.Error
	for _, name := range a.order {
		a.table.removePool(name)
		if err := a.pools[name].teardown(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("pool: teardown %q: %w", name, err))
		}
	}
	return errs.ErrorOrNil()
}
