package pool

import "sync"

// allocationTable maps allocation ids to their records, across all pools.
// The direct id index replaces the O(pools) scan the original design
// tolerated; lookups during deallocation are O(1).
type allocationTable struct {
	mu   sync.RWMutex
	byID map[AllocationID]*Allocation
}

func newAllocationTable() *allocationTable {
	return &allocationTable{byID: make(map[AllocationID]*Allocation)}
}

func (t *allocationTable) insert(rec *Allocation) {
	t.mu.Lock()
	t.byID[rec.ID] = rec
	t.mu.Unlock()
}

// lookup returns the record for id, or nil.
func (t *allocationTable) lookup(id AllocationID) *Allocation {
	t.mu.RLock()
	rec := t.byID[id]
	t.mu.RUnlock()
	return rec
}

func (t *allocationTable) remove(id AllocationID) {
	t.mu.Lock()
	delete(t.byID, id)
	t.mu.Unlock()
}

func (t *allocationTable) count() int {
	t.mu.RLock()
	n := len(t.byID)
	t.mu.RUnlock()
	return n
}

// removePool drops every record owned by the named pool. Used on teardown.
func (t *allocationTable) removePool(name string) {
	t.mu.Lock()
	for id, rec := range t.byID {
		if rec.Pool == name {
			delete(t.byID, id)
		}
	}
	t.mu.Unlock()
}
