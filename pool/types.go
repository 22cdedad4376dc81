package pool

import "time"

// AllocationID identifies one live allocation, unique across all pools.
type AllocationID = string

// Allocation is the bookkeeping record for one reserved block run.
type Allocation struct {
	ID         AllocationID // globally unique id
	Pool       string       // owning pool name
	StartBlock int          // first reserved block index
	BlockCount int          // number of blocks reserved
	Offset     int64        // byte offset into pool storage (alignment applied)
	Size       int64        // requested size in bytes
	Alignment  int64        // alignment the offset was rounded to
	CreatedAt  time.Time    // allocation time, drives GC and leak auditing
}

// endBlock returns the first block index past the reserved run.
func (a *Allocation) endBlock() int { return a.StartBlock + a.BlockCount }

// Handle is the caller-facing reference to an allocation's backing bytes.
//
// A Handle is a borrowed view into pool storage, valid until the allocation
// is deallocated or its pool is defragmented. It carries the pool generation
// at issue time; Bytes revalidates it on every call.
type Handle struct {
	id         AllocationID
	pool       *blockPool
	offset     int64
	size       int64
	generation uint64
}

// ID returns the allocation id, the token Deallocate accepts.
func (h *Handle) ID() AllocationID { return h.id }

// Pool returns the owning pool name.
func (h *Handle) Pool() string { return h.pool.name }

// Offset returns the byte offset of the allocation within its pool.
// It reflects the placement at issue time and goes stale on defragment.
func (h *Handle) Offset() int64 { return h.offset }

// Size returns the requested allocation size in bytes.
func (h *Handle) Size() int64 { return h.size }

// Bytes returns the backing storage for this allocation.
//
// It fails with ErrStaleHandle if the allocation has been freed or the pool
// has been defragmented since the Handle was issued. The returned slice must
// not be retained across a Deallocate or Defragment call.
func (h *Handle) Bytes() ([]byte, error) {
	h.pool.mu.Lock()
	defer h.pool.mu.Unlock()

	if h.generation != h.pool.generation {
		return nil, ErrStaleHandle
	}
	if _, ok := h.pool.live[h.id]; !ok {
		return nil, ErrStaleHandle
	}
	return h.pool.storage[h.offset : h.offset+h.size : h.offset+h.size], nil
}
