package pool

import (
	"fmt"
	"sync"
	"time"

	"github.com/joshuapare/poolkit/internal/membuf"
)

// poolCounters holds cumulative per-pool accounting.
type poolCounters struct {
	AllocCount   uint64 // successful Allocate calls
	DeallocCount uint64 // explicit Deallocate calls
	GCFrees      uint64 // allocations reclaimed by garbage collection
	BytesInUse   int64  // current live bytes (requested sizes)
	PeakBytes    int64  // high-water mark of BytesInUse
}

// blockPool is one named arena: fixed backing storage, block-level free/used
// state, live allocation records, and counters. All fields behind mu form a
// single critical section; the allocator takes mu for every mutation so no
// caller can observe partial state.
type blockPool struct {
	mu sync.Mutex

	name       string
	size       int64 // total bytes
	blockSize  int64
	blockCount int
	alignment  int64 // default byte alignment

	gcTTL      time.Duration
	gcDisabled bool
	leakAge    time.Duration

	storage []byte       // backing bytes, off the Go heap where supported
	release func() error // returns storage to the OS on teardown

	free       *freeSet
	live       map[AllocationID]*Allocation
	counters   poolCounters
	generation uint64 // bumped by Defragment; stale Handles fail their check
}

// newBlockPool builds a pool from a validated definition. All blocks start
// free. Definition errors surface as *ConfigError and abort construction.
func newBlockPool(def PoolDef) (*blockPool, error) {
	if def.BlockSize <= 0 {
		return nil, &ConfigError{Pool: def.Name, Reason: "block size must be positive"}
	}
	if def.Size < def.BlockSize {
		return nil, &ConfigError{Pool: def.Name,
			Reason: fmt.Sprintf("total size %d is smaller than one block (%d)", def.Size, def.BlockSize)}
	}
	if def.Alignment <= 0 {
		return nil, &ConfigError{Pool: def.Name, Reason: "alignment must be positive"}
	}

	blockCount := int(def.Size / def.BlockSize)
	storage, release, err := membuf.Alloc(int(def.Size))
	if err != nil {
		return nil, fmt.Errorf("pool: %q: backing storage: %w", def.Name, err)
	}

	return &blockPool{
		name:       def.Name,
		size:       def.Size,
		blockSize:  def.BlockSize,
		blockCount: blockCount,
		alignment:  def.Alignment,
		gcTTL:      def.GCTTL,
		gcDisabled: def.GCDisabled,
		leakAge:    def.LeakAge,
		storage:    storage,
		release:    release,
		free:       newFreeSet(blockCount),
		live:       make(map[AllocationID]*Allocation),
	}, nil
}

// blocksNeeded returns ceil(size / blockSize).
func (p *blockPool) blocksNeeded(size int64) int {
	return int((size + p.blockSize - 1) / p.blockSize)
}

// usedBlocks sums blocksNeeded over the live allocations.
// Caller holds mu.
func (p *blockPool) usedBlocks() int {
	total := 0
	for _, rec := range p.live {
		total += rec.BlockCount
	}
	return total
}

// checkInvariant verifies freeBlocks + used blocks == blockCount, and that
// the incremental free counter matches the bit vector. Test hook.
// Caller holds mu.
func (p *blockPool) checkInvariant() error {
	if got := p.free.popcount(); got != p.free.freeCount() {
		return fmt.Errorf("pool: %q: free counter %d disagrees with bit vector %d",
			p.name, p.free.freeCount(), got)
	}
	if p.free.freeCount()+p.usedBlocks() != p.blockCount {
		return fmt.Errorf("pool: %q: free %d + used %d != blocks %d",
			p.name, p.free.freeCount(), p.usedBlocks(), p.blockCount)
	}
	return nil
}

// teardown releases the backing storage. Live allocations are destroyed
// with the pool.
func (p *blockPool) teardown() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.live = make(map[AllocationID]*Allocation)
	p.free.reset()
	p.storage = nil
	if p.release == nil {
		return nil
	}
	release := p.release
	p.release = nil
	return release()
}

// alignUp rounds off up to the nearest multiple of align. align is positive.
func alignUp(off, align int64) int64 {
	return (off + align - 1) / align * align
}
