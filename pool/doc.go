// Package pool implements a pooled block allocator over a fixed address space.
//
// # Overview
//
// The allocator partitions memory into named, fixed-footprint pools. Each pool
// is a contiguous off-heap region divided into fixed-size blocks; allocations
// are served from the lowest-addressed contiguous run of free blocks large
// enough for the request. Reclamation happens three ways: explicit
// Deallocate, age-based garbage collection, and pool teardown.
//
// # Allocator
//
// The core type is Allocator, constructed once from a Config:
//
//	alloc, err := pool.New(pool.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer alloc.Close()
//
//	h, err := alloc.Allocate("statistical", 3000)
//	if err != nil {
//	    return err
//	}
//
//	buf, err := h.Bytes()
//	// ... write and read scratch data ...
//
//	alloc.Deallocate(h.ID())
//
// There is no package-level registry; every Allocator owns its pools and can
// be instantiated independently (one per test, for example).
//
// # Pools
//
// Pools are defined statically at construction time and never resized.
// A definition names the pool and fixes its total size, block size, and
// default alignment:
//
//	pool.PoolDef{Name: "statistical", Size: 2 << 20, BlockSize: 1024, Alignment: 8}
//
// Bad definitions fail construction with *ConfigError; per-call failures
// (unknown pool, non-positive size, no contiguous run) are returned to the
// caller and never retried internally, except for the single
// garbage-collect-then-retry step built into Allocate.
//
// # Reclamation
//
// Each pool carries a GC TTL (default 5 minutes) and a leak-age threshold
// (default 1 hour). GarbageCollect frees live allocations older than the
// TTL; AuditLeaks only reports allocations older than the leak age. The two
// thresholds are independent, and GC can be disabled per pool, in which case
// the leak audit is the only signal for forgotten allocations.
//
// Background maintenance is driven externally: RunMaintenanceCycle is a pure
// function of the supplied clock, and Scheduler is an optional ticker-driven
// wrapper for hosts that want the cycle run automatically.
//
// # Defragmentation
//
// Defragment relocates a pool's live allocations to the low end of its
// address range, coalescing all free space into one trailing run. Ids,
// sizes, and byte contents are preserved; physical offsets are not. Every
// Handle issued before the call becomes stale — Bytes returns ErrStaleHandle
// — and must be reissued by the caller. Defragmentation never runs
// automatically.
//
// # Thread safety
//
// Each pool is guarded by its own mutex covering the free set, the live
// allocation map, and the counters as one critical section; unrelated pools
// never serialize against each other. Handles are single-owner: two
// goroutines must not share one Handle.
package pool
