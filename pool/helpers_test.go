package pool

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// quietLogger discards output so expected warnings don't pollute test logs.
func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// newTestAllocator builds an allocator over the given pools with logging
// discarded. Callers override a.now for age-based tests.
func newTestAllocator(t *testing.T, defs ...PoolDef) *Allocator {
	t.Helper()
	a, err := New(Config{
		Pools:             defs,
		GCInterval:        DefaultGCInterval,
		LeakAuditInterval: DefaultLeakAuditInterval,
		HistorySize:       32,
		Logger:            quietLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

// smallPool is an 8-block pool: 8 x 1KiB blocks, 8-byte alignment.
func smallPool(name string) PoolDef {
	return PoolDef{Name: name, Size: 8 * 1024, BlockSize: 1024, Alignment: 8}
}

// requireInvariant asserts free + used == blockCount for the named pool.
func requireInvariant(t *testing.T, a *Allocator, pool string) {
	t.Helper()
	p := a.pools[pool]
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NoError(t, p.checkInvariant())
}

// freeSetSnapshot captures the raw free bit vector for exact comparison.
func freeSetSnapshot(a *Allocator, pool string) []uint64 {
	p := a.pools[pool]
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.free.snapshot()
}

// backdate rewrites an allocation's creation time, simulating age.
func backdate(a *Allocator, id AllocationID, age time.Duration) {
	rec := a.table.lookup(id)
	p := a.pools[rec.Pool]
	p.mu.Lock()
	rec.CreatedAt = rec.CreatedAt.Add(-age)
	p.mu.Unlock()
}
