package pool

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_GarbageCollect_FreesExpired(t *testing.T) {
	a := newTestAllocator(t, smallPool("scratch"))

	old, err := a.Allocate("scratch", 1024)
	require.NoError(t, err)
	fresh, err := a.Allocate("scratch", 1024)
	require.NoError(t, err)

	backdate(a, old.ID(), DefaultGCTTL+time.Minute)

	n, err := a.GarbageCollect("scratch")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Nil(t, a.table.lookup(old.ID()), "expired allocation must be reclaimed")
	assert.NotNil(t, a.table.lookup(fresh.ID()), "young allocation must survive")

	stats := a.Stats()
	assert.EqualValues(t, 1, stats.Pools[0].GCFrees)
	assert.EqualValues(t, 0, stats.Pools[0].DeallocCount,
		"GC reclamation is counted separately from explicit deallocation")
	requireInvariant(t, a, "scratch")
}

func Test_GarbageCollect_UnknownPool(t *testing.T) {
	a := newTestAllocator(t, smallPool("scratch"))
	_, err := a.GarbageCollect("nope")
	require.ErrorIs(t, err, ErrUnknownPool)
}

func Test_GarbageCollect_DisabledPoolUntouched(t *testing.T) {
	def := smallPool("pinned")
	def.GCDisabled = true
	a := newTestAllocator(t, def)

	h, err := a.Allocate("pinned", 1024)
	require.NoError(t, err)
	backdate(a, h.ID(), 24*time.Hour)

	n, err := a.GarbageCollect("pinned")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NotNil(t, a.table.lookup(h.ID()))
}

func Test_Allocate_GCRetryReclaimsSpace(t *testing.T) {
	a := newTestAllocator(t, smallPool("scratch"))

	// Fill the pool, then age everything past the TTL.
	var ids []AllocationID
	for i := 0; i < 8; i++ {
		h, err := a.Allocate("scratch", 1024)
		require.NoError(t, err)
		ids = append(ids, h.ID())
	}
	for _, id := range ids {
		backdate(a, id, DefaultGCTTL+time.Minute)
	}

	// The contiguous search fails, the inline GC pass frees the expired
	// allocations, and the single retry succeeds.
	h, err := a.Allocate("scratch", 4096)
	require.NoError(t, err)
	assert.EqualValues(t, 0, h.Offset())
	requireInvariant(t, a, "scratch")
}

func Test_AuditLeaks_ReportsWithoutFreeing(t *testing.T) {
	def := smallPool("pinned")
	def.GCDisabled = true
	a := newTestAllocator(t, def)

	log, hook := logtest.NewNullLogger()
	a.log = log

	leaked, err := a.Allocate("pinned", 2048)
	require.NoError(t, err)
	fresh, err := a.Allocate("pinned", 1024)
	require.NoError(t, err)
	backdate(a, leaked.ID(), DefaultLeakAge+time.Minute)

	leaks := a.AuditLeaks()
	require.Len(t, leaks, 1)
	assert.Equal(t, leaked.ID(), leaks[0].ID)
	assert.Equal(t, "pinned", leaks[0].Pool)
	assert.EqualValues(t, 2048, leaks[0].Size)
	assert.Greater(t, leaks[0].Age, DefaultLeakAge)

	// Audit logs a warning but frees nothing.
	require.NotEmpty(t, hook.Entries)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.NotNil(t, a.table.lookup(leaked.ID()))
	assert.NotNil(t, a.table.lookup(fresh.ID()))
	requireInvariant(t, a, "pinned")
}

func Test_AuditLeaks_QuietWhenYoung(t *testing.T) {
	a := newTestAllocator(t, smallPool("scratch"))

	_, err := a.Allocate("scratch", 1024)
	require.NoError(t, err)

	assert.Empty(t, a.AuditLeaks())
}

func Test_Deallocate_UnknownIDLogsWarning(t *testing.T) {
	a := newTestAllocator(t, smallPool("scratch"))
	log, hook := logtest.NewNullLogger()
	a.log = log

	assert.False(t, a.Deallocate("bogus"))
	require.NotEmpty(t, hook.Entries)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "bogus", hook.LastEntry().Data["allocation"])
}
