package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_RunMaintenanceCycle_FirstCallRunsBoth(t *testing.T) {
	a := newTestAllocator(t, smallPool("scratch"))

	sum := a.RunMaintenanceCycle(time.Now())
	assert.True(t, sum.GCRan)
	assert.True(t, sum.AuditRan)
	assert.Zero(t, sum.Reclaimed)
	assert.Zero(t, sum.Leaks)
}

func Test_RunMaintenanceCycle_HonorsIntervals(t *testing.T) {
	a, err := New(Config{
		Pools:             []PoolDef{smallPool("scratch")},
		GCInterval:        5 * time.Minute,
		LeakAuditInterval: time.Hour,
		Logger:            quietLogger(),
	})
	require.NoError(t, err)
	defer a.Close()

	base := time.Now()
	a.RunMaintenanceCycle(base)

	// One minute later: nothing is due.
	sum := a.RunMaintenanceCycle(base.Add(time.Minute))
	assert.False(t, sum.GCRan)
	assert.False(t, sum.AuditRan)

	// Six minutes later: GC is due, the audit is not.
	sum = a.RunMaintenanceCycle(base.Add(6 * time.Minute))
	assert.True(t, sum.GCRan)
	assert.False(t, sum.AuditRan)

	// Over an hour later: both are due.
	sum = a.RunMaintenanceCycle(base.Add(61 * time.Minute))
	assert.True(t, sum.GCRan)
	assert.True(t, sum.AuditRan)
}

func Test_RunMaintenanceCycle_SweepsAllPools(t *testing.T) {
	a := newTestAllocator(t, smallPool("one"), smallPool("two"))

	h1, err := a.Allocate("one", 1024)
	require.NoError(t, err)
	h2, err := a.Allocate("two", 1024)
	require.NoError(t, err)
	backdate(a, h1.ID(), DefaultGCTTL+time.Minute)
	backdate(a, h2.ID(), DefaultGCTTL+time.Minute)

	sum := a.RunMaintenanceCycle(time.Now())
	assert.True(t, sum.GCRan)
	assert.Equal(t, 2, sum.Reclaimed)
	assert.Nil(t, a.table.lookup(h1.ID()))
	assert.Nil(t, a.table.lookup(h2.ID()))
}

func Test_Scheduler_DrivesMaintenance(t *testing.T) {
	a := newTestAllocator(t, smallPool("scratch"))

	h, err := a.Allocate("scratch", 1024)
	require.NoError(t, err)
	backdate(a, h.ID(), DefaultGCTTL+time.Minute)

	s := NewScheduler(a, 5*time.Millisecond)
	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		return a.table.lookup(h.ID()) == nil
	}, time.Second, 5*time.Millisecond, "scheduler should reclaim the expired allocation")
}

func Test_Scheduler_StopIsIdempotent(t *testing.T) {
	a := newTestAllocator(t, smallPool("scratch"))

	s := NewScheduler(a, time.Millisecond)
	s.Start()
	s.Stop()
	s.Stop() // second call must not panic or block

	unstarted := NewScheduler(a, time.Millisecond)
	unstarted.Stop() // no-op without Start
}
