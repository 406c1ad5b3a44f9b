package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleOnceFires(t *testing.T) {
	s := New()
	defer s.Stop()

	var fired atomic.Int32
	s.ScheduleOnce("k1", 10*time.Millisecond, func() {
		fired.Add(1)
	})
	assert.Equal(t, 1, s.PendingCount())

	require.Eventually(t, func() bool {
		return fired.Load() == 1
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, s.PendingCount())
}

func TestScheduleOnceRefusesDuplicateKey(t *testing.T) {
	s := New()
	defer s.Stop()

	var fired atomic.Int32
	s.ScheduleOnce("dup", 20*time.Millisecond, func() { fired.Add(1) })
	s.ScheduleOnce("dup", 20*time.Millisecond, func() { fired.Add(1) })
	assert.Equal(t, 1, s.PendingCount())

	require.Eventually(t, func() bool {
		return s.PendingCount() == 0
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestKeyReusableAfterFiring(t *testing.T) {
	s := New()
	defer s.Stop()

	var fired atomic.Int32
	s.ScheduleOnce("k", time.Millisecond, func() { fired.Add(1) })
	require.Eventually(t, func() bool {
		return fired.Load() == 1
	}, time.Second, time.Millisecond)

	s.ScheduleOnce("k", time.Millisecond, func() { fired.Add(1) })
	require.Eventually(t, func() bool {
		return fired.Load() == 2
	}, time.Second, time.Millisecond)
}

func TestStopCancelsPendingTimers(t *testing.T) {
	s := New()

	var fired atomic.Int32
	s.ScheduleOnce("never", time.Hour, func() { fired.Add(1) })
	require.Equal(t, 1, s.PendingCount())

	s.Stop()
	assert.Zero(t, s.PendingCount())
	assert.Zero(t, fired.Load())
}

func TestStopWaitsForRunningTask(t *testing.T) {
	s := New()

	started := make(chan struct{})
	var done atomic.Bool
	s.ScheduleOnce("slow", time.Millisecond, func() {
		close(started)
		time.Sleep(50 * time.Millisecond)
		done.Store(true)
	})

	<-started
	s.Stop()
	assert.True(t, done.Load(), "Stop must wait for an in-flight task")
}

func TestTaskPanicIsRecovered(t *testing.T) {
	s := New()

	s.ScheduleOnce("boom", time.Millisecond, func() {
		panic("task failure")
	})

	// Stop blocks until the task finished; a leaked panic would fail the test
	// process outright.
	require.Eventually(t, func() bool {
		return s.PendingCount() == 0
	}, time.Second, time.Millisecond)
	s.Stop()
}

func TestAddRecurring(t *testing.T) {
	s := New()

	var fired atomic.Int32
	require.NoError(t, s.AddRecurring(20*time.Millisecond, func() { fired.Add(1) }))
	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		return fired.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}
