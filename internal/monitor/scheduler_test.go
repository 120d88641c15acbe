package monitor

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msageha/cupswatch/internal/model"
)

// countingSpooler counts full refresh cycles by counting state queries.
type countingSpooler struct {
	fakeSpooler
	refreshes atomic.Int32
}

func (c *countingSpooler) QueueState() model.QueueState {
	c.refreshes.Add(1)
	return c.fakeSpooler.QueueState()
}

func waitRefreshes(t *testing.T, c *countingSpooler, n int32) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if c.refreshes.Load() >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("wanted %d refreshes, got %d", n, c.refreshes.Load())
}

func TestScheduler_TicksAtInterval(t *testing.T) {
	cs := &countingSpooler{}
	m := New(cs, nil, nil)

	m.SetInterval(20 * time.Millisecond)
	defer m.Stop()

	waitRefreshes(t, cs, 3)
}

func TestScheduler_StopPreventsFutureTicks(t *testing.T) {
	cs := &countingSpooler{}
	m := New(cs, nil, nil)

	m.SetInterval(20 * time.Millisecond)
	waitRefreshes(t, cs, 1)
	m.Stop()

	after := cs.refreshes.Load()
	time.Sleep(100 * time.Millisecond)
	// At most one tick could have been in flight when Stop was called.
	assert.LessOrEqual(t, cs.refreshes.Load(), after+1)
	assert.Equal(t, time.Duration(0), m.Interval())
}

func TestScheduler_NonPositiveIntervalMeansStopped(t *testing.T) {
	cs := &countingSpooler{}
	m := New(cs, nil, nil)

	m.SetInterval(0)
	m.SetInterval(-5 * time.Second)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, int32(0), cs.refreshes.Load())
	assert.Equal(t, time.Duration(0), m.Interval())
}

func TestScheduler_ReconfigureReplacesInterval(t *testing.T) {
	cs := &countingSpooler{}
	m := New(cs, nil, nil)

	// A long interval replaced by a short one must tick at the short
	// rate, not both.
	m.SetInterval(time.Hour)
	m.SetInterval(20 * time.Millisecond)
	defer m.Stop()

	waitRefreshes(t, cs, 2)
	assert.Equal(t, 20*time.Millisecond, m.Interval())
}

func TestScheduler_SlowRefreshDelaysNextTick(t *testing.T) {
	cs := &countingSpooler{}
	cs.delay = 50 * time.Millisecond
	m := New(cs, nil, nil)

	m.SetInterval(10 * time.Millisecond)
	defer m.Stop()

	waitRefreshes(t, cs, 2)
	// Each refresh issues two delayed spooler calls, so ticks cannot
	// keep the nominal 10ms pace; they must serialize, never overlap.
	assert.Equal(t, int32(1), cs.maxConcurrent.Load())
}

func TestScheduler_MutationDuringScheduledRefreshWaits(t *testing.T) {
	cs := &countingSpooler{}
	cs.delay = 20 * time.Millisecond
	m := New(cs, nil, nil)

	m.SetInterval(10 * time.Millisecond)
	defer m.Stop()
	waitRefreshes(t, cs, 1)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		require.NoError(t, m.CancelJob("HP-1"))
	}()
	wg.Wait()

	assert.Equal(t, int32(1), cs.maxConcurrent.Load(),
		"forced refresh must wait for the in-flight scheduled one")
}
