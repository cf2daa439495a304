package conversation

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdleTimerFires(t *testing.T) {
	t.Parallel()

	fired := make(chan int64, 1)
	it := NewIdleTimer(20*time.Millisecond, func(id int64) { fired <- id })
	defer it.Close()

	it.Touch(7)
	select {
	case id := <-fired:
		assert.Equal(t, int64(7), id)
	case <-time.After(time.Second):
		t.Fatal("idle timer did not fire")
	}
	assert.Equal(t, 0, it.Pending())
}

func TestIdleTimerRearmFiresOnce(t *testing.T) {
	t.Parallel()

	var count atomic.Int32
	it := NewIdleTimer(30*time.Millisecond, func(int64) { count.Add(1) })
	defer it.Close()

	for i := 0; i < 5; i++ {
		it.Touch(1)
		time.Sleep(5 * time.Millisecond)
	}
	require.Eventually(t, func() bool { return count.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), count.Load())
}

func TestIdleTimerStopAndTrack(t *testing.T) {
	t.Parallel()

	var count atomic.Int32
	it := NewIdleTimer(20*time.Millisecond, func(int64) { count.Add(1) })
	defer it.Close()

	it.Track(1, PhaseFriends)
	it.Track(2, PhaseTime)
	assert.Equal(t, 2, it.Pending())
	it.Track(1, PhaseEnded)
	it.Stop(2)
	assert.Equal(t, 0, it.Pending())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), count.Load())
}

func TestIdleTimerIgnoresTouchAfterClose(t *testing.T) {
	t.Parallel()

	it := NewIdleTimer(time.Millisecond, func(int64) { t.Error("must not fire after close") })
	it.Close()
	it.Touch(1)
	assert.Equal(t, 0, it.Pending())
	time.Sleep(10 * time.Millisecond)
}
