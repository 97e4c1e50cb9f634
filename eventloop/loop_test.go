package eventloop

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T) *Loop {
	t.Helper()
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go l.Run(ctx)
	return l
}

func TestDispatchRunsTask(t *testing.T) {
	l := startLoop(t)
	done := make(chan struct{})
	require.NoError(t, l.Dispatch(func() { close(done) }))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatched task never ran")
	}
}

func TestDispatchPreservesSubmissionOrder(t *testing.T) {
	l := startLoop(t)
	var got []int
	done := make(chan struct{})
	for i := 0; i < 100; i++ {
		i := i
		require.NoError(t, l.Dispatch(func() { got = append(got, i) }))
	}
	require.NoError(t, l.Dispatch(func() { close(done) }))
	<-done
	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestScheduleTimerFires(t *testing.T) {
	l := startLoop(t)
	fired := make(chan struct{})
	_, err := l.ScheduleTimer(10*time.Millisecond, func() { close(fired) })
	require.NoError(t, err)
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
}

func TestCancelTimerPreventsFiring(t *testing.T) {
	l := startLoop(t)
	var fired atomic.Bool
	id, err := l.ScheduleTimer(50*time.Millisecond, func() { fired.Store(true) })
	require.NoError(t, err)

	assert.True(t, l.CancelTimer(id))
	assert.False(t, l.CancelTimer(id), "second cancel must be a no-op")

	time.Sleep(120 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestCancelFromWithinTimerCallbackDoesNotDeadlock(t *testing.T) {
	l := startLoop(t)
	done := make(chan struct{})
	var id atomic.Uint64
	realID, err := l.ScheduleTimer(10*time.Millisecond, func() {
		// a fired timer has left the heap; self-cancel is the no-op case
		assert.False(t, l.CancelTimer(id.Load()))
		close(done)
	})
	require.NoError(t, err)
	id.Store(realID)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cancel from inside the callback deadlocked the loop")
	}
}

func TestTimeoutReflectsNextTimer(t *testing.T) {
	l := startLoop(t)
	assert.Equal(t, -1, l.Timeout())

	id, err := l.ScheduleTimer(time.Hour, func() {})
	require.NoError(t, err)
	assert.Greater(t, l.Timeout(), 0)

	l.CancelTimer(id)
	assert.Equal(t, -1, l.Timeout())
}

func TestStopDrainsQueuedTasks(t *testing.T) {
	l := New()
	ctx := context.Background()
	go l.Run(ctx)
	waitRunning(t, l)

	ran := make(chan struct{})
	require.NoError(t, l.Dispatch(func() { close(ran) }))

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, l.Stop(stopCtx))

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("queued task dropped by graceful stop")
	}
	assert.Equal(t, StateTerminated, l.State())
}

func TestDispatchAfterTerminationIsRejected(t *testing.T) {
	l := New()
	go l.Run(context.Background())
	waitRunning(t, l)

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, l.Stop(stopCtx))

	assert.ErrorIs(t, l.Dispatch(func() {}), ErrLoopTerminated)
}

func TestRunTwiceReturnsAlreadyRunning(t *testing.T) {
	l := startLoop(t)
	waitRunning(t, l)
	err := l.Run(context.Background())
	assert.ErrorIs(t, err, ErrLoopAlreadyRunning)
}

// waitRunning blocks until the loop goroutine has claimed the state
// machine, so tests exercising stop/restart paths don't race Run startup.
func waitRunning(t *testing.T, l *Loop) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for l.State() == StateIdle {
		if time.Now().After(deadline) {
			t.Fatal("loop never started")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPanickingTaskDoesNotKillLoop(t *testing.T) {
	l := startLoop(t)
	require.NoError(t, l.Dispatch(func() { panic("boom") }))
	done := make(chan struct{})
	require.NoError(t, l.Dispatch(func() { close(done) }))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop died after a panicking task")
	}
}
