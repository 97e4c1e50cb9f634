package timers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nativebridge/kernel/eventloop"
)

func newTestTable(t *testing.T) *Table {
	t.Helper()
	loop := eventloop.New()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go loop.Run(ctx)
	return New(loop)
}

func TestSetTimeoutFiresOnce(t *testing.T) {
	tbl := newTestTable(t)
	var fires atomic.Int32
	tbl.SetTimeout(10*time.Millisecond, func(Cancel) { fires.Add(1) })

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), fires.Load())
	assert.Equal(t, 0, tbl.Count(), "fired timeout must leave the table")
}

func TestClearBeforeFirePreventsCallback(t *testing.T) {
	tbl := newTestTable(t)
	var fired atomic.Bool
	id := tbl.SetTimeout(50*time.Millisecond, func(Cancel) { fired.Store(true) })

	require.True(t, tbl.Clear(id))
	assert.False(t, tbl.Clear(id), "second clear must return false")

	time.Sleep(120 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestIntervalRepeatsUntilCancelled(t *testing.T) {
	tbl := newTestTable(t)
	var fires atomic.Int32
	done := make(chan struct{})
	tbl.SetInterval(10*time.Millisecond, func(cancel Cancel) {
		if fires.Add(1) == 3 {
			cancel()
			close(done)
		}
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("interval never reached three firings")
	}
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(3), fires.Load(), "no firing may follow cancel")
	assert.Equal(t, 0, tbl.Count())
}

func TestCancelContinuationIsIdempotent(t *testing.T) {
	tbl := newTestTable(t)
	done := make(chan struct{})
	tbl.SetInterval(10*time.Millisecond, func(cancel Cancel) {
		assert.True(t, cancel())
		assert.False(t, cancel())
		close(done)
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("interval never fired")
	}
}

func TestSetImmediateRunsPromptly(t *testing.T) {
	tbl := newTestTable(t)
	done := make(chan struct{})
	tbl.SetImmediate(func(Cancel) { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("immediate never ran")
	}
}

func TestStopAllCancelsEverything(t *testing.T) {
	tbl := newTestTable(t)
	var fired atomic.Bool
	tbl.SetTimeout(50*time.Millisecond, func(Cancel) { fired.Store(true) })
	tbl.SetInterval(50*time.Millisecond, func(Cancel) { fired.Store(true) })

	tbl.StopAll()
	assert.Equal(t, 0, tbl.Count())

	time.Sleep(120 * time.Millisecond)
	assert.False(t, fired.Load())
}
