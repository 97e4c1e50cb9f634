// Package timers implements the setTimeout/setInterval/setImmediate
// family on top of the [eventloop.Loop] timer heap.
//
// Every callback is invoked with a Cancel continuation rather than
// relying on the caller remembering the id it was handed back; this
// mirrors the pattern the IPC layer uses elsewhere in this kernel of
// passing a completion/cancellation handle straight to the callback that
// needs it.
package timers

import (
	"sync"
	"time"

	"github.com/nativebridge/kernel/eventloop"
)

// Cancel stops further firings of the timer it belongs to. It is
// idempotent and may be called from within the timer's own callback.
type Cancel func() bool

// Table schedules and tracks timers for one [eventloop.Loop]. A kernel
// Core owns exactly one Table.
type Table struct {
	loop *eventloop.Loop

	mu      sync.Mutex
	handles map[uint64]*handle
	nextID  uint64
}

type handle struct {
	loopID   uint64
	interval bool
	period   time.Duration
	fn       func(Cancel)
	cancel   Cancel
}

// New creates a timer table bound to loop.
func New(loop *eventloop.Loop) *Table {
	return &Table{loop: loop, handles: make(map[uint64]*handle)}
}

// SetTimeout schedules fn to run once after delay.
func (t *Table) SetTimeout(delay time.Duration, fn func(Cancel)) uint64 {
	return t.schedule(delay, false, fn)
}

// SetInterval schedules fn to run every period until cancelled.
func (t *Table) SetInterval(period time.Duration, fn func(Cancel)) uint64 {
	return t.schedule(period, true, fn)
}

// SetImmediate schedules fn to run on the next tick, with no delay.
func (t *Table) SetImmediate(fn func(Cancel)) uint64 {
	return t.schedule(0, false, fn)
}

func (t *Table) schedule(delay time.Duration, interval bool, fn func(Cancel)) uint64 {
	t.mu.Lock()
	id := t.nextID + 1
	t.nextID = id
	h := &handle{interval: interval, period: delay, fn: fn}
	h.cancel = func() bool { return t.Clear(id) }
	t.handles[id] = h
	t.mu.Unlock()

	t.arm(id, h, delay)
	return id
}

func (t *Table) arm(id uint64, h *handle, delay time.Duration) {
	loopID, err := t.loop.ScheduleTimer(delay, func() {
		t.mu.Lock()
		cur, ok := t.handles[id]
		t.mu.Unlock()
		if !ok || cur != h {
			return
		}
		if h.interval {
			t.arm(id, h, h.period)
		} else {
			t.mu.Lock()
			delete(t.handles, id)
			t.mu.Unlock()
		}
		h.fn(h.cancel)
	})
	if err != nil {
		return
	}
	t.mu.Lock()
	if cur, ok := t.handles[id]; ok && cur == h {
		h.loopID = loopID
	}
	t.mu.Unlock()
}

// Clear cancels the timer with the given id. Idempotent: returns false
// if id is unknown or already cancelled.
func (t *Table) Clear(id uint64) bool {
	t.mu.Lock()
	h, ok := t.handles[id]
	if ok {
		delete(t.handles, id)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	t.loop.CancelTimer(h.loopID)
	return true
}

// Count returns the number of live (not yet fired-and-cleaned, not
// cancelled) timers, used by the diagnostics snapshot.
func (t *Table) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.handles)
}

// StopAll cancels every outstanding timer; called from Core's shutdown
// sequence.
func (t *Table) StopAll() {
	t.mu.Lock()
	handles := make([]*handle, 0, len(t.handles))
	for _, h := range t.handles {
		handles = append(handles, h)
	}
	t.handles = make(map[uint64]*handle)
	t.mu.Unlock()
	for _, h := range handles {
		t.loop.CancelTimer(h.loopID)
	}
}
