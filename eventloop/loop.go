package eventloop

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nativebridge/kernel/kernellog"
)

// Standard errors returned by Loop methods.
var (
	// ErrLoopAlreadyRunning is returned when Run is called on a loop that
	// is already running.
	ErrLoopAlreadyRunning = errors.New("eventloop: loop is already running")

	// ErrLoopTerminated is returned when operations are attempted on a
	// loop that has finished shutting down.
	ErrLoopTerminated = errors.New("eventloop: loop has been terminated")
)

// Task is a zero-argument unit of work executed on the loop goroutine.
type Task func()

// timerEntry is one scheduled callback in the timer heap.
type timerEntry struct {
	id        uint64
	when      time.Time
	task      Task
	cancelled bool
	index     int // heap index, maintained by container/heap
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int           { return len(h) }
func (h timerHeap) Less(i, j int) bool { return h[i].when.Before(h[j].when) }
func (h timerHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *timerHeap) Push(x any)        { e := x.(*timerEntry); e.index = len(*h); *h = append(*h, e) }
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Loop is the kernel's single cooperative event loop. There is exactly
// one Loop per [kernel.Core]; modules use it to run their asynchronous
// callbacks and timer tasks on one goroutine.
type Loop struct {
	state *atomicState

	externalMu sync.Mutex
	external   []Task
	externalSp []Task

	internalMu sync.Mutex
	internal   []Task
	internalSp []Task

	// timerMu guards the heap and the id index. Timer callbacks run on
	// the loop goroutine with timerMu released, so a callback may freely
	// schedule or cancel timers (including its own).
	timerMu     sync.Mutex
	timers      timerHeap
	timerByID   map[uint64]*timerEntry
	nextTimerID uint64

	wake chan struct{}
	done chan struct{}

	stopOnce sync.Once
}

// loopCtxKey marks the context passed into Run, so code running inside a
// task can recover its owning Loop from the context if it needs to.
type loopCtxKey struct{}

// New creates a new, unstarted event loop.
func New() *Loop {
	return &Loop{
		state:     newAtomicState(),
		timerByID: make(map[uint64]*timerEntry),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// Run blocks the calling goroutine, executing the loop until Stop/Close
// is called or ctx is cancelled. Use `go loop.Run(ctx)` to run it in the
// background.
func (l *Loop) Run(ctx context.Context) error {
	if !l.state.TryTransition(StateIdle, StateRunning) {
		if l.state.Load() == StateTerminated {
			return ErrLoopTerminated
		}
		return ErrLoopAlreadyRunning
	}

	ctx = context.WithValue(ctx, loopCtxKey{}, l)
	defer close(l.done)

	for {
		select {
		case <-ctx.Done():
			l.beginShutdown()
			l.drain()
			return ctx.Err()
		default:
		}

		if l.state.Load() >= StateTerminating {
			l.drain()
			return nil
		}

		l.tick(ctx)
	}
}

func (l *Loop) beginShutdown() {
	for {
		cur := l.state.Load()
		if cur >= StateTerminating {
			return
		}
		if l.state.TryTransition(cur, StateTerminating) {
			return
		}
	}
}

// tick runs one iteration: expired timers, the internal queue, a budgeted
// slice of the external queue, then blocks (bounded by the next timer
// deadline) waiting for more work.
func (l *Loop) tick(ctx context.Context) {
	l.runTimers()
	l.drainInternal()
	l.drainExternal()

	if l.state.Load() != StateRunning {
		return
	}
	l.poll(ctx)
}

func (l *Loop) drainInternal() {
	for {
		l.internalMu.Lock()
		tasks := l.internal
		l.internal = l.internalSp
		l.internalMu.Unlock()
		if len(tasks) == 0 {
			l.internalSp = tasks[:0]
			return
		}
		for i, t := range tasks {
			l.safeExecute(t)
			tasks[i] = nil
		}
		l.internalSp = tasks[:0]
	}
}

const externalBudgetPerTick = 1024

func (l *Loop) drainExternal() {
	l.externalMu.Lock()
	tasks := l.external
	l.external = l.externalSp
	l.externalMu.Unlock()

	n := len(tasks)
	if n > externalBudgetPerTick {
		n = externalBudgetPerTick
	}
	for i := 0; i < n; i++ {
		l.safeExecute(tasks[i])
		tasks[i] = nil
	}
	l.externalSp = tasks[:0]

	if len(tasks) > n {
		// Overflow: requeue the remainder ahead of newly-submitted tasks.
		l.externalMu.Lock()
		l.external = append(append([]Task{}, tasks[n:]...), l.external...)
		l.externalMu.Unlock()
	}
}

func (l *Loop) runTimers() {
	now := time.Now()
	for {
		l.timerMu.Lock()
		if len(l.timers) == 0 || l.timers[0].when.After(now) {
			l.timerMu.Unlock()
			return
		}
		next := heap.Pop(&l.timers).(*timerEntry)
		delete(l.timerByID, next.id)
		l.timerMu.Unlock()

		if next.cancelled || next.task == nil {
			continue
		}
		l.safeExecute(next.task)
	}
}

// poll blocks the loop goroutine until new work arrives or the next
// timer is due; the wait is always capped at the nearest timer deadline.
func (l *Loop) poll(ctx context.Context) {
	if !l.state.TryTransition(StateRunning, StateSleeping) {
		return
	}
	defer l.state.TryTransition(StateSleeping, StateRunning)

	if l.hasPendingWork() {
		return
	}

	timeout := l.nextTimeout()
	var timer *time.Timer
	var timerC <-chan time.Time
	if timeout >= 0 {
		timer = time.NewTimer(time.Duration(timeout) * time.Millisecond)
		timerC = timer.C
	}

	select {
	case <-l.wake:
	case <-timerC:
	case <-ctx.Done():
	}
	if timer != nil {
		timer.Stop()
	}
}

func (l *Loop) hasPendingWork() bool {
	l.externalMu.Lock()
	extLen := len(l.external)
	l.externalMu.Unlock()
	if extLen > 0 {
		return true
	}
	l.internalMu.Lock()
	intLen := len(l.internal)
	l.internalMu.Unlock()
	return intLen > 0
}

// nextTimeout returns the number of milliseconds until the next timer
// fires, or -1 if there is none (meaning "block indefinitely for
// dispatch").
func (l *Loop) nextTimeout() int {
	l.timerMu.Lock()
	defer l.timerMu.Unlock()
	if len(l.timers) == 0 {
		return -1
	}
	d := time.Until(l.timers[0].when)
	if d <= 0 {
		return 0
	}
	return int(d.Milliseconds()) + 1
}

// Timeout returns the next backend timeout in milliseconds, or -1 if no
// timer is pending. Intended for host UI loops that integrate this
// reactor into their own polling.
func (l *Loop) Timeout() int { return l.nextTimeout() }

// Sleep yields the loop for at least ms milliseconds, clamped to the next
// timer deadline if one is sooner. It is the synchronous counterpart of
// poll, for embedders driving their own loop iteration.
func (l *Loop) Sleep(ms int) {
	if ms <= 0 {
		return
	}
	if next := l.nextTimeout(); next >= 0 && next < ms {
		ms = next
	}
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

// Dispatch enqueues fn for execution on the loop goroutine. Safe to call
// from any goroutine; wait-free for the caller. fn is dropped if called
// after Stop/Close.
func (l *Loop) Dispatch(fn Task) error {
	if fn == nil {
		return nil
	}
	l.externalMu.Lock()
	if l.state.Load() == StateTerminated {
		l.externalMu.Unlock()
		return ErrLoopTerminated
	}
	l.external = append(l.external, fn)
	l.externalMu.Unlock()
	l.wakeUp()
	return nil
}

// DispatchInternal enqueues fn onto the priority queue drained before the
// external queue each tick. Modules use this for continuations of work
// they already started (e.g. reactor completions), so in-flight
// operations are not starved by a burst of freshly-submitted external
// work.
func (l *Loop) DispatchInternal(fn Task) error {
	if fn == nil {
		return nil
	}
	l.internalMu.Lock()
	if l.state.Load() == StateTerminated {
		l.internalMu.Unlock()
		return ErrLoopTerminated
	}
	l.internal = append(l.internal, fn)
	l.internalMu.Unlock()
	l.wakeUp()
	return nil
}

func (l *Loop) wakeUp() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// ScheduleTimer installs a timer entry and returns its id. Safe to call
// from any goroutine, including a timer callback rescheduling itself.
func (l *Loop) ScheduleTimer(delay time.Duration, fn Task) (uint64, error) {
	if l.state.Load() == StateTerminated {
		return 0, ErrLoopTerminated
	}

	l.timerMu.Lock()
	l.nextTimerID++
	id := l.nextTimerID
	entry := &timerEntry{id: id, when: time.Now().Add(delay), task: fn}
	l.timerByID[id] = entry
	heap.Push(&l.timers, entry)
	l.timerMu.Unlock()

	l.wakeUp()
	return id, nil
}

// CancelTimer removes a timer from the heap. Idempotent: cancelling an
// unknown, fired, or already-cancelled id returns false. Synchronous and
// safe to call from within a timer's own callback; a fired timer has
// already left the heap by the time its task runs, so self-cancellation
// is the unknown-id no-op case.
func (l *Loop) CancelTimer(id uint64) bool {
	l.timerMu.Lock()
	defer l.timerMu.Unlock()
	entry, ok := l.timerByID[id]
	if !ok || entry.cancelled {
		return false
	}
	entry.cancelled = true
	if entry.index >= 0 {
		heap.Remove(&l.timers, entry.index)
	}
	delete(l.timerByID, id)
	return true
}

func (l *Loop) safeExecute(t Task) {
	if t == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			kernellog.Get().Error("eventloop: task panicked", kernellog.F("panic", r))
		}
	}()
	t()
}

// Stop requests a graceful shutdown: queued tasks and due timers finish
// running before the loop goroutine exits. It blocks until the loop has
// fully stopped or ctx expires.
func (l *Loop) Stop(ctx context.Context) error {
	var err error
	l.stopOnce.Do(func() {
		for {
			cur := l.state.Load()
			if cur == StateTerminated || cur == StateTerminating {
				break
			}
			if l.state.TryTransition(cur, StateTerminating) {
				if cur == StateIdle {
					l.state.Store(StateTerminated)
					close(l.done)
					return
				}
				l.wakeUp()
				break
			}
		}
		select {
		case <-l.done:
		case <-ctx.Done():
			err = ctx.Err()
		}
	})
	if err == nil && l.state.Load() != StateTerminated {
		return ErrLoopTerminated
	}
	return err
}

// Close requests an abrupt shutdown: pending timers are cancelled without
// running, though already-queued dispatch tasks still execute once so
// callers waiting on a Dispatch'd continuation are not left hanging. It
// blocks until the loop goroutine has exited or ctx expires.
func (l *Loop) Close(ctx context.Context) error {
	l.timerMu.Lock()
	if l.state.Load() != StateTerminated {
		l.timers = nil
		l.timerByID = make(map[uint64]*timerEntry)
	}
	l.timerMu.Unlock()
	return l.Stop(ctx)
}

// drain runs every remaining queued task and timer, then marks the loop
// terminated. Called once, from the Run goroutine, after shutdown begins.
func (l *Loop) drain() {
	for {
		progressed := false

		l.internalMu.Lock()
		tasks := l.internal
		l.internal = nil
		l.internalMu.Unlock()
		for _, t := range tasks {
			l.safeExecute(t)
			progressed = true
		}

		l.externalMu.Lock()
		tasks = l.external
		l.external = nil
		l.externalMu.Unlock()
		for _, t := range tasks {
			l.safeExecute(t)
			progressed = true
		}

		l.timerMu.Lock()
		entries := l.timers
		l.timers = nil
		l.timerByID = make(map[uint64]*timerEntry)
		l.timerMu.Unlock()
		for _, e := range entries {
			if !e.cancelled && e.task != nil {
				l.safeExecute(e.task)
				progressed = true
			}
		}

		if !progressed {
			break
		}
	}
	l.state.Store(StateTerminated)
}

// State returns the loop's current lifecycle state.
func (l *Loop) State() State { return l.state.Load() }
