// Package eventloop implements the kernel's single-threaded cooperative
// event loop and its cross-thread dispatch queue.
//
// # Architecture
//
// [Loop] owns one external dispatch queue (tasks submitted from any
// goroutine via [Loop.Dispatch]), one internal priority queue (tasks
// submitted from module callbacks on the loop goroutine itself, via
// [Loop.DispatchInternal]), and a [container/heap]-backed timer heap. Each
// tick drains expired timers, then the internal queue, then a budgeted
// slice of the external queue.
//
// The external/internal queues use a slice-swap-under-mutex pattern:
// producers append to an active slice under a short-held mutex, and the
// loop goroutine swaps in a spare slice and iterates it lock-free.
//
// # Thread Safety
//
// [Loop.Dispatch] and [Loop.DispatchInternal] are safe to call from any
// goroutine. The loop does not serialize handle-table mutations: kernel
// modules mutate their tables on the calling goroutine, under each
// table's own mutex, and use the loop to run their asynchronous
// callbacks (received datagrams, watcher events, process output and
// exit, timer firings, observer events) on the loop goroutine.
//
// # Shutdown
//
// [Loop.Stop] requests a graceful drain: the dispatch queues and timer
// heap are emptied (running whatever is already queued) before the loop
// goroutine exits. [Loop.Close] additionally cancels all pending timers
// without running them, for abrupt teardown.
package eventloop
