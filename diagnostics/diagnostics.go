// Package diagnostics implements the kernel's introspection snapshot,
// combining descriptor, watcher, peer, timer, process and post counts
// into one JSON object.
package diagnostics

// Snapshot is the JSON payload the `diagnostics` IPC operation returns.
type Snapshot struct {
	Descriptors int `json:"descriptors"`
	Watchers    int `json:"watchers"`
	Peers       int `json:"peers"`
	Timers      int `json:"timers"`
	Processes   int `json:"processes"`
	Posts       int `json:"posts"`
}

// Counters supplies the live count for each handle table Core owns. Each
// field is a closure rather than a stored value so Snapshot always
// reflects the table's current size, never a stale copy.
type Counters struct {
	Descriptors func() int
	Watchers    func() int
	Peers       func() int
	Timers      func() int
	Processes   func() int
	Posts       func() int
}

// Module produces diagnostics snapshots for one Core.
type Module struct {
	counters Counters
}

// New creates a diagnostics module backed by counters. Any nil field is
// treated as always-zero, so partially wired counters (e.g. in tests)
// don't panic.
func New(counters Counters) *Module {
	return &Module{counters: counters}
}

func call(fn func() int) int {
	if fn == nil {
		return 0
	}
	return fn()
}

// Snapshot returns the current handle-table counts.
func (m *Module) Snapshot() Snapshot {
	return Snapshot{
		Descriptors: call(m.counters.Descriptors),
		Watchers:    call(m.counters.Watchers),
		Peers:       call(m.counters.Peers),
		Timers:      call(m.counters.Timers),
		Processes:   call(m.counters.Processes),
		Posts:       call(m.counters.Posts),
	}
}
