package fs

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nativebridge/kernel/eventloop"
	"github.com/nativebridge/kernel/kernellog"
)

// Watcher is a recursive filesystem watcher keyed by id, with per-path
// debounce and last-event timestamp tracking.
type Watcher struct {
	id       uint64
	root     string
	debounce time.Duration

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	lastSeen map[string]time.Time
	pending  map[string]*pendingEvent
	done     chan struct{}
}

type pendingEvent struct {
	timer  *time.Timer
	events map[string]bool // "rename"/"change"
}

// DefaultDebounce is the per-path coalescing window.
const DefaultDebounce = 250 * time.Millisecond

// WatchEvent is the `{events, path}` payload emitted to the IPC layer.
type WatchEvent struct {
	Events []string `json:"events"`
	Path   string   `json:"path"`
}

// newWatcher starts a recursive fsnotify watch rooted at root. on is
// invoked (via loop.Dispatch, so it always runs on the loop goroutine)
// once per debounce window per path, only for paths that still exist on
// disk at dispatch time.
func newWatcher(id uint64, root string, loop *eventloop.Loop, on func(WatchEvent)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		id:       id,
		root:     root,
		debounce: DefaultDebounce,
		watcher:  fw,
		lastSeen: make(map[string]time.Time),
		pending:  make(map[string]*pendingEvent),
		done:     make(chan struct{}),
	}

	if err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		return nil
	}); err != nil {
		fw.Close()
		return nil, err
	}

	go w.loopEvents(loop, on)
	return w, nil
}

func classify(op fsnotify.Op) string {
	switch {
	case op&(fsnotify.Rename|fsnotify.Remove|fsnotify.Create) != 0:
		return "rename"
	default:
		return "change"
	}
}

func (w *Watcher) loopEvents(loop *eventloop.Loop, on func(WatchEvent)) {
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(loop, on, ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			kernellog.Get().Warn("fs: watcher error", kernellog.F("path", w.root), kernellog.F("error", err))
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handleEvent(loop *eventloop.Loop, on func(WatchEvent), ev fsnotify.Event) {
	kind := classify(ev.Op)

	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = w.watcher.Add(ev.Name)
		}
	}

	w.mu.Lock()
	w.lastSeen[ev.Name] = time.Now()
	p, ok := w.pending[ev.Name]
	if !ok {
		p = &pendingEvent{events: make(map[string]bool)}
		w.pending[ev.Name] = p
	}
	p.events[kind] = true
	if p.timer != nil {
		p.timer.Stop()
	}
	path := ev.Name
	p.timer = time.AfterFunc(w.debounce, func() {
		w.flush(loop, on, path)
	})
	w.mu.Unlock()
}

func (w *Watcher) flush(loop *eventloop.Loop, on func(WatchEvent), path string) {
	w.mu.Lock()
	p, ok := w.pending[path]
	if !ok {
		w.mu.Unlock()
		return
	}
	delete(w.pending, path)
	events := make([]string, 0, len(p.events))
	for k := range p.events {
		events = append(events, k)
	}
	w.mu.Unlock()

	if _, err := os.Stat(path); err != nil {
		return // gone from disk by dispatch time; dropped
	}

	_ = loop.Dispatch(func() {
		on(WatchEvent{Events: events, Path: path})
	})
}

// Close stops the underlying fsnotify watcher and its goroutine.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
