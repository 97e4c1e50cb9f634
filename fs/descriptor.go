// Package fs implements the kernel's filesystem module: open-file and
// directory descriptors, recursive watchers with debounce, and the full
// stat/link/copy/rename/mkdir surface.
package fs

import (
	"os"
	"sync"
)

// Descriptor is either an open file or a directory iterator, never
// both.
type Descriptor struct {
	mu sync.Mutex

	id       uint64
	path     string
	file     *os.File
	dir      *os.File // non-nil and read via Readdir when this is a directory
	isDir    bool
	retained bool
	stale    bool
}

// Retain sets the descriptor's retained flag so a mass-close with
// preserveRetained=true will skip it.
func (d *Descriptor) Retain() {
	d.mu.Lock()
	d.retained = true
	d.mu.Unlock()
}

// Retained reports the current retained flag.
func (d *Descriptor) Retained() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.retained
}

// MarkStale sets the stale flag, signaling that the caller should
// re-retain this descriptor if it wants to keep it past a document
// reload.
func (d *Descriptor) MarkStale() {
	d.mu.Lock()
	d.stale = true
	d.mu.Unlock()
}

// Stale reports the current stale flag.
func (d *Descriptor) Stale() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stale
}

// Close releases the underlying OS handle. Safe to call more than once.
func (d *Descriptor) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.isDir {
		if d.dir == nil {
			return nil
		}
		err := d.dir.Close()
		d.dir = nil
		return err
	}
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}
