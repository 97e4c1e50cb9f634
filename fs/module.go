package fs

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/nativebridge/kernel/eventloop"
	"github.com/nativebridge/kernel/kernelerr"
	"github.com/nativebridge/kernel/post"
	"github.com/nativebridge/kernel/registry"
)

// Module is the kernel's FS module: it owns the Descriptor and Watcher
// handle tables and the operations over them.
type Module struct {
	loop  *eventloop.Loop
	posts *post.Store

	descriptors *registry.Table[Descriptor]
	watchers    *registry.Table[Watcher]

	idMu   sync.Mutex
	nextID uint64
}

// New creates an FS module bound to loop, registering Posts created by
// Read into posts.
func New(loop *eventloop.Loop, posts *post.Store) *Module {
	return &Module{
		loop:        loop,
		posts:       posts,
		descriptors: registry.New[Descriptor](),
		watchers:    registry.New[Watcher](),
	}
}

func (m *Module) descriptor(id uint64) (*Descriptor, error) {
	d, ok := m.descriptors.Get(id)
	if !ok {
		return nil, kernelerr.NotFound("ENOTOPEN", "descriptor not open")
	}
	return d, nil
}

// Open opens path for reading/writing and returns a new descriptor id.
func (m *Module) Open(path string, flag int, perm os.FileMode) (uint64, error) {
	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		return 0, translate(err)
	}
	d := &Descriptor{path: path, file: f}
	return m.descriptors.Add(d), nil
}

// Opendir opens path as a directory iterator.
func (m *Module) Opendir(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, translate(err)
	}
	info, err := f.Stat()
	if err != nil || !info.IsDir() {
		f.Close()
		return 0, kernelerr.Internal("ENOTDIR", "not a directory")
	}
	d := &Descriptor{path: path, dir: f, isDir: true}
	return m.descriptors.Add(d), nil
}

// Close closes a file descriptor.
func (m *Module) Close(id uint64) error {
	d, err := m.descriptor(id)
	if err != nil {
		return err
	}
	m.descriptors.Delete(id)
	return translate(d.Close())
}

// Closedir closes a directory descriptor. Same handle table as Close;
// kept as a distinct method to mirror the distinct wire operation.
func (m *Module) Closedir(id uint64) error { return m.Close(id) }

// CloseOpenDescriptor closes a single descriptor by id, ignoring the
// retained flag (used by the explicit single-descriptor close path,
// as opposed to CloseOpenDescriptors' mass close).
func (m *Module) CloseOpenDescriptor(id uint64) error { return m.Close(id) }

// CloseOpenDescriptors closes every open descriptor. When
// preserveRetained is true, descriptors with their retained flag set are
// skipped.
//
// Ids are snapshotted via registry.Table.Ids before any Close call, so
// this loop never iterates the table while concurrently erasing from it.
func (m *Module) CloseOpenDescriptors(preserveRetained bool) {
	for _, id := range m.descriptors.Ids() {
		d, ok := m.descriptors.Get(id)
		if !ok {
			continue
		}
		if preserveRetained && d.Retained() {
			continue
		}
		m.descriptors.Delete(id)
		_ = d.Close()
	}
}

// MarkAllStale sets the stale flag on every open descriptor, called on
// every document reload event.
func (m *Module) MarkAllStale() {
	m.descriptors.Each(func(_ uint64, d *Descriptor) { d.MarkStale() })
}

// RetainOpenDescriptor sets a descriptor's retained flag.
func (m *Module) RetainOpenDescriptor(id uint64) error {
	d, err := m.descriptor(id)
	if err != nil {
		return err
	}
	d.Retain()
	return nil
}

// GetOpenDescriptors returns the ids of every currently open descriptor.
func (m *Module) GetOpenDescriptors() []uint64 { return m.descriptors.Ids() }

// DescriptorCount returns the number of currently open descriptors, used
// by the diagnostics snapshot.
func (m *Module) DescriptorCount() int { return m.descriptors.Len() }

// WatcherCount returns the number of currently active watchers, used by
// the diagnostics snapshot.
func (m *Module) WatcherCount() int { return m.watchers.Len() }

// Read reads up to length bytes at offset from the descriptor and
// registers the result as a Post carrying
// content-type: application/octet-stream plus a content-length header.
// It returns the Post id.
func (m *Module) Read(id uint64, length int, offset int64) (uint64, error) {
	d, err := m.descriptor(id)
	if err != nil {
		return 0, err
	}
	d.mu.Lock()
	f := d.file
	d.mu.Unlock()
	if f == nil {
		return 0, kernelerr.NotSupported("ENOTOPEN", "descriptor is not a file")
	}

	buf := make([]byte, length)
	n, err := f.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return 0, translate(err)
	}
	buf = buf[:n]

	headers := "content-type: application/octet-stream\ncontent-length: " + strconv.Itoa(len(buf))
	return m.posts.Create(0, buf, headers), nil
}

// Readdir returns up to entries directory entry names from the
// descriptor's current iterator position.
func (m *Module) Readdir(id uint64, entries int) ([]string, error) {
	d, err := m.descriptor(id)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	dir := d.dir
	d.mu.Unlock()
	if dir == nil {
		return nil, kernelerr.NotSupported("ENOTDIR", "descriptor is not a directory")
	}
	names, err := dir.Readdirnames(entries)
	if err != nil && err != io.EOF {
		return nil, translate(err)
	}
	return names, nil
}

// Write writes bytes at offset to the descriptor.
func (m *Module) Write(id uint64, data []byte, offset int64) (int, error) {
	d, err := m.descriptor(id)
	if err != nil {
		return 0, err
	}
	d.mu.Lock()
	f := d.file
	d.mu.Unlock()
	if f == nil {
		return 0, kernelerr.NotSupported("ENOTOPEN", "descriptor is not a file")
	}
	n, err := f.WriteAt(data, offset)
	if err != nil {
		return n, translate(err)
	}
	return n, nil
}

// Fsync flushes the descriptor's in-kernel buffers to disk.
func (m *Module) Fsync(id uint64) error {
	d, err := m.descriptor(id)
	if err != nil {
		return err
	}
	d.mu.Lock()
	f := d.file
	d.mu.Unlock()
	if f == nil {
		return kernelerr.NotSupported("ENOTOPEN", "descriptor is not a file")
	}
	return translate(f.Sync())
}

// Ftruncate truncates the descriptor's file to size bytes.
func (m *Module) Ftruncate(id uint64, size int64) error {
	d, err := m.descriptor(id)
	if err != nil {
		return err
	}
	d.mu.Lock()
	f := d.file
	d.mu.Unlock()
	if f == nil {
		return kernelerr.NotSupported("ENOTOPEN", "descriptor is not a file")
	}
	return translate(f.Truncate(size))
}

// Access checks path accessibility, translating os errors into the
// kernel error taxonomy.
func (m *Module) Access(path string) error {
	_, err := os.Stat(path)
	return translate(err)
}

func (m *Module) Chmod(path string, mode os.FileMode) error { return translate(os.Chmod(path, mode)) }
func (m *Module) Chown(path string, uid, gid int) error     { return translate(os.Chown(path, uid, gid)) }
func (m *Module) Lchown(path string, uid, gid int) error    { return translate(os.Lchown(path, uid, gid)) }

func (m *Module) Stat(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	return info, translate(err)
}

func (m *Module) Lstat(path string) (os.FileInfo, error) {
	info, err := os.Lstat(path)
	return info, translate(err)
}

func (m *Module) Fstat(id uint64) (os.FileInfo, error) {
	d, err := m.descriptor(id)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	f := d.file
	d.mu.Unlock()
	if f == nil {
		return nil, kernelerr.NotSupported("ENOTOPEN", "descriptor is not a file")
	}
	info, err := f.Stat()
	return info, translate(err)
}

func (m *Module) Link(oldpath, newpath string) error    { return translate(os.Link(oldpath, newpath)) }
func (m *Module) Symlink(oldpath, newpath string) error { return translate(os.Symlink(oldpath, newpath)) }
func (m *Module) Unlink(path string) error              { return translate(os.Remove(path)) }

func (m *Module) Readlink(path string) (string, error) {
	target, err := os.Readlink(path)
	return target, translate(err)
}

func (m *Module) Realpath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", translate(err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", translate(err)
	}
	return resolved, nil
}

func (m *Module) Rename(oldpath, newpath string) error { return translate(os.Rename(oldpath, newpath)) }

// CopyFile copies src to dst, overwriting dst if present.
func (m *Module) CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return translate(err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return translate(err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return translate(err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return translate(err)
	}
	return nil
}

func (m *Module) Rmdir(path string) error { return translate(os.Remove(path)) }

// Mkdir creates path. When recursive is true, it walks path's components
// left-to-right, treating already-exists as success rather than failure;
// a non-recursive mkdir on an existing path fails like the syscall does.
func (m *Module) Mkdir(path string, perm os.FileMode, recursive bool) error {
	if !recursive {
		return translate(os.Mkdir(path, perm))
	}

	clean := filepath.Clean(path)
	parts := strings.Split(clean, string(filepath.Separator))
	cur := ""
	if filepath.IsAbs(clean) {
		cur = string(filepath.Separator)
	}
	for _, part := range parts {
		if part == "" {
			continue
		}
		if cur == "" || cur == string(filepath.Separator) {
			cur = cur + part
		} else {
			cur = cur + string(filepath.Separator) + part
		}
		err := os.Mkdir(cur, perm)
		if err != nil && !os.IsExist(err) {
			return translate(err)
		}
	}
	return nil
}

// Watch starts a recursive watcher rooted at path, returning its id. on
// is invoked on the loop goroutine for each debounced, still-existing
// change.
func (m *Module) Watch(path string, on func(WatchEvent)) (uint64, error) {
	m.idMu.Lock()
	m.nextID++
	id := m.nextID
	m.idMu.Unlock()

	w, err := newWatcher(id, path, m.loop, on)
	if err != nil {
		return 0, translate(err)
	}
	return m.watchers.Add(w), nil
}

// StopWatch stops and removes the watcher with the given id.
func (m *Module) StopWatch(id uint64) error {
	w, ok := m.watchers.Get(id)
	if !ok {
		return kernelerr.NotFound("ENOTFOUND", "watcher not found")
	}
	m.watchers.Delete(id)
	return translate(w.Close())
}
