// Package resource implements the kernel's file resource layer: a
// readable asset with reference-counted scoped access and MIME
// resolution, used to serve file:// URLs into the web view.
package resource

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/gabriel-vasile/mimetype"
)

// builtinMIME is the extension table resolution tries first, before
// falling back to content sniffing. Go has no OS content-type service to
// consult between the two tiers.
var builtinMIME = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "text/javascript",
	".mjs":  "text/javascript",
	".json": "application/json",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
	".ico":  "image/x-icon",
	".woff": "font/woff",
	".woff2": "font/woff2",
	".ttf":  "font/ttf",
	".wasm": "application/wasm",
	".txt":  "text/plain",
	".xml":  "application/xml",
	".pdf":  "application/pdf",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
}

// FileResource represents a readable asset at path.
type FileResource struct {
	path string

	mu       sync.Mutex
	refCount int

	cachedBody []byte
	cachedSize int64
	hasCached  bool
}

// New creates a FileResource for path. No I/O happens until a method is
// called.
func New(path string) *FileResource {
	return &FileResource{path: path}
}

// Path returns the resource's backing path.
func (r *FileResource) Path() string { return r.path }

// StartAccessing increments the reference-counted access scope. On
// Apple platforms this would bridge security-scoped URL acquisition;
// that bridge is an out-of-scope platform shim, so this is a plain
// counter other platforms can check.
func (r *FileResource) StartAccessing() {
	r.mu.Lock()
	r.refCount++
	r.mu.Unlock()
}

// StopAccessing decrements the access scope. Calling it more times than
// StartAccessing is a no-op past zero.
func (r *FileResource) StopAccessing() {
	r.mu.Lock()
	if r.refCount > 0 {
		r.refCount--
	}
	r.mu.Unlock()
}

// Accessing reports whether the resource currently has at least one
// active access scope.
func (r *FileResource) Accessing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refCount > 0
}

// Exists reports whether the backing path is present on disk.
func (r *FileResource) Exists() bool {
	_, err := os.Stat(r.path)
	return err == nil
}

// Size returns the resource's byte size. When cached is true and a
// previous Read call already populated the cache, the cached value is
// reused without touching disk; Size itself does not populate the cache.
func (r *FileResource) Size(cached bool) (int64, error) {
	r.mu.Lock()
	if cached && r.hasCached {
		size := r.cachedSize
		r.mu.Unlock()
		return size, nil
	}
	r.mu.Unlock()

	info, err := os.Stat(r.path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Read returns the resource's full contents. When cached is true and a
// previous call already populated the (bytes, size) cache pair, the
// cached slice is returned directly.
func (r *FileResource) Read(cached bool) ([]byte, error) {
	r.mu.Lock()
	if cached && r.hasCached {
		body := r.cachedBody
		r.mu.Unlock()
		return body, nil
	}
	r.mu.Unlock()

	body, err := os.ReadFile(r.path)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cachedBody = body
	r.cachedSize = int64(len(body))
	r.hasCached = true
	r.mu.Unlock()

	return body, nil
}

// String returns the resource's contents as a string.
func (r *FileResource) String(cached bool) (string, error) {
	body, err := r.Read(cached)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// MimeType resolves the resource's content type: the built-in extension
// table first, then content sniffing via
// github.com/gabriel-vasile/mimetype. It never returns an error; an
// unreadable file falls back to the generic octet-stream type.
func (r *FileResource) MimeType() string {
	ext := filepath.Ext(r.path)
	if mt, ok := builtinMIME[ext]; ok {
		return mt
	}

	mt, err := mimetype.DetectFile(r.path)
	if err != nil {
		return "application/octet-stream"
	}
	return mt.String()
}

var (
	resourcesPathOnce sync.Once
	resourcesPathVal  string
)

// GetResourcesPath returns the bundle- or executable-relative resources
// root, cached in a process-wide singleton. On platforms without an app
// bundle concept, it resolves to the directory containing the running
// executable.
func GetResourcesPath() string {
	resourcesPathOnce.Do(func() {
		exe, err := os.Executable()
		if err != nil {
			resourcesPathVal = "."
			return
		}
		resourcesPathVal = filepath.Dir(exe)
	})
	return resourcesPathVal
}
