// Package external defines narrow Go interfaces for every collaborator
// the kernel treats as outside its own boundary: the embedded web view
// and its JavaScript preload, the CLI front-end/build tooling,
// OS-specific permission UIs, Bluetooth, AI/LLM glue, and platform
// "reveal file"/"open external" shims. Nothing here has an
// implementation; each is a seam Core dispatches to, not a subsystem
// this kernel owns.
package external

import "context"

// WebView is the host surface the kernel's IPC responses are delivered
// to. It is the thin transport boundary on the other side of the
// request/response envelope.
type WebView interface {
	// Evaluate runs script in the web view's JavaScript context,
	// fire-and-forget. Used to deliver pushed module and observer events.
	Evaluate(script string) error
	// Reload signals that the host reloaded the document; Core uses this
	// to mark every open FS descriptor stale.
	Reload()
}

// Preload produces the JavaScript bootstrap text injected into the web
// view before any page script runs. It is a named extension point so
// the out-of-scope preload generator has somewhere to attach without
// this kernel needing to know its contents.
type Preload interface {
	// PreloadSource returns the preload script text, or "" if none is
	// configured. Never errors: a missing preload is simply an empty
	// string.
	PreloadSource() string
}

// NotificationPermission is the OS-specific UI that prompts for and
// reports notification permission/display state. Its results are
// forwarded into the kernel via observers.Notifications.Publish.
type NotificationPermission interface {
	RequestPermission(ctx context.Context) (granted bool, err error)
	Show(title, body string) (id string, err error)
}

// GeolocationPermission is the OS-specific UI that prompts for location
// access. Results are forwarded via observers.Geolocation.Publish.
type GeolocationPermission interface {
	RequestPermission(ctx context.Context) (granted bool, err error)
	Watch() (stop func(), err error)
}

// Bluetooth is a thin shim over a vendor Bluetooth SDK.
type Bluetooth interface {
	StartScan(ctx context.Context) error
	StopScan() error
}

// AI is a thin shim over a vendor LLM SDK.
type AI interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// RevealFile is the platform-specific "show in file manager" glue
// (Finder/Explorer/the desktop's file manager).
type RevealFile interface {
	Reveal(path string) error
}

// OpenExternal is the platform-specific "open with the default
// application" glue.
type OpenExternal interface {
	Open(uri string) error
}

// CLI represents the front-end/build tooling that drives the kernel
// process from outside. Core never calls into it; it is documented here
// only as the boundary that starts and stops the process hosting Core.
type CLI interface {
	Run(ctx context.Context, args []string) (exitCode int, err error)
}
