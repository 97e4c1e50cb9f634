package kernel

import (
	"strconv"

	"github.com/nativebridge/kernel/ipc"
	"github.com/nativebridge/kernel/kernellog"
	"github.com/nativebridge/kernel/observers"
	"github.com/nativebridge/kernel/post"
)

// Emit delivers an asynchronous module event (a received datagram, a
// watcher change, a spawned process's stdio chunk, an observer callback)
// to the host web view as a `{source, data}` envelope, the push half of
// the request/response wire form. When postID is nonzero the
// envelope carries the sibling Post id, and the synthetic fetch snippet
// for it is evaluated alongside so the JavaScript side pulls the binary
// body via `ipc://post?id=…`.
//
// Emit is a no-op when no web view collaborator was registered; the
// modules still run, their Posts still land in the store, only the push
// delivery is skipped.
func (c *Core) Emit(source string, data any, postID uint64) {
	env, err := ipc.Success(source, &ipc.Request{}, data)
	if err != nil {
		kernellog.Get().Error("kernel: emit encode failed", kernellog.F("source", source), kernellog.F("error", err))
		return
	}
	if postID != 0 {
		ipc.WithPost(env, postID)
	}

	if c.webview == nil {
		return
	}

	raw, err := ipc.Marshal(env)
	if err != nil {
		kernellog.Get().Error("kernel: emit marshal failed", kernellog.F("source", source), kernellog.F("error", err))
		return
	}

	script := "window.__ipc.emit(" + strconv.Quote(string(raw)) + ")"
	if postID != 0 {
		script += ";" + post.SyntheticFetch(postID)
	}
	if err := c.webview.Evaluate(script); err != nil {
		kernellog.Get().Warn("kernel: emit delivery failed", kernellog.F("source", source), kernellog.F("error", err))
	}
}

// forwardObservers subscribes each observer registry to Emit, so OS
// callbacks published by external collaborators reach the web view as
// JSON events.
func (c *Core) forwardObservers() {
	c.Notifications.Subscribe(func(ev observers.NotificationEvent) {
		c.Emit("notifications", ev, 0)
	})
	c.NetworkStatus.Subscribe(func(ev observers.NetworkStatusEvent) {
		c.Emit("networkStatus", ev, 0)
	})
	c.Geolocation.Subscribe(func(ev observers.GeolocationEvent) {
		c.Emit("geolocation", ev, 0)
	})
	c.MediaDevices.Subscribe(func(ev observers.MediaDevicesEvent) {
		c.Emit("mediaDevices", ev, 0)
	})
}
