// Package kernel implements Core, the single process-scoped owner of
// the event loop and every module's handle table, wiring them together
// and driving the shutdown sequence.
package kernel

import (
	"context"
	"time"

	"github.com/nativebridge/kernel/diagnostics"
	"github.com/nativebridge/kernel/dnsresolve"
	"github.com/nativebridge/kernel/eventloop"
	"github.com/nativebridge/kernel/external"
	"github.com/nativebridge/kernel/fs"
	"github.com/nativebridge/kernel/kernellog"
	"github.com/nativebridge/kernel/observers"
	"github.com/nativebridge/kernel/post"
	"github.com/nativebridge/kernel/process"
	"github.com/nativebridge/kernel/timers"
	"github.com/nativebridge/kernel/udp"
)

// Core is the kernel's singleton-per-process container. It owns the
// event loop and every module's handle table. Module operations run on
// the caller's goroutine, each handle table guarded by its own mutex;
// asynchronous module callbacks run on the loop goroutine Core starts.
type Core struct {
	Loop *eventloop.Loop

	Timers  *timers.Table
	FS      *fs.Module
	UDP     *udp.Module
	DNS     *dnsresolve.Module
	Process *process.Module
	Posts   *post.Store

	Notifications *observers.Notifications
	NetworkStatus *observers.NetworkStatus
	Geolocation   *observers.Geolocation
	MediaDevices  *observers.MediaDevices

	Diagnostics *diagnostics.Module

	webview external.WebView
	preload external.Preload

	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Core at construction time.
type Option func(*Core)

// WithWebView registers the host web view collaborator that pushed
// events are delivered to (see Emit). HandleIPC responses are returned
// to its caller, not delivered to the web view.
func WithWebView(wv external.WebView) Option {
	return func(c *Core) { c.webview = wv }
}

// WithPreload registers the JS preload source collaborator.
func WithPreload(p external.Preload) Option {
	return func(c *Core) { c.preload = p }
}

// New constructs a Core with every module wired to one shared event loop
// and Post store. The loop is not started until Run is called.
func New(opts ...Option) *Core {
	loop := eventloop.New()
	posts := post.New()

	fsModule := fs.New(loop, posts)
	udpModule := udp.New(loop, posts)
	processModule := process.New(loop, posts)
	dnsModule := dnsresolve.New()
	timerTable := timers.New(loop)

	notifications := observers.NewNotifications(loop)
	networkStatus := observers.NewNetworkStatus(loop)
	geolocation := observers.NewGeolocation(loop)
	mediaDevices := observers.NewMediaDevices(loop)

	c := &Core{
		Loop:          loop,
		Timers:        timerTable,
		FS:            fsModule,
		UDP:           udpModule,
		DNS:           dnsModule,
		Process:       processModule,
		Posts:         posts,
		Notifications: notifications,
		NetworkStatus: networkStatus,
		Geolocation:   geolocation,
		MediaDevices:  mediaDevices,
	}

	c.Diagnostics = diagnostics.New(diagnostics.Counters{
		Descriptors: fsModule.DescriptorCount,
		Watchers:    fsModule.WatcherCount,
		Peers:       udpModule.PeerCount,
		Timers:      timerTable.Count,
		Processes:   processModule.ProcessCount,
		Posts:       posts.Len,
	})

	for _, opt := range opts {
		opt(c)
	}
	c.forwardObservers()
	return c
}

// Run starts the event loop on a background goroutine. Call Stop to
// shut it down.
func (c *Core) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		if err := c.Loop.Run(ctx); err != nil && err != context.Canceled {
			kernellog.Get().Error("kernel: loop exited with error", kernellog.F("error", err))
		}
	}()
}

// Reload marks every open FS descriptor stale. Called when the
// (out-of-scope) web view collaborator reloads its document, so the
// JavaScript side must re-retain descriptors it intends to keep.
func (c *Core) Reload() {
	c.FS.MarkAllStale()
}

// PreloadSource returns the configured preload text, or "" if none was
// supplied via WithPreload.
func (c *Core) PreloadSource() string {
	if c.preload == nil {
		return ""
	}
	return c.preload.PreloadSource()
}

// Stop runs the shutdown sequence: cancels all timers, closes all
// peers, kills all child processes, closes all descriptors, empties the
// Post store, then drains the dispatch queue and joins the loop
// goroutine.
func (c *Core) Stop(ctx context.Context) error {
	c.Timers.StopAll()
	c.UDP.CloseAll()
	c.Process.CloseAll()
	c.FS.CloseOpenDescriptors(false)
	c.Posts.RemoveAll()

	if c.cancel == nil {
		return nil
	}
	c.cancel()

	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ExpirePosts sweeps the Post store for expired entries. Intended to be
// called on a periodic timer by the embedder.
func (c *Core) ExpirePosts() { c.Posts.ExpirePosts() }

// DefaultExpireInterval is a reasonable cadence for ExpirePosts given
// post.DefaultTTL; embedders may choose their own.
const DefaultExpireInterval = 5 * time.Second
