package kernel

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/nativebridge/kernel/dnsresolve"
	"github.com/nativebridge/kernel/fs"
	"github.com/nativebridge/kernel/ipc"
	"github.com/nativebridge/kernel/kernelerr"
	"github.com/nativebridge/kernel/process"
	"github.com/nativebridge/kernel/timers"
	"github.com/nativebridge/kernel/udp"
)

// HandleIPC is the kernel's IPC entry point: it parses raw into a
// request, routes it to the module named by req.Name using req.Path as
// the operation, and returns the JSON response envelope, carrying a Post
// id when the operation produced a binary payload.
//
// Each routed module operation runs synchronously on the caller's
// goroutine and its result is returned directly; the operation itself
// does not pass through the EventLoop. Only the asynchronous events some
// operations start (UDP receive, watcher changes, spawned process output
// and exit, timer firings) are delivered through the EventLoop, via Emit.
func (c *Core) HandleIPC(ctx context.Context, raw string) []byte {
	req, err := ipc.Parse(raw)
	if err != nil {
		env := ipc.Failure("kernel", &ipc.Request{}, kernelerr.Internal("EINVAL", err.Error()))
		out, _ := ipc.Marshal(env)
		return out
	}
	return c.handleParsed(ctx, req)
}

// HandleIPCFrame handles a request whose binary body arrived out-of-band
// on the side buffer: frame is decoded per the fixed
// magic-prefix-plus-24-byte-header wire form and its payload replaces the
// request's value for the byte-carrying operations (fs.write, udp.send,
// process.write). The frame's seq field wins over the URI's when the URI
// carries none.
func (c *Core) HandleIPCFrame(ctx context.Context, raw string, frame []byte) []byte {
	req, err := ipc.Parse(raw)
	if err == nil {
		var body *ipc.Body
		body, err = ipc.DecodeBody(frame)
		if err == nil {
			req.Value = string(body.Bytes)
			req.Index = body.Index
			if req.Seq == "" {
				req.Seq = body.Seq
			}
		}
	}
	if err != nil {
		env := ipc.Failure("kernel", &ipc.Request{}, kernelerr.Internal("EINVAL", err.Error()))
		out, _ := ipc.Marshal(env)
		return out
	}
	return c.handleParsed(ctx, req)
}

func (c *Core) handleParsed(ctx context.Context, req *ipc.Request) []byte {
	data, postID, handlerErr := c.route(ctx, req)

	var env *ipc.Envelope
	if handlerErr != nil {
		env = ipc.Failure(req.Name, req, handlerErr)
	} else {
		var err error
		env, err = ipc.Success(req.Name, req, data)
		if err != nil {
			env = ipc.Failure(req.Name, req, kernelerr.Internal("EENCODE", err.Error()))
		} else if postID != 0 {
			env = ipc.WithPost(env, postID)
		}
	}

	out, _ := ipc.Marshal(env)
	return out
}

func (c *Core) route(ctx context.Context, req *ipc.Request) (data any, postID uint64, err error) {
	switch req.Name {
	case "fs":
		return c.routeFS(req)
	case "udp":
		return c.routeUDP(req)
	case "timers":
		return c.routeTimers(req)
	case "process":
		return c.routeProcess(ctx, req)
	case "dns":
		return c.routeDNS(ctx, req)
	case "post":
		return c.routePost(req)
	case "diagnostics":
		return c.Diagnostics.Snapshot(), 0, nil
	default:
		return nil, 0, kernelerr.NotFound("ENOTFOUND", "kernel: unknown module "+req.Name)
	}
}

func argInt(req *ipc.Request, key string, fallback int) int {
	v, ok := req.Args[key]
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func argInt64(req *ipc.Request, key string, fallback int64) int64 {
	v, ok := req.Args[key]
	if !ok {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func argUint64(req *ipc.Request, key string) uint64 {
	v, ok := req.Args[key]
	if !ok {
		return 0
	}
	n, _ := strconv.ParseUint(v, 10, 64)
	return n
}

func argBool(req *ipc.Request, key string) bool {
	v, ok := req.Args[key]
	return ok && (v == "1" || v == "true")
}

func (c *Core) routeFS(req *ipc.Request) (any, uint64, error) {
	id := argUint64(req, "id")
	path := req.Get("path", "")

	switch req.Path {
	case "open":
		flag := argInt(req, "flag", os.O_RDONLY)
		perm := os.FileMode(argInt(req, "mode", 0o644))
		newID, err := c.FS.Open(path, flag, perm)
		return map[string]uint64{"id": newID}, 0, err
	case "opendir":
		newID, err := c.FS.Opendir(path)
		return map[string]uint64{"id": newID}, 0, err
	case "close":
		return nil, 0, c.FS.Close(id)
	case "closedir":
		return nil, 0, c.FS.Closedir(id)
	case "closeOpenDescriptor":
		return nil, 0, c.FS.CloseOpenDescriptor(id)
	case "closeOpenDescriptors":
		c.FS.CloseOpenDescriptors(argBool(req, "preserveRetained"))
		return nil, 0, nil
	case "retainOpenDescriptor":
		return nil, 0, c.FS.RetainOpenDescriptor(id)
	case "getOpenDescriptors":
		return c.FS.GetOpenDescriptors(), 0, nil
	case "read":
		length := argInt(req, "len", 0)
		offset := argInt64(req, "offset", 0)
		pid, err := c.FS.Read(id, length, offset)
		if err != nil {
			return nil, 0, err
		}
		return map[string]uint64{"id": pid}, pid, nil
	case "write":
		// binary data arrives via HandleIPCFrame's side buffer, which
		// lands in req.Value; inline values work too for text payloads.
		n, err := c.FS.Write(id, []byte(req.Value), argInt64(req, "offset", 0))
		return map[string]int{"written": n}, 0, err
	case "fsync":
		return nil, 0, c.FS.Fsync(id)
	case "ftruncate":
		return nil, 0, c.FS.Ftruncate(id, argInt64(req, "size", 0))
	case "access":
		return nil, 0, c.FS.Access(path)
	case "chmod":
		return nil, 0, c.FS.Chmod(path, os.FileMode(argInt(req, "mode", 0o644)))
	case "chown":
		return nil, 0, c.FS.Chown(path, argInt(req, "uid", -1), argInt(req, "gid", -1))
	case "lchown":
		return nil, 0, c.FS.Lchown(path, argInt(req, "uid", -1), argInt(req, "gid", -1))
	case "stat":
		info, err := c.FS.Stat(path)
		return fs.InfoToMap(info), 0, err
	case "lstat":
		info, err := c.FS.Lstat(path)
		return fs.InfoToMap(info), 0, err
	case "fstat":
		info, err := c.FS.Fstat(id)
		return fs.InfoToMap(info), 0, err
	case "link":
		return nil, 0, c.FS.Link(path, req.Get("newpath", ""))
	case "symlink":
		return nil, 0, c.FS.Symlink(path, req.Get("newpath", ""))
	case "unlink":
		return nil, 0, c.FS.Unlink(path)
	case "readlink":
		target, err := c.FS.Readlink(path)
		return map[string]string{"target": target}, 0, err
	case "realpath":
		resolved, err := c.FS.Realpath(path)
		return map[string]string{"path": resolved}, 0, err
	case "rename":
		return nil, 0, c.FS.Rename(path, req.Get("newpath", ""))
	case "copyFile":
		return nil, 0, c.FS.CopyFile(path, req.Get("dest", ""))
	case "rmdir":
		return nil, 0, c.FS.Rmdir(path)
	case "mkdir":
		return nil, 0, c.FS.Mkdir(path, os.FileMode(argInt(req, "mode", 0o755)), argBool(req, "recursive"))
	case "readdir":
		names, err := c.FS.Readdir(id, argInt(req, "entries", 64))
		return names, 0, err
	case "watch":
		watchID, err := c.FS.Watch(path, func(ev fs.WatchEvent) {
			c.Emit("fs.watch", ev, 0)
		})
		return map[string]uint64{"id": watchID}, 0, err
	case "stopWatch":
		return nil, 0, c.FS.StopWatch(id)
	case "constants":
		return fs.GetConstants(), 0, nil
	default:
		return nil, 0, kernelerr.NotFound("ENOTFOUND", "kernel: unknown fs operation "+req.Path)
	}
}

func (c *Core) routeUDP(req *ipc.Request) (any, uint64, error) {
	id := argUint64(req, "id")

	switch req.Path {
	case "bind":
		newID, err := c.UDP.Bind(id, req.Get("address", "0.0.0.0"), argInt(req, "port", 0), argBool(req, "reuseAddr"))
		return map[string]uint64{"id": newID}, 0, err
	case "connect":
		newID, err := c.UDP.Connect(id, req.Get("address", ""), argInt(req, "port", 0))
		return map[string]uint64{"id": newID}, 0, err
	case "disconnect":
		return nil, 0, c.UDP.Disconnect(id)
	case "send":
		newID, n, err := c.UDP.Send(id, []byte(req.Value), req.Get("address", ""), argInt(req, "port", 0), argBool(req, "ephemeral"))
		return map[string]any{"id": newID, "bytes": n}, 0, err
	case "readStart":
		return nil, 0, c.UDP.ReadStart(id, func(postID uint64, ev udp.Event) {
			c.Emit("udp.readStart", ev, postID)
		}, func(err error) {
			c.Emit("udp.readStart", map[string]any{"id": id, "err": err.Error()}, 0)
		})
	case "readStop":
		return nil, 0, c.UDP.ReadStop(id)
	case "close":
		return nil, 0, c.UDP.Close(id)
	case "getSockName":
		addr, err := c.UDP.GetSockName(id)
		return addrToMap(addr), 0, err
	case "getPeerName":
		addr, err := c.UDP.GetPeerName(id)
		return addrToMap(addr), 0, err
	case "getState":
		state, err := c.UDP.GetState(id)
		return state, 0, err
	case "bufferSize":
		kind := udp.BufferRecv
		if req.Get("which", "recv") == "send" {
			kind = udp.BufferSend
		}
		size, err := c.UDP.BufferSize(id, argInt(req, "size", 0), kind)
		return map[string]int{"size": size}, 0, err
	default:
		return nil, 0, kernelerr.NotFound("ENOTFOUND", "kernel: unknown udp operation "+req.Path)
	}
}

func (c *Core) routeTimers(req *ipc.Request) (any, uint64, error) {
	switch req.Path {
	// IPC-created timers emit a seq-correlated event on each firing; the
	// JavaScript side matches it back to the callback it registered under
	// that seq.
	case "setTimeout":
		ms := argInt(req, "ms", 0)
		seq := req.Seq
		id := c.Timers.SetTimeout(time.Duration(ms)*time.Millisecond, func(timers.Cancel) {
			c.Emit("timers.timeout", map[string]string{"seq": seq}, 0)
		})
		return map[string]uint64{"id": id}, 0, nil
	case "setInterval":
		ms := argInt(req, "ms", 0)
		seq := req.Seq
		id := c.Timers.SetInterval(time.Duration(ms)*time.Millisecond, func(timers.Cancel) {
			c.Emit("timers.interval", map[string]string{"seq": seq}, 0)
		})
		return map[string]uint64{"id": id}, 0, nil
	case "setImmediate":
		seq := req.Seq
		id := c.Timers.SetImmediate(func(timers.Cancel) {
			c.Emit("timers.immediate", map[string]string{"seq": seq}, 0)
		})
		return map[string]uint64{"id": id}, 0, nil
	case "clearTimeout", "clearInterval", "clearImmediate":
		ok := c.Timers.Clear(argUint64(req, "id"))
		return map[string]bool{"cleared": ok}, 0, nil
	default:
		return nil, 0, kernelerr.NotFound("ENOTFOUND", "kernel: unknown timers operation "+req.Path)
	}
}

func (c *Core) routeProcess(ctx context.Context, req *ipc.Request) (any, uint64, error) {
	switch req.Path {
	case "spawn":
		argv := splitArgv(req.Get("argv", ""))
		id, err := c.Process.Spawn(argv, process.Options{
			Cwd:         req.Get("cwd", ""),
			AllowStdin:  argBool(req, "allowStdin"),
			AllowStdout: !req.Has("allowStdout") || argBool(req, "allowStdout"),
			AllowStderr: !req.Has("allowStderr") || argBool(req, "allowStderr"),
		}, func(source process.StreamSource, postID uint64) {
			c.Emit("process.spawn", map[string]string{"source": string(source)}, postID)
		}, func(status string, code int) {
			c.Emit("process.spawn", map[string]any{"status": status, "code": code}, 0)
		})
		return map[string]uint64{"id": id}, 0, err
	case "exec":
		argv := splitArgv(req.Get("argv", ""))
		timeout := time.Duration(argInt(req, "timeout", 0)) * time.Millisecond
		killSig := process.Signal(argInt(req, "killSignal", int(process.SignalTerm)))
		stdout, stderr, code, err := c.Process.Exec(ctx, argv, process.Options{
			Cwd:         req.Get("cwd", ""),
			AllowStdout: true,
			AllowStderr: true,
			Timeout:     timeout,
			KillSignal:  killSig,
		})
		return map[string]any{
			"stdout": string(stdout),
			"stderr": string(stderr),
			"code":   code,
		}, 0, err
	case "kill":
		return nil, 0, c.Process.Kill(argUint64(req, "id"), process.Signal(argInt(req, "signal", int(process.SignalTerm))))
	case "write":
		n, err := c.Process.Write(argUint64(req, "id"), []byte(req.Value))
		return map[string]int{"written": n}, 0, err
	default:
		return nil, 0, kernelerr.NotFound("ENOTFOUND", "kernel: unknown process operation "+req.Path)
	}
}

func (c *Core) routeDNS(ctx context.Context, req *ipc.Request) (any, uint64, error) {
	if req.Path != "lookup" && req.Path != "" {
		return nil, 0, kernelerr.NotFound("ENOTFOUND", "kernel: unknown dns operation "+req.Path)
	}
	family := dnsresolve.Family(argInt(req, "family", 0))
	result, err := c.DNS.Lookup(ctx, req.Get("hostname", ""), family)
	return result, 0, err
}

func (c *Core) routePost(req *ipc.Request) (any, uint64, error) {
	id := argUint64(req, "id")
	switch req.Path {
	case "", "get":
		p, ok := c.Posts.Get(id)
		if !ok {
			return nil, 0, kernelerr.NotFound("NOT_FOUND_ERR", "kernel: unknown post id")
		}
		return map[string]string{"headers": p.Headers}, p.ID, nil
	case "remove":
		c.Posts.Remove(id)
		return nil, 0, nil
	default:
		return nil, 0, kernelerr.NotFound("ENOTFOUND", "kernel: unknown post operation "+req.Path)
	}
}

func addrToMap(addr interface{ String() string }) map[string]string {
	if addr == nil {
		return nil
	}
	return map[string]string{"address": addr.String()}
}

func splitArgv(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	cur := ""
	for _, r := range s {
		if r == ' ' {
			if cur != "" {
				out = append(out, cur)
				cur = ""
			}
			continue
		}
		cur += string(r)
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}
