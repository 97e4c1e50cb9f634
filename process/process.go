// Package process implements the kernel's ChildProcess module:
// spawn/exec with stdio capture, optional timeout-kill, and
// process-group signaling.
//
// It is built on os/exec plus syscall process-group primitives (see
// killgroup_unix.go/killgroup_windows.go).
package process

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/nativebridge/kernel/eventloop"
	"github.com/nativebridge/kernel/kernelerr"
	"github.com/nativebridge/kernel/kernellog"
	"github.com/nativebridge/kernel/post"
	"github.com/nativebridge/kernel/registry"
)

// StdioBufferSize is the per-pipe buffer used when streaming
// stdout/stderr.
const StdioBufferSize = 128 * 1024

// Options configures Spawn/Exec.
type Options struct {
	Cwd          string
	Env          []string
	AllowStdin   bool
	AllowStdout  bool
	AllowStderr  bool
	Timeout      time.Duration // Exec only
	KillSignal   Signal
}

// StreamSource tags which stdio stream a streamed chunk came from, the
// `{source: stdout|stderr}` discriminator on each streamed Post.
type StreamSource string

const (
	SourceStdout StreamSource = "stdout"
	SourceStderr StreamSource = "stderr"
)

// Process is one child process handle.
type Process struct {
	mu     sync.Mutex
	id     uint64
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	exited bool
	code   int
}

// Module owns the Process handle table.
type Module struct {
	loop  *eventloop.Loop
	posts *post.Store
	procs *registry.Table[Process]
}

// New creates a process module bound to loop, registering streamed
// stdio chunks as Posts in posts.
func New(loop *eventloop.Loop, posts *post.Store) *Module {
	return &Module{loop: loop, posts: posts, procs: registry.New[Process]()}
}

func (m *Module) process(id uint64) (*Process, error) {
	p, ok := m.procs.Get(id)
	if !ok {
		return nil, kernelerr.NotFound("ENOTFOUND", "process: unknown process id")
	}
	return p, nil
}

// OnStream is invoked (on the loop goroutine) for each streamed stdio
// chunk during Spawn, carrying its Post id.
type OnStream func(source StreamSource, postID uint64)

// OnExit is invoked once with the exit status, then once more
// ({status: close}) after cleanup; never a third time.
type OnExit func(status string, code int)

// Spawn starts argv as a child process and streams its stdout/stderr
// back as Posts. It returns the new process's handle id.
func (m *Module) Spawn(argv []string, opts Options, onStream OnStream, onExit OnExit) (uint64, error) {
	if len(argv) == 0 {
		return 0, kernelerr.Internal("EINVAL", "process: empty argv")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = opts.Cwd
	if opts.Env != nil {
		cmd.Env = opts.Env
	}
	setProcessGroup(cmd)

	p := &Process{cmd: cmd}

	var stdin io.WriteCloser
	if opts.AllowStdin {
		w, err := cmd.StdinPipe()
		if err != nil {
			return 0, kernelerr.Transport("EIO", err)
		}
		stdin = w
	}

	stdoutR, stderrR, err := attachPipes(cmd, opts.AllowStdout, opts.AllowStderr)
	if err != nil {
		return 0, kernelerr.Transport("EIO", err)
	}

	if err := cmd.Start(); err != nil {
		return 0, kernelerr.Transport("ENOENT", err)
	}

	p.stdin = stdin
	id := m.procs.Add(p)
	p.id = id

	var wg sync.WaitGroup
	if stdoutR != nil {
		wg.Add(1)
		go m.streamPipe(&wg, id, stdoutR, SourceStdout, onStream)
	}
	if stderrR != nil {
		wg.Add(1)
		go m.streamPipe(&wg, id, stderrR, SourceStderr, onStream)
	}

	go func() {
		wg.Wait()
		err := cmd.Wait()
		code := exitCode(cmd, err)

		p.mu.Lock()
		p.exited = true
		p.code = code
		p.mu.Unlock()

		_ = m.loop.Dispatch(func() {
			if onExit != nil {
				onExit("exit", code)
				onExit("close", code)
			}
			m.procs.Delete(id)
		})
	}()

	return id, nil
}

func (m *Module) streamPipe(wg *sync.WaitGroup, id uint64, r io.ReadCloser, source StreamSource, onStream OnStream) {
	defer wg.Done()
	defer r.Close()
	buf := make([]byte, StdioBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			headers := "content-type: application/octet-stream"
			postID := m.posts.Create(0, chunk, headers)
			_ = m.loop.Dispatch(func() {
				if onStream != nil {
					onStream(source, postID)
				}
			})
		}
		if err != nil {
			return
		}
	}
}

// Exec runs argv to completion, buffering stdout/stderr in full and
// returning a single result. If opts.Timeout elapses, the process is
// killed with opts.KillSignal (default SIGTERM) and an ETIMEDOUT error
// is returned.
func (m *Module) Exec(ctx context.Context, argv []string, opts Options) (stdout, stderr []byte, code int, err error) {
	if len(argv) == 0 {
		return nil, nil, -1, kernelerr.Internal("EINVAL", "process: empty argv")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = opts.Cwd
	if opts.Env != nil {
		cmd.Env = opts.Env
	}
	setProcessGroup(cmd)

	var outBuf, errBuf bytes.Buffer
	if opts.AllowStdout {
		cmd.Stdout = &outBuf
	}
	if opts.AllowStderr {
		cmd.Stderr = &errBuf
	}

	if startErr := cmd.Start(); startErr != nil {
		return nil, nil, -1, kernelerr.Transport("ENOENT", startErr)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	if opts.Timeout <= 0 {
		waitErr := <-done
		return outBuf.Bytes(), errBuf.Bytes(), exitCode(cmd, waitErr), translateWaitErr(waitErr)
	}

	timer := time.NewTimer(opts.Timeout)
	defer timer.Stop()

	select {
	case waitErr := <-done:
		return outBuf.Bytes(), errBuf.Bytes(), exitCode(cmd, waitErr), translateWaitErr(waitErr)
	case <-timer.C:
		sig := opts.KillSignal
		if sig == 0 {
			sig = SignalTerm
		}
		killGroup(cmd, sig)
		<-done
		kernellog.Get().Warn("process: exec timed out, killed", kernellog.F("argv", argv))
		return outBuf.Bytes(), errBuf.Bytes(), -1, kernelerr.TimedOut("process: exec timed out")
	}
}

func translateWaitErr(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*exec.ExitError); ok {
		return nil // a non-zero exit is reported via code, not err
	}
	return kernelerr.Transport("EIO", err)
}

func exitCode(cmd *exec.Cmd, waitErr error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	if waitErr != nil {
		return -1
	}
	return 0
}

// Write writes data to the process's stdin. Fails with NotSupportedError
// if stdin was not opened (opts.AllowStdin was false).
func (m *Module) Write(id uint64, data []byte) (int, error) {
	p, err := m.process(id)
	if err != nil {
		return 0, err
	}
	p.mu.Lock()
	stdin := p.stdin
	p.mu.Unlock()
	if stdin == nil {
		return 0, kernelerr.NotSupported("ENOTOPEN", "process: stdin was not opened")
	}
	n, writeErr := stdin.Write(data)
	if writeErr != nil {
		return n, kernelerr.Transport("EPIPE", writeErr)
	}
	return n, nil
}

// Kill sends signal to the process, targeting the whole process group on
// POSIX.
func (m *Module) Kill(id uint64, signal Signal) error {
	p, err := m.process(id)
	if err != nil {
		return err
	}
	p.mu.Lock()
	cmd := p.cmd
	exited := p.exited
	p.mu.Unlock()
	if exited {
		return nil
	}
	return killGroup(cmd, signal)
}

// ProcessCount returns the number of currently tracked child processes,
// used by the diagnostics snapshot.
func (m *Module) ProcessCount() int { return m.procs.Len() }

// CloseAll force-kills every live child process, used by Core's shutdown
// sequence.
func (m *Module) CloseAll() {
	for _, id := range m.procs.Ids() {
		if p, ok := m.procs.Get(id); ok {
			p.mu.Lock()
			exited := p.exited
			cmd := p.cmd
			p.mu.Unlock()
			if !exited {
				_ = killGroup(cmd, SignalKill)
			}
		}
	}
}
