package kernel

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nativebridge/kernel/ipc"
	"github.com/nativebridge/kernel/observers"
)

// fakeWebView records every script the kernel evaluates, standing in for
// the out-of-scope embedded web view.
type fakeWebView struct {
	mu      sync.Mutex
	scripts []string
	notify  chan string
}

func newFakeWebView() *fakeWebView {
	return &fakeWebView{notify: make(chan string, 64)}
}

func (f *fakeWebView) Evaluate(script string) error {
	f.mu.Lock()
	f.scripts = append(f.scripts, script)
	f.mu.Unlock()
	f.notify <- script
	return nil
}

func (f *fakeWebView) Reload() {}

func waitForScript(t *testing.T, wv *fakeWebView, substr string) string {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case s := <-wv.notify:
			if strings.Contains(s, substr) {
				return s
			}
		case <-deadline:
			t.Fatalf("no evaluated script contained %q", substr)
		}
	}
}

func newTestCore(t *testing.T, opts ...Option) *Core {
	t.Helper()
	core := New(opts...)
	core.Run()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = core.Stop(ctx)
	})
	return core
}

func TestSpawnRouteStreamsStdoutAndEmitsExit(t *testing.T) {
	wv := newFakeWebView()
	core := newTestCore(t, WithWebView(wv))

	resp := core.HandleIPC(context.Background(), "ipc://process/spawn?argv=echo hello")
	var env struct {
		Data struct {
			ID uint64 `json:"id"`
		} `json:"data"`
		Err *struct{ Message string } `json:"err"`
	}
	require.NoError(t, json.Unmarshal(resp, &env))
	require.Nil(t, env.Err)
	require.NotZero(t, env.Data.ID)

	chunk := waitForScript(t, wv, `\"source\":\"stdout\"`)
	assert.Contains(t, chunk, "ipc://post?id=")

	waitForScript(t, wv, `\"status\":\"exit\"`)
	waitForScript(t, wv, `\"status\":\"close\"`)
}

func TestHandleIPCFrameCarriesBinaryBody(t *testing.T) {
	core := newTestCore(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "frame.bin")

	ctx := context.Background()
	openResp := core.HandleIPC(ctx, "ipc://fs/open?path="+path+"&flag="+itoa(os.O_CREATE|os.O_RDWR))
	var open struct {
		Data struct {
			ID uint64 `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(openResp, &open))

	payload := []byte{0x00, 0x01, 0x02, 'o', 'k'}
	frame := ipc.EncodeBody(0, "9", payload)
	writeResp := core.HandleIPCFrame(ctx, "ipc://fs/write?id="+itoa(int(open.Data.ID))+"&offset=0", frame)
	var write struct {
		Seq  string `json:"seq"`
		Data struct {
			Written int `json:"written"`
		} `json:"data"`
		Err *struct{ Message string } `json:"err"`
	}
	require.NoError(t, json.Unmarshal(writeResp, &write))
	require.Nil(t, write.Err)
	assert.Equal(t, len(payload), write.Data.Written)
	assert.Equal(t, "9", write.Seq, "frame seq must backfill a seq-less URI")

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestTimerRouteEmitsOnFire(t *testing.T) {
	wv := newFakeWebView()
	core := newTestCore(t, WithWebView(wv))

	resp := core.HandleIPC(context.Background(), "ipc://timers/setTimeout?ms=10&seq=t1")
	var env struct {
		Data struct {
			ID uint64 `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp, &env))
	require.NotZero(t, env.Data.ID)

	fired := waitForScript(t, wv, "timers.timeout")
	assert.Contains(t, fired, `\"seq\":\"t1\"`)
}

func TestObserverPublishReachesWebView(t *testing.T) {
	wv := newFakeWebView()
	core := newTestCore(t, WithWebView(wv))

	core.NetworkStatus.Publish(observers.NetworkStatusEvent{Online: true, Kind: "wifi"})

	script := waitForScript(t, wv, "networkStatus")
	assert.Contains(t, script, `\"online\":true`)
}

func TestWatchRouteEmitsDebouncedChange(t *testing.T) {
	wv := newFakeWebView()
	core := newTestCore(t, WithWebView(wv))

	dir := t.TempDir()
	resp := core.HandleIPC(context.Background(), "ipc://fs/watch?path="+dir)
	var env struct {
		Data struct {
			ID uint64 `json:"id"`
		} `json:"data"`
		Err *struct{ Message string } `json:"err"`
	}
	require.NoError(t, json.Unmarshal(resp, &env))
	require.Nil(t, env.Err)
	watchID := env.Data.ID

	require.NoError(t, os.WriteFile(filepath.Join(dir, "touched.txt"), []byte("x"), 0o644))

	script := waitForScript(t, wv, "fs.watch")
	assert.Contains(t, script, "touched.txt")

	stopResp := core.HandleIPC(context.Background(), "ipc://fs/stopWatch?id="+itoa(int(watchID)))
	var stop struct {
		Err *struct{ Message string } `json:"err"`
	}
	require.NoError(t, json.Unmarshal(stopResp, &stop))
	require.Nil(t, stop.Err)
}
