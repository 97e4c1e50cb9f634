package kernel

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSRoundTripViaIPC(t *testing.T) {
	core := New()
	core.Run()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = core.Stop(ctx)
	})

	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")

	ctx := context.Background()

	openResp := core.HandleIPC(ctx, "ipc://fs/open?path="+path+"&flag="+itoa(os.O_CREATE|os.O_RDWR))
	var open struct {
		Data struct {
			ID uint64 `json:"id"`
		} `json:"data"`
		Err *struct{ Message string } `json:"err"`
	}
	require.NoError(t, json.Unmarshal(openResp, &open))
	require.Nil(t, open.Err, "open should succeed")
	id := open.Data.ID
	require.NotZero(t, id)

	writeResp := core.HandleIPC(ctx, "ipc://fs/write?id="+itoa(int(id))+"&value=hello")
	var write struct {
		Err *struct{ Message string } `json:"err"`
	}
	require.NoError(t, json.Unmarshal(writeResp, &write))
	require.Nil(t, write.Err)

	readResp := core.HandleIPC(ctx, "ipc://fs/read?id="+itoa(int(id))+"&len=5&offset=0")
	var read struct {
		Data struct {
			ID uint64 `json:"id"`
		} `json:"data"`
		Post string `json:"post"`
	}
	require.NoError(t, json.Unmarshal(readResp, &read))
	require.NotEmpty(t, read.Post)

	p, ok := core.Posts.Get(read.Data.ID)
	require.True(t, ok)
	assert.Equal(t, "hello", string(p.Body))

	closeResp := core.HandleIPC(ctx, "ipc://fs/close?id="+itoa(int(id)))
	var closeEnv struct {
		Err *struct{ Message string } `json:"err"`
	}
	require.NoError(t, json.Unmarshal(closeResp, &closeEnv))
	require.Nil(t, closeEnv.Err)
}

func TestDiagnosticsViaIPC(t *testing.T) {
	core := New()
	core.Run()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = core.Stop(ctx)
	})

	resp := core.HandleIPC(context.Background(), "ipc://diagnostics")
	var env struct {
		Data struct {
			Posts int `json:"posts"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp, &env))
	assert.Equal(t, 0, env.Data.Posts)
}

func TestUnknownModuleReturnsErrEnvelope(t *testing.T) {
	core := New()
	core.Run()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = core.Stop(ctx)
	})

	resp := core.HandleIPC(context.Background(), "ipc://nope/thing")
	var env struct {
		Err *struct {
			Type string `json:"type"`
		} `json:"err"`
	}
	require.NoError(t, json.Unmarshal(resp, &env))
	require.NotNil(t, env.Err)
	assert.Equal(t, "NotFoundError", env.Err.Type)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
