package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nativebridge/kernel/eventloop"
	"github.com/nativebridge/kernel/kernelerr"
	"github.com/nativebridge/kernel/post"
)

func newTestModule(t *testing.T) *Module {
	t.Helper()
	loop := eventloop.New()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go loop.Run(ctx)
	return New(loop, post.New())
}

func TestMkdirRecursiveTreatsExistsAsSuccess(t *testing.T) {
	m := newTestModule(t)
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b", "c")

	require.NoError(t, m.Mkdir(nested, 0o755, true))
	// second call over the same tree must still succeed (EEXIST as success)
	require.NoError(t, m.Mkdir(nested, 0o755, true))

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestMkdirNonRecursiveFailsOnExistingPath(t *testing.T) {
	m := newTestModule(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "once")

	require.NoError(t, m.Mkdir(path, 0o755, false))

	err := m.Mkdir(path, 0o755, false)
	require.Error(t, err)
	var kerr *kernelerr.Error
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, "EEXIST", kerr.Code)
}

func TestCloseOpenDescriptorsPreservesRetained(t *testing.T) {
	m := newTestModule(t)
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.txt")
	pathB := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(pathA, []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(pathB, []byte("b"), 0o644))

	idA, err := m.Open(pathA, os.O_RDONLY, 0)
	require.NoError(t, err)
	idB, err := m.Open(pathB, os.O_RDONLY, 0)
	require.NoError(t, err)

	require.NoError(t, m.RetainOpenDescriptor(idA))

	m.CloseOpenDescriptors(true)

	open := m.GetOpenDescriptors()
	assert.Contains(t, open, idA)
	assert.NotContains(t, open, idB)
}

func TestReadProducesPostWithOctetStreamHeaders(t *testing.T) {
	m := newTestModule(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "f.bin")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	id, err := m.Open(path, os.O_RDONLY, 0)
	require.NoError(t, err)

	postID, err := m.Read(id, 11, 0)
	require.NoError(t, err)

	p, ok := m.posts.Get(postID)
	require.True(t, ok)
	assert.Equal(t, []byte("hello world"), p.Body)
	assert.Contains(t, p.Headers, "content-type: application/octet-stream")
	assert.Contains(t, p.Headers, "content-length: 11")
}
