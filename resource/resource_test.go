package resource

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCachedReusesFirstPair(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	r := New(path)
	body, err := r.Read(true)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))

	require.NoError(t, os.WriteFile(path, []byte("changed"), 0o644))
	again, err := r.Read(true)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(again), "cached read must reuse the first (bytes, size) pair")

	fresh, err := r.Read(false)
	require.NoError(t, err)
	assert.Equal(t, "changed", string(fresh))
}

func TestMimeTypeExtensionTable(t *testing.T) {
	r := New("/some/path/page.html")
	assert.Equal(t, "text/html", r.MimeType())
}

func TestMimeTypeNeverErrorsOnMissingFile(t *testing.T) {
	r := New("/does/not/exist/file.unknownext")
	assert.NotEmpty(t, r.MimeType())
}

func TestStartStopAccessingRefCount(t *testing.T) {
	r := New("/tmp/x")
	assert.False(t, r.Accessing())
	r.StartAccessing()
	r.StartAccessing()
	assert.True(t, r.Accessing())
	r.StopAccessing()
	assert.True(t, r.Accessing())
	r.StopAccessing()
	assert.False(t, r.Accessing())
}
