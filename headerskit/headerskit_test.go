package headerskit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTrimsValues(t *testing.T) {
	raw := "content-type:   application/octet-stream  \ncontent-length: 11\n"
	got := Parse(raw)
	assert.Equal(t, "application/octet-stream", got["content-type"])
	assert.Equal(t, "11", got["content-length"])
}

func TestBuildParseRoundTrip(t *testing.T) {
	headers := map[string]string{
		"content-type":   "application/octet-stream",
		"content-length": "5",
	}
	built := Build(headers)
	assert.Equal(t, headers, Parse(built))
}

func TestGet(t *testing.T) {
	raw := "content-type: text/plain\ncontent-length: 3"
	v, ok := Get(raw, "content-length")
	assert.True(t, ok)
	assert.Equal(t, "3", v)

	_, ok = Get(raw, "missing")
	assert.False(t, ok)
}
