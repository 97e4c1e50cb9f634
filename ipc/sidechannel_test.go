package ipc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBodyRoundTrip(t *testing.T) {
	payload := []byte{0x00, 0x01, 0xff, 'h', 'i'}
	frame := EncodeBody(3, "7", payload)

	body, err := DecodeBody(frame)
	require.NoError(t, err)
	assert.Equal(t, 3, body.Index)
	assert.Equal(t, "7", body.Seq)
	assert.Equal(t, payload, body.Bytes)
}

func TestBodyHeaderIsFixedWidth(t *testing.T) {
	frame := EncodeBody(0, "", nil)
	assert.Len(t, frame, 2+24)
	assert.Equal(t, byte(0x62), frame[0])
	assert.Equal(t, byte(0x35), frame[1])
}

func TestDecodeBodyRejectsMissingMagic(t *testing.T) {
	frame := EncodeBody(1, "s", []byte("x"))
	frame[0] = 0x00
	_, err := DecodeBody(frame)
	require.Error(t, err)
}

func TestDecodeBodyRejectsShortFrame(t *testing.T) {
	_, err := DecodeBody([]byte{0x62, 0x35, ' '})
	require.Error(t, err)
}

func TestDecodeBodyEmptyPayload(t *testing.T) {
	body, err := DecodeBody(EncodeBody(0, "9", nil))
	require.NoError(t, err)
	assert.Empty(t, body.Bytes)
	assert.Equal(t, "9", body.Seq)
}
