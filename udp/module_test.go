package udp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nativebridge/kernel/eventloop"
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

func TestUDPEcho(t *testing.T) {
	m := newTestModule(t)

	idA, err := m.Bind(0, "127.0.0.1", 0, false)
	require.NoError(t, err)

	received := make(chan Event, 1)
	require.NoError(t, m.ReadStart(idA, func(postID uint64, ev Event) {
		received <- ev
	}, nil))

	localA, err := m.GetSockName(idA)
	require.NoError(t, err)

	idB, n, err := m.Send(0, []byte("hi"), "127.0.0.1", localA.Port, true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	select {
	case ev := <-received:
		assert.Equal(t, 2, ev.Bytes)
		assert.Equal(t, "127.0.0.1", ev.Address)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for datagram")
	}

	_, err = m.GetState(idB)
	assert.Error(t, err, "ephemeral peer should have auto-closed and been removed")
}

func TestBindRejectsDoubleBind(t *testing.T) {
	m := newTestModule(t)
	id, err := m.Bind(0, "127.0.0.1", 0, false)
	require.NoError(t, err)

	_, err = m.Bind(id, "127.0.0.1", 0, false)
	require.Error(t, err)
}

func TestSendAfterReadStopAndCloseFails(t *testing.T) {
	m := newTestModule(t)
	id, err := m.Bind(0, "127.0.0.1", 0, false)
	require.NoError(t, err)
	require.NoError(t, m.ReadStart(id, func(uint64, Event) {}, nil))
	require.NoError(t, m.ReadStop(id))
	require.NoError(t, m.Close(id))

	_, _, err = m.Send(id, []byte("x"), "127.0.0.1", 1, false)
	require.Error(t, err)
}
