package observers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nativebridge/kernel/eventloop"
)

func newTestLoop(t *testing.T) *eventloop.Loop {
	t.Helper()
	loop := eventloop.New()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go loop.Run(ctx)
	return loop
}

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	loop := newTestLoop(t)
	ns := NewNetworkStatus(loop)

	got := make(chan NetworkStatusEvent, 2)
	ns.Subscribe(func(e NetworkStatusEvent) { got <- e })
	ns.Subscribe(func(e NetworkStatusEvent) { got <- e })

	ns.Publish(NetworkStatusEvent{Online: true, Kind: "wifi"})

	for i := 0; i < 2; i++ {
		select {
		case e := <-got:
			assert.True(t, e.Online)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for fan-out delivery")
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	loop := newTestLoop(t)
	geo := NewGeolocation(loop)

	got := make(chan GeolocationEvent, 1)
	id := geo.Subscribe(func(e GeolocationEvent) { got <- e })
	geo.Unsubscribe(id)

	geo.Publish(GeolocationEvent{Latitude: 1, Longitude: 2})

	select {
	case <-got:
		t.Fatal("unsubscribed callback should not have been invoked")
	case <-time.After(100 * time.Millisecond):
	}
	require.Equal(t, 0, geo.Count())
}
