package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jps1990/Night-Shade-V2/internal/event"
)

// newHubClient builds a client wired to the hub only. The hub loop never
// touches the underlying connection, so none is needed here.
func newHubClient(h *Hub, buf int, snapshot func() []byte) *Client {
	return &Client{hub: h, send: make(chan []byte, buf), snapshot: snapshot}
}

func recv(t *testing.T, ch chan []byte) []byte {
	t.Helper()
	select {
	case b, ok := <-ch:
		require.True(t, ok, "send channel closed unexpectedly")
		return b
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func recvClosed(t *testing.T, ch chan []byte) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("send channel never closed")
		}
	}
}

func TestRegisterDeliversSnapshotBeforeBroadcasts(t *testing.T) {
	h := NewHub()
	go h.Run()

	c := newHubClient(h, 8, func() []byte { return []byte(`{"type":"init"}`) })
	h.register <- c

	h.Publish(event.Event{Type: event.NewMessage})

	first := recv(t, c.send)
	assert.JSONEq(t, `{"type":"init"}`, string(first))
	second := recv(t, c.send)
	assert.Contains(t, string(second), event.NewMessage)
}

func TestBroadcastFansOutToAllClients(t *testing.T) {
	h := NewHub()
	go h.Run()

	a := newHubClient(h, 8, nil)
	b := newHubClient(h, 8, nil)
	h.register <- a
	h.register <- b

	h.Publish(event.Event{Type: event.RoomCreated})

	assert.Contains(t, string(recv(t, a.send)), event.RoomCreated)
	assert.Contains(t, string(recv(t, b.send)), event.RoomCreated)
}

func TestBroadcastPreservesPublishOrder(t *testing.T) {
	h := NewHub()
	go h.Run()

	c := newHubClient(h, 8, nil)
	h.register <- c

	h.Publish(event.Event{Type: event.UserJoined})
	h.Publish(event.Event{Type: event.UserLeft})

	assert.Contains(t, string(recv(t, c.send)), event.UserJoined)
	assert.Contains(t, string(recv(t, c.send)), event.UserLeft)
}

func TestUnregisterClosesSendChannel(t *testing.T) {
	h := NewHub()
	go h.Run()

	c := newHubClient(h, 8, nil)
	h.register <- c
	h.unregister <- c

	recvClosed(t, c.send)
}

func TestSlowConsumerIsEvicted(t *testing.T) {
	h := NewHub()
	go h.Run()

	c := newHubClient(h, 1, nil)
	h.register <- c

	// the first event fills the buffer, the second finds it full
	h.Publish(event.Event{Type: event.NewMessage})
	h.Publish(event.Event{Type: event.NewMessage})

	recvClosed(t, c.send)
}
