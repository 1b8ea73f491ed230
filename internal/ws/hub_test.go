package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func readPushed(t *testing.T, c *Client) map[string]interface{} {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var event map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &event))
		return event
	case <-time.After(time.Second):
		t.Fatal("no event pushed")
		return nil
	}
}

func TestRegisterAndPush(t *testing.T) {
	h := NewHub()
	c := newClient(nil, "u1")
	h.Register(c)

	h.Push("u1", map[string]string{"type": "searching"})

	event := readPushed(t, c)
	require.Equal(t, "searching", event["type"])
}

func TestPushWithoutConnectionIsDropped(t *testing.T) {
	h := NewHub()
	// Must not panic or block; the reconciler is the durable fallback.
	h.Push("nobody", map[string]string{"type": "match_found"})
}

func TestRegisterReplacesOldConnection(t *testing.T) {
	h := NewHub()
	c1 := newClient(nil, "u1")
	c2 := newClient(nil, "u1")

	h.Register(c1)
	h.Register(c2)

	// The replaced client's channel is closed so its write pump tears down.
	select {
	case _, ok := <-c1.send:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("old client send channel not closed")
	}

	h.Push("u1", map[string]string{"type": "searching"})
	event := readPushed(t, c2)
	require.Equal(t, "searching", event["type"])
}

func TestUnregisterOnlyRemovesSameInstance(t *testing.T) {
	h := NewHub()
	c1 := newClient(nil, "u1")
	c2 := newClient(nil, "u1")

	h.Register(c1)
	h.Register(c2)

	// A late unregister from the replaced connection must not evict the
	// newer one.
	require.False(t, h.Unregister(c1))
	h.Push("u1", map[string]string{"type": "searching"})
	readPushed(t, c2)

	require.True(t, h.Unregister(c2))
	require.False(t, h.Unregister(c2))
}

func TestTrySendAfterShutdown(t *testing.T) {
	c := newClient(nil, "u1")
	c.shutdown()
	c.shutdown() // idempotent
	require.False(t, c.trySend([]byte("{}")))
}

func TestTrySendFullBuffer(t *testing.T) {
	c := newClient(nil, "u1")
	for i := 0; i < sendBuffer; i++ {
		require.True(t, c.trySend([]byte("{}")))
	}
	require.False(t, c.trySend([]byte("{}")))
}
