package realtime

import (
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub() *Hub {
	return NewHub(slog.New(slog.DiscardHandler))
}

func newTestClient(id string) *Client {
	return &Client{ID: id, Send: make(chan []byte, 4)}
}

func receive(t *testing.T, client *Client) envelope {
	t.Helper()
	select {
	case raw := <-client.Send:
		var env envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		return env
	default:
		t.Fatal("expected a buffered message")
		return envelope{}
	}
}

func TestBroadcastStaysInsideCompanyRoom(t *testing.T) {
	hub := newTestHub()

	acme := newTestClient("acme-admin")
	globex := newTestClient("globex-admin")
	hub.Register(acme)
	hub.Register(globex)
	hub.JoinCompany(acme, 1)
	hub.JoinCompany(globex, 2)

	hub.BroadcastToCompany(1, "attendanceUpdated", map[string]int{"recordId": 7})

	env := receive(t, acme)
	assert.Equal(t, "attendanceUpdated", env.Event)
	assert.False(t, env.At.IsZero())
	assert.Empty(t, globex.Send)
}

func TestJoinCompanyMovesRooms(t *testing.T) {
	hub := newTestHub()

	client := newTestClient("admin")
	hub.Register(client)
	hub.JoinCompany(client, 1)
	hub.JoinCompany(client, 2)

	assert.Equal(t, 0, hub.RoomSize(1))
	assert.Equal(t, 1, hub.RoomSize(2))

	// A client that was never registered cannot join.
	stranger := newTestClient("stranger")
	hub.JoinCompany(stranger, 2)
	assert.Equal(t, 1, hub.RoomSize(2))
}

func TestBindStationEvictsPreviousConnection(t *testing.T) {
	hub := newTestHub()

	old := newTestClient("conn-1")
	replacement := newTestClient("conn-2")
	hub.Register(old)
	hub.Register(replacement)

	hub.BindStation(old, 42)
	hub.BindStation(replacement, 42)

	// The superseded connection is closed, the new one is live.
	_, open := <-old.Send
	assert.False(t, open)

	hub.BroadcastToCompany(1, "ignored", nil) // must not panic on the closed client

	hub.EvictStation(42)
	_, open = <-replacement.Send
	assert.False(t, open)
}

func TestUnregisterIsIdempotent(t *testing.T) {
	hub := newTestHub()

	client := newTestClient("admin")
	hub.Register(client)
	hub.JoinCompany(client, 1)

	hub.Unregister(client)
	// Second call must not double-close the send channel.
	hub.Unregister(client)
	assert.Equal(t, 0, hub.RoomSize(1))
}

func TestEvictAfterUnregisterIsHarmless(t *testing.T) {
	hub := newTestHub()

	client := newTestClient("station")
	hub.Register(client)
	hub.BindStation(client, 7)
	hub.Unregister(client)

	hub.EvictStation(7)
}

func TestSlowClientMissesEvents(t *testing.T) {
	hub := newTestHub()

	slow := &Client{ID: "slow", Send: make(chan []byte, 1)}
	hub.Register(slow)
	hub.JoinCompany(slow, 1)

	hub.BroadcastToCompany(1, "first", nil)
	hub.BroadcastToCompany(1, "second", nil) // dropped, buffer full

	env := receive(t, slow)
	assert.Equal(t, "first", env.Event)
	assert.Empty(t, slow.Send)
}
