package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jayabed45/unihub-sub000/models"
	"github.com/Jayabed45/unihub-sub000/utils"
)

func newTestHub(t *testing.T) (*Hub, *PresenceRegistry, string) {
	t.Helper()

	logger := utils.NewLogger("error")
	registry := NewPresenceRegistry(logger)
	hub := NewHub(registry, logger)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.HandleConnection(conn)
	}))
	t.Cleanup(srv.Close)

	return hub, registry, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dialAndSubscribe(t *testing.T, url, userID, role string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	data, err := json.Marshal(models.SubscribePayload{UserID: userID, Role: role})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(models.SocketMessage{
		Event: models.SocketEventSubscribe,
		Data:  data,
	}))

	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) models.SocketMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg models.SocketMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHub_SubscribeRegistersPresence(t *testing.T) {
	t.Parallel()
	_, registry, url := newTestHub(t)

	conn := dialAndSubscribe(t, url, "alice", "Participant")

	assert.Eventually(t, func() bool {
		return registry.IsOnline("alice")
	}, 2*time.Second, 10*time.Millisecond)

	_ = conn.Close()

	assert.Eventually(t, func() bool {
		return !registry.IsOnline("alice")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHub_AnonymousConnectionIsNotPresent(t *testing.T) {
	t.Parallel()
	hub, registry, url := newTestHub(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	assert.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Empty(t, registry.OnlineUserIDs())
}

func TestHub_PushToUserConnections(t *testing.T) {
	t.Parallel()
	hub, registry, url := newTestHub(t)

	tab1 := dialAndSubscribe(t, url, "alice", "Leader")
	tab2 := dialAndSubscribe(t, url, "alice", "Leader")

	assert.Eventually(t, func() bool {
		return len(registry.ConnectionIDs("alice")) == 2
	}, 2*time.Second, 10*time.Millisecond)

	frame, err := json.Marshal(models.SocketMessage{Event: models.SocketEventRefresh})
	require.NoError(t, err)
	for _, connID := range registry.ConnectionIDs("alice") {
		hub.PushToConnection(connID, frame)
	}

	// Both tabs receive the push
	assert.Equal(t, models.SocketEventRefresh, readFrame(t, tab1).Event)
	assert.Equal(t, models.SocketEventRefresh, readFrame(t, tab2).Event)
}

func TestHub_PushToAllReachesAnonymousClients(t *testing.T) {
	t.Parallel()
	hub, _, url := newTestHub(t)

	identified := dialAndSubscribe(t, url, "alice", "Participant")

	anonymous, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = anonymous.Close() })

	assert.Eventually(t, func() bool {
		return hub.ClientCount() == 2
	}, 2*time.Second, 10*time.Millisecond)

	frame, err := json.Marshal(models.SocketMessage{Event: models.SocketEventNew})
	require.NoError(t, err)
	hub.PushToAll(frame)

	assert.Equal(t, models.SocketEventNew, readFrame(t, identified).Event)
	assert.Equal(t, models.SocketEventNew, readFrame(t, anonymous).Event)
}

func TestHub_PushToUnknownConnectionIsDropped(t *testing.T) {
	t.Parallel()
	hub, _, _ := newTestHub(t)

	// Must not panic or error
	hub.PushToConnection("no-such-conn", []byte(`{"event":"event:new"}`))
}

func TestHub_SecondSubscribeKeepsFirstIdentity(t *testing.T) {
	t.Parallel()
	_, registry, url := newTestHub(t)

	conn := dialAndSubscribe(t, url, "alice", "Participant")

	assert.Eventually(t, func() bool {
		return registry.IsOnline("alice")
	}, 2*time.Second, 10*time.Millisecond)

	// A connection keeps one identity for its lifetime
	data, err := json.Marshal(models.SubscribePayload{UserID: "mallory", Role: "Administrator"})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(models.SocketMessage{
		Event: models.SocketEventSubscribe,
		Data:  data,
	}))

	assert.Never(t, func() bool {
		return registry.IsOnline("mallory")
	}, 200*time.Millisecond, 20*time.Millisecond)
	assert.True(t, registry.IsOnline("alice"))
}

func TestHub_MalformedFrameIsIgnored(t *testing.T) {
	t.Parallel()
	hub, registry, url := newTestHub(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	// Connection survives and can still identify afterwards
	data, err := json.Marshal(models.SubscribePayload{UserID: "alice", Role: "Participant"})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(models.SocketMessage{
		Event: models.SocketEventSubscribe,
		Data:  data,
	}))

	assert.Eventually(t, func() bool {
		return registry.IsOnline("alice")
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, hub.ClientCount())
}
