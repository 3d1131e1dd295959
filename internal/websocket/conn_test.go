package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialStream(t *testing.T, hub *Hub) *websocket.Conn {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, &Conn{Conn: conn}, "dashboard")
		hub.Register(client)
		go client.Deliver()
		go client.Listen()
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	peer, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { peer.Close() })

	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.clients) == 1
	}, time.Second, 10*time.Millisecond)
	return peer
}

func TestClient_SubscribeOverSocket(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	peer := dialStream(t, hub)

	require.NoError(t, peer.WriteMessage(websocket.BinaryMessage, []byte(`{"type":"subscribe","topic":"analytics"}`)))
	require.NoError(t, peer.WriteJSON(ClientMessage{Type: "subscribe", Topic: TopicAnalytics}))
	require.Eventually(t, func() bool {
		return hub.SubscriberCount(TopicAnalytics) == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(TopicAnalytics, "rollup.completed", map[string]int{"days": 2}))
	require.NoError(t, hub.Publish(TopicAnalytics, "sync.completed", map[string]int{"orders_synced": 3}))

	require.NoError(t, peer.SetReadDeadline(time.Now().Add(time.Second)))
	var first, second Event
	require.NoError(t, peer.ReadJSON(&first))
	require.NoError(t, peer.ReadJSON(&second))
	assert.Equal(t, "rollup.completed", first.Type)
	assert.Equal(t, "sync.completed", second.Type)
	assert.Equal(t, TopicAnalytics, second.Topic)
}

func TestClient_DisconnectUnregisters(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	peer := dialStream(t, hub)

	require.NoError(t, peer.WriteJSON(ClientMessage{Type: "subscribe", Topic: TopicAnalytics}))
	require.Eventually(t, func() bool {
		return hub.SubscriberCount(TopicAnalytics) == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, peer.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))

	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.clients) == 0
	}, time.Second, 10*time.Millisecond)
	assert.Zero(t, hub.SubscriberCount(TopicAnalytics))
}
