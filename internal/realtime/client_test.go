package realtime

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
)

func newWSServer(t *testing.T) (*httptest.Server, *Hub) {
	t.Helper()
	hub := NewHub(NewRegistry(), nil)
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		NewClient(hub, ws, r.URL.Query().Get("userId"), 8).Serve()
	}))
	t.Cleanup(srv.Close)
	return srv, hub
}

func dial(t *testing.T, srv *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?userId=" + userID
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

// readUntil reads frames until match accepts one.
func readUntil(t *testing.T, c *websocket.Conn, match func(map[string]any) bool) map[string]any {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		require.NoError(t, c.SetReadDeadline(deadline))
		_, raw, err := c.ReadMessage()
		require.NoError(t, err)
		var m map[string]any
		require.NoError(t, json.Unmarshal(raw, &m))
		if match(m) {
			return m
		}
	}
}

func ofType(kind string) func(map[string]any) bool {
	return func(m map[string]any) bool { return m["type"] == kind }
}

func onlineIs(want ...string) func(map[string]any) bool {
	return func(m map[string]any) bool {
		if m["type"] != KindOnlineUsers {
			return false
		}
		got, _ := m["users"].([]any)
		if len(got) != len(want) {
			return false
		}
		for i := range want {
			if got[i] != want[i] {
				return false
			}
		}
		return true
	}
}

func TestClient_PingPongAndPresence(t *testing.T) {
	srv, _ := newWSServer(t)

	alice := dial(t, srv, "alice")
	readUntil(t, alice, onlineIs("alice"))

	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	readUntil(t, alice, ofType(KindPong))

	bob := dial(t, srv, "bob")
	readUntil(t, alice, onlineIs("alice", "bob"))
	readUntil(t, bob, onlineIs("alice", "bob"))

	require.NoError(t, bob.WriteMessage(websocket.TextMessage, []byte(`{"type":"typing_start","chatId":"c1"}`)))
	m := readUntil(t, alice, ofType(KindTypingIndicator))
	assert.Equal(t, "bob", m["userId"])
	assert.Equal(t, "c1", m["chatId"])
	assert.Equal(t, true, m["isTyping"])

	bob.Close()
	readUntil(t, alice, onlineIs("alice"))
}

func TestClient_MalformedFrameKeepsConnectionOpen(t *testing.T) {
	srv, _ := newWSServer(t)
	alice := dial(t, srv, "alice")
	readUntil(t, alice, onlineIs("alice"))

	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte(`{oops`)))
	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	readUntil(t, alice, ofType(KindPong))
}

func TestClient_ReconnectReplacesOldSocket(t *testing.T) {
	srv, hub := newWSServer(t)

	first := dial(t, srv, "alice")
	readUntil(t, first, onlineIs("alice"))

	second := dial(t, srv, "alice")
	readUntil(t, second, onlineIs("alice"))

	// the replaced socket is closed by the server
	require.NoError(t, first.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		if _, _, err := first.ReadMessage(); err != nil {
			break
		}
	}

	require.Eventually(t, func() bool {
		return len(hub.Registry().ListActive()) == 1
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, second.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	readUntil(t, second, ofType(KindPong))
	assert.Equal(t, []string{"alice"}, hub.Registry().ListActive())
}
