package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/technohub6911/smartcropx/internal/data"
)

func decode(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func users(t *testing.T, raw []byte) []string {
	t.Helper()
	var msg OnlineUsersMessage
	require.NoError(t, json.Unmarshal(raw, &msg))
	require.Equal(t, KindOnlineUsers, msg.Type)
	return msg.Users
}

func TestHub_PresenceBroadcastOnRegister(t *testing.T) {
	reg := NewRegistry()
	NewHub(reg, nil)
	a, b := &fakeConn{}, &fakeConn{}

	reg.Register("alice", a)
	reg.Register("bob", b)

	am := a.messages()
	require.Len(t, am, 2)
	assert.Equal(t, []string{"alice"}, users(t, am[0]))
	assert.Equal(t, []string{"alice", "bob"}, users(t, am[1]))

	bm := b.messages()
	require.Len(t, bm, 1)
	assert.Equal(t, []string{"alice", "bob"}, users(t, bm[0]))

	reg.Release("bob", b)
	am = a.messages()
	assert.Equal(t, []string{"alice"}, users(t, am[len(am)-1]))
}

func TestHub_PresenceSkipsUnreadyConnections(t *testing.T) {
	reg := NewRegistry()
	hub := NewHub(reg, nil)
	stuck := &fakeConn{full: true}
	ok := &fakeConn{}
	reg.Register("stuck", stuck)
	reg.Register("ok", ok)

	hub.BroadcastPresence()

	assert.Empty(t, stuck.messages())
	msgs := ok.messages()
	assert.Equal(t, []string{"ok", "stuck"}, users(t, msgs[len(msgs)-1]))
}

func TestHub_TypingExcludesOriginator(t *testing.T) {
	reg := NewRegistry()
	hub := NewHub(reg, nil)
	a, b, c := &fakeConn{}, &fakeConn{}, &fakeConn{}
	reg.Register("alice", a)
	reg.Register("bob", b)
	reg.Register("carol", c)
	before := map[*fakeConn]int{a: len(a.messages()), b: len(b.messages()), c: len(c.messages())}

	hub.BroadcastTyping("chat-1", "alice", true)

	assert.Len(t, a.messages(), before[a])
	for _, conn := range []*fakeConn{b, c} {
		msgs := conn.messages()
		require.Len(t, msgs, before[conn]+1)
		m := decode(t, msgs[len(msgs)-1])
		assert.Equal(t, KindTypingIndicator, m["type"])
		assert.Equal(t, "chat-1", m["chatId"])
		assert.Equal(t, "alice", m["userId"])
		assert.Equal(t, true, m["isTyping"])
	}
}

func TestHub_HandleInbound(t *testing.T) {
	reg := NewRegistry()
	hub := NewHub(reg, nil)
	a, b := &fakeConn{}, &fakeConn{}
	reg.Register("alice", a)
	reg.Register("bob", b)
	na, nb := len(a.messages()), len(b.messages())

	require.NoError(t, hub.HandleInbound("alice", a, []byte(`{"type":"ping"}`)))
	msgs := a.messages()
	require.Len(t, msgs, na+1)
	assert.Equal(t, KindPong, decode(t, msgs[na])["type"])
	assert.Len(t, b.messages(), nb, "pong goes to the sender only")

	// the claimed userId in the frame is ignored; the connection identity wins
	require.NoError(t, hub.HandleInbound("alice", a, []byte(`{"type":"typing_stop","chatId":"c9","userId":"mallory"}`)))
	msgs = b.messages()
	require.Len(t, msgs, nb+1)
	m := decode(t, msgs[nb])
	assert.Equal(t, "alice", m["userId"])
	assert.Equal(t, false, m["isTyping"])

	require.NoError(t, hub.HandleInbound("alice", a, []byte(`{"type":"dance"}`)))
	assert.Len(t, b.messages(), nb+1)

	err := hub.HandleInbound("alice", a, []byte(`{not json`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, data.ErrProtocol))
}

func TestHub_DispatchToClosedConnection(t *testing.T) {
	hub := NewHub(NewRegistry(), nil)
	c := &fakeConn{}
	c.Close()
	assert.False(t, hub.Dispatch(c, KindPong, PongMessage{Type: KindPong}))
}

func TestHub_MirrorsPresenceToRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	mirror := NewRedisPresence(rdb, "")
	reg := NewRegistry()
	NewHub(reg, mirror)

	a := &fakeConn{}
	reg.Register("alice", a)
	reg.Register("bob", &fakeConn{})

	members, err := mirror.Members(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, members)

	reg.Release("alice", a)
	ok, err := mr.SIsMember(DefaultPresenceKey, "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mirror.Reset(context.Background()))
	assert.False(t, mr.Exists(DefaultPresenceKey))
}

func TestHub_MirrorFailureDoesNotBlockBroadcast(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })
	mr.Close()

	reg := NewRegistry()
	NewHub(reg, NewRedisPresence(rdb, ""))
	a := &fakeConn{}
	reg.Register("alice", a)

	require.Len(t, a.messages(), 1)
}

// gatedMirror records the mirrored set and can hold Offline until released.
type gatedMirror struct {
	mu      sync.Mutex
	set     map[string]bool
	entered chan struct{}
	gate    chan struct{}
}

func (m *gatedMirror) Online(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set[userID] = true
	return nil
}

func (m *gatedMirror) Offline(ctx context.Context, userID string) error {
	m.entered <- struct{}{}
	<-m.gate
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.set, userID)
	return nil
}

func (m *gatedMirror) has(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.set[userID]
}

func TestHub_SlowReleaseDoesNotOverwriteReconnect(t *testing.T) {
	mirror := &gatedMirror{
		set:     make(map[string]bool),
		entered: make(chan struct{}, 1),
		gate:    make(chan struct{}),
	}
	reg := NewRegistry()
	NewHub(reg, mirror)

	c1, c2 := &fakeConn{}, &fakeConn{}
	reg.Register("alice", c1)

	released := make(chan struct{})
	go func() {
		reg.Release("alice", c1)
		close(released)
	}()
	<-mirror.entered

	registered := make(chan struct{})
	go func() {
		reg.Register("alice", c2)
		close(registered)
	}()

	select {
	case <-registered:
		t.Fatal("register completed while the previous release was still mirroring")
	case <-time.After(50 * time.Millisecond):
	}

	close(mirror.gate)
	<-released
	<-registered

	cur, ok := reg.Get("alice")
	require.True(t, ok)
	assert.Same(t, c2, cur)
	assert.True(t, mirror.has("alice"))

	last := c2.messages()
	require.NotEmpty(t, last)
	assert.Equal(t, []string{"alice"}, users(t, last[len(last)-1]))
}
