// Package realtime tracks which users hold a live connection and fans
// presence and typing events out to them.
package realtime

import (
	"sort"
	"sync"
)

// Conn is the sending side of a live connection.
type Conn interface {
	// Enqueue queues msg without blocking. It reports false when the
	// connection is closed or its outbound queue is full.
	Enqueue(msg []byte) bool
	Close()
}

type member struct {
	userID string
	conn   Conn
}

// Registry maps user identity to its single live connection.
type Registry struct {
	// changeMu orders membership changes together with their hooks, so
	// observers see changes in the order the map saw them.
	changeMu sync.Mutex
	mu       sync.RWMutex
	conns    map[string]Conn
	onChange func(userID string, online bool)
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]Conn)}
}

// OnChange installs the hook fired after every membership change.
// The hook runs outside the map lock but hooks never overlap, and they run in
// the order the changes were applied. It must not call back into Register,
// Unregister or Release.
func (r *Registry) OnChange(fn func(userID string, online bool)) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

// Register binds conn to userID and returns the connection it replaced, if any.
func (r *Registry) Register(userID string, conn Conn) Conn {
	r.changeMu.Lock()
	defer r.changeMu.Unlock()

	r.mu.Lock()
	prev := r.conns[userID]
	r.conns[userID] = conn
	hook := r.onChange
	r.mu.Unlock()

	if hook != nil {
		hook(userID, true)
	}
	return prev
}

// Unregister removes userID. Absent ids are not an error.
func (r *Registry) Unregister(userID string) {
	r.changeMu.Lock()
	defer r.changeMu.Unlock()

	r.mu.Lock()
	delete(r.conns, userID)
	hook := r.onChange
	r.mu.Unlock()

	if hook != nil {
		hook(userID, false)
	}
}

// Release removes userID only while it is still bound to conn.
func (r *Registry) Release(userID string, conn Conn) bool {
	r.changeMu.Lock()
	defer r.changeMu.Unlock()

	r.mu.Lock()
	cur, ok := r.conns[userID]
	if !ok || cur != conn {
		r.mu.Unlock()
		return false
	}
	delete(r.conns, userID)
	hook := r.onChange
	r.mu.Unlock()

	if hook != nil {
		hook(userID, false)
	}
	return true
}

func (r *Registry) Get(userID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[userID]
	return c, ok
}

// ListActive returns the online user ids, sorted.
func (r *Registry) ListActive() []string {
	members := r.snapshot()
	users := make([]string, len(members))
	for i, m := range members {
		users[i] = m.userID
	}
	return users
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) snapshot() []member {
	r.mu.RLock()
	out := make([]member, 0, len(r.conns))
	for id, c := range r.conns {
		out = append(out, member{userID: id, conn: c})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].userID < out[j].userID })
	return out
}
