package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/technohub6911/smartcropx/internal/data"
	"github.com/technohub6911/smartcropx/internal/metrics"
)

// Hub fans presence and typing events out to registered connections.
type Hub struct {
	reg    *Registry
	mirror PresenceMirror // optional
}

func NewHub(reg *Registry, mirror PresenceMirror) *Hub {
	h := &Hub{reg: reg, mirror: mirror}
	reg.OnChange(h.presenceChanged)
	return h
}

func (h *Hub) Registry() *Registry {
	return h.reg
}

func (h *Hub) presenceChanged(userID string, online bool) {
	metrics.RealtimeConnectionsActive.Set(float64(h.reg.Len()))

	if h.mirror != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		var err error
		if online {
			err = h.mirror.Online(ctx, userID)
		} else {
			err = h.mirror.Offline(ctx, userID)
		}
		cancel()
		if err != nil {
			log.Printf("[ERROR] Presence mirror update for %s failed: %v", userID, err)
		}
	}

	h.BroadcastPresence()
}

// BroadcastPresence sends the online user list to every connection.
func (h *Hub) BroadcastPresence() {
	members := h.reg.snapshot()
	users := make([]string, len(members))
	for i, m := range members {
		users[i] = m.userID
	}

	payload, err := json.Marshal(OnlineUsersMessage{Type: KindOnlineUsers, Users: users})
	if err != nil {
		log.Printf("[ERROR] Presence marshal: %v", err)
		return
	}
	for _, m := range members {
		h.send(m.conn, KindOnlineUsers, payload)
	}
}

// BroadcastTyping notifies everyone except userID.
func (h *Hub) BroadcastTyping(chatID, userID string, isTyping bool) {
	payload, err := json.Marshal(TypingIndicatorMessage{
		Type:     KindTypingIndicator,
		ChatID:   chatID,
		UserID:   userID,
		IsTyping: isTyping,
	})
	if err != nil {
		log.Printf("[ERROR] Typing marshal: %v", err)
		return
	}
	for _, m := range h.reg.snapshot() {
		if m.userID == userID {
			continue
		}
		h.send(m.conn, KindTypingIndicator, payload)
	}
}

// Dispatch delivers msg to a single connection.
func (h *Hub) Dispatch(conn Conn, kind string, msg any) bool {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[ERROR] Dispatch marshal (%s): %v", kind, err)
		return false
	}
	return h.send(conn, kind, payload)
}

// HandleInbound processes one frame received from userID's connection.
// Malformed frames return ErrProtocol; the caller keeps the connection open.
func (h *Hub) HandleInbound(userID string, conn Conn, raw []byte) error {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		metrics.RealtimeProtocolErrorsTotal.Inc()
		return fmt.Errorf("%w: %v", data.ErrProtocol, err)
	}

	switch env.Type {
	case KindPing:
		h.Dispatch(conn, KindPong, PongMessage{Type: KindPong})
	case KindTypingStart:
		h.BroadcastTyping(env.ChatID, userID, true)
	case KindTypingStop:
		h.BroadcastTyping(env.ChatID, userID, false)
	}
	return nil
}

func (h *Hub) send(conn Conn, kind string, payload []byte) bool {
	if !conn.Enqueue(payload) {
		metrics.RealtimeSendSkippedTotal.WithLabelValues(kind).Inc()
		return false
	}
	metrics.RealtimeMessagesSentTotal.WithLabelValues(kind).Inc()
	return true
}
