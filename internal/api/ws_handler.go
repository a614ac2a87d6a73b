package api

import (
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/technohub6911/smartcropx/internal/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboards are served from other origins
	},
}

type WSHandler struct {
	Hub        *realtime.Hub
	SendBuffer int
}

func NewWSHandler(hub *realtime.Hub, sendBuffer int) *WSHandler {
	return &WSHandler{Hub: hub, SendBuffer: sendBuffer}
}

// GET /ws?userId=...
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		respondError(w, http.StatusBadRequest, "userId is required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WS Upgrade Failed: %v", err)
		return
	}

	log.Printf("WS Connected: User=%s", userID)
	realtime.NewClient(h.Hub, conn, userID, h.SendBuffer).Serve()
	log.Printf("WS Disconnected: User=%s", userID)
}
