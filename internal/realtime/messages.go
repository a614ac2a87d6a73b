package realtime

// Inbound kinds.
const (
	KindPing        = "ping"
	KindTypingStart = "typing_start"
	KindTypingStop  = "typing_stop"
)

// Outbound kinds.
const (
	KindPong            = "pong"
	KindOnlineUsers     = "online_users"
	KindTypingIndicator = "typing_indicator"
)

// Envelope is the inbound frame sent by clients.
type Envelope struct {
	Type   string `json:"type"`
	ChatID string `json:"chatId,omitempty"`
	UserID string `json:"userId,omitempty"`
}

type PongMessage struct {
	Type string `json:"type"`
}

type OnlineUsersMessage struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

type TypingIndicatorMessage struct {
	Type     string `json:"type"`
	ChatID   string `json:"chatId"`
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}
