package models

import "time"

// Message is a stored chat message. IPAddress is kept for diagnostics only and
// is never serialized to clients.
type Message struct {
	ID        int64     `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Content   string    `db:"content" json:"content"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
	IPAddress string    `db:"ip_address" json:"-"`
}

// HistoryMessage is the trimmed view sent in the join snapshot.
type HistoryMessage struct {
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// RelayEvent is broadcasted through websockets.
type RelayEvent struct {
	Type    string           `json:"type"`
	Message *Message         `json:"message,omitempty"`
	History []HistoryMessage `json:"history,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// Relay event types.
const (
	EventChatMessage = "chat message"
	EventChatHistory = "chat history"
	EventError       = "error"
)

// InboundMessage is the client payload for a new chat message.
type InboundMessage struct {
	Username string `json:"username"`
	Content  string `json:"content"`
}

// HistoryView converts stored messages into snapshot entries.
func HistoryView(msgs []Message) []HistoryMessage {
	history := make([]HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, HistoryMessage{
			Username:  m.Username,
			Content:   m.Content,
			Timestamp: m.Timestamp,
		})
	}
	return history
}
