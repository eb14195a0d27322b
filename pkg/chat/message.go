package chat

import (
	"time"

	"github.com/google/uuid"
)

// Message is one transcript entry. Messages are values; identity is the ID alone.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	IsUser    bool      `json:"isUser"`
	Timestamp time.Time `json:"timestamp"`
}

// NewUserMessage stamps a fresh user message.
func NewUserMessage(content string, now time.Time) Message {
	return Message{ID: uuid.NewString(), Content: content, IsUser: true, Timestamp: now}
}

// NewBotMessage stamps a fresh bot message.
func NewBotMessage(content string, now time.Time) Message {
	return Message{ID: uuid.NewString(), Content: content, IsUser: false, Timestamp: now}
}

// Equal reports whether m and other are the same message. Content and time are ignored.
func (m Message) Equal(other Message) bool {
	return m.ID == other.ID
}

// Snapshot is a copy of the session state at one version.
type Snapshot struct {
	Session   string    `json:"session"`
	Messages  []Message `json:"messages"`
	Composing bool      `json:"composing"`
	Pending   int       `json:"pending"`
	Version   uint64    `json:"version"`
}

// Last returns the newest message, if any.
func (s Snapshot) Last() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// LastReply returns the newest bot message, if any.
func (s Snapshot) LastReply() (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if !s.Messages[i].IsUser {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}
