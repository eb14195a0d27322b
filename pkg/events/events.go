// Package events carries session and preference changes from the chat store to the view
// hosts over a Watermill topic.
package events

import (
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"

	"github.com/go-go-golems/chatbot/pkg/chat"
)

// Topic is the Watermill topic (and Redis stream) shared by all view hosts of a session.
const Topic = "chatbot.session"

type Type string

const (
	TypeTranscriptUpdated  Type = "transcript.updated"
	TypePreferencesUpdated Type = "preferences.updated"
)

type Event struct {
	Type       Type           `json:"type"`
	Transcript *chat.Snapshot `json:"transcript,omitempty"`
	DarkMode   *bool          `json:"darkMode,omitempty"`
	At         time.Time      `json:"at"`
}

func NewTranscriptEvent(s chat.Snapshot) Event {
	return Event{Type: TypeTranscriptUpdated, Transcript: &s, At: time.Now()}
}

func NewPreferencesEvent(darkMode bool) Event {
	return Event{Type: TypePreferencesUpdated, DarkMode: &darkMode, At: time.Now()}
}

func Encode(e Event) (*message.Message, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, "encode event")
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("type", string(e.Type))
	return msg, nil
}

func Decode(msg *message.Message) (Event, error) {
	var e Event
	if msg == nil {
		return e, errors.New("decode event: nil message")
	}
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		return e, errors.Wrap(err, "decode event")
	}
	switch e.Type {
	case TypeTranscriptUpdated:
		if e.Transcript == nil {
			return e, errors.New("decode event: transcript event without snapshot")
		}
	case TypePreferencesUpdated:
		if e.DarkMode == nil {
			return e, errors.New("decode event: preferences event without value")
		}
	default:
		return e, errors.Errorf("decode event: unknown type %q", e.Type)
	}
	return e, nil
}
