package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatbot/pkg/events"
)

// Sender is the part of *tea.Program the forwarder needs.
type Sender interface {
	Send(msg tea.Msg)
}

// ForwardFunc turns session events into Bubble Tea messages and injects them into p.
// Transcripts of sessions other than session are dropped; preferences are shared by all
// sessions and always forwarded.
func ForwardFunc(p Sender, session string) events.Handler {
	return func(e events.Event) error {
		switch e.Type {
		case events.TypeTranscriptUpdated:
			if e.Transcript.Session != session {
				log.Trace().Str("session", e.Transcript.Session).Msg("ignoring transcript of another session")
				return nil
			}
			p.Send(TranscriptMsg{Snapshot: *e.Transcript})
		case events.TypePreferencesUpdated:
			p.Send(PreferencesMsg{DarkMode: *e.DarkMode})
		default:
			log.Debug().Str("type", string(e.Type)).Msg("ignoring event")
		}
		return nil
	}
}
