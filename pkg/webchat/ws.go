package webchat

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/go-go-golems/chatbot/pkg/events"
)

// handleWS attaches a browser. It first sends the current transcript and dark mode so the
// page does not wait for the next change, then only listens for pings.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("ws upgrade failed")
		return
	}
	wsLog := s.log.With().Str("remote", conn.RemoteAddr().String()).Logger()
	s.pool.Add(conn)
	wsLog.Info().Msg("ws connected")

	if b, err := json.Marshal(events.NewTranscriptEvent(s.session.Snapshot())); err == nil {
		s.pool.SendToOne(conn, b)
	}
	if dark, err := s.prefs.DarkMode(r.Context()); err == nil {
		if b, err := json.Marshal(events.NewPreferencesEvent(dark)); err == nil {
			s.pool.SendToOne(conn, b)
		}
	}

	go func() {
		defer s.pool.Remove(conn)
		defer wsLog.Info().Msg("ws disconnected")
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				wsLog.Debug().Err(err).Msg("ws read loop end")
				return
			}
			if msgType == websocket.TextMessage && strings.EqualFold(strings.TrimSpace(string(data)), "ping") {
				s.pool.SendToOne(conn, []byte(`{"type":"ws.pong"}`))
			}
		}
	}()
}
