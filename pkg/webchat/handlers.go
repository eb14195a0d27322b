package webchat

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-go-golems/chatbot/pkg/chat"
	"github.com/go-go-golems/chatbot/pkg/events"
)

type chatRequest struct {
	Text string `json:"text"`
}

type chatResponse struct {
	Outcome    string        `json:"outcome"`
	Transcript chat.Snapshot `json:"transcript"`
}

type darkModeBody struct {
	DarkMode *bool `json:"darkMode,omitempty"`
}

func outcomeStatus(o chat.Outcome) int {
	switch o {
	case chat.OutcomeAppended, chat.OutcomeQueued:
		return http.StatusAccepted
	case chat.OutcomeRejectedBusy:
		return http.StatusConflict
	case chat.OutcomeClosed:
		return http.StatusGone
	default:
		return http.StatusOK
	}
}

func (s *Server) handleTranscript(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var body chatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	outcome := s.session.Submit(body.Text)
	s.log.Debug().Str("outcome", outcome.String()).Msg("chat submission")
	writeJSON(w, outcomeStatus(outcome), chatResponse{
		Outcome:    outcome.String(),
		Transcript: s.session.Snapshot(),
	})
}

func (s *Server) handleClear(w http.ResponseWriter, _ *http.Request) {
	s.session.Clear()
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleGetDarkMode(w http.ResponseWriter, r *http.Request) {
	v, err := s.prefs.DarkMode(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("read dark mode")
		http.Error(w, "preferences unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, darkModeBody{DarkMode: &v})
}

// handleSetDarkMode sets the flag from the body, or toggles it when the body is empty.
func (s *Server) handleSetDarkMode(w http.ResponseWriter, r *http.Request) {
	var body darkModeBody
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<12))
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(string(raw)) != "" {
		if err := json.Unmarshal(raw, &body); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
	}

	var v bool
	if body.DarkMode != nil {
		v = *body.DarkMode
		err = s.prefs.SetDarkMode(r.Context(), v)
	} else {
		v, err = s.prefs.ToggleDarkMode(r.Context())
	}
	if err != nil {
		s.log.Error().Err(err).Msg("write dark mode")
		http.Error(w, "preferences unavailable", http.StatusServiceUnavailable)
		return
	}
	if s.events != nil {
		if err := s.events.Publish(events.NewPreferencesEvent(v)); err != nil {
			s.log.Warn().Err(err).Msg("failed to publish preferences change")
		}
	}
	writeJSON(w, http.StatusOK, darkModeBody{DarkMode: &v})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
