package webchat

import (
	"context"
	"embed"
	"encoding/json"
	"io/fs"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/go-go-golems/chatbot/pkg/chat"
	"github.com/go-go-golems/chatbot/pkg/events"
)

//go:embed static/*
var staticFS embed.FS

// Session is the chat surface exposed over HTTP.
type Session interface {
	ID() string
	Submit(text string) chat.Outcome
	Clear()
	Snapshot() chat.Snapshot
}

// Preferences is the dark mode store exposed over HTTP.
type Preferences interface {
	DarkMode(ctx context.Context) (bool, error)
	SetDarkMode(ctx context.Context, v bool) error
	ToggleDarkMode(ctx context.Context) (bool, error)
}

// Publisher announces preference changes to the other view hosts.
type Publisher interface {
	Publish(e events.Event) error
}

type Server struct {
	session  Session
	prefs    Preferences
	events   Publisher
	pool     *ConnectionPool
	upgrader websocket.Upgrader
	log      zerolog.Logger
	mux      *http.ServeMux
}

func NewServer(session Session, prefs Preferences, pub Publisher, logger zerolog.Logger) (*Server, error) {
	if session == nil {
		return nil, errors.New("webchat: session is nil")
	}
	if prefs == nil {
		return nil, errors.New("webchat: preferences are nil")
	}
	s := &Server{
		session: session,
		prefs:   prefs,
		events:  pub,
		pool:    NewConnectionPool(logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: logger.With().Str("component", "webchat").Logger(),
		mux: http.NewServeMux(),
	}
	if err := s.routes(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) routes() error {
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return errors.Wrap(err, "webchat: static assets")
	}
	s.mux.HandleFunc("GET /api/transcript", s.handleTranscript)
	s.mux.HandleFunc("POST /api/chat", s.handleChat)
	s.mux.HandleFunc("POST /api/clear", s.handleClear)
	s.mux.HandleFunc("GET /api/preferences/dark-mode", s.handleGetDarkMode)
	s.mux.HandleFunc("POST /api/preferences/dark-mode", s.handleSetDarkMode)
	s.mux.HandleFunc("GET /ws", s.handleWS)
	s.mux.Handle("GET /", http.FileServer(http.FS(static)))
	return nil
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run broadcasts session events from msgs to every websocket until ctx is done. Transcripts
// of other sessions sharing the transport are dropped.
func (s *Server) Run(ctx context.Context, msgs <-chan *message.Message) error {
	defer s.pool.CloseAll()
	filter := events.NewVersionFilter(s.session.ID())
	return events.Forward(ctx, msgs, s.log, func(e events.Event) error {
		if e.Type == events.TypeTranscriptUpdated && !filter.Accept(*e.Transcript) {
			return nil
		}
		b, err := json.Marshal(e)
		if err != nil {
			return errors.Wrap(err, "webchat: encode event")
		}
		s.pool.Broadcast(b)
		return nil
	})
}

// ListenAndServe serves the handler on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("webchat listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "webchat: listen")
	}
}
