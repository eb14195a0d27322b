package webchat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/chatbot/pkg/chat"
	"github.com/go-go-golems/chatbot/pkg/clock"
	"github.com/go-go-golems/chatbot/pkg/events"
	"github.com/go-go-golems/chatbot/pkg/prefs"
)

type harness struct {
	store  *chat.Store
	clock  *clock.Fake
	prefs  *prefs.Preferences
	server *Server
	bridge *events.Bridge
	ch     *gochannel.GoChannel
}

func newHarness(t *testing.T, opts ...chat.Option) *harness {
	t.Helper()
	fc := clock.NewFake(time.Date(2024, 7, 9, 9, 0, 0, 0, time.UTC))
	store := chat.NewStore(append([]chat.Option{chat.WithClock(fc)}, opts...)...)
	t.Cleanup(store.Close)

	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	t.Cleanup(func() { _ = ch.Close() })
	bridge := events.NewBridge(ch, zerolog.Nop())
	t.Cleanup(bridge.Attach(store))

	p := prefs.New(prefs.NewMemoryKV())
	srv, err := NewServer(store, p, bridge, zerolog.Nop())
	require.NoError(t, err)
	return &harness{store: store, clock: fc, prefs: p, server: srv, bridge: bridge, ch: ch}
}

func (h *harness) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "http://example.com"+path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestNewServer_RequiresCollaborators(t *testing.T) {
	_, err := NewServer(nil, prefs.New(prefs.NewMemoryKV()), nil, zerolog.Nop())
	require.ErrorContains(t, err, "session is nil")
	_, err = NewServer(chat.NewStore(), nil, nil, zerolog.Nop())
	require.ErrorContains(t, err, "preferences are nil")
}

func TestChatFlow(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/chat", `{"text":"Hello"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	resp := decode[chatResponse](t, rec)
	require.Equal(t, "appended", resp.Outcome)
	require.Len(t, resp.Transcript.Messages, 1)
	require.True(t, resp.Transcript.Composing)

	rec = h.do(t, http.MethodPost, "/api/chat", `{"text":"hi"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "rejected-busy", decode[chatResponse](t, rec).Outcome)

	h.clock.Advance(chat.ResponseDelay)
	rec = h.do(t, http.MethodGet, "/api/transcript", "")
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[chat.Snapshot](t, rec)
	require.Len(t, snap.Messages, 2)
	require.Equal(t, "Hello! How can I assist you today?", snap.Messages[1].Content)
	require.False(t, snap.Composing)

	rec = h.do(t, http.MethodPost, "/api/clear", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, decode[chat.Snapshot](t, rec).Messages)
}

func TestChat_EmptyAndMalformed(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/chat", `{"text":"   "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ignored-empty", decode[chatResponse](t, rec).Outcome)
	require.Zero(t, h.store.Snapshot().Version)

	rec = h.do(t, http.MethodPost, "/api/chat", `{`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChat_QueuePolicy(t *testing.T) {
	h := newHarness(t, chat.WithBusyPolicy(chat.BusyQueue))

	require.Equal(t, http.StatusAccepted, h.do(t, http.MethodPost, "/api/chat", `{"text":"hi"}`).Code)
	rec := h.do(t, http.MethodPost, "/api/chat", `{"text":"how are you?"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	resp := decode[chatResponse](t, rec)
	require.Equal(t, "queued", resp.Outcome)
	require.Equal(t, 1, resp.Transcript.Pending)
}

func TestDarkMode(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/preferences/dark-mode", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, *decode[darkModeBody](t, rec).DarkMode)

	rec = h.do(t, http.MethodPost, "/api/preferences/dark-mode", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, *decode[darkModeBody](t, rec).DarkMode)

	rec = h.do(t, http.MethodPost, "/api/preferences/dark-mode", `{"darkMode":true}`)
	require.True(t, *decode[darkModeBody](t, rec).DarkMode)

	rec = h.do(t, http.MethodPost, "/api/preferences/dark-mode", `{"darkMode":false}`)
	require.False(t, *decode[darkModeBody](t, rec).DarkMode)

	rec = h.do(t, http.MethodPost, "/api/preferences/dark-mode", `nope`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	v, err := h.prefs.DarkMode(context.Background())
	require.NoError(t, err)
	require.False(t, v)
}

func TestServesIndex(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Chatbot is typing...")
}

func TestWebSocketReceivesSnapshotsAndPreferences(t *testing.T) {
	h := newHarness(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	msgs, err := events.Subscribe(ctx, h.ch)
	require.NoError(t, err)
	runDone := make(chan error, 1)
	go func() { runDone <- h.server.Run(ctx, msgs) }()

	ts := httptest.NewServer(h.server.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() events.Event {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var e events.Event
		require.NoError(t, json.Unmarshal(data, &e))
		return e
	}

	hello := read()
	require.Equal(t, events.TypeTranscriptUpdated, hello.Type)
	require.Empty(t, hello.Transcript.Messages)
	require.Equal(t, events.TypePreferencesUpdated, read().Type)

	h.store.Submit("hello")
	h.clock.Advance(chat.ResponseDelay)

	var latest chat.Snapshot
	for latest.Version < 2 {
		e := read()
		if e.Type == events.TypeTranscriptUpdated && e.Transcript.Version > latest.Version {
			latest = *e.Transcript
		}
	}
	require.Len(t, latest.Messages, 2)
	require.False(t, latest.Composing)

	require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/preferences/dark-mode", "").Code)
	for {
		e := read()
		if e.Type == events.TypePreferencesUpdated {
			require.True(t, *e.DarkMode)
			break
		}
	}

	cancel()
	require.NoError(t, <-runDone)
}

func TestWebSocketOnlyCarriesServedSession(t *testing.T) {
	h := newHarness(t)

	otherClock := clock.NewFake(time.Date(2024, 7, 9, 9, 0, 0, 0, time.UTC))
	other := chat.NewStore(chat.WithClock(otherClock), chat.WithSessionID("other-host"))
	t.Cleanup(other.Close)
	t.Cleanup(h.bridge.Attach(other))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	msgs, err := events.Subscribe(ctx, h.ch)
	require.NoError(t, err)
	runDone := make(chan error, 1)
	go func() { runDone <- h.server.Run(ctx, msgs) }()

	ts := httptest.NewServer(h.server.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	// the other session runs ahead so its versions are higher than ours
	for _, text := range []string{"swiftui", "one", "two"} {
		require.True(t, other.Submit(text).Accepted())
		otherClock.Advance(chat.ResponseDelay)
	}

	h.store.Submit("hello")
	h.clock.Advance(chat.ResponseDelay)

	var latest chat.Snapshot
	for latest.Version < 2 {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var e events.Event
		require.NoError(t, json.Unmarshal(data, &e))
		if e.Type != events.TypeTranscriptUpdated {
			continue
		}
		require.Equal(t, h.store.ID(), e.Transcript.Session)
		latest = *e.Transcript
	}
	require.Len(t, latest.Messages, 2)
	require.Equal(t, "hello", latest.Messages[0].Text)

	cancel()
	require.NoError(t, <-runDone)
}
