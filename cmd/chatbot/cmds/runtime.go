package cmds

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatbot/pkg/chat"
	"github.com/go-go-golems/chatbot/pkg/config"
	"github.com/go-go-golems/chatbot/pkg/events"
	"github.com/go-go-golems/chatbot/pkg/prefs"
	"github.com/go-go-golems/chatbot/pkg/redisstream"
)

// runtime is the set of collaborators a view host needs: one session, the preference store
// and the event transport connecting them to the views.
type runtime struct {
	settings  config.Settings
	store     *chat.Store
	prefs     *prefs.Preferences
	transport *redisstream.Transport
	bridge    *events.Bridge

	closers []func() error
}

func newRuntime(parsed *values.Values) (*runtime, error) {
	s, err := config.Decode(parsed)
	if err != nil {
		return nil, err
	}
	rt := &runtime{settings: s}

	chatOpts, err := s.ChatOptions()
	if err != nil {
		return nil, err
	}
	rt.store = chat.NewStore(append(chatOpts, chat.WithLogger(log.Logger))...)
	rt.closers = append(rt.closers, func() error { rt.store.Close(); return nil })

	rt.prefs, err = prefs.Open(s.PrefsConfig())
	if err != nil {
		_ = rt.Close()
		return nil, errors.Wrap(err, "open preferences")
	}
	rt.closers = append(rt.closers, rt.prefs.Close)

	rt.transport, err = redisstream.Build(s.Redis, redisstream.NewWatermillLogger(log.Logger))
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.closers = append(rt.closers, rt.transport.Close)

	rt.bridge = events.NewBridge(rt.transport.Publisher, log.Logger)
	detach := rt.bridge.Attach(rt.store)
	rt.closers = append(rt.closers, func() error { detach(); return nil })

	log.Debug().
		Str("session", rt.store.ID()).
		Str("busy_policy", s.Chat.BusyPolicy).
		Str("clear_policy", s.Chat.ClearPolicy).
		Str("prefs_backend", s.Prefs.Backend).
		Bool("redis", rt.transport.Redis()).
		Bool("fan_out", rt.transport.FanOut()).
		Msg("session ready")
	return rt, nil
}

// subscribe opens the session topic. It must run before the first publish.
func (rt *runtime) subscribe(ctx context.Context) (<-chan *message.Message, error) {
	if err := rt.transport.EnsureGroupAtTail(ctx, events.Topic); err != nil {
		return nil, err
	}
	return events.Subscribe(ctx, rt.transport.Subscriber)
}

func (rt *runtime) logger(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

// Close releases everything in reverse order of acquisition.
func (rt *runtime) Close() error {
	var first error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	rt.closers = nil
	return first
}
