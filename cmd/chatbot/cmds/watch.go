package cmds

import (
	"context"
	"fmt"
	"io"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatbot/pkg/chat"
	"github.com/go-go-golems/chatbot/pkg/config"
	"github.com/go-go-golems/chatbot/pkg/events"
	"github.com/go-go-golems/chatbot/pkg/redisstream"
)

type WatchCommand struct {
	*cmds.CommandDescription
}

var _ cmds.WriterCommand = (*WatchCommand)(nil)

func NewWatchCommand() (*WatchCommand, error) {
	sections, err := config.Sections()
	if err != nil {
		return nil, err
	}
	return &WatchCommand{
		CommandDescription: cmds.NewCommandDescription(
			"watch",
			cmds.WithShort("Print the messages of every session as they arrive over Redis"),
			cmds.WithSections(sections...),
		),
	}, nil
}

func (c *WatchCommand) RunIntoWriter(ctx context.Context, parsed *values.Values, w io.Writer) error {
	s, err := config.Decode(parsed)
	if err != nil {
		return err
	}
	if !s.Redis.Enabled {
		return errors.New("watch follows sessions through Redis Streams; set --redis-enabled")
	}
	// fan-out, so the watcher never takes events away from a shared group
	s.Redis.Group = ""

	t, err := redisstream.Build(s.Redis, redisstream.NewWatermillLogger(log.Logger))
	if err != nil {
		return err
	}
	defer func() { _ = t.Close() }()

	msgs, err := events.Subscribe(ctx, t.Subscriber)
	if err != nil {
		return err
	}

	pr := newTranscriptPrinter(w)
	return events.Forward(ctx, msgs, log.Logger, pr.Handle)
}

// transcriptPrinter writes each message of every followed session once, in transcript
// order. Lines carry a short session label.
type transcriptPrinter struct {
	w        io.Writer
	sessions map[string]*sessionTranscript
}

type sessionTranscript struct {
	label     string
	filter    events.VersionFilter
	printed   map[string]bool
	count     int
	composing bool
}

func newTranscriptPrinter(w io.Writer) *transcriptPrinter {
	return &transcriptPrinter{w: w, sessions: map[string]*sessionTranscript{}}
}

func (p *transcriptPrinter) Handle(e events.Event) error {
	switch e.Type {
	case events.TypePreferencesUpdated:
		state := "off"
		if *e.DarkMode {
			state = "on"
		}
		_, err := fmt.Fprintf(p.w, "-- dark mode %s\n", state)
		return err
	case events.TypeTranscriptUpdated:
		st := p.session(e.Transcript.Session)
		if !st.filter.Accept(*e.Transcript) {
			return nil
		}
		return st.print(p.w, *e.Transcript)
	}
	return nil
}

func (p *transcriptPrinter) session(id string) *sessionTranscript {
	st, ok := p.sessions[id]
	if !ok {
		label := id
		if len(label) > 8 {
			label = label[:8]
		}
		st = &sessionTranscript{
			label:   label,
			filter:  events.NewVersionFilter(id),
			printed: map[string]bool{},
		}
		p.sessions[id] = st
	}
	return st
}

func (st *sessionTranscript) print(w io.Writer, s chat.Snapshot) error {
	if len(s.Messages) < st.count {
		if _, err := fmt.Fprintf(w, "-- %s chat cleared\n", st.label); err != nil {
			return err
		}
		st.printed = map[string]bool{}
	}
	st.count = len(s.Messages)

	for _, m := range s.Messages {
		if st.printed[m.ID] {
			continue
		}
		st.printed[m.ID] = true
		who := "bot"
		if m.IsUser {
			who = "you"
		}
		if _, err := fmt.Fprintf(w, "[%s] %s %s: %s\n", m.Timestamp.Format("15:04"), st.label, who, m.Content); err != nil {
			return err
		}
	}

	if s.Composing && !st.composing {
		if _, err := fmt.Fprintf(w, "-- %s chatbot is typing...\n", st.label); err != nil {
			return err
		}
	}
	st.composing = s.Composing
	return nil
}
