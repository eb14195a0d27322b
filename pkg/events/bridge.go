package events

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/go-go-golems/chatbot/pkg/chat"
)

// Bridge publishes store snapshots and preference changes.
type Bridge struct {
	pub   message.Publisher
	topic string
	log   zerolog.Logger
}

func NewBridge(pub message.Publisher, logger zerolog.Logger) *Bridge {
	return &Bridge{
		pub:   pub,
		topic: Topic,
		log:   logger.With().Str("component", "events").Logger(),
	}
}

// Attach publishes every change of store, in order, from a goroutine of its own so a slow
// transport never holds up the store. The returned function stops listening and waits until
// the changes already seen are published.
func (b *Bridge) Attach(store *chat.Store) func() {
	q := newSnapshotQueue()
	unsubscribe := store.Subscribe(q.push)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			batch, open := q.next()
			for _, s := range batch {
				if err := b.Publish(NewTranscriptEvent(s)); err != nil {
					b.log.Error().Err(err).
						Str("session", s.Session).
						Uint64("version", s.Version).
						Msg("failed to publish transcript")
				}
			}
			if !open {
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			q.close()
			<-done
		})
	}
}

func (b *Bridge) Publish(e Event) error {
	msg, err := Encode(e)
	if err != nil {
		return err
	}
	b.log.Debug().Str("type", string(e.Type)).Str("uuid", msg.UUID).Msg("publishing event")
	return errors.Wrap(b.pub.Publish(b.topic, msg), "publish event")
}

// Handler consumes a decoded event.
type Handler func(Event) error

// Subscribe opens the session topic on sub. Subscribe before anything is published: the
// in-memory transport drops messages that have no subscriber yet.
func Subscribe(ctx context.Context, sub message.Subscriber) (<-chan *message.Message, error) {
	msgs, err := sub.Subscribe(ctx, Topic)
	if err != nil {
		return nil, errors.Wrap(err, "subscribe to session events")
	}
	return msgs, nil
}

// Forward hands every event from msgs to h until ctx is done or msgs closes. Undecodable
// messages are logged and acknowledged so they do not block the stream.
func Forward(ctx context.Context, msgs <-chan *message.Message, logger zerolog.Logger, h Handler) error {
	l := logger.With().Str("component", "events").Logger()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			msg.Ack()

			e, err := Decode(msg)
			if err != nil {
				l.Error().Err(err).Str("payload", string(msg.Payload)).Msg("failed to parse event")
				continue
			}
			if err := h(e); err != nil {
				return err
			}
		}
	}
}

// VersionFilter keeps one session's transcript in order. It follows the session named by
// NewVersionFilter, or else the session of the first snapshot it accepts, and drops snapshots
// of any other session. Delivery through a transport may reorder publishes; the snapshot
// version restores order.
type VersionFilter struct {
	session string
	seen    bool
	version uint64
}

func NewVersionFilter(session string) VersionFilter {
	return VersionFilter{session: session}
}

// Accept reports whether s belongs to the followed session and is newer than anything
// accepted before.
func (f *VersionFilter) Accept(s chat.Snapshot) bool {
	if !f.seen && f.session == "" {
		f.session = s.Session
	}
	if s.Session != f.session {
		return false
	}
	if f.seen && s.Version <= f.version {
		return false
	}
	f.seen = true
	f.version = s.Version
	return true
}

// Session returns the followed session, empty until one is known.
func (f *VersionFilter) Session() string {
	return f.session
}
