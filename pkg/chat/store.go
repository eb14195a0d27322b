// Package chat holds the session state machine: the transcript, the composing flag and the
// delayed bot reply that ties them together.
//
// A Store is the only writer of its session. Every mutation happens under one lock, so the
// store behaves like a single logical actor; the delayed reply is a timer callback that
// re-enters that actor when it fires.
package chat

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/go-go-golems/chatbot/pkg/clock"
	"github.com/go-go-golems/chatbot/pkg/responder"
)

// ResponseDelay is the fixed pause between a submission and its reply.
const ResponseDelay = time.Second

// Responder turns user text into reply text. It must be total.
type Responder interface {
	Respond(text string) string
}

// Listener receives a snapshot after every mutation. Listeners run synchronously and in
// mutation order; they must not call back into the Store.
type Listener func(Snapshot)

type completion struct {
	prompt string
	timer  clock.Timer
}

type subscriber struct {
	id uint64
	fn Listener
}

type Store struct {
	mu       sync.Mutex
	notifyMu sync.Mutex

	id          string
	clock       clock.Clock
	responder   Responder
	busyPolicy  BusyPolicy
	clearPolicy ClearPolicy
	log         zerolog.Logger

	messages  []Message
	composing bool
	version   uint64
	pending   *completion
	queue     []queuedSubmission
	closed    bool

	nextSubID   uint64
	subscribers []subscriber
}

type Option func(*Store)

// WithSessionID names the session. Views sharing a transport use it to tell sessions apart.
func WithSessionID(id string) Option {
	return func(s *Store) {
		if id != "" {
			s.id = id
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithResponder(r Responder) Option {
	return func(s *Store) {
		if r != nil {
			s.responder = r
		}
	}
}

func WithBusyPolicy(p BusyPolicy) Option {
	return func(s *Store) {
		if p != "" {
			s.busyPolicy = p
		}
	}
}

func WithClearPolicy(p ClearPolicy) Option {
	return func(s *Store) {
		if p != "" {
			s.clearPolicy = p
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) {
		s.log = l.With().Str("component", "chat").Logger()
	}
}

// NewStore creates an empty session. Without options it uses the wall clock, the built-in
// rule table, BusyBlock and ClearDeliver.
func NewStore(opts ...Option) *Store {
	s := &Store{
		id:          uuid.NewString(),
		clock:       clock.New(),
		busyPolicy:  BusyBlock,
		clearPolicy: ClearDeliver,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.responder == nil {
		s.responder = responder.Default()
	}
	return s
}

// Submit appends the trimmed text as a user message and schedules the reply. Empty input is
// ignored without any observable effect.
func (s *Store) Submit(text string) Outcome {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		s.log.Debug().Msg("ignoring empty submission")
		return OutcomeIgnoredEmpty
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return OutcomeClosed
	}
	if s.isBusyLocked() {
		if s.busyPolicy != BusyQueue {
			s.mu.Unlock()
			s.log.Debug().Msg("submission rejected while composing")
			return OutcomeRejectedBusy
		}
		pos := s.enqueueLocked(queuedSubmission{Text: trimmed, EnqueuedAt: s.clock.Now()})
		s.log.Debug().Int("queue_position", pos).Msg("submission queued while composing")
		s.unlockAndNotify()
		return OutcomeQueued
	}

	s.beginLocked(trimmed)
	s.unlockAndNotify()
	return OutcomeAppended
}

// Clear empties the transcript. What happens to a reply still in flight depends on the
// clear policy.
func (s *Store) Clear() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.messages = nil
	if s.clearPolicy == ClearCancel {
		if s.pending != nil {
			s.pending.timer.Stop()
			s.pending = nil
		}
		s.composing = false
		s.queue = nil
	}
	s.log.Debug().Bool("composing", s.composing).Msg("transcript cleared")
	s.unlockAndNotify()
}

// ID returns the session id carried by every snapshot.
func (s *Store) ID() string {
	return s.id
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	s.nextSubID++
	id := s.nextSubID
	s.subscribers = append(s.subscribers, subscriber{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subscribers {
			if sub.id == id {
				s.subscribers = append(s.subscribers[:i:i], s.subscribers[i+1:]...)
				return
			}
		}
	}
}

// Close tears the session down. A reply still in flight is discarded instead of being
// applied to the dead session.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.pending != nil {
		s.pending.timer.Stop()
		s.pending = nil
	}
	s.composing = false
	s.queue = nil
	s.subscribers = nil
}

func (s *Store) beginLocked(text string) {
	msg := NewUserMessage(text, s.clock.Now())
	s.messages = append(s.messages, msg)
	s.composing = true

	c := &completion{prompt: msg.Content}
	c.timer = s.clock.AfterFunc(ResponseDelay, func() { s.complete(c) })
	s.pending = c
	s.log.Debug().Str("message_id", msg.ID).Msg("user message appended, reply scheduled")
}

func (s *Store) complete(c *completion) {
	s.mu.Lock()
	if s.closed || s.pending != c {
		s.mu.Unlock()
		return
	}
	reply := NewBotMessage(s.responder.Respond(c.prompt), s.clock.Now())
	s.messages = append(s.messages, reply)
	s.composing = false
	s.pending = nil
	s.log.Debug().Str("message_id", reply.ID).Msg("bot reply appended")

	if next, ok := s.dequeueLocked(); ok {
		s.log.Debug().
			Dur("waited", s.clock.Now().Sub(next.EnqueuedAt)).
			Int("remaining", len(s.queue)).
			Msg("starting queued submission")
		s.beginLocked(next.Text)
	}
	s.unlockAndNotify()
}

func (s *Store) snapshotLocked() Snapshot {
	msgs := make([]Message, len(s.messages))
	copy(msgs, s.messages)
	return Snapshot{
		Session:   s.id,
		Messages:  msgs,
		Composing: s.composing,
		Pending:   len(s.queue),
		Version:   s.version,
	}
}

// unlockAndNotify bumps the version, releases s.mu and delivers the new snapshot. notifyMu
// is taken before s.mu is released so deliveries keep mutation order.
func (s *Store) unlockAndNotify() {
	s.version++
	snap := s.snapshotLocked()
	subs := make([]subscriber, len(s.subscribers))
	copy(subs, s.subscribers)

	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()
	for _, sub := range subs {
		sub.fn(snap)
	}
}
