// Package ui is the terminal view of a chat session.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	bspinner "github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/go-go-golems/chatbot/pkg/chat"
	"github.com/go-go-golems/chatbot/pkg/events"
)

// Session is the chat surface the view drives.
type Session interface {
	Submit(text string) chat.Outcome
	Clear()
	Snapshot() chat.Snapshot
}

// DarkModeStore persists the dark mode flag.
type DarkModeStore interface {
	DarkMode(ctx context.Context) (bool, error)
	ToggleDarkMode(ctx context.Context) (bool, error)
}

// TranscriptMsg carries a new session snapshot into the program.
type TranscriptMsg struct {
	Snapshot chat.Snapshot
}

// PreferencesMsg carries the current dark mode flag into the program.
type PreferencesMsg struct {
	DarkMode bool
}

type statusMsg string

type errMsg struct{ err error }

const timeFormat = "15:04"

type Model struct {
	ctx     context.Context
	session Session
	prefs   DarkModeStore
	publish func(events.Event) error
	copy    func(string) error
	log     zerolog.Logger

	keys     keyMap
	help     help.Model
	input    textinput.Model
	viewport viewport.Model
	spinner  bspinner.Model

	snap   chat.Snapshot
	filter events.VersionFilter
	dark   bool
	status string
	width  int
	height int
}

type Option func(*Model)

// WithPublisher makes dark mode toggles visible to other view hosts.
func WithPublisher(publish func(events.Event) error) Option {
	return func(m *Model) { m.publish = publish }
}

func WithLogger(l zerolog.Logger) Option {
	return func(m *Model) { m.log = l.With().Str("component", "ui").Logger() }
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) { m.copy = write }
}

func NewModel(ctx context.Context, session Session, prefs DarkModeStore, opts ...Option) Model {
	ti := textinput.New()
	ti.Placeholder = "Enter message..."
	ti.Prompt = "> "
	ti.Focus()

	sp := bspinner.New()
	sp.Spinner = bspinner.Dot

	vp := viewport.New(80, 20)

	m := Model{
		ctx:      ctx,
		session:  session,
		prefs:    prefs,
		copy:     clipboard.WriteAll,
		log:      zerolog.Nop(),
		keys:     defaultKeyMap(),
		help:     help.New(),
		input:    ti,
		viewport: vp,
		spinner:  sp,
		width:    80,
		height:   24,
	}
	for _, opt := range opts {
		opt(&m)
	}
	if prefs != nil {
		if dark, err := prefs.DarkMode(ctx); err == nil {
			m.dark = dark
		} else {
			m.log.Warn().Err(err).Msg("could not read dark mode, using light")
		}
	}
	snap := session.Snapshot()
	m.filter = events.NewVersionFilter(snap.Session)
	m.applySnapshot(snap)
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Send):
			m.send()
			return m, nil
		case key.Matches(msg, m.keys.Clear):
			m.session.Clear()
			m.status = ""
			m.applySnapshot(m.session.Snapshot())
			return m, nil
		case key.Matches(msg, m.keys.ToggleDark):
			return m, m.toggleDark()
		case key.Matches(msg, m.keys.CopyReply):
			return m, m.copyLastReply()
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case TranscriptMsg:
		m.applySnapshot(msg.Snapshot)
		return m, nil

	case PreferencesMsg:
		if msg.DarkMode != m.dark {
			m.dark = msg.DarkMode
			m.refresh()
		}
		return m, nil

	case statusMsg:
		m.status = string(msg)
		return m, nil

	case errMsg:
		m.log.Error().Err(msg.err).Msg("ui action failed")
		m.status = msg.err.Error()
		return m, nil

	case bspinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// send submits the input buffer. The buffer is cleared only when the text entered the
// session; a rejected submission keeps it so it can be resent.
func (m *Model) send() {
	outcome := m.session.Submit(m.input.Value())
	switch outcome {
	case chat.OutcomeAppended:
		m.input.SetValue("")
		m.status = ""
	case chat.OutcomeQueued:
		m.input.SetValue("")
		m.status = "queued until the current reply arrives"
	case chat.OutcomeRejectedBusy:
		m.status = "wait for the reply before sending again"
	case chat.OutcomeClosed:
		m.status = "session closed"
	case chat.OutcomeIgnoredEmpty:
	}
	m.applySnapshot(m.session.Snapshot())
}

func (m Model) toggleDark() tea.Cmd {
	prefs, publish, ctx := m.prefs, m.publish, m.ctx
	return func() tea.Msg {
		if prefs == nil {
			return PreferencesMsg{DarkMode: !m.dark}
		}
		dark, err := prefs.ToggleDarkMode(ctx)
		if err != nil {
			return errMsg{err}
		}
		if publish != nil {
			if err := publish(events.NewPreferencesEvent(dark)); err != nil {
				return errMsg{err}
			}
		}
		return PreferencesMsg{DarkMode: dark}
	}
}

func (m Model) copyLastReply() tea.Cmd {
	reply, ok := m.snap.LastReply()
	write := m.copy
	return func() tea.Msg {
		if !ok {
			return statusMsg("no reply to copy yet")
		}
		if err := write(reply.Content); err != nil {
			return errMsg{err}
		}
		return statusMsg("copied last reply")
	}
}

func (m *Model) applySnapshot(s chat.Snapshot) {
	if !m.filter.Accept(s) {
		return
	}
	m.snap = s
	m.refresh()
}

// refresh re-renders the transcript and scrolls to the newest message.
func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m *Model) layout() {
	const chrome = 5 // title, typing line, input, status, help
	h := m.height - chrome
	if h < 3 {
		h = 3
	}
	m.viewport.Width = m.width
	m.viewport.Height = h
	m.input.Width = m.width - 4
	m.help.Width = m.width
}

func (m Model) bubbleWidth() int {
	w := m.width * 2 / 3
	if w < 20 {
		w = 20
	}
	return w
}

func (m Model) renderTranscript() string {
	p := paletteFor(m.dark)
	md := m.markdownRenderer(p)

	blocks := make([]string, 0, len(m.snap.Messages))
	for _, msg := range m.snap.Messages {
		blocks = append(blocks, m.renderMessage(p, md, msg))
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) renderMessage(p palette, md *glamour.TermRenderer, msg chat.Message) string {
	ts := p.timestamp.Render(msg.Timestamp.Local().Format(timeFormat))
	if msg.IsUser {
		bubble := p.userBubble.MaxWidth(m.bubbleWidth()).Render(msg.Content)
		block := lipgloss.JoinVertical(lipgloss.Right, bubble, ts)
		return lipgloss.PlaceHorizontal(m.width, lipgloss.Right, block)
	}

	content := msg.Content
	if md != nil {
		if out, err := md.Render(content); err == nil {
			content = strings.Trim(out, "\n")
		}
	}
	bubble := p.botBubble.MaxWidth(m.bubbleWidth()).Render(content)
	block := lipgloss.JoinVertical(lipgloss.Left, bubble, ts)
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Left, block)
}

func (m Model) markdownRenderer(p palette) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(p.glamour),
		glamour.WithWordWrap(m.bubbleWidth()-2),
	)
	if err != nil {
		m.log.Debug().Err(err).Msg("markdown renderer unavailable, rendering plain text")
		return nil
	}
	return r
}

func (m Model) View() string {
	p := paletteFor(m.dark)

	mode := "light"
	if m.dark {
		mode = "dark"
	}
	title := p.title.Render("Chatbot") + " " + p.timestamp.Render(fmt.Sprintf("(%s)", mode))

	typing := ""
	if m.snap.Composing {
		typing = m.spinner.View() + " " + p.typing.Render("Chatbot is typing...")
	}
	if m.snap.Pending > 0 {
		typing += p.status.Render(fmt.Sprintf("  %d queued", m.snap.Pending))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.viewport.View(),
		typing,
		m.input.View(),
		p.status.Render(m.status),
		m.help.View(m.keys),
	)
}
