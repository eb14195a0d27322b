package cmds

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/chatbot/pkg/config"
	"github.com/go-go-golems/chatbot/pkg/events"
	"github.com/go-go-golems/chatbot/pkg/ui"
)

type TUICommand struct {
	*cmds.CommandDescription
}

var _ cmds.BareCommand = (*TUICommand)(nil)

func NewTUICommand() (*TUICommand, error) {
	sections, err := config.Sections()
	if err != nil {
		return nil, err
	}
	return &TUICommand{
		CommandDescription: cmds.NewCommandDescription(
			"tui",
			cmds.WithShort("Chat in the terminal"),
			cmds.WithLong("Chat in the terminal. Logs are discarded unless --log-file is set."),
			cmds.WithSections(sections...),
		),
	}, nil
}

func (c *TUICommand) Run(ctx context.Context, parsed *values.Values) error {
	rt, err := newRuntime(parsed)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	msgs, err := rt.subscribe(ctx)
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, rt.store, rt.prefs,
		ui.WithPublisher(rt.bridge.Publish),
		ui.WithLogger(rt.logger("ui")),
	)
	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		opts = append(opts, tea.WithOutput(os.Stderr))
	}
	p := tea.NewProgram(model, opts...)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return events.Forward(egCtx, msgs, rt.logger("ui"), ui.ForwardFunc(p, rt.store.ID()))
	})
	eg.Go(func() error {
		defer cancel()
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
			return nil
		}
		return err
	})
	return eg.Wait()
}
