package cmds

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatbot/pkg/config"
	"github.com/go-go-golems/chatbot/pkg/events"
	"github.com/go-go-golems/chatbot/pkg/prefs"
	"github.com/go-go-golems/chatbot/pkg/redisstream"
)

type DarkModeCommand struct {
	*cmds.CommandDescription
}

type DarkModeSettings struct {
	Action string `glazed:"action"`
}

var _ cmds.WriterCommand = (*DarkModeCommand)(nil)

func NewDarkModeCommand() (*DarkModeCommand, error) {
	sections, err := config.Sections()
	if err != nil {
		return nil, err
	}
	return &DarkModeCommand{
		CommandDescription: cmds.NewCommandDescription(
			"dark-mode",
			cmds.WithShort("Print the dark mode flag, or set it"),
			cmds.WithArguments(
				fields.New("action", fields.TypeString,
					fields.WithHelp("on, off or toggle; empty prints the current value")),
			),
			cmds.WithSections(sections...),
		),
	}, nil
}

func (c *DarkModeCommand) RunIntoWriter(ctx context.Context, parsed *values.Values, w io.Writer) error {
	ds := &DarkModeSettings{}
	if err := parsed.DecodeSectionInto(values.DefaultSlug, ds); err != nil {
		return errors.Wrap(err, "decode dark-mode settings")
	}
	s, err := config.Decode(parsed)
	if err != nil {
		return err
	}

	p, err := prefs.Open(s.PrefsConfig())
	if err != nil {
		return errors.Wrap(err, "open preferences")
	}
	defer func() { _ = p.Close() }()

	var announce func(bool) error
	if s.Redis.Enabled {
		announce = func(dark bool) error { return announceDarkMode(s.Redis, dark) }
	}
	return runDarkMode(ctx, p, ds.Action, announce, w)
}

// runDarkMode applies action to p and prints the resulting flag. announce, if set, is told
// about changes.
func runDarkMode(ctx context.Context, p *prefs.Preferences, action string, announce func(bool) error, w io.Writer) error {
	var (
		dark bool
		err  error
	)
	action = strings.ToLower(strings.TrimSpace(action))
	switch action {
	case "":
		dark, err = p.DarkMode(ctx)
	case "on", "off":
		dark = action == "on"
		err = p.SetDarkMode(ctx, dark)
	case "toggle":
		dark, err = p.ToggleDarkMode(ctx)
	default:
		return errors.Errorf("unknown dark-mode action %q (want on, off or toggle)", action)
	}
	if err != nil {
		return err
	}

	if action != "" && announce != nil {
		if err := announce(dark); err != nil {
			log.Warn().Err(err).Msg("dark mode saved but running views were not notified")
		}
	}

	state := "off"
	if dark {
		state = "on"
	}
	_, err = fmt.Fprintf(w, "dark mode: %s\n", state)
	return err
}

// announceDarkMode tells views following sessions over Redis about the new flag.
func announceDarkMode(s redisstream.Settings, dark bool) error {
	t, err := redisstream.Build(s, redisstream.NewWatermillLogger(log.Logger))
	if err != nil {
		return err
	}
	defer func() { _ = t.Close() }()
	return events.NewBridge(t.Publisher, log.Logger).Publish(events.NewPreferencesEvent(dark))
}
