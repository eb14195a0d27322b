package cmds

import (
	"context"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/chatbot/pkg/config"
	"github.com/go-go-golems/chatbot/pkg/webchat"
)

type ServeCommand struct {
	*cmds.CommandDescription
}

type ServeSettings struct {
	Addr string `glazed:"addr"`
}

var _ cmds.BareCommand = (*ServeCommand)(nil)

func NewServeCommand() (*ServeCommand, error) {
	sections, err := config.Sections()
	if err != nil {
		return nil, err
	}
	return &ServeCommand{
		CommandDescription: cmds.NewCommandDescription(
			"serve",
			cmds.WithShort("Serve the chat to a browser"),
			cmds.WithFlags(
				fields.New("addr", fields.TypeString,
					fields.WithHelp("HTTP listen address"),
					fields.WithDefault(":8080")),
			),
			cmds.WithSections(sections...),
		),
	}, nil
}

func (c *ServeCommand) Run(ctx context.Context, parsed *values.Values) error {
	ss := &ServeSettings{}
	if err := parsed.DecodeSectionInto(values.DefaultSlug, ss); err != nil {
		return errors.Wrap(err, "decode serve settings")
	}
	rt, err := newRuntime(parsed)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	msgs, err := rt.subscribe(ctx)
	if err != nil {
		return err
	}
	srv, err := webchat.NewServer(rt.store, rt.prefs, rt.bridge, rt.logger("webchat"))
	if err != nil {
		return err
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error { return srv.Run(egCtx, msgs) })
	eg.Go(func() error { return srv.ListenAndServe(egCtx, ss.Addr) })
	return eg.Wait()
}
