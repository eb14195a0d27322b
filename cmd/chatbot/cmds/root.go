package cmds

import (
	"strings"

	clay "github.com/go-go-golems/clay/pkg"
	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/logging"
	"github.com/go-go-golems/glazed/pkg/help"
	help_cmd "github.com/go-go-golems/glazed/pkg/help/cmd"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/chatbot/pkg/config"
)

// NewRootCommand builds the chatbot command tree.
func NewRootCommand() (*cobra.Command, error) {
	root := &cobra.Command{
		Use:           "chatbot",
		Short:         "chatbot is a small rule-based chat you can talk to from the terminal or a browser",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logging.InitLoggerFromCobra(cmd); err != nil {
				return err
			}
			if cmd.Name() == "tui" {
				quietTerminalLogs(cmd)
			}
			return nil
		},
	}
	if err := clay.InitGlazed("chatbot", root); err != nil {
		return nil, errors.Wrap(err, "init glazed")
	}
	helpSystem := help.NewHelpSystem()
	help_cmd.SetupCobraRootCommand(helpSystem, root)

	tui, err := NewTUICommand()
	if err != nil {
		return nil, err
	}
	serve, err := NewServeCommand()
	if err != nil {
		return nil, err
	}
	watch, err := NewWatchCommand()
	if err != nil {
		return nil, err
	}
	darkMode, err := NewDarkModeCommand()
	if err != nil {
		return nil, err
	}

	for _, c := range []cmds.Command{tui, serve, watch} {
		cobraCmd, err := buildCobraCommand(c)
		if err != nil {
			return nil, err
		}
		root.AddCommand(cobraCmd)
	}

	prefsCmd := &cobra.Command{
		Use:   "prefs",
		Short: "Read or change persisted preferences",
	}
	darkModeCmd, err := buildCobraCommand(darkMode)
	if err != nil {
		return nil, err
	}
	prefsCmd.AddCommand(darkModeCmd)
	root.AddCommand(prefsCmd)

	return root, nil
}

func buildCobraCommand(c cmds.Command) (*cobra.Command, error) {
	cobraCmd, err := cli.BuildCobraCommand(c, cli.WithCobraMiddlewaresFunc(config.Middlewares))
	if err != nil {
		return nil, errors.Wrapf(err, "build %s command", c.Description().Name)
	}
	return cobraCmd, nil
}

// DefaultToTUI starts the terminal chat when args name no subcommand.
func DefaultToTUI(args []string) []string {
	if len(args) == 0 {
		return []string{"tui"}
	}
	first := args[0]
	if !strings.HasPrefix(first, "-") {
		return args
	}
	for _, a := range args {
		if a == "-h" || a == "--help" {
			return args
		}
	}
	return append([]string{"tui"}, args...)
}

// quietTerminalLogs keeps logs off the full-screen UI unless they go to a file.
func quietTerminalLogs(cmd *cobra.Command) {
	if f := cmd.Flags().Lookup("log-file"); f != nil && f.Value.String() != "" {
		return
	}
	log.Logger = zerolog.Nop()
}
