// Package config declares the glazed sections shared by the chatbot commands and decodes
// them into Settings. Values resolve from flags, then CHATBOT_* environment variables, then
// defaults.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/schema"
	"github.com/go-go-golems/glazed/pkg/cmds/sources"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/chatbot/pkg/chat"
	"github.com/go-go-golems/chatbot/pkg/prefs"
	"github.com/go-go-golems/chatbot/pkg/redisstream"
)

const (
	EnvPrefix = "CHATBOT"

	ChatSlug  = "chat"
	PrefsSlug = "prefs"
)

// ChatSettings are the session policies.
type ChatSettings struct {
	BusyPolicy  string `glazed:"busy-policy"`
	ClearPolicy string `glazed:"clear-policy"`
}

// PrefsSettings select the preference store.
type PrefsSettings struct {
	Backend string `glazed:"prefs-backend"`
	DB      string `glazed:"prefs-db"`
}

type Settings struct {
	Chat  ChatSettings
	Prefs PrefsSettings
	Redis redisstream.Settings
}

// DefaultDir is where the preferences database lives by default.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chatbot"
	}
	return filepath.Join(home, ".chatbot")
}

func NewChatSection() (schema.Section, error) {
	return schema.NewSection(
		ChatSlug,
		"Chat session policies",
		schema.WithFields(
			fields.New("busy-policy", fields.TypeChoice,
				fields.WithHelp("What to do with a message sent while the bot is typing"),
				fields.WithChoices(string(chat.BusyBlock), string(chat.BusyQueue)),
				fields.WithDefault(string(chat.BusyBlock))),
			fields.New("clear-policy", fields.TypeChoice,
				fields.WithHelp("What clearing the chat does to a pending reply"),
				fields.WithChoices(string(chat.ClearDeliver), string(chat.ClearCancel)),
				fields.WithDefault(string(chat.ClearDeliver))),
		),
	)
}

func NewPrefsSection() (schema.Section, error) {
	return schema.NewSection(
		PrefsSlug,
		"Persisted preferences",
		schema.WithFields(
			fields.New("prefs-backend", fields.TypeChoice,
				fields.WithHelp("Preferences store"),
				fields.WithChoices(prefs.BackendMemory, prefs.BackendSQLite, prefs.BackendRedis),
				fields.WithDefault(prefs.BackendSQLite)),
			fields.New("prefs-db", fields.TypeString,
				fields.WithHelp("SQLite preferences database"),
				fields.WithDefault(filepath.Join(DefaultDir(), "prefs.db"))),
		),
	)
}

// Sections returns the chat, prefs and redis sections, in that order.
func Sections() ([]schema.Section, error) {
	chatSection, err := NewChatSection()
	if err != nil {
		return nil, errors.Wrap(err, "chat section")
	}
	prefsSection, err := NewPrefsSection()
	if err != nil {
		return nil, errors.Wrap(err, "prefs section")
	}
	redisSection, err := redisstream.NewSection()
	if err != nil {
		return nil, errors.Wrap(err, "redis section")
	}
	return []schema.Section{chatSection, prefsSection, redisSection}, nil
}

// Middlewares resolves flags and arguments first, then CHATBOT_* variables, then defaults.
func Middlewares(_ *values.Values, cmd *cobra.Command, args []string) ([]sources.Middleware, error) {
	return []sources.Middleware{
		sources.FromCobra(cmd),
		sources.FromArgs(args),
		sources.FromEnv(EnvPrefix,
			fields.WithSource("env"),
		),
		sources.FromDefaults(),
	}, nil
}

// Decode reads the three sections out of parsed and validates the result.
func Decode(parsed *values.Values) (Settings, error) {
	var s Settings
	if err := parsed.DecodeSectionInto(ChatSlug, &s.Chat); err != nil {
		return Settings{}, errors.Wrap(err, "decode chat settings")
	}
	if err := parsed.DecodeSectionInto(PrefsSlug, &s.Prefs); err != nil {
		return Settings{}, errors.Wrap(err, "decode prefs settings")
	}
	if err := parsed.DecodeSectionInto(redisstream.Slug, &s.Redis); err != nil {
		return Settings{}, errors.Wrap(err, "decode redis settings")
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s Settings) Validate() error {
	if _, err := chat.ParseBusyPolicy(s.Chat.BusyPolicy); err != nil {
		return err
	}
	if _, err := chat.ParseClearPolicy(s.Chat.ClearPolicy); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(s.Prefs.Backend)) {
	case "", prefs.BackendMemory, prefs.BackendRedis:
	case prefs.BackendSQLite:
		if strings.TrimSpace(s.Prefs.DB) == "" {
			return errors.New("prefs-db is required for the sqlite preferences backend")
		}
	default:
		return errors.Errorf("unknown prefs-backend %q (want memory, sqlite or redis)", s.Prefs.Backend)
	}
	return nil
}

// ChatOptions turns the policy settings into store options.
func (s Settings) ChatOptions() ([]chat.Option, error) {
	busy, err := chat.ParseBusyPolicy(s.Chat.BusyPolicy)
	if err != nil {
		return nil, err
	}
	clearPolicy, err := chat.ParseClearPolicy(s.Chat.ClearPolicy)
	if err != nil {
		return nil, err
	}
	return []chat.Option{chat.WithBusyPolicy(busy), chat.WithClearPolicy(clearPolicy)}, nil
}

func (s Settings) PrefsConfig() prefs.Settings {
	return prefs.Settings{
		Backend:   s.Prefs.Backend,
		SQLiteDB:  s.Prefs.DB,
		RedisAddr: s.Redis.Addr,
	}
}
