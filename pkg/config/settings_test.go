package config

import (
	"context"
	"testing"

	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/chatbot/pkg/chat"
	"github.com/go-go-golems/chatbot/pkg/prefs"
)

type captureCommand struct {
	*cmds.CommandDescription
	got *Settings
}

var _ cmds.BareCommand = (*captureCommand)(nil)

func (c *captureCommand) Run(_ context.Context, parsed *values.Values) error {
	s, err := Decode(parsed)
	if err != nil {
		return err
	}
	*c.got = s
	return nil
}

func resolve(t *testing.T, args ...string) Settings {
	t.Helper()
	sections, err := Sections()
	require.NoError(t, err)

	var got Settings
	c := &captureCommand{
		CommandDescription: cmds.NewCommandDescription("capture", cmds.WithSections(sections...)),
		got:                &got,
	}
	cobraCmd, err := cli.BuildCobraCommand(c, cli.WithCobraMiddlewaresFunc(Middlewares))
	require.NoError(t, err)
	cobraCmd.SetArgs(args)
	require.NoError(t, cobraCmd.Execute())
	return got
}

func TestDecode_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	s := resolve(t)
	require.Equal(t, "block", s.Chat.BusyPolicy)
	require.Equal(t, "deliver", s.Chat.ClearPolicy)
	require.Equal(t, prefs.BackendSQLite, s.Prefs.Backend)
	require.NotEmpty(t, s.Prefs.DB)
	require.False(t, s.Redis.Enabled)
	require.Equal(t, "localhost:6379", s.Redis.Addr)
	require.Empty(t, s.Redis.Group)
}

func TestDecode_FlagsBeatEnvironment(t *testing.T) {
	t.Setenv("CHATBOT_BUSY_POLICY", "block")
	t.Setenv("CHATBOT_CLEAR_POLICY", "cancel")
	t.Setenv("CHATBOT_REDIS_ADDR", "redis:6379")

	s := resolve(t, "--busy-policy", "queue", "--prefs-backend", "memory")
	require.Equal(t, "queue", s.Chat.BusyPolicy, "flag beats env")
	require.Equal(t, "cancel", s.Chat.ClearPolicy, "env beats default")
	require.Equal(t, prefs.BackendMemory, s.Prefs.Backend)
	require.Equal(t, "redis:6379", s.PrefsConfig().RedisAddr)

	opts, err := s.ChatOptions()
	require.NoError(t, err)
	require.Len(t, opts, 2)
}

func TestValidate(t *testing.T) {
	base := Settings{
		Chat:  ChatSettings{BusyPolicy: "block", ClearPolicy: "deliver"},
		Prefs: PrefsSettings{Backend: "memory"},
	}
	require.NoError(t, base.Validate())

	bad := base
	bad.Chat.BusyPolicy = "race"
	require.Error(t, bad.Validate())

	bad = base
	bad.Chat.ClearPolicy = "sometimes"
	require.Error(t, bad.Validate())

	bad = base
	bad.Prefs.Backend = "etcd"
	require.ErrorContains(t, bad.Validate(), "unknown prefs-backend")

	bad = base
	bad.Prefs.Backend = "sqlite"
	require.ErrorContains(t, bad.Validate(), "prefs-db is required")
}

func TestChatOptionsApplyPolicies(t *testing.T) {
	s := Settings{Chat: ChatSettings{BusyPolicy: "queue", ClearPolicy: "cancel"}}
	opts, err := s.ChatOptions()
	require.NoError(t, err)

	store := chat.NewStore(opts...)
	defer store.Close()
	require.Equal(t, chat.OutcomeAppended, store.Submit("hi"))
	require.Equal(t, chat.OutcomeQueued, store.Submit("hello"))
	store.Clear()
	require.False(t, store.Snapshot().Composing)
}
