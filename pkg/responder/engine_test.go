package responder

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const greeting = "Hello! How can I assist you today?"

func TestRespond_GreetingIsCaseInsensitive(t *testing.T) {
	e := Default()
	for _, in := range []string{"hi", "Hello", "HELLO", "  hello  ", "Hi"} {
		require.Equal(t, greeting, e.Respond(in), in)
	}
}

func TestRespond_Table(t *testing.T) {
	e := Default()
	require.Equal(t, "I'm just a bot, but I'm here to help you!", e.Respond("How are you?"))
	require.Equal(t, "I am your friendly chatbot.", e.Respond("What's your name?"))
	require.Equal(t,
		"SwiftUI is a user interface toolkit that lets us design apps in a declarative way.",
		e.Respond("what is swiftui?"))
}

func TestRespond_NoPartialMatches(t *testing.T) {
	e := Default()
	for _, in := range []string{"hi there", "", "   ", "how are you", "helo", "what is swiftui"} {
		require.Equal(t, e.Fallback(), e.Respond(in), "%q", in)
	}
	require.Equal(t, "Sorry, I don't understand that. Can you ask something else?", e.Fallback())
}

func TestLoad_RejectsInvalidTables(t *testing.T) {
	cases := map[string]string{
		"missing fallback": "rules:\n  - phrases: [a]\n    reply: b\n",
		"empty reply":      "fallback: x\nrules:\n  - phrases: [a]\n    reply: ''\n",
		"no phrases":       "fallback: x\nrules:\n  - reply: b\n",
		"duplicate":        "fallback: x\nrules:\n  - phrases: [Hi]\n    reply: a\n  - phrases: [hi]\n    reply: b\n",
		"unknown field":    "fallback: x\nextra: 1\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(doc))
			require.Error(t, err)
		})
	}
}

func TestLoad_Custom(t *testing.T) {
	e, err := Load(strings.NewReader("fallback: nope\nrules:\n  - phrases: [ping]\n    reply: pong\n"))
	require.NoError(t, err)
	require.Equal(t, "pong", e.Respond("PING"))
	require.Equal(t, "nope", e.Respond("pong"))
}
