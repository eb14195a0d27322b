// Package responder maps user input to canned replies through a closed exact-match table.
package responder

import (
	"bytes"
	_ "embed"
	"io"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// Rule binds one or more phrases to a reply.
type Rule struct {
	Phrases []string `yaml:"phrases"`
	Reply   string   `yaml:"reply"`
}

// Table is the on-disk shape of a rule set.
type Table struct {
	Fallback string `yaml:"fallback"`
	Rules    []Rule `yaml:"rules"`
}

// Engine answers from an immutable phrase table. The zero value is not usable; build one
// with Default or Load.
type Engine struct {
	replies  map[string]string
	fallback string
}

// Default returns the engine built from the embedded rule table.
func Default() *Engine {
	e, err := Load(bytes.NewReader(defaultRules))
	if err != nil {
		panic(errors.Wrap(err, "embedded responder rules are invalid"))
	}
	return e
}

// Load decodes and validates a rule table.
func Load(r io.Reader) (*Engine, error) {
	var t Table
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return nil, errors.Wrap(err, "decode responder rules")
	}
	return New(t)
}

// New validates t and builds an Engine from it.
func New(t Table) (*Engine, error) {
	if strings.TrimSpace(t.Fallback) == "" {
		return nil, errors.New("responder rules: fallback reply is empty")
	}
	replies := make(map[string]string)
	for i, rule := range t.Rules {
		if strings.TrimSpace(rule.Reply) == "" {
			return nil, errors.Errorf("responder rules: rule %d has an empty reply", i)
		}
		if len(rule.Phrases) == 0 {
			return nil, errors.Errorf("responder rules: rule %d has no phrases", i)
		}
		for _, p := range rule.Phrases {
			key := normalize(p)
			if key == "" {
				return nil, errors.Errorf("responder rules: rule %d has an empty phrase", i)
			}
			if _, dup := replies[key]; dup {
				return nil, errors.Errorf("responder rules: phrase %q is defined twice", key)
			}
			replies[key] = rule.Reply
		}
	}
	return &Engine{replies: replies, fallback: t.Fallback}, nil
}

// Respond returns the reply for text. The whole trimmed, lower-cased input must equal a
// phrase; anything else gets the fallback.
func (e *Engine) Respond(text string) string {
	if reply, ok := e.replies[normalize(text)]; ok {
		return reply
	}
	return e.fallback
}

// Fallback is the reply given to unmatched input.
func (e *Engine) Fallback() string {
	return e.fallback
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
