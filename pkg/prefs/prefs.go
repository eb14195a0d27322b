// Package prefs stores display preferences outside of the chat session.
package prefs

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// DarkModeKey is the stable key of the dark mode flag.
const DarkModeKey = "isDarkMode"

// KV is a boolean key-value store shared by the whole process.
type KV interface {
	GetBool(ctx context.Context, key string) (value bool, found bool, err error)
	SetBool(ctx context.Context, key string, value bool) error
	Close() error
}

// Preferences is the typed view of a KV used by the view hosts.
type Preferences struct {
	kv KV
}

func New(kv KV) *Preferences {
	return &Preferences{kv: kv}
}

// DarkMode returns the stored flag, false when it was never set.
func (p *Preferences) DarkMode(ctx context.Context) (bool, error) {
	v, _, err := p.kv.GetBool(ctx, DarkModeKey)
	if err != nil {
		return false, errors.Wrap(err, "read dark mode")
	}
	return v, nil
}

func (p *Preferences) SetDarkMode(ctx context.Context, v bool) error {
	return errors.Wrap(p.kv.SetBool(ctx, DarkModeKey, v), "write dark mode")
}

// ToggleDarkMode flips the flag and returns the new value.
func (p *Preferences) ToggleDarkMode(ctx context.Context) (bool, error) {
	cur, err := p.DarkMode(ctx)
	if err != nil {
		return false, err
	}
	if err := p.SetDarkMode(ctx, !cur); err != nil {
		return cur, err
	}
	return !cur, nil
}

func (p *Preferences) Close() error {
	if p == nil || p.kv == nil {
		return nil
	}
	return p.kv.Close()
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Settings selects and configures a backend.
type Settings struct {
	Backend   string
	SQLiteDB  string
	RedisAddr string
}

// Open builds the backend named by s.Backend.
func Open(s Settings) (*Preferences, error) {
	switch strings.ToLower(strings.TrimSpace(s.Backend)) {
	case "", BackendMemory:
		return New(NewMemoryKV()), nil
	case BackendSQLite:
		kv, err := NewSQLiteKV(s.SQLiteDB)
		if err != nil {
			return nil, err
		}
		return New(kv), nil
	case BackendRedis:
		kv, err := NewRedisKV(s.RedisAddr)
		if err != nil {
			return nil, err
		}
		return New(kv), nil
	default:
		return nil, errors.Errorf("unknown preferences backend %q", s.Backend)
	}
}
