package redisstream

import (
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/schema"
)

// Slug names the glazed section holding the Redis settings.
const Slug = "redis"

// Settings holds Redis Streams transport configuration for Watermill. With an empty Group
// every process reads every event on the stream.
type Settings struct {
	Enabled  bool   `glazed:"redis-enabled"`
	Addr     string `glazed:"redis-addr"`
	Group    string `glazed:"redis-group"`
	Consumer string `glazed:"redis-consumer"`
}

// DefaultSettings keeps the in-memory transport.
func DefaultSettings() Settings {
	return Settings{
		Enabled:  false,
		Addr:     "localhost:6379",
		Group:    "",
		Consumer: "chatbot",
	}
}

// NewSection returns a section definition for Redis Streams settings.
func NewSection() (schema.Section, error) {
	d := DefaultSettings()
	return schema.NewSection(
		Slug,
		"Redis configuration for Watermill Redis Streams",
		schema.WithFields(
			fields.New("redis-enabled", fields.TypeBool,
				fields.WithHelp("Publish session events on Redis Streams"),
				fields.WithDefault(d.Enabled)),
			fields.New("redis-addr", fields.TypeString,
				fields.WithHelp("Redis address host:port"),
				fields.WithDefault(d.Addr)),
			fields.New("redis-group", fields.TypeString,
				fields.WithHelp("Consumer group shared by load-balanced readers; empty reads every event (fan-out)"),
				fields.WithDefault(d.Group)),
			fields.New("redis-consumer", fields.TypeString,
				fields.WithHelp("Redis consumer name"),
				fields.WithDefault(d.Consumer)),
		),
	)
}
