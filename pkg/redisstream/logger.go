package redisstream

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// WatermillLogger adapts zerolog to watermill.LoggerAdapter.
type WatermillLogger struct {
	l zerolog.Logger
}

var _ watermill.LoggerAdapter = WatermillLogger{}

func NewWatermillLogger(l zerolog.Logger) WatermillLogger {
	return WatermillLogger{l: l.With().Str("component", "watermill").Logger()}
}

func (w WatermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	w.l.Error().Err(err).Fields(map[string]interface{}(fields)).Msg(msg)
}

func (w WatermillLogger) Info(msg string, fields watermill.LogFields) {
	w.l.Info().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (w WatermillLogger) Debug(msg string, fields watermill.LogFields) {
	w.l.Debug().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (w WatermillLogger) Trace(msg string, fields watermill.LogFields) {
	w.l.Trace().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (w WatermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return WatermillLogger{l: w.l.With().Fields(map[string]interface{}(fields)).Logger()}
}
