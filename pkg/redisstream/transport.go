package redisstream

import (
	"context"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	rstream "github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Transport is a publisher/subscriber pair. With Redis disabled both sides are the same
// in-memory channel, so every subscriber sees every published message.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber

	settings Settings
	logger   watermill.LoggerAdapter
	client   *redis.Client
	closers  []func() error
}

// Build constructs the transport described by s. If s.Enabled is false it returns an
// in-memory gochannel transport. With an empty s.Group the Redis subscriber reads in
// fan-out mode from the tail of the stream and sees every event; a named group shares the
// events among its consumers.
func Build(s Settings, logger watermill.LoggerAdapter) (*Transport, error) {
	if logger == nil {
		logger = NewWatermillLogger(log.Logger)
	}
	if !s.Enabled {
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger)
		return &Transport{
			Publisher:  ch,
			Subscriber: ch,
			settings:   s,
			logger:     logger,
			closers:    []func() error{ch.Close},
		}, nil
	}

	if strings.TrimSpace(s.Addr) == "" {
		return nil, errors.New("redis transport: empty address")
	}
	if strings.TrimSpace(s.Consumer) == "" {
		s.Consumer = DefaultSettings().Consumer
	}
	s.Group = strings.TrimSpace(s.Group)

	client := redis.NewClient(&redis.Options{Addr: s.Addr})
	marshaler := rstream.DefaultMarshallerUnmarshaller{}

	pub, err := rstream.NewPublisher(rstream.PublisherConfig{
		Client:     client,
		Marshaller: marshaler,
	}, logger)
	if err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "redis transport: publisher")
	}

	sub, err := rstream.NewSubscriber(rstream.SubscriberConfig{
		Client:        client,
		Unmarshaller:  marshaler,
		ConsumerGroup: s.Group,
		Consumer:      s.Consumer,
	}, logger)
	if err != nil {
		_ = pub.Close()
		_ = client.Close()
		return nil, errors.Wrap(err, "redis transport: subscriber")
	}

	return &Transport{
		Publisher:  pub,
		Subscriber: sub,
		settings:   s,
		logger:     logger.With(watermill.LogFields{"group": s.Group, "consumer": s.Consumer}),
		client:     client,
		closers:    []func() error{sub.Close, pub.Close, client.Close},
	}, nil
}

// Redis reports whether the transport goes through Redis Streams.
func (t *Transport) Redis() bool {
	return t.client != nil
}

// FanOut reports whether every subscriber of the transport receives every message.
func (t *Transport) FanOut() bool {
	return t.client == nil || t.settings.Group == ""
}

// EnsureGroupAtTail creates the consumer group for stream at the tail ($) if it doesn't
// exist, so a fresh view does not replay the whole history. No-op for the in-memory
// transport and for fan-out readers, which start at the tail anyway.
func (t *Transport) EnsureGroupAtTail(ctx context.Context, stream string) error {
	if t.FanOut() {
		return nil
	}
	err := t.client.XGroupCreateMkStream(ctx, stream, t.settings.Group, "$").Err()
	if err != nil {
		// Ignore BUSYGROUP errors (group already exists)
		if strings.Contains(err.Error(), "BUSYGROUP") {
			return nil
		}
		return errors.Wrap(err, "redis transport: create consumer group")
	}
	t.logger.Info("created redis consumer group at $ (tail)", watermill.LogFields{"stream": stream})
	return nil
}

func (t *Transport) Close() error {
	var first error
	for _, c := range t.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	t.closers = nil
	return first
}
