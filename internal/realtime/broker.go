// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/taibuivan/shiftsphere/internal/platform/constants"
	"github.com/taibuivan/shiftsphere/internal/platform/ctxutil"
)

// brokerMessage is the Pub/Sub wire format.
type brokerMessage struct {
	AccountID string          `json:"accountId"`
	Event     string          `json:"event"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// RedisBroker publishes events to Redis so every instance's hub can deliver
// them. It falls back to local delivery when publishing fails.
type RedisBroker struct {
	client  redis.UniversalClient
	hub     *Hub
	channel string
}

// NewRedisBroker binds hub to the shared notification channel.
func NewRedisBroker(client redis.UniversalClient, hub *Hub) *RedisBroker {
	return &RedisBroker{client: client, hub: hub, channel: constants.RedisChannelNotify}
}

// Notify implements Notifier.
func (b *RedisBroker) Notify(ctx context.Context, accountID, event string, payload any) {
	logger := ctxutil.GetLogger(ctx)

	raw, err := encodePayload(payload)
	if err != nil {
		logger.Error().Err(err).Str("event", event).Msg("realtime_payload_encode_failed")
		return
	}

	message, err := json.Marshal(brokerMessage{AccountID: accountID, Event: event, Payload: raw})
	if err != nil {
		logger.Error().Err(err).Str("event", event).Msg("realtime_broker_encode_failed")
		return
	}

	if err := b.client.Publish(ctx, b.channel, message).Err(); err != nil {
		logger.Warn().Err(err).Str("event", event).Msg("realtime_broker_publish_failed")
		b.hub.deliver(ctx, accountID, event, raw)
	}
}

// Run subscribes to the channel and feeds the local hub until ctx is cancelled.
func (b *RedisBroker) Run(ctx context.Context, logger zerolog.Logger) {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer func() { _ = pubsub.Close() }()

	ctx = ctxutil.WithLogger(ctx, logger)
	messages := pubsub.Channel()

	logger.Info().Str("channel", b.channel).Msg("realtime_broker_subscribed")

	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				return
			}
			b.handle(ctx, logger, msg.Payload)
		case <-ctx.Done():
			return
		}
	}
}

func (b *RedisBroker) handle(ctx context.Context, logger zerolog.Logger, data string) {
	var message brokerMessage
	if err := json.Unmarshal([]byte(data), &message); err != nil {
		logger.Warn().Err(err).Msg("realtime_broker_message_malformed")
		return
	}
	b.hub.deliver(ctx, message.AccountID, message.Event, message.Payload)
}
