// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package realtime pushes account events to connected websocket clients.

Components:

  - Hub: per-instance registry of sockets keyed by account id.
  - RedisBroker: fans events out to every instance through Redis Pub/Sub.
  - Handler: upgrades an authenticated request and registers the socket.

Domain code depends only on [Notifier]. Delivery is best-effort: an account with
no open socket simply misses the event.
*/
package realtime

import (
	"context"
	"encoding/json"
	"time"
)

// Notifier delivers an event to every socket an account has open.
type Notifier interface {
	Notify(ctx context.Context, accountID, event string, payload any)
}

// NopNotifier discards every event.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(context.Context, string, string, any) {}

// Frame is the JSON message written to the socket.
type Frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
	At      time.Time       `json:"at"`
}

func encodeFrame(event string, payload json.RawMessage, at time.Time) ([]byte, error) {
	return json.Marshal(Frame{Event: event, Payload: payload, At: at.UTC()})
}

func encodePayload(payload any) (json.RawMessage, error) {
	if payload == nil {
		return nil, nil
	}
	return json.Marshal(payload)
}
