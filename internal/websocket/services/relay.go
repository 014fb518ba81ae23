package services

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Subscriber opens Redis subscriptions
type Subscriber interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// Relay forwards every message published on the hub's channels to the hub, so events
// published by any instance reach subscribers connected to this one
type Relay struct {
	hub        *Hub
	subscriber Subscriber
}

// NewRelay creates a relay feeding hub
func NewRelay(hub *Hub, subscriber Subscriber) *Relay {
	return &Relay{hub: hub, subscriber: subscriber}
}

// Run relays until ctx is cancelled
func (r *Relay) Run(ctx context.Context) {
	pubsub := r.subscriber.Subscribe(ctx, r.hub.channels...)
	defer pubsub.Close()

	slog.Info("Live feed relay started", "channels", r.hub.channels)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.hub.Broadcast([]byte(msg.Payload))
		}
	}
}
