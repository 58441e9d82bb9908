package notify

import (
	"context"

	"github.com/noah-isme/attachment-portal-api/pkg/broker"
)

// RedisPusher publishes messages on a per-user Redis channel for realtime clients.
type RedisPusher struct {
	pub    broker.Publisher
	prefix string
}

// NewRedisPusher constructs a pusher publishing on "<prefix>:<user id>".
func NewRedisPusher(pub broker.Publisher, prefix string) *RedisPusher {
	if prefix == "" {
		prefix = "notifications"
	}
	return &RedisPusher{pub: pub, prefix: prefix}
}

// ChannelFor returns the Redis channel for userID.
func (p *RedisPusher) ChannelFor(userID string) string {
	return p.prefix + ":" + userID
}

// Dispatch publishes msg. Having no subscribers is not an error.
func (p *RedisPusher) Dispatch(ctx context.Context, msg Message) error {
	_, err := broker.PublishJSON(ctx, p.pub, p.ChannelFor(msg.UserID), msg)
	return err
}
