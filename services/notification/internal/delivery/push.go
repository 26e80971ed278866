package delivery

import (
	"context"
	"encoding/json"
	"fmt"

	"fleetwatch/services/notification/internal/entity"

	"github.com/redis/go-redis/v9"
)

// Publisher is satisfied by *redis.Client.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// PushChannel is the Redis pub/sub channel WebSocket sessions of userID listen on.
func PushChannel(userID string) string {
	return "notifications:" + userID
}

type PushChannelSender struct {
	redis Publisher
}

func NewPushChannel(redis Publisher) *PushChannelSender {
	return &PushChannelSender{redis: redis}
}

func (c *PushChannelSender) Name() entity.Channel {
	return entity.ChannelPush
}

// Send publishes even when nobody is subscribed; the notification stays in
// the inbox either way.
func (c *PushChannelSender) Send(ctx context.Context, recipient entity.Recipient, n entity.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := c.redis.Publish(ctx, PushChannel(recipient.UserID), payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}
