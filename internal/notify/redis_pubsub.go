package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	eventChannel = "venue:events"
	publishTTL   = 5 * time.Second
)

type redisPayload struct {
	Kind EventKind `json:"kind"`
	At   int64     `json:"at"`
}

// RedisPubSub bridges change events across instances via Redis pub/sub.
type RedisPubSub struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisPubSub creates a Redis pub/sub bridge for venue events.
func NewRedisPubSub(client *redis.Client, logger *zap.Logger) *RedisPubSub {
	return &RedisPubSub{client: client, logger: logger}
}

// PublishEvent publishes an event to the venue channel.
func (r *RedisPubSub) PublishEvent(kind EventKind) error {
	body, err := json.Marshal(redisPayload{Kind: kind, At: time.Now().Unix()})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTTL)
	defer cancel()
	return r.client.Publish(ctx, eventChannel, body).Err()
}

// SubscribeEvents subscribes to the venue channel and calls handler for each
// event. Returns a cancel function to stop the subscription.
func (r *RedisPubSub) SubscribeEvents(handler func(kind EventKind)) (cancel func(), err error) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	pubsub := r.client.Subscribe(ctx, eventChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		cancelCtx()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var p redisPayload
				if err := json.Unmarshal([]byte(msg.Payload), &p); err != nil {
					continue
				}
				handler(p.Kind)
			}
		}
	}()
	return func() { cancelCtx() }, nil
}
