package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisBus uses Redis pub/sub channels as topics.
type RedisBus struct {
	rdb *redis.Client
}

func NewRedisBus(ctx context.Context, addr string) (*RedisBus, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return &RedisBus{rdb: rdb}, nil
}

func (b *RedisBus) Publish(ctx context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	return b.rdb.Publish(ctx, topic, data).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context, topic string) (<-chan []byte, func(), error) {
	ps := b.rdb.Subscribe(ctx, topic)
	// wait for the subscription confirmation
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}

	out := make(chan []byte, 64)
	msgs := ps.Channel()
	go func() {
		defer close(out)
		for msg := range msgs {
			select {
			case out <- []byte(msg.Payload):
			default:
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() { _ = ps.Close() })
	}
	return out, cancel, nil
}

func (b *RedisBus) Close() error {
	return b.rdb.Close()
}
