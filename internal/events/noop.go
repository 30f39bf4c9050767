package events

import "context"

// NoopBus is used when no broker is configured (single replica).
type NoopBus struct{}

func (NoopBus) Publish(ctx context.Context, topic string, event any) error {
	return nil
}

func (NoopBus) Subscribe(ctx context.Context, topic string) (<-chan []byte, func(), error) {
	ch := make(chan []byte)
	close(ch)
	return ch, func() {}, nil
}

func (NoopBus) Close() error {
	return nil
}
