package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Bus is an in-process publisher that delivers messages synchronously to the
// handlers subscribed on a topic.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger.With("component", "pubsub_bus"),
	}
}

// Subscribe registers h for messages on topic.
func (b *Bus) Subscribe(topic string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], h)
	b.logger.Debug("registered handler", "topic", topic, "handler_count", len(b.handlers[topic]))
}

// Publish encodes payload as JSON and hands it to every subscriber. Every
// handler sees the message even if an earlier one fails; the message is
// acknowledged only if all of them succeed before ctx ends. A topic without
// subscribers acknowledges and drops the message.
func (b *Bus) Publish(ctx context.Context, topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", topic, err)
	}

	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[topic]))
	copy(handlers, b.handlers[topic])
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.logger.Warn("no handlers registered for topic", "topic", topic)
		return nil
	}

	var firstErr error
	for i, h := range handlers {
		if err := b.deliver(ctx, h, body); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				b.logger.Warn("handler did not finish before the publish deadline",
					"handler_index", i,
					"topic", topic)
				return fmt.Errorf("publish to %s: %w", topic, ctxErr)
			}
			b.logger.Error("handler failed to process message",
				"error", err,
				"handler_index", i,
				"topic", topic)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return fmt.Errorf("publish to %s: %w: %v", topic, ErrNotAcknowledged, firstErr)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// deliver runs h and waits for it or for ctx, whichever ends first. A handler
// still running when ctx ends is left to finish on its own.
func (b *Bus) deliver(ctx context.Context, h Handler, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		done <- h(ctx, body)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
