// Package pubsub carries reminder and task events between components.
//
// A Publisher either acknowledges a message or returns an error; there is
// no retry inside a publisher. Callers bound each publish with a context
// deadline and treat a timeout like any other failure.
package pubsub

import (
	"context"
	"errors"
)

// ErrNotAcknowledged is returned when the transport rejected a message.
var ErrNotAcknowledged = errors.New("publish not acknowledged")

// Publisher sends a payload to a topic. A nil error means the transport
// explicitly acknowledged the message.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// Handler consumes the JSON body of a message delivered on a topic.
type Handler func(ctx context.Context, payload []byte) error
