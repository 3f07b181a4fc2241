// Package events provides operational event fan-out for the relay.
package events

import (
	"context"

	"github.com/capitalize-ai/chat-relay/internal/model"
)

// Publisher emits operational events about conversations. Publishing is
// best-effort observability; no component may depend on delivery.
type Publisher interface {
	Publish(ctx context.Context, event model.Event) error
	Close()
}

// Nop is a Publisher that discards all events. It is used when no event
// bus is configured and in tests.
type Nop struct{}

// NewNop creates a no-op publisher.
func NewNop() *Nop {
	return &Nop{}
}

// Publish discards the event.
func (*Nop) Publish(ctx context.Context, event model.Event) error {
	return nil
}

// Close is a no-op.
func (*Nop) Close() {}
