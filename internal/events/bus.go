// Package events provides an in-process publish/subscribe bus with a
// persisted log of domain events.
package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-printhub/internal/store"
)

// Topics published by the order and payment flows.
const (
	TopicOrderCreated = "order.created"
	TopicOrderPaid    = "order.paid"
	TopicOrderDeleted = "order.deleted"
)

// Event is a domain occurrence keyed by topic and aggregate reference.
type Event struct {
	Topic        string
	AggregateRef string
	Payload      map[string]any
}

// HandlerFunc consumes events for one topic. Handlers run synchronously on
// the publishing goroutine and must not block.
type HandlerFunc func(ctx context.Context, ev Event)

// Bus fans events out to subscribers and appends them to the domain event
// log. A nil Bus is a no-op.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]HandlerFunc
	store    *store.Store
	logger   zerolog.Logger
}

func NewBus(s *store.Store, logger zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]HandlerFunc),
		store:    s,
		logger:   logger,
	}
}

// Subscribe registers a handler for a topic.
func (b *Bus) Subscribe(topic string, fn HandlerFunc) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], fn)
}

// Publish appends the event to the log and invokes subscribers. Log write
// failures are logged, not surfaced; the triggering operation has already
// committed.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	if b == nil {
		return
	}
	if b.store != nil {
		payload, _ := json.Marshal(ev.Payload)
		if err := b.store.InsertDomainEvent(ctx, ev.Topic, ev.AggregateRef, payload); err != nil {
			b.logger.Error().Err(err).Str("topic", ev.Topic).Msg("domain event log write failed")
		}
	}
	b.mu.RLock()
	subs := b.handlers[ev.Topic]
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(ctx, ev)
	}
}
