package events

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestPublishFansOut(t *testing.T) {
	bus := NewBus(nil, zerolog.Nop())

	var got []Event
	bus.Subscribe(TopicOrderPaid, func(_ context.Context, ev Event) {
		got = append(got, ev)
	})
	bus.Subscribe(TopicOrderCreated, func(_ context.Context, ev Event) {
		t.Errorf("unexpected delivery on %s", ev.Topic)
	})

	bus.Publish(context.Background(), Event{
		Topic:        TopicOrderPaid,
		AggregateRef: "PH-20260831-ABCDEF",
		Payload:      map[string]any{"order_number": "PH-20260831-ABCDEF"},
	})

	require.Len(t, got, 1)
	require.Equal(t, "PH-20260831-ABCDEF", got[0].AggregateRef)
}

func TestNilBusIsNoop(t *testing.T) {
	var bus *Bus
	bus.Subscribe(TopicOrderPaid, func(context.Context, Event) { t.Error("should not deliver") })
	bus.Publish(context.Background(), Event{Topic: TopicOrderPaid})
}
