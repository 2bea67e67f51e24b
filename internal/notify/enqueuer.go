package notify

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-printhub/internal/events"
)

// Enqueuer bridges domain events onto the task queue.
type Enqueuer struct {
	Client *asynq.Client
	Logger zerolog.Logger
}

// Subscribe registers the enqueuer on the topics it cares about.
func (e *Enqueuer) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.TopicOrderPaid, e.orderPaid)
}

func (e *Enqueuer) orderPaid(ctx context.Context, ev events.Event) {
	if e.Client == nil {
		return
	}
	payload := OrderPaidPayload{
		OrderNumber:    stringField(ev.Payload, "order_number"),
		GatewayOrderID: stringField(ev.Payload, "gateway_order_id"),
	}
	task, err := NewOrderPaidTask(payload)
	if err != nil {
		e.Logger.Error().Err(err).Str("topic", ev.Topic).Msg("build notification task")
		return
	}
	if _, err := e.Client.EnqueueContext(ctx, task); err != nil {
		// Enqueue failures must not fail the settlement that triggered
		// them; the customer still got their order paid.
		e.Logger.Error().Err(err).Str("order_number", payload.OrderNumber).Msg("enqueue notification")
	}
}

func stringField(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	s, _ := payload[key].(string)
	return s
}
