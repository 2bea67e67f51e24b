package payment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-printhub/internal/common"
	"github.com/noah-isme/backend-printhub/internal/events"
	"github.com/noah-isme/backend-printhub/internal/obs"
)

const maxWebhookBody = 1 << 20

// Webhook consumes gateway notifications. Deliveries are idempotent two
// ways: a Redis replay guard short-circuits byte-identical redeliveries,
// and the settlement update itself is a no-op for already-paid orders, so
// a lost guard entry cannot double-apply an event.
type Webhook struct {
	Store     Store
	Provider  Provider
	Replay    *redis.Client
	ReplayTTL time.Duration
	Bus       *events.Bus
	Logger    zerolog.Logger
}

// Handle processes POST /api/v1/payments/webhook. Signature verification
// runs on the raw body before any JSON parsing.
func (h Webhook) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		countWebhook("read_error")
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "unable to read payload", nil)
		return
	}

	event, err := h.Provider.VerifyWebhook(body, r.Header.Get("X-Razorpay-Signature"))
	if err != nil {
		// The gateway retries non-2xx responses. A forged or corrupted
		// delivery gets acknowledged and dropped without touching state.
		countWebhook("invalid_signature")
		h.Logger.Warn().Err(err).Msg("webhook signature rejected")
		common.JSON(w, http.StatusOK, map[string]any{"status": "rejected"})
		return
	}

	if h.Replay != nil && h.ReplayTTL > 0 {
		key := "wh:" + common.Sha256Hex(string(body))
		fresh, err := h.Replay.SetNX(r.Context(), key, "1", h.ReplayTTL).Result()
		if err != nil {
			// Redis being down must not drop payments; the settlement
			// update stays idempotent without the guard.
			h.Logger.Warn().Err(err).Msg("webhook replay guard unavailable")
		} else if !fresh {
			countWebhook("replay")
			common.JSON(w, http.StatusOK, map[string]any{"status": "duplicate"})
			return
		}
	}

	result, err := h.process(r.Context(), event)
	if err != nil {
		countWebhook("error")
		h.Logger.Error().Err(err).Str("event", event.Type).Str("gateway_order_id", event.GatewayOrderID).Msg("webhook processing failed")
		common.JSONError(w, http.StatusInternalServerError, "WEBHOOK_ERROR", "unable to process webhook", nil)
		return
	}
	countWebhook(result)
	common.JSON(w, http.StatusOK, map[string]any{"status": result})
}

func (h Webhook) process(ctx context.Context, event WebhookEvent) (string, error) {
	var pid *string
	if event.PaymentID != "" {
		pid = &event.PaymentID
	}
	if event.GatewayOrderID != "" {
		if err := h.Store.InsertPaymentEvent(ctx, event.GatewayOrderID, pid, event.Type, event.Payload); err != nil {
			return "", fmt.Errorf("record payment event: %w", err)
		}
	}

	settles := event.Type == "payment.captured" || event.Type == "payment.authorized"
	if !settles || event.GatewayOrderID == "" {
		return "ignored", nil
	}

	updated, err := h.Store.MarkOrdersPaidByGateway(ctx, event.GatewayOrderID, event.PaymentID)
	if err != nil {
		return "", fmt.Errorf("settle orders: %w", err)
	}
	if updated == 0 {
		// Already settled by the synchronous verify path or an earlier
		// delivery.
		return "noop", nil
	}
	if h.Bus != nil {
		h.Bus.Publish(ctx, events.Event{
			Topic:        events.TopicOrderPaid,
			AggregateRef: event.GatewayOrderID,
			Payload: map[string]any{
				"gateway_order_id": event.GatewayOrderID,
				"payment_id":       event.PaymentID,
				"settled":          updated,
			},
		})
	}
	return "settled", nil
}

func countWebhook(result string) {
	if obs.PaymentWebhookTotal == nil {
		return
	}
	obs.PaymentWebhookTotal.WithLabelValues(result).Inc()
}
