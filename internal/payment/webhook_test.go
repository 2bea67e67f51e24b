package payment

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func deliverWebhook(t *testing.T, h Webhook, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(body))
	req.Header.Set("X-Razorpay-Signature", "sig")
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func webhookStatus(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Data.Status
}

func TestWebhookSettlesCapture(t *testing.T) {
	st := newStubPayStore()
	st.markGatewayRet = 2
	h := Webhook{
		Store: st,
		Provider: &stubProvider{webhookEvent: WebhookEvent{
			Type:           "payment.captured",
			GatewayOrderID: "order_gw1",
			PaymentID:      "pay_1",
			Amount:         6000,
		}},
		Logger: zerolog.Nop(),
	}

	rec := deliverWebhook(t, h, `{"event":"payment.captured"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "settled", webhookStatus(t, rec))
	require.Equal(t, []string{"order_gw1"}, st.markGateway)
	require.Contains(t, st.events, "payment.captured")
}

func TestWebhookInvalidSignature(t *testing.T) {
	st := newStubPayStore()
	h := Webhook{
		Store:    st,
		Provider: &stubProvider{webhookErr: errors.New("signature mismatch")},
		Logger:   zerolog.Nop(),
	}

	rec := deliverWebhook(t, h, `{"event":"payment.captured"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "rejected", webhookStatus(t, rec))
	require.Empty(t, st.markGateway)
	require.Empty(t, st.events)
}

func TestWebhookRedeliveryIsIdempotent(t *testing.T) {
	// The replay guard is deliberately absent here; idempotence must hold
	// on the settlement update alone.
	st := newStubPayStore()
	st.markGatewayRet = 1
	h := Webhook{
		Store: st,
		Provider: &stubProvider{webhookEvent: WebhookEvent{
			Type:           "payment.captured",
			GatewayOrderID: "order_gw1",
			PaymentID:      "pay_1",
		}},
		Logger: zerolog.Nop(),
	}

	rec := deliverWebhook(t, h, `{"event":"payment.captured"}`)
	require.Equal(t, "settled", webhookStatus(t, rec))

	st.markGatewayRet = 0
	rec = deliverWebhook(t, h, `{"event":"payment.captured"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "noop", webhookStatus(t, rec))
}

func TestWebhookReplayGuard(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	st := newStubPayStore()
	st.markGatewayRet = 1
	h := Webhook{
		Store: st,
		Provider: &stubProvider{webhookEvent: WebhookEvent{
			Type:           "payment.captured",
			GatewayOrderID: "order_gw1",
			PaymentID:      "pay_1",
		}},
		Replay:    client,
		ReplayTTL: time.Hour,
		Logger:    zerolog.Nop(),
	}

	rec := deliverWebhook(t, h, `{"event":"payment.captured"}`)
	require.Equal(t, "settled", webhookStatus(t, rec))
	require.Len(t, st.markGateway, 1)

	rec = deliverWebhook(t, h, `{"event":"payment.captured"}`)
	require.Equal(t, "duplicate", webhookStatus(t, rec))
	require.Len(t, st.markGateway, 1)
}

func TestWebhookReplayGuardOutage(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close()

	st := newStubPayStore()
	st.markGatewayRet = 1
	h := Webhook{
		Store: st,
		Provider: &stubProvider{webhookEvent: WebhookEvent{
			Type:           "payment.captured",
			GatewayOrderID: "order_gw1",
			PaymentID:      "pay_1",
		}},
		Replay:    client,
		ReplayTTL: time.Hour,
		Logger:    zerolog.Nop(),
	}

	// Losing Redis degrades the guard, never the settlement.
	rec := deliverWebhook(t, h, `{"event":"payment.captured"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "settled", webhookStatus(t, rec))
}

func TestWebhookSettlesAuthorized(t *testing.T) {
	st := newStubPayStore()
	st.markGatewayRet = 1
	h := Webhook{
		Store: st,
		Provider: &stubProvider{webhookEvent: WebhookEvent{
			Type:           "payment.authorized",
			GatewayOrderID: "order_gw1",
			PaymentID:      "pay_1",
		}},
		Logger: zerolog.Nop(),
	}

	rec := deliverWebhook(t, h, `{"event":"payment.authorized"}`)
	require.Equal(t, "settled", webhookStatus(t, rec))
	require.Equal(t, []string{"order_gw1"}, st.markGateway)
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	st := newStubPayStore()
	h := Webhook{
		Store: st,
		Provider: &stubProvider{webhookEvent: WebhookEvent{
			Type:           "payment.failed",
			GatewayOrderID: "order_gw1",
			PaymentID:      "pay_1",
		}},
		Logger: zerolog.Nop(),
	}

	rec := deliverWebhook(t, h, `{"event":"payment.failed"}`)
	require.Equal(t, "ignored", webhookStatus(t, rec))
	require.Empty(t, st.markGateway)
	require.Contains(t, st.events, "payment.failed")
}
