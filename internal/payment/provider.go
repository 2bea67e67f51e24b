// Package payment reconciles gateway payments with orders: synchronous
// signature verification after checkout and asynchronous webhook settlement.
package payment

import "context"

// GatewayOrder is the provider-side order opened before the client pays.
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// PaymentInfo is the provider's view of a single payment attempt.
type PaymentInfo struct {
	ID             string `json:"id"`
	GatewayOrderID string `json:"order_id"`
	Amount         int64  `json:"amount"`
	Status         string `json:"status"`
}

// WebhookEvent is the normalised payload of a verified webhook delivery.
type WebhookEvent struct {
	Type           string
	GatewayOrderID string
	PaymentID      string
	Amount         int64
	Payload        []byte
}

// Provider abstracts the upstream payment gateway.
type Provider interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (GatewayOrder, error)
	FetchPayment(ctx context.Context, paymentID string) (PaymentInfo, error)
	VerifySignature(gatewayOrderID, paymentID, signature string) bool
	VerifyWebhook(body []byte, signature string) (WebhookEvent, error)
}
