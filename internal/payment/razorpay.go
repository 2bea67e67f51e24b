package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultRazorpayBaseURL = "https://api.razorpay.com"

// Razorpay implements Provider against the Razorpay REST API.
type Razorpay struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	BaseURL       string
	HTTPClient    *http.Client
}

func (r Razorpay) baseURL() string {
	if u := strings.TrimRight(strings.TrimSpace(r.BaseURL), "/"); u != "" {
		return u
	}
	return defaultRazorpayBaseURL
}

func (r Razorpay) client() *http.Client {
	if r.HTTPClient != nil {
		return r.HTTPClient
	}
	return http.DefaultClient
}

// CreateOrder opens a gateway order for the given amount in minor units.
func (r Razorpay) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (GatewayOrder, error) {
	if amount <= 0 {
		return GatewayOrder{}, errors.New("razorpay: amount must be positive")
	}
	if currency == "" {
		currency = "INR"
	}
	payload, err := json.Marshal(map[string]any{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	})
	if err != nil {
		return GatewayOrder{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL()+"/v1/orders", bytes.NewReader(payload))
	if err != nil {
		return GatewayOrder{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(r.KeyID, r.KeySecret)

	var out GatewayOrder
	if err := r.do(req, &out); err != nil {
		return GatewayOrder{}, err
	}
	return out, nil
}

// FetchPayment looks up a payment's status by id.
func (r Razorpay) FetchPayment(ctx context.Context, paymentID string) (PaymentInfo, error) {
	if strings.TrimSpace(paymentID) == "" {
		return PaymentInfo{}, errors.New("razorpay: payment id is required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL()+"/v1/payments/"+paymentID, nil)
	if err != nil {
		return PaymentInfo{}, err
	}
	req.SetBasicAuth(r.KeyID, r.KeySecret)

	var out PaymentInfo
	if err := r.do(req, &out); err != nil {
		return PaymentInfo{}, err
	}
	return out, nil
}

func (r Razorpay) do(req *http.Request, out any) error {
	resp, err := r.client().Do(req)
	if err != nil {
		return fmt.Errorf("razorpay: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("razorpay: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("razorpay: status %d: %s", resp.StatusCode, truncate(body, 200))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("razorpay: decode response: %w", err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// VerifySignature checks the checkout callback signature: HMAC-SHA256 over
// "<gateway order id>|<payment id>" with the key secret.
func (r Razorpay) VerifySignature(gatewayOrderID, paymentID, signature string) bool {
	if gatewayOrderID == "" || paymentID == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(r.KeySecret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}

// VerifyWebhook authenticates the raw body against the webhook secret, then
// parses the event. Verification happens before any JSON parsing.
func (r Razorpay) VerifyWebhook(body []byte, signature string) (WebhookEvent, error) {
	if r.WebhookSecret == "" {
		return WebhookEvent{}, errors.New("razorpay: webhook secret not configured")
	}
	if strings.TrimSpace(signature) == "" {
		return WebhookEvent{}, errors.New("razorpay: missing webhook signature")
	}
	mac := hmac.New(sha256.New, []byte(r.WebhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature))) {
		return WebhookEvent{}, errors.New("razorpay: webhook signature mismatch")
	}

	var envelope struct {
		Event   string `json:"event"`
		Payload struct {
			Payment struct {
				Entity struct {
					ID      string `json:"id"`
					OrderID string `json:"order_id"`
					Amount  int64  `json:"amount"`
					Status  string `json:"status"`
				} `json:"entity"`
			} `json:"payment"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return WebhookEvent{}, fmt.Errorf("razorpay: decode webhook: %w", err)
	}
	return WebhookEvent{
		Type:           envelope.Event,
		GatewayOrderID: envelope.Payload.Payment.Entity.OrderID,
		PaymentID:      envelope.Payload.Payment.Entity.ID,
		Amount:         envelope.Payload.Payment.Entity.Amount,
		Payload:        body,
	}, nil
}
