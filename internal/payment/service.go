package payment

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/noah-isme/backend-printhub/internal/common"
	"github.com/noah-isme/backend-printhub/internal/events"
	"github.com/noah-isme/backend-printhub/internal/obs"
	"github.com/noah-isme/backend-printhub/internal/store"
)

// Store is the persistence surface payment reconciliation needs.
type Store interface {
	OrdersByNumbers(ctx context.Context, orderNumbers []string) ([]store.Order, error)
	AttachGatewayOrder(ctx context.Context, orderNumbers []string, gatewayOrderID string) (int64, error)
	MarkOrdersPaid(ctx context.Context, orderNumbers []string, gatewayOrderID, paymentID, signature string) (int64, error)
	MarkOrdersPaidByGateway(ctx context.Context, gatewayOrderID, paymentID string) (int64, error)
	InsertPaymentEvent(ctx context.Context, gatewayOrderID string, paymentID *string, eventType string, payload []byte) error
}

// Service ties the gateway to order payment state.
type Service struct {
	store    Store
	provider Provider
	bus      *events.Bus
	currency string
}

func NewService(s Store, provider Provider, bus *events.Bus) *Service {
	return &Service{store: s, provider: provider, bus: bus, currency: "INR"}
}

// CreateOrderResult is returned to the client so it can open the gateway
// checkout widget.
type CreateOrderResult struct {
	GatewayOrderID string   `json:"gateway_order_id"`
	Amount         int64    `json:"amount"`
	Currency       string   `json:"currency"`
	OrderNumbers   []string `json:"order_numbers"`
}

// CreateGatewayOrder opens one gateway order covering the listed unpaid
// orders and stamps the reference onto them so the webhook can settle them
// without the client's help.
func (s *Service) CreateGatewayOrder(ctx context.Context, caller common.Identity, orderNumbers []string) (CreateOrderResult, error) {
	numbers := normalizeNumbers(orderNumbers)
	if len(numbers) == 0 {
		return CreateOrderResult{}, common.ErrValidation("missing or invalid fields", []string{"order_numbers"})
	}
	orders, err := s.loadPayableOrders(ctx, caller, numbers)
	if err != nil {
		return CreateOrderResult{}, err
	}
	var amount int64
	for _, ord := range orders {
		amount += ord.TotalPrice
	}

	gw, err := s.provider.CreateOrder(ctx, amount, s.currency, numbers[0])
	if err != nil {
		return CreateOrderResult{}, common.ErrExternalService("payment gateway unavailable", err)
	}
	if _, err := s.store.AttachGatewayOrder(ctx, numbers, gw.ID); err != nil {
		return CreateOrderResult{}, fmt.Errorf("attach gateway order: %w", err)
	}
	return CreateOrderResult{
		GatewayOrderID: gw.ID,
		Amount:         amount,
		Currency:       s.currency,
		OrderNumbers:   numbers,
	}, nil
}

// VerifyInput is the client-side confirmation payload after checkout.
type VerifyInput struct {
	GatewayOrderID string   `json:"gateway_order_id"`
	PaymentID      string   `json:"payment_id"`
	Signature      string   `json:"signature"`
	OrderNumbers   []string `json:"order_numbers"`
}

// VerifyResult reports how many orders the verification settled.
type VerifyResult struct {
	Updated      int64    `json:"updated"`
	OrderNumbers []string `json:"order_numbers"`
}

// Verify checks the gateway signature, confirms the payment was actually
// captured, then marks the orders paid. A tampered signature always fails,
// whatever the true payment state.
func (s *Service) Verify(ctx context.Context, caller common.Identity, in VerifyInput) (VerifyResult, error) {
	res, err := s.verify(ctx, caller, in)
	countVerify(err)
	return res, err
}

func (s *Service) verify(ctx context.Context, caller common.Identity, in VerifyInput) (VerifyResult, error) {
	var fields []string
	if strings.TrimSpace(in.GatewayOrderID) == "" {
		fields = append(fields, "gateway_order_id")
	}
	if strings.TrimSpace(in.PaymentID) == "" {
		fields = append(fields, "payment_id")
	}
	if strings.TrimSpace(in.Signature) == "" {
		fields = append(fields, "signature")
	}
	numbers := normalizeNumbers(in.OrderNumbers)
	if len(numbers) == 0 {
		fields = append(fields, "order_numbers")
	}
	if len(fields) > 0 {
		return VerifyResult{}, common.ErrValidation("missing or invalid fields", fields)
	}

	if !s.provider.VerifySignature(in.GatewayOrderID, in.PaymentID, in.Signature) {
		return VerifyResult{}, common.NewAppError("SIGNATURE_MISMATCH", "payment signature verification failed", http.StatusBadRequest, nil)
	}

	info, err := s.provider.FetchPayment(ctx, in.PaymentID)
	if err != nil {
		return VerifyResult{}, common.ErrExternalService("payment gateway unavailable", err)
	}
	if info.Status != "captured" && info.Status != "authorized" {
		return VerifyResult{}, common.NewAppError("PAYMENT_NOT_CAPTURED", "payment is not captured", http.StatusBadRequest, nil)
	}

	if _, err := s.loadPayableOrders(ctx, caller, numbers); err != nil {
		return VerifyResult{}, err
	}

	updated, err := s.store.MarkOrdersPaid(ctx, numbers, in.GatewayOrderID, in.PaymentID, in.Signature)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("mark orders paid: %w", err)
	}
	pid := in.PaymentID
	_ = s.store.InsertPaymentEvent(ctx, in.GatewayOrderID, &pid, "client.verified", nil)
	if updated > 0 {
		s.publishPaid(ctx, in.GatewayOrderID, numbers)
	}
	return VerifyResult{Updated: updated, OrderNumbers: numbers}, nil
}

// loadPayableOrders resolves order numbers and checks the caller may pay
// for each of them. Staff can settle any order; customers only their own
// or guest orders they placed (guest orders carry no owner).
func (s *Service) loadPayableOrders(ctx context.Context, caller common.Identity, numbers []string) ([]store.Order, error) {
	orders, err := s.store.OrdersByNumbers(ctx, numbers)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	if len(orders) != len(numbers) {
		return nil, common.ErrNotFound("one or more orders not found")
	}
	staff := caller.Role == "admin" || caller.Role == "employee"
	for _, ord := range orders {
		if ord.PaymentStatus == "paid" {
			return nil, common.ErrConflict("ALREADY_PAID", "order "+ord.OrderNumber+" is already paid", nil)
		}
		if staff || ord.UserID == nil {
			continue
		}
		if caller.UserID == "" || ord.UserID.String() != caller.UserID {
			return nil, common.ErrForbidden()
		}
	}
	return orders, nil
}

func (s *Service) publishPaid(ctx context.Context, gatewayOrderID string, orderNumbers []string) {
	for _, number := range orderNumbers {
		s.bus.Publish(ctx, events.Event{
			Topic:        events.TopicOrderPaid,
			AggregateRef: number,
			Payload: map[string]any{
				"order_number":     number,
				"gateway_order_id": gatewayOrderID,
			},
		})
	}
}

func normalizeNumbers(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, n := range in {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func countVerify(err error) {
	if obs.PaymentVerifyTotal == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	obs.PaymentVerifyTotal.WithLabelValues(result).Inc()
}
