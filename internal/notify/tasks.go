// Package notify delivers customer-facing notifications through the task
// queue so the request path never waits on a mail provider.
package notify

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// TypeOrderPaid identifies payment confirmation tasks.
const TypeOrderPaid = "notify:order_paid"

// OrderPaidPayload carries enough to re-resolve the affected orders at
// delivery time. Either field may be set; the gateway reference fans out
// to every order settled by one payment.
type OrderPaidPayload struct {
	OrderNumber    string `json:"order_number,omitempty"`
	GatewayOrderID string `json:"gateway_order_id,omitempty"`
}

// NewOrderPaidTask builds a queue task for a paid-order notification.
func NewOrderPaidTask(p OrderPaidPayload) (*asynq.Task, error) {
	if p.OrderNumber == "" && p.GatewayOrderID == "" {
		return nil, fmt.Errorf("order paid task: empty payload")
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("order paid task: %w", err)
	}
	return asynq.NewTask(TypeOrderPaid, payload, asynq.MaxRetry(5)), nil
}
