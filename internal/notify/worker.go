package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-printhub/internal/common"
	"github.com/noah-isme/backend-printhub/internal/store"
)

// Store is the lookup surface the worker needs to address a notification.
type Store interface {
	GetOrderByNumber(ctx context.Context, orderNumber string) (store.Order, error)
	OrdersByGatewayOrder(ctx context.Context, gatewayOrderID string) ([]store.Order, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (store.User, error)
}

// Worker handles notification tasks off the queue.
type Worker struct {
	Store  Store
	Mailer common.EmailSender
	Logger zerolog.Logger
}

// Register attaches the worker's handlers to the queue mux.
func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeOrderPaid, w.HandleOrderPaid)
}

// HandleOrderPaid emails a payment confirmation to the order's owner.
// Guest orders have no email on file and are skipped.
func (w *Worker) HandleOrderPaid(ctx context.Context, task *asynq.Task) error {
	var payload OrderPaidPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	orders, err := w.resolveOrders(ctx, payload)
	if err != nil {
		return err
	}
	for _, ord := range orders {
		if ord.UserID == nil {
			w.Logger.Debug().Str("order_number", ord.OrderNumber).Msg("guest order, no email recipient")
			continue
		}
		user, err := w.Store.GetUserByID(ctx, *ord.UserID)
		if err != nil {
			return fmt.Errorf("load order owner: %w", err)
		}
		subject := "Payment received for " + ord.OrderNumber
		body := paymentReceivedBody(user.Name, ord)
		if err := w.Mailer.Send(user.Email, subject, body); err != nil {
			return fmt.Errorf("send confirmation: %w", err)
		}
		w.Logger.Info().Str("order_number", ord.OrderNumber).Msg("payment confirmation sent")
	}
	return nil
}

func (w *Worker) resolveOrders(ctx context.Context, payload OrderPaidPayload) ([]store.Order, error) {
	if payload.OrderNumber != "" {
		ord, err := w.Store.GetOrderByNumber(ctx, payload.OrderNumber)
		if err != nil {
			if store.ErrNoRows(err) {
				// Order was deleted after settlement, nothing to notify.
				return nil, nil
			}
			return nil, fmt.Errorf("load order %s: %w", payload.OrderNumber, err)
		}
		return []store.Order{ord}, nil
	}
	orders, err := w.Store.OrdersByGatewayOrder(ctx, payload.GatewayOrderID)
	if err != nil {
		return nil, fmt.Errorf("load orders for gateway %s: %w", payload.GatewayOrderID, err)
	}
	return orders, nil
}

func paymentReceivedBody(name string, ord store.Order) string {
	return fmt.Sprintf(
		"<p>Hi %s,</p><p>We received your payment of ₹%d.%02d for order <strong>%s</strong>. It is now queued for printing.</p>",
		name, ord.TotalPrice/100, ord.TotalPrice%100, ord.OrderNumber)
}
