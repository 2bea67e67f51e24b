package notify

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-printhub/internal/common"
	"github.com/noah-isme/backend-printhub/internal/store"
)

type stubNotifyStore struct {
	orders map[string]store.Order
	users  map[uuid.UUID]store.User
}

func (s *stubNotifyStore) GetOrderByNumber(_ context.Context, number string) (store.Order, error) {
	ord, ok := s.orders[number]
	if !ok {
		return store.Order{}, pgx.ErrNoRows
	}
	return ord, nil
}

func (s *stubNotifyStore) OrdersByGatewayOrder(_ context.Context, gw string) ([]store.Order, error) {
	var out []store.Order
	for _, ord := range s.orders {
		if ord.GatewayOrderID != nil && *ord.GatewayOrderID == gw {
			out = append(out, ord)
		}
	}
	return out, nil
}

func (s *stubNotifyStore) GetUserByID(_ context.Context, id uuid.UUID) (store.User, error) {
	u, ok := s.users[id]
	if !ok {
		return store.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func orderPaidTask(t *testing.T, p OrderPaidPayload) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(p)
	require.NoError(t, err)
	return asynq.NewTask(TypeOrderPaid, payload)
}

func TestHandleOrderPaidEmailsOwner(t *testing.T) {
	uid := uuid.New()
	st := &stubNotifyStore{
		orders: map[string]store.Order{
			"PH-1": {OrderNumber: "PH-1", UserID: &uid, TotalPrice: 6050},
		},
		users: map[uuid.UUID]store.User{
			uid: {ID: uid, Name: "Asha", Email: "asha@example.com"},
		},
	}
	mail := &common.InMemoryEmail{}
	w := &Worker{Store: st, Mailer: mail, Logger: zerolog.Nop()}

	err := w.HandleOrderPaid(context.Background(), orderPaidTask(t, OrderPaidPayload{OrderNumber: "PH-1"}))
	require.NoError(t, err)
	require.Len(t, mail.Outbox, 1)
	require.Equal(t, "asha@example.com", mail.Outbox[0].To)
	require.Contains(t, mail.Outbox[0].Subject, "PH-1")
	require.Contains(t, mail.Outbox[0].HTML, "60.50")
}

func TestHandleOrderPaidSkipsGuests(t *testing.T) {
	st := &stubNotifyStore{
		orders: map[string]store.Order{
			"PH-G": {OrderNumber: "PH-G", TotalPrice: 2000},
		},
	}
	mail := &common.InMemoryEmail{}
	w := &Worker{Store: st, Mailer: mail, Logger: zerolog.Nop()}

	err := w.HandleOrderPaid(context.Background(), orderPaidTask(t, OrderPaidPayload{OrderNumber: "PH-G"}))
	require.NoError(t, err)
	require.Empty(t, mail.Outbox)
}

func TestHandleOrderPaidFansOutByGateway(t *testing.T) {
	uid := uuid.New()
	gw := "order_gw1"
	st := &stubNotifyStore{
		orders: map[string]store.Order{
			"PH-1": {OrderNumber: "PH-1", UserID: &uid, TotalPrice: 1000, GatewayOrderID: &gw},
			"PH-2": {OrderNumber: "PH-2", UserID: &uid, TotalPrice: 2000, GatewayOrderID: &gw},
		},
		users: map[uuid.UUID]store.User{
			uid: {ID: uid, Name: "Asha", Email: "asha@example.com"},
		},
	}
	mail := &common.InMemoryEmail{}
	w := &Worker{Store: st, Mailer: mail, Logger: zerolog.Nop()}

	err := w.HandleOrderPaid(context.Background(), orderPaidTask(t, OrderPaidPayload{GatewayOrderID: gw}))
	require.NoError(t, err)
	require.Len(t, mail.Outbox, 2)
}

func TestHandleOrderPaidMissingOrder(t *testing.T) {
	st := &stubNotifyStore{orders: map[string]store.Order{}}
	mail := &common.InMemoryEmail{}
	w := &Worker{Store: st, Mailer: mail, Logger: zerolog.Nop()}

	err := w.HandleOrderPaid(context.Background(), orderPaidTask(t, OrderPaidPayload{OrderNumber: "PH-GONE"}))
	require.NoError(t, err)
	require.Empty(t, mail.Outbox)
}

func TestNewOrderPaidTaskRejectsEmptyPayload(t *testing.T) {
	_, err := NewOrderPaidTask(OrderPaidPayload{})
	require.Error(t, err)
}
