package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-printhub/internal/common"
	"github.com/noah-isme/backend-printhub/internal/store"
)

type stubProvider struct {
	createErr    error
	gatewayOrder GatewayOrder
	payment      PaymentInfo
	fetchErr     error
	validSig     bool
	webhookEvent WebhookEvent
	webhookErr   error
}

func (p *stubProvider) CreateOrder(_ context.Context, amount int64, currency, receipt string) (GatewayOrder, error) {
	if p.createErr != nil {
		return GatewayOrder{}, p.createErr
	}
	if p.gatewayOrder.ID == "" {
		p.gatewayOrder = GatewayOrder{ID: "order_gw1", Amount: amount, Currency: currency}
	}
	return p.gatewayOrder, nil
}

func (p *stubProvider) FetchPayment(context.Context, string) (PaymentInfo, error) {
	return p.payment, p.fetchErr
}

func (p *stubProvider) VerifySignature(string, string, string) bool { return p.validSig }

func (p *stubProvider) VerifyWebhook([]byte, string) (WebhookEvent, error) {
	return p.webhookEvent, p.webhookErr
}

type stubPayStore struct {
	orders map[string]store.Order

	attached       []string
	attachedGW     string
	markedPaid     []string
	markPaidRet    int64
	markGateway    []string
	markGatewayRet int64
	events         []string
}

func newStubPayStore() *stubPayStore {
	return &stubPayStore{orders: make(map[string]store.Order)}
}

func (s *stubPayStore) OrdersByNumbers(_ context.Context, numbers []string) ([]store.Order, error) {
	var out []store.Order
	for _, n := range numbers {
		if ord, ok := s.orders[n]; ok {
			out = append(out, ord)
		}
	}
	return out, nil
}

func (s *stubPayStore) AttachGatewayOrder(_ context.Context, numbers []string, gw string) (int64, error) {
	s.attached = numbers
	s.attachedGW = gw
	return int64(len(numbers)), nil
}

func (s *stubPayStore) MarkOrdersPaid(_ context.Context, numbers []string, _, _, _ string) (int64, error) {
	s.markedPaid = numbers
	return s.markPaidRet, nil
}

func (s *stubPayStore) MarkOrdersPaidByGateway(_ context.Context, gw, _ string) (int64, error) {
	s.markGateway = append(s.markGateway, gw)
	return s.markGatewayRet, nil
}

func (s *stubPayStore) InsertPaymentEvent(_ context.Context, _ string, _ *string, eventType string, _ []byte) error {
	s.events = append(s.events, eventType)
	return nil
}

func (s *stubPayStore) addOrder(number string, total int64, userID *uuid.UUID, paymentStatus string) {
	s.orders[number] = store.Order{
		ID:            uuid.New(),
		OrderNumber:   number,
		UserID:        userID,
		TotalPrice:    total,
		Status:        "pending",
		PaymentStatus: paymentStatus,
	}
}

func appCode(t *testing.T, err error) string {
	t.Helper()
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	return appErr.Code
}

func TestCreateGatewayOrderSumsTotals(t *testing.T) {
	st := newStubPayStore()
	uid := uuid.New()
	st.addOrder("PH-1", 6000, &uid, "unpaid")
	st.addOrder("PH-2", 4000, &uid, "unpaid")
	svc := NewService(st, &stubProvider{}, nil)

	caller := common.Identity{UserID: uid.String(), Role: "user"}
	res, err := svc.CreateGatewayOrder(context.Background(), caller, []string{"PH-1", "PH-2", "PH-1"})
	require.NoError(t, err)
	require.Equal(t, int64(10000), res.Amount)
	require.Equal(t, "INR", res.Currency)
	require.Equal(t, []string{"PH-1", "PH-2"}, res.OrderNumbers)
	require.Equal(t, res.GatewayOrderID, st.attachedGW)
	require.Equal(t, []string{"PH-1", "PH-2"}, st.attached)
}

func TestCreateGatewayOrderGatewayDown(t *testing.T) {
	st := newStubPayStore()
	uid := uuid.New()
	st.addOrder("PH-1", 6000, &uid, "unpaid")
	svc := NewService(st, &stubProvider{createErr: errors.New("dial tcp: timeout")}, nil)

	_, err := svc.CreateGatewayOrder(context.Background(), common.Identity{UserID: uid.String(), Role: "user"}, []string{"PH-1"})
	require.Equal(t, "EXTERNAL_SERVICE_FAILURE", appCode(t, err))
	require.Empty(t, st.attached)
}

func TestCreateGatewayOrderOwnership(t *testing.T) {
	st := newStubPayStore()
	owner := uuid.New()
	st.addOrder("PH-1", 6000, &owner, "unpaid")
	st.addOrder("PH-G", 2000, nil, "unpaid")
	svc := NewService(st, &stubProvider{}, nil)

	// A stranger cannot pay for someone else's order.
	_, err := svc.CreateGatewayOrder(context.Background(), common.Identity{UserID: uuid.NewString(), Role: "user"}, []string{"PH-1"})
	require.Equal(t, "FORBIDDEN", appCode(t, err))

	// Guest orders carry no owner and are payable without a session.
	_, err = svc.CreateGatewayOrder(context.Background(), common.Identity{}, []string{"PH-G"})
	require.NoError(t, err)

	// Staff can settle on behalf of any customer.
	_, err = svc.CreateGatewayOrder(context.Background(), common.Identity{UserID: uuid.NewString(), Role: "employee"}, []string{"PH-1"})
	require.NoError(t, err)
}

func TestCreateGatewayOrderAlreadyPaid(t *testing.T) {
	st := newStubPayStore()
	uid := uuid.New()
	st.addOrder("PH-1", 6000, &uid, "paid")
	svc := NewService(st, &stubProvider{}, nil)

	_, err := svc.CreateGatewayOrder(context.Background(), common.Identity{UserID: uid.String(), Role: "user"}, []string{"PH-1"})
	require.Equal(t, "ALREADY_PAID", appCode(t, err))
}

func TestVerifySettlesOrders(t *testing.T) {
	st := newStubPayStore()
	uid := uuid.New()
	st.addOrder("PH-1", 6000, &uid, "unpaid")
	st.markPaidRet = 1
	provider := &stubProvider{validSig: true, payment: PaymentInfo{ID: "pay_1", Status: "captured"}}
	svc := NewService(st, provider, nil)

	res, err := svc.Verify(context.Background(), common.Identity{UserID: uid.String(), Role: "user"}, VerifyInput{
		GatewayOrderID: "order_gw1",
		PaymentID:      "pay_1",
		Signature:      "sig",
		OrderNumbers:   []string{"PH-1"},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Updated)
	require.Equal(t, []string{"PH-1"}, st.markedPaid)
	require.Contains(t, st.events, "client.verified")
}

func TestVerifySignatureMismatch(t *testing.T) {
	st := newStubPayStore()
	uid := uuid.New()
	st.addOrder("PH-1", 6000, &uid, "unpaid")
	svc := NewService(st, &stubProvider{validSig: false}, nil)

	_, err := svc.Verify(context.Background(), common.Identity{UserID: uid.String(), Role: "user"}, VerifyInput{
		GatewayOrderID: "order_gw1",
		PaymentID:      "pay_1",
		Signature:      "forged",
		OrderNumbers:   []string{"PH-1"},
	})
	require.Equal(t, "SIGNATURE_MISMATCH", appCode(t, err))
	require.Empty(t, st.markedPaid)
}

func TestVerifyPaymentNotCaptured(t *testing.T) {
	st := newStubPayStore()
	uid := uuid.New()
	st.addOrder("PH-1", 6000, &uid, "unpaid")
	provider := &stubProvider{validSig: true, payment: PaymentInfo{ID: "pay_1", Status: "failed"}}
	svc := NewService(st, provider, nil)

	_, err := svc.Verify(context.Background(), common.Identity{UserID: uid.String(), Role: "user"}, VerifyInput{
		GatewayOrderID: "order_gw1",
		PaymentID:      "pay_1",
		Signature:      "sig",
		OrderNumbers:   []string{"PH-1"},
	})
	require.Equal(t, "PAYMENT_NOT_CAPTURED", appCode(t, err))
	require.Empty(t, st.markedPaid)
}

func TestVerifyMissingFields(t *testing.T) {
	svc := NewService(newStubPayStore(), &stubProvider{}, nil)

	_, err := svc.Verify(context.Background(), common.Identity{}, VerifyInput{})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)
	require.ElementsMatch(t,
		[]string{"gateway_order_id", "payment_id", "signature", "order_numbers"},
		appErr.Details.(map[string]any)["fields"])
}

func TestVerifyUnknownOrder(t *testing.T) {
	st := newStubPayStore()
	provider := &stubProvider{validSig: true, payment: PaymentInfo{Status: "captured"}}
	svc := NewService(st, provider, nil)

	_, err := svc.Verify(context.Background(), common.Identity{Role: "admin"}, VerifyInput{
		GatewayOrderID: "order_gw1",
		PaymentID:      "pay_1",
		Signature:      "sig",
		OrderNumbers:   []string{"PH-MISSING"},
	})
	require.Equal(t, "NOT_FOUND", appCode(t, err))
}
