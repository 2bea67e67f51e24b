package pricing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-printhub/internal/common"
	"github.com/noah-isme/backend-printhub/internal/store"
)

type stubStore struct {
	bindingTypes map[uuid.UUID]store.BindingType
	printRules   []store.PrintPriceRule
	bindingRules map[uuid.UUID][]store.BindingPriceRule
	overlaps     []store.PrintPriceRule
	created      []store.PrintRuleParams
}

func (s *stubStore) GetBindingType(_ context.Context, id uuid.UUID) (store.BindingType, error) {
	bt, ok := s.bindingTypes[id]
	if !ok {
		return store.BindingType{}, pgx.ErrNoRows
	}
	return bt, nil
}

func (s *stubStore) ActivePrintRulesFor(_ context.Context, _, colorMode, sidedness string) ([]store.PrintPriceRule, error) {
	var out []store.PrintPriceRule
	for _, r := range s.printRules {
		if (r.ColorMode == colorMode || r.ColorMode == Wildcard) && (r.Sidedness == sidedness || r.Sidedness == Wildcard) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubStore) ActiveBindingRulesFor(_ context.Context, id uuid.UUID) ([]store.BindingPriceRule, error) {
	return s.bindingRules[id], nil
}

func (s *stubStore) CreatePrintRule(_ context.Context, p store.PrintRuleParams) (store.PrintPriceRule, error) {
	s.created = append(s.created, p)
	return store.PrintPriceRule{ID: uuid.New(), ColorMode: p.ColorMode, Sidedness: p.Sidedness, RegularPrice: p.RegularPrice, IsActive: true}, nil
}

func (s *stubStore) UpdatePrintRule(_ context.Context, id uuid.UUID, p store.PrintRuleParams, isActive bool) (store.PrintPriceRule, error) {
	return store.PrintPriceRule{ID: id, ColorMode: p.ColorMode, Sidedness: p.Sidedness, RegularPrice: p.RegularPrice, IsActive: isActive}, nil
}

func (s *stubStore) GetPrintRule(_ context.Context, id uuid.UUID) (store.PrintPriceRule, error) {
	for _, r := range s.printRules {
		if r.ID == id {
			return r, nil
		}
	}
	return store.PrintPriceRule{}, pgx.ErrNoRows
}

func (s *stubStore) ListPrintRules(_ context.Context, _ bool) ([]store.PrintPriceRule, error) {
	return s.printRules, nil
}

func (s *stubStore) OverlappingPrintRules(_ context.Context, _ *uuid.UUID, _ store.PrintRuleParams) ([]store.PrintPriceRule, error) {
	return s.overlaps, nil
}

func newStub() (*stubStore, uuid.UUID) {
	bindingID := uuid.New()
	return &stubStore{
		bindingTypes: map[uuid.UUID]store.BindingType{
			bindingID: {ID: bindingID, Name: "None", IsActive: true},
		},
		bindingRules: map[uuid.UUID][]store.BindingPriceRule{},
	}, bindingID
}

func TestResolveHappyPath(t *testing.T) {
	stub, bindingID := newStub()
	stub.printRules = []store.PrintPriceRule{
		{ID: uuid.New(), ColorMode: "mono", Sidedness: "single", PageRangeStart: 1, PageRangeEnd: 50, RegularPrice: 200, IsActive: true},
	}
	svc := NewService(stub)

	q, err := svc.Resolve(context.Background(), ResolveInput{
		ColorMode: "mono", Sidedness: "single", PageCount: 10,
		BindingTypeID: bindingID.String(), Quantity: 3, Tier: "Regular",
	})
	require.NoError(t, err)
	require.Equal(t, int64(2000), q.PricePerCopy)
	require.Equal(t, int64(6000), q.TotalPrice)
	require.Zero(t, q.UnitBindingPrice)
}

func TestResolveNoPricingRule(t *testing.T) {
	stub, bindingID := newStub()
	stub.printRules = []store.PrintPriceRule{
		{ID: uuid.New(), ColorMode: "color", Sidedness: "double", PageRangeStart: 1, PageRangeEnd: 100, RegularPrice: 500, IsActive: true},
	}
	svc := NewService(stub)

	_, err := svc.Resolve(context.Background(), ResolveInput{
		ColorMode: "color", Sidedness: "double", PageCount: 5000,
		BindingTypeID: bindingID.String(), Quantity: 1, Tier: "Regular",
	})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "NO_PRICING_RULE", appErr.Code)
}

func TestResolveUnknownBindingType(t *testing.T) {
	stub, _ := newStub()
	svc := NewService(stub)

	_, err := svc.Resolve(context.Background(), ResolveInput{
		ColorMode: "mono", Sidedness: "single", PageCount: 10,
		BindingTypeID: uuid.NewString(), Quantity: 1, Tier: "Regular",
	})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "INVALID_REFERENCE", appErr.Code)
}

func TestResolveBindingCostApplied(t *testing.T) {
	stub, bindingID := newStub()
	stub.printRules = []store.PrintPriceRule{
		{ID: uuid.New(), ColorMode: "mono", Sidedness: "single", PageRangeStart: 1, PageRangeEnd: 50, RegularPrice: 200, StudentPrice: 100, IsActive: true},
	}
	stub.bindingRules[bindingID] = []store.BindingPriceRule{
		{ID: uuid.New(), BindingTypeID: bindingID, PageRangeStart: 1, PageRangeEnd: 100, RegularPrice: 3000, IsActive: true},
	}
	svc := NewService(stub)

	// Student tier on print, regular fallback on binding (student column unset).
	q, err := svc.Resolve(context.Background(), ResolveInput{
		ColorMode: "mono", Sidedness: "single", PageCount: 10,
		BindingTypeID: bindingID.String(), Quantity: 2, Tier: "Student",
	})
	require.NoError(t, err)
	require.Equal(t, int64(100), q.UnitPrintPrice)
	require.Equal(t, int64(3000), q.UnitBindingPrice)
	require.Equal(t, int64(4000), q.PricePerCopy)
	require.Equal(t, int64(8000), q.TotalPrice)
}

func TestResolveValidationListsEveryField(t *testing.T) {
	stub, _ := newStub()
	svc := NewService(stub)

	_, err := svc.Resolve(context.Background(), ResolveInput{})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)
	fields := appErr.Details.(map[string]any)["fields"].([]string)
	require.ElementsMatch(t, []string{"color_mode", "sidedness", "page_count", "binding_type_id", "quantity"}, fields)
}

func TestCreateRuleRejectsOverlap(t *testing.T) {
	stub, _ := newStub()
	stub.overlaps = []store.PrintPriceRule{{ID: uuid.New()}}
	svc := NewService(stub)

	_, err := svc.CreateRule(context.Background(), RuleInput{
		ColorMode: "mono", Sidedness: "single",
		PageRangeStart: 1, PageRangeEnd: 50, RegularPrice: 200,
	})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "RULE_OVERLAP", appErr.Code)
	require.Empty(t, stub.created)
}

func TestCreateRuleDefaultsServiceType(t *testing.T) {
	stub, _ := newStub()
	svc := NewService(stub)

	_, err := svc.CreateRule(context.Background(), RuleInput{
		ColorMode: "both", Sidedness: "both",
		PageRangeStart: 1, PageRangeEnd: 100, RegularPrice: 500,
	})
	require.NoError(t, err)
	require.Len(t, stub.created, 1)
	require.Equal(t, DefaultServiceType, stub.created[0].ServiceType)
}
