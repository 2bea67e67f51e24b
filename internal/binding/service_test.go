package binding

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
	types    map[uuid.UUID]store.BindingType
	rules    map[uuid.UUID]store.BindingPriceRule
	overlaps []store.BindingPriceRule
	updated  []store.BindingType
}

func (s *stubStore) CreateBindingType(_ context.Context, name string) (store.BindingType, error) {
	bt := store.BindingType{ID: uuid.New(), Name: name, IsActive: true}
	s.types[bt.ID] = bt
	return bt, nil
}

func (s *stubStore) GetBindingType(_ context.Context, id uuid.UUID) (store.BindingType, error) {
	bt, ok := s.types[id]
	if !ok {
		return store.BindingType{}, pgx.ErrNoRows
	}
	return bt, nil
}

func (s *stubStore) ListBindingTypes(_ context.Context, activeOnly bool) ([]store.BindingType, error) {
	var out []store.BindingType
	for _, bt := range s.types {
		if !activeOnly || bt.IsActive {
			out = append(out, bt)
		}
	}
	return out, nil
}

func (s *stubStore) UpdateBindingType(_ context.Context, id uuid.UUID, name string, isActive bool) (store.BindingType, error) {
	bt := s.types[id]
	bt.Name, bt.IsActive = name, isActive
	s.types[id] = bt
	s.updated = append(s.updated, bt)
	return bt, nil
}

func (s *stubStore) CreateBindingRule(_ context.Context, p store.BindingRuleParams) (store.BindingPriceRule, error) {
	r := store.BindingPriceRule{ID: uuid.New(), BindingTypeID: p.BindingTypeID, PageRangeStart: p.PageRangeStart, PageRangeEnd: p.PageRangeEnd, RegularPrice: p.RegularPrice, IsActive: true}
	s.rules[r.ID] = r
	return r, nil
}

func (s *stubStore) UpdateBindingRule(_ context.Context, id uuid.UUID, p store.BindingRuleParams, isActive bool) (store.BindingPriceRule, error) {
	r := s.rules[id]
	r.BindingTypeID, r.PageRangeStart, r.PageRangeEnd, r.RegularPrice, r.IsActive = p.BindingTypeID, p.PageRangeStart, p.PageRangeEnd, p.RegularPrice, isActive
	s.rules[id] = r
	return r, nil
}

func (s *stubStore) GetBindingRule(_ context.Context, id uuid.UUID) (store.BindingPriceRule, error) {
	r, ok := s.rules[id]
	if !ok {
		return store.BindingPriceRule{}, pgx.ErrNoRows
	}
	return r, nil
}

func (s *stubStore) ListBindingRules(_ context.Context, _ *uuid.UUID) ([]store.BindingPriceRule, error) {
	var out []store.BindingPriceRule
	for _, r := range s.rules {
		out = append(out, r)
	}
	return out, nil
}

func (s *stubStore) OverlappingBindingRules(_ context.Context, _ *uuid.UUID, _ store.BindingRuleParams) ([]store.BindingPriceRule, error) {
	return s.overlaps, nil
}

func newStub() *stubStore {
	return &stubStore{
		types: map[uuid.UUID]store.BindingType{},
		rules: map[uuid.UUID]store.BindingPriceRule{},
	}
}

func TestProtectedTypeCannotChange(t *testing.T) {
	stub := newStub()
	svc := NewService(stub)
	none, err := svc.CreateType(context.Background(), ProtectedName)
	require.NoError(t, err)

	_, err = svc.DeactivateType(context.Background(), none.ID)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "PROTECTED_BINDING_TYPE", appErr.Code)

	_, err = svc.UpdateType(context.Background(), none.ID, "Spiral", nil)
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "PROTECTED_BINDING_TYPE", appErr.Code)
}

func TestDeactivateRegularType(t *testing.T) {
	stub := newStub()
	svc := NewService(stub)
	spiral, err := svc.CreateType(context.Background(), "Spiral")
	require.NoError(t, err)

	out, err := svc.DeactivateType(context.Background(), spiral.ID)
	require.NoError(t, err)
	require.False(t, out.IsActive)
}

func TestCreateRuleValidatesReference(t *testing.T) {
	stub := newStub()
	svc := NewService(stub)

	_, err := svc.CreateRule(context.Background(), RuleInput{
		BindingTypeID:  uuid.NewString(),
		PageRangeStart: 1, PageRangeEnd: 100, RegularPrice: 3000,
	})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "INVALID_REFERENCE", appErr.Code)
}

func TestCreateRuleRejectsOverlap(t *testing.T) {
	stub := newStub()
	svc := NewService(stub)
	spiral, err := svc.CreateType(context.Background(), "Spiral")
	require.NoError(t, err)
	stub.overlaps = []store.BindingPriceRule{{ID: uuid.New()}}

	_, err = svc.CreateRule(context.Background(), RuleInput{
		BindingTypeID:  spiral.ID.String(),
		PageRangeStart: 1, PageRangeEnd: 100, RegularPrice: 3000,
	})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "RULE_OVERLAP", appErr.Code)
}
