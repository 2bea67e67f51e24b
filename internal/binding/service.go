// Package binding manages binding types and their price rules.
package binding

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-printhub/internal/common"
	"github.com/noah-isme/backend-printhub/internal/store"
)

// ProtectedName is the binding type every order without physical binding
// references. It can never be renamed, deactivated, or deleted.
const ProtectedName = "None"

// Store is the persistence surface the service needs.
type Store interface {
	CreateBindingType(ctx context.Context, name string) (store.BindingType, error)
	GetBindingType(ctx context.Context, id uuid.UUID) (store.BindingType, error)
	ListBindingTypes(ctx context.Context, activeOnly bool) ([]store.BindingType, error)
	UpdateBindingType(ctx context.Context, id uuid.UUID, name string, isActive bool) (store.BindingType, error)
	CreateBindingRule(ctx context.Context, p store.BindingRuleParams) (store.BindingPriceRule, error)
	UpdateBindingRule(ctx context.Context, id uuid.UUID, p store.BindingRuleParams, isActive bool) (store.BindingPriceRule, error)
	GetBindingRule(ctx context.Context, id uuid.UUID) (store.BindingPriceRule, error)
	ListBindingRules(ctx context.Context, bindingTypeID *uuid.UUID) ([]store.BindingPriceRule, error)
	OverlappingBindingRules(ctx context.Context, excludeID *uuid.UUID, p store.BindingRuleParams) ([]store.BindingPriceRule, error)
}

// Service administers binding types and binding price rules.
type Service struct {
	store Store
}

func NewService(s Store) *Service {
	return &Service{store: s}
}

// ListTypes returns binding types, active only unless asked otherwise.
func (s *Service) ListTypes(ctx context.Context, includeInactive bool) ([]store.BindingType, error) {
	return s.store.ListBindingTypes(ctx, !includeInactive)
}

// CreateType adds a new binding type.
func (s *Service) CreateType(ctx context.Context, name string) (store.BindingType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return store.BindingType{}, common.ErrValidation("missing required fields", []string{"name"})
	}
	created, err := s.store.CreateBindingType(ctx, name)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return store.BindingType{}, common.ErrConflict("NAME_ALREADY_USED", "binding type name is already in use", err)
		}
		return store.BindingType{}, fmt.Errorf("create binding type: %w", err)
	}
	return created, nil
}

// UpdateType renames or toggles a binding type.
func (s *Service) UpdateType(ctx context.Context, id uuid.UUID, name string, isActive *bool) (store.BindingType, error) {
	current, err := s.getType(ctx, id)
	if err != nil {
		return store.BindingType{}, err
	}
	newName := strings.TrimSpace(name)
	if newName == "" {
		newName = current.Name
	}
	active := current.IsActive
	if isActive != nil {
		active = *isActive
	}
	if current.Name == ProtectedName && (newName != ProtectedName || !active) {
		return store.BindingType{}, protectedTypeError()
	}
	updated, err := s.store.UpdateBindingType(ctx, id, newName, active)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return store.BindingType{}, common.ErrConflict("NAME_ALREADY_USED", "binding type name is already in use", err)
		}
		return store.BindingType{}, fmt.Errorf("update binding type: %w", err)
	}
	return updated, nil
}

// DeactivateType soft-deletes a binding type. Orders keep referencing the
// row, so rows are never removed.
func (s *Service) DeactivateType(ctx context.Context, id uuid.UUID) (store.BindingType, error) {
	current, err := s.getType(ctx, id)
	if err != nil {
		return store.BindingType{}, err
	}
	if current.Name == ProtectedName {
		return store.BindingType{}, protectedTypeError()
	}
	return s.store.UpdateBindingType(ctx, id, current.Name, false)
}

func (s *Service) getType(ctx context.Context, id uuid.UUID) (store.BindingType, error) {
	current, err := s.store.GetBindingType(ctx, id)
	if err != nil {
		if store.ErrNoRows(err) {
			return store.BindingType{}, common.ErrNotFound("binding type not found")
		}
		return store.BindingType{}, fmt.Errorf("load binding type: %w", err)
	}
	return current, nil
}

func protectedTypeError() error {
	return common.NewAppError("PROTECTED_BINDING_TYPE", "the None binding type cannot be changed", http.StatusConflict, nil)
}

// RuleInput is the admin payload for binding price rules.
type RuleInput struct {
	BindingTypeID  string `json:"binding_type_id"`
	PageRangeStart int    `json:"page_range_start"`
	PageRangeEnd   int    `json:"page_range_end"`
	StudentPrice   int64  `json:"student_price"`
	InstitutePrice int64  `json:"institute_price"`
	RegularPrice   int64  `json:"regular_price"`
	IsActive       *bool  `json:"is_active"`
}

func (s *Service) validateRule(ctx context.Context, in RuleInput) (store.BindingRuleParams, error) {
	var fields []string
	bindingID, err := uuid.Parse(strings.TrimSpace(in.BindingTypeID))
	if err != nil {
		fields = append(fields, "binding_type_id")
	}
	if in.PageRangeStart < 1 || in.PageRangeEnd < in.PageRangeStart {
		fields = append(fields, "page_range")
	}
	if in.RegularPrice < 0 || in.StudentPrice < 0 || in.InstitutePrice < 0 {
		fields = append(fields, "prices")
	}
	if len(fields) > 0 {
		return store.BindingRuleParams{}, common.ErrValidation("missing or invalid fields", fields)
	}
	if _, err := s.getType(ctx, bindingID); err != nil {
		return store.BindingRuleParams{}, common.NewAppError("INVALID_REFERENCE", "binding type does not exist", http.StatusBadRequest, nil)
	}
	return store.BindingRuleParams{
		BindingTypeID:  bindingID,
		PageRangeStart: in.PageRangeStart,
		PageRangeEnd:   in.PageRangeEnd,
		StudentPrice:   in.StudentPrice,
		InstitutePrice: in.InstitutePrice,
		RegularPrice:   in.RegularPrice,
	}, nil
}

// CreateRule persists a binding price rule, rejecting range overlaps within
// the same binding type.
func (s *Service) CreateRule(ctx context.Context, in RuleInput) (store.BindingPriceRule, error) {
	p, err := s.validateRule(ctx, in)
	if err != nil {
		return store.BindingPriceRule{}, err
	}
	if err := s.rejectOverlap(ctx, nil, p); err != nil {
		return store.BindingPriceRule{}, err
	}
	return s.store.CreateBindingRule(ctx, p)
}

// UpdateRule replaces a binding price rule's fields.
func (s *Service) UpdateRule(ctx context.Context, id uuid.UUID, in RuleInput) (store.BindingPriceRule, error) {
	current, err := s.store.GetBindingRule(ctx, id)
	if err != nil {
		if store.ErrNoRows(err) {
			return store.BindingPriceRule{}, common.ErrNotFound("binding price rule not found")
		}
		return store.BindingPriceRule{}, fmt.Errorf("load binding rule: %w", err)
	}
	if strings.TrimSpace(in.BindingTypeID) == "" {
		in.BindingTypeID = current.BindingTypeID.String()
	}
	p, err := s.validateRule(ctx, in)
	if err != nil {
		return store.BindingPriceRule{}, err
	}
	isActive := current.IsActive
	if in.IsActive != nil {
		isActive = *in.IsActive
	}
	if isActive {
		if err := s.rejectOverlap(ctx, &id, p); err != nil {
			return store.BindingPriceRule{}, err
		}
	}
	return s.store.UpdateBindingRule(ctx, id, p, isActive)
}

// ListRules returns binding price rules, optionally scoped to one type.
func (s *Service) ListRules(ctx context.Context, bindingTypeID *uuid.UUID) ([]store.BindingPriceRule, error) {
	return s.store.ListBindingRules(ctx, bindingTypeID)
}

// DeactivateRule soft-deletes a binding price rule.
func (s *Service) DeactivateRule(ctx context.Context, id uuid.UUID) (store.BindingPriceRule, error) {
	current, err := s.store.GetBindingRule(ctx, id)
	if err != nil {
		if store.ErrNoRows(err) {
			return store.BindingPriceRule{}, common.ErrNotFound("binding price rule not found")
		}
		return store.BindingPriceRule{}, err
	}
	p := store.BindingRuleParams{
		BindingTypeID:  current.BindingTypeID,
		PageRangeStart: current.PageRangeStart,
		PageRangeEnd:   current.PageRangeEnd,
		StudentPrice:   current.StudentPrice,
		InstitutePrice: current.InstitutePrice,
		RegularPrice:   current.RegularPrice,
	}
	return s.store.UpdateBindingRule(ctx, id, p, false)
}

func (s *Service) rejectOverlap(ctx context.Context, excludeID *uuid.UUID, p store.BindingRuleParams) error {
	overlaps, err := s.store.OverlappingBindingRules(ctx, excludeID, p)
	if err != nil {
		return fmt.Errorf("check overlaps: %w", err)
	}
	if len(overlaps) > 0 {
		ids := make([]string, 0, len(overlaps))
		for _, o := range overlaps {
			ids = append(ids, o.ID.String())
		}
		return &common.AppError{
			Code:       "RULE_OVERLAP",
			Message:    "page range overlaps an active rule for this binding type",
			HTTPStatus: http.StatusConflict,
			Details:    map[string]any{"conflicting_rule_ids": ids},
		}
	}
	return nil
}
