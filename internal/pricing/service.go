package pricing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-printhub/internal/common"
	"github.com/noah-isme/backend-printhub/internal/obs"
	"github.com/noah-isme/backend-printhub/internal/store"
)

// Store is the persistence surface the resolver and rule admin need.
type Store interface {
	GetBindingType(ctx context.Context, id uuid.UUID) (store.BindingType, error)
	ActivePrintRulesFor(ctx context.Context, serviceType, colorMode, sidedness string) ([]store.PrintPriceRule, error)
	ActiveBindingRulesFor(ctx context.Context, bindingTypeID uuid.UUID) ([]store.BindingPriceRule, error)
	CreatePrintRule(ctx context.Context, p store.PrintRuleParams) (store.PrintPriceRule, error)
	UpdatePrintRule(ctx context.Context, id uuid.UUID, p store.PrintRuleParams, isActive bool) (store.PrintPriceRule, error)
	GetPrintRule(ctx context.Context, id uuid.UUID) (store.PrintPriceRule, error)
	ListPrintRules(ctx context.Context, activeOnly bool) ([]store.PrintPriceRule, error)
	OverlappingPrintRules(ctx context.Context, excludeID *uuid.UUID, p store.PrintRuleParams) ([]store.PrintPriceRule, error)
}

// Service resolves quotes and administers print price rules.
type Service struct {
	store Store
}

func NewService(s Store) *Service {
	return &Service{store: s}
}

// ResolveInput is an order configuration to be priced.
type ResolveInput struct {
	ColorMode     string
	Sidedness     string
	PageCount     int
	BindingTypeID string
	Quantity      int
	Tier          string
}

func (in ResolveInput) validate() error {
	var fields []string
	if in.ColorMode != "mono" && in.ColorMode != "color" {
		fields = append(fields, "color_mode")
	}
	if in.Sidedness != "single" && in.Sidedness != "double" {
		fields = append(fields, "sidedness")
	}
	if in.PageCount < 1 || in.PageCount > 10000 {
		fields = append(fields, "page_count")
	}
	if strings.TrimSpace(in.BindingTypeID) == "" {
		fields = append(fields, "binding_type_id")
	}
	if in.Quantity < 1 || in.Quantity > 1000 {
		fields = append(fields, "quantity")
	}
	if len(fields) > 0 {
		return common.ErrValidation("missing or invalid fields", fields)
	}
	return nil
}

// Resolve prices an order configuration for a customer tier. Read-only.
func (s *Service) Resolve(ctx context.Context, in ResolveInput) (Quote, error) {
	q, err := s.resolve(ctx, in)
	countQuote(err)
	return q, err
}

func (s *Service) resolve(ctx context.Context, in ResolveInput) (Quote, error) {
	if err := in.validate(); err != nil {
		return Quote{}, err
	}
	bindingID, err := uuid.Parse(in.BindingTypeID)
	if err != nil {
		return Quote{}, invalidBindingRef(err)
	}
	binding, err := s.store.GetBindingType(ctx, bindingID)
	if err != nil {
		if store.ErrNoRows(err) {
			return Quote{}, invalidBindingRef(nil)
		}
		return Quote{}, fmt.Errorf("load binding type: %w", err)
	}
	if !binding.IsActive {
		return Quote{}, invalidBindingRef(nil)
	}

	candidates, err := s.store.ActivePrintRulesFor(ctx, DefaultServiceType, in.ColorMode, in.Sidedness)
	if err != nil {
		return Quote{}, fmt.Errorf("load print rules: %w", err)
	}
	rule, ok := MatchPrintRule(candidates, in.ColorMode, in.Sidedness, in.PageCount)
	if !ok {
		return Quote{}, common.NewAppError("NO_PRICING_RULE", "no pricing rule covers this configuration", http.StatusNotFound, nil)
	}

	bindingRules, err := s.store.ActiveBindingRulesFor(ctx, bindingID)
	if err != nil {
		return Quote{}, fmt.Errorf("load binding rules: %w", err)
	}
	var unitBinding int64
	if br, ok := MatchBindingRule(bindingRules, in.PageCount); ok {
		unitBinding = TierPrice(br.StudentPrice, br.InstitutePrice, br.RegularPrice, in.Tier)
	}

	unitPrint := TierPrice(rule.StudentPrice, rule.InstitutePrice, rule.RegularPrice, in.Tier)
	return ComputeQuote(unitPrint, unitBinding, in.PageCount, in.Quantity), nil
}

func invalidBindingRef(err error) error {
	return common.NewAppError("INVALID_REFERENCE", "binding type does not exist", http.StatusBadRequest, err)
}

func countQuote(err error) {
	if obs.QuoteTotal == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			result = strings.ToLower(appErr.Code)
		}
	}
	obs.QuoteTotal.WithLabelValues(result).Inc()
}

// RuleInput is the admin payload for creating or updating a print rule.
type RuleInput struct {
	ServiceType    string `json:"service_type"`
	ColorMode      string `json:"color_mode"`
	Sidedness      string `json:"sidedness"`
	PageRangeStart int    `json:"page_range_start"`
	PageRangeEnd   int    `json:"page_range_end"`
	StudentPrice   int64  `json:"student_price"`
	InstitutePrice int64  `json:"institute_price"`
	RegularPrice   int64  `json:"regular_price"`
	IsActive       *bool  `json:"is_active"`
}

func (in RuleInput) validate() (store.PrintRuleParams, error) {
	p := store.PrintRuleParams{
		ServiceType:    strings.TrimSpace(in.ServiceType),
		ColorMode:      in.ColorMode,
		Sidedness:      in.Sidedness,
		PageRangeStart: in.PageRangeStart,
		PageRangeEnd:   in.PageRangeEnd,
		StudentPrice:   in.StudentPrice,
		InstitutePrice: in.InstitutePrice,
		RegularPrice:   in.RegularPrice,
	}
	if p.ServiceType == "" {
		p.ServiceType = DefaultServiceType
	}
	var fields []string
	if p.ColorMode != "mono" && p.ColorMode != "color" && p.ColorMode != Wildcard {
		fields = append(fields, "color_mode")
	}
	if p.Sidedness != "single" && p.Sidedness != "double" && p.Sidedness != Wildcard {
		fields = append(fields, "sidedness")
	}
	if p.PageRangeStart < 1 || p.PageRangeEnd < p.PageRangeStart {
		fields = append(fields, "page_range")
	}
	if p.RegularPrice <= 0 {
		fields = append(fields, "regular_price")
	}
	if p.StudentPrice < 0 || p.InstitutePrice < 0 {
		fields = append(fields, "tier_prices")
	}
	if len(fields) > 0 {
		return store.PrintRuleParams{}, common.ErrValidation("missing or invalid fields", fields)
	}
	return p, nil
}

// CreateRule persists a new print rule after rejecting overlaps with active
// rules on the same dimensions.
func (s *Service) CreateRule(ctx context.Context, in RuleInput) (store.PrintPriceRule, error) {
	p, err := in.validate()
	if err != nil {
		return store.PrintPriceRule{}, err
	}
	if err := s.rejectOverlap(ctx, nil, p); err != nil {
		return store.PrintPriceRule{}, err
	}
	return s.store.CreatePrintRule(ctx, p)
}

// UpdateRule replaces a rule's fields, applying the same overlap guard.
func (s *Service) UpdateRule(ctx context.Context, id uuid.UUID, in RuleInput) (store.PrintPriceRule, error) {
	p, err := in.validate()
	if err != nil {
		return store.PrintPriceRule{}, err
	}
	current, err := s.store.GetPrintRule(ctx, id)
	if err != nil {
		if store.ErrNoRows(err) {
			return store.PrintPriceRule{}, common.ErrNotFound("price rule not found")
		}
		return store.PrintPriceRule{}, fmt.Errorf("load print rule: %w", err)
	}
	isActive := current.IsActive
	if in.IsActive != nil {
		isActive = *in.IsActive
	}
	if isActive {
		if err := s.rejectOverlap(ctx, &id, p); err != nil {
			return store.PrintPriceRule{}, err
		}
	}
	return s.store.UpdatePrintRule(ctx, id, p, isActive)
}

// GetRule loads a single rule.
func (s *Service) GetRule(ctx context.Context, id uuid.UUID) (store.PrintPriceRule, error) {
	rule, err := s.store.GetPrintRule(ctx, id)
	if err != nil {
		if store.ErrNoRows(err) {
			return store.PrintPriceRule{}, common.ErrNotFound("price rule not found")
		}
		return store.PrintPriceRule{}, err
	}
	return rule, nil
}

// ListRules returns rules, optionally including deactivated ones.
func (s *Service) ListRules(ctx context.Context, includeInactive bool) ([]store.PrintPriceRule, error) {
	return s.store.ListPrintRules(ctx, !includeInactive)
}

// DeactivateRule soft-deletes a rule. Rules are never hard-deleted so
// historical orders stay explainable.
func (s *Service) DeactivateRule(ctx context.Context, id uuid.UUID) (store.PrintPriceRule, error) {
	current, err := s.store.GetPrintRule(ctx, id)
	if err != nil {
		if store.ErrNoRows(err) {
			return store.PrintPriceRule{}, common.ErrNotFound("price rule not found")
		}
		return store.PrintPriceRule{}, err
	}
	p := store.PrintRuleParams{
		ServiceType:    current.ServiceType,
		ColorMode:      current.ColorMode,
		Sidedness:      current.Sidedness,
		PageRangeStart: current.PageRangeStart,
		PageRangeEnd:   current.PageRangeEnd,
		StudentPrice:   current.StudentPrice,
		InstitutePrice: current.InstitutePrice,
		RegularPrice:   current.RegularPrice,
	}
	return s.store.UpdatePrintRule(ctx, id, p, false)
}

func (s *Service) rejectOverlap(ctx context.Context, excludeID *uuid.UUID, p store.PrintRuleParams) error {
	overlaps, err := s.store.OverlappingPrintRules(ctx, excludeID, p)
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
			Message:    "page range overlaps an active rule on the same dimensions",
			HTTPStatus: http.StatusConflict,
			Details:    map[string]any{"conflicting_rule_ids": ids},
		}
	}
	return nil
}
