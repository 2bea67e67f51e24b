package pricing

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-printhub/internal/audit"
	"github.com/noah-isme/backend-printhub/internal/common"
)

// AdminHandler exposes print rule management to staff.
type AdminHandler struct {
	Service *Service
	Audit   *audit.Recorder
}

// List handles GET /api/v1/admin/printing-prices.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	rules, err := h.Service.ListRules(r.Context(), includeInactive)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, rules)
}

// Get handles GET /api/v1/admin/printing-prices/{id}.
func (h *AdminHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.ErrNotFound("price rule not found"))
		return
	}
	rule, err := h.Service.GetRule(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, rule)
}

// Create handles POST /api/v1/admin/printing-prices.
func (h *AdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req RuleInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	rule, err := h.Service.CreateRule(r.Context(), req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	h.Audit.Record(r, "price_rule.create", "print_price_rule", rule.ID.String(), nil)
	common.JSON(w, http.StatusCreated, rule)
}

// Update handles PUT /api/v1/admin/printing-prices/{id}.
func (h *AdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.ErrNotFound("price rule not found"))
		return
	}
	var req RuleInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	rule, err := h.Service.UpdateRule(r.Context(), id, req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	h.Audit.Record(r, "price_rule.update", "print_price_rule", rule.ID.String(), nil)
	common.JSON(w, http.StatusOK, rule)
}

// Deactivate handles DELETE /api/v1/admin/printing-prices/{id}.
func (h *AdminHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.ErrNotFound("price rule not found"))
		return
	}
	rule, err := h.Service.DeactivateRule(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	h.Audit.Record(r, "price_rule.deactivate", "print_price_rule", rule.ID.String(), nil)
	common.JSON(w, http.StatusOK, rule)
}
