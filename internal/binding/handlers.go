package binding

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-printhub/internal/audit"
	"github.com/noah-isme/backend-printhub/internal/common"
)

// Handler exposes binding type and binding price endpoints. Reads are
// public, mutations sit behind staff routes.
type Handler struct {
	Service *Service
	Audit   *audit.Recorder
}

type typeRequest struct {
	Name     string `json:"name"`
	IsActive *bool  `json:"is_active"`
}

// ListTypes handles GET /api/v1/binding-types.
func (h *Handler) ListTypes(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	types, err := h.Service.ListTypes(r.Context(), includeInactive)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, types)
}

// CreateType handles POST /api/v1/admin/binding-types.
func (h *Handler) CreateType(w http.ResponseWriter, r *http.Request) {
	var req typeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	created, err := h.Service.CreateType(r.Context(), req.Name)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	h.Audit.Record(r, "binding_type.create", "binding_type", created.ID.String(), nil)
	common.JSON(w, http.StatusCreated, created)
}

// UpdateType handles PUT /api/v1/admin/binding-types/{id}.
func (h *Handler) UpdateType(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.ErrNotFound("binding type not found"))
		return
	}
	var req typeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	updated, err := h.Service.UpdateType(r.Context(), id, req.Name, req.IsActive)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	h.Audit.Record(r, "binding_type.update", "binding_type", updated.ID.String(), nil)
	common.JSON(w, http.StatusOK, updated)
}

// DeactivateType handles DELETE /api/v1/admin/binding-types/{id}.
func (h *Handler) DeactivateType(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.ErrNotFound("binding type not found"))
		return
	}
	updated, err := h.Service.DeactivateType(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	h.Audit.Record(r, "binding_type.deactivate", "binding_type", updated.ID.String(), nil)
	common.JSON(w, http.StatusOK, updated)
}

// ListRules handles GET /api/v1/binding-prices.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	var typeFilter *uuid.UUID
	if raw := r.URL.Query().Get("binding_type_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid binding_type_id", nil)
			return
		}
		typeFilter = &id
	}
	rules, err := h.Service.ListRules(r.Context(), typeFilter)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, rules)
}

// CreateRule handles POST /api/v1/admin/binding-prices.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req RuleInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	created, err := h.Service.CreateRule(r.Context(), req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	h.Audit.Record(r, "binding_rule.create", "binding_price_rule", created.ID.String(), nil)
	common.JSON(w, http.StatusCreated, created)
}

// UpdateRule handles PUT /api/v1/admin/binding-prices/{id}.
func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.ErrNotFound("binding price rule not found"))
		return
	}
	var req RuleInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	updated, err := h.Service.UpdateRule(r.Context(), id, req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	h.Audit.Record(r, "binding_rule.update", "binding_price_rule", updated.ID.String(), nil)
	common.JSON(w, http.StatusOK, updated)
}

// DeactivateRule handles DELETE /api/v1/admin/binding-prices/{id}.
func (h *Handler) DeactivateRule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.ErrNotFound("binding price rule not found"))
		return
	}
	updated, err := h.Service.DeactivateRule(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	h.Audit.Record(r, "binding_rule.deactivate", "binding_price_rule", updated.ID.String(), nil)
	common.JSON(w, http.StatusOK, updated)
}
