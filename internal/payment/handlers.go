package payment

import (
	"encoding/json"
	"net/http"

	"github.com/noah-isme/backend-printhub/internal/common"
)

// Handler exposes the synchronous payment endpoints.
type Handler struct {
	Service *Service
}

type createOrderRequest struct {
	OrderNumbers []string `json:"order_numbers"`
}

// CreateOrder handles POST /api/v1/payments/create-order.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := common.IdentityFrom(r.Context())
	if !ok {
		caller = common.Identity{}
	}
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	result, err := h.Service.CreateGatewayOrder(r.Context(), caller, req.OrderNumbers)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, result)
}

// Verify handles POST /api/v1/payments/verify.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	caller, ok := common.IdentityFrom(r.Context())
	if !ok {
		caller = common.Identity{}
	}
	var req VerifyInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	result, err := h.Service.Verify(r.Context(), caller, req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, result)
}
