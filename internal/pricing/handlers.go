package pricing

import (
	"encoding/json"
	"net/http"

	"github.com/noah-isme/backend-printhub/internal/common"
)

// Handler exposes the public quote endpoint.
type Handler struct {
	Service *Service
}

type quoteRequest struct {
	ColorMode     string `json:"color_mode"`
	Sidedness     string `json:"sidedness"`
	PageCount     int    `json:"page_count"`
	BindingTypeID string `json:"binding_type_id"`
	Quantity      int    `json:"quantity"`
}

// Quote handles POST /api/v1/orders/calculate/price. The caller's tier is
// taken from the token when present, otherwise regular pricing applies.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	tier := "Regular"
	if id, ok := common.IdentityFrom(r.Context()); ok && id.Tier != "" {
		tier = id.Tier
	}
	quote, err := h.Service.Resolve(r.Context(), ResolveInput{
		ColorMode:     req.ColorMode,
		Sidedness:     req.Sidedness,
		PageCount:     req.PageCount,
		BindingTypeID: req.BindingTypeID,
		Quantity:      req.Quantity,
		Tier:          tier,
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, quote)
}
