package order

import (
	"net/http"

	"github.com/noah-isme/backend-printhub/internal/common"
)

// AdminHandler exposes the staff order views. Mutations go through the
// regular Update/Delete handlers, which already honour staff roles.
type AdminHandler struct {
	Service *Service
}

// List handles GET /api/v1/employee/orders with status and payment filters.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20)
	details, total, err := h.Service.ListAll(r.Context(),
		r.URL.Query().Get("status"),
		r.URL.Query().Get("payment_status"),
		page, perPage)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"orders":     details,
		"pagination": common.NewPagination(page, perPage, int(total)),
	})
}
