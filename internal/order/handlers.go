package order

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-printhub/internal/common"
	"github.com/noah-isme/backend-printhub/internal/storage"
)

// Handler exposes customer-facing order endpoints.
type Handler struct {
	Service        *Service
	Storage        storage.Uploader
	MaxUploadBytes int64
}

// Create handles POST /api/v1/orders (multipart, authenticated).
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := common.IdentityFrom(r.Context())
	if !ok {
		common.WriteError(w, common.ErrUnauthenticated(""))
		return
	}
	in, files, err := h.parseCheckout(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	defer closeUploads(files)
	detail, err := h.Service.Create(r.Context(), caller, in, files)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, detail)
}

// CreateGuest handles POST /api/v1/orders/guest (multipart, anonymous).
func (h *Handler) CreateGuest(w http.ResponseWriter, r *http.Request) {
	in, files, err := h.parseCheckout(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	defer closeUploads(files)
	detail, err := h.Service.CreateGuest(r.Context(), in, files)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, detail)
}

// List handles GET /api/v1/orders.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := common.IdentityFrom(r.Context())
	if !ok {
		common.WriteError(w, common.ErrUnauthenticated(""))
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	var (
		details []Detail
		total   int64
		err     error
	)
	if r.URL.Query().Get("all") == "1" && (caller.Role == "admin" || caller.Role == "employee") {
		details, total, err = h.Service.ListAll(r.Context(), r.URL.Query().Get("status"), r.URL.Query().Get("payment_status"), page, perPage)
	} else {
		details, total, err = h.Service.List(r.Context(), caller, r.URL.Query().Get("status"), page, perPage)
	}
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"orders":     details,
		"pagination": common.NewPagination(page, perPage, int(total)),
	})
}

// Get handles GET /api/v1/orders/{orderNumber}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := common.IdentityFrom(r.Context())
	if !ok {
		common.WriteError(w, common.ErrUnauthenticated(""))
		return
	}
	detail, err := h.Service.Get(r.Context(), caller, chi.URLParam(r, "orderNumber"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, detail)
}

// GetGuest handles GET /api/v1/orders/guest/{orderNumber}?phone=.
func (h *Handler) GetGuest(w http.ResponseWriter, r *http.Request) {
	detail, err := h.Service.GetGuest(r.Context(), chi.URLParam(r, "orderNumber"), r.URL.Query().Get("phone"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, detail)
}

// Update handles PATCH /api/v1/orders/{orderNumber}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	caller, ok := common.IdentityFrom(r.Context())
	if !ok {
		common.WriteError(w, common.ErrUnauthenticated(""))
		return
	}
	var in UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	detail, err := h.Service.Update(r.Context(), caller, chi.URLParam(r, "orderNumber"), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, detail)
}

// Delete handles DELETE /api/v1/orders/{orderNumber}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := common.IdentityFrom(r.Context())
	if !ok {
		common.WriteError(w, common.ErrUnauthenticated(""))
		return
	}
	if err := h.Service.Delete(r.Context(), caller, chi.URLParam(r, "orderNumber")); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Preview handles GET /api/v1/orders/{orderNumber}/files/{fileID}/preview.
// Mounted behind the query-token middleware so new-window navigation works.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	caller, ok := common.IdentityFrom(r.Context())
	if !ok {
		common.WriteError(w, common.ErrUnauthenticated(""))
		return
	}
	file, err := h.Service.FileForPreview(r.Context(), caller, chi.URLParam(r, "orderNumber"), chi.URLParam(r, "fileID"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	data, err := h.Storage.Download(file.Path)
	if err != nil {
		common.WriteError(w, common.ErrExternalService("file storage unavailable", err))
		return
	}
	w.Header().Set("Content-Type", file.MimeType)
	w.Header().Set("Content-Disposition", `inline; filename="`+file.OriginalName+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) parseCheckout(r *http.Request) (CreateInput, []FileUpload, error) {
	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(nil, r.Body, h.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return CreateInput{}, nil, common.NewAppError("BAD_REQUEST", "invalid multipart payload", http.StatusBadRequest, err)
	}
	form := r.MultipartForm

	in := CreateInput{
		ColorMode:     formValue(r, "color_mode"),
		Sidedness:     formValue(r, "sidedness"),
		PageCount:     common.AtoiDefault(formValue(r, "page_count"), 0),
		BindingTypeID: formValue(r, "binding_type_id"),
		Quantity:      common.AtoiDefault(formValue(r, "quantity"), 0),
		Notes:         formValue(r, "notes"),
		PaymentHint:   formValue(r, "payment_status"),
		GuestName:     formValue(r, "guest_name"),
		GuestPhone:    formValue(r, "guest_phone"),
	}
	if raw := formValue(r, "total_price"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			in.TotalPrice = v
		}
	}

	var files []FileUpload
	for _, fh := range form.File["files"] {
		f, err := fh.Open()
		if err != nil {
			closeUploads(files)
			return CreateInput{}, nil, common.NewAppError("BAD_REQUEST", "unreadable file upload", http.StatusBadRequest, err)
		}
		contentType := fh.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		files = append(files, FileUpload{
			OriginalName: fh.Filename,
			ContentType:  contentType,
			SizeBytes:    fh.Size,
			Content:      f,
		})
	}
	return in, files, nil
}

func formValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.FormValue(key))
}

func closeUploads(files []FileUpload) {
	for _, f := range files {
		if c, ok := f.Content.(io.Closer); ok {
			_ = c.Close()
		}
	}
}
