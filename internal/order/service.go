// Package order implements checkout, retrieval, and mutation of print
// orders for authenticated and guest customers.
package order

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-printhub/internal/authz"
	"github.com/noah-isme/backend-printhub/internal/common"
	"github.com/noah-isme/backend-printhub/internal/events"
	"github.com/noah-isme/backend-printhub/internal/obs"
	"github.com/noah-isme/backend-printhub/internal/storage"
	"github.com/noah-isme/backend-printhub/internal/store"
)

const (
	// MaxFiles is the default bound on attachments per order.
	MaxFiles = 5

	createRetries = 3
)

// Store is the persistence surface the workflow needs.
type Store interface {
	GetBindingType(ctx context.Context, id uuid.UUID) (store.BindingType, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (store.User, error)
	CreateOrderTx(ctx context.Context, p store.CreateOrderParams, itemDescription string, itemUnitPrice int64, files []store.OrderFile) (store.Order, []store.OrderItem, []store.OrderFile, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (store.Order, error)
	OrderItems(ctx context.Context, orderID uuid.UUID) ([]store.OrderItem, error)
	OrderFiles(ctx context.Context, orderID uuid.UUID) ([]store.OrderFile, error)
	ListOrders(ctx context.Context, f store.OrderFilter) ([]store.Order, error)
	CountOrders(ctx context.Context, f store.OrderFilter) (int64, error)
	PatchOrder(ctx context.Context, id uuid.UUID, p store.OrderPatch) (store.Order, error)
	SoftDeleteOrder(ctx context.Context, id uuid.UUID) error
}

// Service orchestrates the order workflow.
type Service struct {
	store    Store
	uploader storage.Uploader
	bus      *events.Bus
	validate *validator.Validate
	maxFiles int
	now      func() time.Time
}

// NewService wires the order workflow. maxFiles bounds attachments per
// order; zero or negative falls back to MaxFiles.
func NewService(s Store, uploader storage.Uploader, bus *events.Bus, maxFiles int) *Service {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if maxFiles <= 0 {
		maxFiles = MaxFiles
	}
	return &Service{store: s, uploader: uploader, bus: bus, validate: v, maxFiles: maxFiles, now: time.Now}
}

// WithNow allows tests to override the time provider.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// FileUpload is one attachment arriving with a checkout request.
type FileUpload struct {
	OriginalName string
	ContentType  string
	SizeBytes    int64
	Content      io.Reader
}

// CreateInput is the shared checkout payload. Guest fields are validated
// only on the guest path.
type CreateInput struct {
	ColorMode     string `json:"color_mode" validate:"required,oneof=mono color"`
	Sidedness     string `json:"sidedness" validate:"required,oneof=single double"`
	PageCount     int    `json:"page_count" validate:"required,min=1,max=10000"`
	BindingTypeID string `json:"binding_type_id" validate:"required"`
	Quantity      int    `json:"quantity" validate:"required,min=1,max=1000"`
	TotalPrice    int64  `json:"total_price" validate:"required,min=1"`
	Notes         string `json:"notes"`
	PaymentHint   string `json:"payment_status"`

	GuestName  string `json:"guest_name"`
	GuestPhone string `json:"guest_phone"`
}

// Detail is an order with its relations resolved for display.
type Detail struct {
	ID            string     `json:"id"`
	OrderNumber   string     `json:"order_number"`
	Owner         *Owner     `json:"owner,omitempty"`
	GuestName     string     `json:"guest_name,omitempty"`
	GuestPhone    string     `json:"guest_phone,omitempty"`
	ColorMode     string     `json:"color_mode"`
	Sidedness     string     `json:"sidedness"`
	PageCount     int        `json:"page_count"`
	BindingType   string     `json:"binding_type"`
	BindingTypeID string     `json:"binding_type_id"`
	Quantity      int        `json:"quantity"`
	TotalPrice    int64      `json:"total_price"`
	Status        string     `json:"status"`
	Notes         string     `json:"notes,omitempty"`
	PaymentStatus string     `json:"payment_status"`
	LineItems     []LineItem `json:"line_items"`
	Files         []File     `json:"files"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Owner is the safe subset of the owning user shown on an order.
type Owner struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// LineItem describes one priced component of an order.
type LineItem struct {
	Description string `json:"description"`
	UnitPrice   int64  `json:"unit_price"`
	Quantity    int    `json:"quantity"`
}

// File is attachment metadata exposed to clients.
type File struct {
	ID           string `json:"id"`
	OriginalName string `json:"original_name"`
	StoredName   string `json:"stored_name"`
	MimeType     string `json:"mime_type"`
	SizeBytes    int64  `json:"size_bytes"`
	Path         string `json:"path"`
}

// Create places an authenticated order. Validation precedes every side
// effect; files hit object storage only after the payload is valid.
func (s *Service) Create(ctx context.Context, caller common.Identity, in CreateInput, files []FileUpload) (Detail, error) {
	detail, err := s.create(ctx, &caller, in, files)
	countOrderCreated("authenticated", err)
	return detail, err
}

// CreateGuest places a guest order identified by name and phone.
func (s *Service) CreateGuest(ctx context.Context, in CreateInput, files []FileUpload) (Detail, error) {
	detail, err := s.create(ctx, nil, in, files)
	countOrderCreated("guest", err)
	return detail, err
}

func (s *Service) create(ctx context.Context, caller *common.Identity, in CreateInput, files []FileUpload) (Detail, error) {
	if caller != nil && caller.UserID == "" {
		return Detail{}, common.ErrUnauthenticated("")
	}
	if err := s.validateInput(caller == nil, in); err != nil {
		return Detail{}, err
	}
	if len(files) == 0 {
		return Detail{}, common.NewAppError("MISSING_ATTACHMENT", "at least one file must be attached", http.StatusBadRequest, nil)
	}
	if len(files) > s.maxFiles {
		return Detail{}, common.NewAppError("TOO_MANY_FILES", fmt.Sprintf("at most %d files per order", s.maxFiles), http.StatusBadRequest, nil)
	}

	bindingID, err := uuid.Parse(in.BindingTypeID)
	if err != nil {
		return Detail{}, invalidBindingRef()
	}
	binding, err := s.store.GetBindingType(ctx, bindingID)
	if err != nil {
		if store.ErrNoRows(err) {
			return Detail{}, invalidBindingRef()
		}
		return Detail{}, fmt.Errorf("load binding type: %w", err)
	}
	if !binding.IsActive {
		return Detail{}, invalidBindingRef()
	}

	params := store.CreateOrderParams{
		ColorMode:     in.ColorMode,
		Sidedness:     in.Sidedness,
		PageCount:     in.PageCount,
		BindingTypeID: bindingID,
		Quantity:      in.Quantity,
		TotalPrice:    in.TotalPrice,
	}
	if notes := strings.TrimSpace(in.Notes); notes != "" {
		params.Notes = &notes
	}
	var owner *store.User
	if caller != nil {
		userID, err := uuid.Parse(caller.UserID)
		if err != nil {
			return Detail{}, common.ErrUnauthenticated("")
		}
		u, err := s.store.GetUserByID(ctx, userID)
		if err != nil {
			return Detail{}, common.ErrUnauthenticated("")
		}
		owner = &u
		params.UserID = &u.ID
	} else {
		guestName := strings.TrimSpace(in.GuestName)
		guestPhone := strings.TrimSpace(in.GuestPhone)
		params.GuestName = &guestName
		params.GuestPhone = &guestPhone
	}

	stored, err := s.uploadFiles(files)
	if err != nil {
		return Detail{}, err
	}

	detail, err := s.persistOrder(ctx, params, in, stored)
	if err != nil {
		s.rollbackUploads(stored)
		return Detail{}, err
	}
	detail.Owner = ownerOf(owner)
	detail.BindingType = binding.Name

	s.bus.Publish(ctx, events.Event{
		Topic:        events.TopicOrderCreated,
		AggregateRef: detail.OrderNumber,
		Payload: map[string]any{
			"order_number": detail.OrderNumber,
			"total_price":  detail.TotalPrice,
			"guest":        caller == nil,
		},
	})
	return detail, nil
}

func (s *Service) validateInput(guest bool, in CreateInput) error {
	var fields []string
	if err := s.validate.Struct(in); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("validate order input: %w", err)
		}
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
	}
	if guest {
		if strings.TrimSpace(in.GuestName) == "" {
			fields = append(fields, "guest_name")
		}
		if strings.TrimSpace(in.GuestPhone) == "" {
			fields = append(fields, "guest_phone")
		}
	}
	if in.PaymentHint != "" && in.PaymentHint != "unpaid" && in.PaymentHint != "partial" && in.PaymentHint != "paid" {
		fields = append(fields, "payment_status")
	}
	if len(fields) > 0 {
		return common.ErrValidation("missing or invalid fields", fields)
	}
	return nil
}

func (s *Service) uploadFiles(files []FileUpload) ([]store.OrderFile, error) {
	stored := make([]store.OrderFile, 0, len(files))
	for _, f := range files {
		ext := path.Ext(f.OriginalName)
		storedName := uuid.NewString() + ext
		objectPath := fmt.Sprintf("orders/%s/%s", s.now().Format("2006/01"), storedName)
		if _, err := s.uploader.Upload(objectPath, f.ContentType, f.Content); err != nil {
			s.rollbackUploads(stored)
			return nil, common.ErrExternalService("file storage unavailable", err)
		}
		stored = append(stored, store.OrderFile{
			OriginalName: f.OriginalName,
			StoredName:   storedName,
			MimeType:     f.ContentType,
			SizeBytes:    f.SizeBytes,
			Path:         objectPath,
		})
	}
	return stored, nil
}

func (s *Service) rollbackUploads(stored []store.OrderFile) {
	paths := make([]string, 0, len(stored))
	for _, f := range stored {
		paths = append(paths, f.Path)
	}
	_ = s.uploader.Remove(paths)
}

func (s *Service) persistOrder(ctx context.Context, params store.CreateOrderParams, in CreateInput, files []store.OrderFile) (Detail, error) {
	description := fmt.Sprintf("%s %s-sided, %d pages", pricingLabel(in.ColorMode), in.Sidedness, in.PageCount)
	unitPrice := in.TotalPrice / int64(in.Quantity)

	var lastErr error
	for attempt := 0; attempt < createRetries; attempt++ {
		params.OrderNumber = NewOrderNumber(s.now())
		ord, items, storedFiles, err := s.store.CreateOrderTx(ctx, params, description, unitPrice, files)
		if err != nil {
			if store.IsUniqueViolation(err) {
				lastErr = err
				continue
			}
			return Detail{}, fmt.Errorf("persist order: %w", err)
		}
		if in.PaymentHint != "" && in.PaymentHint != "unpaid" {
			hint := in.PaymentHint
			ord, err = s.store.PatchOrder(ctx, ord.ID, store.OrderPatch{PaymentStatus: &hint})
			if err != nil {
				return Detail{}, fmt.Errorf("apply payment hint: %w", err)
			}
		}
		return assemble(ord, items, storedFiles, nil, ""), nil
	}
	return Detail{}, fmt.Errorf("persist order: %w", lastErr)
}

func pricingLabel(colorMode string) string {
	if colorMode == "color" {
		return "Full Color"
	}
	return "Black & White"
}

func invalidBindingRef() error {
	return common.NewAppError("INVALID_REFERENCE", "binding type does not exist", http.StatusBadRequest, nil)
}

func countOrderCreated(channel string, err error) {
	if obs.OrdersCreatedTotal == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	obs.OrdersCreatedTotal.WithLabelValues(channel, result).Inc()
}

// Get returns an order with relations for an authenticated caller, applying
// the ownership policy.
func (s *Service) Get(ctx context.Context, caller common.Identity, orderNumber string) (Detail, error) {
	ord, err := s.loadOrder(ctx, orderNumber)
	if err != nil {
		return Detail{}, err
	}
	if err := authz.Decide(caller, ownerID(ord), authz.ActionView); err != nil {
		return Detail{}, err
	}
	return s.detail(ctx, ord)
}

// GetGuest returns a guest order when the supplied phone digits match the
// stored guest phone. Every mismatch answers with the same Forbidden so the
// endpoint leaks nothing about why access was denied.
func (s *Service) GetGuest(ctx context.Context, orderNumber, phone string) (Detail, error) {
	ord, err := s.loadOrder(ctx, orderNumber)
	if err != nil {
		return Detail{}, err
	}
	if ord.UserID != nil || ord.GuestPhone == nil {
		return Detail{}, common.ErrForbidden()
	}
	if !common.PhoneDigitsEqual(phone, *ord.GuestPhone) {
		return Detail{}, common.ErrForbidden()
	}
	return s.detail(ctx, ord)
}

// List returns the caller's orders newest first.
func (s *Service) List(ctx context.Context, caller common.Identity, status string, page, perPage int) ([]Detail, int64, error) {
	userID, err := uuid.Parse(caller.UserID)
	if err != nil {
		return nil, 0, common.ErrUnauthenticated("")
	}
	filter := store.OrderFilter{UserID: &userID, Limit: perPage, Offset: (page - 1) * perPage}
	if status != "" {
		filter.Status = &status
	}
	return s.list(ctx, filter)
}

// ListAll returns every active order for staff views.
func (s *Service) ListAll(ctx context.Context, status, paymentStatus string, page, perPage int) ([]Detail, int64, error) {
	filter := store.OrderFilter{Limit: perPage, Offset: (page - 1) * perPage}
	if status != "" {
		filter.Status = &status
	}
	if paymentStatus != "" {
		filter.PaymentStatus = &paymentStatus
	}
	return s.list(ctx, filter)
}

func (s *Service) list(ctx context.Context, filter store.OrderFilter) ([]Detail, int64, error) {
	orders, err := s.store.ListOrders(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	total, err := s.store.CountOrders(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	details := make([]Detail, 0, len(orders))
	for _, ord := range orders {
		d, err := s.detail(ctx, ord)
		if err != nil {
			return nil, 0, err
		}
		details = append(details, d)
	}
	return details, total, nil
}

// UpdateInput is the mutable surface of a placed order. Configuration
// fields are immutable after checkout.
type UpdateInput struct {
	Status        *string `json:"status"`
	PaymentStatus *string `json:"payment_status"`
	Notes         *string `json:"notes"`
}

// Update patches an order. Owners may edit notes; status and payment state
// are staff-only.
func (s *Service) Update(ctx context.Context, caller common.Identity, orderNumber string, in UpdateInput) (Detail, error) {
	ord, err := s.loadOrder(ctx, orderNumber)
	if err != nil {
		return Detail{}, err
	}
	if err := authz.Decide(caller, ownerID(ord), authz.ActionUpdate); err != nil {
		return Detail{}, err
	}
	staff := caller.Role == "admin" || caller.Role == "employee"
	if !staff && (in.Status != nil || in.PaymentStatus != nil) {
		return Detail{}, common.ErrForbidden()
	}
	if in.Status != nil && !validStatus(*in.Status) {
		return Detail{}, common.ErrValidation("missing or invalid fields", []string{"status"})
	}
	if in.PaymentStatus != nil && !validPaymentStatus(*in.PaymentStatus) {
		return Detail{}, common.ErrValidation("missing or invalid fields", []string{"payment_status"})
	}
	patched, err := s.store.PatchOrder(ctx, ord.ID, store.OrderPatch{
		Status:        in.Status,
		PaymentStatus: in.PaymentStatus,
		Notes:         in.Notes,
	})
	if err != nil {
		if store.ErrNoRows(err) {
			return Detail{}, common.ErrNotFound("order not found")
		}
		return Detail{}, fmt.Errorf("update order: %w", err)
	}
	return s.detail(ctx, patched)
}

// Delete soft-deletes an order. The order number stays reserved forever.
func (s *Service) Delete(ctx context.Context, caller common.Identity, orderNumber string) error {
	ord, err := s.loadOrder(ctx, orderNumber)
	if err != nil {
		return err
	}
	if err := authz.Decide(caller, ownerID(ord), authz.ActionDelete); err != nil {
		return err
	}
	if err := s.store.SoftDeleteOrder(ctx, ord.ID); err != nil {
		if store.ErrNoRows(err) {
			return common.ErrNotFound("order not found")
		}
		return fmt.Errorf("delete order: %w", err)
	}
	s.bus.Publish(ctx, events.Event{
		Topic:        events.TopicOrderDeleted,
		AggregateRef: ord.OrderNumber,
		Payload:      map[string]any{"order_number": ord.OrderNumber},
	})
	return nil
}

// FileForPreview returns one attachment's metadata after an ownership
// check, for streaming from object storage.
func (s *Service) FileForPreview(ctx context.Context, caller common.Identity, orderNumber, fileID string) (store.OrderFile, error) {
	ord, err := s.loadOrder(ctx, orderNumber)
	if err != nil {
		return store.OrderFile{}, err
	}
	if err := authz.Decide(caller, ownerID(ord), authz.ActionView); err != nil {
		return store.OrderFile{}, err
	}
	id, err := uuid.Parse(fileID)
	if err != nil {
		return store.OrderFile{}, common.ErrNotFound("file not found")
	}
	files, err := s.store.OrderFiles(ctx, ord.ID)
	if err != nil {
		return store.OrderFile{}, fmt.Errorf("load order files: %w", err)
	}
	for _, f := range files {
		if f.ID == id {
			return f, nil
		}
	}
	return store.OrderFile{}, common.ErrNotFound("file not found")
}

func (s *Service) loadOrder(ctx context.Context, orderNumber string) (store.Order, error) {
	ord, err := s.store.GetOrderByNumber(ctx, strings.TrimSpace(orderNumber))
	if err != nil {
		if store.ErrNoRows(err) {
			return store.Order{}, common.ErrNotFound("order not found")
		}
		return store.Order{}, fmt.Errorf("load order: %w", err)
	}
	return ord, nil
}

func (s *Service) detail(ctx context.Context, ord store.Order) (Detail, error) {
	items, err := s.store.OrderItems(ctx, ord.ID)
	if err != nil {
		return Detail{}, fmt.Errorf("load order items: %w", err)
	}
	files, err := s.store.OrderFiles(ctx, ord.ID)
	if err != nil {
		return Detail{}, fmt.Errorf("load order files: %w", err)
	}
	var owner *store.User
	if ord.UserID != nil {
		if u, err := s.store.GetUserByID(ctx, *ord.UserID); err == nil {
			owner = &u
		}
	}
	bindingName := ""
	if bt, err := s.store.GetBindingType(ctx, ord.BindingTypeID); err == nil {
		bindingName = bt.Name
	}
	return assemble(ord, items, files, owner, bindingName), nil
}

func assemble(ord store.Order, items []store.OrderItem, files []store.OrderFile, owner *store.User, bindingName string) Detail {
	d := Detail{
		ID:            ord.ID.String(),
		OrderNumber:   ord.OrderNumber,
		Owner:         ownerOf(owner),
		ColorMode:     ord.ColorMode,
		Sidedness:     ord.Sidedness,
		PageCount:     ord.PageCount,
		BindingType:   bindingName,
		BindingTypeID: ord.BindingTypeID.String(),
		Quantity:      ord.Quantity,
		TotalPrice:    ord.TotalPrice,
		Status:        ord.Status,
		PaymentStatus: ord.PaymentStatus,
		CreatedAt:     ord.CreatedAt,
		UpdatedAt:     ord.UpdatedAt,
	}
	if ord.GuestName != nil {
		d.GuestName = *ord.GuestName
	}
	if ord.GuestPhone != nil {
		d.GuestPhone = *ord.GuestPhone
	}
	if ord.Notes != nil {
		d.Notes = *ord.Notes
	}
	d.LineItems = make([]LineItem, 0, len(items))
	for _, it := range items {
		d.LineItems = append(d.LineItems, LineItem{Description: it.Description, UnitPrice: it.UnitPrice, Quantity: it.Quantity})
	}
	d.Files = make([]File, 0, len(files))
	for _, f := range files {
		d.Files = append(d.Files, File{
			ID:           f.ID.String(),
			OriginalName: f.OriginalName,
			StoredName:   f.StoredName,
			MimeType:     f.MimeType,
			SizeBytes:    f.SizeBytes,
			Path:         f.Path,
		})
	}
	return d
}

func ownerOf(u *store.User) *Owner {
	if u == nil {
		return nil
	}
	return &Owner{ID: u.ID.String(), Name: u.Name, Email: u.Email}
}

func ownerID(ord store.Order) string {
	if ord.UserID == nil {
		return ""
	}
	return ord.UserID.String()
}

func validStatus(s string) bool {
	switch s {
	case "pending", "processing", "completed", "cancelled":
		return true
	}
	return false
}

func validPaymentStatus(s string) bool {
	switch s {
	case "unpaid", "partial", "paid":
		return true
	}
	return false
}
