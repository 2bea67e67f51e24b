package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const orderColumns = `id, order_number, user_id, guest_name, guest_phone, color_mode, sidedness,
	page_count, binding_type_id, quantity, total_price, status, notes, payment_status,
	gateway_order_id, gateway_payment_id, gateway_signature, is_active, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.GuestName, &o.GuestPhone, &o.ColorMode, &o.Sidedness,
		&o.PageCount, &o.BindingTypeID, &o.Quantity, &o.TotalPrice, &o.Status, &o.Notes, &o.PaymentStatus,
		&o.GatewayOrderID, &o.GatewayPaymentID, &o.GatewaySignature, &o.IsActive, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

type CreateOrderParams struct {
	OrderNumber   string
	UserID        *uuid.UUID
	GuestName     *string
	GuestPhone    *string
	ColorMode     string
	Sidedness     string
	PageCount     int
	BindingTypeID uuid.UUID
	Quantity      int
	TotalPrice    int64
	Notes         *string
}

func (s *Store) CreateOrder(ctx context.Context, p CreateOrderParams) (Order, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO orders
			(order_number, user_id, guest_name, guest_phone, color_mode, sidedness,
			 page_count, binding_type_id, quantity, total_price, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+orderColumns,
		p.OrderNumber, p.UserID, p.GuestName, p.GuestPhone, p.ColorMode, p.Sidedness,
		p.PageCount, p.BindingTypeID, p.Quantity, p.TotalPrice, p.Notes)
	return scanOrder(row)
}

func (s *Store) InsertOrderItem(ctx context.Context, orderID uuid.UUID, description string, unitPrice int64, quantity int) (OrderItem, error) {
	var it OrderItem
	row := s.db.QueryRow(ctx, `
		INSERT INTO order_items (order_id, description, unit_price, quantity)
		VALUES ($1, $2, $3, $4)
		RETURNING id, order_id, description, unit_price, quantity`,
		orderID, description, unitPrice, quantity)
	err := row.Scan(&it.ID, &it.OrderID, &it.Description, &it.UnitPrice, &it.Quantity)
	return it, err
}

func (s *Store) InsertOrderFile(ctx context.Context, f OrderFile) (OrderFile, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO order_files (order_id, original_name, stored_name, mime_type, size_bytes, path)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, order_id, original_name, stored_name, mime_type, size_bytes, path, created_at`,
		f.OrderID, f.OriginalName, f.StoredName, f.MimeType, f.SizeBytes, f.Path)
	var out OrderFile
	err := row.Scan(&out.ID, &out.OrderID, &out.OriginalName, &out.StoredName, &out.MimeType, &out.SizeBytes, &out.Path, &out.CreatedAt)
	return out, err
}

func (s *Store) GetOrderByNumber(ctx context.Context, orderNumber string) (Order, error) {
	row := s.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number = $1 AND is_active`, orderNumber)
	return scanOrder(row)
}

func (s *Store) GetOrderByID(ctx context.Context, id uuid.UUID) (Order, error) {
	row := s.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 AND is_active`, id)
	return scanOrder(row)
}

func (s *Store) OrderItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, order_id, description, unit_price, quantity
		FROM order_items WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.Description, &it.UnitPrice, &it.Quantity); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Store) OrderFiles(ctx context.Context, orderID uuid.UUID) ([]OrderFile, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, order_id, original_name, stored_name, mime_type, size_bytes, path, created_at
		FROM order_files WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OrderFile
	for rows.Next() {
		var f OrderFile
		if err := rows.Scan(&f.ID, &f.OrderID, &f.OriginalName, &f.StoredName, &f.MimeType, &f.SizeBytes, &f.Path, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

type OrderFilter struct {
	UserID        *uuid.UUID
	Status        *string
	PaymentStatus *string
	Limit         int
	Offset        int
}

func (s *Store) ListOrders(ctx context.Context, f OrderFilter) ([]Order, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE is_active
		  AND ($1::uuid IS NULL OR user_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		  AND ($3::text IS NULL OR payment_status = $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5`,
		f.UserID, f.Status, f.PaymentStatus, f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (s *Store) CountOrders(ctx context.Context, f OrderFilter) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, `
		SELECT count(*)
		FROM orders
		WHERE is_active
		  AND ($1::uuid IS NULL OR user_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		  AND ($3::text IS NULL OR payment_status = $3)`,
		f.UserID, f.Status, f.PaymentStatus).Scan(&n)
	return n, err
}

type OrderPatch struct {
	Status        *string
	PaymentStatus *string
	Notes         *string
}

// PatchOrder updates only the provided fields and returns the new row.
func (s *Store) PatchOrder(ctx context.Context, id uuid.UUID, p OrderPatch) (Order, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE orders SET
			status = COALESCE($2, status),
			payment_status = COALESCE($3, payment_status),
			notes = COALESCE($4, notes),
			updated_at = now()
		WHERE id = $1 AND is_active
		RETURNING `+orderColumns,
		id, p.Status, p.PaymentStatus, p.Notes)
	return scanOrder(row)
}

func (s *Store) SoftDeleteOrder(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders SET is_active = false, updated_at = now()
		WHERE id = $1 AND is_active`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// AttachGatewayOrder stamps the gateway order reference onto unpaid orders.
func (s *Store) AttachGatewayOrder(ctx context.Context, orderNumbers []string, gatewayOrderID string) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders SET gateway_order_id = $2, updated_at = now()
		WHERE order_number = ANY($1) AND is_active AND payment_status <> 'paid'`,
		orderNumbers, gatewayOrderID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// MarkOrdersPaid flips the listed orders to paid. The payment_status guard
// makes replays a no-op.
func (s *Store) MarkOrdersPaid(ctx context.Context, orderNumbers []string, gatewayOrderID, paymentID, signature string) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders SET
			payment_status = 'paid',
			gateway_order_id = $2,
			gateway_payment_id = $3,
			gateway_signature = $4,
			updated_at = now()
		WHERE order_number = ANY($1) AND is_active AND payment_status <> 'paid'`,
		orderNumbers, gatewayOrderID, paymentID, signature)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// MarkOrdersPaidByGateway settles every order carrying the gateway order
// reference, used by the webhook path where order numbers are absent.
func (s *Store) MarkOrdersPaidByGateway(ctx context.Context, gatewayOrderID, paymentID string) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders SET
			payment_status = 'paid',
			gateway_payment_id = $2,
			updated_at = now()
		WHERE gateway_order_id = $1 AND is_active AND payment_status <> 'paid'`,
		gatewayOrderID, paymentID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) OrdersByNumbers(ctx context.Context, orderNumbers []string) ([]Order, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE order_number = ANY($1) AND is_active`, orderNumbers)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (s *Store) OrdersByGatewayOrder(ctx context.Context, gatewayOrderID string) ([]Order, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE gateway_order_id = $1 AND is_active`, gatewayOrderID)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (s *Store) InsertPaymentEvent(ctx context.Context, gatewayOrderID string, paymentID *string, eventType string, payload []byte) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO payment_events (gateway_order_id, gateway_payment_id, event_type, payload)
		VALUES ($1, $2, $3, $4)`,
		gatewayOrderID, paymentID, eventType, payload)
	return err
}
