package store

import (
	"time"

	"github.com/google/uuid"
)

// Prices are stored as int64 minor currency units (paise).

type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Phone        string
	Tier         string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Session struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	RefreshToken string
	UserAgent    *string
	IP           *string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

type BindingType struct {
	ID        uuid.UUID
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type PrintPriceRule struct {
	ID             uuid.UUID
	ServiceType    string
	ColorMode      string
	Sidedness      string
	PageRangeStart int
	PageRangeEnd   int
	StudentPrice   int64
	InstitutePrice int64
	RegularPrice   int64
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type BindingPriceRule struct {
	ID             uuid.UUID
	BindingTypeID  uuid.UUID
	PageRangeStart int
	PageRangeEnd   int
	StudentPrice   int64
	InstitutePrice int64
	RegularPrice   int64
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Order struct {
	ID               uuid.UUID
	OrderNumber      string
	UserID           *uuid.UUID
	GuestName        *string
	GuestPhone       *string
	ColorMode        string
	Sidedness        string
	PageCount        int
	BindingTypeID    uuid.UUID
	Quantity         int
	TotalPrice       int64
	Status           string
	Notes            *string
	PaymentStatus    string
	GatewayOrderID   *string
	GatewayPaymentID *string
	GatewaySignature *string
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type OrderItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	Description string
	UnitPrice   int64
	Quantity    int
}

type OrderFile struct {
	ID           uuid.UUID
	OrderID      uuid.UUID
	OriginalName string
	StoredName   string
	MimeType     string
	SizeBytes    int64
	Path         string
	CreatedAt    time.Time
}

type PaymentEvent struct {
	ID               uuid.UUID
	GatewayOrderID   string
	GatewayPaymentID *string
	EventType        string
	Payload          []byte
	CreatedAt        time.Time
}

type AuditLog struct {
	ID           uuid.UUID
	ActorID      *uuid.UUID
	Action       string
	ResourceType string
	ResourceID   string
	IP           *string
	Metadata     []byte
	CreatedAt    time.Time
}
