package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        string `gorm:"primaryKey;size:64;not null"` // product sku
	Name      string `gorm:"size:128;not null"`
	VendorID  string `gorm:"size:64;index;not null"`
	Price     int64  `gorm:"not null"` // COP, 0 decimals
	Currency  string `gorm:"size:8;not null"`
	Stock     *int32 // nil when stock is not tracked for the product
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Vendor struct {
	ID   string `gorm:"primaryKey;size:64;not null"`
	Name string `gorm:"size:128;not null"`
	// CommissionRate overrides the platform default when set
	CommissionRate *decimal.Decimal `gorm:"type:decimal(6,4)"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Order struct {
	ID string `gorm:"primaryKey;size:64;not null"` // uuid
	// Reference is the idempotency key: stable per (buyer, cart snapshot)
	Reference     string        `gorm:"size:64;uniqueIndex;not null"`
	BuyerID       string        `gorm:"size:64;index;not null"`
	VendorID      string        `gorm:"size:64;index;not null"`
	Status        OrderStatus   `gorm:"size:32;index;not null"`
	PaymentMethod PaymentMethod `gorm:"size:32;not null"`

	// totals fixed by the pricing engine at creation time, never recomputed
	Subtotal int64  `gorm:"not null"`
	IVA      int64  `gorm:"not null"`
	Shipping int64  `gorm:"not null"`
	Total    int64  `gorm:"not null"`
	Currency string `gorm:"size:8;not null"`

	Address ShippingAddress `gorm:"embedded;embeddedPrefix:ship_"`
	Notes   string          `gorm:"size:512"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

type OrderItem struct {
	ID uint `gorm:"primaryKey"`
	// FK → order.reference
	OrderReference string `gorm:"size:64;index;not null"`
	// FK → product.id
	ProductID         string            `gorm:"size:64;index;not null"`
	Quantity          int32             `gorm:"not null"`
	UnitPrice         int64             `gorm:"not null"`
	Currency          string            `gorm:"size:8;not null"`
	VariantAttributes map[string]string `gorm:"serializer:json"`

	CreatedAt time.Time
}

// Transaction is one gateway-side payment attempt for an order. Open is
// non-nil exactly while Status is non-terminal; the unique index over
// (order_reference, open) leaves room for a single open attempt per order
// while terminal rows (open NULL) accumulate freely.
type Transaction struct {
	ID                   uint              `gorm:"primaryKey"`
	OrderReference       string            `gorm:"size:64;index;uniqueIndex:idx_open_attempt;not null"`
	Provider             string            `gorm:"size:32;not null"`
	GatewayTransactionID string            `gorm:"size:128;index"`
	Status               TransactionStatus `gorm:"size:32;index;not null"`
	Amount               int64             `gorm:"not null"` // equals order total at creation
	Currency             string            `gorm:"size:8;not null"`
	ProcessURL           string            `gorm:"size:512"`
	FailureReason        string            `gorm:"size:255"`
	Open                 *bool             `gorm:"uniqueIndex:idx_open_attempt"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Commission struct {
	ID            uint   `gorm:"primaryKey"`
	OrderID       string `gorm:"size:64;uniqueIndex;not null"`
	TransactionID uint   `gorm:"index;not null"`
	VendorID      string `gorm:"size:64;index;not null"`
	// VendorAmount + PlatformAmount always equals the settled amount
	VendorAmount   int64           `gorm:"not null"`
	PlatformAmount int64           `gorm:"not null"`
	Rate           decimal.Decimal `gorm:"type:decimal(6,4);not null"`
	CreatedAt      time.Time
}

type SavedAddress struct {
	ID      uint   `gorm:"primaryKey"`
	BuyerID string `gorm:"size:64;uniqueIndex:idx_buyer_address;not null"`
	// Digest matches ShippingAddress.Digest so re-saving the same place
	// updates instead of duplicating
	Digest    string          `gorm:"size:64;uniqueIndex:idx_buyer_address;not null"`
	Address   ShippingAddress `gorm:"embedded"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type WebhookEvent struct {
	EventID     string `gorm:"primaryKey;size:128;not null"`
	Provider    string `gorm:"size:32;index"`
	EventType   string `gorm:"size:64;index"`
	ProcessedAt time.Time
	CreatedAt   time.Time
}
