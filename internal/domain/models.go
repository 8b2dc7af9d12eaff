package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Role identifies the audit role attached to a user. Roles are carried for
// attribution only; no engine operation branches on them.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleOwner Role = "owner"
	RoleStaff Role = "staff"
)

// User is the identity collaborator consumed by the engine. Only the ID is
// referenced by core entities (created_by, closed_by).
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	FullName     string    `json:"full_name,omitempty"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Category groups catalog items.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Item is a sellable catalog entry. DiscountRate and TaxRate are percentages
// in [0, 100] applied per line at pricing time.
type Item struct {
	ID           int64           `json:"id"`
	CategoryID   int64           `json:"category_id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	SKU          string          `json:"sku,omitempty"`
	Barcode      string          `json:"barcode,omitempty"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	UnitType     string          `json:"unit_type"`
	DiscountRate decimal.Decimal `json:"discount_rate"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// StockEntry tracks the on-hand quantity for one item. There is at most one
// entry per item and the quantity never goes negative.
type StockEntry struct {
	ID        int64           `json:"id"`
	ItemID    int64           `json:"item_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	CreatedBy uuid.UUID       `json:"created_by"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Cart is a dated container of line items. It has no terminal state of its
// own; it becomes historical once its creation date is folded into a
// DailyAccount.
type Cart struct {
	ID        uuid.UUID `json:"id"`
	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CartItem is one cart line. (CartID, ItemID) is unique per cart and the
// quantity is always positive; setting it to zero deletes the line.
type CartItem struct {
	ID        uuid.UUID       `json:"id"`
	CartID    uuid.UUID       `json:"cart_id"`
	ItemID    int64           `json:"item_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// DailyAccount is the immutable financial summary of one trading day.
// It is created already closed; a closed day is never amended.
type DailyAccount struct {
	ID            uuid.UUID       `json:"id"`
	AccountDate   time.Time       `json:"account_date"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	TaxTotal      decimal.Decimal `json:"tax_total"`
	Total         decimal.Decimal `json:"total"`
	CartsCount    int             `json:"carts_count"`
	ItemsCount    int             `json:"items_count"`
	IsClosed      bool            `json:"is_closed"`
	ClosedAt      time.Time       `json:"closed_at"`
	ClosedBy      uuid.UUID       `json:"closed_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

// DailyAccountItem snapshots one item's aggregate activity for a closed day.
// Pricing fields are captured at closing time, never live-joined afterwards.
type DailyAccountItem struct {
	ID           int64           `json:"id"`
	AccountID    uuid.UUID       `json:"account_id"`
	ItemID       int64           `json:"item_id"`
	ItemName     string          `json:"item_name"`
	SKU          string          `json:"sku,omitempty"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	DiscountRate decimal.Decimal `json:"discount_rate"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	LineSubtotal decimal.Decimal `json:"line_subtotal"`
	LineDiscount decimal.Decimal `json:"line_discount"`
	LineTax      decimal.Decimal `json:"line_tax"`
	LineTotal    decimal.Decimal `json:"line_total"`
}
