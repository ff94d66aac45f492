package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusReserved OrderStatus = "RESERVED"
	StatusPaid     OrderStatus = "PAID"
	StatusCanceled OrderStatus = "CANCELED"
	StatusExpired  OrderStatus = "EXPIRED"
)

// Terminal reports whether no further transition is allowed from s.
func (s OrderStatus) Terminal() bool { return s != StatusReserved }

type Product struct {
	ID        string
	Name      string
	Price     decimal.Decimal
	Stock     int
	Version   int64 // bumped on every write; detects lost updates
	CreatedAt time.Time
	UpdatedAt *time.Time
}

type Order struct {
	ID        string
	Status    OrderStatus
	CreatedAt time.Time
	ExpiresAt *time.Time // non-nil iff status is RESERVED
	PaidAt    *time.Time
	Lines     []OrderLine
}

// OrderLine quantities and price snapshots are frozen at creation time;
// later catalog price changes never touch them.
type OrderLine struct {
	ID            string
	OrderID       string
	ProductID     string
	ProductName   string
	UnitPrice     decimal.Decimal
	Quantity      int
	PriceSnapshot decimal.Decimal
}

// OrderSummary is the projection handed back to callers.
type OrderSummary struct {
	OrderID   string             `json:"orderId"`
	Status    OrderStatus        `json:"status"`
	CreatedAt time.Time          `json:"createdAt"`
	ExpiresAt *time.Time         `json:"expiresAt,omitempty"`
	PaidAt    *time.Time         `json:"paidAt,omitempty"`
	Products  []OrderSummaryItem `json:"products"`
}

type OrderSummaryItem struct {
	ProductID  string          `json:"productId"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	Quantity   int             `json:"quantity"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// Summary builds the caller-facing projection of o.
func (o Order) Summary() OrderSummary {
	items := make([]OrderSummaryItem, 0, len(o.Lines))
	for _, l := range o.Lines {
		items = append(items, OrderSummaryItem{
			ProductID:  l.ProductID,
			Name:       l.ProductName,
			UnitPrice:  l.UnitPrice,
			Quantity:   l.Quantity,
			TotalPrice: l.PriceSnapshot,
		})
	}
	return OrderSummary{
		OrderID:   o.ID,
		Status:    o.Status,
		CreatedAt: o.CreatedAt,
		ExpiresAt: o.ExpiresAt,
		PaidAt:    o.PaidAt,
		Products:  items,
	}
}
