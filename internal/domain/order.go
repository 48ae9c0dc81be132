package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus tracks an order through fulfillment.
type OrderStatus string

const (
	// OrderStatusPendingPayment is the initial status of every new order.
	OrderStatusPendingPayment OrderStatus = "Pending Payment"
	// OrderStatusAwaitingFulfillment means payment cleared and the order is queued.
	OrderStatusAwaitingFulfillment OrderStatus = "Awaiting Fulfillment"
	// OrderStatusShipped means the order left the warehouse.
	OrderStatusShipped OrderStatus = "Shipped"
	// OrderStatusDelivered means the carrier confirmed delivery.
	OrderStatusDelivered OrderStatus = "Delivered"
	// OrderStatusCancelled means the order was cancelled before shipping.
	OrderStatusCancelled OrderStatus = "Cancelled"
)

// OrderStatuses lists every valid status in fulfillment order.
func OrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPendingPayment,
		OrderStatusAwaitingFulfillment,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCancelled,
	}
}

// ValidOrderStatus reports whether s is a known status.
func ValidOrderStatus(s OrderStatus) bool {
	for _, status := range OrderStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// Address holds the shipping destination captured at checkout.
type Address struct {
	Line1 string `json:"line1"`
	Line2 string `json:"line2,omitempty"`
	City  string `json:"city"`
	State string `json:"state"`
	Zip   string `json:"zip"`
}

// Order is a committed purchase. Exactly one of UserID and GuestEmail is
// set: registered customers order under their account, guests under an
// email address.
type Order struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id,omitempty"`
	GuestEmail     string          `json:"guest_email,omitempty"`
	Status         OrderStatus     `json:"status"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Shipping       Address         `json:"shipping"`
	IdempotencyKey string          `json:"-"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	// Items are loaded for detail views; summary queries leave this nil.
	Items []OrderItem `json:"items,omitempty"`
}

// IsGuest returns true for orders placed without an account.
func (o *Order) IsGuest() bool {
	return o.UserID == ""
}

// ComputeTotal returns the sum of all item subtotals, rounded to cents.
func (o *Order) ComputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total.Round(2)
}

// OrderItem is one purchased line. UnitPriceAtPurchase is a frozen copy of
// the book's price at order time and is never recomputed from the catalog.
type OrderItem struct {
	ID                  string          `json:"id"`
	OrderID             string          `json:"order_id"`
	BookID              string          `json:"book_id"`
	Quantity            int             `json:"quantity"`
	UnitPriceAtPurchase decimal.Decimal `json:"unit_price_at_purchase"`

	// BookTitle and BookImageURL are denormalized from the catalog for
	// display; they are not stored on the item row.
	BookTitle    string `json:"book_title,omitempty"`
	BookImageURL string `json:"book_image_url,omitempty"`
}

// Subtotal returns quantity times the frozen unit price.
func (i *OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPriceAtPurchase.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
