package domain

import "github.com/shopspring/decimal"

// Book represents a catalog entry available for purchase.
// Books are soft-deleted so historical order items keep a valid reference.
type Book struct {
	Record
	Title         string          `json:"title"`
	Author        string          `json:"author"`
	Genre         string          `json:"genre,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	Description   string          `json:"description,omitempty"`
	ImageURL      string          `json:"image_url,omitempty"`

	// AverageRating and ReviewCount are denormalized from reviews when the
	// book is loaded for display. They are never written back.
	AverageRating float64 `json:"average_rating,omitempty"`
	ReviewCount   int     `json:"review_count,omitempty"`
}

// InStock returns true if at least one copy is available.
func (b *Book) InStock() bool {
	return b.StockQuantity > 0
}

// CapQuantity reduces a requested quantity to what stock can satisfy.
// Never returns a negative value.
func (b *Book) CapQuantity(requested int) int {
	if requested < 0 {
		return 0
	}
	if requested > b.StockQuantity {
		return b.StockQuantity
	}
	return requested
}
