package store

import (
	"github.com/bookhavenapp/bookhaven-server/internal/domain"
)

// BookSort determines catalog listing order.
type BookSort string

// Supported catalog sort orders.
const (
	SortTitle     BookSort = "title"
	SortPriceAsc  BookSort = "price_asc"
	SortPriceDesc BookSort = "price_desc"
	SortNewest    BookSort = "newest"
)

// ListBooksOptions filters and orders a catalog listing.
type ListBooksOptions struct {
	GenreSlug string
	Sort      BookSort
	Offset    int
	Limit     int
}

// Genre pairs a display label with its slug for catalog filters.
type Genre struct {
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

// CheckoutParams describes an order about to be placed. Exactly one of
// UserID and GuestEmail must be set.
type CheckoutParams struct {
	UserID         string
	GuestEmail     string
	Lines          []domain.CartLine
	Shipping       domain.Address
	IdempotencyKey string
}

// AdjustedLine records a cart line that checkout changed during stock
// validation, so the caller can tell the customer what actually shipped.
type AdjustedLine struct {
	BookID    string `json:"book_id"`
	Title     string `json:"title"`
	Requested int    `json:"requested"`
	Fulfilled int    `json:"fulfilled"`
}

// CheckoutResult is the outcome of a committed checkout.
type CheckoutResult struct {
	Order *domain.Order
	// Adjusted lists lines reduced or dropped during stock validation.
	Adjusted []AdjustedLine
	// Replayed is true when the idempotency key matched an existing order
	// and no new order was created.
	Replayed bool
}
