package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/bookhavenapp/bookhaven-server/internal/domain"
	domainerrors "github.com/bookhavenapp/bookhaven-server/internal/errors"
	"github.com/bookhavenapp/bookhaven-server/internal/store"
	"github.com/bookhavenapp/bookhaven-server/internal/store/carts"
)

// maxLineQuantity caps how many copies of one book a single cart can hold.
const maxLineQuantity = 99

// CartRef identifies whose cart an operation targets. UserID wins when
// both are set; SessionID is the guest cart cookie value.
type CartRef struct {
	UserID    string
	SessionID string
}

func (r CartRef) valid() bool {
	return r.UserID != "" || r.SessionID != ""
}

// CartService manages shopping carts for guests and signed-in users.
type CartService struct {
	store  store.Store
	carts  *carts.Store
	logger *slog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(store store.Store, carts *carts.Store, logger *slog.Logger) *CartService {
	return &CartService{
		store:  store,
		carts:  carts,
		logger: logger,
	}
}

// CartLineView is one cart line joined with its catalog entry.
type CartLineView struct {
	Book     *domain.Book    `json:"book"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`

	// StockShort is true when the line was capped to current stock, so
	// the storefront can show a quantity-reduced notice.
	StockShort bool `json:"stock_short,omitempty"`
}

// CartView is a cart resolved against the catalog for display.
type CartView struct {
	Lines     []CartLineView  `json:"lines"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

// GetCart returns the cart joined with current catalog data. Lines whose
// books have left the catalog are dropped and the trimmed cart saved back.
func (s *CartService) GetCart(ctx context.Context, ref CartRef) (*CartView, error) {
	cart, err := s.loadCart(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, cart)
}

// AddItemResult is the cart after an add, plus how much of the request
// actually landed once the stock cap applied.
type AddItemResult struct {
	*CartView
	RequestedQuantity int `json:"requested_quantity"`
	AddedQuantity     int `json:"added_quantity"`
}

// AddItem adds copies of a book to the cart, capping at available stock.
func (s *CartService) AddItem(ctx context.Context, ref CartRef, bookID string, quantity int) (*AddItemResult, error) {
	if quantity < 1 {
		return nil, domainerrors.Validation("quantity must be at least 1")
	}

	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("book not found")
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	if !book.InStock() {
		return nil, domainerrors.OutOfStockf("%q is out of stock", book.Title)
	}

	cart, err := s.loadCart(ctx, ref)
	if err != nil {
		return nil, err
	}

	before := cart.Quantity(bookID)
	requested := before + quantity
	if requested > maxLineQuantity {
		requested = maxLineQuantity
	}
	cart.SetLine(bookID, book.CapQuantity(requested))

	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	view, err := s.buildView(ctx, cart)
	if err != nil {
		return nil, err
	}
	return &AddItemResult{
		CartView:          view,
		RequestedQuantity: quantity,
		AddedQuantity:     cart.Quantity(bookID) - before,
	}, nil
}

// UpdateItem sets the quantity for a cart line. Zero removes the line.
func (s *CartService) UpdateItem(ctx context.Context, ref CartRef, bookID string, quantity int) (*CartView, error) {
	if quantity < 0 {
		return nil, domainerrors.Validation("quantity cannot be negative")
	}
	if quantity > maxLineQuantity {
		quantity = maxLineQuantity
	}

	cart, err := s.loadCart(ctx, ref)
	if err != nil {
		return nil, err
	}

	if quantity > 0 {
		book, err := s.store.GetBook(ctx, bookID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, domainerrors.NotFound("book not found")
			}
			return nil, fmt.Errorf("get book: %w", err)
		}
		quantity = book.CapQuantity(quantity)
	}

	cart.SetLine(bookID, quantity)

	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return s.buildView(ctx, cart)
}

// RemoveItem removes a book from the cart.
func (s *CartService) RemoveItem(ctx context.Context, ref CartRef, bookID string) (*CartView, error) {
	return s.UpdateItem(ctx, ref, bookID, 0)
}

// ClearCart empties the cart.
func (s *CartService) ClearCart(ctx context.Context, ref CartRef) error {
	if !ref.valid() {
		return domainerrors.Validation("no cart to clear")
	}
	cart := s.emptyCart(ref)
	if err := s.carts.Delete(ctx, cart); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}

// CartLines returns the raw cart lines for checkout.
func (s *CartService) CartLines(ctx context.Context, ref CartRef) ([]domain.CartLine, error) {
	cart, err := s.loadCart(ctx, ref)
	if err != nil {
		return nil, err
	}
	return cart.Lines, nil
}

func (s *CartService) emptyCart(ref CartRef) *domain.Cart {
	if ref.UserID != "" {
		return &domain.Cart{ID: ref.UserID, UserID: ref.UserID}
	}
	return &domain.Cart{ID: ref.SessionID}
}

func (s *CartService) loadCart(ctx context.Context, ref CartRef) (*domain.Cart, error) {
	if !ref.valid() {
		return nil, domainerrors.Validation("no cart identifier")
	}

	var (
		cart *domain.Cart
		err  error
	)
	if ref.UserID != "" {
		cart, err = s.carts.GetUser(ctx, ref.UserID)
	} else {
		cart, err = s.carts.GetSession(ctx, ref.SessionID)
	}
	if errors.Is(err, store.ErrNotFound) {
		return s.emptyCart(ref), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return cart, nil
}

// buildView joins cart lines with the catalog. Quantities are capped to
// current stock, lines capped to zero or whose books have vanished are
// removed, and any adjustment is saved back so it doesn't resurface.
func (s *CartService) buildView(ctx context.Context, cart *domain.Cart) (*CartView, error) {
	view := &CartView{Total: decimal.Zero}
	if cart.IsEmpty() {
		return view, nil
	}

	ids := make([]string, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		ids = append(ids, line.BookID)
	}

	books, err := s.store.GetBooks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve cart books: %w", err)
	}

	adjusted := false
	for _, line := range cart.Lines {
		book, ok := books[line.BookID]
		if !ok {
			adjusted = true
			continue
		}
		quantity := line.Quantity
		capped := false
		if quantity > book.StockQuantity {
			quantity = book.StockQuantity
			capped = true
			adjusted = true
		}
		if quantity == 0 {
			continue
		}
		subtotal := book.Price.Mul(decimal.NewFromInt(int64(quantity)))
		view.Lines = append(view.Lines, CartLineView{
			Book:       book,
			Quantity:   quantity,
			Subtotal:   subtotal,
			StockShort: capped,
		})
		view.Total = view.Total.Add(subtotal)
		view.ItemCount += quantity
	}
	view.Total = view.Total.Round(2)

	if adjusted {
		kept := make([]domain.CartLine, 0, len(view.Lines))
		for _, lv := range view.Lines {
			kept = append(kept, domain.CartLine{BookID: lv.Book.ID, Quantity: lv.Quantity})
		}
		cart.Lines = kept
		if err := s.carts.Save(ctx, cart); err != nil {
			s.logger.Warn("Failed to save stock-adjusted cart",
				"cart_id", cart.ID,
				"error", err,
			)
		}
	}

	return view, nil
}
