package sqlite

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bookhavenapp/bookhaven-server/internal/domain"
	"github.com/bookhavenapp/bookhaven-server/internal/store"
)

func TestCheckout_HappyPath(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	book1 := seedBook(t, s, "First Book", "10.00", 5)
	book2 := seedBook(t, s, "Second Book", "5.50", 5)
	user := seedUser(t, s, "reader@example.com")

	result, err := s.Checkout(ctx, store.CheckoutParams{
		UserID: user.ID,
		Lines: []domain.CartLine{
			{BookID: book1.ID, Quantity: 2},
			{BookID: book2.ID, Quantity: 1},
		},
		Shipping: testAddress(),
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	order := result.Order
	if order.Status != domain.OrderStatusPendingPayment {
		t.Errorf("expected Pending Payment, got %q", order.Status)
	}
	if want := decimal.RequireFromString("25.50"); !order.TotalAmount.Equal(want) {
		t.Errorf("expected total %s, got %s", want, order.TotalAmount)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(order.Items))
	}
	if len(result.Adjusted) != 0 {
		t.Errorf("expected no adjustments, got %v", result.Adjusted)
	}

	// Stock decremented.
	got1, _ := s.GetBook(ctx, book1.ID)
	got2, _ := s.GetBook(ctx, book2.ID)
	if got1.StockQuantity != 3 || got2.StockQuantity != 4 {
		t.Errorf("expected stock 3/4, got %d/%d", got1.StockQuantity, got2.StockQuantity)
	}

	// Order readable with items and frozen prices.
	loaded, err := s.GetOrderWithItems(ctx, order.ID)
	if err != nil {
		t.Fatalf("get order with items: %v", err)
	}
	if len(loaded.Items) != 2 {
		t.Fatalf("expected 2 loaded items, got %d", len(loaded.Items))
	}
	for _, item := range loaded.Items {
		if item.BookTitle == "" {
			t.Error("expected book title joined onto item")
		}
	}
}

func TestCheckout_PriceFrozenAtPurchase(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	book := seedBook(t, s, "Volatile Pricing", "10.00", 5)
	user := seedUser(t, s, "reader@example.com")

	result, err := s.Checkout(ctx, store.CheckoutParams{
		UserID:   user.ID,
		Lines:    []domain.CartLine{{BookID: book.ID, Quantity: 1}},
		Shipping: testAddress(),
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	// Reprice the book after purchase.
	book.Price = decimal.RequireFromString("99.99")
	book.Touch()
	if err := s.UpdateBook(ctx, book); err != nil {
		t.Fatalf("update book: %v", err)
	}

	loaded, err := s.GetOrderWithItems(ctx, result.Order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if want := decimal.RequireFromString("10.00"); !loaded.Items[0].UnitPriceAtPurchase.Equal(want) {
		t.Errorf("expected frozen price %s, got %s", want, loaded.Items[0].UnitPriceAtPurchase)
	}
	if want := decimal.RequireFromString("10.00"); !loaded.TotalAmount.Equal(want) {
		t.Errorf("expected total %s, got %s", want, loaded.TotalAmount)
	}
}

func TestCheckout_CapsQuantityToStock(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	book := seedBook(t, s, "Nearly Gone", "8.00", 2)
	user := seedUser(t, s, "reader@example.com")

	result, err := s.Checkout(ctx, store.CheckoutParams{
		UserID:   user.ID,
		Lines:    []domain.CartLine{{BookID: book.ID, Quantity: 5}},
		Shipping: testAddress(),
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if len(result.Adjusted) != 1 {
		t.Fatalf("expected 1 adjustment, got %d", len(result.Adjusted))
	}
	adj := result.Adjusted[0]
	if adj.Requested != 5 || adj.Fulfilled != 2 {
		t.Errorf("expected 5 requested / 2 fulfilled, got %d/%d", adj.Requested, adj.Fulfilled)
	}
	if want := decimal.RequireFromString("16.00"); !result.Order.TotalAmount.Equal(want) {
		t.Errorf("expected total %s, got %s", want, result.Order.TotalAmount)
	}

	got, _ := s.GetBook(ctx, book.ID)
	if got.StockQuantity != 0 {
		t.Errorf("expected stock 0, got %d", got.StockQuantity)
	}
}

func TestCheckout_DropsVanishedAndExhaustedLines(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inStock := seedBook(t, s, "Still Here", "7.00", 3)
	soldOut := seedBook(t, s, "Sold Out", "7.00", 0)
	removed := seedBook(t, s, "Removed", "7.00", 3)
	if err := s.DeleteBook(ctx, removed.ID); err != nil {
		t.Fatalf("delete book: %v", err)
	}
	user := seedUser(t, s, "reader@example.com")

	result, err := s.Checkout(ctx, store.CheckoutParams{
		UserID: user.ID,
		Lines: []domain.CartLine{
			{BookID: inStock.ID, Quantity: 1},
			{BookID: soldOut.ID, Quantity: 2},
			{BookID: removed.ID, Quantity: 1},
		},
		Shipping: testAddress(),
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if len(result.Order.Items) != 1 {
		t.Fatalf("expected 1 surviving item, got %d", len(result.Order.Items))
	}
	if result.Order.Items[0].BookID != inStock.ID {
		t.Errorf("expected surviving item %s, got %s", inStock.ID, result.Order.Items[0].BookID)
	}
	if len(result.Adjusted) != 2 {
		t.Errorf("expected 2 adjustments, got %d", len(result.Adjusted))
	}
}

func TestCheckout_EmptyCartWhenNothingSurvives(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	soldOut := seedBook(t, s, "Sold Out", "7.00", 0)
	user := seedUser(t, s, "reader@example.com")

	_, err := s.Checkout(ctx, store.CheckoutParams{
		UserID:   user.ID,
		Lines:    []domain.CartLine{{BookID: soldOut.ID, Quantity: 1}},
		Shipping: testAddress(),
	})
	if err != store.ErrEmptyCart {
		t.Errorf("expected ErrEmptyCart, got %v", err)
	}

	_, err = s.Checkout(ctx, store.CheckoutParams{
		UserID:   user.ID,
		Lines:    nil,
		Shipping: testAddress(),
	})
	if err != store.ErrEmptyCart {
		t.Errorf("expected ErrEmptyCart for no lines, got %v", err)
	}

	// Nothing was written.
	orders, err := s.ListOrders(ctx)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(orders) != 0 {
		t.Errorf("expected no orders, got %d", len(orders))
	}
}

func TestCheckout_GuestOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	book := seedBook(t, s, "Guest Pick", "12.00", 2)

	result, err := s.Checkout(ctx, store.CheckoutParams{
		GuestEmail: "guest@example.com",
		Lines:      []domain.CartLine{{BookID: book.ID, Quantity: 1}},
		Shipping:   testAddress(),
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if !result.Order.IsGuest() {
		t.Error("expected guest order")
	}

	// Lookup requires the matching email.
	if _, err := s.GetGuestOrder(ctx, result.Order.ID, "guest@example.com"); err != nil {
		t.Errorf("expected guest lookup to succeed, got %v", err)
	}
	if _, err := s.GetGuestOrder(ctx, result.Order.ID, "other@example.com"); err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound for wrong email, got %v", err)
	}
}

func TestCheckout_IdempotencyReplay(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	book := seedBook(t, s, "Once Only", "10.00", 5)
	user := seedUser(t, s, "reader@example.com")
	key := uuid.NewString()

	params := store.CheckoutParams{
		UserID:         user.ID,
		Lines:          []domain.CartLine{{BookID: book.ID, Quantity: 1}},
		Shipping:       testAddress(),
		IdempotencyKey: key,
	}

	first, err := s.Checkout(ctx, params)
	if err != nil {
		t.Fatalf("first checkout: %v", err)
	}
	if first.Replayed {
		t.Error("first checkout should not be a replay")
	}

	second, err := s.Checkout(ctx, params)
	if err != nil {
		t.Fatalf("second checkout: %v", err)
	}
	if !second.Replayed {
		t.Error("second checkout should be a replay")
	}
	if second.Order.ID != first.Order.ID {
		t.Errorf("expected same order, got %s and %s", first.Order.ID, second.Order.ID)
	}

	// Stock decremented exactly once.
	got, _ := s.GetBook(ctx, book.ID)
	if got.StockQuantity != 4 {
		t.Errorf("expected stock 4, got %d", got.StockQuantity)
	}
}

func TestCheckout_ConcurrentNeverOversells(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	book := seedBook(t, s, "Last Two Copies", "10.00", 2)
	alice := seedUser(t, s, "alice@example.com")
	bob := seedUser(t, s, "bob@example.com")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, user := range []*domain.User{alice, bob} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.Checkout(ctx, store.CheckoutParams{
				UserID:   user.ID,
				Lines:    []domain.CartLine{{BookID: book.ID, Quantity: 2}},
				Shipping: testAddress(),
			})
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		// The loser either hit the guarded decrement (out of stock) or saw
		// zero stock during validation (empty cart). Both are acceptable.
		var storeErr *store.Error
		if !errors.As(err, &storeErr) {
			t.Errorf("unexpected checkout error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("expected exactly 1 successful checkout, got %d", succeeded)
	}

	// Stock never goes negative.
	got, err := s.GetBook(ctx, book.ID)
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	if got.StockQuantity != 0 {
		t.Errorf("expected final stock 0, got %d", got.StockQuantity)
	}

	orders, err := s.ListOrders(ctx)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(orders) != 1 {
		t.Errorf("expected exactly 1 order, got %d", len(orders))
	}
}

func TestListOrdersByUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	book := seedBook(t, s, "Repeat Purchase", "10.00", 10)
	user := seedUser(t, s, "reader@example.com")
	other := seedUser(t, s, "other@example.com")

	for _, u := range []*domain.User{user, user, other} {
		_, err := s.Checkout(ctx, store.CheckoutParams{
			UserID:   u.ID,
			Lines:    []domain.CartLine{{BookID: book.ID, Quantity: 1}},
			Shipping: testAddress(),
		})
		if err != nil {
			t.Fatalf("checkout: %v", err)
		}
	}

	orders, err := s.ListOrdersByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(orders) != 2 {
		t.Errorf("expected 2 orders for user, got %d", len(orders))
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	book := seedBook(t, s, "Ship Me", "10.00", 1)
	user := seedUser(t, s, "reader@example.com")

	result, err := s.Checkout(ctx, store.CheckoutParams{
		UserID:   user.ID,
		Lines:    []domain.CartLine{{BookID: book.ID, Quantity: 1}},
		Shipping: testAddress(),
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if err := s.UpdateOrderStatus(ctx, result.Order.ID, domain.OrderStatusShipped); err != nil {
		t.Fatalf("update status: %v", err)
	}

	got, err := s.GetOrder(ctx, result.Order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.Status != domain.OrderStatusShipped {
		t.Errorf("expected Shipped, got %q", got.Status)
	}

	if err := s.UpdateOrderStatus(ctx, "ord-missing", domain.OrderStatusShipped); err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
