package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookhavenapp/bookhaven-server/internal/domain"
	domainerrors "github.com/bookhavenapp/bookhaven-server/internal/errors"
	"github.com/bookhavenapp/bookhaven-server/internal/validation"
)

func TestCheckout_Guest(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	ref := CartRef{SessionID: "cart-guest"}

	book := e.seedBook(t, "Bought Book", "10.00", 5)
	_, err := e.cart.AddItem(ctx, ref, book.ID, 2)
	require.NoError(t, err)

	req := validShipping()
	req.Email = "guest@example.com"
	resp, err := e.orders.Checkout(ctx, ref, req)
	require.NoError(t, err)

	assert.Equal(t, "20.00", resp.Order.TotalAmount.StringFixed(2))
	assert.Equal(t, "guest@example.com", resp.Order.GuestEmail)
	assert.True(t, resp.Order.IsGuest())
	assert.Empty(t, resp.Adjusted)
	require.Len(t, resp.Order.Items, 1)
	assert.Equal(t, "Bought Book", resp.Order.Items[0].BookTitle)

	// Stock is decremented and the cart cleared.
	got, err := e.store.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.StockQuantity)

	view, err := e.cart.GetCart(ctx, ref)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
}

// captureMailer records confirmation recipients for assertions.
type captureMailer struct {
	sent chan string
}

func (m *captureMailer) SendOrderConfirmation(_ context.Context, to string, _ *domain.Order) error {
	m.sent <- to
	return nil
}

func TestCheckout_SendsConfirmationOffRequestPath(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	ref := CartRef{SessionID: "cart-guest"}

	mailer := &captureMailer{sent: make(chan string, 1)}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	orders := NewOrderService(e.store, e.cart, mailer, validation.New(), logger)

	book := e.seedBook(t, "Confirmed Book", "10.00", 5)
	_, err := e.cart.AddItem(ctx, ref, book.ID, 1)
	require.NoError(t, err)

	req := validShipping()
	req.Email = "guest@example.com"
	_, err = orders.Checkout(ctx, ref, req)
	require.NoError(t, err)

	select {
	case to := <-mailer.sent:
		assert.Equal(t, "guest@example.com", to)
	case <-time.After(2 * time.Second):
		t.Fatal("confirmation email was never dispatched")
	}
}

func TestCheckout_GuestRequiresEmail(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	ref := CartRef{SessionID: "cart-guest"}

	book := e.seedBook(t, "Bought Book", "10.00", 5)
	_, err := e.cart.AddItem(ctx, ref, book.ID, 1)
	require.NoError(t, err)

	_, err = e.orders.Checkout(ctx, ref, validShipping())
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation), "got %v", err)
}

func TestCheckout_SignedInUsesAccountEmail(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	user := e.seedUser(t, "reader@example.com")
	ref := CartRef{UserID: user.ID}

	book := e.seedBook(t, "Bought Book", "10.00", 5)
	_, err := e.cart.AddItem(ctx, ref, book.ID, 1)
	require.NoError(t, err)

	resp, err := e.orders.Checkout(ctx, ref, validShipping())
	require.NoError(t, err)
	assert.Equal(t, user.ID, resp.Order.UserID)
	assert.Empty(t, resp.Order.GuestEmail)
	assert.False(t, resp.Order.IsGuest())
}

func TestCheckout_EmptyCart(t *testing.T) {
	e := newTestEnv(t)

	req := validShipping()
	req.Email = "guest@example.com"
	_, err := e.orders.Checkout(context.Background(), CartRef{SessionID: "cart-empty"}, req)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrEmptyCart), "got %v", err)
}

func TestCheckout_ReportsAdjustedLines(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	ref := CartRef{SessionID: "cart-guest"}

	book := e.seedBook(t, "Scarce Book", "10.00", 5)
	_, err := e.cart.AddItem(ctx, ref, book.ID, 5)
	require.NoError(t, err)

	// Stock shrinks between carting and checkout.
	book.StockQuantity = 2
	book.Touch()
	require.NoError(t, e.store.UpdateBook(ctx, book))

	req := validShipping()
	req.Email = "guest@example.com"
	resp, err := e.orders.Checkout(ctx, ref, req)
	require.NoError(t, err)

	require.Len(t, resp.Adjusted, 1)
	assert.Equal(t, 5, resp.Adjusted[0].Requested)
	assert.Equal(t, 2, resp.Adjusted[0].Fulfilled)
	assert.Equal(t, "20.00", resp.Order.TotalAmount.StringFixed(2))
}

func TestCheckout_IdempotentReplay(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	ref := CartRef{SessionID: "cart-guest"}

	book := e.seedBook(t, "Bought Once", "10.00", 5)
	_, err := e.cart.AddItem(ctx, ref, book.ID, 1)
	require.NoError(t, err)

	req := validShipping()
	req.Email = "guest@example.com"
	req.IdempotencyKey = uuid.NewString()

	first, err := e.orders.Checkout(ctx, ref, req)
	require.NoError(t, err)
	require.False(t, first.Replayed)

	// The retry finds the original order; the cart was already cleared so
	// load the lines again before the replayed call.
	_, err = e.cart.AddItem(ctx, ref, book.ID, 1)
	require.NoError(t, err)

	second, err := e.orders.Checkout(ctx, ref, req)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Order.ID, second.Order.ID)

	// Stock only moved once.
	got, err := e.store.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.StockQuantity)
}

func TestGetOrder_OwnershipEnforced(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	owner := e.seedUser(t, "owner@example.com")
	other := e.seedUser(t, "other@example.com")

	book := e.seedBook(t, "Private Purchase", "10.00", 5)
	_, err := e.cart.AddItem(ctx, CartRef{UserID: owner.ID}, book.ID, 1)
	require.NoError(t, err)

	resp, err := e.orders.Checkout(ctx, CartRef{UserID: owner.ID}, validShipping())
	require.NoError(t, err)

	got, err := e.orders.GetOrder(ctx, owner.ID, resp.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.Order.ID, got.ID)

	_, err = e.orders.GetOrder(ctx, other.ID, resp.Order.ID)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound), "got %v", err)
}

func TestGuestLookup(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	ref := CartRef{SessionID: "cart-guest"}

	book := e.seedBook(t, "Guest Purchase", "10.00", 5)
	_, err := e.cart.AddItem(ctx, ref, book.ID, 1)
	require.NoError(t, err)

	req := validShipping()
	req.Email = "guest@example.com"
	resp, err := e.orders.Checkout(ctx, ref, req)
	require.NoError(t, err)

	found, err := e.orders.GuestLookup(ctx, GuestLookupRequest{
		OrderID: resp.Order.ID,
		Email:   "guest@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, resp.Order.ID, found.ID)
	assert.NotEmpty(t, found.Items)

	_, err = e.orders.GuestLookup(ctx, GuestLookupRequest{
		OrderID: resp.Order.ID,
		Email:   "snoop@example.com",
	})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound), "got %v", err)
}

func TestListOrders(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	user := e.seedUser(t, "reader@example.com")
	ref := CartRef{UserID: user.ID}
	book := e.seedBook(t, "Repeat Purchase", "10.00", 10)

	for range 2 {
		_, err := e.cart.AddItem(ctx, ref, book.ID, 1)
		require.NoError(t, err)
		_, err = e.orders.Checkout(ctx, ref, validShipping())
		require.NoError(t, err)
	}

	orders, err := e.orders.ListOrders(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestUpdateOrderStatus(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	ref := CartRef{SessionID: "cart-guest"}

	book := e.seedBook(t, "Shipped Book", "10.00", 5)
	_, err := e.cart.AddItem(ctx, ref, book.ID, 1)
	require.NoError(t, err)

	req := validShipping()
	req.Email = "guest@example.com"
	resp, err := e.orders.Checkout(ctx, ref, req)
	require.NoError(t, err)

	updated, err := e.orders.UpdateOrderStatus(ctx, resp.Order.ID, domain.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusShipped, updated.Status)

	_, err = e.orders.UpdateOrderStatus(ctx, resp.Order.ID, domain.OrderStatus("Teleported"))
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation), "got %v", err)
}
