package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bookhavenapp/bookhaven-server/internal/domain"
	domainerrors "github.com/bookhavenapp/bookhaven-server/internal/errors"
	"github.com/bookhavenapp/bookhaven-server/internal/mail"
	"github.com/bookhavenapp/bookhaven-server/internal/store"
	"github.com/bookhavenapp/bookhaven-server/internal/validation"
)

// OrderService handles checkout, order history, and order management.
type OrderService struct {
	store    store.Store
	cart     *CartService
	mailer   mail.Mailer
	validate *validation.Validator
	logger   *slog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	store store.Store,
	cart *CartService,
	mailer mail.Mailer,
	validate *validation.Validator,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		store:    store,
		cart:     cart,
		mailer:   mailer,
		validate: validate,
		logger:   logger,
	}
}

// CheckoutRequest contains the shipping and contact details for an order.
// Email is required for guest checkout and ignored for signed-in users.
type CheckoutRequest struct {
	Email string `json:"email" validate:"omitempty,email"`

	ShipLine1 string `json:"ship_line1" validate:"required,max=200"`
	ShipLine2 string `json:"ship_line2" validate:"max=200"`
	ShipCity  string `json:"ship_city" validate:"required,max=100"`
	ShipState string `json:"ship_state" validate:"required,max=100"`
	ShipZip   string `json:"ship_zip" validate:"required,max=20"`

	// IdempotencyKey lets a retried submission return the order the first
	// attempt created instead of placing a duplicate.
	IdempotencyKey string `json:"idempotency_key" validate:"omitempty,max=100"`
}

// CheckoutResponse reports the placed order and any quantity adjustments
// made during stock validation.
type CheckoutResponse struct {
	Order    *domain.Order        `json:"order"`
	Adjusted []store.AdjustedLine `json:"adjusted,omitempty"`
	Replayed bool                 `json:"replayed,omitempty"`
}

// Checkout places an order from the cart. Stock is re-validated inside
// the order transaction; quantities may be reduced and sold-out lines
// dropped, which is reported in the response rather than failing the
// purchase. On success the cart is cleared and a confirmation emailed.
func (s *OrderService) Checkout(ctx context.Context, ref CartRef, req CheckoutRequest) (*CheckoutResponse, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	email := req.Email
	if ref.UserID != "" {
		user, err := s.store.GetUser(ctx, ref.UserID)
		if err != nil {
			return nil, fmt.Errorf("get user: %w", err)
		}
		email = user.Email
	} else if email == "" {
		return nil, domainerrors.Validation("email is required for guest checkout")
	}

	lines, err := s.cart.CartLines(ctx, ref)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, domainerrors.EmptyCart("your cart is empty")
	}

	params := store.CheckoutParams{
		UserID: ref.UserID,
		Lines:  lines,
		Shipping: domain.Address{
			Line1: req.ShipLine1,
			Line2: req.ShipLine2,
			City:  req.ShipCity,
			State: req.ShipState,
			Zip:   req.ShipZip,
		},
		IdempotencyKey: req.IdempotencyKey,
	}
	if ref.UserID == "" {
		params.GuestEmail = email
	}

	result, err := s.store.Checkout(ctx, params)
	if err != nil {
		if errors.Is(err, store.ErrEmptyCart) {
			return nil, domainerrors.EmptyCart("nothing in your cart is still available")
		}
		return nil, err
	}

	order, err := s.store.GetOrderWithItems(ctx, result.Order.ID)
	if err != nil {
		return nil, fmt.Errorf("load placed order: %w", err)
	}

	if result.Replayed {
		s.logger.Info("Checkout replayed",
			"order_id", order.ID,
			"idempotency_key", req.IdempotencyKey,
		)
		return &CheckoutResponse{Order: order, Replayed: true}, nil
	}

	if err := s.cart.ClearCart(ctx, ref); err != nil {
		// The order is placed; a stale cart is recoverable.
		s.logger.Warn("Failed to clear cart after checkout",
			"order_id", order.ID,
			"error", err,
		)
	}

	// Best-effort; the response must not wait on a mail server.
	go s.sendConfirmation(email, order)

	s.logger.Info("Order placed",
		"order_id", order.ID,
		"total", order.TotalAmount.StringFixed(2),
		"items", len(order.Items),
		"guest", order.IsGuest(),
	)

	return &CheckoutResponse{Order: order, Adjusted: result.Adjusted}, nil
}

// confirmationTimeout bounds the detached confirmation send.
const confirmationTimeout = 30 * time.Second

func (s *OrderService) sendConfirmation(email string, order *domain.Order) {
	ctx, cancel := context.WithTimeout(context.Background(), confirmationTimeout)
	defer cancel()

	if err := s.mailer.SendOrderConfirmation(ctx, email, order); err != nil {
		s.logger.Warn("Failed to send order confirmation",
			"order_id", order.ID,
			"error", err,
		)
	}
}

// GetOrder returns one of the user's orders with its items.
// Orders belonging to anyone else read as not found.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	order, err := s.store.GetOrderWithItems(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("order not found")
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.UserID != userID {
		return nil, domainerrors.NotFound("order not found")
	}
	return order, nil
}

// ListOrders returns the user's order history, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	orders, err := s.store.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// GuestLookupRequest identifies a guest order.
type GuestLookupRequest struct {
	OrderID string `json:"order_id" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
}

// GuestLookup finds a guest order by its number and the email used at
// checkout. Both must match; a wrong email reads as not found.
func (s *OrderService) GuestLookup(ctx context.Context, req GuestLookupRequest) (*domain.Order, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	order, err := s.store.GetGuestOrder(ctx, req.OrderID, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("no order matches that number and email")
		}
		return nil, fmt.Errorf("guest lookup: %w", err)
	}

	order, err = s.store.GetOrderWithItems(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("load guest order: %w", err)
	}
	return order, nil
}

// ListAllOrders returns every order, newest first. Admin only.
func (s *OrderService) ListAllOrders(ctx context.Context) ([]*domain.Order, error) {
	orders, err := s.store.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all orders: %w", err)
	}
	return orders, nil
}

// UpdateOrderStatus moves an order through fulfillment. Admin only.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	if !domain.ValidOrderStatus(status) {
		return nil, domainerrors.Validationf("unknown order status %q", status)
	}

	if err := s.store.UpdateOrderStatus(ctx, orderID, status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("order not found")
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	s.logger.Info("Order status updated", "order_id", orderID, "status", status)

	return s.store.GetOrderWithItems(ctx, orderID)
}
