package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bookhavenapp/bookhaven-server/internal/domain"
	"github.com/bookhavenapp/bookhaven-server/internal/id"
	"github.com/bookhavenapp/bookhaven-server/internal/store"
)

// orderColumns is the ordered list of columns selected in order queries.
// Must match the scan order in scanOrder.
const orderColumns = `id, created_at, updated_at, user_id, guest_email, status, total_amount,
	ship_line1, ship_line2, ship_city, ship_state, ship_zip, idempotency_key`

// scanOrder scans a sql.Row (or sql.Rows via its Scan method) into a domain.Order.
func scanOrder(scanner interface{ Scan(dest ...any) error }) (*domain.Order, error) {
	var o domain.Order

	var (
		createdAt      string
		updatedAt      string
		userID         sql.NullString
		guestEmail     sql.NullString
		status         string
		totalAmount    string
		shipLine2      sql.NullString
		idempotencyKey sql.NullString
	)

	err := scanner.Scan(
		&o.ID,
		&createdAt,
		&updatedAt,
		&userID,
		&guestEmail,
		&status,
		&totalAmount,
		&o.Shipping.Line1,
		&shipLine2,
		&o.Shipping.City,
		&o.Shipping.State,
		&o.Shipping.Zip,
		&idempotencyKey,
	)
	if err != nil {
		return nil, err
	}

	o.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	o.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	o.TotalAmount, err = decimal.NewFromString(totalAmount)
	if err != nil {
		return nil, fmt.Errorf("parse total for order %s: %w", o.ID, err)
	}

	if userID.Valid {
		o.UserID = userID.String
	}
	if guestEmail.Valid {
		o.GuestEmail = guestEmail.String
	}
	if shipLine2.Valid {
		o.Shipping.Line2 = shipLine2.String
	}
	if idempotencyKey.Valid {
		o.IdempotencyKey = idempotencyKey.String
	}

	o.Status = domain.OrderStatus(status)
	return &o, nil
}

// Checkout places an order atomically. In one transaction it re-reads
// stock for every cart line, caps quantities to what is available, drops
// lines for vanished or exhausted books, freezes unit prices, inserts the
// order with its items, and decrements stock with a guard so a concurrent
// checkout can never drive a quantity negative.
//
// Returns store.ErrEmptyCart when no line survives validation, and
// store.ErrOutOfStock when a concurrent checkout claimed the copies
// between validation and commit.
func (s *Store) Checkout(ctx context.Context, params store.CheckoutParams) (*store.CheckoutResult, error) {
	// Idempotent replay: the same key returns the order it already created.
	if params.IdempotencyKey != "" {
		existing, err := s.GetOrderByIdempotencyKey(ctx, params.IdempotencyKey)
		if err == nil {
			return &store.CheckoutResult{Order: existing, Replayed: true}, nil
		}
		if err != store.ErrNotFound {
			return nil, err
		}
	}

	if len(params.Lines) == 0 {
		return nil, store.ErrEmptyCart
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin checkout tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op

	type validatedLine struct {
		bookID    string
		title     string
		imageURL  string
		quantity  int
		unitPrice decimal.Decimal
	}

	var (
		lines    []validatedLine
		adjusted []store.AdjustedLine
	)

	// Validate every line against current stock inside the transaction.
	for _, line := range params.Lines {
		if line.Quantity < 1 {
			continue
		}

		var (
			title    string
			imageURL sql.NullString
			priceStr string
			stock    int
		)
		err := tx.QueryRowContext(ctx, `
			SELECT title, image_url, price, stock_quantity FROM books
			WHERE id = ? AND deleted_at IS NULL`, line.BookID).
			Scan(&title, &imageURL, &priceStr, &stock)
		if err == sql.ErrNoRows {
			// Book removed from the catalog since it was carted.
			adjusted = append(adjusted, store.AdjustedLine{
				BookID:    line.BookID,
				Requested: line.Quantity,
			})
			continue
		}
		if err != nil {
			return nil, err
		}

		quantity := line.Quantity
		if quantity > stock {
			quantity = stock
			adjusted = append(adjusted, store.AdjustedLine{
				BookID:    line.BookID,
				Title:     title,
				Requested: line.Quantity,
				Fulfilled: quantity,
			})
		}
		if quantity == 0 {
			continue
		}

		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			return nil, fmt.Errorf("parse price for book %s: %w", line.BookID, err)
		}

		lines = append(lines, validatedLine{
			bookID:    line.BookID,
			title:     title,
			imageURL:  imageURL.String,
			quantity:  quantity,
			unitPrice: price,
		})
	}

	if len(lines) == 0 {
		return nil, store.ErrEmptyCart
	}

	// Total from frozen unit prices, rounded to cents.
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.unitPrice.Mul(decimal.NewFromInt(int64(line.quantity))))
	}
	total = total.Round(2)

	orderID, err := id.Generate(id.PrefixOrder)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	order := &domain.Order{
		ID:             orderID,
		UserID:         params.UserID,
		GuestEmail:     params.GuestEmail,
		Status:         domain.OrderStatusPendingPayment,
		TotalAmount:    total,
		Shipping:       params.Shipping,
		IdempotencyKey: params.IdempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, created_at, updated_at, user_id, guest_email, status, total_amount,
			ship_line1, ship_line2, ship_city, ship_state, ship_zip, idempotency_key
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		formatTime(now),
		formatTime(now),
		nullString(order.UserID),
		nullString(order.GuestEmail),
		string(order.Status),
		total.StringFixed(2),
		order.Shipping.Line1,
		nullString(order.Shipping.Line2),
		order.Shipping.City,
		order.Shipping.State,
		order.Shipping.Zip,
		nullString(order.IdempotencyKey),
	)
	if err != nil {
		// A concurrent request with the same idempotency key won the race;
		// surface its order instead of failing.
		if params.IdempotencyKey != "" && strings.Contains(err.Error(), "UNIQUE constraint failed") {
			existing, getErr := s.GetOrderByIdempotencyKey(ctx, params.IdempotencyKey)
			if getErr == nil {
				return &store.CheckoutResult{Order: existing, Replayed: true}, nil
			}
		}
		return nil, err
	}

	nowStr := formatTime(now)
	for _, line := range lines {
		itemID, err := id.Generate(id.PrefixItem)
		if err != nil {
			return nil, err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, book_id, quantity, unit_price)
			VALUES (?, ?, ?, ?, ?)`,
			itemID, order.ID, line.bookID, line.quantity, line.unitPrice.StringFixed(2))
		if err != nil {
			return nil, err
		}

		// Guarded decrement: refuses to go below zero even if another
		// transaction bought copies after our validation read.
		result, err := tx.ExecContext(ctx, `
			UPDATE books SET stock_quantity = stock_quantity - ?, updated_at = ?
			WHERE id = ? AND stock_quantity >= ?`,
			line.quantity, nowStr, line.bookID, line.quantity)
		if err != nil {
			return nil, err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, store.ErrOutOfStock.WithMessage(
				fmt.Sprintf("insufficient stock for %q", line.title))
		}

		order.Items = append(order.Items, domain.OrderItem{
			ID:                  itemID,
			OrderID:             order.ID,
			BookID:              line.bookID,
			Quantity:            line.quantity,
			UnitPriceAtPurchase: line.unitPrice,
			BookTitle:           line.title,
			BookImageURL:        line.imageURL,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit checkout tx: %w", err)
	}

	return &store.CheckoutResult{Order: order, Adjusted: adjusted}, nil
}

// GetOrder retrieves an order by ID without its items.
// Returns store.ErrNotFound if the order does not exist.
func (s *Store) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = ?`, orderID)

	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// GetOrderWithItems retrieves an order and its items. Item rows carry the
// book title and image joined from the catalog; soft-deleted books still
// resolve because order items reference the row, not the listing.
func (s *Store) GetOrderWithItems(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.order_id, i.book_id, i.quantity, i.unit_price,
			b.title, COALESCE(b.image_url, '')
		FROM order_items i
		JOIN books b ON b.id = i.book_id
		WHERE i.order_id = ?
		ORDER BY b.title ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item     domain.OrderItem
			priceStr string
		)
		err := rows.Scan(&item.ID, &item.OrderID, &item.BookID, &item.Quantity,
			&priceStr, &item.BookTitle, &item.BookImageURL)
		if err != nil {
			return nil, err
		}
		item.UnitPriceAtPurchase, err = decimal.NewFromString(priceStr)
		if err != nil {
			return nil, fmt.Errorf("parse unit price for item %s: %w", item.ID, err)
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return order, nil
}

// GetOrderByIdempotencyKey retrieves the order created with the given key,
// items included.
// Returns store.ErrNotFound if no order used the key.
func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE idempotency_key = ?`, key)

	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.GetOrderWithItems(ctx, o.ID)
}

// ListOrdersByUser returns a user's orders, newest first.
func (s *Store) ListOrdersByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	return s.listOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = ? ORDER BY created_at DESC`, userID)
}

// GetGuestOrder retrieves a guest order by ID and email, so guests can look
// up their purchase without an account. The email check stops order IDs
// leaking other people's purchases.
// Returns store.ErrNotFound when the pair doesn't match.
func (s *Store) GetGuestOrder(ctx context.Context, orderID, guestEmail string) (*domain.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = ? AND guest_email = ?`,
		orderID, guestEmail)

	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.GetOrderWithItems(ctx, o.ID)
}

// ListOrders returns all orders newest first, for the admin dashboard.
func (s *Store) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	return s.listOrders(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
}

func (s *Store) listOrders(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateOrderStatus moves an order to a new fulfillment status.
// Returns store.ErrNotFound if the order does not exist.
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), formatTime(time.Now()), orderID)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
