package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bookhavenapp/bookhaven-server/internal/auth"
	"github.com/bookhavenapp/bookhaven-server/internal/domain"
	"github.com/bookhavenapp/bookhaven-server/internal/id"
	"github.com/bookhavenapp/bookhaven-server/internal/mail"
	"github.com/bookhavenapp/bookhaven-server/internal/search"
	"github.com/bookhavenapp/bookhaven-server/internal/store/carts"
	"github.com/bookhavenapp/bookhaven-server/internal/store/sqlite"
	"github.com/bookhavenapp/bookhaven-server/internal/validation"
)

// env wires real stores in temp directories behind the services under test.
type env struct {
	store  *sqlite.Store
	carts  *carts.Store
	search *search.Index

	auth    *AuthService
	books   *BookService
	cart    *CartService
	orders  *OrderService
	reviews *ReviewService
	admin   *AdminService
}

func newTestEnv(t *testing.T) *env {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	cartStore, err := carts.Open(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { cartStore.Close() })

	idx, err := search.NewIndex(search.Options{DataPath: t.TempDir(), Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	s.SetSearchIndexer(idx)

	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	tokens, err := auth.NewTokenService(key, time.Hour)
	require.NoError(t, err)

	validate := validation.New()
	mailer := mail.NewLogMailer(logger)

	e := &env{store: s, carts: cartStore, search: idx}
	e.auth = NewAuthService(s, cartStore, tokens, validate, logger)
	e.books = NewBookService(s, idx, validate, logger)
	e.cart = NewCartService(s, cartStore, logger)
	e.orders = NewOrderService(s, e.cart, mailer, validate, logger)
	e.reviews = NewReviewService(s, validate, logger)
	e.admin = NewAdminService(s, validate, logger)
	return e
}

func (e *env) seedBook(t *testing.T, title, price string, stock int) *domain.Book {
	t.Helper()
	book := &domain.Book{
		Title:         title,
		Author:        "Test Author",
		Genre:         "Fiction",
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
	}
	book.ID = id.MustGenerate(id.PrefixBook)
	book.InitTimestamps()
	require.NoError(t, e.store.CreateBook(context.Background(), book))
	return book
}

func (e *env) seedUser(t *testing.T, email string) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword("correct horse battery")
	require.NoError(t, err)

	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleCustomer,
		FirstName:    "Test",
		LastName:     "Reader",
	}
	user.ID = id.MustGenerate(id.PrefixUser)
	user.InitTimestamps()
	require.NoError(t, e.store.CreateUser(context.Background(), user))
	return user
}

func validShipping() CheckoutRequest {
	return CheckoutRequest{
		ShipLine1: "1 Main St",
		ShipCity:  "Springfield",
		ShipState: "IL",
		ShipZip:   "62704",
	}
}
