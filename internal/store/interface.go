// Package store defines the persistence interface for the BookHaven server.
package store

import (
	"context"
	"time"

	"github.com/bookhavenapp/bookhaven-server/internal/domain"
)

// Store defines the interface for catalog, user, order, and review
// persistence. The SQLite implementation lives in store/sqlite; carts
// use their own key-value store and are not part of this interface.
type Store interface {
	// Lifecycle
	Close() error
	SetSearchIndexer(indexer SearchIndexer)

	// Users
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	DeleteUser(ctx context.Context, id string) error

	// Books
	CreateBook(ctx context.Context, book *domain.Book) error
	GetBook(ctx context.Context, id string) (*domain.Book, error)
	GetBooks(ctx context.Context, ids []string) (map[string]*domain.Book, error)
	ListBooks(ctx context.Context, opts ListBooksOptions) ([]*domain.Book, error)
	CountBooks(ctx context.Context, genreSlug string) (int, error)
	ListGenres(ctx context.Context) ([]Genre, error)
	UpdateBook(ctx context.Context, book *domain.Book) error
	DeleteBook(ctx context.Context, id string) error

	// Orders
	Checkout(ctx context.Context, params CheckoutParams) (*CheckoutResult, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	GetOrderWithItems(ctx context.Context, orderID string) (*domain.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]*domain.Order, error)
	GetGuestOrder(ctx context.Context, orderID, guestEmail string) (*domain.Order, error)
	ListOrders(ctx context.Context) ([]*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error

	// Reviews
	UpsertReview(ctx context.Context, review *domain.Review) error
	GetReview(ctx context.Context, reviewID string) (*domain.Review, error)
	GetUserReviewForBook(ctx context.Context, userID, bookID string) (*domain.Review, error)
	ListReviewsByBook(ctx context.Context, bookID string) ([]*domain.Review, error)
	ListReviewsByUser(ctx context.Context, userID string) ([]*domain.Review, error)
	UpdateReview(ctx context.Context, userID string, review *domain.Review) error
	DeleteReview(ctx context.Context, userID, reviewID string) error
}
