// Package carts provides a BadgerDB-backed store for shopping carts.
//
// Carts are short-lived, written on every quantity change, and never
// queried relationally, so they live in a key-value store beside the
// SQLite catalog instead of in it. Guest carts are keyed by the cart
// cookie and expire on their own; account carts are keyed by user ID and
// persist until checkout clears them.
package carts

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/bookhavenapp/bookhaven-server/internal/domain"
	"github.com/bookhavenapp/bookhaven-server/internal/store"
)

const (
	sessionPrefix = "cart:sess:"
	userPrefix    = "cart:user:"

	// Guest carts vanish if untouched for this long.
	sessionTTL = 30 * 24 * time.Hour
)

// Store persists shopping carts in BadgerDB.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// Open opens (or creates) the cart store at the given directory.
func Open(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cart store: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunGC runs one round of Badger value-log garbage collection.
// Call periodically; an error just means there was nothing to collect.
func (s *Store) RunGC() {
	if err := s.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		s.logger.Warn("cart store gc", "error", err)
	}
}

// key returns the storage key for a cart. Carts owned by a signed-in user
// are keyed by user ID; guest carts by their session cart ID.
func key(cart *domain.Cart) []byte {
	if cart.UserID != "" {
		return []byte(userPrefix + cart.UserID)
	}
	return []byte(sessionPrefix + cart.ID)
}

// GetSession retrieves a guest cart by its session cart ID.
// Returns store.ErrNotFound if no cart exists.
func (s *Store) GetSession(ctx context.Context, cartID string) (*domain.Cart, error) {
	return s.get(ctx, []byte(sessionPrefix+cartID))
}

// GetUser retrieves a signed-in user's cart.
// Returns store.ErrNotFound if no cart exists.
func (s *Store) GetUser(ctx context.Context, userID string) (*domain.Cart, error) {
	return s.get(ctx, []byte(userPrefix+userID))
}

func (s *Store) get(ctx context.Context, k []byte) (*domain.Cart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var cart domain.Cart
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return store.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get cart: %w", err)
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &cart); err != nil {
				return fmt.Errorf("failed to unmarshal cart: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// Save writes a cart, replacing any existing one under the same key.
// Guest carts carry a TTL so abandoned ones clean themselves up.
func (s *Store) Save(ctx context.Context, cart *domain.Cart) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cart.UpdatedAt = time.Now()
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("failed to marshal cart: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key(cart), data)
		if cart.UserID == "" {
			entry = entry.WithTTL(sessionTTL)
		}
		if err := txn.SetEntry(entry); err != nil {
			return fmt.Errorf("failed to set cart: %w", err)
		}
		return nil
	})
}

// Delete removes a cart. Idempotent; deleting a missing cart is not an error.
func (s *Store) Delete(ctx context.Context, cart *domain.Cart) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(key(cart)); err != nil {
			return fmt.Errorf("failed to delete cart: %w", err)
		}
		return nil
	})
}

// MergeSessionIntoUser folds a guest cart into the user's cart at sign-in,
// adding quantities for books present in both, then removes the guest
// cart. The whole move happens in one transaction so a crash can neither
// drop nor double the guest's items.
func (s *Store) MergeSessionIntoUser(ctx context.Context, sessionCartID, userID string) (*domain.Cart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	merged := &domain.Cart{ID: userID, UserID: userID}

	err := s.db.Update(func(txn *badger.Txn) error {
		readCart := func(k []byte, into *domain.Cart) error {
			item, err := txn.Get(k)
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			return item.Value(func(val []byte) error {
				return json.Unmarshal(val, into)
			})
		}

		var userCart, sessionCart domain.Cart
		if err := readCart([]byte(userPrefix+userID), &userCart); err != nil {
			return fmt.Errorf("failed to read user cart: %w", err)
		}
		if sessionCartID != "" {
			if err := readCart([]byte(sessionPrefix+sessionCartID), &sessionCart); err != nil {
				return fmt.Errorf("failed to read session cart: %w", err)
			}
		}

		merged.Lines = userCart.Lines
		merged.Merge(&sessionCart)
		merged.UpdatedAt = time.Now()

		data, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("failed to marshal merged cart: %w", err)
		}
		if err := txn.Set([]byte(userPrefix+userID), data); err != nil {
			return fmt.Errorf("failed to set merged cart: %w", err)
		}
		if sessionCartID != "" {
			if err := txn.Delete([]byte(sessionPrefix + sessionCartID)); err != nil {
				return fmt.Errorf("failed to delete session cart: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}
