package sqlite

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bookhavenapp/bookhaven-server/internal/domain"
	"github.com/bookhavenapp/bookhaven-server/internal/id"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedBook inserts a catalog entry and returns it.
func seedBook(t *testing.T, s *Store, title string, price string, stock int) *domain.Book {
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
	if err := s.CreateBook(context.Background(), book); err != nil {
		t.Fatalf("seed book %q: %v", title, err)
	}
	return book
}

// seedUser inserts a customer account and returns it.
func seedUser(t *testing.T, s *Store, email string) *domain.User {
	t.Helper()
	user := &domain.User{
		Email:        email,
		PasswordHash: "$argon2id$test",
		Role:         domain.RoleCustomer,
		FirstName:    "Test",
		LastName:     "Reader",
	}
	user.ID = id.MustGenerate(id.PrefixUser)
	user.InitTimestamps()
	if err := s.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("seed user %q: %v", email, err)
	}
	return user
}

func testAddress() domain.Address {
	return domain.Address{
		Line1: "42 Shelf Street",
		City:  "Portland",
		State: "OR",
		Zip:   "97201",
	}
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	// Verify WAL mode is set.
	var journalMode string
	err := s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	if err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected wal, got %s", journalMode)
	}

	// Verify foreign keys are enabled.
	var fk int
	err = s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	if err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("expected foreign_keys=1, got %d", fk)
	}

	// Verify tables exist.
	tables := []string{"books", "users", "orders", "order_items", "reviews"}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestOpenClose(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	// Re-open should work (schema is idempotent).
	s2, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("re-open store: %v", err)
	}
	defer s2.Close()
}

func TestTimeRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)
	parsed, err := parseTime(formatTime(now))
	if err != nil {
		t.Fatalf("parse formatted time: %v", err)
	}
	if !parsed.Equal(now) {
		t.Errorf("expected %v, got %v", now, parsed)
	}
}
