package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bookhavenapp/bookhaven-server/internal/domain"
	"github.com/bookhavenapp/bookhaven-server/internal/normalize"
	"github.com/bookhavenapp/bookhaven-server/internal/store"
)

// bookColumns is the ordered list of columns selected in book queries.
// Must match the scan order in scanBook. Review aggregates are joined in
// so every read carries the display rating without a second query.
const bookColumns = `b.id, b.created_at, b.updated_at, b.deleted_at, b.title, b.title_sort,
	b.author, b.genre, b.genre_slug, b.price, b.stock_quantity, b.description, b.image_url,
	COALESCE(r.avg_rating, 0), COALESCE(r.review_count, 0)`

// bookJoin attaches per-book review aggregates to a books query.
const bookJoin = ` FROM books b
	LEFT JOIN (
		SELECT book_id, AVG(rating) AS avg_rating, COUNT(*) AS review_count
		FROM reviews GROUP BY book_id
	) r ON r.book_id = b.id`

// scanBook scans a sql.Row (or sql.Rows via its Scan method) into a domain.Book.
func scanBook(scanner interface{ Scan(dest ...any) error }) (*domain.Book, error) {
	var b domain.Book

	var (
		createdAt   string
		updatedAt   string
		deletedAt   sql.NullString
		titleSort   string
		genre       sql.NullString
		genreSlug   sql.NullString
		price       string
		description sql.NullString
		imageURL    sql.NullString
	)

	err := scanner.Scan(
		&b.ID,
		&createdAt,
		&updatedAt,
		&deletedAt,
		&b.Title,
		&titleSort, // throwaway - derived from title on write
		&b.Author,
		&genre,
		&genreSlug, // throwaway - derived from genre on write
		&price,
		&b.StockQuantity,
		&description,
		&imageURL,
		&b.AverageRating,
		&b.ReviewCount,
	)
	if err != nil {
		return nil, err
	}

	// Parse timestamps.
	b.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	b.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	b.DeletedAt, err = parseNullableTime(deletedAt)
	if err != nil {
		return nil, err
	}

	// Money is stored as text and parsed back into a decimal.
	b.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price for book %s: %w", b.ID, err)
	}

	if genre.Valid {
		b.Genre = genre.String
	}
	if description.Valid {
		b.Description = description.String
	}
	if imageURL.Valid {
		b.ImageURL = imageURL.String
	}

	return &b, nil
}

// CreateBook inserts a new book into the catalog.
// Returns store.ErrAlreadyExists if the book ID already exists.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO books (
			id, created_at, updated_at, deleted_at, title, title_sort,
			author, genre, genre_slug, price, stock_quantity, description, image_url
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		book.ID,
		formatTime(book.CreatedAt),
		formatTime(book.UpdatedAt),
		nullTimeString(book.DeletedAt),
		book.Title,
		normalize.TitleSortKey(book.Title),
		book.Author,
		nullString(book.Genre),
		nullString(normalize.GenreSlug(book.Genre)),
		book.Price.StringFixed(2),
		book.StockQuantity,
		nullString(book.Description),
		nullString(book.ImageURL),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}

	if err := s.searchIndexer.IndexBook(book); err != nil {
		s.logger.Warn("failed to index book", "book_id", book.ID, "error", err)
	}
	return nil
}

// GetBook retrieves a book by ID, excluding soft-deleted records.
// Returns store.ErrNotFound if the book does not exist.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+bookJoin+` WHERE b.id = ? AND b.deleted_at IS NULL`, id)

	b, err := scanBook(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// orderClause maps a sort order to SQL. Price is stored as text, so price
// sorts cast to a numeric value.
func orderClause(sort store.BookSort) string {
	switch sort {
	case store.SortPriceAsc:
		return " ORDER BY CAST(b.price AS REAL) ASC, b.title_sort ASC"
	case store.SortPriceDesc:
		return " ORDER BY CAST(b.price AS REAL) DESC, b.title_sort ASC"
	case store.SortNewest:
		return " ORDER BY b.created_at DESC"
	default:
		return " ORDER BY b.title_sort ASC"
	}
}

// ListBooks returns a page of the catalog.
func (s *Store) ListBooks(ctx context.Context, opts store.ListBooksOptions) ([]*domain.Book, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}

	query := `SELECT ` + bookColumns + bookJoin + ` WHERE b.deleted_at IS NULL`
	args := []any{}
	if opts.GenreSlug != "" {
		query += ` AND b.genre_slug = ?`
		args = append(args, opts.GenreSlug)
	}
	query += orderClause(opts.Sort) + ` LIMIT ? OFFSET ?`
	args = append(args, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []*domain.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return books, nil
}

// GetBooks fetches several books by ID in one query. Missing and
// soft-deleted IDs are silently absent from the result.
func (s *Store) GetBooks(ctx context.Context, ids []string) (map[string]*domain.Book, error) {
	books := make(map[string]*domain.Book, len(ids))
	if len(ids) == 0 {
		return books, nil
	}

	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookColumns+bookJoin+` WHERE b.id IN (`+placeholders+`) AND b.deleted_at IS NULL`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books[b.ID] = b
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return books, nil
}

// CountBooks returns the number of non-deleted books, optionally filtered by genre.
func (s *Store) CountBooks(ctx context.Context, genreSlug string) (int, error) {
	query := `SELECT COUNT(*) FROM books WHERE deleted_at IS NULL`
	args := []any{}
	if genreSlug != "" {
		query += ` AND genre_slug = ?`
		args = append(args, genreSlug)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ListGenres returns the distinct genres present in the catalog, ordered by label.
func (s *Store) ListGenres(ctx context.Context) ([]store.Genre, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT genre, genre_slug FROM books
		WHERE deleted_at IS NULL AND genre IS NOT NULL AND genre != ''
		ORDER BY genre ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var genres []store.Genre
	for rows.Next() {
		var g store.Genre
		if err := rows.Scan(&g.Label, &g.Slug); err != nil {
			return nil, err
		}
		genres = append(genres, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return genres, nil
}

// UpdateBook performs a full row update on an existing book.
// Returns store.ErrNotFound if the book does not exist or is soft-deleted.
func (s *Store) UpdateBook(ctx context.Context, book *domain.Book) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE books SET
			updated_at = ?,
			title = ?,
			title_sort = ?,
			author = ?,
			genre = ?,
			genre_slug = ?,
			price = ?,
			stock_quantity = ?,
			description = ?,
			image_url = ?
		WHERE id = ? AND deleted_at IS NULL`,
		formatTime(book.UpdatedAt),
		book.Title,
		normalize.TitleSortKey(book.Title),
		book.Author,
		nullString(book.Genre),
		nullString(normalize.GenreSlug(book.Genre)),
		book.Price.StringFixed(2),
		book.StockQuantity,
		nullString(book.Description),
		nullString(book.ImageURL),
		book.ID,
	)
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

	if err := s.searchIndexer.IndexBook(book); err != nil {
		s.logger.Warn("failed to index book", "book_id", book.ID, "error", err)
	}
	return nil
}

// DeleteBook performs a soft delete by setting deleted_at and updated_at.
// Order items keep their book reference; the catalog stops listing it.
// Returns store.ErrNotFound if the book does not exist or is already deleted.
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	now := formatTime(time.Now())

	result, err := s.db.ExecContext(ctx, `
		UPDATE books SET deleted_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		now, now, id)
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

	if err := s.searchIndexer.RemoveBook(id); err != nil {
		s.logger.Warn("failed to remove book from index", "book_id", id, "error", err)
	}
	return nil
}
