package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/bookhavenapp/bookhaven-server/internal/domain"
	domainerrors "github.com/bookhavenapp/bookhaven-server/internal/errors"
	"github.com/bookhavenapp/bookhaven-server/internal/id"
	"github.com/bookhavenapp/bookhaven-server/internal/search"
	"github.com/bookhavenapp/bookhaven-server/internal/store"
	"github.com/bookhavenapp/bookhaven-server/internal/validation"
)

// defaultPageSize is the catalog page size when the caller doesn't pick one.
const defaultPageSize = 24

// maxPageSize caps a caller-supplied page size.
const maxPageSize = 100

// BookService handles catalog browsing, search, and admin catalog management.
type BookService struct {
	store    store.Store
	search   *search.Index
	validate *validation.Validator
	logger   *slog.Logger
}

// NewBookService creates a new catalog service.
func NewBookService(
	store store.Store,
	searchIndex *search.Index,
	validate *validation.Validator,
	logger *slog.Logger,
) *BookService {
	return &BookService{
		store:    store,
		search:   searchIndex,
		validate: validate,
		logger:   logger,
	}
}

// ListBooksRequest selects a catalog page.
type ListBooksRequest struct {
	GenreSlug string
	Sort      store.BookSort
	Page      int // 1-based
	PageSize  int
}

// BookListing is one page of the catalog plus the filter metadata the
// storefront needs to render genre links and pagination.
type BookListing struct {
	Books      []*domain.Book `json:"books"`
	Genres     []store.Genre  `json:"genres"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	TotalPages int            `json:"total_pages"`
}

// ListBooks returns a page of the catalog.
func (s *BookService) ListBooks(ctx context.Context, req ListBooksRequest) (*BookListing, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = defaultPageSize
	}
	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	books, err := s.store.ListBooks(ctx, store.ListBooksOptions{
		GenreSlug: req.GenreSlug,
		Sort:      req.Sort,
		Offset:    (req.Page - 1) * req.PageSize,
		Limit:     req.PageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	total, err := s.store.CountBooks(ctx, req.GenreSlug)
	if err != nil {
		return nil, fmt.Errorf("count books: %w", err)
	}

	genres, err := s.store.ListGenres(ctx)
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}

	totalPages := (total + req.PageSize - 1) / req.PageSize
	if totalPages < 1 {
		totalPages = 1
	}

	return &BookListing{
		Books:      books,
		Genres:     genres,
		Total:      total,
		Page:       req.Page,
		TotalPages: totalPages,
	}, nil
}

// GetBook returns a single catalog entry.
func (s *BookService) GetBook(ctx context.Context, bookID string) (*domain.Book, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("book not found")
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

// SearchBooks runs a full-text catalog search and resolves the hits to
// catalog records, preserving relevance order. Books deleted since they
// were indexed are dropped from the results.
func (s *BookService) SearchBooks(ctx context.Context, query string, limit int) ([]*domain.Book, error) {
	if query == "" {
		return nil, domainerrors.Validation("search query is required")
	}
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}

	result, err := s.search.Search(ctx, search.Params{Query: query, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}

	ids := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		ids = append(ids, hit.ID)
	}

	books, err := s.store.GetBooks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve search hits: %w", err)
	}

	ordered := make([]*domain.Book, 0, len(ids))
	for _, bookID := range ids {
		if book, ok := books[bookID]; ok {
			ordered = append(ordered, book)
		}
	}
	return ordered, nil
}

// BookRequest contains the fields an admin supplies when creating or
// updating a catalog entry.
type BookRequest struct {
	Title         string `json:"title" validate:"required,max=500"`
	Author        string `json:"author" validate:"required,max=200"`
	Genre         string `json:"genre" validate:"max=100"`
	Price         string `json:"price" validate:"required,price"`
	StockQuantity int    `json:"stock_quantity" validate:"min=0"`
	Description   string `json:"description" validate:"max=5000"`
	ImageURL      string `json:"image_url" validate:"omitempty,url,max=1000"`
}

// CreateBook adds a book to the catalog.
func (s *BookService) CreateBook(ctx context.Context, req BookRequest) (*domain.Book, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return nil, domainerrors.Validation("price must be a valid amount")
	}

	bookID, err := id.Generate(id.PrefixBook)
	if err != nil {
		return nil, fmt.Errorf("generate book ID: %w", err)
	}

	book := &domain.Book{
		Title:         req.Title,
		Author:        req.Author,
		Genre:         req.Genre,
		Price:         price,
		StockQuantity: req.StockQuantity,
		Description:   req.Description,
		ImageURL:      req.ImageURL,
	}
	book.ID = bookID
	book.InitTimestamps()

	if err := s.store.CreateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}

	s.logger.Info("Book created", "book_id", bookID, "title", book.Title)
	return book, nil
}

// UpdateBook replaces a catalog entry's fields.
func (s *BookService) UpdateBook(ctx context.Context, bookID string, req BookRequest) (*domain.Book, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return nil, domainerrors.Validation("price must be a valid amount")
	}

	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("book not found")
		}
		return nil, fmt.Errorf("get book: %w", err)
	}

	book.Title = req.Title
	book.Author = req.Author
	book.Genre = req.Genre
	book.Price = price
	book.StockQuantity = req.StockQuantity
	book.Description = req.Description
	book.ImageURL = req.ImageURL
	book.Touch()

	if err := s.store.UpdateBook(ctx, book); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("book not found")
		}
		return nil, fmt.Errorf("update book: %w", err)
	}

	s.logger.Info("Book updated", "book_id", bookID)
	return book, nil
}

// DeleteBook removes a book from the catalog. The row is soft-deleted so
// order history keeps its titles.
func (s *BookService) DeleteBook(ctx context.Context, bookID string) error {
	if err := s.store.DeleteBook(ctx, bookID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("book not found")
		}
		return fmt.Errorf("delete book: %w", err)
	}

	s.logger.Info("Book deleted", "book_id", bookID)
	return nil
}

// ReindexCatalog rebuilds the search index from the catalog. Run at
// startup and after restoring a database backup.
func (s *BookService) ReindexCatalog(ctx context.Context) error {
	if err := s.search.Rebuild(); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}

	const pageSize = 500
	indexed := 0
	for offset := 0; ; offset += pageSize {
		books, err := s.store.ListBooks(ctx, store.ListBooksOptions{
			Sort:   store.SortNewest,
			Offset: offset,
			Limit:  pageSize,
		})
		if err != nil {
			return fmt.Errorf("list books for reindex: %w", err)
		}
		if len(books) == 0 {
			break
		}
		if err := s.search.IndexBooks(books); err != nil {
			return fmt.Errorf("index books: %w", err)
		}
		indexed += len(books)
		if len(books) < pageSize {
			break
		}
	}

	s.logger.Info("Catalog reindexed", "books", indexed)
	return nil
}
