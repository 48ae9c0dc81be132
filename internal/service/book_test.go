package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/bookhavenapp/bookhaven-server/internal/errors"
	"github.com/bookhavenapp/bookhaven-server/internal/store"
)

func TestCreateBookAndGet(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	book, err := e.books.CreateBook(ctx, BookRequest{
		Title:         "The Dispossessed",
		Author:        "Ursula K. Le Guin",
		Genre:         "Science Fiction",
		Price:         "11.99",
		StockQuantity: 5,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, book.ID)

	got, err := e.books.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "The Dispossessed", got.Title)
	assert.Equal(t, "11.99", got.Price.StringFixed(2))
}

func TestCreateBook_InvalidPrice(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.books.CreateBook(context.Background(), BookRequest{
		Title:  "Bad Price",
		Author: "x",
		Price:  "-4.00",
	})
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)
}

func TestListBooks_Pagination(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	for _, title := range []string{"Alpha", "Beta", "Gamma", "Delta", "Epsilon"} {
		e.seedBook(t, title, "9.99", 1)
	}

	page1, err := e.books.ListBooks(ctx, ListBooksRequest{Sort: store.SortTitle, Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page1.Books, 2)
	assert.Equal(t, 5, page1.Total)
	assert.Equal(t, 3, page1.TotalPages)
	assert.Equal(t, "Alpha", page1.Books[0].Title)

	page3, err := e.books.ListBooks(ctx, ListBooksRequest{Sort: store.SortTitle, Page: 3, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page3.Books, 1)
	assert.Equal(t, "Gamma", page3.Books[0].Title)

	// Genres come along for the filter bar.
	assert.NotEmpty(t, page1.Genres)
}

func TestSearchBooks_ResolvesHitsInOrder(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	// Created through the service so the index is written too.
	_, err := e.books.CreateBook(ctx, BookRequest{
		Title: "Whale Songs", Author: "A", Genre: "Nature", Price: "9.99", StockQuantity: 1,
	})
	require.NoError(t, err)
	hit, err := e.books.CreateBook(ctx, BookRequest{
		Title: "The Whale", Author: "B", Genre: "Nature", Price: "9.99", StockQuantity: 1,
	})
	require.NoError(t, err)

	results, err := e.books.SearchBooks(ctx, "whale", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	ids := []string{results[0].ID, results[1].ID}
	assert.Contains(t, ids, hit.ID)
}

func TestSearchBooks_EmptyQuery(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.books.SearchBooks(context.Background(), "", 10)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation), "got %v", err)
}

func TestSearchBooks_DeletedBookDropped(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	book, err := e.books.CreateBook(ctx, BookRequest{
		Title: "Vanishing Act", Author: "A", Price: "9.99", StockQuantity: 1,
	})
	require.NoError(t, err)

	require.NoError(t, e.books.DeleteBook(ctx, book.ID))

	results, err := e.books.SearchBooks(ctx, "vanishing", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestUpdateBook(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	book, err := e.books.CreateBook(ctx, BookRequest{
		Title: "Draft", Author: "A", Price: "9.99", StockQuantity: 1,
	})
	require.NoError(t, err)

	updated, err := e.books.UpdateBook(ctx, book.ID, BookRequest{
		Title: "Final", Author: "A", Price: "12.50", StockQuantity: 7,
	})
	require.NoError(t, err)
	assert.Equal(t, "Final", updated.Title)
	assert.Equal(t, 7, updated.StockQuantity)
}

func TestUpdateBook_NotFound(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.books.UpdateBook(context.Background(), "book-missing", BookRequest{
		Title: "x", Author: "y", Price: "1.00",
	})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound), "got %v", err)
}

func TestReindexCatalog(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	e.seedBook(t, "Reindexed Tale", "9.99", 1)

	// Rebuild drops the index; the reindex pass restores it from the catalog.

	require.NoError(t, e.books.ReindexCatalog(ctx))

	results, err := e.books.SearchBooks(ctx, "reindexed", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}
