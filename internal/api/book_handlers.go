package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bookhavenapp/bookhaven-server/internal/http/response"
	"github.com/bookhavenapp/bookhaven-server/internal/service"
	"github.com/bookhavenapp/bookhaven-server/internal/store"
)

// parseSort maps the sort query parameter onto a catalog sort order,
// defaulting to title.
func parseSort(raw string) store.BookSort {
	switch sort := store.BookSort(raw); sort {
	case store.SortTitle, store.SortPriceAsc, store.SortPriceDesc, store.SortNewest:
		return sort
	default:
		return store.SortTitle
	}
}

// handleListBooks returns one page of the catalog with genre filters.
// GET /api/v1/books?genre=&sort=&page=&page_size=
func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	listing, err := s.bookService.ListBooks(r.Context(), service.ListBooksRequest{
		GenreSlug: r.URL.Query().Get("genre"),
		Sort:      parseSort(r.URL.Query().Get("sort")),
		Page:      queryInt(r, "page", 1),
		PageSize:  queryInt(r, "page_size", 0),
	})
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, listing, s.logger)
}

// handleGetBook returns a single book.
// GET /api/v1/books/{id}
func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	book, err := s.bookService.GetBook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, book, s.logger)
}

// handleListGenres returns the genres present in the catalog.
// GET /api/v1/genres
func (s *Server) handleListGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := s.store.ListGenres(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, genres, s.logger)
}

// handleSearch runs a full-text catalog search.
// GET /api/v1/search?q=&limit=
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	books, err := s.bookService.SearchBooks(r.Context(), r.URL.Query().Get("q"), queryInt(r, "limit", 0))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, books, s.logger)
}
