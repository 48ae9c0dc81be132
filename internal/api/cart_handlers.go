package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bookhavenapp/bookhaven-server/internal/http/response"
)

type cartItemRequest struct {
	BookID   string `json:"book_id"`
	Quantity int    `json:"quantity"`
}

// handleGetCart returns the visitor's cart, revalidated against stock.
// GET /api/v1/cart
func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	view, err := s.cartService.GetCart(r.Context(), cartRef(r.Context()))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, view, s.logger)
}

// handleAddCartItem adds a book to the cart, capping at current stock.
// POST /api/v1/cart/items
func (s *Server) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	view, err := s.cartService.AddItem(r.Context(), cartRef(r.Context()), req.BookID, req.Quantity)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, view, s.logger)
}

// handleUpdateCartItem sets a line quantity; zero removes the line.
// PUT /api/v1/cart/items/{bookID}
func (s *Server) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	view, err := s.cartService.UpdateItem(r.Context(), cartRef(r.Context()), chi.URLParam(r, "bookID"), req.Quantity)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, view, s.logger)
}

// handleRemoveCartItem drops a line from the cart.
// DELETE /api/v1/cart/items/{bookID}
func (s *Server) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	view, err := s.cartService.RemoveItem(r.Context(), cartRef(r.Context()), chi.URLParam(r, "bookID"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, view, s.logger)
}

// handleClearCart empties the cart.
// DELETE /api/v1/cart
func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	if err := s.cartService.ClearCart(r.Context(), cartRef(r.Context())); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}
