package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bookhavenapp/bookhaven-server/internal/http/response"
	"github.com/bookhavenapp/bookhaven-server/internal/service"
)

// handleCheckout places an order from the visitor's cart.
// POST /api/v1/checkout
func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req service.CheckoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	resp, err := s.orderService.Checkout(r.Context(), cartRef(r.Context()), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Created(w, resp, s.logger)
}

// handleListOrders returns the signed-in user's order history.
// GET /api/v1/orders
func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.orderService.ListOrders(r.Context(), getUserID(r.Context()))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, orders, s.logger)
}

// handleGetOrder returns one of the signed-in user's orders with items.
// GET /api/v1/orders/{id}
func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.orderService.GetOrder(r.Context(), getUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, order, s.logger)
}

// handleGuestLookup finds a guest order by ID and email.
// POST /api/v1/orders/lookup
func (s *Server) handleGuestLookup(w http.ResponseWriter, r *http.Request) {
	var req service.GuestLookupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	order, err := s.orderService.GuestLookup(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, order, s.logger)
}
