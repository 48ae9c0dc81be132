package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bookhavenapp/bookhaven-server/internal/domain"
	"github.com/bookhavenapp/bookhaven-server/internal/http/response"
	"github.com/bookhavenapp/bookhaven-server/internal/service"
)

// handleAdminDashboard returns storefront counts.
// GET /api/v1/admin/dashboard
func (s *Server) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := s.adminService.GetDashboard(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, dash, s.logger)
}

// handleCreateBook adds a book to the catalog.
// POST /api/v1/admin/books
func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var req service.BookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	book, err := s.bookService.CreateBook(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Created(w, book, s.logger)
}

// handleUpdateBook edits a catalog entry.
// PUT /api/v1/admin/books/{id}
func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	var req service.BookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	book, err := s.bookService.UpdateBook(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, book, s.logger)
}

// handleDeleteBook soft-deletes a book; past order items keep their
// titles and prices.
// DELETE /api/v1/admin/books/{id}
func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	if err := s.bookService.DeleteBook(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

// handleReindexCatalog rebuilds the search index from the catalog.
// POST /api/v1/admin/search/reindex
func (s *Server) handleReindexCatalog(w http.ResponseWriter, r *http.Request) {
	if err := s.bookService.ReindexCatalog(r.Context()); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, map[string]string{"status": "reindexed"}, s.logger)
}

// handleAdminListOrders returns every order, newest first.
// GET /api/v1/admin/orders
func (s *Server) handleAdminListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.orderService.ListAllOrders(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, orders, s.logger)
}

// handleUpdateOrderStatus moves an order along the fulfillment enum.
// PATCH /api/v1/admin/orders/{id}/status
func (s *Server) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	order, err := s.orderService.UpdateOrderStatus(r.Context(), chi.URLParam(r, "id"), domain.OrderStatus(req.Status))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, order, s.logger)
}

// handleAdminListUsers returns all accounts.
// GET /api/v1/admin/users
func (s *Server) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.adminService.ListUsers(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, users, s.logger)
}

// handleAdminCreateUser creates an account with an explicit role.
// POST /api/v1/admin/users
func (s *Server) handleAdminCreateUser(w http.ResponseWriter, r *http.Request) {
	var req service.CreateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	user, err := s.adminService.CreateUser(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Created(w, user, s.logger)
}

// handleSetUserDisabled blocks or unblocks an account.
// PATCH /api/v1/admin/users/{id}/disabled
func (s *Server) handleSetUserDisabled(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Disabled bool `json:"disabled"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	user, err := s.adminService.SetUserDisabled(r.Context(), getUserID(r.Context()), chi.URLParam(r, "id"), req.Disabled)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, user, s.logger)
}

// handleSetUserRole changes an account's role.
// PATCH /api/v1/admin/users/{id}/role
func (s *Server) handleSetUserRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role string `json:"role"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	user, err := s.adminService.SetUserRole(r.Context(), getUserID(r.Context()), chi.URLParam(r, "id"), domain.Role(req.Role))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, user, s.logger)
}

// handleAdminDeleteUser removes an account.
// DELETE /api/v1/admin/users/{id}
func (s *Server) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.adminService.DeleteUser(r.Context(), getUserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

// handleRemoveReview deletes any review, for moderation.
// DELETE /api/v1/admin/reviews/{id}
func (s *Server) handleRemoveReview(w http.ResponseWriter, r *http.Request) {
	if err := s.reviewService.RemoveReview(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}
