package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bookhavenapp/bookhaven-server/internal/http/response"
	"github.com/bookhavenapp/bookhaven-server/internal/service"
)

// handleListBookReviews returns a book's reviews. When the caller is
// signed in, their own review is flagged so the UI can offer edit and
// delete controls.
// GET /api/v1/books/{id}/reviews
func (s *Server) handleListBookReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := s.reviewService.ListBookReviews(r.Context(), chi.URLParam(r, "id"), getUserID(r.Context()))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, reviews, s.logger)
}

// handleSubmitReview creates or replaces the caller's review of a book
// and returns the refreshed review list.
// POST /api/v1/books/{id}/reviews
func (s *Server) handleSubmitReview(w http.ResponseWriter, r *http.Request) {
	var req service.ReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	userID := getUserID(r.Context())
	bookID := chi.URLParam(r, "id")

	if _, err := s.reviewService.SubmitReview(r.Context(), userID, bookID, req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	reviews, err := s.reviewService.ListBookReviews(r.Context(), bookID, userID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, reviews, s.logger)
}

// handleGetMyReview returns the caller's review of a book, if any.
// GET /api/v1/books/{id}/reviews/me
func (s *Server) handleGetMyReview(w http.ResponseWriter, r *http.Request) {
	review, err := s.reviewService.GetMyReviewForBook(r.Context(), getUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, review, s.logger)
}

// handleListMyReviews returns everything the caller has reviewed.
// GET /api/v1/users/me/reviews
func (s *Server) handleListMyReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := s.reviewService.ListMyReviews(r.Context(), getUserID(r.Context()))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, reviews, s.logger)
}

// handleUpdateReview edits the caller's review.
// PUT /api/v1/reviews/{id}
func (s *Server) handleUpdateReview(w http.ResponseWriter, r *http.Request) {
	var req service.ReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	review, err := s.reviewService.UpdateReview(r.Context(), getUserID(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, review, s.logger)
}

// handleDeleteReview removes the caller's review and, like submit,
// returns the refreshed review list for the book it covered.
// DELETE /api/v1/reviews/{id}
func (s *Server) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	userID := getUserID(r.Context())

	bookID, err := s.reviewService.DeleteReview(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	reviews, err := s.reviewService.ListBookReviews(r.Context(), bookID, userID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, reviews, s.logger)
}
