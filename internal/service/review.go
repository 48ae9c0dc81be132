package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bookhavenapp/bookhaven-server/internal/domain"
	domainerrors "github.com/bookhavenapp/bookhaven-server/internal/errors"
	"github.com/bookhavenapp/bookhaven-server/internal/id"
	"github.com/bookhavenapp/bookhaven-server/internal/store"
	"github.com/bookhavenapp/bookhaven-server/internal/validation"
)

// ReviewService handles book reviews. Customers hold one review per book;
// resubmitting replaces it. Edits and deletes are owner-only, enforced in
// the store so a forged review ID cannot touch someone else's review.
type ReviewService struct {
	store    store.Store
	validate *validation.Validator
	logger   *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(store store.Store, validate *validation.Validator, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		store:    store,
		validate: validate,
		logger:   logger,
	}
}

// ReviewRequest contains a review submission or edit.
type ReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=5000"`
}

// SubmitReview creates the user's review for a book, replacing any
// earlier one they wrote for it.
func (s *ReviewService) SubmitReview(ctx context.Context, userID, bookID string, req ReviewRequest) (*domain.Review, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	if _, err := s.store.GetBook(ctx, bookID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("book not found")
		}
		return nil, fmt.Errorf("get book: %w", err)
	}

	reviewID, err := id.Generate(id.PrefixReview)
	if err != nil {
		return nil, fmt.Errorf("generate review ID: %w", err)
	}

	review := &domain.Review{
		UserID:  userID,
		BookID:  bookID,
		Rating:  req.Rating,
		Comment: req.Comment,
	}
	review.ID = reviewID
	review.InitTimestamps()

	if err := s.store.UpsertReview(ctx, review); err != nil {
		return nil, fmt.Errorf("save review: %w", err)
	}

	s.logger.Info("Review submitted",
		"review_id", review.ID,
		"book_id", bookID,
		"rating", req.Rating,
	)
	return review, nil
}

// ListBookReviews returns a book's reviews, newest first. When the caller
// is signed in their own review is flagged so the UI can offer edit and
// delete controls.
func (s *ReviewService) ListBookReviews(ctx context.Context, bookID, currentUserID string) ([]*domain.Review, error) {
	reviews, err := s.store.ListReviewsByBook(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	if currentUserID != "" {
		for _, review := range reviews {
			review.IsOwner = review.UserID == currentUserID
		}
	}
	return reviews, nil
}

// ListMyReviews returns everything the user has reviewed.
func (s *ReviewService) ListMyReviews(ctx context.Context, userID string) ([]*domain.Review, error) {
	reviews, err := s.store.ListReviewsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user reviews: %w", err)
	}
	return reviews, nil
}

// GetMyReviewForBook returns the user's review of a book, if any.
func (s *ReviewService) GetMyReviewForBook(ctx context.Context, userID, bookID string) (*domain.Review, error) {
	review, err := s.store.GetUserReviewForBook(ctx, userID, bookID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("review not found")
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return review, nil
}

// UpdateReview edits the user's own review.
func (s *ReviewService) UpdateReview(ctx context.Context, userID, reviewID string, req ReviewRequest) (*domain.Review, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	review := &domain.Review{
		Rating:  req.Rating,
		Comment: req.Comment,
	}
	review.ID = reviewID

	if err := s.store.UpdateReview(ctx, userID, review); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Also the answer when the review belongs to someone else.
			return nil, domainerrors.NotFound("review not found")
		}
		return nil, fmt.Errorf("update review: %w", err)
	}

	return s.store.GetReview(ctx, reviewID)
}

// DeleteReview removes the user's own review and returns the ID of the
// book it covered, so callers can refresh that book's review list.
func (s *ReviewService) DeleteReview(ctx context.Context, userID, reviewID string) (string, error) {
	review, err := s.store.GetReview(ctx, reviewID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", domainerrors.NotFound("review not found")
		}
		return "", fmt.Errorf("get review: %w", err)
	}

	if err := s.store.DeleteReview(ctx, userID, reviewID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Also the answer when the review belongs to someone else.
			return "", domainerrors.NotFound("review not found")
		}
		return "", fmt.Errorf("delete review: %w", err)
	}

	s.logger.Info("Review deleted", "review_id", reviewID, "user_id", userID)
	return review.BookID, nil
}

// RemoveReview deletes any user's review. Admin moderation path.
func (s *ReviewService) RemoveReview(ctx context.Context, reviewID string) error {
	review, err := s.store.GetReview(ctx, reviewID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("review not found")
		}
		return fmt.Errorf("get review: %w", err)
	}

	if err := s.store.DeleteReview(ctx, review.UserID, reviewID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("review not found")
		}
		return fmt.Errorf("delete review: %w", err)
	}

	s.logger.Info("Review removed by admin", "review_id", reviewID, "author", review.UserID)
	return nil
}
