package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/bookhavenapp/bookhaven-server/internal/domain"
	"github.com/bookhavenapp/bookhaven-server/internal/store"
)

// scanReview scans a review row. Queries must select, in order: id,
// created_at, updated_at, user_id, book_id, rating, comment.
func scanReview(scanner interface{ Scan(dest ...any) error }) (*domain.Review, error) {
	var r domain.Review

	var (
		createdAt string
		updatedAt string
		comment   sql.NullString
	)

	err := scanner.Scan(
		&r.ID,
		&createdAt,
		&updatedAt,
		&r.UserID,
		&r.BookID,
		&r.Rating,
		&comment,
	)
	if err != nil {
		return nil, err
	}

	r.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	r.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	if comment.Valid {
		r.Comment = comment.String
	}

	return &r, nil
}

// UpsertReview creates the user's review for a book, or replaces it if one
// already exists. A user holds at most one review per book; the replacement
// keeps the original review ID and created_at.
func (s *Store) UpsertReview(ctx context.Context, review *domain.Review) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reviews (id, created_at, updated_at, user_id, book_id, rating, comment)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, book_id) DO UPDATE SET
			updated_at = excluded.updated_at,
			rating = excluded.rating,
			comment = excluded.comment`,
		review.ID,
		formatTime(review.CreatedAt),
		formatTime(review.UpdatedAt),
		review.UserID,
		review.BookID,
		review.Rating,
		nullString(review.Comment),
	)
	if err != nil {
		return err
	}

	// The conflict path kept the existing row; read back its identity so
	// the caller sees the stored ID and timestamps.
	stored, err := s.GetUserReviewForBook(ctx, review.UserID, review.BookID)
	if err != nil {
		return err
	}
	*review = *stored
	return nil
}

// GetReview retrieves a review by ID.
// Returns store.ErrNotFound if the review does not exist.
func (s *Store) GetReview(ctx context.Context, reviewID string) (*domain.Review, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, updated_at, user_id, book_id, rating, comment
		FROM reviews WHERE id = ?`, reviewID)

	r, err := scanReview(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetUserReviewForBook retrieves a user's review of a book, if any.
// Returns store.ErrNotFound if the user has not reviewed the book.
func (s *Store) GetUserReviewForBook(ctx context.Context, userID, bookID string) (*domain.Review, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, updated_at, user_id, book_id, rating, comment
		FROM reviews WHERE user_id = ? AND book_id = ?`, userID, bookID)

	r, err := scanReview(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListReviewsByBook returns a book's reviews newest first, with the
// reviewer's name joined in for display.
func (s *Store) ListReviewsByBook(ctx context.Context, bookID string) ([]*domain.Review, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.created_at, r.updated_at, r.user_id, r.book_id, r.rating, r.comment,
			u.first_name, u.last_name, u.email
		FROM reviews r
		JOIN users u ON u.id = r.user_id
		WHERE r.book_id = ?
		ORDER BY r.created_at DESC`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []*domain.Review
	for rows.Next() {
		var (
			r         domain.Review
			createdAt string
			updatedAt string
			comment   sql.NullString
			firstName string
			lastName  string
			email     string
		)
		err := rows.Scan(&r.ID, &createdAt, &updatedAt, &r.UserID, &r.BookID,
			&r.Rating, &comment, &firstName, &lastName, &email)
		if err != nil {
			return nil, err
		}
		if r.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		if comment.Valid {
			r.Comment = comment.String
		}

		reviewer := domain.User{FirstName: firstName, LastName: lastName, Email: email}
		r.ReviewerName = reviewer.Name()

		reviews = append(reviews, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reviews, nil
}

// ListReviewsByUser returns a user's reviews newest first, with book titles
// joined in for the profile page.
func (s *Store) ListReviewsByUser(ctx context.Context, userID string) ([]*domain.Review, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.created_at, r.updated_at, r.user_id, r.book_id, r.rating, r.comment,
			b.title
		FROM reviews r
		JOIN books b ON b.id = r.book_id
		WHERE r.user_id = ?
		ORDER BY r.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []*domain.Review
	for rows.Next() {
		var (
			r         domain.Review
			createdAt string
			updatedAt string
			comment   sql.NullString
		)
		err := rows.Scan(&r.ID, &createdAt, &updatedAt, &r.UserID, &r.BookID,
			&r.Rating, &comment, &r.BookTitle)
		if err != nil {
			return nil, err
		}
		if r.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		if comment.Valid {
			r.Comment = comment.String
		}
		r.IsOwner = true

		reviews = append(reviews, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reviews, nil
}

// UpdateReview updates the rating and comment of a review, but only when it
// belongs to the given user. The ownership check lives in the WHERE clause
// so a forged review ID can never touch someone else's row.
// Returns store.ErrNotFound if the review does not exist or is not theirs.
func (s *Store) UpdateReview(ctx context.Context, userID string, review *domain.Review) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE reviews SET updated_at = ?, rating = ?, comment = ?
		WHERE id = ? AND user_id = ?`,
		formatTime(time.Now()),
		review.Rating,
		nullString(review.Comment),
		review.ID,
		userID,
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
	return nil
}

// DeleteReview removes a review, but only when it belongs to the given user.
// Returns store.ErrNotFound if the review does not exist or is not theirs.
func (s *Store) DeleteReview(ctx context.Context, userID, reviewID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM reviews WHERE id = ? AND user_id = ?`, reviewID, userID)
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
	return nil
}
