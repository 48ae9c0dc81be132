package domain

// Review is a customer's rating and comment for a book.
// A user holds at most one review per book; resubmitting replaces it.
type Review struct {
	Record
	UserID  string `json:"user_id"`
	BookID  string `json:"book_id"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`

	// ReviewerName is joined from the users table for display.
	ReviewerName string `json:"reviewer_name,omitempty"`
	// BookTitle is joined from the books table for profile listings.
	BookTitle string `json:"book_title,omitempty"`
	// IsOwner tells the requesting client whether it may edit this review.
	IsOwner bool `json:"is_owner"`
}

const (
	// MinRating and MaxRating bound the allowed star rating.
	MinRating = 1
	MaxRating = 5
)

// ValidRating reports whether the rating is within the allowed range.
func ValidRating(rating int) bool {
	return rating >= MinRating && rating <= MaxRating
}
