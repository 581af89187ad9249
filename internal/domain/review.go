package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrReviewNotFound = errors.New("review not found")
	ErrInvalidRating  = errors.New("rating must be between 1 and 5")
)

// Review is a rating plus text posted against a publication.
type Review struct {
	ID            uuid.UUID `json:"id"`
	PublicationID uuid.UUID `json:"publish"`
	PosterID      uuid.UUID `json:"poster"`
	PosterName    string    `json:"dispname,omitempty"`
	PosterAvatar  *string   `json:"avatar,omitempty"`
	Content       string    `json:"content"`
	Rating        int       `json:"of5"`
	CreatedAt     time.Time `json:"time"`
}

// Comment is a reply under a review, fetched on demand when the review is
// expanded.
type Comment struct {
	ID           uuid.UUID `json:"id"`
	ReviewID     uuid.UUID `json:"review"`
	PosterID     uuid.UUID `json:"poster"`
	PosterName   string    `json:"dispname,omitempty"`
	PosterAvatar *string   `json:"avatar,omitempty"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"time"`
}

// CreateReviewParams holds parameters for review creation.
type CreateReviewParams struct {
	PublicationID uuid.UUID
	PosterID      uuid.UUID
	Content       string
	Rating        int
}

type ReviewRepository interface {
	CreateReview(ctx context.Context, params CreateReviewParams) (*Review, error)
	ListReviews(ctx context.Context, publicationID uuid.UUID, limit, offset int) ([]*Review, error)
	ListRatings(ctx context.Context, publicationID uuid.UUID) ([]int, error)
	DeleteReview(ctx context.Context, id uuid.UUID) error

	CreateComment(ctx context.Context, reviewID, posterID uuid.UUID, content string) (*Comment, error)
	ListComments(ctx context.Context, reviewID uuid.UUID) ([]*Comment, error)
	DeleteComment(ctx context.Context, id uuid.UUID) error
}
