package domain

import (
	"context"

	"github.com/google/uuid"
)

// ReviewService handles reviews, ratings and comments.
type ReviewService struct {
	repo ReviewRepository
}

func NewReviewService(repo ReviewRepository) *ReviewService {
	return &ReviewService{repo: repo}
}

// PostReview stores a review against a publication.
func (s *ReviewService) PostReview(ctx context.Context, params CreateReviewParams) (*Review, error) {
	if params.Rating < 1 || params.Rating > 5 {
		return nil, ErrInvalidRating
	}
	return s.repo.CreateReview(ctx, params)
}

// Reviews returns a page of reviews for a publication, oldest first.
func (s *ReviewService) Reviews(ctx context.Context, publicationID uuid.UUID, offset int) ([]*Review, error) {
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListReviews(ctx, publicationID, FeedPageSize, offset)
}

// AverageRating aggregates the of-5 ratings for a publication. The zero
// count case returns 0 without error so pages without reviews render.
func (s *ReviewService) AverageRating(ctx context.Context, publicationID uuid.UUID) (float64, int, error) {
	ratings, err := s.repo.ListRatings(ctx, publicationID)
	if err != nil {
		return 0, 0, err
	}
	if len(ratings) == 0 {
		return 0, 0, nil
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return float64(sum) / float64(len(ratings)), len(ratings), nil
}

// DeleteReview removes a review; attached comments cascade in the store.
func (s *ReviewService) DeleteReview(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteReview(ctx, id)
}

// PostComment stores a reply under a review.
func (s *ReviewService) PostComment(ctx context.Context, reviewID, posterID uuid.UUID, content string) (*Comment, error) {
	return s.repo.CreateComment(ctx, reviewID, posterID, content)
}

// Comments lists the replies under a review, newest first. This is the
// on-demand fetch behind the review expand action.
func (s *ReviewService) Comments(ctx context.Context, reviewID uuid.UUID) ([]*Comment, error) {
	return s.repo.ListComments(ctx, reviewID)
}

// DeleteComment removes one comment.
func (s *ReviewService) DeleteComment(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteComment(ctx, id)
}
