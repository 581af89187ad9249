package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/peerview/backend/internal/domain"
)

// CreateReview inserts a review and returns it with poster display data
func (r *PostgresRepository) CreateReview(ctx context.Context, params domain.CreateReviewParams) (*domain.Review, error) {
	query := `
		INSERT INTO reviews (publication_id, poster_id, content, rating)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	row := r.db.QueryRow(ctx, query,
		params.PublicationID,
		params.PosterID,
		params.Content,
		params.Rating,
	)

	review := &domain.Review{
		PublicationID: params.PublicationID,
		PosterID:      params.PosterID,
		Content:       params.Content,
		Rating:        params.Rating,
	}
	if err := row.Scan(&review.ID, &review.CreatedAt); err != nil {
		return nil, err
	}
	return review, nil
}

// ListReviews returns a page of a publication's reviews, newest first
func (r *PostgresRepository) ListReviews(ctx context.Context, publicationID uuid.UUID, limit, offset int) ([]*domain.Review, error) {
	query := `
		SELECT rv.id, rv.publication_id, rv.poster_id, COALESCE(u.display_name, ''), u.avatar_url, rv.content, rv.rating, rv.created_at
		FROM reviews rv
		LEFT JOIN users u ON u.id = rv.poster_id
		WHERE rv.publication_id = $1
		ORDER BY rv.created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, publicationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []*domain.Review
	for rows.Next() {
		var rv domain.Review
		err := rows.Scan(
			&rv.ID,
			&rv.PublicationID,
			&rv.PosterID,
			&rv.PosterName,
			&rv.PosterAvatar,
			&rv.Content,
			&rv.Rating,
			&rv.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, &rv)
	}
	return reviews, rows.Err()
}

// ListRatings returns every rating posted against a publication
func (r *PostgresRepository) ListRatings(ctx context.Context, publicationID uuid.UUID) ([]int, error) {
	query := `SELECT rating FROM reviews WHERE publication_id = $1`
	rows, err := r.db.Query(ctx, query, publicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ratings []int
	for rows.Next() {
		var rating int
		if err := rows.Scan(&rating); err != nil {
			return nil, err
		}
		ratings = append(ratings, rating)
	}
	return ratings, rows.Err()
}

// DeleteReview removes a review and its comments
func (r *PostgresRepository) DeleteReview(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM reviews WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

// CreateComment inserts a reply under a review
func (r *PostgresRepository) CreateComment(ctx context.Context, reviewID, posterID uuid.UUID, content string) (*domain.Comment, error) {
	query := `
		INSERT INTO review_comments (review_id, poster_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	row := r.db.QueryRow(ctx, query, reviewID, posterID, content)

	comment := &domain.Comment{
		ReviewID: reviewID,
		PosterID: posterID,
		Content:  content,
	}
	if err := row.Scan(&comment.ID, &comment.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrReviewNotFound
		}
		return nil, err
	}
	return comment, nil
}

// ListComments returns the replies under a review, oldest first
func (r *PostgresRepository) ListComments(ctx context.Context, reviewID uuid.UUID) ([]*domain.Comment, error) {
	query := `
		SELECT c.id, c.review_id, c.poster_id, COALESCE(u.display_name, ''), u.avatar_url, c.content, c.created_at
		FROM review_comments c
		LEFT JOIN users u ON u.id = c.poster_id
		WHERE c.review_id = $1
		ORDER BY c.created_at
	`
	rows, err := r.db.Query(ctx, query, reviewID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []*domain.Comment
	for rows.Next() {
		var c domain.Comment
		err := rows.Scan(
			&c.ID,
			&c.ReviewID,
			&c.PosterID,
			&c.PosterName,
			&c.PosterAvatar,
			&c.Content,
			&c.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}

// DeleteComment removes a single comment
func (r *PostgresRepository) DeleteComment(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM review_comments WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}
