package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/peerview/backend/internal/domain"
)

// feedSelect joins a notification row with the display data each kind
// needs. Referenced entities may have been deleted since the notification
// was written, so every join is LEFT and missing fields come back empty.
const feedSelect = `
	SELECT
		n.id, n.kind, n.sender_id, n.cohort_id, n.publication_id, n.review_id, n.comment_id,
		n.recipient_id, n.created_at,
		COALESCE(u.display_name, ''),
		COALESCE(g.name, ''),
		COALESCE(p.title, ''),
		COALESCE(rv.content, ''),
		COALESCE(c.content, '')
	FROM notifications n
	LEFT JOIN users u         ON u.id = n.sender_id
	LEFT JOIN cohorts g       ON g.id = n.cohort_id
	LEFT JOIN publications p  ON p.id = n.publication_id
	LEFT JOIN reviews rv      ON rv.id = n.review_id
	LEFT JOIN review_comments c ON c.id = n.comment_id
`

// CreateNotification persists a notification under its client-generated id.
// An id collision maps to domain.ErrDuplicateNotification; any other
// database fault maps to domain.ErrStoreUnavailable.
func (r *PostgresRepository) CreateNotification(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (id, kind, sender_id, cohort_id, publication_id, review_id, comment_id, recipient_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		n.ID,
		n.Kind,
		n.Sender,
		n.Cohort,
		n.Publication,
		n.Review,
		n.Comment,
		n.Recipient,
		n.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateNotification
		}
		return storeFault(err)
	}
	return nil
}

// GetNotificationByID fetches one notification with its display data.
func (r *PostgresRepository) GetNotificationByID(ctx context.Context, id uuid.UUID) (*domain.FeedNotification, error) {
	row := r.db.QueryRow(ctx, feedSelect+` WHERE n.id = $1`, id)

	n, err := scanFeedNotification(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotificationNotFound
		}
		return nil, storeFault(err)
	}
	return n, nil
}

// GetNotificationPage returns one page of a recipient's feed, newest first.
// An empty page is a valid result, not an error.
func (r *PostgresRepository) GetNotificationPage(ctx context.Context, recipient uuid.UUID, offset, limit int) ([]*domain.FeedNotification, error) {
	query := feedSelect + `
		WHERE n.recipient_id = $1
		ORDER BY n.created_at DESC, n.id
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, recipient, limit, offset)
	if err != nil {
		return nil, storeFault(err)
	}
	defer rows.Close()

	var page []*domain.FeedNotification
	for rows.Next() {
		n, err := scanFeedNotification(rows)
		if err != nil {
			return nil, storeFault(err)
		}
		page = append(page, n)
	}
	if err := rows.Err(); err != nil {
		return nil, storeFault(err)
	}
	return page, nil
}

// DeleteNotification removes a notification. Deleting an id that no longer
// exists is not an error.
func (r *PostgresRepository) DeleteNotification(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM notifications WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return storeFault(err)
	}
	return nil
}

func scanFeedNotification(row pgx.Row) (*domain.FeedNotification, error) {
	var n domain.FeedNotification
	err := row.Scan(
		&n.ID,
		&n.Kind,
		&n.Sender,
		&n.Cohort,
		&n.Publication,
		&n.Review,
		&n.Comment,
		&n.Recipient,
		&n.CreatedAt,
		&n.SenderName,
		&n.CohortName,
		&n.PublicationTitle,
		&n.ReviewText,
		&n.CommentText,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// storeFault wraps a database error as a retryable store fault.
func storeFault(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}
