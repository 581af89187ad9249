package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/peerview/backend/internal/domain"
)

const publicationSelect = `
	SELECT
		p.id, p.title, p.user_id, COALESCE(u.display_name, ''),
		p.link, p.file_url, p.abstract,
		p.area_id, COALESCE(a.name, ''),
		p.cohort_id, COALESCE(c.name, ''),
		p.created_at
	FROM publications p
	LEFT JOIN users u   ON u.id = p.user_id
	LEFT JOIN areas a   ON a.id = p.area_id
	LEFT JOIN cohorts c ON c.id = p.cohort_id
`

const publicationSummarySelect = `
	SELECT p.id, p.title, p.abstract, COALESCE(u.display_name, ''), p.created_at
	FROM publications p
	LEFT JOIN users u ON u.id = p.user_id
`

// CreatePublication inserts a publication under its client-generated id
func (r *PostgresRepository) CreatePublication(ctx context.Context, params domain.CreatePublicationParams) error {
	query := `
		INSERT INTO publications (id, title, user_id, link, file_url, abstract, area_id, cohort_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		params.ID,
		params.Title,
		params.UserID,
		params.Link,
		params.FileURL,
		params.Abstract,
		params.AreaID,
		params.CohortID,
	)
	return err
}

// GetPublicationByID fetches a publication with its display data
func (r *PostgresRepository) GetPublicationByID(ctx context.Context, id uuid.UUID) (*domain.Publication, error) {
	row := r.db.QueryRow(ctx, publicationSelect+` WHERE p.id = $1`, id)

	var p domain.Publication
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.UserID,
		&p.UserName,
		&p.Link,
		&p.FileURL,
		&p.Abstract,
		&p.AreaID,
		&p.AreaName,
		&p.CohortID,
		&p.CohortName,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPublicationNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListPublications returns a page of the general feed, newest first
func (r *PostgresRepository) ListPublications(ctx context.Context, limit, offset int) ([]*domain.PublicationSummary, error) {
	query := publicationSummarySelect + `
		ORDER BY p.created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPublicationSummaries(rows)
}

// SearchPublicationsByTitle finds publications matching a title fragment
func (r *PostgresRepository) SearchPublicationsByTitle(ctx context.Context, title string, limit, offset int) ([]*domain.PublicationSummary, error) {
	query := publicationSummarySelect + `
		WHERE p.title ILIKE '%' || $1 || '%'
		ORDER BY p.created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, title, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPublicationSummaries(rows)
}

// ListPublicationsByUser returns everything a user has posted
func (r *PostgresRepository) ListPublicationsByUser(ctx context.Context, userID uuid.UUID) ([]*domain.PublicationSummary, error) {
	query := publicationSummarySelect + `
		WHERE p.user_id = $1
		ORDER BY p.created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPublicationSummaries(rows)
}

// ListPublicationsByCohort returns everything shared with a cohort
func (r *PostgresRepository) ListPublicationsByCohort(ctx context.Context, cohortID uuid.UUID) ([]*domain.PublicationSummary, error) {
	query := publicationSummarySelect + `
		WHERE p.cohort_id = $1
		ORDER BY p.created_at DESC
	`
	rows, err := r.db.Query(ctx, query, cohortID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPublicationSummaries(rows)
}

// UpdatePublication updates the editable publication fields
func (r *PostgresRepository) UpdatePublication(ctx context.Context, id uuid.UUID, params domain.UpdatePublicationParams) error {
	query := `
		UPDATE publications SET
			title     = $2,
			link      = COALESCE($3, link),
			file_url  = COALESCE($4, file_url),
			abstract  = COALESCE($5, abstract),
			area_id   = COALESCE($6, area_id),
			cohort_id = COALESCE($7, cohort_id)
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id,
		params.Title,
		params.Link,
		params.FileURL,
		params.Abstract,
		params.AreaID,
		params.CohortID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPublicationNotFound
	}
	return nil
}

// DeletePublication removes a publication with its citations and reviews
func (r *PostgresRepository) DeletePublication(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM publications WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

// CreateCitations batch-inserts the citations of a publication
func (r *PostgresRepository) CreateCitations(ctx context.Context, citations []domain.CreateCitationParams) error {
	if len(citations) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `INSERT INTO citations (link, text, publication_id) VALUES ($1, $2, $3)`
	for _, c := range citations {
		batch.Queue(query, c.Link, c.Text, c.PublicationID)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range citations {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// ListCitations returns the citations of a publication
func (r *PostgresRepository) ListCitations(ctx context.Context, publicationID uuid.UUID) ([]*domain.Citation, error) {
	query := `
		SELECT id, link, text, publication_id FROM citations
		WHERE publication_id = $1
		ORDER BY id
	`
	rows, err := r.db.Query(ctx, query, publicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var citations []*domain.Citation
	for rows.Next() {
		var c domain.Citation
		if err := rows.Scan(&c.ID, &c.Link, &c.Text, &c.PublicationID); err != nil {
			return nil, err
		}
		citations = append(citations, &c)
	}
	return citations, rows.Err()
}

// DeleteCitation removes a single citation
func (r *PostgresRepository) DeleteCitation(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM citations WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

// ListAreas returns the research-area taxonomy
func (r *PostgresRepository) ListAreas(ctx context.Context) ([]*domain.Area, error) {
	query := `SELECT id, name FROM areas ORDER BY name`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var areas []*domain.Area
	for rows.Next() {
		var a domain.Area
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, err
		}
		areas = append(areas, &a)
	}
	return areas, rows.Err()
}

func scanPublicationSummaries(rows pgx.Rows) ([]*domain.PublicationSummary, error) {
	var summaries []*domain.PublicationSummary
	for rows.Next() {
		var s domain.PublicationSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.Abstract, &s.UserName, &s.CreatedAt); err != nil {
			return nil, err
		}
		summaries = append(summaries, &s)
	}
	return summaries, rows.Err()
}
