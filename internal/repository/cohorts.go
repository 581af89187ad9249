package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/peerview/backend/internal/domain"
)

const cohortSelect = `
	SELECT c.id, c.name, c.description, c.avatar_url, c.admin_id, COALESCE(u.display_name, ''), c.created_at
	FROM cohorts c
	LEFT JOIN users u ON u.id = c.admin_id
`

// CreateCohort creates a cohort
func (r *PostgresRepository) CreateCohort(ctx context.Context, params domain.CreateCohortParams) (*domain.Cohort, error) {
	query := `
		INSERT INTO cohorts (name, description, avatar_url, admin_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, description, avatar_url, admin_id, '', created_at
	`
	row := r.db.QueryRow(ctx, query,
		params.Name,
		params.Description,
		params.AvatarURL,
		params.AdminID,
	)
	return scanCohort(row)
}

// GetCohortByID retrieves a cohort with its admin's display name
func (r *PostgresRepository) GetCohortByID(ctx context.Context, id uuid.UUID) (*domain.Cohort, error) {
	row := r.db.QueryRow(ctx, cohortSelect+` WHERE c.id = $1`, id)
	return scanCohort(row)
}

// ListCohorts returns a page of cohorts, newest first
func (r *PostgresRepository) ListCohorts(ctx context.Context, limit, offset int) ([]*domain.CohortSummary, error) {
	query := `
		SELECT id, name, avatar_url FROM cohorts
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCohortSummaries(rows)
}

// SearchCohortsByName finds cohorts whose name matches the query
func (r *PostgresRepository) SearchCohortsByName(ctx context.Context, name string, limit, offset int) ([]*domain.CohortSummary, error) {
	query := `
		SELECT id, name, avatar_url FROM cohorts
		WHERE name ILIKE '%' || $1 || '%'
		ORDER BY name
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, name, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCohortSummaries(rows)
}

// UpdateCohort updates the editable cohort fields
func (r *PostgresRepository) UpdateCohort(ctx context.Context, id uuid.UUID, params domain.UpdateCohortParams) (*domain.Cohort, error) {
	query := `
		UPDATE cohorts SET
			name        = $2,
			description = COALESCE($3, description),
			avatar_url  = COALESCE($4, avatar_url)
		WHERE id = $1
		RETURNING id, name, description, avatar_url, admin_id, '', created_at
	`
	row := r.db.QueryRow(ctx, query, id, params.Name, params.Description, params.AvatarURL)
	return scanCohort(row)
}

// SetCohortAdmin transfers cohort administration to another member
func (r *PostgresRepository) SetCohortAdmin(ctx context.Context, cohortID, adminID uuid.UUID) error {
	query := `UPDATE cohorts SET admin_id = $2 WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, cohortID, adminID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCohortNotFound
	}
	return nil
}

// DeleteCohort removes a cohort and its memberships
func (r *PostgresRepository) DeleteCohort(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM cohorts WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

// AddCohortMember adds a user to a cohort
func (r *PostgresRepository) AddCohortMember(ctx context.Context, cohortID, userID uuid.UUID) error {
	query := `INSERT INTO cohort_members (cohort_id, user_id) VALUES ($1, $2)`
	_, err := r.db.Exec(ctx, query, cohortID, userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyMember
		}
		return err
	}
	return nil
}

// RemoveCohortMember removes a user from a cohort
func (r *PostgresRepository) RemoveCohortMember(ctx context.Context, cohortID, userID uuid.UUID) error {
	query := `DELETE FROM cohort_members WHERE cohort_id = $1 AND user_id = $2`
	_, err := r.db.Exec(ctx, query, cohortID, userID)
	return err
}

// ListCohortMembers returns the members of a cohort with display names
func (r *PostgresRepository) ListCohortMembers(ctx context.Context, cohortID uuid.UUID) ([]*domain.CohortMember, error) {
	query := `
		SELECT m.user_id, u.display_name
		FROM cohort_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.cohort_id = $1
		ORDER BY u.display_name
	`
	rows, err := r.db.Query(ctx, query, cohortID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*domain.CohortMember
	for rows.Next() {
		var m domain.CohortMember
		if err := rows.Scan(&m.UserID, &m.DisplayName); err != nil {
			return nil, err
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}

// ListUserCohorts returns the cohorts a user belongs to
func (r *PostgresRepository) ListUserCohorts(ctx context.Context, userID uuid.UUID) ([]*domain.CohortSummary, error) {
	query := `
		SELECT c.id, c.name, c.avatar_url
		FROM cohorts c
		JOIN cohort_members m ON m.cohort_id = c.id
		WHERE m.user_id = $1
		ORDER BY c.name
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCohortSummaries(rows)
}

func scanCohort(row pgx.Row) (*domain.Cohort, error) {
	var c domain.Cohort
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Description,
		&c.AvatarURL,
		&c.AdminID,
		&c.AdminName,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCohortNotFound
		}
		return nil, err
	}
	return &c, nil
}

func scanCohortSummaries(rows pgx.Rows) ([]*domain.CohortSummary, error) {
	var summaries []*domain.CohortSummary
	for rows.Next() {
		var s domain.CohortSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.AvatarURL); err != nil {
			return nil, err
		}
		summaries = append(summaries, &s)
	}
	return summaries, rows.Err()
}
