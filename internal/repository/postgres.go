package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/peerview/backend/internal/auth"
	"github.com/peerview/backend/internal/domain"
)

// PostgresRepository implements the domain repository interfaces using
// PostgreSQL. One struct backs all of them so handlers share a single pool.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateUser creates a new user
func (r *PostgresRepository) CreateUser(ctx context.Context, params domain.CreateUserParams) (*domain.User, error) {
	query := `
		INSERT INTO users (email, password_hash, display_name, google_id, avatar_url, email_verified)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, google_id, email, display_name, first_name, last_name, avatar_url, about, email_verified, is_active, created_at, updated_at
	`

	row := r.db.QueryRow(ctx, query,
		params.Email,
		params.PasswordHash,
		params.DisplayName,
		params.GoogleID,
		params.AvatarURL,
		params.EmailVerified,
	)

	return scanUser(row)
}

// GetUserByID retrieves a user by ID
func (r *PostgresRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `
		SELECT id, google_id, email, display_name, first_name, last_name, avatar_url, about, email_verified, is_active, created_at, updated_at
		FROM users WHERE id = $1 AND is_active = TRUE
	`
	row := r.db.QueryRow(ctx, query, id)
	return scanUser(row)
}

// GetUserByEmail retrieves a user by email
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT id, google_id, email, display_name, first_name, last_name, avatar_url, about, email_verified, is_active, created_at, updated_at
		FROM users WHERE email = $1 AND is_active = TRUE
	`
	row := r.db.QueryRow(ctx, query, email)
	return scanUser(row)
}

// GetUserByGoogleID retrieves a user by Google subject
func (r *PostgresRepository) GetUserByGoogleID(ctx context.Context, googleID string) (*domain.User, error) {
	query := `
		SELECT id, google_id, email, display_name, first_name, last_name, avatar_url, about, email_verified, is_active, created_at, updated_at
		FROM users WHERE google_id = $1 AND is_active = TRUE
	`
	row := r.db.QueryRow(ctx, query, googleID)
	return scanUser(row)
}

// VerifyUserPassword verifies a user's password
func (r *PostgresRepository) VerifyUserPassword(ctx context.Context, email, password string) (*domain.User, error) {
	query := `
		SELECT id, google_id, email, display_name, first_name, last_name, avatar_url, about, email_verified, is_active, created_at, updated_at, password_hash
		FROM users WHERE email = $1 AND is_active = TRUE
	`
	row := r.db.QueryRow(ctx, query, email)

	var user domain.User
	var passwordHash *string
	err := row.Scan(
		&user.ID,
		&user.GoogleID,
		&user.Email,
		&user.DisplayName,
		&user.FirstName,
		&user.LastName,
		&user.AvatarURL,
		&user.About,
		&user.EmailVerified,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
		&passwordHash,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	if passwordHash == nil || *passwordHash == "" {
		return nil, domain.ErrInvalidCredentials
	}

	if err := auth.VerifyPassword(password, *passwordHash); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return &user, nil
}

// LinkGoogleAccount attaches a Google subject to an existing user
func (r *PostgresRepository) LinkGoogleAccount(ctx context.Context, userID uuid.UUID, googleID string) (*domain.User, error) {
	query := `
		UPDATE users SET google_id = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id, google_id, email, display_name, first_name, last_name, avatar_url, about, email_verified, is_active, created_at, updated_at
	`
	row := r.db.QueryRow(ctx, query, userID, googleID)
	return scanUser(row)
}

// UserExistsByEmail checks if a user exists by email
func (r *PostgresRepository) UserExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`
	var exists bool
	err := r.db.QueryRow(ctx, query, email).Scan(&exists)
	return exists, err
}

// UpdateUserProfile updates the editable profile fields. Nil params keep
// the stored value via COALESCE.
func (r *PostgresRepository) UpdateUserProfile(ctx context.Context, userID uuid.UUID, params domain.UpdateProfileParams) (*domain.User, error) {
	query := `
		UPDATE users SET
			display_name = COALESCE($2, display_name),
			first_name   = COALESCE($3, first_name),
			last_name    = COALESCE($4, last_name),
			email        = COALESCE($5, email),
			avatar_url   = COALESCE($6, avatar_url),
			about        = COALESCE($7, about),
			updated_at   = NOW()
		WHERE id = $1 AND is_active = TRUE
		RETURNING id, google_id, email, display_name, first_name, last_name, avatar_url, about, email_verified, is_active, created_at, updated_at
	`
	row := r.db.QueryRow(ctx, query, userID,
		params.DisplayName,
		params.FirstName,
		params.LastName,
		params.Email,
		params.AvatarURL,
		params.About,
	)
	return scanUser(row)
}

// SearchUsersByName finds users whose display name matches the query
func (r *PostgresRepository) SearchUsersByName(ctx context.Context, name string, limit, offset int) ([]*domain.User, error) {
	query := `
		SELECT id, google_id, email, display_name, first_name, last_name, avatar_url, about, email_verified, is_active, created_at, updated_at
		FROM users
		WHERE display_name ILIKE '%' || $1 || '%' AND is_active = TRUE
		ORDER BY display_name
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, name, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// DeleteUser soft-deletes a user account
func (r *PostgresRepository) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	query := `UPDATE users SET is_active = FALSE, updated_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(ctx, query, userID)
	return err
}

// CreateSession creates a new session
func (r *PostgresRepository) CreateSession(ctx context.Context, params domain.CreateSessionParams) (*domain.Session, error) {
	query := `
		INSERT INTO sessions (user_id, device_info, ip_address, user_agent, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, device_info, ip_address, user_agent, fcm_token, is_active, created_at, expires_at, last_activity_at
	`
	row := r.db.QueryRow(ctx, query,
		params.UserID,
		params.DeviceInfo,
		params.IPAddress,
		params.UserAgent,
		params.ExpiresAt,
	)
	return scanSession(row)
}

// GetSessionByID retrieves a session by ID
func (r *PostgresRepository) GetSessionByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	query := `
		SELECT id, user_id, device_info, ip_address, user_agent, fcm_token, is_active, created_at, expires_at, last_activity_at
		FROM sessions WHERE id = $1 AND is_active = TRUE
	`
	row := r.db.QueryRow(ctx, query, id)
	return scanSession(row)
}

// DeactivateSession deactivates a session
func (r *PostgresRepository) DeactivateSession(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE sessions SET is_active = FALSE WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

// DeactivateUserSessions deactivates all sessions for a user
func (r *PostgresRepository) DeactivateUserSessions(ctx context.Context, userID uuid.UUID) error {
	query := `UPDATE sessions SET is_active = FALSE WHERE user_id = $1`
	_, err := r.db.Exec(ctx, query, userID)
	return err
}

// UpdateSessionFCMToken stores the device push token on a session
func (r *PostgresRepository) UpdateSessionFCMToken(ctx context.Context, sessionID uuid.UUID, fcmToken string) error {
	query := `UPDATE sessions SET fcm_token = $2, last_activity_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(ctx, query, sessionID, fcmToken)
	return err
}

// GetFCMTokens returns the push tokens of a user's active sessions
func (r *PostgresRepository) GetFCMTokens(ctx context.Context, userID uuid.UUID) ([]string, error) {
	query := `
		SELECT fcm_token FROM sessions
		WHERE user_id = $1 AND is_active = TRUE AND fcm_token IS NOT NULL AND expires_at > NOW()
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

// CreateRefreshToken creates a new refresh token
func (r *PostgresRepository) CreateRefreshToken(ctx context.Context, params domain.CreateRefreshTokenParams) (*domain.RefreshToken, error) {
	query := `
		INSERT INTO refresh_tokens (user_id, session_id, token_hash, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, session_id, token_hash, expires_at, revoked, revoked_at, created_at
	`
	row := r.db.QueryRow(ctx, query,
		params.UserID,
		params.SessionID,
		params.TokenHash,
		params.ExpiresAt,
	)
	return scanRefreshToken(row)
}

// GetRefreshTokenByHash retrieves a refresh token by hash
func (r *PostgresRepository) GetRefreshTokenByHash(ctx context.Context, hash string) (*domain.RefreshToken, error) {
	query := `
		SELECT id, user_id, session_id, token_hash, expires_at, revoked, revoked_at, created_at
		FROM refresh_tokens
		WHERE token_hash = $1 AND expires_at > NOW()
	`
	row := r.db.QueryRow(ctx, query, hash)
	return scanRefreshToken(row)
}

// RevokeRefreshToken revokes a refresh token by ID
func (r *PostgresRepository) RevokeRefreshToken(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

// RevokeRefreshTokenByHash revokes a refresh token by hash
func (r *PostgresRepository) RevokeRefreshTokenByHash(ctx context.Context, hash string) error {
	query := `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = NOW() WHERE token_hash = $1`
	_, err := r.db.Exec(ctx, query, hash)
	return err
}

// RevokeUserRefreshTokens revokes all refresh tokens for a user
func (r *PostgresRepository) RevokeUserRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	query := `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = NOW() WHERE user_id = $1`
	_, err := r.db.Exec(ctx, query, userID)
	return err
}

// Helper functions for scanning rows

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.GoogleID,
		&user.Email,
		&user.DisplayName,
		&user.FirstName,
		&user.LastName,
		&user.AvatarURL,
		&user.About,
		&user.EmailVerified,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var session domain.Session
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.DeviceInfo,
		&session.IPAddress,
		&session.UserAgent,
		&session.FCMToken,
		&session.IsActive,
		&session.CreatedAt,
		&session.ExpiresAt,
		&session.LastActivityAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionExpired
		}
		return nil, err
	}
	return &session, nil
}

func scanRefreshToken(row pgx.Row) (*domain.RefreshToken, error) {
	var token domain.RefreshToken
	err := row.Scan(
		&token.ID,
		&token.UserID,
		&token.SessionID,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.Revoked,
		&token.RevokedAt,
		&token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTokenRevoked
		}
		return nil, err
	}
	return &token, nil
}

// CleanupExpiredTokens removes expired and revoked tokens
func (r *PostgresRepository) CleanupExpiredTokens(ctx context.Context) error {
	queries := []string{
		`DELETE FROM refresh_tokens WHERE expires_at < NOW() OR revoked = TRUE AND revoked_at < NOW() - INTERVAL '7 days'`,
		`UPDATE sessions SET is_active = FALSE WHERE expires_at < NOW()`,
	}

	for _, query := range queries {
		if _, err := r.db.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// StartCleanupWorker starts a background worker to clean up expired tokens
func (r *PostgresRepository) StartCleanupWorker(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = r.CleanupExpiredTokens(ctx)
			}
		}
	}()
}
