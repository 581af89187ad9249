package domain

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/peerview/backend/internal/auth"
	"github.com/peerview/backend/internal/storage"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrSessionExpired     = errors.New("session has expired")
)

// AuthRepository defines the interface for identity data access. The
// Google-subject lookup doubles as the resolveInternalId operation the
// notification router depends on.
type AuthRepository interface {
	CreateUser(ctx context.Context, params CreateUserParams) (*User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*User, error)
	VerifyUserPassword(ctx context.Context, email, password string) (*User, error)
	LinkGoogleAccount(ctx context.Context, userID uuid.UUID, googleID string) (*User, error)
	UserExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateUserProfile(ctx context.Context, userID uuid.UUID, params UpdateProfileParams) (*User, error)
	SearchUsersByName(ctx context.Context, name string, limit, offset int) ([]*User, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error

	CreateSession(ctx context.Context, params CreateSessionParams) (*Session, error)
	GetSessionByID(ctx context.Context, id uuid.UUID) (*Session, error)
	DeactivateSession(ctx context.Context, id uuid.UUID) error
	DeactivateUserSessions(ctx context.Context, userID uuid.UUID) error

	CreateRefreshToken(ctx context.Context, params CreateRefreshTokenParams) (*RefreshToken, error)
	GetRefreshTokenByHash(ctx context.Context, hash string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id uuid.UUID) error
	RevokeRefreshTokenByHash(ctx context.Context, hash string) error
	RevokeUserRefreshTokens(ctx context.Context, userID uuid.UUID) error
}

// CreateUserParams holds parameters for user creation.
type CreateUserParams struct {
	Email         *string
	PasswordHash  *string
	DisplayName   string
	GoogleID      *string
	AvatarURL     *string
	EmailVerified bool
}

// CreateSessionParams holds parameters for session creation.
type CreateSessionParams struct {
	UserID     uuid.UUID
	DeviceInfo *string
	IPAddress  *string
	UserAgent  *string
	ExpiresAt  time.Time
}

// CreateRefreshTokenParams holds parameters for refresh token creation.
type CreateRefreshTokenParams struct {
	UserID    uuid.UUID
	SessionID *uuid.UUID
	TokenHash string
	ExpiresAt time.Time
}

// AuthService handles authentication business logic.
type AuthService struct {
	repo    AuthRepository
	jwt     *auth.JWTManager
	google  *auth.GoogleAuthVerifier
	storage storage.FileStorage
}

func NewAuthService(repo AuthRepository, jwt *auth.JWTManager, google *auth.GoogleAuthVerifier, fileStorage storage.FileStorage) *AuthService {
	return &AuthService{
		repo:    repo,
		jwt:     jwt,
		google:  google,
		storage: fileStorage,
	}
}

// AuthResult bundles the signed-in user with a fresh token pair.
type AuthResult struct {
	User         *UserResponse `json:"user"`
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	IsNewUser    bool          `json:"is_new_user,omitempty"`
}

// Register creates a new user with email/password.
func (s *AuthService) Register(ctx context.Context, email, password, displayName string) (*AuthResult, error) {
	exists, err := s.repo.UserExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.CreateUser(ctx, CreateUserParams{
		Email:        &email,
		PasswordHash: &passwordHash,
		DisplayName:  displayName,
	})
	if err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, user, email, true)
}

// Login authenticates a user with email/password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.repo.VerifyUserPassword(ctx, email, password)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issueTokens(ctx, user, email, false)
}

// GoogleLogin verifies a Google ID token and signs the matching user in,
// creating or linking the account as needed.
func (s *AuthService) GoogleLogin(ctx context.Context, idToken string) (*AuthResult, error) {
	googleUser, err := s.google.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}

	isNewUser := false
	user, err := s.repo.GetUserByGoogleID(ctx, googleUser.GoogleID)
	if err != nil {
		user, err = s.repo.GetUserByEmail(ctx, googleUser.Email)
		if err != nil {
			googleID := googleUser.GoogleID
			params := CreateUserParams{
				Email:         &googleUser.Email,
				DisplayName:   googleUser.Name,
				GoogleID:      &googleID,
				EmailVerified: googleUser.EmailVerified,
			}
			if googleUser.Picture != "" {
				avatar := googleUser.Picture
				params.AvatarURL = &avatar
			}
			user, err = s.repo.CreateUser(ctx, params)
			if err != nil {
				return nil, err
			}
			isNewUser = true
		} else {
			user, err = s.repo.LinkGoogleAccount(ctx, user.ID, googleUser.GoogleID)
			if err != nil {
				return nil, err
			}
		}
	}

	return s.issueTokens(ctx, user, googleUser.Email, isNewUser)
}

// RefreshResult represents the result of token refresh.
type RefreshResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RefreshToken validates and rotates a refresh token. A revoked token being
// replayed revokes every token the user holds.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	tokenHash := auth.HashToken(refreshToken)
	storedToken, err := s.repo.GetRefreshTokenByHash(ctx, tokenHash)
	if err != nil {
		return nil, ErrTokenRevoked
	}

	if storedToken.Revoked {
		_ = s.repo.RevokeUserRefreshTokens(ctx, claims.UserID)
		return nil, ErrTokenRevoked
	}

	_ = s.repo.RevokeRefreshToken(ctx, storedToken.ID)

	user, err := s.repo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	email := ""
	if user.Email != nil {
		email = *user.Email
	}

	tokenPair, err := s.jwt.GenerateTokenPair(claims.UserID, email, storedToken.SessionID)
	if err != nil {
		return nil, err
	}

	newTokenHash := auth.HashToken(tokenPair.RefreshToken)
	_, err = s.repo.CreateRefreshToken(ctx, CreateRefreshTokenParams{
		UserID:    claims.UserID,
		SessionID: storedToken.SessionID,
		TokenHash: newTokenHash,
		ExpiresAt: tokenPair.ExpiresAt,
	})
	if err != nil {
		return nil, err
	}

	return &RefreshResult{
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
	}, nil
}

// Logout revokes a refresh token and deactivates its session.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if claims, err := s.jwt.ValidateRefreshToken(refreshToken); err == nil && claims.SessionID != nil {
		_ = s.repo.DeactivateSession(ctx, *claims.SessionID)
	}
	tokenHash := auth.HashToken(refreshToken)
	return s.repo.RevokeRefreshTokenByHash(ctx, tokenHash)
}

// LogoutAll revokes all refresh tokens and sessions for a user.
func (s *AuthService) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.DeactivateUserSessions(ctx, userID); err != nil {
		return err
	}
	return s.repo.RevokeUserRefreshTokens(ctx, userID)
}

// GetSession retrieves an active session by id.
func (s *AuthService) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.repo.GetSessionByID(ctx, id)
}

// ResolveInternalID maps a Google subject to the internal user id. The
// notification router uses this to decide whether a relayed message is
// addressed to the connected identity.
func (s *AuthService) ResolveInternalID(ctx context.Context, googleID string) (uuid.UUID, error) {
	user, err := s.repo.GetUserByGoogleID(ctx, googleID)
	if err != nil {
		return uuid.Nil, err
	}
	return user.ID, nil
}

// GetUserByID retrieves a user by id.
func (s *AuthService) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// UpdateProfile updates the editable profile fields.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, params UpdateProfileParams) (*User, error) {
	return s.repo.UpdateUserProfile(ctx, userID, params)
}

// UpdateAvatar uploads a new avatar and points the profile at it.
func (s *AuthService) UpdateAvatar(ctx context.Context, userID uuid.UUID, avatar io.Reader, filename, contentType string) (*User, error) {
	url, err := s.storage.SaveFile(ctx, avatar, filename, contentType)
	if err != nil {
		return nil, err
	}
	return s.repo.UpdateUserProfile(ctx, userID, UpdateProfileParams{AvatarURL: &url})
}

// SearchUsers finds users by display name fragment.
func (s *AuthService) SearchUsers(ctx context.Context, name string, limit, offset int) ([]*User, error) {
	return s.repo.SearchUsersByName(ctx, name, limit, offset)
}

// DeleteAccount deactivates a user and revokes everything they hold.
func (s *AuthService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.RevokeUserRefreshTokens(ctx, userID); err != nil {
		return err
	}
	if err := s.repo.DeactivateUserSessions(ctx, userID); err != nil {
		return err
	}
	return s.repo.DeleteUser(ctx, userID)
}

func (s *AuthService) issueTokens(ctx context.Context, user *User, email string, isNewUser bool) (*AuthResult, error) {
	session, err := s.repo.CreateSession(ctx, CreateSessionParams{
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(s.jwt.RefreshExpiry()),
	})
	if err != nil {
		return nil, err
	}

	tokenPair, err := s.jwt.GenerateTokenPair(user.ID, email, &session.ID)
	if err != nil {
		return nil, err
	}

	tokenHash := auth.HashToken(tokenPair.RefreshToken)
	_, err = s.repo.CreateRefreshToken(ctx, CreateRefreshTokenParams{
		UserID:    user.ID,
		SessionID: &session.ID,
		TokenHash: tokenHash,
		ExpiresAt: tokenPair.ExpiresAt,
	})
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		User:         user.ToResponse(),
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		IsNewUser:    isNewUser,
	}, nil
}
