package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents a PeerView account in the domain layer.
type User struct {
	ID            uuid.UUID `json:"id"`
	GoogleID      *string   `json:"-"`
	Email         *string   `json:"email,omitempty"`
	DisplayName   string    `json:"dispname"`
	FirstName     *string   `json:"fname,omitempty"`
	LastName      *string   `json:"lname,omitempty"`
	AvatarURL     *string   `json:"avatar,omitempty"`
	About         *string   `json:"about,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// UserResponse is the public representation of a user.
type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"dispname"`
	FirstName   string    `json:"fname,omitempty"`
	LastName    string    `json:"lname,omitempty"`
	AvatarURL   string    `json:"avatar,omitempty"`
	About       string    `json:"about,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToResponse converts a User to its public representation.
func (u *User) ToResponse() *UserResponse {
	resp := &UserResponse{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
	}
	if u.Email != nil {
		resp.Email = *u.Email
	}
	if u.FirstName != nil {
		resp.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		resp.LastName = *u.LastName
	}
	if u.AvatarURL != nil {
		resp.AvatarURL = *u.AvatarURL
	}
	if u.About != nil {
		resp.About = *u.About
	}
	return resp
}

// Session represents a signed-in device.
type Session struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	DeviceInfo     *string   `json:"device_info,omitempty"`
	IPAddress      *string   `json:"ip_address,omitempty"`
	UserAgent      *string   `json:"user_agent,omitempty"`
	FCMToken       *string   `json:"fcm_token,omitempty"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// RefreshToken represents a stored refresh token.
type RefreshToken struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	SessionID *uuid.UUID `json:"session_id,omitempty"`
	TokenHash string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	Revoked   bool       `json:"revoked"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// UpdateProfileParams holds the editable profile fields. Nil pointers leave
// the stored value untouched.
type UpdateProfileParams struct {
	DisplayName *string
	FirstName   *string
	LastName    *string
	Email       *string
	AvatarURL   *string
	About       *string
}
