package auth

import (
	"context"
	"errors"

	"google.golang.org/api/idtoken"
)

var ErrInvalidGoogleToken = errors.New("invalid google id token")

// GoogleUser holds the identity fields extracted from a verified Google
// ID token.
type GoogleUser struct {
	GoogleID      string
	Email         string
	Name          string
	Picture       string
	EmailVerified bool
}

// GoogleAuthVerifier validates Google ID tokens against an OAuth client ID.
type GoogleAuthVerifier struct {
	clientID string
}

// NewGoogleAuthVerifier creates a verifier for the given client ID.
func NewGoogleAuthVerifier(clientID string) *GoogleAuthVerifier {
	return &GoogleAuthVerifier{clientID: clientID}
}

// VerifyIDToken checks the signature and audience of a Google ID token
// and returns the identity it carries.
func (v *GoogleAuthVerifier) VerifyIDToken(ctx context.Context, rawToken string) (*GoogleUser, error) {
	payload, err := idtoken.Validate(ctx, rawToken, v.clientID)
	if err != nil {
		return nil, ErrInvalidGoogleToken
	}

	user := &GoogleUser{GoogleID: payload.Subject}
	if email, ok := payload.Claims["email"].(string); ok {
		user.Email = email
	}
	if name, ok := payload.Claims["name"].(string); ok {
		user.Name = name
	}
	if picture, ok := payload.Claims["picture"].(string); ok {
		user.Picture = picture
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok {
		user.EmailVerified = verified
	}

	return user, nil
}
