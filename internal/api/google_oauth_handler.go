package api

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/peerview/backend/internal/auth"
	"github.com/peerview/backend/internal/config"
	"github.com/peerview/backend/internal/domain"
)

const oauthStateCookie = "pv_oauth_state"

// GoogleOAuthHandler handles the browser-based Google sign-in flow. It
// sits alongside the idtoken endpoint: native clients post an ID token
// directly, browsers go through the redirect dance and end up at the
// same AuthService.GoogleLogin.
type GoogleOAuthHandler struct {
	config        *oauth2.Config
	authService   *domain.AuthService
	notifications *domain.NotificationService
	frontendURL   string
	logger        *zap.Logger
}

// NewGoogleOAuthHandler creates a new Google OAuth handler
func NewGoogleOAuthHandler(cfg *config.Config, authService *domain.AuthService, notifications *domain.NotificationService, logger *zap.Logger) *GoogleOAuthHandler {
	conf := &oauth2.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}

	return &GoogleOAuthHandler{
		config:        conf,
		authService:   authService,
		notifications: notifications,
		frontendURL:   cfg.Google.FrontendURL,
		logger:        logger,
	}
}

// Login starts the OAuth flow by redirecting the browser to Google. The
// state nonce is kept in a short-lived cookie and checked on callback.
func (h *GoogleOAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := auth.GenerateSecureToken(16)
	if err != nil {
		h.logger.Error("Failed to generate oauth state", zap.Error(err))
		http.Error(w, "failed to start sign-in", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.config.AuthCodeURL(state, oauth2.AccessTypeOffline), http.StatusTemporaryRedirect)
}

// Callback handles the redirect back from Google: it checks the state,
// exchanges the authorization code, and signs the user in with the ID
// token riding on the exchange response.
func (h *GoogleOAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		h.redirectWithError(w, r, "invalid sign-in state")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.redirectWithError(w, r, "authorization code missing")
		return
	}

	token, err := h.config.Exchange(ctx, code)
	if err != nil {
		h.logger.Error("Failed to exchange code for token", zap.Error(err))
		h.redirectWithError(w, r, "failed to authenticate with google")
		return
	}

	idToken, ok := token.Extra("id_token").(string)
	if !ok {
		h.logger.Error("No ID token in exchange response")
		h.redirectWithError(w, r, "failed to get user info from google")
		return
	}

	result, err := h.authService.GoogleLogin(ctx, idToken)
	if err != nil {
		h.logger.Error("Google sign-in failed", zap.Error(err))
		h.redirectWithError(w, r, "failed to sign in")
		return
	}

	if result.IsNewUser {
		sendWelcome(r, h.notifications, h.logger, result.User.ID)
	}

	// Tokens ride in the fragment so they never hit server logs
	dest := fmt.Sprintf("%s/auth/callback#access_token=%s&refresh_token=%s",
		h.frontendURL,
		url.QueryEscape(result.AccessToken),
		url.QueryEscape(result.RefreshToken),
	)
	http.Redirect(w, r, dest, http.StatusTemporaryRedirect)
}

func (h *GoogleOAuthHandler) redirectWithError(w http.ResponseWriter, r *http.Request, message string) {
	dest := fmt.Sprintf("%s/auth/callback#error=%s", h.frontendURL, url.QueryEscape(message))
	http.Redirect(w, r, dest, http.StatusTemporaryRedirect)
}
