package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/peerview/backend/internal/domain"
	"github.com/peerview/backend/internal/middleware"
	"github.com/peerview/backend/pkg/response"
	"github.com/peerview/backend/pkg/validator"
)

// AuthHandler handles authentication and profile endpoints
type AuthHandler struct {
	authService   *domain.AuthService
	notifications *domain.NotificationService
	logger        *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *domain.AuthService, notifications *domain.NotificationService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		notifications: notifications,
		logger:        logger,
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"dispname"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest represents the token refresh request body
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// GoogleLoginRequest represents the Google sign-in request body
type GoogleLoginRequest struct {
	IDToken string `json:"id_token"`
}

// Register handles user registration. A fresh account receives a
// self-addressed welcome notification so the feed is never empty on
// first open.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	req.Email = validator.SanitizeEmail(req.Email)
	if !validator.ValidateEmail(req.Email) {
		response.BadRequest(w, "invalid email address")
		return
	}

	if errs := validator.ValidatePassword(req.Password); errs.HasErrors() {
		response.BadRequest(w, errs.Error())
		return
	}

	req.DisplayName = validator.SanitizeString(req.DisplayName, 100)
	if !validator.ValidateName(req.DisplayName) {
		response.BadRequest(w, "display name must be 2-100 characters")
		return
	}

	result, err := h.authService.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			response.Conflict(w, "user with this email already exists")
			return
		}
		h.logger.Error("registration failed", zap.Error(err))
		response.InternalError(w, "registration failed")
		return
	}

	h.sendWelcome(r, result.User.ID)

	response.Created(w, result)
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	req.Email = validator.SanitizeEmail(req.Email)
	if !validator.ValidateEmail(req.Email) {
		response.BadRequest(w, "invalid email address")
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		response.Unauthorized(w, "invalid email or password")
		return
	}

	response.OK(w, result)
}

// GoogleLogin verifies a Google ID token and signs the user in. New
// accounts get the same welcome notification as email signups.
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req GoogleLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if req.IDToken == "" {
		response.BadRequest(w, "id_token is required")
		return
	}

	result, err := h.authService.GoogleLogin(r.Context(), req.IDToken)
	if err != nil {
		h.logger.Warn("google login failed", zap.Error(err))
		response.Unauthorized(w, "google sign-in failed")
		return
	}

	if result.IsNewUser {
		h.sendWelcome(r, result.User.ID)
	}

	response.OK(w, result)
}

// Refresh rotates a refresh token
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	result, err := h.authService.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		response.Unauthorized(w, "invalid or expired refresh token")
		return
	}

	response.OK(w, result)
}

// Logout revokes a refresh token
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := h.authService.Logout(r.Context(), req.RefreshToken); err != nil {
		h.logger.Error("logout failed", zap.Error(err))
		response.InternalError(w, "logout failed")
		return
	}

	response.OK(w, map[string]string{"status": "success"})
}

// LogoutAll revokes every session the caller holds
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	if err := h.authService.LogoutAll(r.Context(), userID); err != nil {
		h.logger.Error("logout all failed", zap.Error(err))
		response.InternalError(w, "logout failed")
		return
	}

	response.OK(w, map[string]string{"status": "success"})
}

// Me returns the caller's profile
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	user, err := h.authService.GetUserByID(r.Context(), userID)
	if err != nil {
		response.NotFound(w, "user not found")
		return
	}

	response.OK(w, user.ToResponse())
}

// UpdateProfileRequest holds the editable profile fields
type UpdateProfileRequest struct {
	DisplayName *string `json:"dispname,omitempty"`
	FirstName   *string `json:"fname,omitempty"`
	LastName    *string `json:"lname,omitempty"`
	Email       *string `json:"email,omitempty"`
	About       *string `json:"about,omitempty"`
}

// UpdateProfile updates the caller's profile
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if req.Email != nil {
		email := validator.SanitizeEmail(*req.Email)
		if !validator.ValidateEmail(email) {
			response.BadRequest(w, "invalid email address")
			return
		}
		req.Email = &email
	}
	if req.DisplayName != nil && !validator.ValidateName(*req.DisplayName) {
		response.BadRequest(w, "display name must be 2-100 characters")
		return
	}

	user, err := h.authService.UpdateProfile(r.Context(), userID, domain.UpdateProfileParams{
		DisplayName: req.DisplayName,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		About:       req.About,
	})
	if err != nil {
		h.logger.Error("profile update failed", zap.String("user_id", userID.String()), zap.Error(err))
		response.InternalError(w, "profile update failed")
		return
	}

	response.OK(w, user.ToResponse())
}

// UpdateAvatar replaces the caller's avatar with an uploaded image
func (h *AuthHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	if err := r.ParseMultipartForm(maxAvatarSize); err != nil {
		response.BadRequest(w, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		response.BadRequest(w, "avatar file is required")
		return
	}
	defer file.Close()

	user, err := h.authService.UpdateAvatar(r.Context(), userID, file, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		h.logger.Error("avatar update failed", zap.String("user_id", userID.String()), zap.Error(err))
		response.InternalError(w, "avatar update failed")
		return
	}

	response.OK(w, user.ToResponse())
}

// SearchUsers finds users by display name
func (h *AuthHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserID(r.Context()); !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		response.BadRequest(w, "name query parameter is required")
		return
	}

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	users, err := h.authService.SearchUsers(r.Context(), name, 20, offset)
	if err != nil {
		h.logger.Error("user search failed", zap.Error(err))
		response.InternalError(w, "search failed")
		return
	}

	results := make([]*domain.UserResponse, 0, len(users))
	for _, u := range users {
		results = append(results, u.ToResponse())
	}
	response.OK(w, results)
}

// DeleteAccount soft-deletes the caller's account
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	if err := h.authService.DeleteAccount(r.Context(), userID); err != nil {
		h.logger.Error("account deletion failed", zap.String("user_id", userID.String()), zap.Error(err))
		response.InternalError(w, "account deletion failed")
		return
	}

	response.NoContent(w)
}

func (h *AuthHandler) sendWelcome(r *http.Request, userID uuid.UUID) {
	sendWelcome(r, h.notifications, h.logger, userID)
}

// sendWelcome stores a self-addressed welcome notification for a new
// account. Failures are logged and never fail the signup.
func sendWelcome(r *http.Request, notifications *domain.NotificationService, logger *zap.Logger, userID uuid.UUID) {
	welcome := &domain.Notification{
		ID:        uuid.New(),
		Kind:      domain.NotificationWelcome,
		Recipient: userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := notifications.Create(r.Context(), welcome); err != nil {
		logger.Warn("failed to create welcome notification", zap.String("user_id", userID.String()), zap.Error(err))
	}
}
