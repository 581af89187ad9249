package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/peerview/backend/internal/domain"
	"github.com/peerview/backend/internal/middleware"
	"github.com/peerview/backend/pkg/response"
)

type NotificationHandler struct {
	service *domain.NotificationService
	logger  *zap.Logger
}

func NewNotificationHandler(service *domain.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger,
	}
}

// GetFeed returns one page of the caller's notification feed. The three
// outcomes are distinct on the wire: 200 with a bare array, 204 when the
// offset is past the end of the feed, 503 when the store is unreachable.
// Clients treat 204 as feed exhaustion and 503 as retryable.
func (h *NotificationHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	page, err := h.service.Feed(r.Context(), userID, offset)
	if err != nil {
		h.logger.Error("failed to fetch notification feed", zap.String("user_id", userID.String()), zap.Error(err))
		response.ServiceUnavailable(w, "notification store unavailable")
		return
	}

	if len(page) == 0 {
		response.NoContent(w)
		return
	}

	response.Raw(w, http.StatusOK, page)
}

// GetNotification returns one notification by id with its display data.
func (h *NotificationHandler) GetNotification(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserID(r.Context()); !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid notification id")
		return
	}

	notif, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotificationNotFound) {
			response.NotFound(w, "notification not found")
			return
		}
		h.logger.Error("failed to fetch notification", zap.String("id", id.String()), zap.Error(err))
		response.ServiceUnavailable(w, "notification store unavailable")
		return
	}

	response.Raw(w, http.StatusOK, notif)
}

type createNotificationRequest struct {
	ID          uuid.UUID               `json:"id"`
	Kind        domain.NotificationKind `json:"type"`
	Sender      *uuid.UUID              `json:"user,omitempty"`
	Cohort      *uuid.UUID              `json:"cohort,omitempty"`
	Publication *uuid.UUID              `json:"publish,omitempty"`
	Review      *uuid.UUID              `json:"review,omitempty"`
	Comment     *uuid.UUID              `json:"comment,omitempty"`
	Recipient   uuid.UUID               `json:"recipient"`
}

// CreateNotification persists a notification under its client-generated
// id and announces it on the relay. The response is a bare 201 with no
// body; the client already holds the full record it sent.
func (h *NotificationHandler) CreateNotification(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserID(r.Context()); !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	var req createNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	n := &domain.Notification{
		ID:          req.ID,
		Kind:        req.Kind,
		Sender:      req.Sender,
		Cohort:      req.Cohort,
		Publication: req.Publication,
		Review:      req.Review,
		Comment:     req.Comment,
		Recipient:   req.Recipient,
		CreatedAt:   time.Now().UTC(),
	}

	if err := h.service.Create(r.Context(), n); err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateNotification):
			response.Conflict(w, "notification id already exists")
		case errors.Is(err, domain.ErrStoreUnavailable):
			h.logger.Error("failed to store notification", zap.String("id", n.ID.String()), zap.Error(err))
			response.ServiceUnavailable(w, "notification store unavailable")
		default:
			response.BadRequest(w, err.Error())
		}
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// DismissNotification deletes a notification. Dismissing an id that is
// already gone still returns 204, so client retries are harmless.
func (h *NotificationHandler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserID(r.Context()); !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid notification id")
		return
	}

	if err := h.service.Dismiss(r.Context(), id); err != nil {
		h.logger.Error("failed to dismiss notification", zap.String("id", id.String()), zap.Error(err))
		response.ServiceUnavailable(w, "notification store unavailable")
		return
	}

	response.NoContent(w)
}

// UpdateFCMToken registers a device push token against the caller's
// session.
func (h *NotificationHandler) UpdateFCMToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	sessionID, ok := middleware.GetSessionID(r.Context())
	if !ok {
		response.Unauthorized(w, "no session")
		return
	}

	var req struct {
		FCMToken string `json:"fcm_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request")
		return
	}

	if err := h.service.UpdateFCMToken(r.Context(), sessionID, req.FCMToken); err != nil {
		h.logger.Error("failed to update fcm token", zap.String("user_id", userID.String()), zap.Error(err))
		response.InternalError(w, "failed to update token")
		return
	}

	response.OK(w, map[string]string{"status": "success"})
}
