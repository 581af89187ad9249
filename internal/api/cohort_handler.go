package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/peerview/backend/internal/domain"
	"github.com/peerview/backend/internal/middleware"
	"github.com/peerview/backend/pkg/response"
	"github.com/peerview/backend/pkg/validator"
)

const maxAvatarSize = 5 << 20 // 5 MB

// CohortHandler handles cohort and membership endpoints
type CohortHandler struct {
	service *domain.CohortService
	logger  *zap.Logger
}

func NewCohortHandler(service *domain.CohortService, logger *zap.Logger) *CohortHandler {
	return &CohortHandler{
		service: service,
		logger:  logger,
	}
}

// Create creates a cohort. The request is multipart so an avatar can be
// attached; the caller becomes admin and first member.
func (h *CohortHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	if err := r.ParseMultipartForm(maxAvatarSize); err != nil {
		response.BadRequest(w, "invalid multipart form")
		return
	}

	name := validator.SanitizeString(r.FormValue("name"), 100)
	if !validator.ValidateName(name) {
		response.BadRequest(w, "cohort name must be 2-100 characters")
		return
	}

	params := domain.CreateCohortParams{
		Name:    name,
		AdminID: userID,
	}
	if desc := r.FormValue("desc"); desc != "" {
		desc = validator.SanitizeString(desc, 1000)
		params.Description = &desc
	}

	var avatar io.Reader
	var filename, contentType string
	if file, header, err := r.FormFile("avatar"); err == nil {
		defer file.Close()
		avatar = file
		filename = header.Filename
		contentType = header.Header.Get("Content-Type")
	}

	cohort, err := h.service.Create(r.Context(), params, avatar, filename, contentType)
	if err != nil {
		h.logger.Error("cohort creation failed", zap.Error(err))
		response.InternalError(w, "cohort creation failed")
		return
	}

	response.Created(w, cohort)
}

// Get returns one cohort with its admin's display name
func (h *CohortHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid cohort id")
		return
	}

	cohort, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrCohortNotFound) {
			response.NotFound(w, "cohort not found")
			return
		}
		h.logger.Error("cohort fetch failed", zap.Error(err))
		response.InternalError(w, "cohort fetch failed")
		return
	}

	response.OK(w, cohort)
}

// List returns a page of cohorts, optionally filtered by name
func (h *CohortHandler) List(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	cohorts, err := h.service.List(r.Context(), r.URL.Query().Get("name"), offset)
	if err != nil {
		h.logger.Error("cohort listing failed", zap.Error(err))
		response.InternalError(w, "cohort listing failed")
		return
	}

	response.OK(w, cohorts)
}

// Update edits a cohort; admin only
func (h *CohortHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid cohort id")
		return
	}

	if err := r.ParseMultipartForm(maxAvatarSize); err != nil {
		response.BadRequest(w, "invalid multipart form")
		return
	}

	name := validator.SanitizeString(r.FormValue("name"), 100)
	if !validator.ValidateName(name) {
		response.BadRequest(w, "cohort name must be 2-100 characters")
		return
	}

	params := domain.UpdateCohortParams{Name: name}
	if desc := r.FormValue("desc"); desc != "" {
		desc = validator.SanitizeString(desc, 1000)
		params.Description = &desc
	}

	var avatar io.Reader
	var filename, contentType string
	if file, header, err := r.FormFile("avatar"); err == nil {
		defer file.Close()
		avatar = file
		filename = header.Filename
		contentType = header.Header.Get("Content-Type")
	}

	cohort, err := h.service.Update(r.Context(), userID, id, params, avatar, filename, contentType)
	if err != nil {
		h.writeCohortError(w, err, "cohort update failed")
		return
	}

	response.OK(w, cohort)
}

// TransferAdmin hands cohort administration to another member
func (h *CohortHandler) TransferAdmin(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid cohort id")
		return
	}

	var req struct {
		NewAdminID uuid.UUID `json:"admin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := h.service.TransferAdmin(r.Context(), userID, id, req.NewAdminID); err != nil {
		h.writeCohortError(w, err, "admin transfer failed")
		return
	}

	response.OK(w, map[string]string{"status": "success"})
}

// Delete removes a cohort; admin only
func (h *CohortHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid cohort id")
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		h.writeCohortError(w, err, "cohort deletion failed")
		return
	}

	response.NoContent(w)
}

// Join adds the caller to a cohort
func (h *CohortHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid cohort id")
		return
	}

	if err := h.service.Join(r.Context(), id, userID); err != nil {
		if errors.Is(err, domain.ErrAlreadyMember) {
			response.Conflict(w, "already a member")
			return
		}
		h.logger.Error("cohort join failed", zap.Error(err))
		response.InternalError(w, "cohort join failed")
		return
	}

	response.OK(w, map[string]string{"status": "success"})
}

// Leave removes the caller from a cohort
func (h *CohortHandler) Leave(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid cohort id")
		return
	}

	if err := h.service.Leave(r.Context(), id, userID); err != nil {
		h.logger.Error("cohort leave failed", zap.Error(err))
		response.InternalError(w, "cohort leave failed")
		return
	}

	response.NoContent(w)
}

// Members lists a cohort's members
func (h *CohortHandler) Members(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid cohort id")
		return
	}

	members, err := h.service.Members(r.Context(), id)
	if err != nil {
		h.logger.Error("member listing failed", zap.Error(err))
		response.InternalError(w, "member listing failed")
		return
	}

	response.OK(w, members)
}

// MyCohorts lists the cohorts the caller belongs to
func (h *CohortHandler) MyCohorts(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	cohorts, err := h.service.UserCohorts(r.Context(), userID)
	if err != nil {
		h.logger.Error("cohort listing failed", zap.Error(err))
		response.InternalError(w, "cohort listing failed")
		return
	}

	response.OK(w, cohorts)
}

func (h *CohortHandler) writeCohortError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrCohortNotFound):
		response.NotFound(w, "cohort not found")
	case errors.Is(err, domain.ErrNotCohortAdmin):
		response.Forbidden(w, "only the cohort admin may do this")
	default:
		h.logger.Error(fallback, zap.Error(err))
		response.InternalError(w, fallback)
	}
}
