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

const maxPDFSize = 25 << 20 // 25 MB

// PublicationHandler handles publication, citation and area endpoints
type PublicationHandler struct {
	service *domain.PublicationService
	logger  *zap.Logger
}

func NewPublicationHandler(service *domain.PublicationService, logger *zap.Logger) *PublicationHandler {
	return &PublicationHandler{
		service: service,
		logger:  logger,
	}
}

// Create stores a publication under its client-generated id. The request
// is multipart so a PDF can ride along with the metadata.
func (h *PublicationHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	if err := r.ParseMultipartForm(maxPDFSize); err != nil {
		response.BadRequest(w, "invalid multipart form")
		return
	}

	id, err := uuid.Parse(r.FormValue("id"))
	if err != nil {
		response.BadRequest(w, "invalid publication id")
		return
	}

	title := validator.SanitizeString(r.FormValue("title"), 300)
	if !validator.ValidateTitle(title) {
		response.BadRequest(w, "title is required")
		return
	}

	params := domain.CreatePublicationParams{
		ID:     id,
		Title:  title,
		UserID: userID,
	}
	if link := r.FormValue("link"); link != "" {
		params.Link = &link
	}
	if abstract := r.FormValue("abstract"); abstract != "" {
		abstract = validator.SanitizeString(abstract, 5000)
		params.Abstract = &abstract
	}
	if areaStr := r.FormValue("areaid"); areaStr != "" {
		areaID, err := uuid.Parse(areaStr)
		if err != nil {
			response.BadRequest(w, "invalid area id")
			return
		}
		params.AreaID = &areaID
	}
	if cohortStr := r.FormValue("cohortid"); cohortStr != "" {
		cohortID, err := uuid.Parse(cohortStr)
		if err != nil {
			response.BadRequest(w, "invalid cohort id")
			return
		}
		params.CohortID = &cohortID
	}

	var file io.Reader
	var filename, contentType string
	if f, header, err := r.FormFile("pdf"); err == nil {
		defer f.Close()
		file = f
		filename = header.Filename
		contentType = header.Header.Get("Content-Type")
	}

	if err := h.service.Create(r.Context(), params, file, filename, contentType); err != nil {
		h.logger.Error("publication creation failed", zap.String("id", id.String()), zap.Error(err))
		response.InternalError(w, "publication creation failed")
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// Get returns one publication with its display data
func (h *PublicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid publication id")
		return
	}

	pub, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrPublicationNotFound) {
			response.NotFound(w, "publication not found")
			return
		}
		h.logger.Error("publication fetch failed", zap.Error(err))
		response.InternalError(w, "publication fetch failed")
		return
	}

	response.OK(w, pub)
}

// List dispatches on the query parameters: title search, by-user,
// by-cohort, or the paged general feed when none is given.
func (h *PublicationHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := domain.PublicationFilter{
		Title: r.URL.Query().Get("title"),
	}
	filter.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	if userStr := r.URL.Query().Get("userid"); userStr != "" {
		userID, err := uuid.Parse(userStr)
		if err != nil {
			response.BadRequest(w, "invalid user id")
			return
		}
		filter.UserID = &userID
	}
	if cohortStr := r.URL.Query().Get("cohortid"); cohortStr != "" {
		cohortID, err := uuid.Parse(cohortStr)
		if err != nil {
			response.BadRequest(w, "invalid cohort id")
			return
		}
		filter.CohortID = &cohortID
	}

	pubs, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("publication listing failed", zap.Error(err))
		response.InternalError(w, "publication listing failed")
		return
	}

	response.OK(w, pubs)
}

// Update edits a publication; poster only
func (h *PublicationHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid publication id")
		return
	}

	if err := r.ParseMultipartForm(maxPDFSize); err != nil {
		response.BadRequest(w, "invalid multipart form")
		return
	}

	title := validator.SanitizeString(r.FormValue("title"), 300)
	if !validator.ValidateTitle(title) {
		response.BadRequest(w, "title is required")
		return
	}

	params := domain.UpdatePublicationParams{Title: title}
	if link := r.FormValue("link"); link != "" {
		params.Link = &link
	}
	if abstract := r.FormValue("abstract"); abstract != "" {
		abstract = validator.SanitizeString(abstract, 5000)
		params.Abstract = &abstract
	}

	var file io.Reader
	var filename, contentType string
	if f, header, err := r.FormFile("pdf"); err == nil {
		defer f.Close()
		file = f
		filename = header.Filename
		contentType = header.Header.Get("Content-Type")
	}

	if err := h.service.Update(r.Context(), userID, id, params, file, filename, contentType); err != nil {
		h.writePublicationError(w, err, "publication update failed")
		return
	}

	response.OK(w, map[string]string{"status": "success"})
}

// Delete removes a publication; poster only
func (h *PublicationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid publication id")
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		h.writePublicationError(w, err, "publication deletion failed")
		return
	}

	response.NoContent(w)
}

type citationRequest struct {
	Link *string `json:"link,omitempty"`
	Text string  `json:"text"`
}

// AddCitations batch-attaches citations to a publication
func (h *PublicationHandler) AddCitations(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserID(r.Context()); !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid publication id")
		return
	}

	var reqs []citationRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	citations := make([]domain.CreateCitationParams, 0, len(reqs))
	for _, c := range reqs {
		if c.Text == "" {
			response.BadRequest(w, "citation text is required")
			return
		}
		citations = append(citations, domain.CreateCitationParams{
			Link:          c.Link,
			Text:          c.Text,
			PublicationID: id,
		})
	}

	if err := h.service.AddCitations(r.Context(), citations); err != nil {
		h.logger.Error("citation creation failed", zap.Error(err))
		response.InternalError(w, "citation creation failed")
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// Citations lists a publication's citations
func (h *PublicationHandler) Citations(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid publication id")
		return
	}

	citations, err := h.service.Citations(r.Context(), id)
	if err != nil {
		h.logger.Error("citation listing failed", zap.Error(err))
		response.InternalError(w, "citation listing failed")
		return
	}

	response.OK(w, citations)
}

// DeleteCitation removes one citation
func (h *PublicationHandler) DeleteCitation(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserID(r.Context()); !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "citationID"))
	if err != nil {
		response.BadRequest(w, "invalid citation id")
		return
	}

	if err := h.service.DeleteCitation(r.Context(), id); err != nil {
		h.logger.Error("citation deletion failed", zap.Error(err))
		response.InternalError(w, "citation deletion failed")
		return
	}

	response.NoContent(w)
}

// Areas returns the research-area taxonomy
func (h *PublicationHandler) Areas(w http.ResponseWriter, r *http.Request) {
	areas, err := h.service.Areas(r.Context())
	if err != nil {
		h.logger.Error("area listing failed", zap.Error(err))
		response.InternalError(w, "area listing failed")
		return
	}

	response.OK(w, areas)
}

func (h *PublicationHandler) writePublicationError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrPublicationNotFound):
		response.NotFound(w, "publication not found")
	case errors.Is(err, domain.ErrNotPublicationPoster):
		response.Forbidden(w, "only the poster may do this")
	default:
		h.logger.Error(fallback, zap.Error(err))
		response.InternalError(w, fallback)
	}
}
