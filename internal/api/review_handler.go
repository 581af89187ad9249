package api

import (
	"encoding/json"
	"errors"
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

// ReviewHandler handles review and comment endpoints
type ReviewHandler struct {
	service *domain.ReviewService
	logger  *zap.Logger
}

func NewReviewHandler(service *domain.ReviewService, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		logger:  logger,
	}
}

type postReviewRequest struct {
	Content string `json:"content"`
	Rating  int    `json:"of5"`
}

// PostReview posts a rating and text against a publication
func (h *ReviewHandler) PostReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	pubID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid publication id")
		return
	}

	var req postReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	req.Content = validator.SanitizeString(req.Content, 5000)
	if req.Content == "" {
		response.BadRequest(w, "review content is required")
		return
	}

	review, err := h.service.PostReview(r.Context(), domain.CreateReviewParams{
		PublicationID: pubID,
		PosterID:      userID,
		Content:       req.Content,
		Rating:        req.Rating,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRating) {
			response.BadRequest(w, "rating must be between 1 and 5")
			return
		}
		h.logger.Error("review creation failed", zap.Error(err))
		response.InternalError(w, "review creation failed")
		return
	}

	response.Created(w, review)
}

// Reviews returns a page of a publication's reviews. Comments are not
// included; clients fetch them when a review is expanded.
func (h *ReviewHandler) Reviews(w http.ResponseWriter, r *http.Request) {
	pubID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid publication id")
		return
	}

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	reviews, err := h.service.Reviews(r.Context(), pubID, offset)
	if err != nil {
		h.logger.Error("review listing failed", zap.Error(err))
		response.InternalError(w, "review listing failed")
		return
	}

	response.OK(w, reviews)
}

// Rating returns the average rating of a publication
func (h *ReviewHandler) Rating(w http.ResponseWriter, r *http.Request) {
	pubID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid publication id")
		return
	}

	average, count, err := h.service.AverageRating(r.Context(), pubID)
	if err != nil {
		h.logger.Error("rating fetch failed", zap.Error(err))
		response.InternalError(w, "rating fetch failed")
		return
	}

	response.OK(w, map[string]interface{}{
		"of5":   average,
		"count": count,
	})
}

// DeleteReview removes a review and its comments
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserID(r.Context()); !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "reviewID"))
	if err != nil {
		response.BadRequest(w, "invalid review id")
		return
	}

	if err := h.service.DeleteReview(r.Context(), id); err != nil {
		h.logger.Error("review deletion failed", zap.Error(err))
		response.InternalError(w, "review deletion failed")
		return
	}

	response.NoContent(w)
}

type postCommentRequest struct {
	Content string `json:"content"`
}

// PostComment posts a reply under a review
func (h *ReviewHandler) PostComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	reviewID, err := uuid.Parse(chi.URLParam(r, "reviewID"))
	if err != nil {
		response.BadRequest(w, "invalid review id")
		return
	}

	var req postCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	req.Content = validator.SanitizeString(req.Content, 2000)
	if req.Content == "" {
		response.BadRequest(w, "comment content is required")
		return
	}

	comment, err := h.service.PostComment(r.Context(), reviewID, userID, req.Content)
	if err != nil {
		if errors.Is(err, domain.ErrReviewNotFound) {
			response.NotFound(w, "review not found")
			return
		}
		h.logger.Error("comment creation failed", zap.Error(err))
		response.InternalError(w, "comment creation failed")
		return
	}

	response.Created(w, comment)
}

// Comments lists the replies under a review, fetched when the client
// expands it
func (h *ReviewHandler) Comments(w http.ResponseWriter, r *http.Request) {
	reviewID, err := uuid.Parse(chi.URLParam(r, "reviewID"))
	if err != nil {
		response.BadRequest(w, "invalid review id")
		return
	}

	comments, err := h.service.Comments(r.Context(), reviewID)
	if err != nil {
		h.logger.Error("comment listing failed", zap.Error(err))
		response.InternalError(w, "comment listing failed")
		return
	}

	response.OK(w, comments)
}

// DeleteComment removes one comment
func (h *ReviewHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserID(r.Context()); !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "commentID"))
	if err != nil {
		response.BadRequest(w, "invalid comment id")
		return
	}

	if err := h.service.DeleteComment(r.Context(), id); err != nil {
		h.logger.Error("comment deletion failed", zap.Error(err))
		response.InternalError(w, "comment deletion failed")
		return
	}

	response.NoContent(w)
}
