package domain

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/peerview/backend/internal/storage"
)

// PublicationService handles publication, citation and area business logic.
type PublicationService struct {
	repo    PublicationRepository
	storage storage.FileStorage
}

func NewPublicationService(repo PublicationRepository, fileStorage storage.FileStorage) *PublicationService {
	return &PublicationService{
		repo:    repo,
		storage: fileStorage,
	}
}

// Create stores a new publication. A PDF, when supplied, is uploaded first
// and its URL recorded; link-only publications skip the upload.
func (s *PublicationService) Create(ctx context.Context, params CreatePublicationParams, file io.Reader, filename, contentType string) error {
	if file != nil {
		url, err := s.storage.SaveFile(ctx, file, filename, contentType)
		if err != nil {
			return err
		}
		params.FileURL = &url
	}
	return s.repo.CreatePublication(ctx, params)
}

// Get returns a single publication with its poster, cohort and area
// display data joined in.
func (s *PublicationService) Get(ctx context.Context, id uuid.UUID) (*Publication, error) {
	return s.repo.GetPublicationByID(ctx, id)
}

// List dispatches on the filter: title search, by-user, by-cohort, or the
// general newest-first feed page.
func (s *PublicationService) List(ctx context.Context, filter PublicationFilter) ([]*PublicationSummary, error) {
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	switch {
	case filter.Title != "":
		return s.repo.SearchPublicationsByTitle(ctx, filter.Title, FeedPageSize, filter.Offset)
	case filter.UserID != nil:
		return s.repo.ListPublicationsByUser(ctx, *filter.UserID)
	case filter.CohortID != nil:
		return s.repo.ListPublicationsByCohort(ctx, *filter.CohortID)
	default:
		return s.repo.ListPublications(ctx, FeedPageSize, filter.Offset)
	}
}

// Update overwrites a publication's editable fields. Only the poster may
// edit.
func (s *PublicationService) Update(ctx context.Context, userID, id uuid.UUID, params UpdatePublicationParams, file io.Reader, filename, contentType string) error {
	pub, err := s.repo.GetPublicationByID(ctx, id)
	if err != nil {
		return err
	}
	if pub.UserID != userID {
		return ErrNotPublicationPoster
	}

	if file != nil {
		url, err := s.storage.SaveFile(ctx, file, filename, contentType)
		if err != nil {
			return err
		}
		params.FileURL = &url
	}
	return s.repo.UpdatePublication(ctx, id, params)
}

// Delete removes a publication. Citations, reviews, comments and
// notifications referencing it cascade in the store.
func (s *PublicationService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	pub, err := s.repo.GetPublicationByID(ctx, id)
	if err != nil {
		return err
	}
	if pub.UserID != userID {
		return ErrNotPublicationPoster
	}
	return s.repo.DeletePublication(ctx, id)
}

// AddCitations batch-inserts citations for a publication.
func (s *PublicationService) AddCitations(ctx context.Context, citations []CreateCitationParams) error {
	if len(citations) == 0 {
		return nil
	}
	return s.repo.CreateCitations(ctx, citations)
}

// Citations lists the citations attached to a publication.
func (s *PublicationService) Citations(ctx context.Context, publicationID uuid.UUID) ([]*Citation, error) {
	return s.repo.ListCitations(ctx, publicationID)
}

// DeleteCitation removes one citation.
func (s *PublicationService) DeleteCitation(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteCitation(ctx, id)
}

// Areas lists the research-area taxonomy.
func (s *PublicationService) Areas(ctx context.Context) ([]*Area, error) {
	return s.repo.ListAreas(ctx)
}
