package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPublicationNotFound  = errors.New("publication not found")
	ErrNotPublicationPoster = errors.New("user did not post this publication")
)

// Publication is an uploaded or linked academic paper. Like notifications,
// the id is client-generated so follow-up requests (citations, reviews) can
// reference it immediately.
type Publication struct {
	ID        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	UserID    uuid.UUID  `json:"userid"`
	UserName  string     `json:"dispname,omitempty"`
	Link      *string    `json:"link,omitempty"`
	FileURL   *string    `json:"path,omitempty"`
	Abstract  *string    `json:"abstract,omitempty"`
	AreaID    *uuid.UUID `json:"areaid,omitempty"`
	AreaName  string     `json:"areaname,omitempty"`
	CohortID  *uuid.UUID `json:"cohortid,omitempty"`
	CohortName string    `json:"cohortname,omitempty"`
	CreatedAt time.Time  `json:"time"`
}

// PublicationSummary is the reduced shape used in feeds and search results.
type PublicationSummary struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Abstract  *string   `json:"abstract,omitempty"`
	UserName  string    `json:"dispname,omitempty"`
	CreatedAt time.Time `json:"time"`
}

// Citation is a referenced work attached to a publication.
type Citation struct {
	ID            uuid.UUID `json:"id"`
	Link          *string   `json:"link,omitempty"`
	Text          string    `json:"text"`
	PublicationID uuid.UUID `json:"pub"`
}

// Area is a research-area taxonomy entry.
type Area struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// CreatePublicationParams holds parameters for publication creation.
type CreatePublicationParams struct {
	ID       uuid.UUID
	Title    string
	UserID   uuid.UUID
	Link     *string
	FileURL  *string
	Abstract *string
	AreaID   *uuid.UUID
	CohortID *uuid.UUID
}

// UpdatePublicationParams holds the editable publication fields.
type UpdatePublicationParams struct {
	Title    string
	Link     *string
	FileURL  *string
	Abstract *string
	AreaID   *uuid.UUID
	CohortID *uuid.UUID
}

// CreateCitationParams holds one citation row for batch insert.
type CreateCitationParams struct {
	Link          *string
	Text          string
	PublicationID uuid.UUID
}

// PublicationFilter selects which listing query runs. At most one of the
// optional fields is honored, in the order ID, Title, UserID, CohortID;
// with none set the general feed page is returned.
type PublicationFilter struct {
	ID       *uuid.UUID
	Title    string
	UserID   *uuid.UUID
	CohortID *uuid.UUID
	Offset   int
}

type PublicationRepository interface {
	CreatePublication(ctx context.Context, params CreatePublicationParams) error
	GetPublicationByID(ctx context.Context, id uuid.UUID) (*Publication, error)
	ListPublications(ctx context.Context, limit, offset int) ([]*PublicationSummary, error)
	SearchPublicationsByTitle(ctx context.Context, title string, limit, offset int) ([]*PublicationSummary, error)
	ListPublicationsByUser(ctx context.Context, userID uuid.UUID) ([]*PublicationSummary, error)
	ListPublicationsByCohort(ctx context.Context, cohortID uuid.UUID) ([]*PublicationSummary, error)
	UpdatePublication(ctx context.Context, id uuid.UUID, params UpdatePublicationParams) error
	DeletePublication(ctx context.Context, id uuid.UUID) error

	CreateCitations(ctx context.Context, citations []CreateCitationParams) error
	ListCitations(ctx context.Context, publicationID uuid.UUID) ([]*Citation, error)
	DeleteCitation(ctx context.Context, id uuid.UUID) error

	ListAreas(ctx context.Context) ([]*Area, error)
}
