package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrCohortNotFound = errors.New("cohort not found")
	ErrNotCohortAdmin = errors.New("user is not the cohort admin")
	ErrAlreadyMember  = errors.New("user is already a cohort member")
)

// Cohort is a named group of users sharing publications.
type Cohort struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"desc,omitempty"`
	AvatarURL   *string   `json:"avatar,omitempty"`
	AdminID     uuid.UUID `json:"admin"`
	AdminName   string    `json:"adminname,omitempty"`
	CreatedAt   time.Time `json:"birthday"`
}

// CohortMember is a membership row joined with display data.
type CohortMember struct {
	UserID      uuid.UUID `json:"id"`
	DisplayName string    `json:"disp"`
}

// CohortSummary is the reduced shape used in listings and search results.
type CohortSummary struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	AvatarURL *string   `json:"avatar,omitempty"`
}

// CreateCohortParams holds parameters for cohort creation.
type CreateCohortParams struct {
	Name        string
	Description *string
	AvatarURL   *string
	AdminID     uuid.UUID
}

// UpdateCohortParams holds the editable cohort fields.
type UpdateCohortParams struct {
	Name        string
	Description *string
	AvatarURL   *string
}

type CohortRepository interface {
	CreateCohort(ctx context.Context, params CreateCohortParams) (*Cohort, error)
	GetCohortByID(ctx context.Context, id uuid.UUID) (*Cohort, error)
	ListCohorts(ctx context.Context, limit, offset int) ([]*CohortSummary, error)
	SearchCohortsByName(ctx context.Context, name string, limit, offset int) ([]*CohortSummary, error)
	UpdateCohort(ctx context.Context, id uuid.UUID, params UpdateCohortParams) (*Cohort, error)
	SetCohortAdmin(ctx context.Context, cohortID, adminID uuid.UUID) error
	DeleteCohort(ctx context.Context, id uuid.UUID) error

	AddCohortMember(ctx context.Context, cohortID, userID uuid.UUID) error
	RemoveCohortMember(ctx context.Context, cohortID, userID uuid.UUID) error
	ListCohortMembers(ctx context.Context, cohortID uuid.UUID) ([]*CohortMember, error)
	ListUserCohorts(ctx context.Context, userID uuid.UUID) ([]*CohortSummary, error)
}
