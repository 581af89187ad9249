package domain

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/peerview/backend/internal/storage"
)

// CohortService handles cohort and membership business logic.
type CohortService struct {
	repo    CohortRepository
	storage storage.FileStorage
}

func NewCohortService(repo CohortRepository, fileStorage storage.FileStorage) *CohortService {
	return &CohortService{
		repo:    repo,
		storage: fileStorage,
	}
}

// Create stores a new cohort, uploading the avatar first when one is
// supplied. The creating user becomes the admin and first member.
func (s *CohortService) Create(ctx context.Context, params CreateCohortParams, avatar io.Reader, filename, contentType string) (*Cohort, error) {
	if avatar != nil {
		url, err := s.storage.SaveFile(ctx, avatar, filename, contentType)
		if err != nil {
			return nil, err
		}
		params.AvatarURL = &url
	}

	cohort, err := s.repo.CreateCohort(ctx, params)
	if err != nil {
		return nil, err
	}

	if err := s.repo.AddCohortMember(ctx, cohort.ID, params.AdminID); err != nil {
		return nil, err
	}
	return cohort, nil
}

// Get returns a cohort with its admin display name joined in.
func (s *CohortService) Get(ctx context.Context, id uuid.UUID) (*Cohort, error) {
	return s.repo.GetCohortByID(ctx, id)
}

// List returns a page of cohorts, newest first. A non-empty name searches
// by prefix instead.
func (s *CohortService) List(ctx context.Context, name string, offset int) ([]*CohortSummary, error) {
	if offset < 0 {
		offset = 0
	}
	if name != "" {
		return s.repo.SearchCohortsByName(ctx, name, FeedPageSize, offset)
	}
	return s.repo.ListCohorts(ctx, FeedPageSize, offset)
}

// Update overwrites the cohort's editable fields. Only the admin may edit.
func (s *CohortService) Update(ctx context.Context, userID, cohortID uuid.UUID, params UpdateCohortParams, avatar io.Reader, filename, contentType string) (*Cohort, error) {
	cohort, err := s.repo.GetCohortByID(ctx, cohortID)
	if err != nil {
		return nil, err
	}
	if cohort.AdminID != userID {
		return nil, ErrNotCohortAdmin
	}

	if avatar != nil {
		url, err := s.storage.SaveFile(ctx, avatar, filename, contentType)
		if err != nil {
			return nil, err
		}
		params.AvatarURL = &url
	} else if params.AvatarURL == nil {
		params.AvatarURL = cohort.AvatarURL
	}

	return s.repo.UpdateCohort(ctx, cohortID, params)
}

// TransferAdmin hands the cohort to a new admin. Only the current admin may
// transfer, and the new admin must already be a member.
func (s *CohortService) TransferAdmin(ctx context.Context, userID, cohortID, newAdminID uuid.UUID) error {
	cohort, err := s.repo.GetCohortByID(ctx, cohortID)
	if err != nil {
		return err
	}
	if cohort.AdminID != userID {
		return ErrNotCohortAdmin
	}
	return s.repo.SetCohortAdmin(ctx, cohortID, newAdminID)
}

// Delete removes a cohort. Attached invites cascade in the store.
func (s *CohortService) Delete(ctx context.Context, userID, cohortID uuid.UUID) error {
	cohort, err := s.repo.GetCohortByID(ctx, cohortID)
	if err != nil {
		return err
	}
	if cohort.AdminID != userID {
		return ErrNotCohortAdmin
	}
	return s.repo.DeleteCohort(ctx, cohortID)
}

// Join adds a user to a cohort, typically after accepting an invite.
func (s *CohortService) Join(ctx context.Context, cohortID, userID uuid.UUID) error {
	return s.repo.AddCohortMember(ctx, cohortID, userID)
}

// Leave removes a user from a cohort.
func (s *CohortService) Leave(ctx context.Context, cohortID, userID uuid.UUID) error {
	return s.repo.RemoveCohortMember(ctx, cohortID, userID)
}

// Members lists the users in a cohort with their display names.
func (s *CohortService) Members(ctx context.Context, cohortID uuid.UUID) ([]*CohortMember, error) {
	return s.repo.ListCohortMembers(ctx, cohortID)
}

// UserCohorts lists the cohorts a user belongs to.
func (s *CohortService) UserCohorts(ctx context.Context, userID uuid.UUID) ([]*CohortSummary, error) {
	return s.repo.ListUserCohorts(ctx, userID)
}
