package domain

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeNotificationRepo struct {
	stored    map[uuid.UUID]*Notification
	createErr error
	deleted   []uuid.UUID
	pageCalls []int
	pages     map[int][]*FeedNotification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{
		stored: make(map[uuid.UUID]*Notification),
		pages:  make(map[int][]*FeedNotification),
	}
}

func (r *fakeNotificationRepo) CreateNotification(ctx context.Context, n *Notification) error {
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.stored[n.ID]; ok {
		return ErrDuplicateNotification
	}
	r.stored[n.ID] = n
	return nil
}

func (r *fakeNotificationRepo) GetNotificationByID(ctx context.Context, id uuid.UUID) (*FeedNotification, error) {
	n, ok := r.stored[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	return &FeedNotification{Notification: *n}, nil
}

func (r *fakeNotificationRepo) GetNotificationPage(ctx context.Context, recipient uuid.UUID, offset, limit int) ([]*FeedNotification, error) {
	r.pageCalls = append(r.pageCalls, offset)
	return r.pages[offset], nil
}

func (r *fakeNotificationRepo) DeleteNotification(ctx context.Context, id uuid.UUID) error {
	r.deleted = append(r.deleted, id)
	delete(r.stored, id)
	return nil
}

type fakeTokens struct {
	tokens  map[uuid.UUID][]string
	updated map[uuid.UUID]string
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{
		tokens:  make(map[uuid.UUID][]string),
		updated: make(map[uuid.UUID]string),
	}
}

func (f *fakeTokens) GetFCMTokens(ctx context.Context, userID uuid.UUID) ([]string, error) {
	return f.tokens[userID], nil
}

func (f *fakeTokens) UpdateSessionFCMToken(ctx context.Context, sessionID uuid.UUID, fcmToken string) error {
	f.updated[sessionID] = fcmToken
	return nil
}

type recordingAnnouncer struct {
	announced []*Notification
}

func (a *recordingAnnouncer) Announce(n *Notification) {
	a.announced = append(a.announced, n)
}

func validInvite() *Notification {
	sender := uuid.New()
	cohort := uuid.New()
	return &Notification{
		ID:        uuid.New(),
		Kind:      NotificationInvite,
		Sender:    &sender,
		Cohort:    &cohort,
		Recipient: uuid.New(),
		CreatedAt: time.Now().UTC(),
	}
}

func TestNotificationServiceCreateStoresThenAnnounces(t *testing.T) {
	repo := newFakeNotificationRepo()
	announcer := &recordingAnnouncer{}
	svc := NewNotificationService(repo, newFakeTokens(), announcer, nil, zap.NewNop())

	n := validInvite()
	require.NoError(t, svc.Create(context.Background(), n))

	require.Contains(t, repo.stored, n.ID)
	require.Len(t, announcer.announced, 1)
	require.Equal(t, n.ID, announcer.announced[0].ID)
}

func TestNotificationServiceCreateRejectsInvalid(t *testing.T) {
	repo := newFakeNotificationRepo()
	announcer := &recordingAnnouncer{}
	svc := NewNotificationService(repo, newFakeTokens(), announcer, nil, zap.NewNop())

	n := validInvite()
	n.Cohort = nil
	require.Error(t, svc.Create(context.Background(), n))
	require.Empty(t, repo.stored)
	require.Empty(t, announcer.announced)
}

func TestNotificationServiceCreateStoreFaultSkipsAnnounce(t *testing.T) {
	repo := newFakeNotificationRepo()
	repo.createErr = ErrStoreUnavailable
	announcer := &recordingAnnouncer{}
	svc := NewNotificationService(repo, newFakeTokens(), announcer, nil, zap.NewNop())

	err := svc.Create(context.Background(), validInvite())
	require.ErrorIs(t, err, ErrStoreUnavailable)
	require.Empty(t, announcer.announced)
}

func TestNotificationServiceCreateDuplicateID(t *testing.T) {
	repo := newFakeNotificationRepo()
	svc := NewNotificationService(repo, newFakeTokens(), &recordingAnnouncer{}, nil, zap.NewNop())

	n := validInvite()
	require.NoError(t, svc.Create(context.Background(), n))
	require.ErrorIs(t, svc.Create(context.Background(), n), ErrDuplicateNotification)
}

func TestNotificationServiceFeedClampsOffset(t *testing.T) {
	repo := newFakeNotificationRepo()
	svc := NewNotificationService(repo, newFakeTokens(), &recordingAnnouncer{}, nil, zap.NewNop())

	_, err := svc.Feed(context.Background(), uuid.New(), -5)
	require.NoError(t, err)
	require.Equal(t, []int{0}, repo.pageCalls)
}

func TestNotificationServiceDismissIsIdempotent(t *testing.T) {
	repo := newFakeNotificationRepo()
	svc := NewNotificationService(repo, newFakeTokens(), &recordingAnnouncer{}, nil, zap.NewNop())

	n := validInvite()
	require.NoError(t, svc.Create(context.Background(), n))

	require.NoError(t, svc.Dismiss(context.Background(), n.ID))
	require.NoError(t, svc.Dismiss(context.Background(), n.ID))

	_, err := svc.GetByID(context.Background(), n.ID)
	require.ErrorIs(t, err, ErrNotificationNotFound)
}

func TestNotificationServiceUpdateFCMToken(t *testing.T) {
	tokens := newFakeTokens()
	svc := NewNotificationService(newFakeNotificationRepo(), tokens, &recordingAnnouncer{}, nil, zap.NewNop())

	sessionID := uuid.New()
	require.NoError(t, svc.UpdateFCMToken(context.Background(), sessionID, "device-token"))
	require.Equal(t, "device-token", tokens.updated[sessionID])
}
