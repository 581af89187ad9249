package feed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/peerview/backend/internal/domain"
)

type fakeSource struct {
	pages        map[int][]*domain.FeedNotification
	faults       map[int]error
	byID         map[uuid.UUID]*domain.FeedNotification
	fetchOffsets []int
	dismissed    []uuid.UUID
	dismissErr   error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		pages:  make(map[int][]*domain.FeedNotification),
		faults: make(map[int]error),
		byID:   make(map[uuid.UUID]*domain.FeedNotification),
	}
}

func (s *fakeSource) FetchPage(ctx context.Context, offset int) ([]*domain.FeedNotification, error) {
	s.fetchOffsets = append(s.fetchOffsets, offset)
	if err, ok := s.faults[offset]; ok {
		return nil, err
	}
	return s.pages[offset], nil
}

func (s *fakeSource) FetchByID(ctx context.Context, id uuid.UUID) (*domain.FeedNotification, error) {
	n, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotificationNotFound
	}
	return n, nil
}

func (s *fakeSource) Dismiss(ctx context.Context, id uuid.UUID) error {
	s.dismissed = append(s.dismissed, id)
	return s.dismissErr
}

func welcomeNotification(recipient uuid.UUID) *domain.FeedNotification {
	return &domain.FeedNotification{
		Notification: domain.Notification{
			ID:        uuid.New(),
			Kind:      domain.NotificationWelcome,
			Recipient: recipient,
			CreatedAt: time.Now().UTC(),
		},
	}
}

func makePage(recipient uuid.UUID, n int) []*domain.FeedNotification {
	page := make([]*domain.FeedNotification, 0, n)
	for i := 0; i < n; i++ {
		page = append(page, welcomeNotification(recipient))
	}
	return page
}

func TestPaginatorRefreshLoadsFirstPage(t *testing.T) {
	recipient := uuid.New()
	source := newFakeSource()
	source.pages[0] = makePage(recipient, domain.FeedPageSize)

	p := NewPaginator(source)
	require.NoError(t, p.Refresh(context.Background()))

	require.Len(t, p.Items(), domain.FeedPageSize)
	require.False(t, p.Exhausted())
}

func TestPaginatorEmptyFirstPageIsExhausted(t *testing.T) {
	source := newFakeSource()

	p := NewPaginator(source)
	require.NoError(t, p.Refresh(context.Background()))

	require.Empty(t, p.Items())
	require.True(t, p.Exhausted())
}

func TestPaginatorLoadOlderAppendsNextPage(t *testing.T) {
	recipient := uuid.New()
	source := newFakeSource()
	source.pages[0] = makePage(recipient, domain.FeedPageSize)
	source.pages[domain.FeedPageSize] = makePage(recipient, 5)

	p := NewPaginator(source)
	require.NoError(t, p.Refresh(context.Background()))
	require.NoError(t, p.LoadOlder(context.Background()))

	require.Len(t, p.Items(), domain.FeedPageSize+5)
	require.False(t, p.Exhausted())
	require.Equal(t, []int{0, domain.FeedPageSize}, source.fetchOffsets)
}

func TestPaginatorLoadOlderEmptyPageExhausts(t *testing.T) {
	recipient := uuid.New()
	source := newFakeSource()
	source.pages[0] = makePage(recipient, domain.FeedPageSize)

	p := NewPaginator(source)
	require.NoError(t, p.Refresh(context.Background()))
	require.NoError(t, p.LoadOlder(context.Background()))

	require.True(t, p.Exhausted())

	// Further loads do not hit the source again
	fetches := len(source.fetchOffsets)
	require.NoError(t, p.LoadOlder(context.Background()))
	require.Equal(t, fetches, len(source.fetchOffsets))
}

func TestPaginatorLoadOlderFaultKeepsState(t *testing.T) {
	recipient := uuid.New()
	source := newFakeSource()
	source.pages[0] = makePage(recipient, domain.FeedPageSize)
	source.faults[domain.FeedPageSize] = domain.ErrStoreUnavailable

	p := NewPaginator(source)
	require.NoError(t, p.Refresh(context.Background()))

	err := p.LoadOlder(context.Background())
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
	require.Len(t, p.Items(), domain.FeedPageSize)
	require.False(t, p.Exhausted())

	// Retry after the fault clears fetches the same offset
	delete(source.faults, domain.FeedPageSize)
	source.pages[domain.FeedPageSize] = makePage(recipient, 3)
	require.NoError(t, p.LoadOlder(context.Background()))
	require.Len(t, p.Items(), domain.FeedPageSize+3)
}

func TestPaginatorPrependDeduplicatesByID(t *testing.T) {
	recipient := uuid.New()
	source := newFakeSource()
	page := makePage(recipient, 3)
	source.pages[0] = page

	p := NewPaginator(source)
	require.NoError(t, p.Refresh(context.Background()))

	// Realtime echo of an item the page already delivered
	p.Prepend(page[1])
	require.Len(t, p.Items(), 3)

	fresh := welcomeNotification(recipient)
	p.Prepend(fresh)
	items := p.Items()
	require.Len(t, items, 4)
	require.Equal(t, fresh.ID, items[0].ID)

	// Announcing the same arrival twice is absorbed too
	p.Prepend(fresh)
	require.Len(t, p.Items(), 4)
}

func TestPaginatorDismissDoesNotShiftOffset(t *testing.T) {
	recipient := uuid.New()
	source := newFakeSource()
	source.pages[0] = makePage(recipient, domain.FeedPageSize)
	source.pages[domain.FeedPageSize] = makePage(recipient, domain.FeedPageSize)

	p := NewPaginator(source)
	require.NoError(t, p.Refresh(context.Background()))

	victim := p.Items()[4]
	require.NoError(t, p.Dismiss(context.Background(), victim.ID))
	require.Len(t, p.Items(), domain.FeedPageSize-1)
	require.Equal(t, []uuid.UUID{victim.ID}, source.dismissed)

	// The next page is still requested at the full page-size offset
	require.NoError(t, p.LoadOlder(context.Background()))
	require.Equal(t, []int{0, domain.FeedPageSize}, source.fetchOffsets)
	require.Len(t, p.Items(), 2*domain.FeedPageSize-1)
}

func TestPaginatorDismissUnknownIDStillDeletes(t *testing.T) {
	source := newFakeSource()

	p := NewPaginator(source)
	require.NoError(t, p.Refresh(context.Background()))

	id := uuid.New()
	require.NoError(t, p.Dismiss(context.Background(), id))
	require.Equal(t, []uuid.UUID{id}, source.dismissed)
}

func TestPaginatorDismissFaultKeepsItem(t *testing.T) {
	recipient := uuid.New()
	source := newFakeSource()
	source.pages[0] = makePage(recipient, 3)
	source.dismissErr = domain.ErrStoreUnavailable

	p := NewPaginator(source)
	require.NoError(t, p.Refresh(context.Background()))

	victim := p.Items()[1]
	err := p.Dismiss(context.Background(), victim.ID)
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)

	// The failed delete leaves the rendered item in place to retry
	items := p.Items()
	require.Len(t, items, 3)
	require.Equal(t, victim.ID, items[1].ID)

	source.dismissErr = nil
	require.NoError(t, p.Dismiss(context.Background(), victim.ID))
	require.Len(t, p.Items(), 2)
}

// gatedFetchSource parks one FetchPage call after it has computed its
// result, so the test can change the store and refresh the paginator
// while that result is still in flight.
type gatedFetchSource struct {
	*fakeSource
	gateOffset int
	started    chan struct{}
	release    chan struct{}
	once       sync.Once
}

func (s *gatedFetchSource) FetchPage(ctx context.Context, offset int) ([]*domain.FeedNotification, error) {
	page, err := s.fakeSource.FetchPage(ctx, offset)
	if offset == s.gateOffset {
		s.once.Do(func() {
			close(s.started)
			<-s.release
		})
	}
	return page, err
}

func TestPaginatorDiscardsStalePageAfterRefresh(t *testing.T) {
	recipient := uuid.New()
	source := &gatedFetchSource{
		fakeSource: newFakeSource(),
		gateOffset: domain.FeedPageSize,
		started:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	source.pages[0] = makePage(recipient, domain.FeedPageSize)

	p := NewPaginator(source)
	require.NoError(t, p.Refresh(context.Background()))

	// LoadOlder fetches an empty second page and parks with it in flight
	done := make(chan error, 1)
	go func() { done <- p.LoadOlder(context.Background()) }()
	<-source.started

	// The store grows past one page and the view is refreshed; the
	// refreshed offset lands on the same value the parked call captured
	source.pages[0] = makePage(recipient, domain.FeedPageSize)
	source.pages[domain.FeedPageSize] = makePage(recipient, 1)
	require.NoError(t, p.Refresh(context.Background()))

	close(source.release)
	require.NoError(t, <-done)

	// The pre-refresh empty page must not mark the refreshed view done
	require.False(t, p.Exhausted())
	require.NoError(t, p.LoadOlder(context.Background()))
	require.Len(t, p.Items(), domain.FeedPageSize+1)
}

func TestPaginatorRefreshResetsAfterExhaustion(t *testing.T) {
	recipient := uuid.New()
	source := newFakeSource()

	p := NewPaginator(source)
	require.NoError(t, p.Refresh(context.Background()))
	require.True(t, p.Exhausted())

	source.pages[0] = makePage(recipient, 2)
	require.NoError(t, p.Refresh(context.Background()))
	require.False(t, p.Exhausted())
	require.Len(t, p.Items(), 2)
}
