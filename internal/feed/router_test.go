package feed

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/peerview/backend/internal/domain"
)

type fakeResolver struct {
	mu       sync.Mutex
	subjects map[string]uuid.UUID
	block    chan struct{}
	started  chan struct{}
	once     sync.Once
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{subjects: make(map[string]uuid.UUID)}
}

func (r *fakeResolver) ResolveInternalID(ctx context.Context, subject string) (uuid.UUID, error) {
	if r.block != nil {
		r.once.Do(func() { close(r.started) })
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.subjects[subject]
	if !ok {
		return uuid.Nil, errors.New("unknown subject")
	}
	return id, nil
}

func wirePayload(t *testing.T, n *domain.FeedNotification) []byte {
	t.Helper()
	raw, err := json.Marshal(n.Notification)
	require.NoError(t, err)
	return raw
}

func newTestRouter(t *testing.T, resolver Resolver, source Source) (*Router, *Paginator) {
	t.Helper()
	paginator := NewPaginator(source)
	return NewRouter(resolver, source, paginator, zap.NewNop()), paginator
}

func TestRouterDropsMessagesWhenSignedOut(t *testing.T) {
	source := newFakeSource()
	router, paginator := newTestRouter(t, newFakeResolver(), source)

	n := welcomeNotification(uuid.New())
	source.byID[n.ID] = n

	router.HandleMessage(context.Background(), wirePayload(t, n))
	require.Empty(t, paginator.Items())
}

func TestRouterDeliversAddressedMessage(t *testing.T) {
	me := uuid.New()
	resolver := newFakeResolver()
	resolver.subjects["google-sub"] = me

	source := newFakeSource()
	router, paginator := newTestRouter(t, resolver, source)
	require.NoError(t, router.SetIdentity(context.Background(), "google-sub"))
	require.Equal(t, me, router.Identity())

	n := welcomeNotification(me)
	source.byID[n.ID] = n

	router.HandleMessage(context.Background(), wirePayload(t, n))

	items := paginator.Items()
	require.Len(t, items, 1)
	require.Equal(t, n.ID, items[0].ID)
}

func TestRouterFiltersOtherRecipients(t *testing.T) {
	me := uuid.New()
	resolver := newFakeResolver()
	resolver.subjects["google-sub"] = me

	source := newFakeSource()
	router, paginator := newTestRouter(t, resolver, source)
	require.NoError(t, router.SetIdentity(context.Background(), "google-sub"))

	// Broadcast reaches everyone; this one is someone else's
	other := welcomeNotification(uuid.New())
	source.byID[other.ID] = other

	router.HandleMessage(context.Background(), wirePayload(t, other))
	require.Empty(t, paginator.Items())
}

func TestRouterDropsDismissedNotification(t *testing.T) {
	me := uuid.New()
	resolver := newFakeResolver()
	resolver.subjects["google-sub"] = me

	source := newFakeSource()
	router, paginator := newTestRouter(t, resolver, source)
	require.NoError(t, router.SetIdentity(context.Background(), "google-sub"))

	// Announced but already deleted from the store
	n := welcomeNotification(me)
	router.HandleMessage(context.Background(), wirePayload(t, n))
	require.Empty(t, paginator.Items())
}

func TestRouterIgnoresMalformedPayload(t *testing.T) {
	me := uuid.New()
	resolver := newFakeResolver()
	resolver.subjects["google-sub"] = me

	source := newFakeSource()
	router, paginator := newTestRouter(t, resolver, source)
	require.NoError(t, router.SetIdentity(context.Background(), "google-sub"))

	router.HandleMessage(context.Background(), []byte("not json"))
	router.HandleMessage(context.Background(), []byte(`{"type":"welcome"}`))
	require.Empty(t, paginator.Items())
}

func TestRouterClearIdentityStopsDelivery(t *testing.T) {
	me := uuid.New()
	resolver := newFakeResolver()
	resolver.subjects["google-sub"] = me

	source := newFakeSource()
	router, paginator := newTestRouter(t, resolver, source)
	require.NoError(t, router.SetIdentity(context.Background(), "google-sub"))
	router.ClearIdentity()
	require.Equal(t, uuid.Nil, router.Identity())

	n := welcomeNotification(me)
	source.byID[n.ID] = n

	router.HandleMessage(context.Background(), wirePayload(t, n))
	require.Empty(t, paginator.Items())
}

func TestRouterDiscardsStaleResolution(t *testing.T) {
	me := uuid.New()
	resolver := newFakeResolver()
	resolver.subjects["google-sub"] = me
	resolver.block = make(chan struct{})
	resolver.started = make(chan struct{})

	source := newFakeSource()
	router, _ := newTestRouter(t, resolver, source)

	done := make(chan error, 1)
	go func() {
		done <- router.SetIdentity(context.Background(), "google-sub")
	}()

	// Sign out while the resolution is in flight, after it has started
	<-resolver.started
	router.ClearIdentity()
	close(resolver.block)

	require.NoError(t, <-done)
	require.Equal(t, uuid.Nil, router.Identity())
}

func TestRouterDiscardsStaleDispatch(t *testing.T) {
	me := uuid.New()
	resolver := newFakeResolver()
	resolver.subjects["google-sub"] = me

	blocking := &blockingSource{
		fakeSource: newFakeSource(),
		release:    make(chan struct{}),
		started:    make(chan struct{}),
	}

	router, paginator := newTestRouter(t, resolver, blocking)
	require.NoError(t, router.SetIdentity(context.Background(), "google-sub"))

	n := welcomeNotification(me)
	blocking.byID[n.ID] = n

	done := make(chan struct{})
	go func() {
		router.HandleMessage(context.Background(), wirePayload(t, n))
		close(done)
	}()

	// The identity changes while the authoritative fetch is in flight
	<-blocking.started
	router.ClearIdentity()
	close(blocking.release)
	<-done

	require.Empty(t, paginator.Items())
}

type blockingSource struct {
	*fakeSource
	release chan struct{}
	started chan struct{}
	once    sync.Once
}

func (s *blockingSource) FetchByID(ctx context.Context, id uuid.UUID) (*domain.FeedNotification, error) {
	s.once.Do(func() { close(s.started) })
	<-s.release
	return s.fakeSource.FetchByID(ctx, id)
}
