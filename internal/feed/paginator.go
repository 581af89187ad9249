// Package feed maintains a local, paginated view of a user's
// notification feed on top of the store and the realtime relay. It is
// the consuming side of the notification pipeline: the API serves pages
// and announcements, this package keeps them coherent on the client.
package feed

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/peerview/backend/internal/domain"
)

// Source abstracts the notification endpoints the paginator reads from.
// FetchPage returns an empty slice when the offset is past the end of
// the feed and an error only for faults, never for emptiness.
type Source interface {
	FetchPage(ctx context.Context, offset int) ([]*domain.FeedNotification, error)
	FetchByID(ctx context.Context, id uuid.UUID) (*domain.FeedNotification, error)
	Dismiss(ctx context.Context, id uuid.UUID) error
}

// Paginator accumulates feed pages into an ordered local list, newest
// first. Realtime arrivals are prepended, older pages are appended, and
// duplicates between the two paths are absorbed by id.
//
// The offset tracks how many items have been requested from the store,
// not how many are held locally: dismissing an item does not shift the
// offset, so a later LoadOlder never skips or re-fetches a page because
// of local removals.
type Paginator struct {
	mu        sync.Mutex
	source    Source
	items     []*domain.FeedNotification
	seen      map[uuid.UUID]bool
	offset    int
	epoch     uint64
	exhausted bool
}

func NewPaginator(source Source) *Paginator {
	return &Paginator{
		source: source,
		seen:   make(map[uuid.UUID]bool),
	}
}

// Refresh drops all local state and loads the first page. On a fault the
// previous state is kept so the view does not blank out on a flaky
// connection.
func (p *Paginator) Refresh(ctx context.Context) error {
	page, err := p.source.FetchPage(ctx, 0)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.epoch++
	p.items = nil
	p.seen = make(map[uuid.UUID]bool)
	p.offset = domain.FeedPageSize
	p.exhausted = len(page) == 0

	for _, n := range page {
		p.seen[n.ID] = true
		p.items = append(p.items, n)
	}
	return nil
}

// LoadOlder fetches the next page and appends it. An empty page marks
// the feed exhausted; further calls are no-ops until Refresh. The offset
// advances by the full page size even when dedupe drops items, keeping
// it aligned with what the store has already served.
func (p *Paginator) LoadOlder(ctx context.Context) error {
	p.mu.Lock()
	if p.exhausted {
		p.mu.Unlock()
		return nil
	}
	offset := p.offset
	epoch := p.epoch
	p.mu.Unlock()

	page, err := p.source.FetchPage(ctx, offset)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// A concurrent Refresh (epoch bump) or LoadOlder (offset advance) may
	// have moved the view on while the fetch was in flight; discard the
	// stale page rather than splice it in.
	if p.epoch != epoch || p.offset != offset {
		return nil
	}

	if len(page) == 0 {
		p.exhausted = true
		return nil
	}

	p.offset += domain.FeedPageSize
	for _, n := range page {
		if p.seen[n.ID] {
			continue
		}
		p.seen[n.ID] = true
		p.items = append(p.items, n)
	}
	return nil
}

// Prepend inserts a realtime arrival at the head of the list. An id the
// paginator already holds is ignored, which absorbs the duplicate paths
// a notification can arrive by (relay announcement plus page fetch, or
// a publisher echo).
func (p *Paginator) Prepend(n *domain.FeedNotification) {
	if n == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.seen[n.ID] {
		return
	}
	p.seen[n.ID] = true
	p.items = append([]*domain.FeedNotification{n}, p.items...)
}

// Dismiss deletes an item from the store and removes it locally once the
// delete succeeds. A failed delete leaves the rendered list untouched so
// the item is still visible to retry against; the store delete is
// idempotent, so the retry is safe.
func (p *Paginator) Dismiss(ctx context.Context, id uuid.UUID) error {
	if err := p.source.Dismiss(ctx, id); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for i, n := range p.items {
		if n.ID == id {
			p.items = append(p.items[:i], p.items[i+1:]...)
			break
		}
	}
	delete(p.seen, id)
	return nil
}

// Items returns a snapshot of the local list, newest first.
func (p *Paginator) Items() []*domain.FeedNotification {
	p.mu.Lock()
	defer p.mu.Unlock()

	snapshot := make([]*domain.FeedNotification, len(p.items))
	copy(snapshot, p.items)
	return snapshot
}

// Exhausted reports whether the feed end has been reached.
func (p *Paginator) Exhausted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exhausted
}

// Len returns the number of locally held items.
func (p *Paginator) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}
