package feed

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/peerview/backend/internal/domain"
)

// Resolver maps an external identity subject to the internal user id
// notifications are addressed by. Resolution goes over the network, so a
// result can arrive after the identity that requested it is gone.
type Resolver interface {
	ResolveInternalID(ctx context.Context, subject string) (uuid.UUID, error)
}

// Router consumes the relay's broadcast stream and routes the messages
// addressed to the local identity into a Paginator. Everyone's
// notifications arrive on the stream; filtering by recipient happens
// here, not on the server.
//
// The identity can change at any time (sign-in, sign-out, account
// switch). Every async step captures the epoch counter before starting
// and re-checks it after: a result computed under a previous identity is
// discarded instead of leaking into the new one.
type Router struct {
	mu        sync.Mutex
	resolver  Resolver
	source    Source
	paginator *Paginator
	identity  uuid.UUID
	epoch     uint64
	logger    *zap.Logger
}

func NewRouter(resolver Resolver, source Source, paginator *Paginator, logger *zap.Logger) *Router {
	return &Router{
		resolver:  resolver,
		source:    source,
		paginator: paginator,
		logger:    logger,
	}
}

// SetIdentity resolves the subject to an internal user id and installs
// it. If the identity changes again while resolution is in flight, the
// resolved id is discarded.
func (r *Router) SetIdentity(ctx context.Context, subject string) error {
	r.mu.Lock()
	r.epoch++
	epoch := r.epoch
	r.identity = uuid.Nil
	r.mu.Unlock()

	internalID, err := r.resolver.ResolveInternalID(ctx, subject)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.epoch != epoch {
		return nil
	}
	r.identity = internalID
	return nil
}

// ClearIdentity signs the router out. In-flight resolutions and
// dispatches from the previous identity are invalidated.
func (r *Router) ClearIdentity() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.epoch++
	r.identity = uuid.Nil
}

// Identity returns the currently installed internal user id, or
// uuid.Nil when signed out.
func (r *Router) Identity() uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.identity
}

// wireNotification is the subset of the relayed payload the router needs
// to route. Unknown fields are ignored; a payload without id and
// recipient is not a notification and is dropped.
type wireNotification struct {
	ID        uuid.UUID `json:"id"`
	Recipient uuid.UUID `json:"recipient"`
}

// HandleMessage routes one relayed message. Messages not addressed to
// the local identity are dropped without logging; that is most of the
// stream. For an addressed message the authoritative record is fetched
// by id, so the displayed item carries the joined display data rather
// than whatever the publisher put on the wire.
func (r *Router) HandleMessage(ctx context.Context, raw []byte) {
	var wire wireNotification
	if err := json.Unmarshal(raw, &wire); err != nil || wire.ID == uuid.Nil {
		return
	}

	r.mu.Lock()
	if r.identity == uuid.Nil || wire.Recipient != r.identity {
		r.mu.Unlock()
		return
	}
	epoch := r.epoch
	r.mu.Unlock()

	notif, err := r.source.FetchByID(ctx, wire.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotificationNotFound) {
			// Dismissed before we fetched it
			return
		}
		r.logger.Warn("failed to fetch announced notification", zap.String("id", wire.ID.String()), zap.Error(err))
		return
	}

	r.mu.Lock()
	stale := r.epoch != epoch
	r.mu.Unlock()
	if stale {
		return
	}

	r.paginator.Prepend(notif)
}
