package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotificationNotFound marks a fetch that legitimately matched no row.
	// Callers must treat it as an empty result, not a failure.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrStoreUnavailable wraps any underlying persistence fault. It is
	// surfaced to users as a retryable condition and never crashes a session.
	ErrStoreUnavailable = errors.New("notification store unavailable")

	// ErrDuplicateNotification is returned when a client-generated id collides
	// with an existing row.
	ErrDuplicateNotification = errors.New("notification id already exists")
)

// NotificationKind is the closed set of notification types.
type NotificationKind string

const (
	NotificationInvite  NotificationKind = "invite"
	NotificationReview  NotificationKind = "review"
	NotificationComment NotificationKind = "comment"
	NotificationWelcome NotificationKind = "welcome"
)

// Valid reports whether k is one of the four known kinds.
func (k NotificationKind) Valid() bool {
	switch k {
	case NotificationInvite, NotificationReview, NotificationComment, NotificationWelcome:
		return true
	}
	return false
}

// Notification is the persisted record. The id is generated by the client
// before creation so the realtime announcement and the stored row can share
// it without a round trip. Records are write-once, delete-once.
//
// Exactly one combination of reference fields is populated per kind:
//
//	invite  -> Cohort + Sender
//	review  -> Publication + Sender
//	comment -> Publication + Review + Sender
//	welcome -> none
type Notification struct {
	ID          uuid.UUID        `json:"id"`
	Kind        NotificationKind `json:"type"`
	Sender      *uuid.UUID       `json:"user,omitempty"`
	Cohort      *uuid.UUID       `json:"cohort,omitempty"`
	Publication *uuid.UUID       `json:"publish,omitempty"`
	Review      *uuid.UUID       `json:"review,omitempty"`
	Comment     *uuid.UUID       `json:"comment,omitempty"`
	Recipient   uuid.UUID        `json:"recipient"`
	CreatedAt   time.Time        `json:"time"`
}

// Validate enforces the per-kind reference invariants. The switch is
// exhaustive over the kind set; unknown kinds are rejected.
func (n *Notification) Validate() error {
	if n.ID == uuid.Nil {
		return errors.New("notification id is required")
	}
	if n.Recipient == uuid.Nil {
		return errors.New("notification recipient is required")
	}
	switch n.Kind {
	case NotificationInvite:
		if n.Cohort == nil || n.Sender == nil {
			return fmt.Errorf("invite notification requires cohort and sender")
		}
	case NotificationReview:
		if n.Publication == nil || n.Sender == nil {
			return fmt.Errorf("review notification requires publication and sender")
		}
	case NotificationComment:
		if n.Publication == nil || n.Review == nil || n.Sender == nil {
			return fmt.Errorf("comment notification requires publication, review and sender")
		}
	case NotificationWelcome:
		if n.Sender != nil || n.Cohort != nil || n.Publication != nil || n.Review != nil || n.Comment != nil {
			return fmt.Errorf("welcome notification carries no references")
		}
	default:
		return fmt.Errorf("unknown notification type %q", n.Kind)
	}
	return nil
}

// FeedNotification is the denormalized read model: the stored references
// joined with the display data each kind needs. Display fields belonging to
// a since-deleted entity come back empty rather than failing the fetch.
type FeedNotification struct {
	Notification
	SenderName       string `json:"username,omitempty"`
	CohortName       string `json:"cohortname,omitempty"`
	PublicationTitle string `json:"pubtitle,omitempty"`
	ReviewText       string `json:"reviewtext,omitempty"`
	CommentText      string `json:"commentcontent,omitempty"`
}

// FeedPageSize is the fixed page increment for the notification feed.
const FeedPageSize = 20

// NotificationRepository is the persistence contract for notifications.
//
// Fetches distinguish three outcomes: data (nil error), empty
// (ErrNotificationNotFound or a zero-length slice), and fault
// (ErrStoreUnavailable wrap). Delete is idempotent.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *Notification) error
	GetNotificationByID(ctx context.Context, id uuid.UUID) (*FeedNotification, error)
	GetNotificationPage(ctx context.Context, recipient uuid.UUID, offset, limit int) ([]*FeedNotification, error)
	DeleteNotification(ctx context.Context, id uuid.UUID) error
}
