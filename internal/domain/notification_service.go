package domain

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/peerview/backend/internal/fcm"
)

// Announcer publishes a created notification on the realtime relay.
// Delivery is best-effort: the store remains the source of truth and a
// missed announcement is recovered by the recipient's next fetch.
type Announcer interface {
	Announce(n *Notification)
}

// PushTokenRepository resolves the mobile push tokens registered for a user.
type PushTokenRepository interface {
	GetFCMTokens(ctx context.Context, userID uuid.UUID) ([]string, error)
	UpdateSessionFCMToken(ctx context.Context, sessionID uuid.UUID, fcmToken string) error
}

// NotificationService owns the create -> relay -> push pipeline and the
// paginated feed reads.
type NotificationService struct {
	repo      NotificationRepository
	tokens    PushTokenRepository
	announcer Announcer
	fcmClient *fcm.Client
	logger    *zap.Logger
}

func NewNotificationService(repo NotificationRepository, tokens PushTokenRepository, announcer Announcer, fcmClient *fcm.Client, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		repo:      repo,
		tokens:    tokens,
		announcer: announcer,
		fcmClient: fcmClient,
		logger:    logger,
	}
}

// Create validates and persists a notification, then announces it on the
// relay. The store write and the announcement are two independent steps
// with no transaction spanning both: a fault after the write leaves the
// row durable but unannounced, which the next feed fetch resolves.
func (s *NotificationService) Create(ctx context.Context, n *Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}

	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return err
	}

	if s.announcer != nil {
		s.announcer.Announce(n)
	}

	s.sendPush(n)
	return nil
}

// Feed returns one page of the recipient's notifications, newest first.
// An empty slice means the offset is past the end of the feed.
func (s *NotificationService) Feed(ctx context.Context, recipient uuid.UUID, offset int) ([]*FeedNotification, error) {
	if offset < 0 {
		offset = 0
	}
	return s.repo.GetNotificationPage(ctx, recipient, offset, FeedPageSize)
}

// GetByID returns the denormalized notification or ErrNotificationNotFound.
func (s *NotificationService) GetByID(ctx context.Context, id uuid.UUID) (*FeedNotification, error) {
	return s.repo.GetNotificationByID(ctx, id)
}

// Dismiss deletes a notification. Deleting an id that no longer exists is
// not an error.
func (s *NotificationService) Dismiss(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteNotification(ctx, id)
}

// UpdateFCMToken registers a device push token against a session.
func (s *NotificationService) UpdateFCMToken(ctx context.Context, sessionID uuid.UUID, token string) error {
	return s.tokens.UpdateSessionFCMToken(ctx, sessionID, token)
}

// sendPush attempts a mobile push for recipients with registered devices.
// Failures are logged and never fail the create.
func (s *NotificationService) sendPush(n *Notification) {
	if s.fcmClient == nil {
		return
	}

	title, body := pushText(n.Kind)
	data := map[string]string{
		"id":   n.ID.String(),
		"type": string(n.Kind),
	}

	go func() {
		ctx := context.Background()
		fcmTokens, err := s.tokens.GetFCMTokens(ctx, n.Recipient)
		if err != nil {
			s.logger.Warn("failed to load fcm tokens", zap.String("recipient", n.Recipient.String()), zap.Error(err))
			return
		}
		for _, token := range fcmTokens {
			if token == "" {
				continue
			}
			_ = s.fcmClient.Send(ctx, token, title, body, data)
		}
	}()
}

func pushText(kind NotificationKind) (title, body string) {
	switch kind {
	case NotificationInvite:
		return "Cohort invite", "You have been invited to join a cohort."
	case NotificationReview:
		return "New review", "Someone reviewed your publication."
	case NotificationComment:
		return "New comment", "Someone replied to a review on your publication."
	case NotificationWelcome:
		return "Welcome to PeerView", "Notifications you receive will appear in your feed."
	default:
		return "PeerView", fmt.Sprintf("You have a new %s notification.", kind)
	}
}
