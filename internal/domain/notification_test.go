package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func ptr(id uuid.UUID) *uuid.UUID { return &id }

func TestNotificationKindValid(t *testing.T) {
	require.True(t, NotificationInvite.Valid())
	require.True(t, NotificationReview.Valid())
	require.True(t, NotificationComment.Valid())
	require.True(t, NotificationWelcome.Valid())
	require.False(t, NotificationKind("like").Valid())
	require.False(t, NotificationKind("").Valid())
}

func TestNotificationValidatePerKind(t *testing.T) {
	base := func(kind NotificationKind) Notification {
		return Notification{
			ID:        uuid.New(),
			Kind:      kind,
			Recipient: uuid.New(),
			CreatedAt: time.Now().UTC(),
		}
	}

	t.Run("invite requires cohort and sender", func(t *testing.T) {
		n := base(NotificationInvite)
		require.Error(t, n.Validate())

		n.Cohort = ptr(uuid.New())
		require.Error(t, n.Validate())

		n.Sender = ptr(uuid.New())
		require.NoError(t, n.Validate())
	})

	t.Run("review requires publication and sender", func(t *testing.T) {
		n := base(NotificationReview)
		n.Publication = ptr(uuid.New())
		require.Error(t, n.Validate())

		n.Sender = ptr(uuid.New())
		require.NoError(t, n.Validate())
	})

	t.Run("comment requires publication, review and sender", func(t *testing.T) {
		n := base(NotificationComment)
		n.Publication = ptr(uuid.New())
		n.Sender = ptr(uuid.New())
		require.Error(t, n.Validate())

		n.Review = ptr(uuid.New())
		require.NoError(t, n.Validate())
	})

	t.Run("welcome carries no references", func(t *testing.T) {
		n := base(NotificationWelcome)
		require.NoError(t, n.Validate())

		n.Sender = ptr(uuid.New())
		require.Error(t, n.Validate())
	})

	t.Run("unknown kind rejected", func(t *testing.T) {
		n := base(NotificationKind("like"))
		require.Error(t, n.Validate())
	})

	t.Run("id and recipient required", func(t *testing.T) {
		n := base(NotificationWelcome)
		n.ID = uuid.Nil
		require.Error(t, n.Validate())

		n = base(NotificationWelcome)
		n.Recipient = uuid.Nil
		require.Error(t, n.Validate())
	})
}
