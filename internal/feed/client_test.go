package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/peerview/backend/internal/domain"
)

func TestClientFetchPageOutcomes(t *testing.T) {
	recipient := uuid.New()
	page := makePage(recipient, 2)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		switch r.URL.Query().Get("offset") {
		case "0":
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(page)
		case "20":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token", nil)

	got, err := client.FetchPage(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, page[0].ID, got[0].ID)

	// 204 is a valid empty page, not an error
	got, err = client.FetchPage(context.Background(), 20)
	require.NoError(t, err)
	require.Empty(t, got)

	// 503 is a store fault
	_, err = client.FetchPage(context.Background(), 40)
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestClientFetchByID(t *testing.T) {
	recipient := uuid.New()
	known := welcomeNotification(recipient)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/notifications/"+known.ID.String() {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(known)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token", nil)

	got, err := client.FetchByID(context.Background(), known.ID)
	require.NoError(t, err)
	require.Equal(t, known.ID, got.ID)
	require.Equal(t, domain.NotificationWelcome, got.Kind)

	_, err = client.FetchByID(context.Background(), uuid.New())
	require.ErrorIs(t, err, domain.ErrNotificationNotFound)
}

func TestClientSetTokenDuringFetches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, "initial-token", nil)

	// Token rotation must be safe against in-flight fetches
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			client.SetToken("rotated-" + uuid.NewString())
		}
	}()

	for i := 0; i < 50; i++ {
		_, err := client.FetchPage(context.Background(), 0)
		require.NoError(t, err)
	}
	<-done
}

func TestClientPublishAndDismiss(t *testing.T) {
	existing := uuid.New()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var n domain.Notification
			require.NoError(t, json.NewDecoder(r.Body).Decode(&n))
			if n.ID == existing {
				w.WriteHeader(http.StatusConflict)
				return
			}
			w.WriteHeader(http.StatusCreated)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token", nil)

	n := &domain.Notification{
		ID:        uuid.New(),
		Kind:      domain.NotificationWelcome,
		Recipient: uuid.New(),
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, client.Publish(context.Background(), n))

	n.ID = existing
	require.ErrorIs(t, client.Publish(context.Background(), n), domain.ErrDuplicateNotification)

	require.NoError(t, client.Dismiss(context.Background(), uuid.New()))
}
