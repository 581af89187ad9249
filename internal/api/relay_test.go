package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/peerview/backend/internal/domain"
)

func newTestRelay(t *testing.T) (*Relay, *httptest.Server) {
	t.Helper()

	relay := NewRelay(zap.NewNop())
	go relay.Run()

	server := httptest.NewServer(http.HandlerFunc(relay.ServeWS))
	t.Cleanup(server.Close)

	return relay, server
}

func dialRelay(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

// waitForClients blocks until the relay has registered n connections.
// Registration races the dial handshake, so tests wait on the registry
// instead of sleeping.
func waitForClients(t *testing.T, relay *Relay, n int) {
	t.Helper()

	require.Eventually(t, func() bool {
		relay.mu.RLock()
		defer relay.mu.RUnlock()
		return len(relay.clients) >= n
	}, 2*time.Second, 5*time.Millisecond)
}

func readMessage(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)

	return message
}

func TestRelayBroadcastsToEveryClientIncludingPublisher(t *testing.T) {
	relay, server := newTestRelay(t)

	publisher := dialRelay(t, server)
	subscriber := dialRelay(t, server)
	waitForClients(t, relay, 2)

	payload := []byte(`{"id":"` + uuid.NewString() + `","type":"welcome"}`)
	require.NoError(t, publisher.WriteMessage(websocket.TextMessage, payload))

	require.Equal(t, payload, readMessage(t, subscriber))
	require.Equal(t, payload, readMessage(t, publisher))
}

func TestRelayAnnounceReachesConnectedClients(t *testing.T) {
	relay, server := newTestRelay(t)

	conn := dialRelay(t, server)
	waitForClients(t, relay, 1)

	notification := &domain.Notification{
		ID:        uuid.New(),
		Kind:      domain.NotificationWelcome,
		Recipient: uuid.New(),
		CreatedAt: time.Now().UTC(),
	}
	relay.Announce(notification)

	var received domain.Notification
	require.NoError(t, json.Unmarshal(readMessage(t, conn), &received))
	require.Equal(t, notification.ID, received.ID)
	require.Equal(t, notification.Kind, received.Kind)
	require.Equal(t, notification.Recipient, received.Recipient)
}

func TestRelayForwardsPayloadVerbatim(t *testing.T) {
	relay, server := newTestRelay(t)

	sender := dialRelay(t, server)
	receiver := dialRelay(t, server)
	waitForClients(t, relay, 2)

	// The relay does not parse payloads, so even garbage passes through.
	payload := []byte(`not json at all`)
	require.NoError(t, sender.WriteMessage(websocket.TextMessage, payload))

	require.Equal(t, payload, readMessage(t, receiver))
}
