package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/peerview/backend/internal/domain"
	"github.com/peerview/backend/internal/middleware"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now (adjust for production)
	},
}

type Client struct {
	ID     uuid.UUID
	Conn   *websocket.Conn
	Send   chan []byte
	UserID uuid.UUID
}

// Relay fans published notifications out to every connected client,
// publisher included. It never inspects the recipient field; deciding
// whether a message is addressed to the local identity is the client's
// job. Delivery is best effort: a slow consumer is dropped, never waited
// on, and the store remains the source of truth for what exists.
type Relay struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	// Map userID to active clients for targeted pushes (multi-device)
	userClients map[uuid.UUID]map[*Client]bool
	mu          sync.RWMutex
	logger      *zap.Logger
}

func NewRelay(logger *zap.Logger) *Relay {
	return &Relay{
		clients:     make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan []byte, 64),
		userClients: make(map[uuid.UUID]map[*Client]bool),
		logger:      logger,
	}
}

func (m *Relay) Run() {
	for {
		select {
		case client := <-m.register:
			m.mu.Lock()
			m.clients[client] = true
			if client.UserID != uuid.Nil {
				if _, ok := m.userClients[client.UserID]; !ok {
					m.userClients[client.UserID] = make(map[*Client]bool)
				}
				m.userClients[client.UserID][client] = true
			}
			m.mu.Unlock()
			m.logger.Debug("Relay client registered", zap.String("userID", client.UserID.String()))

		case client := <-m.unregister:
			m.mu.Lock()
			if _, ok := m.clients[client]; ok {
				delete(m.clients, client)
				if userMap, ok := m.userClients[client.UserID]; ok {
					delete(userMap, client)
					if len(userMap) == 0 {
						delete(m.userClients, client.UserID)
					}
				}
				close(client.Send)
				m.logger.Debug("Relay client unregistered", zap.String("userID", client.UserID.String()))
			}
			m.mu.Unlock()

		case message := <-m.broadcast:
			m.mu.Lock()
			for client := range m.clients {
				select {
				case client.Send <- message:
				default:
					// Slow consumer, drop the connection rather than block the relay
					delete(m.clients, client)
					if userMap, ok := m.userClients[client.UserID]; ok {
						delete(userMap, client)
						if len(userMap) == 0 {
							delete(m.userClients, client.UserID)
						}
					}
					close(client.Send)
				}
			}
			m.mu.Unlock()
		}
	}
}

// Announce relays a freshly stored notification to every connected
// client. If the relay is saturated the announcement is dropped; the
// recipient still finds the notification on their next feed fetch.
func (m *Relay) Announce(n *domain.Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		m.logger.Error("Failed to marshal notification announcement", zap.Error(err))
		return
	}
	select {
	case m.broadcast <- payload:
	default:
		m.logger.Warn("Relay saturated, announcement dropped", zap.String("id", n.ID.String()))
	}
}

// PublishToUser sends a message to one user's connected clients only.
func (m *Relay) PublishToUser(userID uuid.UUID, message interface{}) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	clients, ok := m.userClients[userID]
	if !ok {
		return
	}

	jsonMsg, err := json.Marshal(message)
	if err != nil {
		m.logger.Error("Failed to marshal message", zap.Error(err))
		return
	}

	for client := range clients {
		select {
		case client.Send <- jsonMsg:
		default:
		}
	}
}

// ServeWS upgrades the connection and joins the client to the relay.
// The endpoint is open; an Authorization header only tags the connection
// with the caller's identity for targeted pushes.
func (m *Relay) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}

	userID, _ := middleware.GetUserID(r.Context())

	client := &Client{
		ID:     uuid.New(),
		Conn:   conn,
		Send:   make(chan []byte, 256),
		UserID: userID,
	}

	m.register <- client

	go client.WritePump()
	go client.ReadPump(m)
}

// ReadPump relays every message a client publishes back out verbatim.
// The relay does not parse or validate the payload; malformed messages
// are the receiving clients' problem to discard.
func (c *Client) ReadPump(relay *Relay) {
	defer func() {
		relay.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				relay.logger.Debug("Relay client read error", zap.Error(err))
			}
			break
		}
		select {
		case relay.broadcast <- message:
		default:
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
