package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/peerview/backend/internal/domain"
)

// Client is an HTTP Source for the notification endpoints. It translates
// the wire's status codes back into the domain's three outcomes: 200 is
// data, 204 is a valid empty page, 404 is not-found, and 5xx is a store
// fault.
type Client struct {
	baseURL    string
	mu         sync.RWMutex
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: httpClient,
	}
}

// SetToken replaces the bearer token after a sign-in or refresh. Safe to
// call while fetches are in flight.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) bearerToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// FetchPage fetches one feed page. A 204 comes back as an empty slice.
func (c *Client) FetchPage(ctx context.Context, offset int) ([]*domain.FeedNotification, error) {
	url := c.baseURL + "/api/v1/notifications?offset=" + strconv.Itoa(offset)
	resp, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var page []*domain.FeedNotification
		if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
			return nil, fmt.Errorf("%w: decoding page: %v", domain.ErrStoreUnavailable, err)
		}
		return page, nil
	case http.StatusNoContent:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: status %d", domain.ErrStoreUnavailable, resp.StatusCode)
	}
}

// FetchByID fetches one notification with its display data.
func (c *Client) FetchByID(ctx context.Context, id uuid.UUID) (*domain.FeedNotification, error) {
	url := c.baseURL + "/api/v1/notifications/" + id.String()
	resp, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var notif domain.FeedNotification
		if err := json.NewDecoder(resp.Body).Decode(&notif); err != nil {
			return nil, fmt.Errorf("%w: decoding notification: %v", domain.ErrStoreUnavailable, err)
		}
		return &notif, nil
	case http.StatusNotFound:
		return nil, domain.ErrNotificationNotFound
	default:
		return nil, fmt.Errorf("%w: status %d", domain.ErrStoreUnavailable, resp.StatusCode)
	}
}

// Dismiss deletes a notification. A 204 for an already-deleted id is
// still success.
func (c *Client) Dismiss(ctx context.Context, id uuid.UUID) error {
	url := c.baseURL + "/api/v1/notifications/" + id.String()
	resp, err := c.do(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%w: status %d", domain.ErrStoreUnavailable, resp.StatusCode)
	}
	return nil
}

// Publish stores a notification under its client-generated id.
func (c *Client) Publish(ctx context.Context, n *domain.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, http.MethodPost, c.baseURL+"/api/v1/notifications", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		return nil
	case http.StatusConflict:
		return domain.ErrDuplicateNotification
	default:
		return fmt.Errorf("%w: status %d", domain.ErrStoreUnavailable, resp.StatusCode)
	}
}

func (c *Client) do(ctx context.Context, method, url string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if token := c.bearerToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.httpClient.Do(req)
}
