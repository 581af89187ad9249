package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/peerview/backend/internal/config"
)

func newTestOAuthHandler() *GoogleOAuthHandler {
	cfg := &config.Config{
		Google: config.GoogleConfig{
			ClientID:     "test-client",
			ClientSecret: "test-secret",
			RedirectURL:  "http://localhost:8080/api/v1/auth/google/callback",
			FrontendURL:  "http://localhost:3000",
		},
	}
	return NewGoogleOAuthHandler(cfg, nil, nil, zap.NewNop())
}

func TestGoogleOAuthLoginRedirectsWithState(t *testing.T) {
	h := newTestOAuthHandler()

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/login", nil))

	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)

	dest, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "accounts.google.com", dest.Host)
	require.Equal(t, "test-client", dest.Query().Get("client_id"))

	state := dest.Query().Get("state")
	require.NotEmpty(t, state)

	// The state nonce travels in a cookie for the callback to compare
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, oauthStateCookie, cookies[0].Name)
	require.Equal(t, state, cookies[0].Value)
}

func TestGoogleOAuthCallbackRejectsBadState(t *testing.T) {
	h := newTestOAuthHandler()

	// No state cookie at all
	rec := httptest.NewRecorder()
	h.Callback(rec, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?state=abc&code=xyz", nil))
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	require.Contains(t, rec.Header().Get("Location"), "error=")

	// Cookie present but not matching the state parameter
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?state=forged&code=xyz", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "genuine"})
	rec = httptest.NewRecorder()
	h.Callback(rec, req)
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	require.Contains(t, rec.Header().Get("Location"), "error=")
}

func TestGoogleOAuthCallbackRequiresCode(t *testing.T) {
	h := newTestOAuthHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?state=genuine", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "genuine"})
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	require.Contains(t, rec.Header().Get("Location"), "error=")
}
