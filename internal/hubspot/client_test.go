package hubspot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/romeoman/hubspot-sales-intelligence-extension/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testScopes = []string{"crm.objects.contacts.read", "crm.objects.companies.read"}

func newTestClient(serverURL string) *Client {
	return NewClient("client-id", "client-secret", "https://bridge.example.com/api/auth/callback", testScopes,
		WithEndpoints(serverURL+"/oauth/authorize", serverURL+"/oauth/v1/token"),
		WithAPIBaseURL(serverURL),
	)
}

func TestGenerateAuthURL(t *testing.T) {
	client := newTestClient("https://app.hubspot.example")

	authURL := client.GenerateAuthURL("12345", "12345_1700000000000")

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)

	query := parsed.Query()
	assert.Equal(t, "client-id", query.Get("client_id"))
	assert.Equal(t, "https://bridge.example.com/api/auth/callback", query.Get("redirect_uri"))
	assert.Equal(t, "code", query.Get("response_type"))
	assert.Equal(t, "crm.objects.contacts.read crm.objects.companies.read", query.Get("scope"))
	assert.Equal(t, "12345", query.Get("portalId"))
	assert.Equal(t, "12345_1700000000000", query.Get("state"))
}

func TestExchangeCodeForTokens(t *testing.T) {
	var gotGrantType, gotCode string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth/v1/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		gotGrantType = r.PostForm.Get("grant_type")
		gotCode = r.PostForm.Get("code")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "new-access",
			"refresh_token": "new-refresh",
			"expires_in":    1800,
			"token_type":    "bearer",
		})
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)

	grant, err := client.ExchangeCodeForTokens(context.Background(), "auth-code", "")
	require.NoError(t, err)

	assert.Equal(t, "authorization_code", gotGrantType)
	assert.Equal(t, "auth-code", gotCode)
	assert.Equal(t, "new-access", grant.AccessToken)
	assert.Equal(t, "new-refresh", grant.RefreshToken)
	assert.InDelta(t, 1800, grant.ExpiresIn, 5)
}

func TestExchangeCodeForTokens_ProviderRejects(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid_client"})
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)

	_, err := client.ExchangeCodeForTokens(context.Background(), "bad-code", "")
	require.Error(t, err)
	assert.Equal(t, domain.KindUpstream, domain.KindOf(err))
}

func TestRefreshToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		require.Equal(t, "old-refresh", r.PostForm.Get("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "rotated-access",
			"refresh_token": "rotated-refresh",
			"expires_in":    1800,
			"token_type":    "bearer",
		})
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)

	grant, err := client.RefreshToken(context.Background(), "old-refresh")
	require.NoError(t, err)
	assert.Equal(t, "rotated-access", grant.AccessToken)
	assert.Equal(t, "rotated-refresh", grant.RefreshToken)
}

func TestRefreshToken_KeepsOldRefreshTokenWhenOmitted(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "rotated-access",
			"expires_in":   1800,
			"token_type":   "bearer",
		})
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)

	grant, err := client.RefreshToken(context.Background(), "old-refresh")
	require.NoError(t, err)
	assert.Equal(t, "old-refresh", grant.RefreshToken)
}

func TestRefreshToken_RejectedGrantIsTerminal(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)

	_, err := client.RefreshToken(context.Background(), "revoked-refresh")
	require.Error(t, err)
	assert.Equal(t, domain.KindTokenExpired, domain.KindOf(err))
}

func TestRefreshToken_ServerErrorIsUpstream(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)

	_, err := client.RefreshToken(context.Background(), "some-refresh")
	require.Error(t, err)
	assert.Equal(t, domain.KindUpstream, domain.KindOf(err))
}

func TestGetPortalInfo(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth/v1/access-tokens/the-access-token", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"hub_id":     12345,
			"hub_domain": "example.hubspot.com",
			"scopes":     testScopes,
		})
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)

	info, err := client.GetPortalInfo(context.Background(), "the-access-token")
	require.NoError(t, err)

	assert.Equal(t, "12345", info.PortalID)
	assert.Equal(t, "example.hubspot.com", info.Domain)
	assert.Equal(t, "UTC", info.TimeZone)
}

func TestValidateToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/v1/access-tokens/live-token" {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"hub_id": 12345})
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)

	assert.True(t, client.ValidateToken(context.Background(), "live-token"))
	assert.False(t, client.ValidateToken(context.Background(), "dead-token"))
}
