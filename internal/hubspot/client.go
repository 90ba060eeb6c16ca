package hubspot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/romeoman/hubspot-sales-intelligence-extension/internal/domain"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	defaultAuthURL    = "https://app.hubspot.com/oauth/authorize"
	defaultTokenURL   = "https://api.hubapi.com/oauth/v1/token"
	defaultAPIBaseURL = "https://api.hubapi.com"
)

// Client talks to HubSpot's OAuth and account metadata endpoints. It holds no
// state beyond its configuration; token persistence lives in the token store.
type Client struct {
	oauth      *oauth2.Config
	apiBaseURL string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithEndpoints overrides the provider's authorize and token endpoints.
func WithEndpoints(authURL, tokenURL string) ClientOption {
	return func(c *Client) {
		c.oauth.Endpoint = oauth2.Endpoint{
			AuthURL:   authURL,
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		}
	}
}

// WithAPIBaseURL overrides the base URL for account metadata calls.
func WithAPIBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.apiBaseURL = baseURL
	}
}

// WithHTTPClient overrides the HTTP client used for all provider calls.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a HubSpot client for one OAuth app.
func NewClient(clientID, clientSecret, redirectURI string, scopes []string, options ...ClientOption) *Client {
	client := &Client{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   defaultAuthURL,
				TokenURL:  defaultTokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiBaseURL: defaultAPIBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// GenerateAuthURL builds the consent screen URL for a portal. HubSpot shows
// the portal picker pre-selected when portalId is present.
func (c *Client) GenerateAuthURL(portalID, state string) string {
	var opts []oauth2.AuthCodeOption
	if portalID != "" {
		opts = append(opts, oauth2.SetAuthURLParam("portalId", portalID))
	}

	authURL := c.oauth.AuthCodeURL(state, opts...)

	log.Info().
		Str("portal_id", portalID).
		Strs("scopes", c.oauth.Scopes).
		Msg("Generated auth URL")

	return authURL
}

// ExchangeCodeForTokens swaps an authorization code for a token grant.
func (c *Client) ExchangeCodeForTokens(ctx context.Context, code, redirectURI string) (*domain.TokenGrant, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	var opts []oauth2.AuthCodeOption
	if redirectURI != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_uri", redirectURI))
	}

	token, err := c.oauth.Exchange(ctx, code, opts...)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			log.Error().
				Int("status_code", retrieveErr.Response.StatusCode).
				Str("provider_error", retrieveErr.ErrorCode).
				Msg("Token exchange failed")

			return nil, domain.WrapError(domain.KindUpstream, "Token exchange failed",
				fmt.Errorf("provider returned %d: %s", retrieveErr.Response.StatusCode, retrieveErr.ErrorCode))
		}

		return nil, domain.WrapError(domain.KindUpstream, "Token exchange failed", err)
	}

	log.Info().Int64("expires_in", token.ExpiresIn).Msg("Token exchange successful")

	return grantFromToken(token), nil
}

// RefreshToken exchanges a refresh token for a fresh grant. A provider-side
// rejection of the refresh token itself is tagged KindTokenExpired: the portal
// must re-authorize, retrying will not help.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenGrant, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	source := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	token, err := source.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			log.Error().
				Int("status_code", retrieveErr.Response.StatusCode).
				Str("provider_error", retrieveErr.ErrorCode).
				Msg("Token refresh failed")

			if retrieveErr.ErrorCode == "invalid_grant" || retrieveErr.Response.StatusCode == http.StatusBadRequest {
				return nil, domain.WrapError(domain.KindTokenExpired,
					"Refresh token is invalid or expired. Please reconnect your account.", err)
			}

			return nil, domain.WrapError(domain.KindUpstream, "Token refresh failed",
				fmt.Errorf("provider returned %d: %s", retrieveErr.Response.StatusCode, retrieveErr.ErrorCode))
		}

		return nil, domain.WrapError(domain.KindUpstream, "Token refresh failed", err)
	}

	grant := grantFromToken(token)
	if grant.RefreshToken == "" {
		// HubSpot normally rotates the refresh token; keep the old one when
		// the provider omits it.
		grant.RefreshToken = refreshToken
	}

	log.Info().Int64("expires_in", grant.ExpiresIn).Msg("Token refresh successful")

	return grant, nil
}

type accessTokenInfo struct {
	HubID     int64    `json:"hub_id"`
	HubDomain string   `json:"hub_domain"`
	Scopes    []string `json:"scopes"`
}

// GetPortalInfo fetches the portal metadata bound to an access token.
func (c *Client) GetPortalInfo(ctx context.Context, accessToken string) (*domain.PortalInfo, error) {
	info, err := c.getAccessTokenInfo(ctx, accessToken)
	if err != nil {
		return nil, domain.WrapError(domain.KindUpstream, "Failed to retrieve portal information", err)
	}

	return &domain.PortalInfo{
		PortalID: strconv.FormatInt(info.HubID, 10),
		Domain:   info.HubDomain,
		TimeZone: "UTC",
	}, nil
}

// ValidateToken probes whether an access token is still live on the provider.
// It never returns an error; any failure means the token is not usable.
func (c *Client) ValidateToken(ctx context.Context, accessToken string) bool {
	if _, err := c.getAccessTokenInfo(ctx, accessToken); err != nil {
		log.Warn().Err(err).Msg("Token validation failed")
		return false
	}

	return true
}

func (c *Client) getAccessTokenInfo(ctx context.Context, accessToken string) (*accessTokenInfo, error) {
	url := fmt.Sprintf("%s/oauth/v1/access-tokens/%s", c.apiBaseURL, accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("access token lookup failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("access token lookup returned %d", resp.StatusCode)
	}

	var info accessTokenInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal access token info: %w", err)
	}

	return &info, nil
}

func grantFromToken(token *oauth2.Token) *domain.TokenGrant {
	expiresIn := token.ExpiresIn
	if expiresIn == 0 && !token.Expiry.IsZero() {
		expiresIn = int64(time.Until(token.Expiry).Seconds())
	}

	return &domain.TokenGrant{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    expiresIn,
	}
}
