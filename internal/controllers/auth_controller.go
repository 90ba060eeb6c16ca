package controllers

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/romeoman/hubspot-sales-intelligence-extension/internal/config"
	"github.com/romeoman/hubspot-sales-intelligence-extension/internal/domain"
	"github.com/romeoman/hubspot-sales-intelligence-extension/internal/hubspot"
	"github.com/romeoman/hubspot-sales-intelligence-extension/internal/tokens"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
)

// AuthController implements the OAuth install/callback/refresh/status flow
// against HubSpot, with encrypted token persistence per portal.
type AuthController struct {
	config     *config.Config
	tokenStore *tokens.Store
	hubspot    *hubspot.Client
}

type AuthControllerDependencies struct {
	Config        *config.Config
	TokenStore    *tokens.Store
	HubSpotClient *hubspot.Client
}

func NewAuthController(deps AuthControllerDependencies) *AuthController {
	return &AuthController{
		config:     deps.Config,
		tokenStore: deps.TokenStore,
		hubspot:    deps.HubSpotClient,
	}
}

// Install redirects the portal admin to HubSpot's consent screen. The state
// parameter binds the eventual callback to this portal.
func (c *AuthController) Install(ctx fiber.Ctx) error {
	portalID := ctx.Query("portalId")
	if portalID == "" {
		log.Warn().Msg("Missing or invalid portalId parameter")
		return respondError(ctx, domain.KindInvalidRequest, "Portal ID is required", nil)
	}

	state := ctx.Query("state")
	if state == "" {
		state = fmt.Sprintf("%s_%d", portalID, time.Now().UnixMilli())
	}

	authURL := c.hubspot.GenerateAuthURL(portalID, state)

	log.Info().
		Str("portal_id", portalID).
		Str("state", state).
		Msg("OAuth installation initiated")

	return ctx.Redirect().Status(fiber.StatusFound).To(authURL)
}

// Callback completes the OAuth flow: exchanges the code, cross-checks the
// portal id embedded in state against the portal the provider reports, and
// stores the encrypted token. All failures redirect to the error page with a
// machine-readable reason.
func (c *AuthController) Callback(ctx fiber.Ctx) error {
	if oauthError := ctx.Query("error"); oauthError != "" {
		log.Error().
			Str("oauth_error", oauthError).
			Str("state", ctx.Query("state")).
			Msg("OAuth error received")

		return c.errorRedirect(ctx, oauthError)
	}

	code := ctx.Query("code")
	if code == "" {
		log.Warn().Msg("Missing authorization code")
		return c.errorRedirect(ctx, "missing_code")
	}

	state := ctx.Query("state")
	if state == "" {
		log.Warn().Msg("Missing state parameter")
		return c.errorRedirect(ctx, "missing_state")
	}

	log.Info().Str("state", state).Msg("Processing OAuth callback")

	grant, err := c.hubspot.ExchangeCodeForTokens(ctx.RequestCtx(), code, c.config.HubSpotRedirectURI)
	if err != nil {
		log.Error().Err(err).Str("state", state).Msg("OAuth callback failed")
		return c.errorRedirect(ctx, "callback_failed")
	}

	portalInfo, err := c.hubspot.GetPortalInfo(ctx.RequestCtx(), grant.AccessToken)
	if err != nil {
		log.Error().Err(err).Str("state", state).Msg("OAuth callback failed")
		return c.errorRedirect(ctx, "callback_failed")
	}

	// The state prefix must name the portal the token actually belongs to;
	// a mismatch means the callback was not produced by our install redirect.
	statePortalID := strings.SplitN(state, "_", 2)[0]
	if statePortalID != portalInfo.PortalID {
		mismatch := domain.NewError(domain.KindSecurity, "Portal ID mismatch")
		log.Error().
			Err(mismatch).
			Str("expected_portal_id", statePortalID).
			Str("actual_portal_id", portalInfo.PortalID).
			Msg("Portal ID mismatch")

		return c.errorRedirect(ctx, "portal_mismatch")
	}

	now := time.Now()
	token := domain.OAuthToken{
		PortalID:     portalInfo.PortalID,
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ExpiresAt:    now.Add(time.Duration(grant.ExpiresIn) * time.Second),
		Scopes:       c.config.HubSpotScopes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := c.tokenStore.Store(ctx.RequestCtx(), token); err != nil {
		log.Error().Err(err).Str("portal_id", portalInfo.PortalID).Msg("OAuth callback failed")
		return c.errorRedirect(ctx, "callback_failed")
	}

	log.Info().
		Str("portal_id", portalInfo.PortalID).
		Strs("scopes", token.Scopes).
		Time("expires_at", token.ExpiresAt).
		Msg("OAuth flow completed")

	successURL := fmt.Sprintf("%s/auth/success?portalId=%s", c.config.AppBaseURL, url.QueryEscape(portalInfo.PortalID))

	return ctx.Redirect().Status(fiber.StatusFound).To(successURL)
}

func (c *AuthController) errorRedirect(ctx fiber.Ctx, reason string) error {
	errorURL := fmt.Sprintf("%s/auth/error?error=%s", c.config.AppBaseURL, url.QueryEscape(reason))

	return ctx.Redirect().Status(fiber.StatusFound).To(errorURL)
}

type refreshRequest struct {
	PortalID string `json:"portalId"`
}

// Refresh exchanges the stored refresh token for a fresh access token. A
// provider-rejected refresh token deletes the stored credentials: the portal
// must reconnect, retrying cannot recover it.
func (c *AuthController) Refresh(ctx fiber.Ctx) error {
	var req refreshRequest
	if err := ctx.Bind().Body(&req); err != nil || req.PortalID == "" {
		log.Warn().Msg("Missing or invalid portalId parameter")
		return respondError(ctx, domain.KindInvalidRequest, "Portal ID is required", nil)
	}

	log.Info().Str("portal_id", req.PortalID).Msg("Token refresh requested")

	existing, err := c.tokenStore.Get(ctx.RequestCtx(), req.PortalID)
	if err != nil {
		log.Error().Err(err).Str("portal_id", req.PortalID).Msg("Token refresh failed")
		return respondError(ctx, domain.KindInternal, "Failed to refresh authentication token", nil)
	}
	if existing == nil {
		log.Warn().Str("portal_id", req.PortalID).Msg("Token not found for refresh")
		return respondError(ctx, domain.KindUnauthorized,
			"No authentication token found. Please reconnect your account.", nil)
	}

	grant, err := c.hubspot.RefreshToken(ctx.RequestCtx(), existing.RefreshToken)
	if err != nil {
		log.Error().Err(err).Str("portal_id", req.PortalID).Msg("Token refresh failed")

		if domain.KindOf(err) == domain.KindTokenExpired {
			if delErr := c.tokenStore.Delete(ctx.RequestCtx(), req.PortalID); delErr != nil {
				log.Error().Err(delErr).Str("portal_id", req.PortalID).Msg("Failed to delete rejected token")
			}
			return respondForError(ctx, err, "Refresh token is invalid or expired. Please reconnect your account.")
		}

		return respondError(ctx, domain.KindInternal, "Failed to refresh authentication token", nil)
	}

	expiresAt := time.Now().Add(time.Duration(grant.ExpiresIn) * time.Second)
	updated, err := c.tokenStore.Update(ctx.RequestCtx(), req.PortalID, domain.TokenUpdate{
		AccessToken:  &grant.AccessToken,
		RefreshToken: &grant.RefreshToken,
		ExpiresAt:    &expiresAt,
	})
	if err != nil || updated == nil {
		log.Error().Err(err).Str("portal_id", req.PortalID).Msg("Token refresh failed")
		return respondError(ctx, domain.KindInternal, "Failed to refresh authentication token", nil)
	}

	log.Info().
		Str("portal_id", req.PortalID).
		Time("expires_at", updated.ExpiresAt).
		Msg("Token refreshed")

	return respondOK(ctx, fiber.Map{
		"expiresAt": updated.ExpiresAt.UTC().Format(time.RFC3339),
		"scopes":    updated.Scopes,
	})
}

// Status reports whether a portal holds a live token. An expired or
// provider-invalid token is removed opportunistically while answering.
func (c *AuthController) Status(ctx fiber.Ctx) error {
	portalID := ctx.Query("portalId")
	if portalID == "" {
		log.Warn().Msg("Missing or invalid portalId parameter")
		return respondError(ctx, domain.KindInvalidRequest, "Portal ID is required", nil)
	}

	token, err := c.tokenStore.Get(ctx.RequestCtx(), portalID)
	if err != nil {
		log.Error().Err(err).Str("portal_id", portalID).Msg("Token status check failed")
		return respondError(ctx, domain.KindInternal, "Failed to check authentication status", nil)
	}
	if token == nil {
		return respondOK(ctx, domain.TokenStatus{IsValid: false})
	}

	if !c.hubspot.ValidateToken(ctx.RequestCtx(), token.AccessToken) {
		log.Warn().Str("portal_id", portalID).Msg("Token failed provider validation")

		if err := c.tokenStore.Delete(ctx.RequestCtx(), portalID); err != nil {
			log.Error().Err(err).Str("portal_id", portalID).Msg("Failed to delete invalid token")
		}

		return respondOK(ctx, domain.TokenStatus{IsValid: false})
	}

	isExpiringSoon := c.tokenStore.IsExpiringSoon(ctx.RequestCtx(), portalID, tokens.DefaultExpiryThreshold)

	return respondOK(ctx, domain.TokenStatus{
		IsValid:        true,
		ExpiresAt:      token.ExpiresAt.UTC().Format(time.RFC3339),
		Scopes:         token.Scopes,
		PortalID:       token.PortalID,
		IsExpiringSoon: isExpiringSoon,
	})
}
