package domain

import "time"

// OAuthToken is one portal's HubSpot credential set. Exactly one live token
// exists per portal at a time; a new store overwrites the previous one.
type OAuthToken struct {
	PortalID     string    `json:"portalId"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Scopes       []string  `json:"scopes"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsExpired reports whether the token's validity window has passed.
func (t OAuthToken) IsExpired() bool {
	return !t.ExpiresAt.After(time.Now())
}

// TokenUpdate carries the fields a refresh mutates. Nil pointers leave the
// stored value untouched.
type TokenUpdate struct {
	AccessToken  *string
	RefreshToken *string
	ExpiresAt    *time.Time
	Scopes       []string
}

// TokenGrant is the provider's answer to a code exchange or refresh.
type TokenGrant struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// PortalInfo is the tenant metadata HubSpot reports for an access token.
type PortalInfo struct {
	PortalID string `json:"portalId"`
	Domain   string `json:"domain"`
	TimeZone string `json:"timeZone"`
}

// TokenStatus is the payload of the auth status endpoint.
type TokenStatus struct {
	IsValid        bool     `json:"isValid"`
	ExpiresAt      string   `json:"expiresAt,omitempty"`
	Scopes         []string `json:"scopes,omitempty"`
	PortalID       string   `json:"portalId,omitempty"`
	IsExpiringSoon bool     `json:"isExpiringSoon,omitempty"`
}
