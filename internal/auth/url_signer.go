package auth

import (
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultURLTokenTTL is how long a signed report access URL stays valid.
const DefaultURLTokenTTL = 24 * time.Hour

// URLSigner appends short-lived signed tokens to report access URLs so the
// link cannot be re-pointed at another report or portal after issuance.
type URLSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewURLSigner creates a signer from the shared signing secret.
func NewURLSigner(secret string) *URLSigner {
	return &URLSigner{
		secret: []byte(secret),
		ttl:    DefaultURLTokenTTL,
	}
}

// URLClaims bind a signed URL to its report and requesting record.
type URLClaims struct {
	Slug      string `json:"slug"`
	ReportID  string `json:"reportId,omitempty"`
	ContactID string `json:"contactId,omitempty"`
	CompanyID string `json:"companyId,omitempty"`
	PortalID  string `json:"portalId,omitempty"`
	RequestID string `json:"requestId,omitempty"`
	jwt.RegisteredClaims
}

// SignURL appends a signed token query parameter to rawURL and returns the
// result together with the token's expiry instant.
func (s *URLSigner) SignURL(rawURL string, claims URLClaims) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.ttl)

	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(expiresAt)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign report URL: %w", err)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign report URL: %w", err)
	}

	query := parsed.Query()
	query.Set("token", signed)
	parsed.RawQuery = query.Encode()

	return parsed.String(), expiresAt, nil
}

// Verify parses and validates a signed URL token, returning its claims.
func (s *URLSigner) Verify(tokenString string) (*URLClaims, error) {
	claims := &URLClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid report URL token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid report URL token")
	}

	return claims, nil
}
