package auth

import (
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignURL_RoundTrip(t *testing.T) {
	signer := NewURLSigner("url-signing-secret")

	signedURL, expiresAt, err := signer.SignURL("https://reports.example.com/r/acme-report", URLClaims{
		Slug:      "acme-report",
		ReportID:  "r1",
		ContactID: "777",
		PortalID:  "12345",
		RequestID: "req-1",
	})
	require.NoError(t, err)

	assert.WithinDuration(t, time.Now().Add(DefaultURLTokenTTL), expiresAt, 5*time.Second)

	parsed, err := url.Parse(signedURL)
	require.NoError(t, err)
	assert.Equal(t, "/r/acme-report", parsed.Path)

	tokenString := parsed.Query().Get("token")
	require.NotEmpty(t, tokenString)

	claims, err := signer.Verify(tokenString)
	require.NoError(t, err)

	assert.Equal(t, "acme-report", claims.Slug)
	assert.Equal(t, "r1", claims.ReportID)
	assert.Equal(t, "777", claims.ContactID)
	assert.Equal(t, "12345", claims.PortalID)
	assert.Equal(t, "req-1", claims.RequestID)
	assert.Equal(t, expiresAt.Unix(), claims.ExpiresAt.Unix())
}

func TestSignURL_PreservesExistingQuery(t *testing.T) {
	signer := NewURLSigner("url-signing-secret")

	signedURL, _, err := signer.SignURL("https://reports.example.com/r/acme-report?theme=dark", URLClaims{Slug: "acme-report"})
	require.NoError(t, err)

	parsed, err := url.Parse(signedURL)
	require.NoError(t, err)
	assert.Equal(t, "dark", parsed.Query().Get("theme"))
	assert.NotEmpty(t, parsed.Query().Get("token"))
}

func TestVerify_RejectsWrongSecret(t *testing.T) {
	signer := NewURLSigner("url-signing-secret")
	other := NewURLSigner("a-different-secret")

	signedURL, _, err := signer.SignURL("https://reports.example.com/r/acme-report", URLClaims{Slug: "acme-report"})
	require.NoError(t, err)

	parsed, err := url.Parse(signedURL)
	require.NoError(t, err)

	_, err = other.Verify(parsed.Query().Get("token"))
	assert.Error(t, err)
}

func TestVerify_RejectsExpiredToken(t *testing.T) {
	signer := NewURLSigner("url-signing-secret")
	signer.ttl = -time.Minute

	signedURL, _, err := signer.SignURL("https://reports.example.com/r/acme-report", URLClaims{Slug: "acme-report"})
	require.NoError(t, err)

	parsed, err := url.Parse(signedURL)
	require.NoError(t, err)

	_, err = signer.Verify(parsed.Query().Get("token"))
	assert.Error(t, err)
}

func TestVerify_RejectsUnsignedAlgorithm(t *testing.T) {
	signer := NewURLSigner("url-signing-secret")

	token := jwt.NewWithClaims(jwt.SigningMethodNone, URLClaims{Slug: "acme-report"})
	unsigned, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = signer.Verify(unsigned)
	assert.Error(t, err)
}
