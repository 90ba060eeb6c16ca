package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("HUBSPOT_CLIENT_ID", "client-id")
	t.Setenv("HUBSPOT_CLIENT_SECRET", "client-secret")
	t.Setenv("HUBSPOT_REDIRECT_URI", "https://bridge.example.com/api/auth/callback")
	t.Setenv("ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")
	t.Setenv("JWT_SECRET", "jwt-signing-secret")
	t.Setenv("SALES_INTEL_API_URL", "https://reports.example.com")
}

func TestLoadConfig(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "client-id", cfg.HubSpotClientID)
	assert.Equal(t, "https://reports.example.com", cfg.SalesIntelAPIURL)
	assert.Equal(t, ":8080", cfg.HTTPAddress)
	assert.Equal(t, "http://localhost:8080", cfg.AppBaseURL)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, DefaultScopes, cfg.HubSpotScopes)
	assert.Equal(t, DefaultAllowedOrigins, cfg.AllowedOrigins)
}

func TestLoadConfig_MissingRequiredVariables(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HUBSPOT_CLIENT_ID", "")
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required environment variables")
	assert.Contains(t, err.Error(), "HUBSPOT_CLIENT_ID")
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadConfig_EncryptionKeyLength(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENCRYPTION_KEY", "too-short")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ENCRYPTION_KEY must be exactly 32 characters")
}

func TestLoadConfig_AllowedOriginsOverride(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
}
