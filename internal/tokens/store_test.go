package tokens

import (
	"context"
	"testing"
	"time"

	"github.com/romeoman/hubspot-sales-intelligence-extension/internal/crypto"
	"github.com/romeoman/hubspot-sales-intelligence-extension/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis, *crypto.Service) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	encryption, err := crypto.NewService(testKey)
	require.NoError(t, err)

	return NewStore(client, encryption), mr, encryption
}

func validToken(portalID string, ttl time.Duration) domain.OAuthToken {
	now := time.Now()
	return domain.OAuthToken{
		PortalID:     portalID,
		AccessToken:  "access-" + portalID,
		RefreshToken: "refresh-" + portalID,
		ExpiresAt:    now.Add(ttl),
		Scopes:       []string{"crm.objects.contacts.read", "crm.objects.companies.read"},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestStore_RoundTrip(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	token := validToken("12345", 30*time.Minute)
	require.NoError(t, store.Store(ctx, token))

	got, err := store.Get(ctx, "12345")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, token.PortalID, got.PortalID)
	assert.Equal(t, token.AccessToken, got.AccessToken)
	assert.Equal(t, token.RefreshToken, got.RefreshToken)
	assert.Equal(t, token.Scopes, got.Scopes)
	assert.WithinDuration(t, token.ExpiresAt, got.ExpiresAt, time.Second)
}

func TestStore_ValueEncryptedAtRest(t *testing.T) {
	store, mr, _ := newTestStore(t)
	ctx := context.Background()

	token := validToken("12345", 30*time.Minute)
	require.NoError(t, store.Store(ctx, token))

	raw, err := mr.Get("hubspot_token:12345")
	require.NoError(t, err)

	assert.NotContains(t, raw, token.AccessToken)
	assert.NotContains(t, raw, token.RefreshToken)
}

func TestStore_ExpiredTokenIsAbsent(t *testing.T) {
	store, mr, _ := newTestStore(t)
	ctx := context.Background()

	token := validToken("12345", -time.Second)
	require.NoError(t, store.Store(ctx, token))

	got, err := store.Get(ctx, "12345")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, mr.Exists("hubspot_token:12345"))
}

func TestGet_LazyExpiryDeletesEntry(t *testing.T) {
	// The Redis TTL is an optimization only; a blob whose own expiry has
	// passed must be treated as absent even while the key still exists.
	store, mr, encryption := newTestStore(t)
	ctx := context.Background()

	stale := validToken("12345", time.Hour)
	stale.ExpiresAt = time.Now().Add(-time.Minute)

	encrypted, err := encryption.EncryptObject(stale)
	require.NoError(t, err)
	require.NoError(t, mr.Set("hubspot_token:12345", encrypted))

	got, err := store.Get(ctx, "12345")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, mr.Exists("hubspot_token:12345"))
}

func TestGet_Absent(t *testing.T) {
	store, _, _ := newTestStore(t)

	got, err := store.Get(context.Background(), "99999")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdate_MergesPartialFields(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	original := validToken("12345", 30*time.Minute)
	require.NoError(t, store.Store(ctx, original))

	newAccess := "rotated-access"
	newExpiry := time.Now().Add(time.Hour)

	updated, err := store.Update(ctx, "12345", domain.TokenUpdate{
		AccessToken: &newAccess,
		ExpiresAt:   &newExpiry,
	})
	require.NoError(t, err)
	require.NotNil(t, updated)

	assert.Equal(t, newAccess, updated.AccessToken)
	assert.Equal(t, original.RefreshToken, updated.RefreshToken)
	assert.WithinDuration(t, newExpiry, updated.ExpiresAt, time.Second)
	assert.True(t, updated.UpdatedAt.After(original.UpdatedAt) || updated.UpdatedAt.Equal(original.UpdatedAt))

	got, err := store.Get(ctx, "12345")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, newAccess, got.AccessToken)
}

func TestUpdate_AbsentDoesNotCreate(t *testing.T) {
	store, mr, _ := newTestStore(t)

	newAccess := "whatever"
	updated, err := store.Update(context.Background(), "99999", domain.TokenUpdate{
		AccessToken: &newAccess,
	})
	require.NoError(t, err)
	assert.Nil(t, updated)
	assert.False(t, mr.Exists("hubspot_token:99999"))
}

func TestDelete_Idempotent(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, validToken("12345", 30*time.Minute)))
	require.NoError(t, store.Delete(ctx, "12345"))
	require.NoError(t, store.Delete(ctx, "12345"))

	got, err := store.Get(ctx, "12345")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestIsExpiringSoon(t *testing.T) {
	store, mr, _ := newTestStore(t)
	ctx := context.Background()

	t.Run("absent token needs attention", func(t *testing.T) {
		assert.True(t, store.IsExpiringSoon(ctx, "absent", DefaultExpiryThreshold))
	})

	t.Run("expiring inside threshold", func(t *testing.T) {
		require.NoError(t, store.Store(ctx, validToken("111", 2*time.Minute)))
		assert.True(t, store.IsExpiringSoon(ctx, "111", DefaultExpiryThreshold))
	})

	t.Run("comfortably valid", func(t *testing.T) {
		require.NoError(t, store.Store(ctx, validToken("222", time.Hour)))
		assert.False(t, store.IsExpiringSoon(ctx, "222", DefaultExpiryThreshold))
	})

	t.Run("internal error fails toward refresh", func(t *testing.T) {
		require.NoError(t, mr.Set("hubspot_token:333", "not-a-ciphertext"))
		assert.True(t, store.IsExpiringSoon(ctx, "333", DefaultExpiryThreshold))
	})
}
