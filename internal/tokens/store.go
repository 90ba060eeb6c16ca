package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/romeoman/hubspot-sales-intelligence-extension/internal/crypto"
	"github.com/romeoman/hubspot-sales-intelligence-extension/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const tokenKeyPrefix = "hubspot_token:"

// DefaultExpiryThreshold is how close to expiry a token may get before
// IsExpiringSoon reports it needs a refresh.
const DefaultExpiryThreshold = 5 * time.Minute

// Store persists one encrypted OAuth token per portal in Redis. The Redis TTL
// mirrors the token's own expiry but is an optimization only; Get enforces
// expiry from the decrypted record itself.
//
// There is no compare-and-swap: the last writer wins. Concurrent refreshes
// for the same portal can overwrite each other's tokens (see DESIGN.md).
type Store struct {
	client     redis.UniversalClient
	encryption *crypto.Service
}

// NewStore creates a token store over the given Redis client.
func NewStore(client redis.UniversalClient, encryption *crypto.Service) *Store {
	return &Store{
		client:     client,
		encryption: encryption,
	}
}

func tokenKey(portalID string) string {
	return tokenKeyPrefix + portalID
}

// Store writes the encrypted token under its portal key with a TTL matching
// the token's remaining lifetime. A token that is already expired is treated
// as immediately absent rather than an error.
func (s *Store) Store(ctx context.Context, token domain.OAuthToken) error {
	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		log.Warn().
			Str("portal_id", token.PortalID).
			Time("expires_at", token.ExpiresAt).
			Msg("Storing already-expired token, removing entry")

		return s.Delete(ctx, token.PortalID)
	}

	encrypted, err := s.encryption.EncryptObject(token)
	if err != nil {
		return fmt.Errorf("failed to store authentication token: %w", err)
	}

	if err := s.client.Set(ctx, tokenKey(token.PortalID), encrypted, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store authentication token: %w", err)
	}

	log.Info().
		Str("portal_id", token.PortalID).
		Time("expires_at", token.ExpiresAt).
		Msg("Token stored")

	return nil
}

// Get retrieves and decrypts the portal's token. It returns nil with no error
// when the token is absent, and deletes tokens whose own expiry has passed
// even if the Redis TTL has not fired yet.
func (s *Store) Get(ctx context.Context, portalID string) (*domain.OAuthToken, error) {
	encrypted, err := s.client.Get(ctx, tokenKey(portalID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve authentication token: %w", err)
	}

	var token domain.OAuthToken
	if err := s.encryption.DecryptObject(encrypted, &token); err != nil {
		return nil, fmt.Errorf("failed to retrieve authentication token: %w", err)
	}

	if token.IsExpired() {
		log.Warn().
			Str("portal_id", portalID).
			Time("expires_at", token.ExpiresAt).
			Msg("Token expired, removing")

		if err := s.Delete(ctx, portalID); err != nil {
			return nil, err
		}

		return nil, nil
	}

	return &token, nil
}

// Update merges partial fields over the stored token, stamps UpdatedAt, and
// re-stores it. It returns nil when no token exists; updates never create.
func (s *Store) Update(ctx context.Context, portalID string, update domain.TokenUpdate) (*domain.OAuthToken, error) {
	existing, err := s.Get(ctx, portalID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		log.Warn().Str("portal_id", portalID).Msg("Cannot update non-existent token")
		return nil, nil
	}

	token := *existing
	if update.AccessToken != nil {
		token.AccessToken = *update.AccessToken
	}
	if update.RefreshToken != nil {
		token.RefreshToken = *update.RefreshToken
	}
	if update.ExpiresAt != nil {
		token.ExpiresAt = *update.ExpiresAt
	}
	if update.Scopes != nil {
		token.Scopes = update.Scopes
	}
	token.UpdatedAt = time.Now()

	if err := s.Store(ctx, token); err != nil {
		return nil, err
	}

	return &token, nil
}

// Delete removes the portal's token. Deleting an absent token is not an error.
func (s *Store) Delete(ctx context.Context, portalID string) error {
	if err := s.client.Del(ctx, tokenKey(portalID)).Err(); err != nil {
		return fmt.Errorf("failed to delete authentication token: %w", err)
	}

	return nil
}

// IsExpiringSoon reports whether the portal's token needs a refresh: true
// when no token exists, when expiry falls within the threshold, or when the
// check itself fails (failing toward refresh rather than trusting a stale
// token).
func (s *Store) IsExpiringSoon(ctx context.Context, portalID string, threshold time.Duration) bool {
	token, err := s.Get(ctx, portalID)
	if err != nil {
		log.Error().Err(err).Str("portal_id", portalID).Msg("Failed to check token expiration")
		return true
	}
	if token == nil {
		return true
	}

	return !token.ExpiresAt.After(time.Now().Add(threshold))
}
