package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"organlink/internal/policy/models"
)

const cacheKey = "organlink:policies:eligible"

// CachedStore is a Redis read-through cache in front of another policy store.
// Governance reads are hot on every enhanced match, while policy changes are
// rare; a short TTL bounds staleness. Cache failures degrade to the backing
// store and are logged, never surfaced.
type CachedStore struct {
	backing Store
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
}

// NewCachedStore wraps backing with a Redis cache.
func NewCachedStore(backing Store, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedStore {
	return &CachedStore{backing: backing, client: client, ttl: ttl, logger: logger}
}

// Save writes through to the backing store and invalidates the cache.
func (s *CachedStore) Save(ctx context.Context, policy *models.Policy) error {
	if err := s.backing.Save(ctx, policy); err != nil {
		return err
	}
	if err := s.client.Del(ctx, cacheKey).Err(); err != nil {
		s.logger.WarnContext(ctx, "policy cache invalidation failed", "error", err)
	}
	return nil
}

func (s *CachedStore) Eligible(ctx context.Context) ([]*models.Policy, error) {
	cached, err := s.client.Get(ctx, cacheKey).Bytes()
	if err == nil {
		var policies []*models.Policy
		if err := json.Unmarshal(cached, &policies); err == nil {
			return policies, nil
		}
		s.logger.WarnContext(ctx, "policy cache entry corrupt, falling through", "error", err)
	} else if err != redis.Nil {
		s.logger.WarnContext(ctx, "policy cache read failed, falling through", "error", err)
	}

	policies, err := s.backing.Eligible(ctx)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(policies); err == nil {
		if err := s.client.Set(ctx, cacheKey, encoded, s.ttl).Err(); err != nil {
			s.logger.WarnContext(ctx, "policy cache write failed", "error", err)
		}
	}
	return policies, nil
}
