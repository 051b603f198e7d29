package directory

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "dir:graph:"

// CachedStore is a read-through redis cache in front of another Store.
// Cache failures degrade to the inner store; the directory is small and a
// cold cache only costs latency during hop resolution.
type CachedStore struct {
	inner  Store
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedStore(inner Store, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedStore {
	return &CachedStore{inner: inner, client: client, ttl: ttl, logger: logger}
}

func (s *CachedStore) Save(ctx context.Context, user User) error {
	if err := s.inner.Save(ctx, user); err != nil {
		return err
	}
	s.put(ctx, user)
	return nil
}

func (s *CachedStore) FindByGraphID(ctx context.Context, graphID string) (User, error) {
	if user, ok := s.get(ctx, graphID); ok {
		return user, nil
	}
	user, err := s.inner.FindByGraphID(ctx, graphID)
	if err != nil {
		return User{}, err
	}
	s.put(ctx, user)
	return user, nil
}

func (s *CachedStore) FindByGraphIDs(ctx context.Context, graphIDs []string) (map[string]User, error) {
	found := make(map[string]User, len(graphIDs))
	var misses []string

	keys := make([]string, len(graphIDs))
	for i, id := range graphIDs {
		keys[i] = cacheKeyPrefix + id
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		s.logger.WarnContext(ctx, "directory cache batch read failed", "error", err)
		return s.inner.FindByGraphIDs(ctx, graphIDs)
	}

	for i, raw := range values {
		str, ok := raw.(string)
		if !ok {
			misses = append(misses, graphIDs[i])
			continue
		}
		var user User
		if err := json.Unmarshal([]byte(str), &user); err != nil {
			misses = append(misses, graphIDs[i])
			continue
		}
		found[graphIDs[i]] = user
	}

	if len(misses) > 0 {
		fromStore, err := s.inner.FindByGraphIDs(ctx, misses)
		if err != nil {
			return nil, err
		}
		pipe := s.client.Pipeline()
		for id, user := range fromStore {
			found[id] = user
			if payload, err := json.Marshal(user); err == nil {
				pipe.Set(ctx, cacheKeyPrefix+id, payload, s.ttl)
			}
		}
		if _, err := pipe.Exec(ctx); err != nil {
			s.logger.WarnContext(ctx, "directory cache batch fill failed", "error", err)
		}
	}
	return found, nil
}

func (s *CachedStore) FindByNotificationID(ctx context.Context, notificationID string) (User, error) {
	// Notification-ID lookups are rare (self-service paths only); go straight
	// to the inner store rather than maintaining a second cache index.
	return s.inner.FindByNotificationID(ctx, notificationID)
}

func (s *CachedStore) get(ctx context.Context, graphID string) (User, bool) {
	raw, err := s.client.Get(ctx, cacheKeyPrefix+graphID).Result()
	if errors.Is(err, redis.Nil) {
		return User{}, false
	}
	if err != nil {
		s.logger.WarnContext(ctx, "directory cache read failed", "error", err)
		return User{}, false
	}
	var user User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return User{}, false
	}
	return user, true
}

func (s *CachedStore) put(ctx context.Context, user User) {
	payload, err := json.Marshal(user)
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, cacheKeyPrefix+user.GraphID, payload, s.ttl).Err(); err != nil {
		s.logger.WarnContext(ctx, "directory cache write failed", "error", err)
	}
}
