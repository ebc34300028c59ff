// Package cache adds a Redis read-aside layer in front of the token
// registry.
package cache

import (
	"context"
	"time"

	"github.com/tinywideclouds/go-chat-fanout-service/pkg/fanout"
)

// CacheClient defines the subset of Redis commands we need.
type CacheClient interface {
	// Get returns the value or a specific error if not found.
	Get(ctx context.Context, key string, dest interface{}) error
	// Set stores the value with a TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Del removes the key.
	Del(ctx context.Context, key string) error
}

const recipientsKey = "fanout:recipients"

// CachedTokenRegistry is a Decorator that caches the broadcast recipient
// snapshot in front of any TokenRegistry. Every write path invalidates the
// snapshot so registrations and stale-token cleanup become visible on the
// next message.
type CachedTokenRegistry struct {
	realRegistry fanout.TokenRegistry
	cache        CacheClient
	ttl          time.Duration
}

func NewCachedTokenRegistry(realRegistry fanout.TokenRegistry, cache CacheClient, ttl time.Duration) *CachedTokenRegistry {
	return &CachedTokenRegistry{
		realRegistry: realRegistry,
		cache:        cache,
		ttl:          ttl,
	}
}

// --- READ PATHS ---

func (r *CachedTokenRegistry) QueryUsersWithToken(ctx context.Context) ([]fanout.DeviceTokenRecord, error) {
	var cached []fanout.DeviceTokenRecord
	if err := r.cache.Get(ctx, recipientsKey, &cached); err == nil {
		return cached, nil
	}

	fresh, err := r.realRegistry.QueryUsersWithToken(ctx)
	if err != nil {
		return nil, err
	}

	// Caching is an optimization, not a transaction. If Redis is down we
	// just serve from the registry.
	_ = r.cache.Set(ctx, recipientsKey, fresh, r.ttl)

	return fresh, nil
}

// QueryUsersByToken always reads the source of truth: cleanup has to see the
// registry as it is, not a snapshot.
func (r *CachedTokenRegistry) QueryUsersByToken(ctx context.Context, token string) ([]string, error) {
	return r.realRegistry.QueryUsersByToken(ctx, token)
}

// --- WRITE PATHS (Invalidate-on-Write) ---

func (r *CachedTokenRegistry) DeleteTokenField(ctx context.Context, userID string) error {
	if err := r.realRegistry.DeleteTokenField(ctx, userID); err != nil {
		return err
	}
	return r.invalidate(ctx)
}

func (r *CachedTokenRegistry) RegisterToken(ctx context.Context, userID, token string) error {
	if err := r.realRegistry.RegisterToken(ctx, userID, token); err != nil {
		return err
	}
	return r.invalidate(ctx)
}

func (r *CachedTokenRegistry) UnregisterToken(ctx context.Context, userID string) error {
	if err := r.realRegistry.UnregisterToken(ctx, userID); err != nil {
		return err
	}
	return r.invalidate(ctx)
}

func (r *CachedTokenRegistry) invalidate(ctx context.Context) error {
	// The next QueryUsersWithToken is forced back to the registry.
	return r.cache.Del(ctx, recipientsKey)
}
