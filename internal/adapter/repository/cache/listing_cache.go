package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix   = "listing:"
	dialTimeout = 5 * time.Second
)

// NewClient opens a Redis client and checks it with a ping.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	if _, err := client.Ping(dialCtx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis (ping failed): %w", err)
	}
	return client, nil
}

// ListingCache keeps read copies of active listings in Redis. It is never consulted by mutations.
type ListingCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewListingCache(client redis.Cmdable, ttl time.Duration) *ListingCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ListingCache{client: client, ttl: ttl}
}

func cacheKey(key domain.ListingKey) string {
	return keyPrefix + key.String()
}

func (c *ListingCache) Get(ctx context.Context, key domain.ListingKey) (*domain.Listing, error) {
	data, err := c.client.Get(ctx, cacheKey(key)).Bytes()
	if err == redis.Nil {
		return nil, nil // Cache miss
	}
	if err != nil {
		return nil, err
	}
	var listing domain.Listing
	if err := json.Unmarshal(data, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

func (c *ListingCache) Set(ctx context.Context, listing *domain.Listing) error {
	data, err := json.Marshal(listing)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(listing.Key()), data, c.ttl).Err()
}

func (c *ListingCache) Delete(ctx context.Context, key domain.ListingKey) error {
	return c.client.Del(ctx, cacheKey(key)).Err()
}
