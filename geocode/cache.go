package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"eventdir/models"

	"github.com/redis/go-redis/v9"
)

const notFoundValue = "-"

// Cached memoizes another Resolver in Redis. Misses are cached too so a
// bad query does not hit the upstream service on every submission.
type Cached struct {
	Next  Resolver
	Redis *redis.Client
	TTL   time.Duration
}

func cacheKey(query string, kind Kind) string {
	return "geocode:" + string(kind) + ":" + strings.ToLower(strings.TrimSpace(query))
}

func (c *Cached) Resolve(ctx context.Context, query string, kind Kind) (models.Address, error) {
	key := cacheKey(query, kind)

	val, err := c.Redis.Get(ctx, key).Result()
	switch {
	case err == nil && val == notFoundValue:
		return models.Address{}, ErrNotFound
	case err == nil:
		var a models.Address
		if jerr := json.Unmarshal([]byte(val), &a); jerr == nil {
			a.Query = query
			return a, nil
		}
		log.Printf("[geocode] dropping corrupt cache entry %s", key)
	case !errors.Is(err, redis.Nil):
		log.Printf("[geocode] cache read failed for %s: %v", key, err)
	}

	a, err := c.Next.Resolve(ctx, query, kind)
	switch {
	case errors.Is(err, ErrNotFound):
		c.store(ctx, key, notFoundValue)
		return a, err
	case err != nil:
		return a, err
	}

	if data, jerr := json.Marshal(a); jerr == nil {
		c.store(ctx, key, string(data))
	}
	return a, nil
}

func (c *Cached) store(ctx context.Context, key, val string) {
	if err := c.Redis.Set(ctx, key, val, c.TTL).Err(); err != nil {
		log.Printf("[geocode] cache write failed for %s: %v", key, err)
	}
}
