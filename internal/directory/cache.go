// internal/directory/cache.go
package directory

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"affiliation-validator/internal/common/logger"
	"affiliation-validator/internal/models"
)

// CachedAPI decorates a directory API with a short-lived Redis cache for
// search and affiliation lookups. Cache misses and Redis failures fall
// through to the upstream client; stale entries expire by TTL only.
type CachedAPI struct {
	upstream API
	redis    *redis.Client
	ttl      time.Duration
	logger   logger.Logger
}

func NewCachedAPI(upstream API, rdb *redis.Client, ttl time.Duration, log logger.Logger) *CachedAPI {
	return &CachedAPI{
		upstream: upstream,
		redis:    rdb,
		ttl:      ttl,
		logger:   log.WithFields(map[string]interface{}{"component": "directory-cache"}),
	}
}

func (c *CachedAPI) SearchPeople(ctx context.Context, lookupID string) ([]models.DirectoryCandidate, error) {
	cacheKey := "dir:search:" + lookupID
	if val, err := c.redis.Get(ctx, cacheKey).Result(); err == nil {
		var cands []models.DirectoryCandidate
		if err := json.Unmarshal([]byte(val), &cands); err == nil {
			return cands, nil
		}
	}

	cands, err := c.upstream.SearchPeople(ctx, lookupID)
	if err != nil {
		return nil, err
	}

	c.put(ctx, cacheKey, cands)
	return cands, nil
}

func (c *CachedAPI) GetPerson(ctx context.Context, id string) (*models.DirectoryCandidate, error) {
	cacheKey := "dir:person:" + id
	if val, err := c.redis.Get(ctx, cacheKey).Result(); err == nil {
		var person models.DirectoryCandidate
		if err := json.Unmarshal([]byte(val), &person); err == nil {
			return &person, nil
		}
	}

	person, err := c.upstream.GetPerson(ctx, id)
	if err != nil {
		return nil, err
	}

	c.put(ctx, cacheKey, person)
	return person, nil
}

func (c *CachedAPI) GetAffiliations(ctx context.Context, id string) ([]models.AffiliationCode, error) {
	cacheKey := "dir:codes:" + id
	if val, err := c.redis.Get(ctx, cacheKey).Result(); err == nil {
		var codes []models.AffiliationCode
		if err := json.Unmarshal([]byte(val), &codes); err == nil {
			return codes, nil
		}
	}

	codes, err := c.upstream.GetAffiliations(ctx, id)
	if err != nil {
		return nil, err
	}

	c.put(ctx, cacheKey, codes)
	return codes, nil
}

func (c *CachedAPI) put(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Debug("cache write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}
