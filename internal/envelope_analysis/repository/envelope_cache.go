package repository

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/domain"
	"github.com/redis/go-redis/v9"
)

const (
	cacheKeyPrefix  = "envelope:cache:" // envelope:cache:{type}:{gen}:{hash}
	genKeyPrefix    = "envelope:gen:"   // Invalidation counter per experiment type
	defaultCacheTTL = time.Hour
)

// EnvelopeCache stores computed envelopes. Bumping a type's generation makes every
// cached envelope of that type unreachable; the entries then age out.
type EnvelopeCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewEnvelopeCache creates a new EnvelopeCache
func NewEnvelopeCache(client *redis.Client, ttl time.Duration) *EnvelopeCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &EnvelopeCache{client: client, ttl: ttl}
}

// Key builds the cache key for a request against the current historical set.
func (c *EnvelopeCache) Key(ctx context.Context, typeID int64, cols []string, s domain.Sampling, historicalIDs []int64) (string, error) {
	gen, err := c.client.Get(ctx, genKey(typeID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("failed to read cache generation: %w", err)
	}

	sortedCols := append([]string(nil), cols...)
	sort.Strings(sortedCols)
	ids := append([]int64(nil), historicalIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	idStrs := make([]string, len(ids))
	for i, id := range ids {
		idStrs[i] = strconv.FormatInt(id, 10)
	}

	h := sha1.New()
	fmt.Fprintf(h, "%s|%t|%d|%s", strings.Join(sortedCols, ","), s.Enabled, s.Points, strings.Join(idStrs, ","))
	return fmt.Sprintf("%s%d:%d:%s", cacheKeyPrefix, typeID, gen, hex.EncodeToString(h.Sum(nil))), nil
}

// Get returns a cached envelope; ok is false on a miss
func (c *EnvelopeCache) Get(ctx context.Context, key string) (*domain.EnvelopeData, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached envelope: %w", err)
	}

	var env domain.EnvelopeData
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached envelope: %w", err)
	}
	return &env, true, nil
}

// Put stores an envelope under key
func (c *EnvelopeCache) Put(ctx context.Context, key string, env *domain.EnvelopeData) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache envelope: %w", err)
	}
	return nil
}

// Invalidate bumps the generation of a type
func (c *EnvelopeCache) Invalidate(ctx context.Context, typeID int64) error {
	if err := c.client.Incr(ctx, genKey(typeID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate envelope cache: %w", err)
	}
	return nil
}

func genKey(typeID int64) string {
	return genKeyPrefix + strconv.FormatInt(typeID, 10)
}
