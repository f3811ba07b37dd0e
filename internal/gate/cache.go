package gate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/telehealth-gate/internal/knowledge"
)

const defaultSearchCacheTTL = 10 * time.Minute

// SearchCache memoizes retrieval results. Results are a pure function of the
// query and the corpus, so entries never need invalidation beyond the corpus
// fingerprint embedded in the key.
type SearchCache interface {
	Get(ctx context.Context, key string) (knowledge.Result, bool, error)
	Set(ctx context.Context, key string, result knowledge.Result) error
}

// RedisSearchCache stores results as JSON under a TTL.
type RedisSearchCache struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewRedisSearchCache wraps client. A non-positive ttl uses the default.
func NewRedisSearchCache(client *redis.Client, ttl time.Duration) *RedisSearchCache {
	if client == nil {
		panic("gate: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultSearchCacheTTL
	}
	return &RedisSearchCache{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("telehealth.internal.gate.cache"),
	}
}

func (c *RedisSearchCache) Get(ctx context.Context, key string) (knowledge.Result, bool, error) {
	ctx, span := c.tracer.Start(ctx, "gate.search_cache.get")
	defer span.End()

	data, err := c.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return knowledge.Result{}, false, nil
	}
	if err != nil {
		span.RecordError(err)
		return knowledge.Result{}, false, fmt.Errorf("gate: read search cache: %w", err)
	}

	var result knowledge.Result
	if err := json.Unmarshal(data, &result); err != nil {
		span.RecordError(err)
		return knowledge.Result{}, false, fmt.Errorf("gate: decode search cache: %w", err)
	}
	return result, true, nil
}

func (c *RedisSearchCache) Set(ctx context.Context, key string, result knowledge.Result) error {
	ctx, span := c.tracer.Start(ctx, "gate.search_cache.set")
	defer span.End()

	data, err := json.Marshal(result)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("gate: encode search cache: %w", err)
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("gate: write search cache: %w", err)
	}
	return nil
}

// searchCacheKey is derived from the normalized query so that spelling
// variants that normalize identically share an entry.
func searchCacheKey(fingerprint, normalizedQuery string, category knowledge.Category, topK int) string {
	h := sha256.Sum256([]byte(normalizedQuery + "\x00" + string(category) + "\x00" + strconv.Itoa(topK)))
	return fmt.Sprintf("knowledge_search:%s:%s", fingerprint, hex.EncodeToString(h[:12]))
}
