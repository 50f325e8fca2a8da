// Package cache stores search results in Redis. Keys carry an index
// generation so results computed before a mutation are never served after
// it; concurrent misses for one key are collapsed with singleflight and
// Redis calls go through a circuit breaker so an unavailable cache degrades
// to direct evaluation.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/resilience"
)

const (
	keyPrefix = "search:"
	opTimeout = 250 * time.Millisecond
)

// Store is the key-value backend. *pkgredis.Client implements it; a
// missing key must produce an error for which pkgredis.IsNilError is true.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	store      Store
	ttl        time.Duration
	breaker    *resilience.CircuitBreaker
	group      singleflight.Group
	generation atomic.Uint64
	hits       atomic.Int64
	misses     atomic.Int64
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func New(store Store, cfg config.RedisConfig, m *metrics.Metrics) *QueryCache {
	c := &QueryCache{
		store:   store,
		ttl:     cfg.CacheTTL,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
	c.breaker = resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     10 * time.Second,
		OnStateChange: func(name string, to resilience.State) {
			if m != nil {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
	return c
}

// Get returns cached results for query under status.
func (c *QueryCache) Get(ctx context.Context, query string, status index.Status) ([]ranker.ScoredDocument, bool) {
	key := c.buildKey(query, status)
	var data []byte
	err := c.breaker.ExecuteIgnoring(func() error {
		return resilience.WithTimeout(ctx, opTimeout, "cache-get", func(ctx context.Context) error {
			var err error
			data, err = c.store.Get(ctx, key)
			return err
		})
	}, pkgredis.IsNilError)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Warn("cache get failed", "key", key, "error", err)
		}
		c.recordMiss()
		return nil, false
	}
	var docs []ranker.ScoredDocument
	if err := json.Unmarshal(data, &docs); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.recordMiss()
		return nil, false
	}
	c.recordHit()
	c.logger.Debug("cache hit", "query", query, "key", key)
	return docs, true
}

// Set stores docs for query under status.
func (c *QueryCache) Set(ctx context.Context, query string, status index.Status, docs []ranker.ScoredDocument) {
	c.set(ctx, c.buildKey(query, status), docs)
}

func (c *QueryCache) set(ctx context.Context, key string, docs []ranker.ScoredDocument) {
	data, err := json.Marshal(docs)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, opTimeout, "cache-set", func(ctx context.Context) error {
			return c.store.Set(ctx, key, data, c.ttl)
		})
	})
	if err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns cached results or computes, stores and returns
// them. Concurrent misses for the same key share one computation. The
// boolean reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	query string,
	status index.Status,
	computeFn func() ([]ranker.ScoredDocument, error),
) ([]ranker.ScoredDocument, bool, error) {
	if docs, ok := c.Get(ctx, query, status); ok {
		return docs, true, nil
	}
	// the key is fixed before computing so results racing with a mutation
	// land under the old generation
	key := c.buildKey(query, status)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		docs, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, docs)
		return docs, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]ranker.ScoredDocument), false, nil
}

// Advance makes every existing entry unreachable. It is called on each
// index mutation.
func (c *QueryCache) Advance() {
	c.generation.Add(1)
}

// Invalidate advances the generation and deletes all cached entries.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	c.Advance()
	var deleted int64
	err := c.breaker.Execute(func() error {
		var err error
		deleted, err = c.store.FlushByPattern(ctx, keyPrefix+"*")
		return err
	})
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BreakerState reports the state of the Redis circuit breaker.
func (c *QueryCache) BreakerState() resilience.State {
	return c.breaker.GetState()
}

func (c *QueryCache) recordHit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func (c *QueryCache) buildKey(query string, status index.Status) string {
	raw := fmt.Sprintf("%s|status=%s", normalizeQuery(query), status)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%d:%x", keyPrefix, c.generation.Load(), hash[:16])
}

// normalizeQuery returns the distinct space separated words of query in
// sorted order. Results depend only on that set, so word order and
// repetition do not fragment the cache. Words are case sensitive.
func normalizeQuery(query string) string {
	seen := make(map[string]struct{})
	words := make([]string, 0)
	for _, w := range strings.Split(query, " ") {
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}
	sort.Strings(words)
	return strings.Join(words, " ")
}
