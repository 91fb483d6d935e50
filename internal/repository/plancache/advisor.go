// Package plancache caches query plans for history-free queries.
package plancache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/buyingguide/internal/db"
	"github.com/kailas-cloud/buyingguide/internal/domain"
	"github.com/kailas-cloud/buyingguide/internal/domain/candidate"
	"github.com/kailas-cloud/buyingguide/internal/domain/llm"
	"github.com/kailas-cloud/buyingguide/internal/domain/plan"
)

var cacheKeyPrefix = domain.KeyPrefix + "plan_cache:"

// store is the consumer interface for the plan cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedAdvisor caches Plan results keyed by the normalized query.
// Requests that carry history always go to the inner advisor: the same text
// can mean something else as a refinement. Explain is never cached.
type CachedAdvisor struct {
	inner      llm.Advisor
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner llm.Advisor,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedAdvisor {
	return &CachedAdvisor{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Plan returns a cached plan or asks the inner advisor.
// A cache hit reports zero token usage.
func (c *CachedAdvisor) Plan(ctx context.Context, query string, history []llm.Turn) (llm.PlanResult, error) {
	if len(history) > 0 {
		return c.inner.Plan(ctx, query, history) //nolint:wrapcheck // transparent decorator
	}

	key := cacheKey(query)
	if p, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return llm.PlanResult{Plan: p}, nil
	}
	c.incCache("miss")

	res, err := c.inner.Plan(ctx, query, nil)
	if err != nil {
		return llm.PlanResult{}, fmt.Errorf("plan query: %w", err)
	}

	c.putToCache(ctx, key, res.Plan)
	return res, nil
}

// Explain delegates to the inner advisor.
func (c *CachedAdvisor) Explain(
	ctx context.Context, query string, p plan.Plan, ranked []candidate.Scored, history []llm.Turn,
) (llm.Explanation, error) {
	return c.inner.Explain(ctx, query, p, ranked, history) //nolint:wrapcheck // transparent decorator
}

// HealthCheck forwards to the inner advisor when it supports probing.
func (c *CachedAdvisor) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(llm.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

func (c *CachedAdvisor) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

// cacheKey hashes the query after case folding and whitespace collapsing.
func cacheKey(query string) string {
	norm := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	h := sha256.Sum256([]byte(norm))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedAdvisor) getFromCache(ctx context.Context, key string) (plan.Plan, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached plan", zap.String("key", key), zap.Error(err))
		}
		return plan.Plan{}, false
	}

	var d planDTO
	if err := json.Unmarshal(data, &d); err != nil {
		c.logger.Warn("Failed to parse cached plan", zap.String("key", key), zap.Error(err))
		return plan.Plan{}, false
	}
	if d.Version != cacheVersion {
		return plan.Plan{}, false
	}

	p := d.toDomain()
	if err := p.Validate(); err != nil {
		c.logger.Warn("Cached plan is invalid", zap.String("key", key), zap.Error(err))
		return plan.Plan{}, false
	}
	return p, true
}

func (c *CachedAdvisor) putToCache(ctx context.Context, key string, p plan.Plan) {
	data, err := json.Marshal(toDTO(p))
	if err != nil {
		c.logger.Warn("Failed to encode plan for cache", zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache plan", zap.String("key", key), zap.Error(err))
	}
}
