package valuation

import (
	"context"
	"time"

	"github.com/wonny/indexbeta/internal/contracts"
	"github.com/wonny/indexbeta/internal/metrics"
	"github.com/wonny/indexbeta/pkg/logger"
	"github.com/wonny/indexbeta/pkg/redis"
)

// JSONCache is the subset of redis.Cache the history cache needs
type JSONCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// HistoryCache memoizes history builds per index, window, interval and
// weighting. Cache failures fall through to the wrapped source. Histories
// with failed fetches, or no samples at all, are returned but never stored.
type HistoryCache struct {
	source    HistorySource
	cache     JSONCache
	weighting Weighting
	ttl       time.Duration
	metrics   *metrics.Registry
	logger    *logger.Logger
}

// NewHistoryCache wraps source. A zero ttl uses redis.TTLDaily.
func NewHistoryCache(source HistorySource, cache JSONCache, weighting Weighting, ttl time.Duration, m *metrics.Registry, log *logger.Logger) *HistoryCache {
	if ttl <= 0 {
		ttl = redis.TTLDaily
	}
	return &HistoryCache{
		source:    source,
		cache:     cache,
		weighting: weighting,
		ttl:       ttl,
		metrics:   m,
		logger:    log,
	}
}

// Build returns the cached history or builds and stores it
func (c *HistoryCache) Build(ctx context.Context, indexID string, begin, end time.Time, interval int) (*contracts.ValuationHistory, error) {
	key := redis.HistoryKey(indexID, begin, end, interval, string(c.weighting))

	var cached contracts.ValuationHistory
	found, err := c.cache.Get(ctx, key, &cached)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("History cache read failed")
	}
	if found {
		c.metrics.RecordCache(true)
		return &cached, nil
	}
	c.metrics.RecordCache(false)

	history, err := c.source.Build(ctx, indexID, begin, end, interval)
	if err != nil {
		return nil, err
	}

	// ⭐ 장애 중 만든 시계열은 캐시하지 않음 (복구 후 재생성)
	if history.Partial() || history.Empty() {
		c.logger.WithFields(map[string]interface{}{
			"key":    key,
			"failed": history.Failed,
			"kept":   history.Len(),
		}).Warn("Incomplete history not cached")
		return history, nil
	}

	if err := c.cache.Set(ctx, key, history, c.ttl); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("History cache write failed")
	}

	return history, nil
}
