package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/SilverStorm2/currency-exchange-app/internal/converter/metrics"
	"github.com/SilverStorm2/currency-exchange-app/internal/entities"
)

// RateCache persists rate snapshots in the key-value store. A corrupt,
// incomplete or expired snapshot degrades to a cache miss: Read never
// raises, and Write failures are for the caller to ignore explicitly.
type RateCache struct {
	store      Store
	ttl        time.Duration
	currencies []string
}

func NewRateCache(store Store, ttl time.Duration, currencies []string) *RateCache {
	return &RateCache{
		store:      store,
		ttl:        ttl,
		currencies: currencies,
	}
}

// Read returns the stored snapshot, or nil when the store has no usable
// one. Usable means: well-formed, fetched within the TTL and carrying a
// numeric rate for every supported currency. The pivot is injected as 1
// when absent rather than counted as missing.
func (c *RateCache) Read(ctx context.Context) *entities.RateSnapshot {
	raw, err := c.store.Get(ctx, SnapshotKey)
	if err != nil {
		if !errors.Is(err, entities.ErrNotFound) {
			slog.Debug("snapshot cache read failed", "error", err)
		}
		metrics.CacheReads.WithLabelValues(metrics.ResultMiss).Inc()
		return nil
	}

	var snapshot entities.RateSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		metrics.CacheReads.WithLabelValues(metrics.ResultMiss).Inc()
		return nil
	}

	if snapshot.Rates == nil || snapshot.FetchedAt.IsZero() {
		metrics.CacheReads.WithLabelValues(metrics.ResultMiss).Inc()
		return nil
	}

	if time.Since(snapshot.FetchedAt) > c.ttl {
		metrics.CacheReads.WithLabelValues(metrics.ResultMiss).Inc()
		return nil
	}

	if _, ok := snapshot.Rates[entities.Pivot]; !ok {
		snapshot.Rates[entities.Pivot] = 1
	}

	for _, currency := range c.currencies {
		if _, ok := snapshot.Rates[currency]; !ok {
			metrics.CacheReads.WithLabelValues(metrics.ResultMiss).Inc()
			return nil
		}
	}

	metrics.CacheReads.WithLabelValues(metrics.ResultHit).Inc()
	return &snapshot
}

// Write persists the snapshot best-effort.
func (c *RateCache) Write(ctx context.Context, snapshot *entities.RateSnapshot) error {
	const op = "service.RateCache.Write"

	raw, err := json.Marshal(snapshot)
	if err != nil {
		return errors.Wrap(err, op)
	}

	if err := c.store.Set(ctx, SnapshotKey, raw); err != nil {
		return errors.Wrap(err, op)
	}

	return nil
}
