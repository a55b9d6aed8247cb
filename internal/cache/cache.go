// Package cache memoizes single-record predictions in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"

	"github.com/jmehdipour/churn-predictor/internal/metrics"
	"github.com/jmehdipour/churn-predictor/internal/model"
)

// Predictions is a read-through cache keyed by model version and validated
// customer attributes. A nil *Predictions is a disabled cache.
type Predictions struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func New(rdb *redis.Client, prefix string, ttl time.Duration) *Predictions {
	if rdb == nil {
		return nil
	}
	if prefix == "" {
		prefix = "churn:pred:"
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Predictions{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Key hashes the validated record, so "12" and 12 share an entry. The id is
// excluded: two customers with identical attributes score identically.
func Key(prefix, version string, c model.Customer) string {
	c.ID = ""
	b, _ := json.Marshal(c)
	return prefix + version + ":" + strconv.FormatUint(xxhash.Sum64(b), 16)
}

// Get returns a cached prediction. Redis errors are reported as misses.
func (p *Predictions) Get(ctx context.Context, version string, c model.Customer) (model.Prediction, bool) {
	if p == nil {
		return model.Prediction{}, false
	}

	b, err := p.rdb.Get(ctx, Key(p.prefix, version, c)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.CacheLookups.WithLabelValues("miss").Inc()
		} else {
			metrics.CacheLookups.WithLabelValues("error").Inc()
		}
		return model.Prediction{}, false
	}

	var pred model.Prediction
	if err := json.Unmarshal(b, &pred); err != nil || !pred.Tier.Valid() {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		return model.Prediction{}, false
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return pred, true
}

func (p *Predictions) Set(ctx context.Context, version string, c model.Customer, pred model.Prediction) error {
	if p == nil {
		return nil
	}
	b, err := json.Marshal(pred)
	if err != nil {
		return err
	}
	return p.rdb.Set(ctx, Key(p.prefix, version, c), b, p.ttl).Err()
}
