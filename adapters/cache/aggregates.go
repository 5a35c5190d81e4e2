// Package cache provides a versioned Redis cache for break-even aggregates.
// Keys embed a global version; Bump moves every reader to fresh keys at once.
package cache

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"commodity-pricing/core/period"
	"commodity-pricing/internal/logging"
)

const (
	keyPrefix  = "pricing"
	versionKey = "pricing:version"
)

// Source supplies the aggregates the break-even analyzer consumes
type Source interface {
	FixedCostTotal(ctx context.Context, month period.Month) (decimal.Decimal, error)
	SalesSummary(ctx context.Context, start, end time.Time) (revenue, variableCost decimal.Decimal, err error)
}

// Aggregates decorates a Source with Redis caching.
// A nil client passes every call straight through.
type Aggregates struct {
	source Source
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New creates the decorator
func New(source Source, client *redis.Client, ttl time.Duration, logger *zap.Logger) *Aggregates {
	return &Aggregates{source: source, client: client, ttl: ttl, logger: logging.OrNop(logger)}
}

// Connect creates a Redis client and checks it answers
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: ping: %w", err)
	}

	return client, nil
}

type salesEntry struct {
	Revenue      decimal.Decimal `json:"revenue"`
	VariableCost decimal.Decimal `json:"variable_cost"`
}

// FixedCostTotal returns the cached fixed-cost sum for month
func (a *Aggregates) FixedCostTotal(ctx context.Context, month period.Month) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := a.fetch(ctx, []string{"fixed", month.String()}, &total, func(ctx context.Context) (any, error) {
		return a.source.FixedCostTotal(ctx, month)
	})
	return total, err
}

// SalesSummary returns the cached revenue and variable-cost sums for [start, end)
func (a *Aggregates) SalesSummary(ctx context.Context, start, end time.Time) (decimal.Decimal, decimal.Decimal, error) {
	var entry salesEntry
	parts := []string{"sales", start.Format(period.DateLayout), end.Format(period.DateLayout)}
	err := a.fetch(ctx, parts, &entry, func(ctx context.Context) (any, error) {
		revenue, variableCost, err := a.source.SalesSummary(ctx, start, end)
		if err != nil {
			return nil, err
		}
		return salesEntry{Revenue: revenue, VariableCost: variableCost}, nil
	})
	return entry.Revenue, entry.VariableCost, err
}

// Version returns the current cache version, initialising it when missing
func (a *Aggregates) Version(ctx context.Context) (int64, error) {
	if a == nil || a.client == nil {
		return 0, nil
	}
	ver, err := a.client.Get(ctx, versionKey).Int64()
	if stderrors.Is(err, redis.Nil) {
		if err := a.client.Set(ctx, versionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := a.client.Set(ctx, versionKey, ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}

// BuildKey composes a versioned key from parts
func (a *Aggregates) BuildKey(ctx context.Context, parts ...string) (string, error) {
	joined := strings.Join(append([]string{keyPrefix}, parts...), ":")
	if a == nil || a.client == nil {
		return joined, nil
	}
	ver, err := a.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", joined, ver), nil
}

// Bump invalidates every cached aggregate
func (a *Aggregates) Bump(ctx context.Context) error {
	if a == nil || a.client == nil {
		return nil
	}
	return a.client.Incr(ctx, versionKey).Err()
}

// fetch reads key into dest or fills it from load. Redis failures degrade to
// the source; source failures are returned unchanged.
func (a *Aggregates) fetch(ctx context.Context, parts []string, dest any, load func(context.Context) (any, error)) error {
	if a.client == nil {
		return decode(ctx, load, dest)
	}

	key, err := a.BuildKey(ctx, parts...)
	if err != nil {
		a.logger.Warn("cache unavailable", zap.Error(err))
		return decode(ctx, load, dest)
	}

	payload, err := a.client.Get(ctx, key).Bytes()
	if err == nil {
		if err := json.Unmarshal(payload, dest); err == nil {
			return nil
		}
		a.logger.Warn("discarding corrupt cache entry", zap.String("key", key))
	} else if !stderrors.Is(err, redis.Nil) {
		a.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return decode(ctx, load, dest)
	}

	value, err := load(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := a.client.Set(ctx, key, raw, a.ttl).Err(); err != nil {
		a.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return json.Unmarshal(raw, dest)
}

func decode(ctx context.Context, load func(context.Context) (any, error), dest any) error {
	value, err := load(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
