package cache

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commodity-pricing/core/period"
)

type countingSource struct {
	fixed        decimal.Decimal
	revenue      decimal.Decimal
	variableCost decimal.Decimal
	err          error
	fixedCalls   int
	salesCalls   int
}

func (s *countingSource) FixedCostTotal(ctx context.Context, month period.Month) (decimal.Decimal, error) {
	s.fixedCalls++
	return s.fixed, s.err
}

func (s *countingSource) SalesSummary(ctx context.Context, start, end time.Time) (decimal.Decimal, decimal.Decimal, error) {
	s.salesCalls++
	return s.revenue, s.variableCost, s.err
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func august(t *testing.T) period.Month {
	m, err := period.ParseYearMonth("2025-08")
	require.NoError(t, err)
	return m
}

func TestFixedCostTotalIsCached(t *testing.T) {
	mr, client := newRedis(t)
	source := &countingSource{fixed: decimal.RequireFromString("38277000.25")}
	agg := New(source, client, time.Minute, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		total, err := agg.FixedCostTotal(ctx, august(t))
		require.NoError(t, err)
		assert.True(t, total.Equal(source.fixed), "total = %s", total)
	}
	assert.Equal(t, 1, source.fixedCalls)

	raw, err := mr.Get("pricing:fixed:2025-08:1")
	require.NoError(t, err)
	assert.Equal(t, `"38277000.25"`, raw)
	assert.Equal(t, time.Minute, mr.TTL("pricing:fixed:2025-08:1"))
}

func TestSalesSummaryIsCached(t *testing.T) {
	mr, client := newRedis(t)
	source := &countingSource{revenue: decimal.NewFromInt(1_170_000), variableCost: decimal.NewFromInt(930_000)}
	agg := New(source, client, time.Minute, nil)
	ctx := context.Background()
	m := august(t)

	for i := 0; i < 2; i++ {
		revenue, variableCost, err := agg.SalesSummary(ctx, m.Start, m.End)
		require.NoError(t, err)
		assert.True(t, revenue.Equal(source.revenue))
		assert.True(t, variableCost.Equal(source.variableCost))
	}
	assert.Equal(t, 1, source.salesCalls)
	assert.True(t, mr.Exists("pricing:sales:2025-08-01:2025-09-01:1"))
}

func TestBumpInvalidates(t *testing.T) {
	_, client := newRedis(t)
	source := &countingSource{fixed: decimal.NewFromInt(100)}
	agg := New(source, client, time.Minute, nil)
	ctx := context.Background()

	_, err := agg.FixedCostTotal(ctx, august(t))
	require.NoError(t, err)

	require.NoError(t, agg.Bump(ctx))
	source.fixed = decimal.NewFromInt(200)

	total, err := agg.FixedCostTotal(ctx, august(t))
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(200)), "total = %s", total)
	assert.Equal(t, 2, source.fixedCalls)

	key, err := agg.BuildKey(ctx, "fixed", "2025-08")
	require.NoError(t, err)
	assert.Equal(t, "pricing:fixed:2025-08:2", key)
}

func TestCorruptEntryIsReloaded(t *testing.T) {
	mr, client := newRedis(t)
	source := &countingSource{fixed: decimal.NewFromInt(5)}
	agg := New(source, client, time.Minute, nil)

	require.NoError(t, mr.Set("pricing:version", "1"))
	require.NoError(t, mr.Set("pricing:fixed:2025-08:1", "{not json"))

	total, err := agg.FixedCostTotal(context.Background(), august(t))
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, 1, source.fixedCalls)
}

func TestRedisOutageFallsBackToSource(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer func() { _ = client.Close() }()
	source := &countingSource{fixed: decimal.NewFromInt(7)}
	agg := New(source, client, time.Minute, nil)
	mr.Close()

	total, err := agg.FixedCostTotal(context.Background(), august(t))
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(7)))
}

func TestNilClientPassesThrough(t *testing.T) {
	source := &countingSource{fixed: decimal.NewFromInt(9), err: nil}
	agg := New(source, nil, time.Minute, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := agg.FixedCostTotal(ctx, august(t))
		require.NoError(t, err)
	}
	assert.Equal(t, 2, source.fixedCalls)
	assert.NoError(t, agg.Bump(ctx))

	key, err := agg.BuildKey(ctx, "fixed", "2025-08")
	require.NoError(t, err)
	assert.Equal(t, "pricing:fixed:2025-08", key)
}

func TestSourceErrorIsReturned(t *testing.T) {
	_, client := newRedis(t)
	boom := stderrors.New("db down")
	agg := New(&countingSource{err: boom}, client, time.Minute, nil)

	_, _, err := agg.SalesSummary(context.Background(), time.Now(), time.Now())
	assert.ErrorIs(t, err, boom)
}
