// Package app wires storage, cache, metrics and the engine from configuration.
// Both binaries build their runtime through here.
package app

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"commodity-pricing/adapters/cache"
	"commodity-pricing/core/engine"
	"commodity-pricing/db"
	"commodity-pricing/internal/config"
	"commodity-pricing/internal/errors"
	"commodity-pricing/internal/logging"
	"commodity-pricing/internal/metrics"
)

// App is a wired runtime
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	DB      *db.DB
	Store   *db.Store
	Metrics *metrics.Metrics
	Engine  *engine.Engine

	// Cache is nil when no Redis address is configured or it cannot be reached
	Cache *cache.Aggregates

	redis *redis.Client
}

// Open connects to the database, applies migrations and builds the engine.
// An unreachable Redis is logged and the engine reads storage directly.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	logger = logging.OrNop(logger)

	mapping, err := cfg.Import.Mapping()
	if err != nil {
		return nil, err
	}

	conn, err := db.Open(ctx, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, conn, logger); err != nil {
		conn.Close()
		return nil, err
	}

	a := &App{
		Config:  cfg,
		Logger:  logger,
		DB:      conn,
		Store:   db.NewStore(conn, logger),
		Metrics: metrics.New(),
	}

	deps := engine.Deps{
		Aggregates: a.Store,
		Products:   a.Store,
		Recorder:   a.Store,
		Metrics:    a.Metrics,
		Logger:     logger,
		Mapping:    mapping,
	}

	if cfg.Cache.Enabled() {
		client, err := cache.Connect(ctx, cfg.Cache.RedisAddr)
		if err != nil {
			logger.Warn("redis unavailable, aggregate cache disabled",
				zap.String("addr", cfg.Cache.RedisAddr),
				zap.Error(err),
			)
		} else {
			a.redis = client
			a.Cache = cache.New(a.Store, client, cfg.Cache.TTL, logger)
			deps.Aggregates = a.Cache
			a.Store.SetInvalidator(a.Cache)
		}
	}

	a.Engine = engine.New(deps)
	return a, nil
}

// Close releases the database and Redis connections
func (a *App) Close() error {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Warn("redis close", zap.Error(err))
		}
	}
	if err := a.DB.Close(); err != nil {
		return errors.Storage("close database", err)
	}
	return nil
}
