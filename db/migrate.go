package db

import (
	"context"
	"embed"
	"sync"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"commodity-pricing/internal/errors"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// goose keeps its dialect, filesystem and logger in package globals
var gooseMu sync.Mutex

// Migrate runs all pending embedded migrations
func Migrate(ctx context.Context, db *DB, logger *zap.Logger) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(gooseLogger{logger: logger})
	if err := goose.SetDialect(string(db.Dialect)); err != nil {
		return errors.Storage("set goose dialect", err)
	}

	if err := goose.UpContext(ctx, db.DB, migrationsDir); err != nil {
		return errors.Storage("run migrations", err)
	}
	return nil
}

// SchemaVersion returns the version of the last applied migration
func SchemaVersion(ctx context.Context, db *DB) (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := goose.SetDialect(string(db.Dialect)); err != nil {
		return 0, errors.Storage("set goose dialect", err)
	}
	version, err := goose.GetDBVersionContext(ctx, db.DB)
	if err != nil {
		return 0, errors.Storage("read schema version", err)
	}
	return version, nil
}

// gooseLogger routes goose output through zap
type gooseLogger struct {
	logger *zap.Logger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	if l.logger != nil {
		l.logger.Sugar().Debugf(format, v...)
	}
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	if l.logger != nil {
		l.logger.Sugar().Fatalf(format, v...)
	}
}
