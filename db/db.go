// Package db - SQL storage for products, fixed costs, sales and simulations
// Postgres URLs are served by pgx through database/sql; everything else is SQLite.
package db

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"commodity-pricing/internal/errors"
)

// Dialect names a SQL dialect as goose understands it
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// DB is an open database handle with its dialect
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open connects to url and validates connectivity.
//
// Accepted forms: postgres://, postgresql://, sqlite://<path>, file:<path> and a
// bare SQLite path. ":memory:" databases are limited to one connection so every
// query sees the same database.
func Open(ctx context.Context, url string) (*DB, error) {
	driver, dsn, dialect := resolve(url)
	if dsn == "" {
		return nil, errors.Config("database url is empty", nil)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Storage("open database", err)
	}
	if dialect == DialectSQLite && strings.Contains(dsn, ":memory:") {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, errors.Storage("ping database", err)
	}

	return &DB{DB: conn, Dialect: dialect}, nil
}

func resolve(url string) (driver, dsn string, dialect Dialect) {
	url = strings.TrimSpace(url)
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return "pgx", url, DialectPostgres
	case strings.HasPrefix(url, "sqlite://"):
		url = strings.TrimPrefix(url, "sqlite://")
	}
	if url == "" {
		return "sqlite", "", DialectSQLite
	}

	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return "sqlite", url + sep + sqlitePragmas, DialectSQLite
}
