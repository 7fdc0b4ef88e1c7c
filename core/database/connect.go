package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/m3rciful/pharmtutor/core/logger"
)

const (
	connectTimeout = 30 * time.Second
	retryEvery     = 2 * time.Second
)

// Connect opens and pings the database, retrying while it is unreachable
// for up to 30 seconds, then sizes the pool.
func Connect(cfg Config) (*sqlx.DB, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	start := time.Now()
	db, err := connectRetry(ctx, cfg.Driver, cfg.DSN())
	attrs := []slog.Attr{
		slog.String("event", "db.connect"),
		slog.String("driver", cfg.Driver),
		slog.String("db", cfg.target()),
		slog.Duration("duration", time.Since(start)),
	}
	if err != nil {
		logger.DB.LogAttrs(ctx, slog.LevelError, "db connect failed", append(attrs, slog.String("err", err.Error()))...)
		return nil, fmt.Errorf("db connect: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections)
	logger.DB.LogAttrs(ctx, slog.LevelInfo, "db connected", append(attrs, slog.Int("pool_open", cfg.MaxConnections))...)
	return db, nil
}

// connectRetry repeats sqlx.ConnectContext until it succeeds or ctx ends.
func connectRetry(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	for attempt := 1; ; attempt++ {
		db, err := sqlx.ConnectContext(ctx, driver, dsn)
		if err == nil {
			return db, nil
		}
		logger.DB.LogAttrs(ctx, slog.LevelDebug, "db not ready",
			slog.String("event", "db.wait"),
			slog.Int("attempt", attempt),
			slog.String("err", err.Error()),
		)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w (gave up after %d attempts)", err, attempt)
		case <-time.After(retryEvery):
		}
	}
}
