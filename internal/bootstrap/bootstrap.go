// Package bootstrap opens the connections shared by the entrypoints.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

// OpenPostgres connects to databaseURL and pins the session time zone to UTC
func OpenPostgres(ctx context.Context, databaseURL string) (*sql.DB, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL environment variable (or config) is required")
	}

	pg, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	pg.SetMaxOpenConns(25)
	pg.SetMaxIdleConns(5)
	pg.SetConnMaxLifetime(30 * time.Minute)

	if err := pg.PingContext(ctx); err != nil {
		_ = pg.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set timezone to UTC for consistent date handling
	if _, err := pg.ExecContext(ctx, "SET TIME ZONE 'UTC'"); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to set database timezone to UTC")
	}

	zerolog.Ctx(ctx).Info().Msg("connected to database")
	return pg, nil
}

// OpenRedis connects to the redis:// URL
func OpenRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, errors.New("REDIS_URL environment variable (or config) is required")
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	zerolog.Ctx(ctx).Info().Str("addr", opts.Addr).Msg("connected to redis")
	return client, nil
}
