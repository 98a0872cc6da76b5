package destination

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Default pool configuration.
const (
	defaultConnectTimeout = 10 * time.Second
	defaultMaxConns       = 4 // the pipeline is sequential; a small pool suffices
)

// Connect opens and pings a connection pool to the destination store.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse destination url: %w", err)
	}
	cfg.MaxConns = defaultMaxConns
	cfg.ConnConfig.ConnectTimeout = defaultConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect destination: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping destination: %w", err)
	}
	return pool, nil
}
