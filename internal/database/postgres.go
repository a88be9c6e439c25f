package database

import (
	"cmp"
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresDB struct {
	Pool *pgxpool.Pool
}

// PoolOptions bounds the direct transport's connection set. Requests beyond
// MaxConns wait for a free connection. Zero values keep the defaults of 25
// and 5.
type PoolOptions struct {
	MaxConns int32
	MinConns int32

	// ApplicationName shows up in pg_stat_activity; defaults to "playhub".
	ApplicationName string
}

var (
	parsePGConfig = pgxpool.ParseConfig
	newPGPool     = pgxpool.NewWithConfig
	pingPGPool    = func(ctx context.Context, pool *pgxpool.Pool) error {
		return pool.Ping(ctx)
	}
	closePGPool = func(pool *pgxpool.Pool) {
		pool.Close()
	}
)

func applyPoolOptions(config *pgxpool.Config, opts PoolOptions) {
	config.MaxConns = cmp.Or(opts.MaxConns, 25)
	config.MinConns = min(cmp.Or(opts.MinConns, 5), config.MaxConns)
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = time.Minute

	if config.ConnConfig == nil {
		return
	}
	if config.ConnConfig.RuntimeParams == nil {
		config.ConnConfig.RuntimeParams = map[string]string{}
	}
	if _, set := config.ConnConfig.RuntimeParams["application_name"]; !set {
		config.ConnConfig.RuntimeParams["application_name"] = cmp.Or(opts.ApplicationName, "playhub")
	}
}

// NewPostgresDB opens the direct transport's pool and proves it can reach the
// server before returning.
func NewPostgresDB(ctx context.Context, dsn string, opts PoolOptions) (*PostgresDB, error) {
	config, err := parsePGConfig(dsn)
	if err != nil {
		return nil, &ConfigurationError{Reason: "parsing database config", Err: err}
	}
	applyPoolOptions(config, opts)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := newPGPool(ctx, config)
	if err != nil {
		return nil, &ConnectionError{Transport: TransportDirect, Err: fmt.Errorf("creating connection pool: %w", err)}
	}
	if err := pingPGPool(ctx, pool); err != nil {
		closePGPool(pool)
		return nil, &ConnectionError{Transport: TransportDirect, Err: fmt.Errorf("pinging database: %w", err)}
	}
	return &PostgresDB{Pool: pool}, nil
}

func (db *PostgresDB) Close() {
	if db.Pool != nil {
		closePGPool(db.Pool)
	}
}
