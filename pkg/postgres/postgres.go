package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgreDB struct {
	Pool     *pgxpool.Pool
	DBConfig *pgxpool.Config
}

type Config interface {
	GetDSN() string
}

// PoolOptions tunes the pool; zero values keep the pgxpool defaults.
type PoolOptions struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

func New(ctx context.Context, config Config, opts PoolOptions) (*PostgreDB, error) {
	dbConfig, err := pgxpool.ParseConfig(config.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	if opts.MaxConns > 0 {
		dbConfig.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		dbConfig.MinConns = opts.MinConns
	}
	if opts.MaxConnLifetime > 0 {
		dbConfig.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		dbConfig.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Ping the database
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &PostgreDB{
		Pool:     pool,
		DBConfig: dbConfig,
	}, nil
}

func (db *PostgreDB) Close() {
	if db != nil && db.Pool != nil {
		db.Pool.Close()
	}
}
