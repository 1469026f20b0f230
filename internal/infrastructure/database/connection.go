package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/voicegate/backend/internal/infrastructure/config"
)

// Pool wraps the pgx connection pool together with a database/sql view of
// it for code written against the standard interfaces.
type Pool struct {
	pgx    *pgxpool.Pool
	sqlDB  *sql.DB
	logger *zap.Logger
}

// Connect opens a connection pool against PostgreSQL and verifies it with a
// ping.
func Connect(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*Pool, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, fmt.Errorf("database url is required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	logger.Info("database pool initialized",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns))

	return &Pool{pgx: pool, sqlDB: sqlDB, logger: logger}, nil
}

// Pgx returns the native pgx pool.
func (p *Pool) Pgx() *pgxpool.Pool {
	return p.pgx
}

// DB returns the database/sql view of the pool.
func (p *Pool) DB() *sql.DB {
	return p.sqlDB
}

// Health verifies the pool can serve queries.
func (p *Pool) Health(ctx context.Context) error {
	return p.pgx.Ping(ctx)
}

// Close releases all pool resources.
func (p *Pool) Close() {
	if err := p.sqlDB.Close(); err != nil {
		p.logger.Warn("closing sql view of pool", zap.Error(err))
	}
	p.pgx.Close()
}
