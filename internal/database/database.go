package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	"product-api/internal/config"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

//go:embed schema.sql
var schemaFS embed.FS

// ErrPoolExhausted is returned by Acquire when every connection is busy
// for the whole acquire timeout.
var ErrPoolExhausted = errors.New("connection pool exhausted")

// Service owns the PostgreSQL connection pool. All database access borrows
// a connection through Acquire and returns it with Release.
type Service struct {
	pool           *pgxpool.Pool
	logger         *zap.Logger
	acquireTimeout time.Duration
}

// New builds the pool and eagerly establishes the configured minimum number
// of connections. An unreachable database is a startup failure, not a
// degraded mode: callers should treat a non-nil error as fatal.
func New(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Service, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		// NUMERIC columns scan to shopspring decimals on every connection
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	s := &Service{
		pool:           pool,
		logger:         logger,
		acquireTimeout: cfg.AcquireTimeout,
	}

	if err := s.warmUp(ctx, int(cfg.MinConns)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to establish minimum connections: %w", err)
	}

	logger.Info("Database connection pool ready",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database),
		zap.Int32("min_conns", cfg.MinConns),
		zap.Int32("max_conns", cfg.MaxConns),
	)

	return s, nil
}

// warmUp opens minConns connections before the service is considered up.
// The connections are held simultaneously so the pool really reaches the
// minimum instead of reusing one connection n times.
func (s *Service) warmUp(ctx context.Context, minConns int) error {
	conns := make([]*pgxpool.Conn, 0, minConns)
	defer func() {
		for _, conn := range conns {
			conn.Release()
		}
	}()

	for i := 0; i < minConns; i++ {
		conn, err := s.pool.Acquire(ctx)
		if err != nil {
			return err
		}
		conns = append(conns, conn)

		if err := conn.Ping(ctx); err != nil {
			return err
		}
	}

	return nil
}

// Acquire borrows a connection, waiting at most the configured acquire
// timeout. The caller must Release the connection on every path.
func (s *Service) Acquire(ctx context.Context) (*pgxpool.Conn, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, s.acquireTimeout)
	defer cancel()

	conn, err := s.pool.Acquire(acquireCtx)
	if err != nil {
		// Attribute the deadline to pool saturation only when the caller's
		// own context is still live.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			s.logger.Warn("Connection acquisition timed out",
				zap.Duration("timeout", s.acquireTimeout),
				zap.Int32("total_conns", s.pool.Stat().TotalConns()),
			)
			return nil, ErrPoolExhausted
		}
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	return conn, nil
}

// Pool exposes the underlying pgx pool for bulk operations such as schema
// bootstrap.
func (s *Service) Pool() *pgxpool.Pool {
	return s.pool
}

// EnsureSchema applies the embedded schema definition. Every statement is
// idempotent, so startup runs this unconditionally.
func (s *Service) EnsureSchema(ctx context.Context) error {
	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read embedded schema: %w", err)
	}

	if _, err := s.pool.Exec(ctx, string(schema)); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	s.logger.Info("Database schema ensured")
	return nil
}

// Health pings the database and reports pool counters.
func (s *Service) Health(ctx context.Context) map[string]string {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	stats := make(map[string]string)

	if err := s.pool.Ping(pingCtx); err != nil {
		stats["status"] = "unhealthy"
		stats["error"] = fmt.Sprintf("database ping failed: %v", err)
		return stats
	}

	poolStat := s.pool.Stat()
	stats["status"] = "healthy"
	stats["total_conns"] = strconv.Itoa(int(poolStat.TotalConns()))
	stats["idle_conns"] = strconv.Itoa(int(poolStat.IdleConns()))
	stats["acquired_conns"] = strconv.Itoa(int(poolStat.AcquiredConns()))
	stats["max_conns"] = strconv.Itoa(int(poolStat.MaxConns()))
	stats["acquire_count"] = strconv.FormatInt(poolStat.AcquireCount(), 10)

	return stats
}

// Close drains and closes the pool. Safe to call once at shutdown.
func (s *Service) Close() {
	s.logger.Info("Closing database connection pool")
	s.pool.Close()
}
