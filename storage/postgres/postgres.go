// Package postgres provides a PostgreSQL implementation of the premium.UserStore interface.
// It talks to the users table directly, e.g. through a Supabase database connection string.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mihaimyh/premiumgate/pkg/premium"
)

// Storage implements premium.UserStore using PostgreSQL
type Storage struct {
	pool        *pgxpool.Pool
	config      Config
	upgradeStmt string
}

var _ premium.UserStore = (*Storage)(nil)

// Config holds PostgreSQL storage configuration
type Config struct {
	// ConnectionString is the PostgreSQL connection string
	ConnectionString string

	// Table holds the user records. Default: "users"
	Table string

	// Pool configuration
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Table:           "users",
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// New creates a new PostgreSQL storage adapter
func New(ctx context.Context, config Config) (*Storage, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required")
	}
	if config.Table == "" {
		config.Table = "users"
	}

	// Parse connection string
	poolConfig, err := pgxpool.ParseConfig(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	// Apply pool settings
	if config.MaxConns > 0 {
		poolConfig.MaxConns = config.MaxConns
	}
	if config.MinConns > 0 {
		poolConfig.MinConns = config.MinConns
	}
	if config.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = config.MaxConnLifetime
	}
	if config.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = config.MaxConnIdleTime
	}

	// Create connection pool
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Storage{
		pool:        pool,
		config:      config,
		upgradeStmt: upgradeStatement(config.Table),
	}, nil
}

// upgradeStatement renders the UPDATE for table with the identifier quoted
func upgradeStatement(table string) string {
	return fmt.Sprintf(
		`UPDATE %s SET is_premium = $1, storage_limit = $2 WHERE email = $3`,
		pgx.Identifier{table}.Sanitize(),
	)
}

// Close closes the PostgreSQL connection pool
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping verifies the database is reachable
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// UpgradeUser implements premium.UserStore
func (s *Storage) UpgradeUser(ctx context.Context, email string, upgrade premium.UserUpgrade) (int64, error) {
	tag, err := s.pool.Exec(ctx, s.upgradeStmt, upgrade.IsPremium, upgrade.StorageLimit, email)
	if err != nil {
		return 0, fmt.Errorf("failed to update user: %w", err)
	}
	return tag.RowsAffected(), nil
}
