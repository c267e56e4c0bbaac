// Package postgres provides PostgreSQL-backed implementations of storage
// interfaces using pgx connection pools.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config configures PostgreSQL storage.
type Config struct {
	// Host is the database server hostname.
	Host string

	// Port is the database server port.
	Port int

	// Database is the database name.
	Database string

	// User is the database user.
	User string

	// Password is the database password.
	Password string

	// SSLMode sets the SSL mode (disable, require, verify-full).
	SSLMode string

	// MaxConns is the maximum pool size.
	MaxConns int32

	// MinConns is the minimum pool size.
	MinConns int32

	// MaxConnLifetime is the maximum connection lifetime.
	MaxConnLifetime time.Duration

	// MaxConnIdleTime is the maximum idle time for connections.
	MaxConnIdleTime time.Duration

	// ConnectTimeout is the timeout for establishing connections.
	ConnectTimeout time.Duration

	// Schema is the schema that qualifies all table names.
	Schema string
}

// Option configures PostgreSQL storage.
type Option func(*Config)

// WithHost sets the database host.
func WithHost(host string) Option {
	return func(c *Config) {
		c.Host = host
	}
}

// WithPort sets the database port.
func WithPort(port int) Option {
	return func(c *Config) {
		c.Port = port
	}
}

// WithDatabase sets the database name.
func WithDatabase(db string) Option {
	return func(c *Config) {
		c.Database = db
	}
}

// WithCredentials sets the database user and password.
func WithCredentials(user, password string) Option {
	return func(c *Config) {
		c.User = user
		c.Password = password
	}
}

// WithSSLMode sets the SSL mode.
func WithSSLMode(mode string) Option {
	return func(c *Config) {
		c.SSLMode = mode
	}
}

// WithPoolSize sets the pool size bounds.
func WithPoolSize(minConns, maxConns int32) Option {
	return func(c *Config) {
		c.MinConns = minConns
		c.MaxConns = maxConns
	}
}

// WithSchema sets the schema qualifying all table names.
func WithSchema(schema string) Option {
	return func(c *Config) {
		c.Schema = schema
	}
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            5432,
		Database:        "lifecycle",
		User:            "postgres",
		Password:        "",
		SSLMode:         "disable",
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
		ConnectTimeout:  10 * time.Second,
		Schema:          "public",
	}
}

// ConnectionString returns the keyword/value connection string.
func (c Config) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Database, c.User, c.Password, c.SSLMode)
}

// Errors
var (
	ErrConnectionFailed = errors.New("postgres: connection failed")
	ErrMigrationFailed  = errors.New("postgres: migration failed")
)

// NewPool creates a pgx connection pool from the configuration.
func NewPool(ctx context.Context, cfg Config, opts ...Option) (*pgxpool.Pool, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Join(ErrConnectionFailed, err)
	}

	return pool, nil
}

// Migrate creates the policies and audit_entries tables in the given
// schema if they don't exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool, schema string) error {
	if schema == "" {
		schema = "public"
	}

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s.policies (
			id TEXT PRIMARY KEY,
			policy_number TEXT NOT NULL,
			status TEXT NOT NULL,
			data JSONB NOT NULL,
			version BIGINT NOT NULL,
			customer_id TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_policies_status ON %[1]s.policies(status);
		CREATE INDEX IF NOT EXISTS idx_policies_customer ON %[1]s.policies(customer_id);

		CREATE TABLE IF NOT EXISTS %[1]s.audit_entries (
			id TEXT PRIMARY KEY,
			policy_id TEXT NOT NULL,
			seq BIGSERIAL,
			from_status TEXT NOT NULL,
			to_status TEXT NOT NULL,
			action TEXT NOT NULL,
			transitioned_by TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			timestamp TIMESTAMPTZ NOT NULL,
			metadata JSONB
		);
		CREATE INDEX IF NOT EXISTS idx_audit_policy ON %[1]s.audit_entries(policy_id, seq);
		CREATE INDEX IF NOT EXISTS idx_audit_policy_ts ON %[1]s.audit_entries(policy_id, timestamp);
	`, schema)

	if _, err := pool.Exec(ctx, ddl); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}

	return nil
}
