// ABOUTME: This file initializes the PostgreSQL connection pool for the harvester.
// ABOUTME: It builds the connection string from environment variables and tunes pool limits.
package driver

import (
	"context"
	"fmt"
	"os"
	"time"

	logger "news-harvester/utils/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	maxConns          = 20
	minConns          = 5
	maxConnLifetime   = time.Hour
	maxConnIdleTime   = 30 * time.Minute
	healthCheckPeriod = time.Minute
	connectTimeout    = 10 * time.Second

	// Session-level guards. Lock waits on claim contention and runaway
	// statements both abort instead of wedging a worker.
	lockTimeout      = "5s"
	statementTimeout = "30s"
)

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	DBName   string
	User     string
	Password string
	SSL      SSLConfig
}

// SSLConfig holds SSL/TLS connection parameters.
type SSLConfig struct {
	Mode     string
	RootCert string
	Cert     string
	Key      string
}

// NewDatabaseConfig creates a database configuration from environment variables.
func NewDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		Host:     getEnvWithDefault("DB_HOST", "localhost"),
		Port:     getEnvWithDefault("DB_PORT", "5432"),
		DBName:   getEnvWithDefault("DB_NAME", "harvester"),
		User:     getEnvWithDefault("HARVESTER_DB_USER", "harvester"),
		Password: os.Getenv("HARVESTER_DB_PASSWORD"),
		SSL: SSLConfig{
			Mode:     getEnvWithDefault("DB_SSL_MODE", "prefer"),
			RootCert: os.Getenv("DB_SSL_ROOT_CERT"),
			Cert:     os.Getenv("DB_SSL_CERT"),
			Key:      os.Getenv("DB_SSL_KEY"),
		},
	}
}

// BuildConnectionString constructs a PostgreSQL connection string with SSL parameters.
func (c *DatabaseConfig) BuildConnectionString() string {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSL.Mode,
	)

	if c.SSL.RootCert != "" {
		connStr += fmt.Sprintf(" sslrootcert=%s", c.SSL.RootCert)
	}

	if c.SSL.Cert != "" && c.SSL.Key != "" {
		connStr += fmt.Sprintf(" sslcert=%s sslkey=%s", c.SSL.Cert, c.SSL.Key)
	}

	return connStr
}

// Init opens a pgx connection pool and verifies it with a ping.
func Init(ctx context.Context) (*pgxpool.Pool, error) {
	dbConfig := NewDatabaseConfig()

	poolConfig, err := pgxpool.ParseConfig(dbConfig.BuildConnectionString())
	if err != nil {
		logger.Logger.Error("failed to parse database config", "error", err)
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	poolConfig.MaxConns = maxConns
	poolConfig.MinConns = minConns
	poolConfig.MaxConnLifetime = maxConnLifetime
	poolConfig.MaxConnIdleTime = maxConnIdleTime
	poolConfig.HealthCheckPeriod = healthCheckPeriod
	poolConfig.ConnConfig.ConnectTimeout = connectTimeout
	poolConfig.ConnConfig.RuntimeParams["lock_timeout"] = lockTimeout
	poolConfig.ConnConfig.RuntimeParams["statement_timeout"] = statementTimeout
	poolConfig.ConnConfig.Tracer = &QueryTracer{}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Logger.Error("failed to create connection pool", "error", err)
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		logger.Logger.Error("failed to ping database", "error", err)
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Logger.Info("database connection established",
		"host", dbConfig.Host,
		"database", dbConfig.DBName,
		"ssl_mode", dbConfig.SSL.Mode)

	return pool, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}
