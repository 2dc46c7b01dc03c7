package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/upb/command-gateway/config"
	"go.uber.org/zap"
)

// DB wraps the sql.DB connection pool
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a new database connection pool
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("connection", cfg.LogString()))

	return &DB{
		DB:     db,
		logger: logger,
	}, nil
}

// NewDBFromSQL wraps an existing sql.DB (used by tests)
func NewDBFromSQL(db *sql.DB, logger *zap.Logger) *DB {
	return &DB{DB: db, logger: logger}
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}

// Stats returns database connection pool statistics
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}

// InitSchema initializes the database schema
func (db *DB) InitSchema(ctx context.Context) error {
	schema := `
		-- Principals table
		CREATE TABLE IF NOT EXISTS principals (
			id UUID PRIMARY KEY,
			username VARCHAR(50) NOT NULL UNIQUE,
			api_key_hash VARCHAR(64) NOT NULL UNIQUE,
			role VARCHAR(20) NOT NULL,
			credits INTEGER NOT NULL DEFAULT 100,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- Rules table
		CREATE TABLE IF NOT EXISTS rules (
			id UUID PRIMARY KEY,
			pattern VARCHAR(500) NOT NULL,
			action VARCHAR(20) NOT NULL,
			description VARCHAR(255) NOT NULL DEFAULT '',
			priority INTEGER NOT NULL DEFAULT 0,
			created_by UUID NOT NULL REFERENCES principals(id),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- Commands table
		CREATE TABLE IF NOT EXISTS commands (
			id UUID PRIMARY KEY,
			command_text TEXT NOT NULL,
			status VARCHAR(20) NOT NULL,
			principal_id UUID NOT NULL REFERENCES principals(id),
			rule_id UUID REFERENCES rules(id) ON DELETE SET NULL,
			credits_deducted INTEGER NOT NULL DEFAULT 0,
			result TEXT NOT NULL DEFAULT '',
			submitted_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			executed_at TIMESTAMP
		);

		-- Audit logs table (append-only)
		CREATE TABLE IF NOT EXISTS audit_logs (
			id UUID PRIMARY KEY,
			principal_id UUID NOT NULL REFERENCES principals(id),
			action VARCHAR(100) NOT NULL,
			details JSONB,
			timestamp TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- Indexes for performance
		CREATE INDEX IF NOT EXISTS idx_principals_api_key_hash ON principals(api_key_hash);
		CREATE INDEX IF NOT EXISTS idx_principals_username ON principals(username);

		CREATE INDEX IF NOT EXISTS idx_rules_priority ON rules(priority, created_at, id);

		CREATE INDEX IF NOT EXISTS idx_commands_principal_id ON commands(principal_id);
		CREATE INDEX IF NOT EXISTS idx_commands_status ON commands(status);
		CREATE INDEX IF NOT EXISTS idx_commands_submitted_at ON commands(submitted_at);

		CREATE INDEX IF NOT EXISTS idx_audit_logs_principal_id ON audit_logs(principal_id);
		CREATE INDEX IF NOT EXISTS idx_audit_logs_timestamp ON audit_logs(timestamp);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	db.logger.Info("database schema initialized successfully")
	return nil
}
