package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// CreateDatabaseIfNotExists connects to the maintenance 'postgres' database and
// creates cfg.DBName when it is missing. Run once before migrations.
func CreateDatabaseIfNotExists(ctx context.Context, cfg Config) (created bool, err error) {
	if cfg.DBName == "" {
		return false, fmt.Errorf("no database name provided")
	}

	admin := cfg
	admin.DBName = "postgres"

	conn, err := sql.Open("postgres", admin.DSN())
	if err != nil {
		return false, fmt.Errorf("failed to open postgres database: %w", err)
	}
	defer conn.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		return false, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	var exists bool
	err = conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)`, cfg.DBName).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check if database exists: %w", err)
	}
	if exists {
		return false, nil
	}

	createCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := conn.ExecContext(createCtx, "CREATE DATABASE "+pq.QuoteIdentifier(cfg.DBName)); err != nil {
		return false, fmt.Errorf("failed to create database: %w", err)
	}
	return true, nil
}
