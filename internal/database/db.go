// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver registered as "pgx"
	"github.com/vinovest/sqlx"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// Open creates a pooled database connection and applies pending migrations.
// DSNs starting with postgres:// or postgresql:// use pgx, everything else
// is treated as a SQLite path.
func Open(dsn string) (*sqlx.DB, error) {
	if dsn == "" {
		dsn = "./data/sampletrack.db"
	}

	driver := DriverFor(dsn)
	if driver == DriverPostgres {
		return openPostgres(dsn)
	}
	return openSQLite(dsn)
}

// DriverFor returns the driver name used for the given DSN.
func DriverFor(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return DriverPostgres
	}
	return DriverSQLite
}

func openPostgres(dsn string) (*sqlx.DB, error) {
	conn, err := sqlx.Open(DriverPostgres, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := RunMigrations(conn.DB, DriverPostgres); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return conn, nil
}

func openSQLite(dsn string) (*sqlx.DB, error) {
	memory := isMemory(dsn)

	// Create directory for file-based databases
	if !memory {
		dir := filepath.Dir(strings.TrimPrefix(dsn, "file:"))
		if i := strings.Index(dir, "?"); i >= 0 {
			dir = dir[:i]
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, err
		}
	}

	dsn = addDefaultParams(dsn)

	conn, err := sqlx.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, err
	}

	// Every connection to :memory: is a separate database, so in-memory
	// stores are pinned to a single connection.
	if memory {
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
		conn.SetConnMaxLifetime(0)
	} else {
		conn.SetMaxOpenConns(10)
		conn.SetMaxIdleConns(5)
		conn.SetConnMaxLifetime(time.Hour)
	}

	ctx := context.Background()
	if err := configureSQLite(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := RunMigrations(conn.DB, DriverSQLite); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return conn, nil
}

func isMemory(dsn string) bool {
	return strings.HasPrefix(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// addDefaultParams adds connection parameters if not already present.
// foreign_keys and busy_timeout are per-connection pragmas, so they go into
// the DSN rather than a one-off PRAGMA statement.
func addDefaultParams(dsn string) string {
	defaults := []struct {
		marker string
		param  string
	}{
		{"_txlock", "_txlock=immediate"},
		{"busy_timeout", "_pragma=busy_timeout(5000)"},
		{"foreign_keys", "_pragma=foreign_keys(1)"},
	}

	for _, d := range defaults {
		if strings.Contains(dsn, d.marker) {
			continue
		}
		separator := "?"
		if strings.Contains(dsn, "?") {
			separator = "&"
		}
		dsn += separator + d.param
	}

	return dsn
}

// configureSQLite sets PRAGMAs for better performance.
func configureSQLite(ctx context.Context, db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA cache_size = 2000",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return err
		}
	}

	return nil
}
