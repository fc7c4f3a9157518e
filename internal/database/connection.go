// Package database provides catalog persistence on SQLite or PostgreSQL.
package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

const (
	// DefaultMaxOpenConns is the default pool size for PostgreSQL.
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default number of idle connections.
	DefaultMaxIdleConns = 5
	// DefaultConnMaxLifetime is the default maximum connection lifetime.
	DefaultConnMaxLifetime = 5 * time.Minute
	// DefaultPingTimeout is the default timeout for ping operations.
	DefaultPingTimeout = 5 * time.Second

	sqliteBusyTimeoutMS = 5000
	dataDirPerm         = 0o755
)

// Config holds database configuration.
type Config struct {
	Driver       string
	DSN          string
	MaxOpenConns int
}

// Open connects to the catalog database and verifies the connection.
func Open(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	dsn, err := prepareDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = DefaultMaxOpenConns
		if cfg.Driver == DriverSQLite {
			// One writer at a time avoids SQLITE_BUSY between pooled connections.
			maxOpen = 1
		}
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(min(DefaultMaxIdleConns, maxOpen))
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, DefaultPingTimeout)
	defer cancel()

	if pingErr := db.PingContext(pingCtx); pingErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", pingErr)
	}

	return db, nil
}

// prepareDSN validates the driver and, for SQLite, creates the parent
// directory and appends the connection pragmas.
func prepareDSN(cfg Config) (string, error) {
	switch cfg.Driver {
	case DriverPostgres:
		return cfg.DSN, nil
	case DriverSQLite:
		return sqliteDSN(cfg.DSN)
	default:
		return "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func sqliteDSN(dsn string) (string, error) {
	prefix := ""
	if strings.HasPrefix(dsn, "file:") {
		prefix = "file:"
	}
	path, query, _ := strings.Cut(strings.TrimPrefix(dsn, prefix), "?")
	if path == "" {
		return "", fmt.Errorf("sqlite dsn has no path: %q", dsn)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, dataDirPerm); err != nil {
			return "", fmt.Errorf("failed to create database dir %s: %w", dir, err)
		}
	}

	params := []string{}
	if query != "" {
		params = append(params, query)
	}
	for _, pragma := range [][2]string{
		{"_foreign_keys", "on"},
		{"_busy_timeout", strconv.Itoa(sqliteBusyTimeoutMS)},
		{"_journal_mode", "WAL"},
	} {
		if !strings.Contains(query, pragma[0]+"=") {
			params = append(params, pragma[0]+"="+pragma[1])
		}
	}

	return prefix + path + "?" + strings.Join(params, "&"), nil
}
