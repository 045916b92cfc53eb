// Package database opens read-only SQL connections for table sources.
// The engine never writes: origins that name a query or a table are read
// in a single pass and the connection is closed before the pipeline runs.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"
)

// Supported driver names, as registered by the imported driver packages.
const (
	DriverPostgres  = "postgres"
	DriverSQLServer = "sqlserver"
)

// Environment variables consulted when the job does not carry connection
// details of its own.
const (
	EnvDSN    = "FRAMES_DSN"
	EnvDriver = "FRAMES_DRIVER"
)

// DefaultConnectTimeout bounds the initial ping.
const DefaultConnectTimeout = 10 * time.Second

// Config holds what is needed to reach a database.
type Config struct {
	Driver           string
	ConnectionString string
	ConnectTimeout   time.Duration
}

// FromEnv builds a Config from the process environment. The driver
// defaults to postgres when only a DSN is set.
func FromEnv() (Config, error) {
	dsn := os.Getenv(EnvDSN)
	if dsn == "" {
		return Config{}, NewConnectionError(
			fmt.Sprintf("no connection configured: set %s (and optionally %s)", EnvDSN, EnvDriver), nil)
	}
	driver := os.Getenv(EnvDriver)
	if driver == "" {
		driver = DriverPostgres
	}
	return Config{Driver: driver, ConnectionString: dsn, ConnectTimeout: DefaultConnectTimeout}, nil
}

// Open connects and verifies the connection with a bounded ping.
// The caller owns the returned handle.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	switch cfg.Driver {
	case DriverPostgres, DriverSQLServer:
	default:
		return nil, NewConnectionError(
			fmt.Sprintf("unsupported driver %q (supported: %s, %s)", cfg.Driver, DriverPostgres, DriverSQLServer), nil)
	}

	db, err := sql.Open(cfg.Driver, cfg.ConnectionString)
	if err != nil {
		return nil, Classify(err, cfg.Driver, "open", "")
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, Classify(err, cfg.Driver, "ping", "")
	}
	return db, nil
}

// QuoteIdentifier makes a table or column name safe to splice into SQL
// generated for table-name origins. Both supported drivers accept the
// double-quote form.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
