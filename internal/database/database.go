package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/hiroki-koketsu/task-tracker/internal/repository"
)

// Options configures the connection pool.
type Options struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open opens a pooled database handle for the configured driver and checks
// that it is reachable. The returned dialect matches the driver.
func Open(ctx context.Context, opts Options) (*sql.DB, repository.Dialect, error) {
	dialect, err := dialectFor(opts.Driver)
	if err != nil {
		return nil, 0, err
	}

	db, err := sql.Open(opts.Driver, opts.DSN)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open database: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, 0, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, dialect, nil
}

func dialectFor(driver string) (repository.Dialect, error) {
	switch driver {
	case "sqlite":
		return repository.DialectSQLite, nil
	case "pgx":
		return repository.DialectPostgres, nil
	default:
		return 0, fmt.Errorf("unsupported database driver %q", driver)
	}
}
