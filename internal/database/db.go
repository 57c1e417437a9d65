package database

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/multierr"
	_ "modernc.org/sqlite"
)

// Supported driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

func init() {
	// modernc registers as "sqlite", which sqlx does not know by default.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Open opens the database for the given driver. SQLite is configured for
// FitRecs' requirements: WAL mode, foreign keys, and single-writer concurrency.
// For Postgres the DSN is passed through to pgx unchanged.
func Open(driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case "", DriverSQLite:
		return openSQLite(dsn)
	case DriverPostgres, "postgres":
		return openPostgres(dsn)
	default:
		return nil, fmt.Errorf("database: unknown driver %q", driver)
	}
}

func openSQLite(dbPath string) (*sqlx.DB, error) {
	db, err := sql.Open(DriverSQLite, dbPath)
	if err != nil {
		return nil, fmt.Errorf("database: open %s: %w", dbPath, err)
	}

	// SQLite is single-writer; one connection avoids SQLITE_BUSY contention.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, multierr.Append(
				fmt.Errorf("database: exec %q: %w", p, err),
				db.Close(),
			)
		}
	}

	return sqlx.NewDb(db, DriverSQLite), nil
}

func openPostgres(dsn string) (*sqlx.DB, error) {
	db, err := sql.Open(DriverPostgres, dsn)
	if err != nil {
		return nil, fmt.Errorf("database: open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, multierr.Append(
			fmt.Errorf("database: ping postgres: %w", err),
			db.Close(),
		)
	}
	return sqlx.NewDb(db, DriverPostgres), nil
}

// IsSQLite reports whether db was opened with the SQLite driver.
func IsSQLite(db *sqlx.DB) bool {
	return db.DriverName() == DriverSQLite
}
