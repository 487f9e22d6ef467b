package store

import (
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

// withMigrationDB opens a database/sql connection for goose, which does not
// speak pgx natively, and closes it when fn returns.
func withMigrationDB(dsn string, fn func(db *sql.DB) error) error {
	goose.SetBaseFS(migrations)
	db, err := goose.OpenDBWithDriver("postgres", dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer func() { _ = db.Close() }()
	return fn(db)
}

// Migrate applies every pending migration
func Migrate(dsn string) error {
	return withMigrationDB(dsn, func(db *sql.DB) error {
		if err := goose.Up(db, migrationsDir); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		return nil
	})
}

// MigrateDown rolls back the most recent migration
func MigrateDown(dsn string) error {
	return withMigrationDB(dsn, func(db *sql.DB) error {
		if err := goose.Down(db, migrationsDir); err != nil {
			return fmt.Errorf("roll back migration: %w", err)
		}
		return nil
	})
}

// MigrationStatus logs the state of every migration through goose's logger
func MigrationStatus(dsn string) error {
	return withMigrationDB(dsn, func(db *sql.DB) error {
		return goose.Status(db, migrationsDir)
	})
}

// SchemaVersion returns the version of the last applied migration
func SchemaVersion(dsn string) (int64, error) {
	var version int64
	err := withMigrationDB(dsn, func(db *sql.DB) error {
		v, err := goose.GetDBVersion(db)
		version = v
		return err
	})
	return version, err
}
