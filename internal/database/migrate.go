// Package database owns schema migrations for the Postgres mirror
// internal/ledger and internal/utils's audit logger write through to.
// Replaces the teacher's InitDB/global Pool with a one-shot migration
// runner; connection pooling now lives with the package that owns the
// pool (ledger.OpenPostgresMirror).
package database

import (
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations applies every pending migration under
// internal/database/migrations against databaseURL.
func RunMigrations(databaseURL string) error {
	migrationsPath := "file://internal/database/migrations"
	if _, err := os.Stat("../../internal/database/migrations"); err == nil {
		migrationsPath = "file://../../internal/database/migrations"
	}

	m, err := migrate.New(migrationsPath, databaseURL)
	if err != nil {
		return fmt.Errorf("database: create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("database: run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("database: migration version: %w", err)
	}
	if dirty {
		log.Printf("WARNING: database is in dirty state at version %d", version)
	} else {
		log.Printf("database at migration version %d", version)
	}
	return nil
}
