package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed *.sql
var MigrationFiles embed.FS

// BaselineVersion creates the users and events tables the event store
// reads from. Every later version builds on it.
const BaselineVersion uint = 1

// ErrSchemaAhead is returned when the database was migrated by a newer
// build than this one.
var ErrSchemaAhead = errors.New("database schema is newer than this build")

// ErrNoBaseline is returned when auto-migration is off and the baseline
// has never been applied.
var ErrNoBaseline = errors.New("users/events baseline migration not applied")

// RunMigrations brings db to the latest embedded schema. With autoMigrate
// false it only verifies that the baseline is present and not ahead of
// this build.
func RunMigrations(db *sql.DB, autoMigrate bool) error {
	sourceDriver, err := iofs.New(MigrationFiles, ".")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	latest, err := LatestVersion(sourceDriver)
	if err != nil {
		return err
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	version, dirty, err := m.Version()
	applied := true
	if errors.Is(err, migrate.ErrNilVersion) {
		applied = false
	} else if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	if dirty {
		slog.Warn("[Migrations] Dirty schema version, forcing and re-running",
			"version", version)
		// the baseline DDL is idempotent (IF NOT EXISTS)
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to recover dirty migration state at version %d: %w", version, err)
		}
	}

	if err := checkVersion(version, applied, latest, autoMigrate); err != nil {
		return err
	}

	if !autoMigrate {
		slog.Info("[Migrations] Auto-migration disabled",
			"current_version", version,
			"latest_version", latest)
		return nil
	}

	if applied && version == latest {
		slog.Info("[Migrations] Schema is up to date", "version", version)
		return nil
	}

	slog.Info("[Migrations] Applying schema",
		"from_version", version,
		"to_version", latest)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Info("[Migrations] Schema applied", "version", latest)
	return nil
}

// LatestVersion walks the migration source and returns its highest version.
func LatestVersion(src source.Driver) (uint, error) {
	v, err := src.First()
	if err != nil {
		return 0, fmt.Errorf("no migrations embedded: %w", err)
	}
	for {
		next, err := src.Next(v)
		if errors.Is(err, fs.ErrNotExist) {
			return v, nil
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read migration after version %d: %w", v, err)
		}
		v = next
	}
}

// checkVersion decides whether the database at version can be served by
// a build whose newest migration is latest.
func checkVersion(version uint, applied bool, latest uint, autoMigrate bool) error {
	if applied && version > latest {
		return fmt.Errorf("%w: database at %d, build knows %d", ErrSchemaAhead, version, latest)
	}
	if !autoMigrate && (!applied || version < BaselineVersion) {
		return ErrNoBaseline
	}
	return nil
}
