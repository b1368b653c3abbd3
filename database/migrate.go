package database

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	log "github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrator applies the embedded ledger schema
type Migrator struct {
	m *migrate.Migrate
}

// OpenMigrator connects golang-migrate to databaseURL through the pgx stdlib driver
func OpenMigrator(databaseURL string) (*Migrator, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	driver, err := postgres.WithInstance(stdlib.OpenDB(*poolConfig.ConnConfig), &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return &Migrator{m: m}, nil
}

func (mg *Migrator) Close() {
	if srcErr, dbErr := mg.m.Close(); srcErr != nil || dbErr != nil {
		log.WithFields(log.Fields{
			"sourceError":   srcErr,
			"databaseError": dbErr,
		}).Warn("Failed to close migrator")
	}
}

// Up applies every pending migration. It reports whether anything changed.
func (mg *Migrator) Up() (bool, error) {
	err := mg.m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to run migrations: %w", err)
	}
	return true, nil
}

// Down rolls back steps migrations. A dirty schema must be fixed by hand first.
func (mg *Migrator) Down(steps int) (bool, error) {
	if steps <= 0 {
		return false, fmt.Errorf("steps must be positive, got %d", steps)
	}
	if _, dirty, err := mg.Version(); err != nil {
		return false, err
	} else if dirty {
		return false, fmt.Errorf("schema is dirty, refusing to roll back")
	}

	err := mg.m.Steps(-steps)
	if errors.Is(err, migrate.ErrNoChange) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to roll back migrations: %w", err)
	}
	return true, nil
}

// Version returns 0 when no migration has been applied
func (mg *Migrator) Version() (uint, bool, error) {
	version, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, dirty, nil
}

// withEnvMigrator reads DATABASE_URL/DATABASE_NAME directly so migrations
// run without the secrets the full config requires.
func withEnvMigrator(fn func(*Migrator) error) error {
	mg, err := OpenMigrator(ConstructDatabaseURL(os.Getenv("DATABASE_URL"), os.Getenv("DATABASE_NAME")))
	if err != nil {
		return err
	}
	defer mg.Close()
	return fn(mg)
}

func MigrateUp() error {
	return withEnvMigrator(func(mg *Migrator) error {
		changed, err := mg.Up()
		if err != nil {
			return err
		}
		logVersion(mg, changed, "Schema migrated")
		return nil
	})
}

func MigrateDown(stepsStr string) error {
	steps, err := strconv.Atoi(stepsStr)
	if err != nil {
		return fmt.Errorf("invalid steps value: %w", err)
	}
	return withEnvMigrator(func(mg *Migrator) error {
		changed, err := mg.Down(steps)
		if err != nil {
			return err
		}
		logVersion(mg, changed, "Schema rolled back")
		return nil
	})
}

func MigrateStatus() error {
	return withEnvMigrator(func(mg *Migrator) error {
		logVersion(mg, true, "Current schema version")
		return nil
	})
}

// RunMigrationsWithURL brings databaseURL up to date; test containers only know their URL at runtime
func RunMigrationsWithURL(databaseURL string) error {
	mg, err := OpenMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer mg.Close()
	_, err = mg.Up()
	return err
}

func logVersion(mg *Migrator, changed bool, msg string) {
	if !changed {
		log.Info("Schema already at the requested version")
		return
	}
	version, dirty, err := mg.Version()
	if err != nil {
		log.WithError(err).Warn("Failed to read schema version")
		return
	}
	log.WithFields(log.Fields{
		"version": version,
		"dirty":   dirty,
	}).Info(msg)
}
