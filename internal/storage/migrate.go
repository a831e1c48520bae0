package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrDirtySchema means an earlier migration stopped half way and the schema
// needs manual repair before the expense tables can be trusted.
var ErrDirtySchema = errors.New("expense schema is dirty")

// migrator owns its own connection: closing a golang-migrate instance closes
// the database handle it was built on.
type migrator struct {
	db *sql.DB
	m  *migrate.Migrate
}

func openMigrator(dbPath string) (*migrator, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open migration database: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return &migrator{db: db, m: m}, nil
}

func (mg *migrator) close() {
	mg.m.Close()
	mg.db.Close()
}

// version reports the applied schema version; zero means no migration ran.
func (mg *migrator) version() (uint, error) {
	v, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return v, fmt.Errorf("%w at version %d", ErrDirtySchema, v)
	}
	return v, nil
}

// RunMigrations applies pending expense, goal and profile migrations to the
// database at dbPath and returns the resulting schema version.
func RunMigrations(dbPath string) (uint, error) {
	mg, err := openMigrator(dbPath)
	if err != nil {
		return 0, err
	}
	defer mg.close()

	if _, err := mg.version(); err != nil {
		return 0, err
	}
	if err := mg.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("apply migrations: %w", err)
	}
	return mg.version()
}

// SchemaVersion reads the schema version without migrating.
func SchemaVersion(dbPath string) (uint, error) {
	mg, err := openMigrator(dbPath)
	if err != nil {
		return 0, err
	}
	defer mg.close()
	return mg.version()
}
