// Package schema applies embedded golang-migrate migrations for either
// backend database.
package schema

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Result describes what happened during migration.
type Result struct {
	Version uint
	Dirty   bool
	Changed bool
}

// ErrDirty is returned when a previous migration failed halfway. The schema
// has to be repaired by hand before the daemon will touch it again.
var ErrDirty = errors.New("schema is dirty")

// Up applies every pending migration in migrations to the database behind
// driver. dbName names the driver for golang-migrate's logs.
func Up(migrations fs.FS, dbName string, driver database.Driver) (*Result, error) {
	source, err := iofs.New(migrations, ".")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, dbName, driver)
	if err != nil {
		return nil, fmt.Errorf("migration instance: %w", err)
	}

	if version, dirty, err := m.Version(); err == nil && dirty {
		return nil, fmt.Errorf("%w at version %d", ErrDirty, version)
	}

	changed := true
	if err := m.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			return nil, fmt.Errorf("migration up: %w", err)
		}
		changed = false
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return nil, fmt.Errorf("migration version: %w", err)
	}
	return &Result{Version: version, Dirty: dirty, Changed: changed}, nil
}
